package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"shutter/internal/config"
	"shutter/internal/logging"
	"shutter/internal/services"
)

// Store manages index persistence backed by SQLite.
type Store struct {
	db       *sql.DB
	path     string
	lockPath string
	lock     *flock.Flock
	logger   *slog.Logger
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Connection pragmas. They are passed in the DSN so every pooled connection
// gets them, not just the first one.
var connectionPragmas = []string{
	"journal_mode(WAL)",
	"busy_timeout(5000)",
	"case_sensitive_like(1)",
}

// Open initializes or connects to the index database configured in cfg.
func Open(cfg *config.Config, logger *slog.Logger) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(context.Background(), cfg.IndexPath(), logger)
}

// OpenPath opens the database at dbPath after taking the exclusive lock on
// dbPath+".lock". A second process gets ErrLocked.
func OpenPath(ctx context.Context, dbPath string, logger *slog.Logger) (*Store, error) {
	ctx = ensureContext(ctx)
	lockPath := dbPath + ".lock"
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "index", "lock", lockPath, err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrConfiguration, "index", "lock",
			fmt.Sprintf("%s is held by another shutter process", lockPath), ErrLocked)
	}

	params := url.Values{}
	for _, pragma := range connectionPragmas {
		params.Add("_pragma", pragma)
	}
	db, err := sql.Open("sqlite", dbPath+"?"+params.Encode())
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	store := &Store{
		db:       db,
		path:     dbPath,
		lockPath: lockPath,
		lock:     lock,
		logger:   logging.NewComponentLogger(logger, "index"),
	}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, err
	}
	store.logger.Debug("index opened", logging.String("db_path", dbPath))
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection and releases the lock.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	if s.lock != nil {
		if unlockErr := s.lock.Unlock(); unlockErr != nil && err == nil {
			err = fmt.Errorf("release index lock: %w", unlockErr)
		}
	}
	return err
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}
