package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"shutter/internal/config"
)

// LogFilePattern matches the dated log files written by Open.
const LogFilePattern = "shutter-*.log"

// Options describes logger construction parameters.
type Options struct {
	Level       string
	Format      string
	OutputPaths []string
	Development bool
}

// New constructs a slog logger using the provided options.
func New(opts Options) (*slog.Logger, error) {
	level := parseLevel(opts.Level)
	levelVar := new(slog.LevelVar)
	levelVar.Set(level)

	outputs := opts.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stderr"}
	}
	writer, err := openWriters(outputs)
	if err != nil {
		return nil, err
	}

	handler, err := newFormatHandler(opts.Format, writer, levelVar, opts.Development || level <= slog.LevelDebug)
	if err != nil {
		return nil, err
	}
	return slog.New(handler), nil
}

// RunOptions adjusts the per-invocation logger built by Open.
type RunOptions struct {
	// Level overrides logging.level from the config when set.
	Level string
	// Silent drops console output; the log file is still written.
	Silent bool
	// Console receives console output. Defaults to stderr.
	Console io.Writer
	// RunID tags every record. A random ID is generated when empty.
	RunID string
}

// Session is a logger bound to one command invocation and its log file.
type Session struct {
	Logger  *slog.Logger
	RunID   string
	LogPath string
	file    *os.File
}

// Close flushes and closes the log file.
func (s *Session) Close() error {
	if s == nil || s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// Open builds the logger for a command run: a console handler in the
// configured format plus a JSON file handler writing to a dated file under
// the log directory. Log files older than the retention window are pruned.
func Open(cfg *config.Config, opts RunOptions) (*Session, error) {
	if cfg == nil {
		return nil, errors.New("logging: config is required")
	}
	levelName := cfg.Logging.Level
	if strings.TrimSpace(opts.Level) != "" {
		levelName = opts.Level
	}
	levelVar := new(slog.LevelVar)
	levelVar.Set(parseLevel(levelName))
	addSource := levelVar.Level() <= slog.LevelDebug

	runID := strings.TrimSpace(opts.RunID)
	if runID == "" {
		runID = uuid.NewString()
	}

	var handlers []slog.Handler
	if !opts.Silent {
		console := opts.Console
		if console == nil {
			console = os.Stderr
		}
		handler, err := newFormatHandler(cfg.Logging.Format, console, levelVar, addSource)
		if err != nil {
			return nil, err
		}
		handlers = append(handlers, handler)
	}

	session := &Session{RunID: runID}
	if dir := strings.TrimSpace(cfg.Paths.LogDir); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure log directory: %w", err)
		}
		session.LogPath = filepath.Join(dir, LogFileName(time.Now()))
		file, err := os.OpenFile(session.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
		if err != nil {
			return nil, fmt.Errorf("open log file %s: %w", session.LogPath, err)
		}
		session.file = file
		handlers = append(handlers, newJSONHandler(file, levelVar, addSource))
	}

	session.Logger = slog.New(newRunIDHandler(newFanoutHandler(handlers...), runID))

	if session.LogPath != "" {
		PruneLogs(session.Logger, cfg.Paths.LogDir, cfg.Logging.RetentionDays, session.LogPath)
	}
	return session, nil
}

// LogFileName returns the dated log file name for the given day.
func LogFileName(day time.Time) string {
	return "shutter-" + day.Format("2006-01-02") + ".log"
}

func newFormatHandler(format string, w io.Writer, lvl slog.Leveler, addSource bool) (slog.Handler, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "console":
		return newPrettyHandler(w, lvl, addSource), nil
	case "json":
		return newJSONHandler(w, lvl, addSource), nil
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", format)
	}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func openWriters(paths []string) (io.Writer, error) {
	seen := map[string]struct{}{}
	var writers []io.Writer
	for _, path := range paths {
		trimmed := strings.TrimSpace(path)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}

		switch trimmed {
		case "stdout":
			writers = append(writers, os.Stdout)
		case "stderr":
			writers = append(writers, os.Stderr)
		default:
			if dir := filepath.Dir(trimmed); dir != "." && dir != "" {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return nil, err
				}
			}
			file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
			if err != nil {
				return nil, fmt.Errorf("open log file %s: %w", trimmed, err)
			}
			writers = append(writers, file)
		}
	}

	switch len(writers) {
	case 0:
		return os.Stderr, nil
	case 1:
		return writers[0], nil
	default:
		return io.MultiWriter(writers...), nil
	}
}
