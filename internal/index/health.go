package index

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

// DatabaseHealth captures diagnostic information about the index database.
type DatabaseHealth struct {
	DBPath           string
	LockPath         string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    string
	TableExists      bool
	ColumnsPresent   []string
	MissingColumns   []string
	IntegrityCheck   bool
	TotalRecords     int
	IncompleteCount  int
	Error            string
}

// CheckHealth returns diagnostic information about the index database.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{
		DBPath:   s.path,
		LockPath: s.lockPath,
	}

	if s.path == "" {
		return health, errors.New("index database path is unknown")
	}
	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return health, nil
		}
		return health, fmt.Errorf("stat index database: %w", err)
	}
	if info.IsDir() {
		return health, fmt.Errorf("index database path %q is a directory", s.path)
	}
	health.DatabaseExists = true

	if s.db == nil {
		return health, errors.New("index database connection unavailable")
	}

	connCtx, cancel := context.WithTimeout(ensureContext(ctx), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping index database: %w", err)
	}
	health.DatabaseReadable = true

	var version int
	if err := s.db.QueryRowContext(connCtx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err == nil {
		health.SchemaVersion = strconv.Itoa(version)
		if version != schemaVersion {
			health.SchemaVersion += " (expected " + strconv.Itoa(schemaVersion) + ")"
		}
	} else {
		health.SchemaVersion = "unknown"
	}

	var tableCount int
	if err := s.db.QueryRowContext(connCtx, "SELECT COUNT(1) FROM sqlite_master WHERE type = 'table' AND name = 'images'").Scan(&tableCount); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("query table info: %w", err)
	}
	health.TableExists = tableCount > 0

	if health.TableExists {
		columns, err := s.tableColumns(connCtx, "images")
		if err != nil {
			health.Error = err.Error()
			return health, err
		}
		health.ColumnsPresent = columns
		for _, col := range expectedColumns {
			if !slices.Contains(columns, col) {
				health.MissingColumns = append(health.MissingColumns, col)
			}
		}

		total, err := s.Count(connCtx)
		if err != nil {
			health.Error = err.Error()
			return health, err
		}
		health.TotalRecords = total
		if len(health.MissingColumns) == 0 {
			if err := s.db.QueryRowContext(connCtx, "SELECT COUNT(*) FROM images WHERE content_hash = '' OR signature = ''").Scan(&health.IncompleteCount); err != nil {
				health.Error = err.Error()
				return health, fmt.Errorf("count incomplete records: %w", err)
			}
		}
	}

	var integrityResult string
	if err := s.db.QueryRowContext(connCtx, "PRAGMA integrity_check").Scan(&integrityResult); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("integrity check: %w", err)
	}
	health.IntegrityCheck = strings.EqualFold(integrityResult, "ok")

	return health, nil
}

func (s *Store) tableColumns(ctx context.Context, table string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "PRAGMA table_info("+table+")")
	if err != nil {
		return nil, fmt.Errorf("table info: %w", err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var (
			cid     int
			name    string
			typeStr string
			notNull int
			dflt    any
			pk      int
		)
		if err := rows.Scan(&cid, &name, &typeStr, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scan table info: %w", err)
		}
		columns = append(columns, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate table info: %w", err)
	}
	return columns, nil
}
