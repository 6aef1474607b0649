package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"shutter/internal/filters"
	"shutter/internal/logging"
)

// Record is one indexed image.
type Record struct {
	Path        string
	Name        string
	ContentHash string
	Signature   string
	SizeBytes   int64
	ModTime     time.Time
	IndexedAt   time.Time
}

// Complete reports whether both digests are present. Incomplete rows are
// treated as not yet indexed.
func (r Record) Complete() bool {
	return r.ContentHash != "" && r.Signature != ""
}

// SignatureCount is one row of the duplicate grouping query.
type SignatureCount struct {
	Signature string
	Count     int
}

const recordColumns = "path, name, content_hash, signature, size_bytes, mod_time, indexed_at"

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*Record, error) {
	var (
		rec        Record
		modRaw     sql.NullString
		indexedRaw string
	)
	if err := scanner.Scan(&rec.Path, &rec.Name, &rec.ContentHash, &rec.Signature, &rec.SizeBytes, &modRaw, &indexedRaw); err != nil {
		return nil, err
	}
	if modRaw.Valid {
		if t, err := time.Parse(time.RFC3339Nano, modRaw.String); err == nil {
			rec.ModTime = t
		}
	}
	if t, err := time.Parse(time.RFC3339Nano, indexedRaw); err == nil {
		rec.IndexedAt = t
	}
	return &rec, nil
}

func nullableTime(value time.Time) any {
	if value.IsZero() {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

// Upsert inserts or replaces the record keyed by its path.
func (s *Store) Upsert(ctx context.Context, rec Record) error {
	if rec.Path == "" {
		return errors.New("upsert: record path is required")
	}
	if rec.Name == "" {
		rec.Name = filepath.Base(rec.Path)
	}
	if rec.IndexedAt.IsZero() {
		rec.IndexedAt = time.Now()
	}
	_, err := s.execWithRetry(ctx, `INSERT INTO images (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			name = excluded.name,
			content_hash = excluded.content_hash,
			signature = excluded.signature,
			size_bytes = excluded.size_bytes,
			mod_time = excluded.mod_time,
			indexed_at = excluded.indexed_at`,
		rec.Path, rec.Name, rec.ContentHash, rec.Signature, rec.SizeBytes,
		nullableTime(rec.ModTime), rec.IndexedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return storeError("upsert", rec.Path, err)
	}
	return nil
}

// Get returns the record for path, or nil when absent.
func (s *Store) Get(ctx context.Context, path string) (*Record, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), "SELECT "+recordColumns+" FROM images WHERE path = ?", path)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError("get", path, err)
	}
	return rec, nil
}

// Delete removes the record for path and reports whether a row existed.
func (s *Store) Delete(ctx context.Context, path string) (bool, error) {
	res, err := s.execWithRetry(ctx, "DELETE FROM images WHERE path = ?", path)
	if err != nil {
		return false, storeError("delete", path, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, storeError("delete", path, err)
	}
	return affected > 0, nil
}

// ListPrefix returns every record whose path lies under dir.
func (s *Store) ListPrefix(ctx context.Context, dir string) ([]Record, error) {
	return s.queryRecords(ctx, "list prefix", dir,
		"SELECT "+recordColumns+` FROM images WHERE path LIKE ? ESCAPE '\' ORDER BY path`,
		filters.EscapeLike(dir)+"%")
}

// FindBySignature returns every record sharing the perceptual signature.
func (s *Store) FindBySignature(ctx context.Context, signature string) ([]Record, error) {
	return s.queryRecords(ctx, "find by signature", signature,
		"SELECT "+recordColumns+" FROM images WHERE signature = ? ORDER BY path", signature)
}

// PathsBySignature returns every stored path carrying the signature.
func (s *Store) PathsBySignature(ctx context.Context, signature string) ([]string, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), "SELECT path FROM images WHERE signature = ? ORDER BY path", signature)
	if err != nil {
		return nil, storeError("paths by signature", signature, err)
	}
	defer rows.Close()
	return collectStrings(rows, "paths by signature", signature)
}

// DuplicateSignatures groups records by signature and returns the signatures
// held by more than one record that satisfies f. Both sides of the pairing
// must satisfy f, so a group never forms from a single in-scope file and
// out-of-scope copies. Incomplete rows never group.
func (s *Store) DuplicateSignatures(ctx context.Context, f filters.Filters, limit int) ([]SignatureCount, error) {
	outer, outerArgs := f.Predicate("i")
	inner, innerArgs := f.Predicate("j")
	if outer == "" {
		outer, inner = "1 = 1", "1 = 1"
	}
	query := fmt.Sprintf(`SELECT i.signature, COUNT(*) FROM images i
		WHERE i.signature != '' AND %s
		AND EXISTS (SELECT 1 FROM images j WHERE j.signature = i.signature AND j.path != i.path AND %s)
		GROUP BY i.signature
		HAVING COUNT(*) > 1
		ORDER BY i.signature
		LIMIT ?`, outer, inner)
	args := make([]any, 0, len(outerArgs)+len(innerArgs)+1)
	args = append(args, outerArgs...)
	args = append(args, innerArgs...)
	args = append(args, limit)

	s.logger.Debug("duplicate grouping query", logging.String("query", query), logging.Any("args", args))

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, storeError("duplicate signatures", "", err)
	}
	defer rows.Close()

	var out []SignatureCount
	for rows.Next() {
		var sc SignatureCount
		if err := rows.Scan(&sc.Signature, &sc.Count); err != nil {
			return nil, storeError("duplicate signatures", "", err)
		}
		out = append(out, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("duplicate signatures", "", err)
	}
	return out, nil
}

// Paths returns every stored path in lexical order.
func (s *Store) Paths(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), "SELECT path FROM images ORDER BY path")
	if err != nil {
		return nil, storeError("paths", "", err)
	}
	defer rows.Close()
	return collectStrings(rows, "paths", "")
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ensureContext(ctx), "SELECT COUNT(*) FROM images").Scan(&n); err != nil {
		return 0, storeError("count", "", err)
	}
	return n, nil
}

func (s *Store) queryRecords(ctx context.Context, operation, subject, query string, args ...any) ([]Record, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, storeError(operation, subject, err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, storeError(operation, subject, err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(operation, subject, err)
	}
	return out, nil
}

func collectStrings(rows *sql.Rows, operation, subject string) ([]string, error) {
	var out []string
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, storeError(operation, subject, err)
		}
		out = append(out, value)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(operation, subject, err)
	}
	return out, nil
}
