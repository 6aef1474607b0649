package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"shutter/internal/fileutil"
	"shutter/internal/filters"
	"shutter/internal/index"
	"shutter/internal/logging"
	"shutter/internal/services"
	"shutter/internal/signature"
)

// Options controls which files a scan considers.
type Options struct {
	// Extensions are matched case-insensitively, without the leading dot.
	Extensions []string
	Filters    filters.Filters
	// MaxDepth bounds descent below the root; 0 means unlimited.
	MaxDepth int
	// Progress, when set, is called once per candidate file.
	Progress func(path string)
}

// FileError pairs a path with the error that made the scanner skip it.
type FileError struct {
	Path string
	Err  error
}

// Summary reports what a scan did.
type Summary struct {
	Directories int
	FilesSeen   int
	Indexed     int
	CacheHits   int
	Filtered    int
	Corrupt     int
	Errors      []FileError
	Elapsed     time.Duration
}

// Scanner indexes image files under a directory tree.
type Scanner struct {
	store      *index.Store
	signatures signature.Service
	opts       Options
	exts       map[string]struct{}
	logger     *slog.Logger
}

// New constructs a Scanner.
func New(store *index.Store, signatures signature.Service, opts Options, logger *slog.Logger) *Scanner {
	exts := make(map[string]struct{}, len(opts.Extensions))
	for _, ext := range opts.Extensions {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext != "" {
			exts[ext] = struct{}{}
		}
	}
	return &Scanner{
		store:      store,
		signatures: signatures,
		opts:       opts,
		exts:       exts,
		logger:     logging.NewComponentLogger(logger, "scanner"),
	}
}

type dirEntry struct {
	path  string
	depth int
}

// Scan walks root and indexes every matching file. Per-file problems are
// collected in the summary; only an unreadable root, a store failure, or
// cancellation ends the scan early, and the partial summary is returned with
// the error.
func (s *Scanner) Scan(ctx context.Context, root string) (summary Summary, err error) {
	started := time.Now()
	defer func() { summary.Elapsed = time.Since(started) }()

	rootKey, err := fileutil.PathKey(root)
	if err != nil {
		return summary, services.Wrap(services.ErrValidation, "scan", "resolve root", root, err)
	}
	info, err := os.Stat(rootKey)
	if err != nil {
		return summary, services.Wrap(services.ErrNotFound, "scan", "stat root", rootKey, err)
	}
	if !info.IsDir() {
		return summary, services.Wrap(services.ErrValidation, "scan", "stat root", rootKey+" is not a directory", nil)
	}

	ctx = services.WithStage(ctx, "scan")
	logger := logging.WithContext(ctx, s.logger)
	logger.Info("scan started", logging.String("root", rootKey))

	visited := make(map[string]struct{})
	stack := []dirEntry{{path: rootKey}}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		resolved, err := filepath.EvalSymlinks(current.path)
		if err != nil {
			summary.Errors = append(summary.Errors, FileError{Path: current.path, Err: err})
			continue
		}
		if _, seen := visited[resolved]; seen {
			logger.Debug("directory already visited", logging.String("dir", current.path), logging.String("target", resolved))
			continue
		}
		visited[resolved] = struct{}{}
		summary.Directories++

		subdirs, err := s.scanDirectory(ctx, logger, current.path, &summary)
		if err != nil {
			return summary, err
		}
		if s.opts.MaxDepth > 0 && current.depth >= s.opts.MaxDepth {
			continue
		}
		for i := len(subdirs) - 1; i >= 0; i-- {
			stack = append(stack, dirEntry{path: subdirs[i], depth: current.depth + 1})
		}
	}

	logger.Info("scan complete",
		logging.String(logging.FieldEventType, "scan_complete"),
		logging.Int("directories", summary.Directories),
		logging.Int("files_seen", summary.FilesSeen),
		logging.Int("files_indexed", summary.Indexed),
		logging.Int("cache_hits", summary.CacheHits),
		logging.Int("files_skipped", summary.Corrupt+len(summary.Errors)),
		logging.Duration("elapsed", time.Since(started)),
	)
	return summary, nil
}

// scanDirectory indexes the files directly in dir and returns its
// subdirectories in lexical order.
func (s *Scanner) scanDirectory(ctx context.Context, logger *slog.Logger, dir string, summary *Summary) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		summary.Errors = append(summary.Errors, FileError{Path: dir, Err: err})
		logging.WarnWithContext(logger, "directory unreadable; skipping", "scan_dir_unreadable",
			logging.String("dir", dir),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check directory permissions"),
			logging.String(logging.FieldImpact, "files below this directory are not indexed"),
		)
		return nil, nil
	}

	var (
		subdirs []string
		files   []string
	)
	for _, entry := range entries {
		full := filepath.Join(dir, entry.Name())
		switch {
		case entry.IsDir():
			subdirs = append(subdirs, full)
		case entry.Type()&os.ModeSymlink != 0:
			target, err := os.Stat(full)
			if err != nil {
				logger.Debug("dangling symlink", logging.String("path", full), logging.Error(err))
				continue
			}
			if target.IsDir() {
				subdirs = append(subdirs, full)
			} else if target.Mode().IsRegular() && s.matchesExtension(entry.Name()) {
				files = append(files, full)
			}
		case entry.Type().IsRegular():
			if s.matchesExtension(entry.Name()) {
				files = append(files, full)
			}
		}
	}
	slices.Sort(subdirs)

	if len(files) == 0 {
		return subdirs, nil
	}
	if !s.opts.Filters.Trace(logger, filters.GroupPath, dir+string(filepath.Separator)) {
		summary.FilesSeen += len(files)
		summary.Filtered += len(files)
		logger.Debug("directory filtered", logging.String("dir", dir), logging.Int("files", len(files)))
		return subdirs, nil
	}

	cache, err := index.LoadCache(ctx, s.store, dir)
	if err != nil {
		return nil, err
	}
	logger.Debug("directory cache loaded", logging.String("dir", cache.Dir()), logging.Int("records", cache.Len()))

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		summary.FilesSeen++
		if s.opts.Progress != nil {
			s.opts.Progress(path)
		}
		if cache.Contains(path) {
			summary.CacheHits++
			continue
		}
		if !s.opts.Filters.Trace(logger, filters.GroupFile, filepath.Base(path)) {
			summary.Filtered++
			continue
		}
		if err := s.indexFile(ctx, logger, path); err != nil {
			if errors.Is(err, signature.ErrCorruptMedia) {
				summary.Corrupt++
				logging.WarnWithContext(logger, "undecodable image skipped", "scan_corrupt_media",
					append([]logging.Attr{
						logging.String(logging.FieldSource, path),
						logging.String(logging.FieldImpact, "file is not indexed and cannot be deduplicated"),
						logging.String(logging.FieldErrorHint, "verify the file opens in an image viewer"),
					}, logging.ErrorAttrs(err)...)...,
				)
				continue
			}
			if errors.Is(err, index.ErrStore) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			summary.Errors = append(summary.Errors, FileError{Path: path, Err: err})
			continue
		}
		summary.Indexed++
	}
	return subdirs, nil
}

func (s *Scanner) indexFile(ctx context.Context, logger *slog.Logger, path string) error {
	key, err := fileutil.PathKey(path)
	if err != nil {
		return err
	}
	info, err := os.Stat(key)
	if err != nil {
		return fmt.Errorf("stat %s: %w", key, err)
	}
	sig, err := s.signatures.SignatureOf(ctx, key)
	if err != nil {
		return err
	}
	rec := index.Record{
		Path:        key,
		Name:        filepath.Base(key),
		ContentHash: sig.ContentHash,
		Signature:   sig.Perceptual,
		SizeBytes:   info.Size(),
		ModTime:     info.ModTime(),
	}
	if err := s.store.Upsert(ctx, rec); err != nil {
		return err
	}
	logger.Debug("file indexed",
		logging.String(logging.FieldSource, key),
		logging.String("signature", sig.Perceptual),
	)
	return nil
}

func (s *Scanner) matchesExtension(name string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if ext == "" {
		return false
	}
	_, ok := s.exts[ext]
	return ok
}
