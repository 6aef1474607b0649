package placement

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"shutter/internal/logging"
	"shutter/internal/services"
)

// FileError pairs a source with the reason it was skipped.
type FileError struct {
	Path string
	Err  error
}

// BatchSummary aggregates PlaceAll results.
type BatchSummary struct {
	Results          []Result
	Placed           int
	AlreadyPlaced    int
	DuplicateTrashed int
	Skipped          int
	Retries          int
	Errors           []FileError
	Elapsed          time.Duration
}

// PlaceAll places sources in order. A failing file never stops the batch;
// only cancellation does, and the partial summary is returned with ctx.Err().
func (p *Pipeline) PlaceAll(ctx context.Context, sources []string) (summary BatchSummary, err error) {
	started := time.Now()
	defer func() { summary.Elapsed = time.Since(started) }()

	for _, source := range sources {
		res, err := p.Place(ctx, source)
		if err != nil {
			return summary, err
		}
		summary.Results = append(summary.Results, res)
		summary.Retries += res.Retries
		switch res.State {
		case StatePlaced:
			if res.AlreadyPlaced {
				summary.AlreadyPlaced++
			} else {
				summary.Placed++
			}
		case StateDuplicateTrashed:
			summary.DuplicateTrashed++
		default:
			summary.Skipped++
		}
		if res.Err != nil {
			summary.Errors = append(summary.Errors, FileError{Path: res.Source, Err: res.Err})
		}
		if p.opts.Progress != nil {
			p.opts.Progress(res)
		}
	}

	logging.WithContext(services.WithStage(ctx, "placement"), p.logger).Info("placement complete",
		logging.String(logging.FieldEventType, "placement_complete"),
		logging.Int("files_placed", summary.Placed),
		logging.Int("already_placed", summary.AlreadyPlaced),
		logging.Int("duplicates_trashed", summary.DuplicateTrashed),
		logging.Int("files_skipped", summary.Skipped),
		logging.Int("probe_retries", summary.Retries),
		logging.Bool("dry_run", p.opts.DryRun),
		logging.Duration("elapsed", time.Since(started)),
	)
	return summary, nil
}

// CollectSources expands paths into the files to place. Directories are
// walked recursively in lexical order and filtered by extension; files named
// directly are always included.
func CollectSources(ctx context.Context, paths []string, extensions []string) ([]string, error) {
	exts := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		exts[strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))] = struct{}{}
	}
	var sources []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, services.Wrap(services.ErrNotFound, "placement", "collect sources", path, err)
		}
		if !info.IsDir() {
			sources = append(sources, path)
			continue
		}
		err = filepath.WalkDir(path, func(current string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if !d.Type().IsRegular() {
				return nil
			}
			ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(current), "."))
			if _, ok := exts[ext]; ok {
				sources = append(sources, current)
			}
			return nil
		})
		if err != nil {
			return nil, services.Wrap(services.ErrTransient, "placement", "collect sources", path, err)
		}
	}
	return sources, nil
}
