package placement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"shutter/internal/fileutil"
	"shutter/internal/index"
	"shutter/internal/logging"
	"shutter/internal/metadata"
	"shutter/internal/services"
	"shutter/internal/signature"
)

// State is the terminal outcome of placing one file.
type State string

const (
	StatePlaced           State = "PLACED"
	StateDuplicateTrashed State = "DUPLICATE_TRASHED"
	StateSkipped          State = "SKIPPED"
)

// DefaultMaxProbe bounds the collision probe when Options.MaxProbe is unset.
const DefaultMaxProbe = 100000

// Options configures a Pipeline.
type Options struct {
	// BaseDir is the library root; empty places each file relative to its own directory.
	BaseDir      string
	DryRun       bool
	TrashEnabled bool
	TrashDir     string
	MaxProbe     int
	// Progress, when set, is called by PlaceAll after each file.
	Progress func(Result)
}

// Result describes what happened to one source.
type Result struct {
	Source      string
	Destination string
	State       State
	CaptureTime time.Time
	// Retries counts collision probe steps; each one shifts the time by a second.
	Retries     int
	DuplicateOf string
	TrashedTo   string
	// AlreadyPlaced is set when the source already had its canonical name.
	AlreadyPlaced bool
	Err           error
}

// Pipeline places photos into the canonical layout.
type Pipeline struct {
	store      *index.Store
	signatures signature.Service
	editor     metadata.Editor
	trash      *Trash
	opts       Options
	logger     *slog.Logger
	// planned holds dry-run destinations so later files probe past them.
	planned map[string]struct{}
}

// New constructs a Pipeline.
func New(store *index.Store, signatures signature.Service, editor metadata.Editor, opts Options, logger *slog.Logger) *Pipeline {
	if opts.MaxProbe <= 0 {
		opts.MaxProbe = DefaultMaxProbe
	}
	return &Pipeline{
		store:      store,
		signatures: signatures,
		editor:     editor,
		trash:      NewTrash(opts.TrashDir, opts.TrashEnabled, opts.DryRun, logger),
		opts:       opts,
		logger:     logging.NewComponentLogger(logger, "placement"),
		planned:    make(map[string]struct{}),
	}
}

// Place runs source through the pipeline. Per-file failures are reported in
// Result.Err with StateSkipped; the returned error is non-nil only when ctx is
// done.
func (p *Pipeline) Place(ctx context.Context, source string) (Result, error) {
	res := Result{Source: source, State: StateSkipped}
	if err := ctx.Err(); err != nil {
		res.Err = err
		return res, err
	}
	key, err := fileutil.PathKey(source)
	if err != nil {
		return p.skip(ctx, res, services.Wrap(services.ErrValidation, "placement", "resolve source", source, err))
	}
	res.Source = key
	ctx = services.WithSource(services.WithStage(ctx, "placement"), key)

	info, err := os.Stat(key)
	if err != nil {
		return p.skip(ctx, res, services.Wrap(services.ErrNotFound, "placement", "stat source", key, err))
	}
	if !info.Mode().IsRegular() {
		return p.skip(ctx, res, services.Wrap(services.ErrValidation, "placement", "stat source", key+" is not a regular file", nil))
	}

	sig, err := p.signatures.SignatureOf(ctx, key)
	if err != nil {
		return p.skip(ctx, res, err)
	}
	duplicateOf, err := p.duplicateOf(ctx, key, sig)
	if err != nil {
		return p.skip(ctx, res, err)
	}
	if duplicateOf != "" {
		return p.discardDuplicate(ctx, res, duplicateOf)
	}

	captured, fromName, err := p.captureTime(ctx, key)
	if err != nil {
		return p.skip(ctx, res, err)
	}
	res.CaptureTime = captured
	if fromName && !p.opts.DryRun {
		if err := p.editor.WriteCaptureTime(ctx, key, captured); err != nil {
			return p.skip(ctx, res, err)
		}
	}

	dest, adjusted, err := p.resolveDestination(ctx, key, captured, &res)
	if err != nil {
		return p.skip(ctx, res, err)
	}
	res.Destination = dest
	res.CaptureTime = adjusted

	if dest == key {
		res.State = StatePlaced
		res.AlreadyPlaced = true
		if !p.opts.DryRun {
			if err := p.store.Upsert(ctx, recordFor(key, sig, info)); err != nil {
				res.Err = err
			}
		}
		logging.WithContext(ctx, p.logger).Debug("already in place")
		return res, nil
	}

	if p.opts.DryRun {
		res.State = StatePlaced
		p.planned[dest] = struct{}{}
		logging.WithContext(ctx, p.logger).Info("placement planned",
			logging.String(logging.FieldEventType, "placement_planned"),
			logging.String(logging.FieldDestination, dest),
			logging.Int("retries", res.Retries),
			logging.Bool("dry_run", true),
		)
		return res, nil
	}

	if !adjusted.Equal(captured) {
		if err := p.editor.WriteCaptureTime(ctx, key, adjusted); err != nil {
			return p.skip(ctx, res, err)
		}
	}
	restore := func() {
		if adjusted.Equal(captured) {
			return
		}
		if err := p.editor.WriteCaptureTime(ctx, key, captured); err != nil {
			logging.WarnWithContext(logging.WithContext(ctx, p.logger), "capture time restore failed", "capture_time_restore_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "source keeps the collision-adjusted capture time"),
			)
		}
	}

	if err := p.commit(ctx, key, dest, restore); err != nil {
		return p.skip(ctx, res, err)
	}
	res.State = StatePlaced
	res.Err = p.reindex(ctx, key, dest, sig)

	logging.WithContext(ctx, p.logger).Info("photo placed",
		logging.String(logging.FieldEventType, "placed"),
		logging.String(logging.FieldDestination, dest),
		logging.Int("retries", res.Retries),
		logging.Int64("size_bytes", info.Size()),
	)
	return res, nil
}

// duplicateOf returns another live indexed path sharing the source's
// perceptual signature, or "".
func (p *Pipeline) duplicateOf(ctx context.Context, key string, sig signature.Signature) (string, error) {
	if sig.Perceptual == "" {
		return "", nil
	}
	records, err := p.store.FindBySignature(ctx, sig.Perceptual)
	if err != nil {
		return "", err
	}
	logger := logging.WithContext(ctx, p.logger)
	for _, rec := range records {
		if rec.Path == key {
			continue
		}
		exists, err := fileutil.Exists(rec.Path)
		if err != nil || !exists {
			logger.Debug("ignoring stale signature match", logging.String("match", rec.Path))
			continue
		}
		return rec.Path, nil
	}
	return "", nil
}

func (p *Pipeline) discardDuplicate(ctx context.Context, res Result, duplicateOf string) (Result, error) {
	res.DuplicateOf = duplicateOf
	trashedTo, err := p.trash.Move(ctx, res.Source)
	if err != nil {
		return p.skip(ctx, res, err)
	}
	res.State = StateDuplicateTrashed
	res.TrashedTo = trashedTo
	if trashedTo != "" {
		if _, err := p.store.Delete(ctx, res.Source); err != nil {
			res.Err = err
		}
	}
	logging.WithContext(ctx, p.logger).Info("duplicate detected",
		logging.String(logging.FieldEventType, "duplicate"),
		logging.String("duplicate_of", duplicateOf),
		logging.String("trashed_to", trashedTo),
	)
	return res, nil
}

// captureTime prefers the EXIF capture time and falls back to a timestamp
// embedded in the file name. fromName reports the fallback was used.
func (p *Pipeline) captureTime(ctx context.Context, key string) (time.Time, bool, error) {
	t, ok, err := p.editor.ReadCaptureTime(ctx, key)
	if err != nil {
		return time.Time{}, false, err
	}
	if ok {
		return t, false, nil
	}
	if t, ok := metadata.TimeFromFilename(key); ok {
		logging.WithContext(ctx, p.logger).Debug("capture time taken from file name", logging.Any("capture_time", t))
		return t, true, nil
	}
	return time.Time{}, false, services.Wrap(services.ErrValidation, "placement", "derive timestamp", key, ErrNoCaptureTime)
}

// resolveDestination probes canonical candidates one second apart until a free
// name is found or the source itself is the candidate. Names planned earlier in
// a dry run count as taken.
func (p *Pipeline) resolveDestination(ctx context.Context, key string, captured time.Time, res *Result) (string, time.Time, error) {
	base := strings.TrimSpace(p.opts.BaseDir)
	if base == "" {
		base = filepath.Dir(key)
	} else {
		normalized, err := fileutil.PathKey(base)
		if err != nil {
			return "", time.Time{}, services.Wrap(services.ErrConfiguration, "placement", "resolve base dir", base, err)
		}
		base = normalized
	}
	logger := logging.WithContext(ctx, p.logger)
	candidate := captured
	for {
		if err := ctx.Err(); err != nil {
			return "", time.Time{}, err
		}
		dest := CanonicalPath(base, candidate)
		if dest == key {
			return dest, candidate, nil
		}
		exists, err := fileutil.Exists(dest)
		if err != nil {
			return "", time.Time{}, services.Wrap(services.ErrTransient, "placement", "probe destination", dest, err)
		}
		if _, taken := p.planned[dest]; taken {
			exists = true
		}
		if !exists {
			return dest, candidate, nil
		}
		logger.Debug("destination exists; probing next second", logging.String("candidate", dest))
		res.Retries++
		if res.Retries >= p.opts.MaxProbe {
			return "", time.Time{}, services.Wrap(services.ErrValidation, "placement", "probe destination",
				fmt.Sprintf("%d candidates taken starting at %s", res.Retries, CanonicalPath(base, captured)), ErrPlacementExhausted)
		}
		candidate = candidate.Add(time.Second)
	}
}

// commit writes the audit note and moves key to dest. On failure the note is
// cleared and restore runs.
func (p *Pipeline) commit(ctx context.Context, key, dest string, restore func()) error {
	logger := logging.WithContext(ctx, p.logger)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		restore()
		return moveError("create destination dir", filepath.Dir(dest), err)
	}
	note := fmt.Sprintf("Renamed from %s to %s", key, dest)
	if err := p.editor.AppendNote(ctx, key, note); err != nil {
		restore()
		return err
	}
	copied, err := fileutil.MoveNoReplace(key, dest)
	if err != nil {
		if clearErr := p.editor.ClearNote(ctx, key); clearErr != nil {
			logging.WarnWithContext(logger, "audit note revert failed", "note_revert_failed",
				logging.Error(clearErr),
				logging.String(logging.FieldImpact, "source keeps a rename note for a move that did not happen"),
			)
		}
		restore()
		return moveError("move", key, err)
	}
	if copied {
		logger.Debug("moved across devices with verified copy", logging.String(logging.FieldDestination, dest))
	}
	return nil
}

// reindex records dest with the source's signature and drops the old row.
func (p *Pipeline) reindex(ctx context.Context, key, dest string, sig signature.Signature) error {
	info, err := os.Stat(dest)
	if err != nil {
		return services.Wrap(services.ErrTransient, "placement", "stat destination", dest, err)
	}
	if err := p.store.Upsert(ctx, recordFor(dest, sig, info)); err != nil {
		return err
	}
	if _, err := p.store.Delete(ctx, key); err != nil {
		return err
	}
	return nil
}

func (p *Pipeline) skip(ctx context.Context, res Result, err error) (Result, error) {
	res.State = StateSkipped
	res.Err = err
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return res, err
	}
	logging.WarnWithContext(logging.WithContext(ctx, p.logger), "photo skipped", "placement_skipped",
		append([]logging.Attr{
			logging.String(logging.FieldImpact, "file left where it is"),
			logging.String(logging.FieldErrorHint, skipHint(err)),
		}, logging.ErrorAttrs(err)...)...,
	)
	return res, nil
}

func skipHint(err error) string {
	switch {
	case errors.Is(err, signature.ErrCorruptMedia):
		return "verify the file opens in an image viewer"
	case errors.Is(err, ErrNoCaptureTime):
		return "set a capture time with exiftool or rename the file with its timestamp"
	case errors.Is(err, ErrPlacementExhausted):
		return "raise placement.max_probe or clean up the destination directory"
	case errors.Is(err, metadata.ErrMetadataMutation):
		return "check exiftool is installed and the file is writable"
	case errors.Is(err, ErrMove):
		return "check destination permissions and free space"
	default:
		return "rerun with --log-level debug for details"
	}
}

func recordFor(path string, sig signature.Signature, info os.FileInfo) index.Record {
	return index.Record{
		Path:        path,
		Name:        filepath.Base(path),
		ContentHash: sig.ContentHash,
		Signature:   sig.Perceptual,
		SizeBytes:   info.Size(),
		ModTime:     info.ModTime(),
	}
}
