package duplicates

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"shutter/internal/filters"
	"shutter/internal/index"
	"shutter/internal/logging"
	"shutter/internal/services"
)

// DefaultMaxGroups caps the signature groups returned by one Find.
const DefaultMaxGroups = 1000

// Options configures a Resolver.
type Options struct {
	MaxGroups int
	Keep      KeepPolicy
	DryRun    bool
}

// Member is one live path in a duplicate group. Err is set when the file
// exists but could not be stat'ed; its size is then unknown.
type Member struct {
	Path    string
	Size    int64
	ModTime time.Time
	Err     error
}

// Group is a set of live paths sharing a signature.
type Group struct {
	Signature string
	Members   []Member
	Keep      string
}

// Paths returns the member paths in index order.
func (g Group) Paths() []string {
	paths := make([]string, 0, len(g.Members))
	for _, m := range g.Members {
		paths = append(paths, m.Path)
	}
	return paths
}

// Redundant returns the members other than Keep.
func (g Group) Redundant() []Member {
	out := make([]Member, 0, len(g.Members))
	for _, m := range g.Members {
		if m.Path != g.Keep {
			out = append(out, m)
		}
	}
	return out
}

// GroupError records why a group was abandoned or a path could not be stat'ed.
type GroupError struct {
	Signature string
	Path      string
	Err       error
}

func (e GroupError) Error() string {
	if e.Path != "" {
		return e.Path + ": " + e.Err.Error()
	}
	return "signature " + e.Signature + ": " + e.Err.Error()
}

func (e GroupError) Unwrap() error { return e.Err }

// Report is the result of Find.
type Report struct {
	Groups []Group
	// ReclaimableBytes sums every live member of every group.
	ReclaimableBytes int64
	// RedundantBytes leaves out each group's kept member.
	RedundantBytes int64
	// StaleRemoved counts rows for missing files. In dry-run they are
	// counted but left in the index.
	StaleRemoved int
	Errors       []GroupError
}

// Resolver finds and reconciles duplicate groups in the index.
type Resolver struct {
	store  *index.Store
	opts   Options
	logger *slog.Logger
}

// New constructs a Resolver.
func New(store *index.Store, opts Options, logger *slog.Logger) *Resolver {
	if opts.MaxGroups <= 0 {
		opts.MaxGroups = DefaultMaxGroups
	}
	if opts.Keep == "" {
		opts.Keep = KeepCanonical
	}
	return &Resolver{
		store:  store,
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "duplicates"),
	}
}

// Find groups indexed files by signature, removes rows for files that are
// gone, and returns every group that still has more than one live member.
// Only the grouping query itself is fatal; a failed stale delete abandons its
// group and is reported in Report.Errors. Dry-run leaves stale rows in place.
func (r *Resolver) Find(ctx context.Context, f filters.Filters) (Report, error) {
	ctx = services.WithStage(ctx, "duplicates")
	logger := logging.WithContext(ctx, r.logger)

	var report Report
	counts, err := r.store.DuplicateSignatures(ctx, f, r.opts.MaxGroups)
	if err != nil {
		return report, err
	}
	logger.Debug("candidate signatures", logging.Int("signatures", len(counts)))

	for _, sc := range counts {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		group, ok, err := r.reconcileGroup(ctx, logger, sc.Signature, &report)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return report, err
			}
			report.Errors = append(report.Errors, GroupError{Signature: sc.Signature, Err: err})
			logging.WarnWithContext(logger, "duplicate group abandoned", "duplicate_group_failed",
				append([]logging.Attr{
					logging.String("signature", sc.Signature),
					logging.String(logging.FieldImpact, "group left out of this report"),
				}, logging.ErrorAttrs(err)...)...,
			)
			continue
		}
		if !ok {
			continue
		}
		report.Groups = append(report.Groups, group)
		for _, m := range group.Members {
			report.ReclaimableBytes += m.Size
			if m.Path != group.Keep {
				report.RedundantBytes += m.Size
			}
		}
	}

	logger.Info("duplicates found",
		logging.String(logging.FieldEventType, "duplicates_found"),
		logging.Int("duplicate_groups", len(report.Groups)),
		logging.Int("duplicate_files", report.fileCount()),
		logging.Int64("reclaimable_bytes", report.ReclaimableBytes),
		logging.Int64("redundant_bytes", report.RedundantBytes),
		logging.Int("stale_removed", report.StaleRemoved),
	)
	return report, nil
}

// reconcileGroup stats every path sharing sig. ok is false when fewer than two
// live paths remain.
func (r *Resolver) reconcileGroup(ctx context.Context, logger *slog.Logger, sig string, report *Report) (Group, bool, error) {
	paths, err := r.store.PathsBySignature(ctx, sig)
	if err != nil {
		return Group{}, false, err
	}
	group := Group{Signature: sig}
	for _, path := range paths {
		info, err := os.Stat(path)
		switch {
		case err == nil:
			group.Members = append(group.Members, Member{Path: path, Size: info.Size(), ModTime: info.ModTime()})
		case errors.Is(err, os.ErrNotExist):
			if r.opts.DryRun {
				report.StaleRemoved++
				logger.Info("stale index entry found",
					logging.String(logging.FieldEventType, "stale_found"),
					logging.String(logging.FieldSource, path),
					logging.Bool("dry_run", true),
				)
				continue
			}
			if _, delErr := r.store.Delete(ctx, path); delErr != nil {
				return Group{}, false, delErr
			}
			report.StaleRemoved++
			logger.Info("stale index entry removed",
				logging.String(logging.FieldEventType, "stale_removed"),
				logging.String(logging.FieldSource, path),
			)
		default:
			group.Members = append(group.Members, Member{Path: path, Err: err})
			report.Errors = append(report.Errors, GroupError{Signature: sig, Path: path, Err: err})
			logger.Debug("stat failed; keeping path without size", logging.String("path", path), logging.Error(err))
		}
	}
	if len(group.Members) <= 1 {
		return Group{}, false, nil
	}
	group.Keep = r.opts.Keep.choose(group.Members)
	return group, true, nil
}

func (rep Report) fileCount() int {
	n := 0
	for _, g := range rep.Groups {
		n += len(g.Members)
	}
	return n
}
