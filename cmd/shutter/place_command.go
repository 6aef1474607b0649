package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"shutter/internal/config"
	"shutter/internal/placement"
	"shutter/internal/services"
	"shutter/internal/signature"
)

type placeView struct {
	Results          []placeResultView `json:"results"`
	Placed           int               `json:"placed"`
	AlreadyPlaced    int               `json:"already_placed"`
	DuplicateTrashed int               `json:"duplicate_trashed"`
	Skipped          int               `json:"skipped"`
	Retries          int               `json:"retries"`
	NeedsAttention   int               `json:"needs_attention"`
	DryRun           bool              `json:"dry_run"`
	ElapsedMS        int64             `json:"elapsed_ms"`
}

type placeResultView struct {
	Source      string `json:"source"`
	State       string `json:"state"`
	Destination string `json:"destination,omitempty"`
	CaptureTime string `json:"capture_time,omitempty"`
	Retries     int    `json:"retries,omitempty"`
	DuplicateOf string `json:"duplicate_of,omitempty"`
	TrashedTo   string `json:"trashed_to,omitempty"`
	Error       string `json:"error,omitempty"`
	ErrorKind   string `json:"error_kind,omitempty"`
}

func newPlaceCommand(ctx *commandContext) *cobra.Command {
	var (
		baseDir string
		dryRun  bool
		trash   bool
		inPlace bool
	)

	cmd := &cobra.Command{
		Use:   "place <file or dir>...",
		Short: "Rename photos into the Year/Mon/YYYY-MM-DD_HH'MM'SS.jpg layout",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if inPlace && cmd.Flags().Changed("base") {
				return fmt.Errorf("--base and --in-place are mutually exclusive")
			}
			s, runCtx, err := ctx.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			opts := placement.Options{
				BaseDir:      s.cfg.Placement.BaseDir,
				DryRun:       s.cfg.Placement.DryRun || dryRun,
				TrashEnabled: s.cfg.Placement.TrashEnabled || trash,
				TrashDir:     s.cfg.Paths.TrashDir,
				MaxProbe:     s.cfg.Placement.MaxProbe,
			}
			if cmd.Flags().Changed("base") {
				if opts.BaseDir, err = config.ExpandPath(baseDir); err != nil {
					return err
				}
			}
			if inPlace {
				opts.BaseDir = ""
			}

			paths := make([]string, 0, len(args))
			for _, arg := range args {
				expanded, err := config.ExpandPath(arg)
				if err != nil {
					return err
				}
				paths = append(paths, expanded)
			}
			sources, err := placement.CollectSources(runCtx, paths, s.cfg.Scan.Extensions)
			if err != nil {
				return err
			}

			progress := newSpinner(ctx, cmd.ErrOrStderr(), "placing")
			opts.Progress = func(placement.Result) { progress.Add() }
			pipeline := placement.New(s.store, signature.NewHasher(), s.Editor(), opts, s.logger)
			summary, err := pipeline.PlaceAll(runCtx, sources)
			progress.Finish()
			view := newPlaceView(summary, opts.DryRun)
			if err != nil {
				return err
			}

			if ctx.JSONMode() {
				return writeJSON(cmd, view)
			}
			printPlacement(cmd, view)
			return nil
		},
	}

	cmd.Flags().StringVar(&baseDir, "base", "", "Library root (overrides placement.base_dir)")
	cmd.Flags().BoolVar(&inPlace, "in-place", false, "Build the layout inside each file's own directory")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Plan and log without touching files, metadata, or the index")
	cmd.Flags().BoolVar(&trash, "trash", false, "Move duplicates into paths.trash_dir")
	return cmd
}

func newPlaceView(summary placement.BatchSummary, dryRun bool) placeView {
	view := placeView{
		Results:          make([]placeResultView, 0, len(summary.Results)),
		Placed:           summary.Placed,
		AlreadyPlaced:    summary.AlreadyPlaced,
		DuplicateTrashed: summary.DuplicateTrashed,
		Skipped:          summary.Skipped,
		Retries:          summary.Retries,
		DryRun:           dryRun,
		ElapsedMS:        summary.Elapsed.Milliseconds(),
	}
	for _, r := range summary.Results {
		rv := placeResultView{
			Source:      r.Source,
			State:       string(r.State),
			Destination: r.Destination,
			Retries:     r.Retries,
			DuplicateOf: r.DuplicateOf,
			TrashedTo:   r.TrashedTo,
			Error:       errorString(r.Err),
			ErrorKind:   services.Kind(r.Err),
		}
		if services.NeedsOperator(r.Err) {
			view.NeedsAttention++
		}
		if !r.CaptureTime.IsZero() {
			rv.CaptureTime = r.CaptureTime.Format(time.RFC3339)
		}
		view.Results = append(view.Results, rv)
	}
	return view
}

func printPlacement(cmd *cobra.Command, view placeView) {
	out := cmd.OutOrStdout()
	if len(view.Results) > 0 {
		rows := make([][]string, 0, len(view.Results))
		for _, r := range view.Results {
			detail := r.Destination
			switch {
			case r.Error != "":
				detail = r.Error
			case r.DuplicateOf != "":
				detail = "duplicate of " + r.DuplicateOf
				if r.TrashedTo != "" {
					detail += " (trashed to " + r.TrashedTo + ")"
				}
			}
			rows = append(rows, []string{r.Source, strings.ToLower(strings.ReplaceAll(r.State, "_", " ")), detail})
		}
		fmt.Fprintln(out, renderTable([]string{"Source", "Result", "Detail"}, rows, nil))
	}
	prefix := ""
	if view.DryRun {
		prefix = "Dry run: "
	}
	fmt.Fprintf(out, "%s%s placed, %s already in place, %s duplicates, %s skipped (%s probe retries)\n",
		prefix,
		humanize.Comma(int64(view.Placed)),
		humanize.Comma(int64(view.AlreadyPlaced)),
		humanize.Comma(int64(view.DuplicateTrashed)),
		humanize.Comma(int64(view.Skipped)),
		humanize.Comma(int64(view.Retries)),
	)
	if view.NeedsAttention > 0 {
		fmt.Fprintf(out, "%d skipped files need attention; retrying will not help until they are fixed\n", view.NeedsAttention)
	}
}
