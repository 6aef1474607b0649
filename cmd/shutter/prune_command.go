package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"shutter/internal/duplicates"
)

type pruneView struct {
	Checked   int        `json:"checked"`
	Removed   int        `json:"removed"`
	Errors    []pathView `json:"errors,omitempty"`
	DryRun    bool       `json:"dry_run"`
	ElapsedMS int64      `json:"elapsed_ms"`
}

func newPruneCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove index entries whose files no longer exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, runCtx, err := ctx.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			opts := duplicates.Options{DryRun: s.cfg.Placement.DryRun || dryRun}
			summary, err := duplicates.New(s.store, opts, s.logger).Prune(runCtx)
			if err != nil {
				return err
			}
			view := pruneView{
				Checked:   summary.Checked,
				Removed:   summary.Removed,
				DryRun:    opts.DryRun,
				ElapsedMS: summary.Elapsed.Milliseconds(),
			}
			for _, e := range summary.Errors {
				view.Errors = append(view.Errors, pathView{Path: e.Path, Error: errorString(e.Err)})
			}

			if ctx.JSONMode() {
				return writeJSON(cmd, view)
			}
			out := cmd.OutOrStdout()
			verb := "Removed"
			if view.DryRun {
				verb = "Would remove"
			}
			fmt.Fprintf(out, "Checked %d entries. %s %d stale entries.\n", view.Checked, verb, view.Removed)
			for _, e := range view.Errors {
				fmt.Fprintf(out, "warning: %s: %s\n", e.Path, e.Error)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Count stale entries without deleting them")
	return cmd
}
