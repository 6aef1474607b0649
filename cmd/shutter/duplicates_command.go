package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"shutter/internal/duplicates"
	"shutter/internal/placement"
)

type duplicatesView struct {
	Groups           []groupView   `json:"groups"`
	ReclaimableBytes int64         `json:"reclaimable_bytes"`
	RedundantBytes   int64         `json:"redundant_bytes"`
	StaleRemoved     int           `json:"stale_removed"`
	Errors           []pathView    `json:"errors,omitempty"`
	Discarded        []discardView `json:"discarded,omitempty"`
}

type groupView struct {
	Signature string       `json:"signature"`
	Keep      string       `json:"keep"`
	Members   []memberView `json:"members"`
}

type memberView struct {
	Path  string `json:"path"`
	Size  int64  `json:"size_bytes"`
	Error string `json:"error,omitempty"`
}

type discardView struct {
	Path      string `json:"path"`
	TrashedTo string `json:"trashed_to,omitempty"`
	Error     string `json:"error,omitempty"`
}

func newDuplicatesCommand(ctx *commandContext) *cobra.Command {
	var (
		limit   int
		keep    string
		discard bool
		dryRun  bool
	)

	cmd := &cobra.Command{
		Use:     "duplicates",
		Aliases: []string{"dupes"},
		Short:   "List indexed photos that share a perceptual signature",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, runCtx, err := ctx.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			opts := duplicates.Options{
				MaxGroups: s.cfg.Duplicates.MaxGroups,
				DryRun:    s.cfg.Placement.DryRun || dryRun,
			}
			if cmd.Flags().Changed("limit") {
				opts.MaxGroups = limit
			}
			policy := s.cfg.Duplicates.Keep
			if cmd.Flags().Changed("keep") {
				policy = keep
			}
			if opts.Keep, err = duplicates.ParseKeepPolicy(policy); err != nil {
				return err
			}

			resolver := duplicates.New(s.store, opts, s.logger)
			report, err := resolver.Find(runCtx, s.cfg.FilterRules())
			if err != nil {
				return err
			}
			view := newDuplicatesView(report)

			if discard {
				trash := placement.NewTrash(s.cfg.Paths.TrashDir, true, opts.DryRun, s.logger)
				summary, err := resolver.Discard(runCtx, report, trash)
				for _, o := range summary.Outcomes {
					view.Discarded = append(view.Discarded, discardView{Path: o.Path, TrashedTo: o.TrashedTo, Error: errorString(o.Err)})
				}
				if err != nil {
					return err
				}
			}

			if ctx.JSONMode() {
				return writeJSON(cmd, view)
			}
			printDuplicates(cmd, view, discard, opts.DryRun)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of groups to report (overrides duplicates.max_groups)")
	cmd.Flags().StringVar(&keep, "keep", "", "Keep policy: oldest or canonical (overrides duplicates.keep)")
	cmd.Flags().BoolVar(&discard, "trash", false, "Move every copy except the kept one into paths.trash_dir")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what --trash would move without moving anything")
	return cmd
}

func newDuplicatesView(report duplicates.Report) duplicatesView {
	view := duplicatesView{
		Groups:           make([]groupView, 0, len(report.Groups)),
		ReclaimableBytes: report.ReclaimableBytes,
		RedundantBytes:   report.RedundantBytes,
		StaleRemoved:     report.StaleRemoved,
	}
	for _, g := range report.Groups {
		gv := groupView{Signature: g.Signature, Keep: g.Keep}
		for _, m := range g.Members {
			gv.Members = append(gv.Members, memberView{Path: m.Path, Size: m.Size, Error: errorString(m.Err)})
		}
		view.Groups = append(view.Groups, gv)
	}
	for _, e := range report.Errors {
		path := e.Path
		if path == "" {
			path = "signature " + e.Signature
		}
		view.Errors = append(view.Errors, pathView{Path: path, Error: errorString(e.Err)})
	}
	return view
}

func printDuplicates(cmd *cobra.Command, view duplicatesView, discard, dryRun bool) {
	out := cmd.OutOrStdout()
	if len(view.Groups) == 0 {
		fmt.Fprintln(out, "No duplicates found")
	} else {
		var rows [][]string
		for i, g := range view.Groups {
			for _, m := range g.Members {
				marker := ""
				if m.Path == g.Keep {
					marker = "keep"
				}
				size := humanize.Bytes(uint64(m.Size))
				if m.Error != "" {
					size = "?"
				}
				rows = append(rows, []string{fmt.Sprintf("%d", i+1), shortSignature(g.Signature), m.Path, size, marker})
			}
		}
		fmt.Fprintln(out, renderTable(
			[]string{"#", "Signature", "Path", "Size", "Keep"},
			rows,
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
		))
	}

	files := 0
	for _, g := range view.Groups {
		files += len(g.Members)
	}
	fmt.Fprintf(out, "%s duplicates found in %s groups (%s in duplicate files, %s reclaimable)\n",
		humanize.Comma(int64(files)),
		humanize.Comma(int64(len(view.Groups))),
		humanize.Bytes(uint64(view.ReclaimableBytes)),
		humanize.Bytes(uint64(view.RedundantBytes)),
	)
	switch {
	case view.StaleRemoved > 0 && dryRun:
		fmt.Fprintf(out, "Found %d stale index entries (kept, dry run)\n", view.StaleRemoved)
	case view.StaleRemoved > 0:
		fmt.Fprintf(out, "Removed %d stale index entries\n", view.StaleRemoved)
	}
	for _, e := range view.Errors {
		fmt.Fprintf(out, "warning: %s: %s\n", e.Path, e.Error)
	}
	if !discard {
		return
	}
	moved, planned := 0, 0
	for _, d := range view.Discarded {
		switch {
		case d.Error != "":
			fmt.Fprintf(out, "not trashed %s: %s\n", d.Path, d.Error)
		case d.TrashedTo != "":
			moved++
		default:
			planned++
		}
	}
	if dryRun {
		fmt.Fprintf(out, "Dry run: %d files would be moved to trash\n", planned)
		return
	}
	fmt.Fprintf(out, "Moved %d files to trash\n", moved)
}

func shortSignature(sig string) string {
	sig = strings.TrimPrefix(sig, "p:")
	if len(sig) > 12 {
		return sig[:12]
	}
	return sig
}
