package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"shutter/internal/config"
	"shutter/internal/scanner"
	"shutter/internal/signature"
)

type scanView struct {
	Root        string     `json:"root"`
	Directories int        `json:"directories"`
	FilesSeen   int        `json:"files_seen"`
	Indexed     int        `json:"indexed"`
	CacheHits   int        `json:"cache_hits"`
	Filtered    int        `json:"filtered"`
	Corrupt     int        `json:"corrupt"`
	Errors      []pathView `json:"errors,omitempty"`
	ElapsedMS   int64      `json:"elapsed_ms"`
}

type pathView struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

func newScanCommand(ctx *commandContext) *cobra.Command {
	var (
		extensions []string
		maxDepth   int
	)

	cmd := &cobra.Command{
		Use:   "scan <dir>...",
		Short: "Index photos under one or more directories",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, runCtx, err := ctx.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			opts := scanner.Options{
				Extensions: s.cfg.Scan.Extensions,
				Filters:    s.cfg.FilterRules(),
				MaxDepth:   s.cfg.Scan.MaxDepth,
			}
			if cmd.Flags().Changed("ext") {
				opts.Extensions = extensions
			}
			if cmd.Flags().Changed("max-depth") {
				opts.MaxDepth = maxDepth
			}
			progress := newSpinner(ctx, cmd.ErrOrStderr(), "scanning")
			opts.Progress = func(string) { progress.Add() }

			sc := scanner.New(s.store, signature.NewHasher(), opts, s.logger)
			var views []scanView
			for _, arg := range args {
				root, err := config.ExpandPath(arg)
				if err != nil {
					progress.Finish()
					return err
				}
				summary, err := sc.Scan(runCtx, root)
				views = append(views, newScanView(root, summary))
				if err != nil {
					progress.Finish()
					return err
				}
			}
			progress.Finish()

			if ctx.JSONMode() {
				return writeJSON(cmd, views)
			}
			out := cmd.OutOrStdout()
			rows := make([][]string, 0, len(views))
			for _, v := range views {
				rows = append(rows, []string{
					v.Root,
					humanize.Comma(int64(v.FilesSeen)),
					humanize.Comma(int64(v.Indexed)),
					humanize.Comma(int64(v.CacheHits)),
					humanize.Comma(int64(v.Filtered)),
					humanize.Comma(int64(v.Corrupt + len(v.Errors))),
					(time.Duration(v.ElapsedMS) * time.Millisecond).String(),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Root", "Seen", "Indexed", "Cached", "Filtered", "Skipped", "Elapsed"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight},
			))
			for _, v := range views {
				for _, e := range v.Errors {
					fmt.Fprintf(out, "skipped %s: %s\n", e.Path, e.Error)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&extensions, "ext", nil, "File extensions to index (overrides scan.extensions)")
	cmd.Flags().IntVar(&maxDepth, "max-depth", 0, "Maximum directory depth below each root; 0 is unlimited")
	return cmd
}

func newScanView(root string, summary scanner.Summary) scanView {
	view := scanView{
		Root:        root,
		Directories: summary.Directories,
		FilesSeen:   summary.FilesSeen,
		Indexed:     summary.Indexed,
		CacheHits:   summary.CacheHits,
		Filtered:    summary.Filtered,
		Corrupt:     summary.Corrupt,
		ElapsedMS:   summary.Elapsed.Milliseconds(),
	}
	for _, e := range summary.Errors {
		view.Errors = append(view.Errors, pathView{Path: e.Path, Error: errorString(e.Err)})
	}
	return view
}
