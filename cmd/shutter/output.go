package main

import (
	"encoding/json"
	"io"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// spinner is an indeterminate progress display. A nil spinner ignores calls.
type spinner struct {
	bar *progressbar.ProgressBar
}

// newSpinner returns a spinner on w when w is a terminal and the run is
// neither silent nor in JSON mode.
func newSpinner(ctx *commandContext, w io.Writer, description string) *spinner {
	if ctx.JSONMode() || ctx.flags.silent || !isTerminal(w) {
		return nil
	}
	bar := progressbar.NewOptions64(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	return &spinner{bar: bar}
}

func (s *spinner) Add() {
	if s == nil {
		return
	}
	_ = s.bar.Add(1)
}

func (s *spinner) Finish() {
	if s == nil {
		return
	}
	_ = s.bar.Finish()
}
