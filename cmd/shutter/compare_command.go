package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"shutter/internal/config"
	"shutter/internal/fileutil"
	"shutter/internal/signature"
)

type compareView struct {
	Files         []compareFileView `json:"files"`
	Distance      int               `json:"distance"`
	SameContent   bool              `json:"same_content"`
	SameSignature bool              `json:"same_signature"`
}

type compareFileView struct {
	Path        string `json:"path"`
	ContentHash string `json:"content_hash"`
	Signature   string `json:"signature"`
	Indexed     bool   `json:"indexed"`
	// IndexCurrent is false when the stored signature differs from the file's.
	IndexCurrent bool   `json:"index_current"`
	IndexedAt    string `json:"indexed_at,omitempty"`
}

func newCompareCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "compare <photo> <photo>",
		Short: "Show the signatures of two photos and their perceptual distance",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, runCtx, err := ctx.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			hasher := signature.NewHasher()
			var (
				view compareView
				sigs []signature.Signature
			)
			for _, arg := range args {
				expanded, err := config.ExpandPath(arg)
				if err != nil {
					return err
				}
				key, err := fileutil.PathKey(expanded)
				if err != nil {
					return err
				}
				sig, err := hasher.SignatureOf(runCtx, key)
				if err != nil {
					return err
				}
				fv := compareFileView{Path: key, ContentHash: sig.ContentHash, Signature: sig.Perceptual}
				rec, err := s.store.Get(runCtx, key)
				if err != nil {
					return err
				}
				if rec != nil {
					fv.Indexed = true
					fv.IndexCurrent = rec.Signature == sig.Perceptual && rec.ContentHash == sig.ContentHash
					if !rec.IndexedAt.IsZero() {
						fv.IndexedAt = rec.IndexedAt.Format(time.RFC3339)
					}
				}
				view.Files = append(view.Files, fv)
				sigs = append(sigs, sig)
			}
			view.Distance, err = signature.Distance(sigs[0].Perceptual, sigs[1].Perceptual)
			if err != nil {
				return err
			}
			view.SameContent = sigs[0].ContentHash == sigs[1].ContentHash
			view.SameSignature = sigs[0].Perceptual == sigs[1].Perceptual

			if ctx.JSONMode() {
				return writeJSON(cmd, view)
			}
			printComparison(cmd, view)
			return nil
		},
	}
}

func printComparison(cmd *cobra.Command, view compareView) {
	out := cmd.OutOrStdout()
	rows := make([][]string, 0, len(view.Files))
	for _, f := range view.Files {
		indexed := yesNo(f.Indexed)
		if f.Indexed && !f.IndexCurrent {
			indexed = "stale"
		}
		rows = append(rows, []string{f.Path, f.ContentHash[:12], f.Signature, indexed})
	}
	fmt.Fprintln(out, renderTable([]string{"Path", "Content", "Signature", "Indexed"}, rows, nil))

	verdict := "different photos"
	switch {
	case view.SameContent:
		verdict = "identical files"
	case view.SameSignature:
		verdict = "duplicates"
	}
	fmt.Fprintf(out, "Hamming distance: %d (%s)\n", view.Distance, verdict)
}
