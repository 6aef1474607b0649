package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newIndexCommand(ctx *commandContext) *cobra.Command {
	indexCmd := &cobra.Command{
		Use:   "index",
		Short: "Index database utilities",
	}
	indexCmd.AddCommand(newIndexHealthCommand(ctx))
	return indexCmd
}

func newIndexHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check index database health (schema, integrity, columns)",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, runCtx, err := ctx.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			resp, err := s.store.CheckHealth(runCtx)
			if err != nil {
				return err
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, resp)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Database path: %s\n", resp.DBPath)
			fmt.Fprintf(out, "Lock path: %s\n", resp.LockPath)
			fmt.Fprintf(out, "Database exists: %s\n", yesNo(resp.DatabaseExists))
			fmt.Fprintf(out, "Readable: %s\n", yesNo(resp.DatabaseReadable))
			fmt.Fprintf(out, "Schema version: %s\n", resp.SchemaVersion)
			fmt.Fprintf(out, "images table present: %s\n", yesNo(resp.TableExists))
			if len(resp.ColumnsPresent) > 0 {
				cols := append([]string(nil), resp.ColumnsPresent...)
				sort.Strings(cols)
				fmt.Fprintf(out, "Columns: %s\n", strings.Join(cols, ", "))
			}
			if len(resp.MissingColumns) > 0 {
				missing := append([]string(nil), resp.MissingColumns...)
				sort.Strings(missing)
				fmt.Fprintf(out, "Missing columns: %s\n", strings.Join(missing, ", "))
			} else {
				fmt.Fprintln(out, "Missing columns: none")
			}
			fmt.Fprintf(out, "Integrity check: %s\n", yesNo(resp.IntegrityCheck))
			fmt.Fprintf(out, "Total records: %s\n", humanize.Comma(int64(resp.TotalRecords)))
			fmt.Fprintf(out, "Incomplete records: %s\n", humanize.Comma(int64(resp.IncompleteCount)))
			if resp.Error != "" {
				fmt.Fprintf(out, "Error: %s\n", resp.Error)
			}
			return nil
		},
	}
}
