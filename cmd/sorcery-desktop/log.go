package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/browserup/sorcery-desktop/internal/cmdlog"
)

var logCmd = &cobra.Command{
	Use:     "log",
	GroupID: "debug",
	Short:   "Dump the last 30 recorded git/editor/request operations",
	Long: `Print the command log: the bounded ring of the most recent git shell-outs,
editor launch attempts, and srcuri:// request outcomes, in the order they
happened. Backed by a JSONL file so entries survive across the short-lived
per-URL processes that write them.

Example usage:
  sorcery-desktop log
  sorcery-desktop log --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		dir, err := configDir()
		if err != nil {
			return fmt.Errorf("resolving config dir: %w", err)
		}
		l, err := cmdlog.Open(filepath.Join(dir, "cmdlog.jsonl"))
		if err != nil {
			return fmt.Errorf("opening command log: %w", err)
		}
		entries := l.GetAll()

		out := cmd.OutOrStdout()
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		}

		if len(entries) == 0 {
			fmt.Fprintln(out, "no entries")
			return nil
		}
		for _, e := range entries {
			status := "ok"
			if !e.Success {
				status = "FAIL"
			}
			fmt.Fprintf(out, "%s [%s] %-7s %s  (%s, %s)\n",
				e.Timestamp.Format("15:04:05"), status, e.Kind, e.Command, e.Duration, joinArgs(e.Args))
		}
		return nil
	},
}

func joinArgs(args []string) string {
	if len(args) == 0 {
		return "no args"
	}
	out := args[0]
	for _, a := range args[1:] {
		out += " " + a
	}
	return out
}

func init() {
	logCmd.Flags().Bool("json", false, "output as JSON")
	rootCmd.AddCommand(logCmd)
}
