package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/browserup/sorcery-desktop/internal/discovery"
)

var discoverCmd = &cobra.Command{
	Use:     "discover",
	GroupID: "daemon",
	Short:   "Reconcile configured workspaces against the default workspaces folder",
	Long: `Scan defaults.default_workspaces_folder for git repositories, add any
not already configured as auto-discovered workspaces, and drop previously
auto-discovered workspaces that have since disappeared from disk. Workspaces
added by hand are never touched.

Example usage:
  sorcery-desktop discover
  sorcery-desktop discover --dry-run`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		store, err := loadSettingsOnly()
		if err != nil {
			return err
		}

		var result discovery.Result
		if dryRun {
			result, err = discovery.Preview(store)
		} else {
			result, err = discovery.Sync(store)
		}
		if err != nil {
			return fmt.Errorf("discovering workspaces: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(result.Added) == 0 && len(result.Removed) == 0 {
			fmt.Fprintln(out, "no changes")
		}
		for _, name := range result.Added {
			fmt.Fprintf(out, "+ %s\n", name)
		}
		for _, name := range result.Removed {
			fmt.Fprintf(out, "- %s\n", name)
		}
		if dryRun {
			fmt.Fprintln(out, "(dry run, nothing written)")
		}
		return nil
	},
}

func init() {
	discoverCmd.Flags().Bool("dry-run", false, "report the diff without writing it back")
	rootCmd.AddCommand(discoverCmd)
}
