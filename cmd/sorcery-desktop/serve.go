package main

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/browserup/sorcery-desktop/internal/logging"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	GroupID: "daemon",
	Short:   "Run the workspace-activity trackers in the background",
	Long: `Keep the active-editor and workspace-recency trackers running until
interrupted. This is the long-lived half of the service: the process the OS's
protocol-handler registration invokes per srcuri:// click stays short-lived
and one-shot, but these two trackers poll continuously so their persisted
snapshots stay fresh for the next click to read.

Example usage:
  sorcery-desktop serve`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := buildCollaborators()
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		watchLog := logging.New("settings-watch")
		if err := c.store.Watch(func() { watchLog.Printf("settings.yaml changed, reloaded") }); err != nil {
			watchLog.Printf("could not watch settings.yaml for changes: %v", err)
		}

		var wg sync.WaitGroup
		wg.Add(2)
		go func() { defer wg.Done(); c.tracker.Run(ctx) }()
		go func() { defer wg.Done(); c.mru.Run(ctx) }()

		fmt.Println("sorcery-desktop serve: trackers running, press Ctrl+C to stop")
		<-ctx.Done()
		fmt.Println("\nshutting down trackers...")
		wg.Wait()
		return c.store.StopWatch()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
