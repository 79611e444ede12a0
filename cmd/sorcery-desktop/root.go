package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/browserup/sorcery-desktop/internal/activeeditor"
	"github.com/browserup/sorcery-desktop/internal/cmdlog"
	"github.com/browserup/sorcery-desktop/internal/dialogbus"
	"github.com/browserup/sorcery-desktop/internal/dispatch"
	"github.com/browserup/sorcery-desktop/internal/editor"
	"github.com/browserup/sorcery-desktop/internal/gitops"
	"github.com/browserup/sorcery-desktop/internal/logging"
	"github.com/browserup/sorcery-desktop/internal/mru"
	"github.com/browserup/sorcery-desktop/internal/protocol"
	"github.com/browserup/sorcery-desktop/internal/resolver"
	"github.com/browserup/sorcery-desktop/internal/settings"
	"github.com/browserup/sorcery-desktop/internal/terminal"
)

var rootCmd = &cobra.Command{
	Use:   "sorcery-desktop [srcuri://...]",
	Short: "Resolve srcuri:// links to files and hand them off to an editor",
	Long: `sorcery-desktop is the background half of the srcuri:// URL scheme: it
resolves a pasted link against your configured workspaces and opens the
target in whichever editor you've set up for that workspace.

Run with a single srcuri:// argument to handle one link (this is what the
OS invokes when a link is clicked). Run "sorcery-desktop serve" to keep
the workspace-activity trackers warm in the background.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}
		return runHandleURL(cmd.Context(), args[0])
	},
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "daemon", Title: "Daemon Commands:"},
		&cobra.Group{ID: "debug", Title: "Debug Commands:"},
	)
}

// configDir returns <user-config-dir>/sorcery-desktop, creating it if
// necessary.
func configDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, "sorcery-desktop")
	if err := os.MkdirAll(path, 0750); err != nil {
		return "", err
	}
	return path, nil
}

// collaborators bundles every long-lived component a subcommand might
// need, wired over the same on-disk settings store and command log.
type collaborators struct {
	store    *settings.Store
	log      *cmdlog.Log
	git      *gitops.Ops
	mru      *mru.Tracker
	tracker  *activeeditor.Tracker
	registry *editor.Registry
	resolver *resolver.Resolver
	dispatch *dispatch.Dispatcher
	dialogs  *dialogbus.Bus
	handler  *protocol.Handler
}

func buildCollaborators() (*collaborators, error) {
	logging.Init()

	store, err := settings.Load()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}

	dir, err := configDir()
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}
	cmdLog, err := cmdlog.Open(filepath.Join(dir, "cmdlog.jsonl"))
	if err != nil {
		return nil, fmt.Errorf("opening command log: %w", err)
	}

	git := gitops.New(cmdLog)

	mruTracker, err := mru.New(store, git, logging.New("mru"))
	if err != nil {
		return nil, fmt.Errorf("starting mru tracker: %w", err)
	}

	activeTracker, err := activeeditor.New(logging.New("activeeditor"))
	if err != nil {
		return nil, fmt.Errorf("starting active-editor tracker: %w", err)
	}

	registry := editor.NewRegistry(terminal.NewDetector())
	res := resolver.New(store, mruTracker)
	d := dispatch.New(store, registry, activeTracker, cmdLog)
	bus := dialogbus.New()
	handler := protocol.New(store, res, d, git, bus, cmdLog)

	return &collaborators{
		store:    store,
		log:      cmdLog,
		git:      git,
		mru:      mruTracker,
		tracker:  activeTracker,
		registry: registry,
		resolver: res,
		dispatch: d,
		dialogs:  bus,
		handler:  handler,
	}, nil
}

// loadSettingsOnly loads the settings store without standing up the
// rest of the collaborator graph, for subcommands that only touch
// configuration.
func loadSettingsOnly() (*settings.Store, error) {
	logging.Init()
	store, err := settings.Load()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	return store, nil
}

func runHandleURL(ctx context.Context, rawURL string) error {
	c, err := buildCollaborators()
	if err != nil {
		return err
	}
	result, err := c.handler.Handle(ctx, rawURL)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %s\n", result.Outcome, result.Detail)
	return nil
}
