// Package dispatch implements the editor dispatcher: given a sanitized
// path and a set of hints, it decides which editor adapter should open
// it, confirms that adapter is usable, and invokes it — logging the
// outcome through internal/cmdlog regardless of success or failure.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/browserup/sorcery-desktop/internal/activeeditor"
	"github.com/browserup/sorcery-desktop/internal/cmdlog"
	"github.com/browserup/sorcery-desktop/internal/editor"
	"github.com/browserup/sorcery-desktop/internal/sanitize"
	"github.com/browserup/sorcery-desktop/internal/settings"
)

// ErrEditorUnknown means the decided editor id has no registered adapter.
var ErrEditorUnknown = errors.New("editor not found in registry")

// ErrFolderUnsupported means the target is a directory but the chosen
// adapter's SupportsFolders() is false.
var ErrFolderUnsupported = errors.New("editor does not support opening folders")

// ErrEditorNotInstalled means the chosen adapter's IsInstalled() is false.
var ErrEditorNotInstalled = errors.New("editor is not installed")

// ErrNonWorkspaceFileDisallowed means path isn't inside any configured
// workspace and defaults.allow_non_workspace_files is false.
var ErrNonWorkspaceFileDisallowed = errors.New("file is outside any configured workspace and non-workspace files are disallowed")

// Options carries the caller's hints into Open.
type Options struct {
	Line              *int
	Column            *int
	NewWindow         bool
	EditorHint        string
	TerminalPreference string
}

// Dispatcher resolves an editor id per request and invokes the adapter.
type Dispatcher struct {
	store    *settings.Store
	registry *editor.Registry
	tracker  *activeeditor.Tracker
	log      *cmdlog.Log
}

// New builds a Dispatcher over its collaborators.
func New(store *settings.Store, registry *editor.Registry, tracker *activeeditor.Tracker, log *cmdlog.Log) *Dispatcher {
	return &Dispatcher{store: store, registry: registry, tracker: tracker, log: log}
}

// Open sanitizes rawPath, decides an editor, confirms it's usable, and
// opens the path in it. Every outcome — success or failure — is logged.
func (d *Dispatcher) Open(ctx context.Context, rawPath string, opts Options) error {
	start := time.Now()
	editorID, err := d.open(ctx, rawPath, opts)
	d.log.LogEditorLaunch(editorID, argsForLog(rawPath, opts), err == nil, time.Since(start), errMsg(err))
	return err
}

func argsForLog(path string, opts Options) []string {
	args := []string{path}
	if opts.Line != nil {
		args = append(args, fmt.Sprintf("line=%d", *opts.Line))
	}
	if opts.EditorHint != "" {
		args = append(args, "hint="+opts.EditorHint)
	}
	return args
}

func errMsg(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func (d *Dispatcher) open(ctx context.Context, rawPath string, opts Options) (editorID string, err error) {
	validated, err := sanitize.Canonicalize(rawPath)
	if err != nil {
		return "", fmt.Errorf("path validation failed: %w", err)
	}

	info, statErr := os.Stat(validated)
	isDir := statErr == nil && info.IsDir()

	editorID, err = d.determineEditor(validated, opts.EditorHint)
	if err != nil {
		return editorID, err
	}

	manager, ok := d.registry.Get(editorID)
	if !ok {
		return editorID, fmt.Errorf("%w: %q", ErrEditorUnknown, editorID)
	}

	if isDir && !manager.SupportsFolders() {
		return editorID, fmt.Errorf("%w: %s", ErrFolderUnsupported, manager.DisplayName())
	}

	if !manager.IsInstalled(ctx) {
		return editorID, fmt.Errorf("%w: %s", ErrEditorNotInstalled, manager.DisplayName())
	}

	openOpts := editor.OpenOptions{
		NewWindow:          opts.NewWindow,
		TerminalPreference: opts.TerminalPreference,
	}
	if !isDir {
		openOpts.Line = opts.Line
		openOpts.Column = opts.Column
	}

	return editorID, manager.Open(ctx, validated, openOpts)
}

// determineEditor implements the ordered policy: an explicit
// "most-recent" hint defers to the active-editor tracker; any other
// non-empty hint is used verbatim; otherwise the path's configured
// workspace editor wins; otherwise fail if the path isn't in any
// workspace and non-workspace files are disallowed; otherwise the
// global default editor.
func (d *Dispatcher) determineEditor(path, hint string) (string, error) {
	if hint != "" {
		if hint == "most-recent" {
			if recent, ok := d.tracker.MostRecentEditor(); ok {
				return recent, nil
			}
		} else {
			return hint, nil
		}
	}

	ws, inWorkspace := d.store.WorkspaceFor(path)
	if inWorkspace && ws.Editor != "" {
		return ws.Editor, nil
	}

	s := d.store.Get()
	if !inWorkspace && !s.Defaults.AllowNonWorkspaceFiles {
		return "", ErrNonWorkspaceFileDisallowed
	}

	return s.Defaults.Editor, nil
}
