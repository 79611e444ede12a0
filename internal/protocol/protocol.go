// Package protocol orchestrates one srcuri:// URL end to end: parse,
// resolve against configured workspaces, decide whether to dispatch
// straight to an editor or stage a dialog for the separate UI process
// to pick up, and log the outcome's classification.
package protocol

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/browserup/sorcery-desktop/internal/cmdlog"
	"github.com/browserup/sorcery-desktop/internal/dialogbus"
	"github.com/browserup/sorcery-desktop/internal/dispatch"
	"github.com/browserup/sorcery-desktop/internal/gitops"
	"github.com/browserup/sorcery-desktop/internal/resolver"
	"github.com/browserup/sorcery-desktop/internal/settings"
	"github.com/browserup/sorcery-desktop/internal/urlparser"
)

// ErrNoMatch means the requested file was not found in any configured
// workspace (and, for FullPath requests, non-workspace files are
// disallowed).
var ErrNoMatch = errors.New("file not found in any configured workspace")

// Outcome classifies how a request was resolved, used both as the
// return value and as the cmdlog classification string.
type Outcome string

const (
	OutcomeOpened         Outcome = "opened"
	OutcomeChooser        Outcome = "chooser"
	OutcomeRevisionDialog Outcome = "revision_dialog"
	OutcomeCloneDialog    Outcome = "clone_dialog"
	OutcomeBrowser        Outcome = "browser"
	OutcomeError          Outcome = "error"
)

// Result is returned from Handle; Detail carries outcome-specific
// human-readable context (the opened path, the browser URL, etc).
type Result struct {
	Outcome Outcome
	Detail  string
}

// Handler wires together the parser, resolver, dispatcher, git
// operations, dialog bus, and settings store for one process.
type Handler struct {
	store      *settings.Store
	resolver   *resolver.Resolver
	dispatcher *dispatch.Dispatcher
	git        *gitops.Ops
	dialogs    *dialogbus.Bus
	log        *cmdlog.Log
}

// New builds a Handler over its collaborators.
func New(store *settings.Store, res *resolver.Resolver, d *dispatch.Dispatcher, git *gitops.Ops, dialogs *dialogbus.Bus, log *cmdlog.Log) *Handler {
	return &Handler{store: store, resolver: res, dispatcher: d, git: git, dialogs: dialogs, log: log}
}

// Handle parses and orchestrates one srcuri:// URL, logging the result.
func (h *Handler) Handle(ctx context.Context, rawURL string) (Result, error) {
	start := time.Now()
	result, err := h.handle(ctx, rawURL)
	detail := result.Detail
	if err != nil {
		detail = err.Error()
		result.Outcome = OutcomeError
	}
	h.log.LogRequest(rawURL, string(result.Outcome), detail, time.Since(start))
	return result, err
}

func (h *Handler) handle(ctx context.Context, rawURL string) (Result, error) {
	req, err := urlparser.Parse(rawURL)
	if err != nil {
		return Result{}, fmt.Errorf("parsing srcuri url: %w", err)
	}

	switch req.Kind {
	case urlparser.KindPartialPath:
		return h.handlePartialPath(ctx, req)
	case urlparser.KindWorkspacePath:
		return h.handleWorkspacePath(ctx, req)
	case urlparser.KindFullPath:
		return h.handleFullPath(ctx, req)
	case urlparser.KindRevisionPath:
		return h.handleRevisionPath(ctx, req)
	case urlparser.KindProviderPassthrough:
		return h.handleProviderPassthrough(ctx, req)
	default:
		return Result{}, fmt.Errorf("unrecognized request kind")
	}
}

func (h *Handler) openDispatch(ctx context.Context, path string, req *urlparser.Request) (Result, error) {
	err := h.dispatcher.Open(ctx, path, dispatch.Options{Line: req.Line, Column: req.Column})
	if err != nil {
		return Result{}, fmt.Errorf("opening %s: %w", path, err)
	}
	return Result{Outcome: OutcomeOpened, Detail: path}, nil
}

func (h *Handler) showChooser(matches []resolver.Match, req *urlparser.Request) Result {
	busMatches := make([]dialogbus.WorkspaceMatch, len(matches))
	for i, m := range matches {
		busMatches[i] = dialogbus.WorkspaceMatch{
			WorkspaceName: m.WorkspaceName,
			WorkspacePath: m.WorkspacePath,
			FullFilePath:  m.FullFilePath,
		}
	}
	h.dialogs.SetWorkspaceChooser(dialogbus.WorkspaceChooserState{Matches: busMatches, Line: req.Line, Column: req.Column})
	return Result{Outcome: OutcomeChooser, Detail: fmt.Sprintf("%d matches", len(matches))}
}

func (h *Handler) handlePartialPath(ctx context.Context, req *urlparser.Request) (Result, error) {
	matches := h.resolver.FindPartialMatches(req.Path)
	switch len(matches) {
	case 0:
		return Result{}, fmt.Errorf("%w: %s", ErrNoMatch, req.Path)
	case 1:
		return h.openDispatch(ctx, matches[0].FullFilePath, req)
	default:
		matches = h.resolver.SortByRecent(matches)
		return h.showChooser(matches, req), nil
	}
}

func (h *Handler) cloneDialog(workspace, remote, filePath string, req *urlparser.Request, ref *gitops.GitRef) Result {
	s := h.store.Get()
	base := expandTilde(s.Defaults.DefaultWorkspacesFolder)
	clonePath := filepath.Join(base, workspace)

	var descriptor *dialogbus.GitRefDescriptor
	if ref != nil {
		descriptor = &dialogbus.GitRefDescriptor{Kind: refKindString(ref.Kind), Value: ref.Value}
	}

	h.dialogs.SetCloneDialog(dialogbus.CloneDialogState{
		WorkspaceName: workspace,
		ClonePath:     clonePath,
		RemoteURL:     remote,
		FilePath:      filePath,
		Line:          req.Line,
		Column:        req.Column,
		GitRef:        descriptor,
	})
	return Result{Outcome: OutcomeCloneDialog, Detail: fmt.Sprintf("clone %s to %s", remote, clonePath)}
}

func refKindString(kind gitops.GitRefKind) string {
	switch kind {
	case gitops.RefBranch:
		return "branch"
	case gitops.RefTag:
		return "tag"
	default:
		return "commit"
	}
}

func expandTilde(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

func (h *Handler) handleWorkspacePath(ctx context.Context, req *urlparser.Request) (Result, error) {
	full, err := h.resolver.FindWorkspacePath(req.Workspace, req.Path)
	if err == nil {
		return h.openDispatch(ctx, full, req)
	}
	if req.Remote != "" {
		return h.cloneDialog(req.Workspace, req.Remote, req.Path, req, nil), nil
	}
	return Result{}, err
}

func (h *Handler) handleFullPath(ctx context.Context, req *urlparser.Request) (Result, error) {
	matches := h.resolver.FindFullPathMatches(req.FullPath)
	if len(matches) == 0 {
		return Result{}, fmt.Errorf("%w: %s", ErrNoMatch, req.FullPath)
	}
	if len(matches) == 1 {
		single := matches[0]
		if isNonWorkspaceMatch(single) && !h.store.Get().Defaults.AllowNonWorkspaceFiles {
			return Result{}, fmt.Errorf("%w: %s is outside any configured workspace", ErrNoMatch, req.FullPath)
		}
		return h.openDispatch(ctx, single.FullFilePath, req)
	}
	matches = h.resolver.SortByRecent(matches)
	return h.showChooser(matches, req), nil
}

func isNonWorkspaceMatch(m resolver.Match) bool {
	return strings.HasPrefix(m.WorkspaceName, "Non-workspace")
}

func (h *Handler) handleRevisionPath(ctx context.Context, req *urlparser.Request) (Result, error) {
	full, err := h.resolver.FindWorkspacePath(req.Workspace, req.Path)
	if err != nil {
		if req.Remote != "" {
			return h.cloneDialog(req.Workspace, req.Remote, req.Path, req, req.GitRef), nil
		}
		return Result{}, err
	}

	workspaceDir := filepath.Dir(full)
	gitRoot := gitops.FindGitRoot(workspaceDir)
	if gitRoot == "" {
		return Result{}, fmt.Errorf("could not find git repository for workspace %q", req.Workspace)
	}

	rev := req.GitRef.Value
	if err := h.git.ValidateRevision(ctx, gitRoot, rev); err != nil {
		return Result{}, err
	}

	currentRef, err := h.git.CurrentRef(ctx, gitRoot)
	if err != nil {
		return Result{}, err
	}

	if gitops.ShouldSkipRevisionDialog(currentRef, rev) {
		return h.openDispatch(ctx, full, req)
	}

	status, err := h.git.WorkingTreeStatus(ctx, gitRoot)
	if err != nil {
		return Result{}, err
	}
	opState, err := h.git.CheckOpState(gitRoot)
	if err != nil {
		return Result{}, err
	}

	checkoutAvailable := true
	blockedReason := ""
	switch {
	case opState.IsBlocked:
		checkoutAvailable, blockedReason = false, opState.Reason
	case !status.IsClean:
		checkoutAvailable, blockedReason = false, fmt.Sprintf("%d modified file(s) in working tree", status.ModifiedCount)
	}

	h.dialogs.SetRevisionDialog(dialogbus.RevisionDialogState{
		Workspace:             req.Workspace,
		WorkspacePath:         gitRoot,
		FilePath:              req.Path,
		FullFilePath:          full,
		Rev:                   rev,
		Line:                  req.Line,
		Column:                req.Column,
		CurrentRef:            currentRef,
		IsWorkingTreeClean:    status.IsClean,
		DirtyFileCount:        status.ModifiedCount,
		CheckoutAvailable:     checkoutAvailable,
		CheckoutBlockedReason: blockedReason,
	})
	return Result{Outcome: OutcomeRevisionDialog, Detail: fmt.Sprintf("%s @ %s", req.Path, rev)}, nil
}

func (h *Handler) handleProviderPassthrough(ctx context.Context, req *urlparser.Request) (Result, error) {
	workspaceName := req.WorkspaceOverride
	if workspaceName == "" {
		workspaceName = req.Repo
	}

	full, err := h.resolver.FindWorkspacePath(workspaceName, req.FilePath)
	if err != nil {
		url := "https://srcuri.com/" + strings.TrimPrefix(req.ProviderPath, "/")
		if req.Fragment != "" {
			url += "#" + req.Fragment
		}
		return Result{Outcome: OutcomeBrowser, Detail: url}, nil
	}

	if req.GitRef != nil {
		remote := "https://" + req.ProviderHost
		revisionReq := &urlparser.Request{
			Kind:      urlparser.KindRevisionPath,
			Workspace: workspaceName,
			Path:      req.FilePath,
			GitRef:    req.GitRef,
			Line:      req.Line,
			Column:    req.Column,
			Remote:    remote,
		}
		return h.handleRevisionPath(ctx, revisionReq)
	}

	localReq := &urlparser.Request{Line: req.Line, Column: req.Column}
	return h.openDispatch(ctx, full, localReq)
}
