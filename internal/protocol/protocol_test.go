package protocol

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/browserup/sorcery-desktop/internal/activeeditor"
	"github.com/browserup/sorcery-desktop/internal/cmdlog"
	"github.com/browserup/sorcery-desktop/internal/dialogbus"
	"github.com/browserup/sorcery-desktop/internal/dispatch"
	"github.com/browserup/sorcery-desktop/internal/editor"
	"github.com/browserup/sorcery-desktop/internal/gitops"
	"github.com/browserup/sorcery-desktop/internal/logging"
	"github.com/browserup/sorcery-desktop/internal/mru"
	"github.com/browserup/sorcery-desktop/internal/resolver"
	"github.com/browserup/sorcery-desktop/internal/settings"
	"github.com/browserup/sorcery-desktop/internal/terminal"
)

type fakeManager struct {
	id         string
	openedPath string
}

func (f *fakeManager) ID() string                                     { return f.id }
func (f *fakeManager) DisplayName() string                            { return f.id }
func (f *fakeManager) SupportsFolders() bool                          { return true }
func (f *fakeManager) IsInstalled(ctx context.Context) bool           { return true }
func (f *fakeManager) FindBinary(ctx context.Context) (string, error) { return "/bin/" + f.id, nil }
func (f *fakeManager) RunningInstances(ctx context.Context) []editor.Instance { return nil }
func (f *fakeManager) Open(ctx context.Context, path string, opts editor.OpenOptions) error {
	f.openedPath = path
	return nil
}

func hasGit(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
}

func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
		"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com",
	)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))
}

func initRepoWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	runGit(t, dir, "init", "-q")
	runGit(t, dir, "config", "user.email", "test@example.com")
	runGit(t, dir, "config", "user.name", "test")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("package a\n"), 0644))
	runGit(t, dir, "add", ".")
	runGit(t, dir, "commit", "-q", "-m", "initial")
	runGit(t, dir, "branch", "-M", "main")
	return dir
}

type testHarness struct {
	handler *Handler
	store   *settings.Store
	fake    *fakeManager
}

func newHarness(t *testing.T, ws []settings.Workspace, defaults settings.Defaults) *testHarness {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	dir := t.TempDir()
	store, err := settings.LoadFrom(filepath.Join(dir, "settings.yaml"))
	require.NoError(t, err)
	s := store.Get()
	s.Workspaces = ws
	s.Defaults = defaults
	require.NoError(t, store.Save(s))

	fake := &fakeManager{id: "fake"}
	registry := editor.NewRegistry(terminal.NewDetector())
	registry.Register(fake)

	tracker, err := activeeditor.New(logging.New("protocol-test"))
	require.NoError(t, err)

	log := cmdlog.New()
	git := gitops.New(log)
	mruTracker, err := mru.New(store, git, logging.New("protocol-test-mru"))
	require.NoError(t, err)
	d := dispatch.New(store, registry, tracker, log)
	res := resolver.New(store, mruTracker)
	bus := dialogbus.New()

	return &testHarness{handler: New(store, res, d, git, bus, log), store: store, fake: fake}
}

func TestHandlePartialPath_SingleMatchOpens(t *testing.T) {
	ws := initRepoWorkspace(t)
	h := newHarness(t, []settings.Workspace{{Path: ws, NormalizedPath: ws, Editor: "fake"}}, settings.Defaults{Editor: "fake"})

	result, err := h.handler.Handle(context.Background(), "srcuri://a.go")
	require.NoError(t, err)
	assert.Equal(t, OutcomeOpened, result.Outcome)
	assert.Equal(t, filepath.Join(ws, "a.go"), h.fake.openedPath)
}

func TestHandlePartialPath_NoMatchErrors(t *testing.T) {
	ws := initRepoWorkspace(t)
	h := newHarness(t, []settings.Workspace{{Path: ws, NormalizedPath: ws, Editor: "fake"}}, settings.Defaults{Editor: "fake"})

	_, err := h.handler.Handle(context.Background(), "srcuri://missing.go")
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestHandlePartialPath_MultipleMatchesShowsChooser(t *testing.T) {
	wsA := initRepoWorkspace(t)
	wsB := initRepoWorkspace(t)
	h := newHarness(t, []settings.Workspace{
		{Path: wsA, NormalizedPath: wsA, Editor: "fake"},
		{Path: wsB, NormalizedPath: wsB, Editor: "fake"},
	}, settings.Defaults{Editor: "fake"})

	result, err := h.handler.Handle(context.Background(), "srcuri://a.go")
	require.NoError(t, err)
	assert.Equal(t, OutcomeChooser, result.Outcome)

	staged, ok := h.handler.dialogs.WorkspaceChooser()
	require.True(t, ok)
	assert.Len(t, staged.Matches, 2)
}

func TestHandleWorkspacePath_FoundOpens(t *testing.T) {
	ws := initRepoWorkspace(t)
	h := newHarness(t, []settings.Workspace{{Path: ws, Name: "myws", NormalizedPath: ws, Editor: "fake"}}, settings.Defaults{})

	result, err := h.handler.Handle(context.Background(), "srcuri://myws/a.go")
	require.NoError(t, err)
	assert.Equal(t, OutcomeOpened, result.Outcome)
}

func TestHandleWorkspacePath_MissingWithRemoteShowsCloneDialog(t *testing.T) {
	h := newHarness(t, nil, settings.Defaults{DefaultWorkspacesFolder: "/tmp/workspaces"})

	result, err := h.handler.Handle(context.Background(), "srcuri://unknown/a.go?remote=https://example.com/org/unknown.git")
	require.NoError(t, err)
	assert.Equal(t, OutcomeCloneDialog, result.Outcome)

	staged, ok := h.handler.dialogs.CloneDialog()
	require.True(t, ok)
	assert.Equal(t, "unknown", staged.WorkspaceName)
	assert.Equal(t, "https://example.com/org/unknown.git", staged.RemoteURL)
}

func TestHandleWorkspacePath_MissingWithoutRemoteErrors(t *testing.T) {
	h := newHarness(t, nil, settings.Defaults{})

	_, err := h.handler.Handle(context.Background(), "srcuri://unknown/a.go")
	assert.Error(t, err)
}

func TestHandleFullPath_InsideWorkspaceOpens(t *testing.T) {
	ws := initRepoWorkspace(t)
	h := newHarness(t, []settings.Workspace{{Path: ws, NormalizedPath: ws, Editor: "fake"}}, settings.Defaults{})

	result, err := h.handler.Handle(context.Background(), fmt.Sprintf("srcuri://%s", filepath.Join(ws, "a.go")))
	require.NoError(t, err)
	assert.Equal(t, OutcomeOpened, result.Outcome)
}

func TestHandleFullPath_NonWorkspaceDisallowedErrors(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "loose.go")
	require.NoError(t, os.WriteFile(file, []byte("package a\n"), 0644))
	h := newHarness(t, nil, settings.Defaults{AllowNonWorkspaceFiles: false})

	_, err := h.handler.Handle(context.Background(), "srcuri://"+file)
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestHandleFullPath_NonWorkspaceAllowedOpens(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "loose.go")
	require.NoError(t, os.WriteFile(file, []byte("package a\n"), 0644))
	h := newHarness(t, nil, settings.Defaults{Editor: "fake", AllowNonWorkspaceFiles: true})

	result, err := h.handler.Handle(context.Background(), "srcuri://"+file)
	require.NoError(t, err)
	assert.Equal(t, OutcomeOpened, result.Outcome)
}

func TestHandleRevisionPath_SameRefOpensDirectly(t *testing.T) {
	hasGit(t)
	ws := initRepoWorkspace(t)
	h := newHarness(t, []settings.Workspace{{Path: ws, Name: "myws", NormalizedPath: ws, Editor: "fake"}}, settings.Defaults{})

	result, err := h.handler.Handle(context.Background(), "srcuri://myws/a.go?branch=main")
	require.NoError(t, err)
	assert.Equal(t, OutcomeOpened, result.Outcome)
}

func TestHandleRevisionPath_DifferentRefOnCleanTreeShowsDialog(t *testing.T) {
	hasGit(t)
	ws := initRepoWorkspace(t)
	runGit(t, ws, "branch", "feature")
	h := newHarness(t, []settings.Workspace{{Path: ws, Name: "myws", NormalizedPath: ws, Editor: "fake"}}, settings.Defaults{})

	result, err := h.handler.Handle(context.Background(), "srcuri://myws/a.go?branch=feature")
	require.NoError(t, err)
	assert.Equal(t, OutcomeRevisionDialog, result.Outcome)

	staged, ok := h.handler.dialogs.RevisionDialog()
	require.True(t, ok)
	assert.True(t, staged.CheckoutAvailable)
	assert.True(t, staged.IsWorkingTreeClean)
}

func TestHandleRevisionPath_DirtyTreeBlocksCheckout(t *testing.T) {
	hasGit(t)
	ws := initRepoWorkspace(t)
	runGit(t, ws, "branch", "feature")
	require.NoError(t, os.WriteFile(filepath.Join(ws, "a.go"), []byte("package a\n\nvar x int\n"), 0644))
	h := newHarness(t, []settings.Workspace{{Path: ws, Name: "myws", NormalizedPath: ws, Editor: "fake"}}, settings.Defaults{})

	result, err := h.handler.Handle(context.Background(), "srcuri://myws/a.go?branch=feature")
	require.NoError(t, err)
	assert.Equal(t, OutcomeRevisionDialog, result.Outcome)

	staged, ok := h.handler.dialogs.RevisionDialog()
	require.True(t, ok)
	assert.False(t, staged.CheckoutAvailable)
	assert.Contains(t, staged.CheckoutBlockedReason, "modified file")
}

func TestHandleProviderPassthrough_UnresolvedOpensBrowser(t *testing.T) {
	h := newHarness(t, nil, settings.Defaults{})

	result, err := h.handler.Handle(context.Background(), "srcuri://github.com/acme/widgets/blob/main/README.md")
	require.NoError(t, err)
	assert.Equal(t, OutcomeBrowser, result.Outcome)
	assert.Contains(t, result.Detail, "https://srcuri.com/")
}

func TestHandleProviderPassthrough_ResolvedWithoutRefOpensDirectly(t *testing.T) {
	ws := initRepoWorkspace(t)
	h := newHarness(t, []settings.Workspace{{Path: ws, Name: "widgets", NormalizedPath: ws, Editor: "fake"}}, settings.Defaults{})

	result, err := h.handler.Handle(context.Background(), "srcuri://sourcehut.org/acme/widgets")
	require.NoError(t, err)
	assert.Equal(t, OutcomeOpened, result.Outcome)
}

func TestHandleProviderPassthrough_ResolvedWithRefDelegatesToRevisionDialog(t *testing.T) {
	hasGit(t)
	ws := initRepoWorkspace(t)
	runGit(t, ws, "branch", "feature")
	h := newHarness(t, []settings.Workspace{{Path: ws, Name: "widgets", NormalizedPath: ws, Editor: "fake"}}, settings.Defaults{})

	result, err := h.handler.Handle(context.Background(), "srcuri://github.com/acme/widgets/blob/feature/a.go")
	require.NoError(t, err)
	assert.Equal(t, OutcomeRevisionDialog, result.Outcome)

	staged, ok := h.handler.dialogs.RevisionDialog()
	require.True(t, ok)
	assert.Equal(t, "feature", staged.Rev)
}

func TestHandleInvalidURL(t *testing.T) {
	h := newHarness(t, nil, settings.Defaults{})

	_, err := h.handler.Handle(context.Background(), "not-a-srcuri-url")
	assert.Error(t, err)
}
