package mru

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/browserup/sorcery-desktop/internal/cmdlog"
	"github.com/browserup/sorcery-desktop/internal/gitops"
	"github.com/browserup/sorcery-desktop/internal/logging"
	"github.com/browserup/sorcery-desktop/internal/settings"
)

func hasGit(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
}

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
			"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com",
		)
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, string(out))
	}
	run("init", "-q")
	run("config", "user.email", "test@example.com")
	run("config", "user.name", "test")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "file.txt"), []byte("hello\n"), 0644))
	run("add", ".")
	run("commit", "-q", "-m", "initial")
	return dir
}

func newTrackerForTest(t *testing.T, store *settings.Store) *Tracker {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	tracker, err := New(store, gitops.New(cmdlog.New()), logging.New("mru-test"))
	require.NoError(t, err)
	return tracker
}

func TestLastActive_UnknownWorkspace(t *testing.T) {
	store, err := settings.LoadFrom(filepath.Join(t.TempDir(), "settings.yaml"))
	require.NoError(t, err)
	tracker := newTrackerForTest(t, store)

	_, ok := tracker.LastActive("/nowhere")
	assert.False(t, ok)
}

func TestReflogSignal_NoGitDir(t *testing.T) {
	_, ok := reflogSignal(t.TempDir())
	assert.False(t, ok)
}

func TestReflogSignal_ReadsLastLine(t *testing.T) {
	hasGit(t)
	dir := initRepo(t)

	ts, ok := reflogSignal(dir)
	require.True(t, ok)
	assert.WithinDuration(t, time.Now(), ts, time.Hour)
}

func TestParseReflogTime(t *testing.T) {
	line := "0000000000000000000000000000000000000000 1111111111111111111111111111111111111111 test <test@example.com> 1700000000 +0000\tcommit (initial): initial"
	ts, ok := parseReflogTime(line)
	require.True(t, ok)
	assert.Equal(t, int64(1700000000), ts.Unix())
}

func TestFsSignal_UsesNewestChild(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "src"), 0750))
	old := filepath.Join(dir, "src", "old.go")
	require.NoError(t, os.WriteFile(old, []byte("x"), 0644))

	ts, ok := fsSignal(dir)
	require.True(t, ok)
	assert.WithinDuration(t, time.Now(), ts, time.Minute)
}

func TestFsSignal_MissingRoot(t *testing.T) {
	_, ok := fsSignal(filepath.Join(t.TempDir(), "missing"))
	assert.False(t, ok)
}

func TestProcessSignal_NoMatch(t *testing.T) {
	ts, ok := processSignal(t.TempDir(), []string{"/completely/unrelated"})
	assert.False(t, ok)
	assert.True(t, ts.IsZero())
}

func TestProcessSignal_Match(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(nested, 0750))

	ts, ok := processSignal(dir, []string{nested})
	require.True(t, ok)
	assert.WithinDuration(t, time.Now(), ts, time.Second)
}

func TestUncommittedSignal_NoChanges(t *testing.T) {
	hasGit(t)
	dir := initRepo(t)
	store, err := settings.LoadFrom(filepath.Join(t.TempDir(), "settings.yaml"))
	require.NoError(t, err)
	tracker := newTrackerForTest(t, store)

	_, ok := tracker.uncommittedSignal(context.Background(), dir)
	assert.False(t, ok)
}

func TestUncommittedSignal_ModifiedFile(t *testing.T) {
	hasGit(t)
	dir := initRepo(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "file.txt"), []byte("changed\n"), 0644))

	store, err := settings.LoadFrom(filepath.Join(t.TempDir(), "settings.yaml"))
	require.NoError(t, err)
	tracker := newTrackerForTest(t, store)

	ts, ok := tracker.uncommittedSignal(context.Background(), dir)
	require.True(t, ok)
	assert.WithinDuration(t, time.Now(), ts, time.Minute)
}

func TestProbeWorkspace_CombinesSignals(t *testing.T) {
	hasGit(t)
	dir := initRepo(t)
	store, err := settings.LoadFrom(filepath.Join(t.TempDir(), "settings.yaml"))
	require.NoError(t, err)
	tracker := newTrackerForTest(t, store)

	active := tracker.probeWorkspace(context.Background(), dir, nil)
	assert.False(t, active.IsZero())
}
