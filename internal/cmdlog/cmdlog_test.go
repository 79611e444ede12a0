package cmdlog

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLog_EvictsOldestBeyondMaxEntries(t *testing.T) {
	l := New()
	for i := 0; i < maxEntries+5; i++ {
		l.LogRequest("srcuri://x", "opened", "", time.Millisecond)
	}
	all := l.GetAll()
	assert.Len(t, all, maxEntries)
}

func TestLog_GetAllReturnsInsertionOrder(t *testing.T) {
	l := New()
	l.LogRequest("srcuri://a", "opened", "", time.Millisecond)
	l.LogRequest("srcuri://b", "error", "boom", time.Millisecond)
	all := l.GetAll()
	require.Len(t, all, 2)
	assert.Equal(t, "srcuri://a", all[0].Command)
	assert.Equal(t, "srcuri://b", all[1].Command)
	assert.True(t, all[0].Success)
	assert.False(t, all[1].Success)
}

func TestOpen_MissingFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.jsonl")
	l, err := Open(path)
	require.NoError(t, err)
	assert.Empty(t, l.GetAll())
}

func TestOpen_PersistsAndReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.jsonl")
	l, err := Open(path)
	require.NoError(t, err)

	l.LogRequest("srcuri://a.go", "opened", "opened a.go", 5*time.Millisecond)
	l.LogEditorLaunch("vscode", []string{"a.go"}, true, time.Millisecond, "")

	reloaded, err := Open(path)
	require.NoError(t, err)
	all := reloaded.GetAll()
	require.Len(t, all, 2)
	assert.Equal(t, "srcuri://a.go", all[0].Command)
	assert.Equal(t, KindRequest, all[0].Kind)
	assert.Equal(t, "vscode", all[1].Command)
	assert.Equal(t, KindEditor, all[1].Kind)
}

func TestOpen_CapsReloadedEntriesAtMaxEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.jsonl")
	l, err := Open(path)
	require.NoError(t, err)
	for i := 0; i < maxEntries+10; i++ {
		l.LogRequest("srcuri://x", "opened", "", time.Millisecond)
	}

	reloaded, err := Open(path)
	require.NoError(t, err)
	assert.Len(t, reloaded.GetAll(), maxEntries)
}

func TestLogCommand_ExitCodeDrivesSuccess(t *testing.T) {
	l := New()
	l.LogCommand(KindGit, "git", []string{"status"}, "/repo", 0, "clean", "", time.Millisecond)
	l.LogCommand(KindGit, "git", []string{"bogus"}, "/repo", 1, "", "unknown command", time.Millisecond)

	all := l.GetAll()
	require.Len(t, all, 2)
	assert.True(t, all[0].Success)
	assert.False(t, all[1].Success)
}
