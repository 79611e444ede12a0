package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSettings(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadFrom_RepoAlias(t *testing.T) {
	dir := t.TempDir()
	wsDir := filepath.Join(dir, "project")
	require.NoError(t, os.MkdirAll(wsDir, 0755))

	path := writeSettings(t, dir, `
defaults:
  editor: vscode
repos:
  - path: `+wsDir+`
    name: project
`)

	store, err := LoadFrom(path)
	require.NoError(t, err)
	s := store.Get()
	require.Len(t, s.Workspaces, 1)
	assert.Equal(t, "project", s.Workspaces[0].Name)
	assert.Equal(t, wsDir, s.Workspaces[0].NormalizedPath)
}

func TestWorkspaceFor_PrefixMatch(t *testing.T) {
	dir := t.TempDir()
	wsDir := filepath.Join(dir, "api")
	require.NoError(t, os.MkdirAll(wsDir, 0755))
	path := writeSettings(t, dir, `
workspaces:
  - path: `+wsDir+`
    name: api
`)
	store, err := LoadFrom(path)
	require.NoError(t, err)

	ws, ok := store.WorkspaceFor(filepath.Join(wsDir, "src", "main.go"))
	require.True(t, ok)
	assert.Equal(t, "api", ws.Name)

	_, ok = store.WorkspaceFor(filepath.Join(dir, "apigen", "main.go"))
	assert.False(t, ok, "apigen must not match workspace api by string prefix")
}

func TestSave_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	store, err := LoadFrom(path)
	require.NoError(t, err)

	wsDir := filepath.Join(dir, "web")
	require.NoError(t, os.MkdirAll(wsDir, 0755))

	s := store.Get()
	s.Workspaces = append(s.Workspaces, Workspace{Path: wsDir, Name: "web"})
	require.NoError(t, store.Save(s))

	reloaded, err := LoadFrom(path)
	require.NoError(t, err)
	got := reloaded.Get()
	require.Len(t, got.Workspaces, 1)
	assert.Equal(t, "web", got.Workspaces[0].Name)
}
