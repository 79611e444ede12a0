package editor

import (
	"context"
	"errors"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/browserup/sorcery-desktop/internal/terminal"
)

func stubLookPath(t *testing.T, found map[string]string) {
	t.Helper()
	orig := lookPath
	lookPath = func(name string) (string, error) {
		if p, ok := found[name]; ok {
			return p, nil
		}
		return "", exec.ErrNotFound
	}
	t.Cleanup(func() { lookPath = orig })
}

func TestRegistry_RegisterGetList(t *testing.T) {
	r := &Registry{managers: map[string]Manager{}}
	r.Register(newZedManager())
	m, ok := r.Get("zed")
	require.True(t, ok)
	assert.Equal(t, "zed", m.ID())
	assert.Contains(t, r.List(), "zed")
}

func TestRegistry_GetUnknown(t *testing.T) {
	r := &Registry{managers: map[string]Manager{}}
	_, ok := r.Get("nope")
	assert.False(t, ok)
}

func TestNewRegistry_PopulatesEveryFamily(t *testing.T) {
	r := NewRegistry(terminal.NewDetector())
	for _, id := range []string{
		"vscode", "cursor", "vscodium", "roo", "windsurf",
		"idea", "webstorm", "pycharm", "phpstorm", "rubymine", "goland",
		"clion", "rider", "datagrip", "androidstudio", "fleet",
		"zed", "sublime", "xcode", "kate", "gedit", "emacs",
		"vim", "neovim", "nano", "micro", "kakoune",
	} {
		_, ok := r.Get(id)
		assert.True(t, ok, "expected %s registered", id)
	}
}

func TestZedManager_FindBinary_NotFound(t *testing.T) {
	stubLookPath(t, map[string]string{})
	z := newZedManager()
	_, err := z.FindBinary(context.Background())
	assert.True(t, errors.Is(err, ErrBinaryNotFound))
}

func TestZedManager_FindBinary_Found(t *testing.T) {
	stubLookPath(t, map[string]string{"zed": "/usr/bin/zed"})
	z := newZedManager()
	p, err := z.FindBinary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/zed", p)
}

func TestXcodeManager_SupportsFolders_False(t *testing.T) {
	x := newXcodeManager()
	assert.False(t, x.SupportsFolders())
}

func TestGeditManager_SupportsFolders_False(t *testing.T) {
	g := newGeditManager()
	assert.False(t, g.SupportsFolders())
}

func TestEmacsManager_Candidates_Unix(t *testing.T) {
	e := newEmacsManager()
	names := e.candidates()
	assert.Contains(t, names, "emacsclient")
	assert.Contains(t, names, "emacs")
}
