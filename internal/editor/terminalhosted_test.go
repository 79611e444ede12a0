package editor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/browserup/sorcery-desktop/internal/terminal"
)

func TestVimStyleArgs_NoLocation(t *testing.T) {
	assert.Equal(t, []string{"/tmp/a.go"}, vimStyleArgs("/tmp/a.go", OpenOptions{}))
}

func TestVimStyleArgs_LineOnly(t *testing.T) {
	line := 12
	assert.Equal(t, []string{"+12", "/tmp/a.go"}, vimStyleArgs("/tmp/a.go", OpenOptions{Line: &line}))
}

func TestVimStyleArgs_LineAndColumn(t *testing.T) {
	line, col := 12, 4
	assert.Equal(t, []string{"-c", "call cursor(12,4)", "/tmp/a.go"}, vimStyleArgs("/tmp/a.go", OpenOptions{Line: &line, Column: &col}))
}

func TestNanoManager_ArgsFor(t *testing.T) {
	n := newNanoManager(terminal.NewDetector())
	line, col := 3, 8
	assert.Equal(t, []string{"+3,8", "/tmp/a.go"}, n.argsFor("/tmp/a.go", OpenOptions{Line: &line, Column: &col}))
	assert.Equal(t, []string{"/tmp/a.go"}, n.argsFor("/tmp/a.go", OpenOptions{}))
}

func TestMicroManager_ArgsFor(t *testing.T) {
	m := newMicroManager(terminal.NewDetector())
	line := 9
	assert.Equal(t, []string{"/tmp/a.go:9"}, m.argsFor("/tmp/a.go", OpenOptions{Line: &line}))
}

func TestKakouneManager_ArgsFor(t *testing.T) {
	k := newKakouneManager(terminal.NewDetector())
	line := 9
	assert.Equal(t, []string{"+9:1", "/tmp/a.go"}, k.argsFor("/tmp/a.go", OpenOptions{Line: &line}))
}

func TestTermHosted_FindBinary_FallsBackToLookPath(t *testing.T) {
	stubLookPath(t, map[string]string{"vim": "/usr/bin/vim"})
	v := newVimManager(terminal.NewDetector())
	p, err := v.FindBinary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/vim", p)
}

func TestTermHosted_FindBinary_NotFound(t *testing.T) {
	stubLookPath(t, map[string]string{})
	v := newVimManager(terminal.NewDetector())
	_, err := v.FindBinary(context.Background())
	assert.ErrorIs(t, err, ErrBinaryNotFound)
}

func TestIsSocket_RegularFileIsNotSocket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notasocket")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.False(t, isSocket(info))
}

func TestGatherNvimSockets_NoMatches(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "unrelated.txt"), []byte("x"), 0644))
	sockets := gatherNvimSockets()
	assert.Empty(t, sockets)
}

func TestNeovimManager_FindSocket_NoneAvailable(t *testing.T) {
	t.Setenv("TMPDIR", t.TempDir())
	n := newNeovimManager(terminal.NewDetector())
	_, ok := n.findSocket(context.Background(), "/usr/bin/nvim", "/tmp/a.go")
	assert.False(t, ok)
}

func TestSearchDirForSockets_RespectsMaxDepth(t *testing.T) {
	root := t.TempDir()
	deep := filepath.Join(root, "a", "b", "c")
	require.NoError(t, os.MkdirAll(deep, 0755))

	var sockets []string
	searchDirForSockets(root, &sockets, 0, 2)
	assert.Empty(t, sockets)
}
