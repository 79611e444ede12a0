package editor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKateManager_FindBinary(t *testing.T) {
	stubLookPath(t, map[string]string{"kate": "/usr/bin/kate"})
	k := newKateManager()
	p, err := k.FindBinary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/kate", p)
}

func TestSublimeManager_FindBinary_FallsBackToLookPath(t *testing.T) {
	stubLookPath(t, map[string]string{"subl": "/usr/bin/subl"})
	s := newSublimeManager()
	p, err := s.FindBinary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/subl", p)
}

func TestXcodeManager_FindBinary_NonDarwin(t *testing.T) {
	x := newXcodeManager()
	_, err := x.FindBinary(context.Background())
	assert.ErrorIs(t, err, ErrBinaryNotFound)
}

func TestEmacsManager_Open_NoBinaryAvailable(t *testing.T) {
	stubLookPath(t, map[string]string{})
	e := newEmacsManager()
	err := e.Open(context.Background(), "/tmp/a.go", OpenOptions{})
	assert.ErrorIs(t, err, ErrBinaryNotFound)
}

func TestPsContains_NoMatchReturnsNil(t *testing.T) {
	got := psContains(context.Background(), "definitely-not-a-running-process-xyz123")
	assert.Nil(t, got)
}
