package terminal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppFromString_KnownNames(t *testing.T) {
	app, ok := appFromString("iTerm2")
	require.True(t, ok)
	assert.Equal(t, ITerm2, app)

	app, ok = appFromString("iterm")
	require.True(t, ok)
	assert.Equal(t, ITerm2, app)
}

func TestAppFromString_Unknown(t *testing.T) {
	_, ok := appFromString("notaterminal")
	assert.False(t, ok)
}

func TestShellQuote_EscapesSingleQuotes(t *testing.T) {
	assert.Equal(t, `'it'\''s'`, shellQuote("it's"))
}

func TestShellQuote_Plain(t *testing.T) {
	assert.Equal(t, "'hello'", shellQuote("hello"))
}

func TestShellLine_JoinsQuotedArgs(t *testing.T) {
	got := shellLine([]string{"vim", "+10", "/tmp/a b.go"})
	assert.Equal(t, `'vim' '+10' '/tmp/a b.go'`, got)
}

func TestMacBundlePath_KnownAndUnknown(t *testing.T) {
	p, ok := macBundlePath(Terminal)
	require.True(t, ok)
	assert.Contains(t, p, "Terminal.app")

	_, ok = macBundlePath(GnomeTerminal)
	assert.False(t, ok)
}

func TestLinuxBinary_KnownAndUnknown(t *testing.T) {
	bin, ok := linuxBinary(Konsole)
	require.True(t, ok)
	assert.Equal(t, "konsole", bin)

	_, ok = linuxBinary(ITerm2)
	assert.False(t, ok)
}

func TestDetect_UnknownPreferenceFallsThroughToOrder(t *testing.T) {
	d := NewDetector()
	app, err := d.Detect("not-a-real-terminal")
	if err != nil {
		assert.ErrorIs(t, err, ErrNoTerminalAvailable)
		return
	}
	assert.NotEmpty(t, app)
}

func TestWriteOneShotScript_CreatesExecutableFile(t *testing.T) {
	path, err := writeOneShotScript("echo hello")
	require.NoError(t, err)
	assert.FileExists(t, path)
}
