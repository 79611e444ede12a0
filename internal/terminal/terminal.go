// Package terminal detects an installed terminal emulator and hosts
// terminal-bound editors (vim, neovim, nano, micro, kakoune) inside
// it. Apple's Terminal.app and iTerm2 are driven by materializing a
// one-shot shell script rather than passing a command string, since
// neither exposes a direct "run this argv" launch flag.
package terminal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"golang.org/x/term"
)

// App identifies a terminal emulator.
type App string

const (
	ITerm2        App = "iterm2"
	Alacritty     App = "alacritty"
	Kitty         App = "kitty"
	WezTerm       App = "wezterm"
	Terminal      App = "terminal"
	GnomeTerminal App = "gnome-terminal"
	Konsole       App = "konsole"
	Xterm         App = "xterm"
)

// ErrNoTerminalAvailable means no terminal emulator could be found at all.
var ErrNoTerminalAvailable = errors.New("no terminal emulator available")

func appFromString(s string) (App, bool) {
	switch strings.ToLower(s) {
	case "iterm2", "iterm":
		return ITerm2, true
	case "alacritty":
		return Alacritty, true
	case "kitty":
		return Kitty, true
	case "wezterm":
		return WezTerm, true
	case "terminal":
		return Terminal, true
	case "gnome-terminal", "gnome":
		return GnomeTerminal, true
	case "konsole":
		return Konsole, true
	case "xterm":
		return Xterm, true
	default:
		return "", false
	}
}

// Detector resolves a terminal emulator preference to an installed App.
type Detector struct{}

// NewDetector builds a Detector.
func NewDetector() *Detector { return &Detector{} }

// Detect honors an explicit preference (one of the App constants,
// "auto", or empty) when that terminal is installed, otherwise walks a
// platform preference order and returns the first installed terminal.
func (d *Detector) Detect(preferred string) (App, error) {
	if preferred != "" && preferred != "auto" {
		if app, ok := appFromString(preferred); ok && d.isInstalled(app) {
			return app, nil
		}
	}

	var order []App
	if runtime.GOOS == "darwin" {
		order = []App{ITerm2, Alacritty, Kitty, WezTerm, Terminal}
	} else {
		order = []App{Alacritty, Kitty, WezTerm, GnomeTerminal, Konsole, Xterm}
	}
	for _, app := range order {
		if d.isInstalled(app) {
			return app, nil
		}
	}
	if runtime.GOOS == "darwin" {
		return Terminal, nil
	}
	return "", ErrNoTerminalAvailable
}

// AlreadyHosting reports whether the current process is already running
// interactively inside app, so a terminal-bound editor can be launched in
// place instead of spawning a new window. A non-interactive stdout (e.g.
// this process was invoked by the OS's URL-scheme handler, not from a
// shell) always reports false regardless of TERM_PROGRAM.
func (d *Detector) AlreadyHosting(app App) bool {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return false
	}
	program := strings.ToLower(os.Getenv("TERM_PROGRAM"))
	switch app {
	case ITerm2:
		return program == "iterm.app"
	case Terminal:
		return program == "apple_terminal"
	case WezTerm:
		return program == "wezterm"
	default:
		return strings.EqualFold(os.Getenv("TERMINAL"), string(app))
	}
}

func (d *Detector) isInstalled(app App) bool {
	if runtime.GOOS == "darwin" {
		bundle, ok := macBundlePath(app)
		if !ok {
			return false
		}
		info, err := os.Stat(bundle)
		return err == nil && info.IsDir()
	}
	bin, ok := linuxBinary(app)
	if !ok {
		return false
	}
	_, err := exec.LookPath(bin)
	return err == nil
}

func macBundlePath(app App) (string, bool) {
	switch app {
	case ITerm2:
		return "/Applications/iTerm.app", true
	case Alacritty:
		return "/Applications/Alacritty.app", true
	case Kitty:
		return "/Applications/kitty.app", true
	case WezTerm:
		return "/Applications/WezTerm.app", true
	case Terminal:
		return "/System/Applications/Utilities/Terminal.app", true
	default:
		return "", false
	}
}

func linuxBinary(app App) (string, bool) {
	switch app {
	case Alacritty:
		return "alacritty", true
	case Kitty:
		return "kitty", true
	case WezTerm:
		return "wezterm", true
	case GnomeTerminal:
		return "gnome-terminal", true
	case Konsole:
		return "konsole", true
	case Xterm:
		return "xterm", true
	default:
		return "", false
	}
}

// shellQuote wraps an argument in single quotes, escaping embedded
// single quotes the POSIX-portable way.
func shellQuote(arg string) string {
	return "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
}

func shellLine(argv []string) string {
	quoted := make([]string, len(argv))
	for i, a := range argv {
		quoted[i] = shellQuote(a)
	}
	return strings.Join(quoted, " ")
}

// LaunchEditor runs editorName with argv inside app.
func (d *Detector) LaunchEditor(ctx context.Context, app App, editorName string, argv []string) error {
	full := append([]string{editorName}, argv...)
	return d.LaunchCommand(ctx, app, shellLine(full))
}

// LaunchCommand runs a pre-assembled shell command line inside app.
func (d *Detector) LaunchCommand(ctx context.Context, app App, commandLine string) error {
	if runtime.GOOS == "darwin" {
		return d.launchMac(ctx, app, commandLine)
	}
	return d.launchLinux(ctx, app, commandLine)
}

func (d *Detector) launchMac(ctx context.Context, app App, commandLine string) error {
	switch app {
	case Alacritty:
		return exec.CommandContext(ctx, "open", "-a", "Alacritty", "-n", "--args", "-e", "sh", "-c", commandLine).Start()
	case Kitty:
		return exec.CommandContext(ctx, "open", "-a", "kitty", "-n", "--args", "sh", "-c", commandLine).Start()
	case WezTerm:
		return exec.CommandContext(ctx, "open", "-a", "WezTerm", "-n", "--args", "start", "sh", "-c", commandLine).Start()
	case ITerm2:
		return d.launchViaScript(ctx, "iTerm", commandLine)
	case Terminal:
		return d.launchViaScript(ctx, "Terminal", commandLine)
	default:
		return fmt.Errorf("%w: %s", ErrNoTerminalAvailable, app)
	}
}

// launchViaScript materializes a one-shot bash script and opens it
// with the named .app; used for iTerm2 and Terminal.app, neither of
// which has a direct argv launch flag. The script is intentionally left behind; cleanup is
// the OS's tmp-dir policy.
func (d *Detector) launchViaScript(ctx context.Context, appName, commandLine string) error {
	script, err := writeOneShotScript(commandLine)
	if err != nil {
		return err
	}
	return exec.CommandContext(ctx, "open", "-a", appName, script).Start()
}

func (d *Detector) launchTerminalApp(ctx context.Context, commandLine string) error {
	escaped := strings.ReplaceAll(commandLine, `"`, `\"`)
	script := fmt.Sprintf("tell application \"Terminal\"\nactivate\ndo script \"%s\"\nend tell", escaped)
	return exec.CommandContext(ctx, "osascript", "-e", script).Start()
}

func (d *Detector) launchLinux(ctx context.Context, app App, commandLine string) error {
	switch app {
	case Alacritty:
		return exec.CommandContext(ctx, "alacritty", "-e", "sh", "-c", commandLine).Start()
	case Kitty:
		return exec.CommandContext(ctx, "kitty", "sh", "-c", commandLine).Start()
	case WezTerm:
		return exec.CommandContext(ctx, "wezterm", "start", "sh", "-c", commandLine).Start()
	case GnomeTerminal:
		return exec.CommandContext(ctx, "gnome-terminal", "--", "sh", "-c", commandLine).Start()
	case Konsole:
		return exec.CommandContext(ctx, "konsole", "-e", "sh", "-c", commandLine).Start()
	case Xterm:
		return exec.CommandContext(ctx, "xterm", "-e", "sh", "-c", commandLine).Start()
	default:
		return fmt.Errorf("%w: %s", ErrNoTerminalAvailable, app)
	}
}

func writeOneShotScript(commandLine string) (string, error) {
	path := filepath.Join(os.TempDir(), fmt.Sprintf("sorcery-desktop-launch-%d.sh", time.Now().UnixNano()))
	content := "#!/bin/bash\n" + commandLine + "\n"
	if err := os.WriteFile(path, []byte(content), 0755); err != nil {
		return "", err
	}
	return path, nil
}
