package editor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
)

// zedManager covers the Zed CLI.
type zedManager struct{}

func newZedManager() *zedManager { return &zedManager{} }

func (z *zedManager) ID() string            { return "zed" }
func (z *zedManager) DisplayName() string   { return "Zed" }
func (z *zedManager) SupportsFolders() bool { return true }

func (z *zedManager) IsInstalled(ctx context.Context) bool {
	_, err := z.FindBinary(ctx)
	return err == nil
}

func (z *zedManager) FindBinary(ctx context.Context) (string, error) {
	if runtime.GOOS == "darwin" {
		if info, err := os.Stat("/usr/local/bin/zed"); err == nil && !info.IsDir() {
			return "/usr/local/bin/zed", nil
		}
	}
	if p, err := lookPath("zed"); err == nil {
		return p, nil
	}
	return "", ErrBinaryNotFound
}

func (z *zedManager) Open(ctx context.Context, path string, opts OpenOptions) error {
	binary, err := z.FindBinary(ctx)
	if err != nil {
		return err
	}
	target := path
	if opts.Line != nil {
		target = fmt.Sprintf("%s:%d", path, *opts.Line)
	}
	if err := exec.CommandContext(ctx, binary, target).Start(); err != nil {
		return fmt.Errorf("launch Zed: %w", err)
	}
	return nil
}

func (z *zedManager) RunningInstances(ctx context.Context) []Instance {
	return psContains(ctx, "zed")
}

// sublimeManager covers Sublime Text's "subl" CLI.
type sublimeManager struct{}

func newSublimeManager() *sublimeManager { return &sublimeManager{} }

func (s *sublimeManager) ID() string            { return "sublime" }
func (s *sublimeManager) DisplayName() string   { return "Sublime Text" }
func (s *sublimeManager) SupportsFolders() bool { return true }

func (s *sublimeManager) IsInstalled(ctx context.Context) bool {
	_, err := s.FindBinary(ctx)
	return err == nil
}

func (s *sublimeManager) FindBinary(ctx context.Context) (string, error) {
	var candidates []string
	switch runtime.GOOS {
	case "darwin":
		candidates = []string{"/Applications/Sublime Text.app/Contents/SharedSupport/bin/subl", "/usr/local/bin/subl"}
	case "windows":
		candidates = []string{`C:\Program Files\Sublime Text\subl.exe`}
	default:
		candidates = []string{"/usr/local/bin/subl", "/usr/bin/subl", "/snap/bin/subl"}
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c, nil
		}
	}
	if p, err := lookPath("subl"); err == nil {
		return p, nil
	}
	return "", ErrBinaryNotFound
}

func (s *sublimeManager) Open(ctx context.Context, path string, opts OpenOptions) error {
	binary, err := s.FindBinary(ctx)
	if err != nil {
		return err
	}
	target := path
	if opts.Line != nil {
		target = fmt.Sprintf("%s:%d", path, *opts.Line)
		if opts.Column != nil {
			target = fmt.Sprintf("%s:%d", target, *opts.Column)
		}
	}
	if err := exec.CommandContext(ctx, binary, target).Start(); err != nil {
		return fmt.Errorf("launch Sublime Text: %w", err)
	}
	return nil
}

func (s *sublimeManager) RunningInstances(ctx context.Context) []Instance {
	return psContains(ctx, "sublime")
}

// xcodeManager is available on Apple platforms only; FindBinary
// reports not-found unconditionally elsewhere.
type xcodeManager struct{}

func newXcodeManager() *xcodeManager { return &xcodeManager{} }

func (x *xcodeManager) ID() string            { return "xcode" }
func (x *xcodeManager) DisplayName() string   { return "Xcode" }
func (x *xcodeManager) SupportsFolders() bool { return false }

func (x *xcodeManager) IsInstalled(ctx context.Context) bool {
	_, err := x.FindBinary(ctx)
	return err == nil
}

func (x *xcodeManager) FindBinary(ctx context.Context) (string, error) {
	if runtime.GOOS != "darwin" {
		return "", ErrBinaryNotFound
	}
	const xcodePath = "/Applications/Xcode.app/Contents/MacOS/Xcode"
	if info, err := os.Stat(xcodePath); err == nil && !info.IsDir() {
		return xcodePath, nil
	}
	return "", ErrBinaryNotFound
}

func (x *xcodeManager) Open(ctx context.Context, path string, _ OpenOptions) error {
	if _, err := x.FindBinary(ctx); err != nil {
		return err
	}
	if err := exec.CommandContext(ctx, "open", "-a", "Xcode", path).Start(); err != nil {
		return fmt.Errorf("launch Xcode: %w", err)
	}
	return nil
}

func (x *xcodeManager) RunningInstances(ctx context.Context) []Instance { return nil }

// kateManager covers KDE's Kate editor.
type kateManager struct{}

func newKateManager() *kateManager { return &kateManager{} }

func (k *kateManager) ID() string            { return "kate" }
func (k *kateManager) DisplayName() string   { return "Kate" }
func (k *kateManager) SupportsFolders() bool { return true }

func (k *kateManager) IsInstalled(ctx context.Context) bool {
	_, err := k.FindBinary(ctx)
	return err == nil
}

func (k *kateManager) FindBinary(ctx context.Context) (string, error) {
	if p, err := lookPath("kate"); err == nil {
		return p, nil
	}
	return "", ErrBinaryNotFound
}

func (k *kateManager) Open(ctx context.Context, path string, opts OpenOptions) error {
	binary, err := k.FindBinary(ctx)
	if err != nil {
		return err
	}
	args := []string{}
	if opts.Line != nil {
		args = append(args, "-l", strconv.Itoa(*opts.Line))
		if opts.Column != nil {
			args = append(args, "-c", strconv.Itoa(*opts.Column))
		}
	}
	args = append(args, "-u", path)
	if err := exec.CommandContext(ctx, binary, args...).Start(); err != nil {
		return fmt.Errorf("launch Kate: %w", err)
	}
	return nil
}

func (k *kateManager) RunningInstances(ctx context.Context) []Instance {
	return psContains(ctx, "kate")
}

// geditManager covers GNOME's gedit, which has no folder support.
type geditManager struct{}

func newGeditManager() *geditManager { return &geditManager{} }

func (g *geditManager) ID() string            { return "gedit" }
func (g *geditManager) DisplayName() string   { return "gedit" }
func (g *geditManager) SupportsFolders() bool { return false }

func (g *geditManager) IsInstalled(ctx context.Context) bool {
	_, err := g.FindBinary(ctx)
	return err == nil
}

func (g *geditManager) FindBinary(ctx context.Context) (string, error) {
	if p, err := lookPath("gedit"); err == nil {
		return p, nil
	}
	return "", ErrBinaryNotFound
}

func (g *geditManager) Open(ctx context.Context, path string, opts OpenOptions) error {
	binary, err := g.FindBinary(ctx)
	if err != nil {
		return err
	}
	var args []string
	if opts.Line != nil {
		args = append(args, fmt.Sprintf("+%d", *opts.Line))
	}
	args = append(args, path)
	if err := exec.CommandContext(ctx, binary, args...).Start(); err != nil {
		return fmt.Errorf("launch gedit: %w", err)
	}
	return nil
}

func (g *geditManager) RunningInstances(ctx context.Context) []Instance {
	return psContains(ctx, "gedit")
}

// emacsManager prefers emacsclient (reusing a running daemon) and
// falls through to runemacs/emacs; each fallback replaces the
// previous attempt if spawn fails.
type emacsManager struct{}

func newEmacsManager() *emacsManager { return &emacsManager{} }

func (e *emacsManager) ID() string            { return "emacs" }
func (e *emacsManager) DisplayName() string   { return "Emacs" }
func (e *emacsManager) SupportsFolders() bool { return true }

func (e *emacsManager) IsInstalled(ctx context.Context) bool {
	_, err := e.FindBinary(ctx)
	return err == nil
}

func (e *emacsManager) candidates() []string {
	if runtime.GOOS == "windows" {
		return []string{"emacsclientw", "emacsclient", "runemacs", "emacs"}
	}
	return []string{"emacsclient", "emacs"}
}

func (e *emacsManager) FindBinary(ctx context.Context) (string, error) {
	for _, name := range e.candidates() {
		if p, err := lookPath(name); err == nil {
			return p, nil
		}
	}
	return "", ErrBinaryNotFound
}

func (e *emacsManager) Open(ctx context.Context, path string, opts OpenOptions) error {
	locSuffix := ""
	if opts.Line != nil {
		locSuffix = "+" + strconv.Itoa(*opts.Line)
		if opts.Column != nil {
			locSuffix = fmt.Sprintf("%s:%d", locSuffix, *opts.Column)
		}
	}

	var lastErr error
	for _, name := range e.candidates() {
		binary, err := lookPath(name)
		if err != nil {
			continue
		}
		var args []string
		if strings.Contains(name, "emacsclient") {
			args = append(args, "-n")
		}
		if locSuffix != "" {
			args = append(args, locSuffix)
		}
		args = append(args, path)
		if err := exec.CommandContext(ctx, binary, args...).Start(); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	if lastErr == nil {
		return ErrBinaryNotFound
	}
	return fmt.Errorf("launch Emacs: %w", lastErr)
}

func (e *emacsManager) RunningInstances(ctx context.Context) []Instance {
	return psContains(ctx, "emacs")
}

// psContains is the shared Linux/macOS "ps aux | grep" style
// best-effort running-instance probe used by most adapters.
func psContains(ctx context.Context, substr string) []Instance {
	if runtime.GOOS == "windows" {
		return nil
	}
	out, err := exec.CommandContext(ctx, "ps", "aux").Output()
	if err != nil {
		return nil
	}
	if strings.Contains(strings.ToLower(string(out)), substr) {
		return []Instance{{Workspace: "detected (workspace unknown)"}}
	}
	return nil
}
