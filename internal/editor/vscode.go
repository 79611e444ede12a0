package editor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// vscodeFamily covers every editor built on the VS Code CLI
// conventions: Code, Codium, Cursor, Windsurf and Roo Code.
type vscodeFamily struct {
	id, displayName, cliName, macAppName string
}

func newVSCodeFamily(id, display, cli, macApp string) *vscodeFamily {
	return &vscodeFamily{id: id, displayName: display, cliName: cli, macAppName: macApp}
}

func (v *vscodeFamily) ID() string             { return v.id }
func (v *vscodeFamily) DisplayName() string    { return v.displayName }
func (v *vscodeFamily) SupportsFolders() bool  { return true }

func (v *vscodeFamily) IsInstalled(ctx context.Context) bool {
	_, err := v.FindBinary(ctx)
	return err == nil
}

func (v *vscodeFamily) FindBinary(ctx context.Context) (string, error) {
	var candidates []string
	switch runtime.GOOS {
	case "darwin":
		candidates = []string{
			fmt.Sprintf("/Applications/%s.app/Contents/Resources/app/bin/%s", v.macAppName, v.cliName),
			"/usr/local/bin/" + v.cliName,
			"/opt/homebrew/bin/" + v.cliName,
		}
	case "windows":
		candidates = []string{
			fmt.Sprintf(`C:\Program Files\%s\bin\%s.cmd`, v.macAppName, v.cliName),
			fmt.Sprintf(`C:\Program Files (x86)\%s\bin\%s.cmd`, v.macAppName, v.cliName),
		}
	default:
		candidates = []string{
			"/usr/local/bin/" + v.cliName,
			"/usr/bin/" + v.cliName,
			"/snap/bin/" + v.cliName,
		}
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c, nil
		}
	}
	if p, err := lookPath(v.cliName); err == nil {
		return p, nil
	}
	return "", ErrBinaryNotFound
}

func (v *vscodeFamily) Open(ctx context.Context, path string, opts OpenOptions) error {
	binary, err := v.FindBinary(ctx)
	if err != nil {
		return err
	}
	args := v.argsFor(path, opts)

	if err := exec.CommandContext(ctx, binary, args...).Start(); err == nil {
		return nil
	}

	if runtime.GOOS == "darwin" {
		cliPath := filepath.Join(fmt.Sprintf("/Applications/%s.app", v.macAppName), "Contents/Resources/app/bin", v.cliName)
		if info, statErr := os.Stat(cliPath); statErr == nil && !info.IsDir() {
			if err := exec.CommandContext(ctx, cliPath, args...).Start(); err == nil {
				return nil
			}
		}
	}
	return fmt.Errorf("launch %s: %w", v.displayName, err)
}

func (v *vscodeFamily) argsFor(path string, opts OpenOptions) []string {
	var args []string
	if opts.NewWindow {
		args = append(args, "--new-window")
	} else {
		args = append(args, "--reuse-window")
	}
	if opts.Line != nil {
		col := 1
		if opts.Column != nil {
			col = *opts.Column
		}
		args = append(args, "--goto", fmt.Sprintf("%s:%d:%d", path, *opts.Line, col))
	} else {
		args = append(args, path)
	}
	return args
}

func (v *vscodeFamily) RunningInstances(ctx context.Context) []Instance {
	out, err := exec.CommandContext(ctx, "ps", "aux").Output()
	if err != nil {
		return nil
	}
	pattern := strings.ToLower("/Applications/" + v.macAppName + ".app")
	if runtime.GOOS == "windows" {
		return windowsRunningInstances(ctx, v.cliName+".exe")
	}
	if strings.Contains(strings.ToLower(string(out)), pattern) || strings.Contains(strings.ToLower(string(out)), v.cliName) {
		return []Instance{{Workspace: "detected (workspace unknown)"}}
	}
	return nil
}

func windowsRunningInstances(ctx context.Context, exeName string) []Instance {
	out, err := exec.CommandContext(ctx, "tasklist").Output()
	if err != nil {
		return nil
	}
	if strings.Contains(strings.ToLower(string(out)), strings.ToLower(exeName)) {
		return []Instance{{Workspace: "detected (workspace unknown)"}}
	}
	return nil
}
