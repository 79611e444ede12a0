package editor

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/browserup/sorcery-desktop/internal/terminal"
)

// isSocket reports whether info describes a Unix-domain socket file.
func isSocket(info fs.FileInfo) bool {
	return info.Mode()&fs.ModeSocket != 0
}

// termHosted is the shared shape for editors that only make sense
// inside a terminal emulator: a binary name, platform search
// locations, and the -c/+LINE cursor-positioning convention vim and
// its relatives share.
type termHosted struct {
	id, displayName, binaryName string
	macCandidates, linuxCandidates []string
	terminals *terminal.Detector
	argsFor   func(path string, opts OpenOptions) []string
}

func (t *termHosted) ID() string            { return t.id }
func (t *termHosted) DisplayName() string   { return t.displayName }
func (t *termHosted) SupportsFolders() bool { return true }

func (t *termHosted) IsInstalled(ctx context.Context) bool {
	_, err := t.FindBinary(ctx)
	return err == nil
}

func (t *termHosted) FindBinary(ctx context.Context) (string, error) {
	var candidates []string
	if runtime.GOOS == "darwin" {
		candidates = t.macCandidates
	} else {
		candidates = t.linuxCandidates
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c, nil
		}
	}
	if p, err := lookPath(t.binaryName); err == nil {
		return p, nil
	}
	return "", ErrBinaryNotFound
}

func (t *termHosted) Open(ctx context.Context, path string, opts OpenOptions) error {
	binary, err := t.FindBinary(ctx)
	if err != nil {
		return err
	}
	args := t.argsFor(path, opts)
	term, err := t.terminals.Detect(opts.TerminalPreference)
	if err != nil {
		return fmt.Errorf("launch %s: %w", t.displayName, err)
	}
	if t.terminals.AlreadyHosting(term) {
		if err := exec.CommandContext(ctx, binary, args...).Start(); err == nil {
			return nil
		}
	}
	if err := t.terminals.LaunchEditor(ctx, term, t.binaryName, args); err != nil {
		return fmt.Errorf("launch %s: %w", t.displayName, err)
	}
	return nil
}

func (t *termHosted) RunningInstances(ctx context.Context) []Instance { return nil }

func vimStyleArgs(path string, opts OpenOptions) []string {
	var args []string
	switch {
	case opts.Line != nil && opts.Column != nil:
		args = append(args, "-c", fmt.Sprintf("call cursor(%d,%d)", *opts.Line, *opts.Column))
	case opts.Line != nil:
		args = append(args, fmt.Sprintf("+%d", *opts.Line))
	}
	return append(args, path)
}

func newVimManager(terminals *terminal.Detector) *termHosted {
	return &termHosted{
		id: "vim", displayName: "Vim", binaryName: "vim",
		macCandidates:   []string{"/opt/homebrew/bin/vim", "/usr/local/bin/vim", "/usr/bin/vim"},
		linuxCandidates: []string{"/usr/bin/vim", "/usr/local/bin/vim"},
		terminals:       terminals,
		argsFor:         vimStyleArgs,
	}
}

func newNanoManager(terminals *terminal.Detector) *termHosted {
	return &termHosted{
		id: "nano", displayName: "Nano", binaryName: "nano",
		macCandidates:   []string{"/opt/homebrew/bin/nano", "/usr/local/bin/nano", "/usr/bin/nano"},
		linuxCandidates: []string{"/usr/bin/nano", "/usr/local/bin/nano"},
		terminals:       terminals,
		argsFor: func(path string, opts OpenOptions) []string {
			if opts.Line != nil {
				loc := "+" + strconv.Itoa(*opts.Line)
				if opts.Column != nil {
					loc = fmt.Sprintf("%s,%d", loc, *opts.Column)
				}
				return []string{loc, path}
			}
			return []string{path}
		},
	}
}

func newMicroManager(terminals *terminal.Detector) *termHosted {
	return &termHosted{
		id: "micro", displayName: "Micro", binaryName: "micro",
		macCandidates:   []string{"/opt/homebrew/bin/micro", "/usr/local/bin/micro"},
		linuxCandidates: []string{"/usr/bin/micro", "/usr/local/bin/micro"},
		terminals:       terminals,
		argsFor: func(path string, opts OpenOptions) []string {
			if opts.Line != nil {
				target := fmt.Sprintf("%s:%d", path, *opts.Line)
				if opts.Column != nil {
					target = fmt.Sprintf("%s:%d", target, *opts.Column)
				}
				return []string{target}
			}
			return []string{path}
		},
	}
}

func newKakouneManager(terminals *terminal.Detector) *termHosted {
	return &termHosted{
		id: "kakoune", displayName: "Kakoune", binaryName: "kak",
		macCandidates:   []string{"/opt/homebrew/bin/kak", "/usr/local/bin/kak"},
		linuxCandidates: []string{"/usr/bin/kak", "/usr/local/bin/kak"},
		terminals:       terminals,
		argsFor: func(path string, opts OpenOptions) []string {
			if opts.Line != nil {
				return []string{fmt.Sprintf("+%d:%d", *opts.Line, columnOr1(opts.Column)), path}
			}
			return []string{path}
		},
	}
}

func columnOr1(col *int) int {
	if col != nil {
		return *col
	}
	return 1
}

// neovimManager extends termHosted with socket reuse: before spawning
// a terminal-hosted instance it looks for a running nvim's
// Unix-domain socket whose cwd is a prefix of the target path.
type neovimManager struct {
	*termHosted
}

func newNeovimManager(terminals *terminal.Detector) *neovimManager {
	return &neovimManager{termHosted: &termHosted{
		id: "neovim", displayName: "Neovim", binaryName: "nvim",
		macCandidates:   []string{"/opt/homebrew/bin/nvim", "/usr/local/bin/nvim", "/usr/bin/nvim"},
		linuxCandidates: []string{"/usr/bin/nvim", "/usr/local/bin/nvim", "/snap/bin/nvim"},
		terminals:       terminals,
		argsFor:         vimStyleArgs,
	}}
}

func (n *neovimManager) Open(ctx context.Context, path string, opts OpenOptions) error {
	binary, err := n.FindBinary(ctx)
	if err != nil {
		return err
	}

	if socket, ok := n.findSocket(ctx, binary, path); ok {
		if err := n.sendToSocket(ctx, binary, socket, path, opts); err == nil {
			return nil
		}
	}

	return n.termHosted.Open(ctx, path, opts)
}

func (n *neovimManager) sendToSocket(ctx context.Context, binary, socket, path string, opts OpenOptions) error {
	escaped := strings.ReplaceAll(strings.ReplaceAll(path, `\`, `\\`), " ", `\ `)
	var keys string
	switch {
	case opts.Line != nil && opts.Column != nil:
		keys = fmt.Sprintf(":e %s<CR>:call cursor(%d,%d)<CR>", escaped, *opts.Line, *opts.Column)
	case opts.Line != nil:
		keys = fmt.Sprintf(":%d<CR>:e %s<CR>", *opts.Line, escaped)
	default:
		keys = fmt.Sprintf(":e %s<CR>", escaped)
	}
	return exec.CommandContext(ctx, binary, "--server", socket, "--remote-send", keys).Run()
}

func (n *neovimManager) findSocket(ctx context.Context, binary, targetPath string) (string, bool) {
	sockets := gatherNvimSockets()
	if len(sockets) == 0 {
		return "", false
	}
	target, err := filepath.Abs(targetPath)
	if err != nil {
		return sockets[0], true
	}
	for _, socket := range sockets {
		if cwd, ok := nvimSocketCwd(ctx, binary, socket); ok {
			if strings.HasPrefix(target, cwd) {
				return socket, true
			}
		}
	}
	return sockets[0], true
}

func nvimSocketCwd(ctx context.Context, binary, socket string) (string, bool) {
	out, err := exec.CommandContext(ctx, binary, "--server", socket, "--remote-expr", "getcwd()").Output()
	if err != nil {
		return "", false
	}
	cwd := strings.TrimSpace(string(out))
	if cwd == "" {
		return "", false
	}
	return cwd, true
}

// gatherNvimSockets scans /tmp and $TMPDIR for Unix-domain sockets
// whose name contains "nvim", recursing into nvim-named directories
// up to depth 2.
func gatherNvimSockets() []string {
	dirs := []string{"/tmp"}
	if tmp := os.Getenv("TMPDIR"); tmp != "" {
		dirs = append(dirs, tmp)
	}

	var sockets []string
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !strings.Contains(e.Name(), "nvim") {
				continue
			}
			path := filepath.Join(dir, e.Name())
			info, err := e.Info()
			if err != nil {
				continue
			}
			if isSocket(info) {
				sockets = append(sockets, path)
			} else if info.IsDir() {
				searchDirForSockets(path, &sockets, 0, 2)
			}
		}
	}
	return sockets
}

func searchDirForSockets(dir string, sockets *[]string, depth, maxDepth int) {
	if depth >= maxDepth {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		info, err := e.Info()
		if err != nil {
			continue
		}
		if isSocket(info) {
			*sockets = append(*sockets, path)
		} else if info.IsDir() {
			searchDirForSockets(path, sockets, depth+1, maxDepth)
		}
	}
}
