// Package editor implements one adapter per supported editor family
// plus the registry that keys them by id. Every adapter exposes the
// same small surface: locate its binary, report whether it's
// installed, launch it against a path, and best-effort enumerate
// running instances. The registry's iteration order is not
// guaranteed; lookups are always by id.
package editor

import (
	"context"
	"errors"
	"os/exec"
	"sync"

	"github.com/browserup/sorcery-desktop/internal/terminal"
)

// ErrBinaryNotFound means find_binary() could not locate the editor.
var ErrBinaryNotFound = errors.New("editor binary not found")

// OpenOptions carries the target location and launch preferences
// handed to every adapter's Open.
type OpenOptions struct {
	Line              *int
	Column            *int
	NewWindow         bool
	TerminalPreference string
}

// Instance is one best-effort-detected running editor process.
type Instance struct {
	PID          int
	Workspace    string
	WindowTitle  string
}

// Manager is the uniform adapter interface every editor family implements.
type Manager interface {
	ID() string
	DisplayName() string
	SupportsFolders() bool
	IsInstalled(ctx context.Context) bool
	FindBinary(ctx context.Context) (string, error)
	Open(ctx context.Context, path string, opts OpenOptions) error
	RunningInstances(ctx context.Context) []Instance
}

// Registry keys adapters by id. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	managers map[string]Manager
}

// NewRegistry builds a registry pre-populated with every adapter
// family this build supports.
func NewRegistry(terminals *terminal.Detector) *Registry {
	r := &Registry{managers: map[string]Manager{}}

	for _, vs := range []struct{ id, display, cli, macApp string }{
		{"vscode", "Visual Studio Code", "code", "Visual Studio Code"},
		{"cursor", "Cursor", "cursor", "Cursor"},
		{"vscodium", "VSCodium", "codium", "VSCodium"},
		{"roo", "Roo Code", "roo", "Roo Code"},
		{"windsurf", "Windsurf", "windsurf", "Windsurf"},
	} {
		r.Register(newVSCodeFamily(vs.id, vs.display, vs.cli, vs.macApp))
	}

	for _, jb := range []struct{ id, display, cli string }{
		{"idea", "IntelliJ IDEA", "idea"},
		{"webstorm", "WebStorm", "webstorm"},
		{"pycharm", "PyCharm", "pycharm"},
		{"phpstorm", "PhpStorm", "phpstorm"},
		{"rubymine", "RubyMine", "rubymine"},
		{"goland", "GoLand", "goland"},
		{"clion", "CLion", "clion"},
		{"rider", "Rider", "rider"},
		{"datagrip", "DataGrip", "datagrip"},
		{"androidstudio", "Android Studio", "studio"},
		{"fleet", "Fleet", "fleet"},
	} {
		r.Register(newJetBrainsFamily(jb.id, jb.display, jb.cli))
	}

	r.Register(newZedManager())
	r.Register(newSublimeManager())
	r.Register(newXcodeManager())
	r.Register(newKateManager())
	r.Register(newGeditManager())
	r.Register(newEmacsManager())
	r.Register(newVimManager(terminals))
	r.Register(newNeovimManager(terminals))
	r.Register(newNanoManager(terminals))
	r.Register(newMicroManager(terminals))
	r.Register(newKakouneManager(terminals))

	return r
}

// Register adds or replaces the adapter under its own id.
func (r *Registry) Register(m Manager) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.managers[m.ID()] = m
}

// Get looks up an adapter by id.
func (r *Registry) Get(id string) (Manager, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.managers[id]
	return m, ok
}

// List returns every registered editor id, in no particular order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.managers))
	for id := range r.managers {
		ids = append(ids, id)
	}
	return ids
}

// lookPath is a package-level seam so tests can stub binary discovery
// without touching $PATH.
var lookPath = exec.LookPath
