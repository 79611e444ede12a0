// Package settings owns the in-memory snapshot of user configuration
// and workspaces. It is backed by a YAML file at
// <user-config-dir>/sorcery-desktop/settings.yaml, loaded through
// spf13/viper (with the historical "repos" key accepted as an alias for
// "workspaces") and re-serialized through gopkg.in/yaml.v3 on save.
package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/browserup/sorcery-desktop/internal/logging"
)

// Workspace is a labelled root directory tied to a preferred editor.
type Workspace struct {
	Path           string `yaml:"path" mapstructure:"path"`
	Name           string `yaml:"name,omitempty" mapstructure:"name"`
	Editor         string `yaml:"editor" mapstructure:"editor"`
	AutoDiscovered bool   `yaml:"auto_discovered" mapstructure:"auto_discovered"`
	NormalizedPath string `yaml:"-" mapstructure:"-"`
}

// DisplayName returns the explicit name, or the basename of the
// normalized path when no name was configured.
func (w Workspace) DisplayName() string {
	if w.Name != "" {
		return w.Name
	}
	if w.NormalizedPath != "" {
		return filepath.Base(w.NormalizedPath)
	}
	return filepath.Base(w.Path)
}

// Defaults holds the "defaults:" YAML section.
type Defaults struct {
	Editor                  string   `yaml:"editor" mapstructure:"editor"`
	AllowNonWorkspaceFiles  bool     `yaml:"allow_non_workspace_files" mapstructure:"allow_non_workspace_files"`
	PreferredTerminal       string   `yaml:"preferred_terminal" mapstructure:"preferred_terminal"`
	DefaultWorkspacesFolder string   `yaml:"default_workspaces_folder" mapstructure:"default_workspaces_folder"`
	AutoSwitchCleanBranches bool     `yaml:"auto_switch_clean_branches" mapstructure:"auto_switch_clean_branches"`
	IgnoredWorkspaces       []string `yaml:"ignored_workspaces" mapstructure:"ignored_workspaces"`
}

// Settings is the full schema of settings.yaml.
type Settings struct {
	Defaults   Defaults    `yaml:"defaults" mapstructure:"defaults"`
	Workspaces []Workspace `yaml:"workspaces" mapstructure:"workspaces"`
}

// Clone returns a deep copy suitable for handing out to callers that
// must not observe later mutation.
func (s Settings) Clone() Settings {
	out := s
	out.Workspaces = append([]Workspace(nil), s.Workspaces...)
	out.Defaults.IgnoredWorkspaces = append([]string(nil), s.Defaults.IgnoredWorkspaces...)
	return out
}

// Store owns the single in-memory Settings value, protected by a
// read-write lock: read-lock holders must not do I/O beyond reading
// the snapshot, and the write lock is held only across the in-memory
// swap, with the file write happening before it.
type Store struct {
	mu       sync.RWMutex
	current  Settings
	path     string
	log      interface {
		Printf(format string, v ...any)
	}
	watcher *fsnotify.Watcher
}

func configPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "sorcery-desktop", "settings.yaml"), nil
}

// Load reads settings.yaml (creating defaults via first-run probing if
// absent) and returns a ready Store.
func Load() (*Store, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom loads settings from an explicit path, primarily for tests.
func LoadFrom(path string) (*Store, error) {
	logger := logging.New("settings")

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.RegisterAlias("repos", "workspaces")

	v.SetDefault("defaults.editor", "vscode")
	v.SetDefault("defaults.allow_non_workspace_files", false)
	v.SetDefault("defaults.preferred_terminal", "auto")
	v.SetDefault("defaults.auto_switch_clean_branches", true)
	v.SetDefault("defaults.ignored_workspaces", []string{})

	firstRun := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		firstRun = true
	} else if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}

	var s Settings
	if !firstRun {
		if err := v.Unmarshal(&s); err != nil {
			return nil, fmt.Errorf("parsing settings: %w", err)
		}
	} else {
		s = Settings{Defaults: Defaults{
			Editor:                  "vscode",
			PreferredTerminal:       "auto",
			AutoSwitchCleanBranches: true,
		}}
		s.Defaults.DefaultWorkspacesFolder = probeWorkspacesFolder()
	}

	if err := normalizeWorkspaces(&s, logger); err != nil {
		return nil, err
	}

	store := &Store{current: s, path: path, log: logger}
	if firstRun {
		if err := store.Save(s); err != nil {
			return nil, err
		}
	}
	return store, nil
}

// normalizeWorkspaces populates NormalizedPath for every workspace and
// warns about names containing "." (they collide with provider
// hostnames in the srcuri:// URL grammar).
func normalizeWorkspaces(s *Settings, logger interface{ Printf(string, ...any) }) error {
	for i := range s.Workspaces {
		ws := &s.Workspaces[i]
		expanded, err := expandTilde(ws.Path)
		if err != nil {
			return fmt.Errorf("workspace %q: %w", ws.Path, err)
		}
		abs, err := filepath.Abs(expanded)
		if err != nil {
			return fmt.Errorf("workspace %q: %w", ws.Path, err)
		}
		ws.NormalizedPath = abs
		if strings.Contains(ws.DisplayName(), ".") {
			logger.Printf("workspace %q contains '.' in its name; it will collide with provider hostnames in srcuri:// links unless referenced via ?workspace=", ws.DisplayName())
		}
	}
	return nil
}

func expandTilde(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if p == "~" {
		return home, nil
	}
	return filepath.Join(home, p[2:]), nil
}

// probeWorkspacesFolder scores candidate directories under $HOME by
// how many immediate subdirectories are themselves git repositories.
func probeWorkspacesFolder() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	candidates := []string{"code", "repos", "projects", "dev", "src", "apps"}
	variants := func(base string) []string {
		return []string{base, strings.ToUpper(base[:1]) + base[1:], strings.ToUpper(base)}
	}

	best := ""
	bestScore := -1
	for _, c := range candidates {
		for _, name := range variants(c) {
			dir := filepath.Join(home, name)
			entries, err := os.ReadDir(dir)
			if err != nil {
				continue
			}
			score := 0
			for _, e := range entries {
				if !e.IsDir() {
					continue
				}
				if _, err := os.Stat(filepath.Join(dir, e.Name(), ".git")); err == nil {
					score++
				}
			}
			if score > bestScore {
				bestScore = score
				best = dir
			}
		}
	}
	if bestScore <= 0 {
		return ""
	}
	return best
}

// Get returns a cloned snapshot of the current settings.
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// Save serializes the new settings, writes the file, then swaps the
// in-memory snapshot. The write lock is held only across the swap.
func (s *Store) Save(newSettings Settings) error {
	if err := normalizeWorkspaces(&newSettings, s.log); err != nil {
		return err
	}

	data, err := yaml.Marshal(newSettings)
	if err != nil {
		return fmt.Errorf("marshaling settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0750); err != nil {
		return fmt.Errorf("creating settings directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}

	s.mu.Lock()
	s.current = newSettings
	s.mu.Unlock()
	return nil
}

// WorkspaceFor returns the first configured workspace whose
// NormalizedPath is a prefix of path, compared on canonical path
// components rather than raw string prefix.
func (s *Store) WorkspaceFor(path string) (Workspace, bool) {
	snapshot := s.Get()
	for _, ws := range snapshot.Workspaces {
		if isPathPrefix(ws.NormalizedPath, path) {
			return ws, true
		}
	}
	return Workspace{}, false
}

// isPathPrefix reports whether root is a path-component prefix of path.
func isPathPrefix(root, path string) bool {
	root = filepath.Clean(root)
	path = filepath.Clean(path)
	if root == path {
		return true
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Watch invokes onChange whenever the settings file changes on disk,
// e.g. the user hand-edits it while sorcery-desktop is running.
func (s *Store) Watch(onChange func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(s.path)); err != nil {
		w.Close()
		return err
	}
	s.watcher = w

	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(s.path) {
					continue
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
					if reloaded, err := LoadFrom(s.path); err == nil {
						s.mu.Lock()
						s.current = reloaded.Get()
						s.mu.Unlock()
						onChange()
					}
				}
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return nil
}

// StopWatch releases the fsnotify watcher started by Watch, if any.
func (s *Store) StopWatch() error {
	if s.watcher == nil {
		return nil
	}
	return s.watcher.Close()
}
