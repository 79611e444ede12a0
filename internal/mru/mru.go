// Package mru tracks which configured workspace a user most recently
// worked in, combining four independent signals: a running process
// whose working directory sits inside the workspace, the commit time
// of the workspace's most recent HEAD reflog entry, the modification
// time of its most recently touched uncommitted file, and the
// modification times of a bounded set of its own directory entries.
// The tracker polls every 60 seconds and persists the combined result
// to <user-config-dir>/sorcery-desktop/workspace_mru.yaml so the last
// known activity survives a restart.
package mru

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/browserup/sorcery-desktop/internal/gitops"
	"github.com/browserup/sorcery-desktop/internal/settings"
)

// pollInterval is how often Tracker.Run re-probes every workspace.
const pollInterval = 60 * time.Second

// data is the on-disk schema of workspace_mru.yaml.
type data struct {
	Workspaces map[string]time.Time `yaml:"workspaces"`
}

// Tracker owns the in-memory last-active map and its backing file.
type Tracker struct {
	mu    sync.RWMutex
	data  data
	path  string
	store *settings.Store
	git   *gitops.Ops
	log   *log.Logger
}

// New builds a Tracker backed by the given settings store and git
// operations, persisting to <user-config-dir>/sorcery-desktop/workspace_mru.yaml.
func New(store *settings.Store, git *gitops.Ops, logger *log.Logger) (*Tracker, error) {
	path, err := mruPath()
	if err != nil {
		return nil, err
	}
	t := &Tracker{
		data:  data{Workspaces: map[string]time.Time{}},
		path:  path,
		store: store,
		git:   git,
		log:   logger,
	}
	t.load()
	return t, nil
}

func mruPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	confDir := filepath.Join(dir, "sorcery-desktop")
	if err := os.MkdirAll(confDir, 0750); err != nil {
		return "", err
	}
	return filepath.Join(confDir, "workspace_mru.yaml"), nil
}

func (t *Tracker) load() {
	raw, err := os.ReadFile(t.path)
	if err != nil {
		return
	}
	var d data
	if err := yaml.Unmarshal(raw, &d); err != nil {
		t.log.Printf("discarding unreadable mru file %s: %v", t.path, err)
		return
	}
	if d.Workspaces == nil {
		d.Workspaces = map[string]time.Time{}
	}
	t.mu.Lock()
	t.data = d
	t.mu.Unlock()
}

func (t *Tracker) save() {
	t.mu.RLock()
	out, err := yaml.Marshal(t.data)
	t.mu.RUnlock()
	if err != nil {
		t.log.Printf("marshal mru data: %v", err)
		return
	}
	if err := os.WriteFile(t.path, out, 0600); err != nil {
		t.log.Printf("write mru file %s: %v", t.path, err)
	}
}

// LastActive returns the most recently recorded activity time for the
// workspace rooted at path, if any signal has ever fired for it.
func (t *Tracker) LastActive(workspacePath string) (time.Time, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.data.Workspaces[workspacePath]
	return v, ok
}

// Run polls every workspace every 60 seconds until ctx is cancelled.
// It probes once immediately before entering the loop.
func (t *Tracker) Run(ctx context.Context) {
	t.pollOnce(ctx)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.pollOnce(ctx)
		}
	}
}

// PollOnce probes every configured workspace a single time and
// persists any newly discovered activity. Run calls this on every
// tick; callers that want an immediate refresh (for example a CLI
// "rescan" command) can call it directly.
func (t *Tracker) PollOnce(ctx context.Context) {
	t.pollOnce(ctx)
}

func (t *Tracker) pollOnce(ctx context.Context) {
	cwds := snapshotProcessCwds()

	s := t.store.Get()
	changed := false
	for _, ws := range s.Workspaces {
		if ws.NormalizedPath == "" {
			continue
		}
		active := t.probeWorkspace(ctx, ws.NormalizedPath, cwds)
		if active.IsZero() {
			continue
		}
		t.mu.Lock()
		prev, had := t.data.Workspaces[ws.NormalizedPath]
		if !had || active.After(prev) {
			t.data.Workspaces[ws.NormalizedPath] = active
			changed = true
		}
		t.mu.Unlock()
	}
	if changed {
		t.save()
	}
}

// probeWorkspace combines the four signals and returns the latest of
// whichever fired, or the zero Time if none did.
func (t *Tracker) probeWorkspace(ctx context.Context, root string, cwds []string) time.Time {
	var latest time.Time
	take := func(ts time.Time, ok bool) {
		if ok && ts.After(latest) {
			latest = ts
		}
	}

	take(processSignal(root, cwds))
	take(reflogSignal(root))
	take(t.uncommittedSignal(ctx, root))
	take(fsSignal(root))

	return latest
}
