// Package activeeditor polls for the foreground editor window every
// ten seconds and keeps a per-editor "last seen" timestamp, persisted
// to <user-config-dir>/sorcery-desktop/last_seen.yaml. The dispatcher
// consults this when the editor hint is "most-recent", preferring
// whichever editor the user most recently had focused.
package activeeditor

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// pollInterval matches the cadence of the original foreground-window probe.
const pollInterval = 10 * time.Second

// LastSeen is the on-disk and in-memory record of per-editor activity.
type LastSeen struct {
	Editors    map[string]int64 `yaml:"editors"`
	MostRecent string           `yaml:"most_recent,omitempty"`
}

// Tracker owns the in-memory LastSeen data and its backing file.
type Tracker struct {
	mu       sync.RWMutex
	data     LastSeen
	path     string
	log      *log.Logger
	detector func() (string, bool)
}

// New builds a Tracker persisting to
// <user-config-dir>/sorcery-desktop/last_seen.yaml, using the
// platform-appropriate foreground-window detector.
func New(logger *log.Logger) (*Tracker, error) {
	path, err := lastSeenPath()
	if err != nil {
		return nil, err
	}
	t := &Tracker{
		data:     LastSeen{Editors: map[string]int64{}},
		path:     path,
		log:      logger,
		detector: detectActiveEditor,
	}
	t.load()
	return t, nil
}

func lastSeenPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	confDir := filepath.Join(dir, "sorcery-desktop")
	if err := os.MkdirAll(confDir, 0750); err != nil {
		return "", err
	}
	return filepath.Join(confDir, "last_seen.yaml"), nil
}

func (t *Tracker) load() {
	raw, err := os.ReadFile(t.path)
	if err != nil {
		return
	}
	var data LastSeen
	if err := yaml.Unmarshal(raw, &data); err != nil {
		t.log.Printf("discarding unreadable last_seen file %s: %v", t.path, err)
		return
	}
	if data.Editors == nil {
		data.Editors = map[string]int64{}
	}
	t.mu.Lock()
	t.data = data
	t.mu.Unlock()
}

func (t *Tracker) save() {
	t.mu.RLock()
	out, err := yaml.Marshal(t.data)
	t.mu.RUnlock()
	if err != nil {
		t.log.Printf("marshal last_seen data: %v", err)
		return
	}
	if err := os.WriteFile(t.path, out, 0600); err != nil {
		t.log.Printf("write last_seen file %s: %v", t.path, err)
	}
}

// Run polls the foreground window every ten seconds until ctx is
// cancelled, recording whichever editor it recognizes.
func (t *Tracker) Run(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.PollOnce()
		}
	}
}

// PollOnce probes the foreground window a single time and records it
// if it maps to a known editor id.
func (t *Tracker) PollOnce() {
	editorID, ok := t.detector()
	if !ok {
		return
	}
	now := time.Now().UnixMilli()

	t.mu.Lock()
	t.data.Editors[editorID] = now
	t.data.MostRecent = editorID
	t.mu.Unlock()

	t.save()
}

// Data returns a copy of the current last-seen record.
func (t *Tracker) Data() LastSeen {
	t.mu.RLock()
	defer t.mu.RUnlock()
	editors := make(map[string]int64, len(t.data.Editors))
	for k, v := range t.data.Editors {
		editors[k] = v
	}
	return LastSeen{Editors: editors, MostRecent: t.data.MostRecent}
}

// MostRecentEditor returns the id of the editor last seen in the
// foreground, if any has ever been observed.
func (t *Tracker) MostRecentEditor() (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.data.MostRecent == "" {
		return "", false
	}
	return t.data.MostRecent, true
}
