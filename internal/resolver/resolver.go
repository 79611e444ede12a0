// Package resolver matches a parsed request against the configured
// workspaces. It is stateless: every call re-reads a snapshot from the
// settings store and, for recency sorting, the MRU tracker.
package resolver

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/browserup/sorcery-desktop/internal/mru"
	"github.com/browserup/sorcery-desktop/internal/settings"
)

// Match is one candidate file location inside a workspace, or a
// non-workspace fallback when no configured workspace contains it.
type Match struct {
	WorkspaceName string
	WorkspacePath string
	FullFilePath  string
	LastActive    *time.Time
}

// Resolver wraps a settings store and an MRU tracker.
type Resolver struct {
	store *settings.Store
	mru   *mru.Tracker
}

// New builds a Resolver over the given collaborators.
func New(store *settings.Store, tracker *mru.Tracker) *Resolver {
	return &Resolver{store: store, mru: tracker}
}

// FindPartialMatches probes every configured workspace for rel and
// keeps the ones where it exists.
func (r *Resolver) FindPartialMatches(rel string) []Match {
	s := r.store.Get()
	var matches []Match
	for _, ws := range s.Workspaces {
		if ws.NormalizedPath == "" {
			continue
		}
		candidate := filepath.Join(ws.NormalizedPath, rel)
		if info, err := os.Stat(candidate); err == nil && (info.Mode().IsRegular() || info.IsDir()) {
			matches = append(matches, Match{
				WorkspaceName: ws.DisplayName(),
				WorkspacePath: ws.NormalizedPath,
				FullFilePath:  candidate,
			})
		}
	}
	return matches
}

// FindWorkspacePath resolves rel inside the named workspace. The name
// comparison is case-insensitive, matching the explicit name or the
// derived basename.
func (r *Resolver) FindWorkspacePath(name, rel string) (string, error) {
	s := r.store.Get()
	lower := strings.ToLower(name)
	for _, ws := range s.Workspaces {
		if strings.ToLower(ws.DisplayName()) != lower {
			continue
		}
		full := filepath.Join(ws.NormalizedPath, rel)
		if info, err := os.Stat(full); err == nil && (info.Mode().IsRegular() || info.IsDir()) {
			return full, nil
		}
		return "", fmt.Errorf("path not found in workspace %q: %s", name, rel)
	}
	return "", fmt.Errorf("workspace %q not found in configuration", name)
}

// FindFullPathMatches scans the absolute path for a "/<workspace-name>/"
// fragment and, if the remainder exists inside that workspace, records
// a match. When no workspace fragment is found but the path exists, it
// is returned as a single non-workspace match.
func (r *Resolver) FindFullPathMatches(abs string) []Match {
	s := r.store.Get()
	var matches []Match
	for _, ws := range s.Workspaces {
		name := ws.DisplayName()
		marker := "/" + name + "/"
		idx := strings.Index(abs, marker)
		if idx < 0 {
			continue
		}
		fragment := abs[idx+len(marker):]
		candidate := filepath.Join(ws.NormalizedPath, fragment)
		if info, err := os.Stat(candidate); err == nil && (info.Mode().IsRegular() || info.IsDir()) {
			matches = append(matches, Match{
				WorkspaceName: name,
				WorkspacePath: ws.NormalizedPath,
				FullFilePath:  candidate,
			})
		}
	}

	if len(matches) == 0 {
		if info, err := os.Stat(abs); err == nil {
			name := "Non-workspace file"
			if info.IsDir() {
				name = "Non-workspace folder"
			}
			matches = append(matches, Match{
				WorkspaceName: name,
				WorkspacePath: filepath.Dir(abs),
				FullFilePath:  abs,
			})
		}
	}
	return matches
}

// SortByRecent annotates each match with its workspace's MRU
// last-active time and sorts descending by that time; matches with no
// MRU data sort last, tie-broken alphabetically by workspace name.
func (r *Resolver) SortByRecent(matches []Match) []Match {
	for i := range matches {
		if t, ok := r.mru.LastActive(matches[i].WorkspacePath); ok {
			tCopy := t
			matches[i].LastActive = &tCopy
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		switch {
		case a.LastActive != nil && b.LastActive != nil:
			return a.LastActive.After(*b.LastActive)
		case a.LastActive != nil:
			return true
		case b.LastActive != nil:
			return false
		default:
			return a.WorkspaceName < b.WorkspaceName
		}
	})
	return matches
}
