package mru

import (
	"os"
	"path/filepath"
	"time"
)

// allowDirs are the subdirectories whose own mtime and immediate
// children are worth scanning; a workspace's top-level churn tends to
// live under one of these rather than in scattered dotfiles.
var allowDirs = []string{"src", "app", "lib", "packages", "test", "spec", "include", "bin", "scripts"}

// maxFsEntries bounds how many directory entries fsSignal will stat
// across a single workspace, so a workspace with a huge flat directory
// doesn't turn every poll into a full tree walk.
const maxFsEntries = 400

// fsSignal returns the most recent modification time among root
// itself, root's immediate children, the allow-listed subdirectories'
// own mtimes, and their immediate children, stat-ing at most
// maxFsEntries children in all.
func fsSignal(root string) (time.Time, bool) {
	var latest time.Time
	found := false
	take := func(t time.Time) {
		if !found || t.After(latest) {
			latest = t
			found = true
		}
	}

	if info, err := os.Stat(root); err == nil {
		take(info.ModTime())
	} else {
		return time.Time{}, false
	}

	seen := 0
	scanChildren := func(dir string) {
		if seen >= maxFsEntries {
			return
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			return
		}
		for _, e := range entries {
			if seen >= maxFsEntries {
				return
			}
			seen++
			info, err := e.Info()
			if err != nil {
				continue
			}
			take(info.ModTime())
		}
	}

	scanChildren(root)

	for _, name := range allowDirs {
		sub := filepath.Join(root, name)
		info, err := os.Stat(sub)
		if err != nil || !info.IsDir() {
			continue
		}
		take(info.ModTime())
		scanChildren(sub)
	}

	return latest, found
}
