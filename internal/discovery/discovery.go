// Package discovery reconciles the configured workspace list against
// the contents of the default workspaces folder: git repositories
// found there are added as auto-discovered workspaces, and previously
// auto-discovered workspaces that have disappeared from disk are
// removed. Manually added workspaces are never touched.
package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/browserup/sorcery-desktop/internal/settings"
)

// Result summarizes what Sync changed, by display name.
type Result struct {
	Added   []string
	Removed []string
}

// Sync scans store's configured default_workspaces_folder for git
// repositories and reconciles the workspace list. It is a no-op if no
// folder is configured. If the folder doesn't exist nothing is added,
// but auto-discovered workspaces whose directories are gone are still
// removed.
func Sync(store *settings.Store) (Result, error) {
	reconciled, result, err := reconcile(store.Get())
	if err != nil {
		return result, err
	}
	if len(result.Added) == 0 && len(result.Removed) == 0 {
		return result, nil
	}
	if err := store.Save(reconciled); err != nil {
		return result, fmt.Errorf("saving synced workspaces: %w", err)
	}
	return result, nil
}

// Preview computes the same add/remove diff as Sync without writing
// anything back, for a dry-run report.
func Preview(store *settings.Store) (Result, error) {
	_, result, err := reconcile(store.Get())
	return result, err
}

func reconcile(s settings.Settings) (settings.Settings, Result, error) {
	var result Result

	folder := normalizedFolder(s.Defaults.DefaultWorkspacesFolder)
	if folder == "" {
		return s, result, nil
	}

	ignored := make(map[string]bool, len(s.Defaults.IgnoredWorkspaces))
	for _, p := range s.Defaults.IgnoredWorkspaces {
		if n := normalizedFolder(p); n != "" {
			ignored[n] = true
		}
	}

	existing := make(map[string]bool, len(s.Workspaces))
	for _, ws := range s.Workspaces {
		if ws.NormalizedPath != "" {
			existing[ws.NormalizedPath] = true
		}
	}

	discovered, err := scanFolder(folder)
	if err != nil {
		return s, result, fmt.Errorf("scanning default workspaces folder: %w", err)
	}
	for _, repo := range discovered {
		if ignored[repo] || existing[repo] {
			continue
		}
		name := filepath.Base(repo)
		s.Workspaces = append(s.Workspaces, settings.Workspace{
			Path:           repo,
			Name:           name,
			AutoDiscovered: true,
			NormalizedPath: repo,
		})
		result.Added = append(result.Added, name)
	}

	kept := s.Workspaces[:0]
	for _, ws := range s.Workspaces {
		if ws.AutoDiscovered && ws.NormalizedPath != "" {
			if info, err := os.Stat(ws.NormalizedPath); err != nil || !info.IsDir() {
				result.Removed = append(result.Removed, ws.DisplayName())
				continue
			}
		}
		kept = append(kept, ws)
	}
	s.Workspaces = kept

	return s, result, nil
}

func normalizedFolder(raw string) string {
	if raw == "" {
		return ""
	}
	expanded := raw
	if raw == "~" || strings.HasPrefix(raw, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		if raw == "~" {
			expanded = home
		} else {
			expanded = filepath.Join(home, raw[2:])
		}
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return ""
	}
	return abs
}

// scanFolder returns the absolute paths of every immediate,
// non-dot-prefixed subdirectory of folder that contains a .git entry.
func scanFolder(folder string) ([]string, error) {
	info, err := os.Stat(folder)
	if err != nil || !info.IsDir() {
		return nil, nil
	}
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, err
	}
	var repos []string
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		path := filepath.Join(folder, e.Name())
		if _, err := os.Stat(filepath.Join(path, ".git")); err != nil {
			continue
		}
		repos = append(repos, path)
	}
	return repos, nil
}
