package editor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/mod/semver"
)

const jetBrainsCacheTTL = 5 * time.Minute

type jetBrainsCache struct {
	path      string
	ok        bool
	timestamp time.Time
}

// jetBrainsFamily covers the IntelliJ-platform IDEs. Binary discovery
// is expensive (it may walk several Toolbox version directories) so
// the resolved path is cached for five minutes and invalidated on a
// launch failure.
type jetBrainsFamily struct {
	id, displayName, toolboxID string

	mu    sync.RWMutex
	cache *jetBrainsCache
}

func newJetBrainsFamily(id, display, toolboxID string) *jetBrainsFamily {
	return &jetBrainsFamily{id: id, displayName: display, toolboxID: toolboxID}
}

func (j *jetBrainsFamily) ID() string            { return j.id }
func (j *jetBrainsFamily) DisplayName() string   { return j.displayName }
func (j *jetBrainsFamily) SupportsFolders() bool { return true }

func (j *jetBrainsFamily) IsInstalled(ctx context.Context) bool {
	_, err := j.FindBinary(ctx)
	return err == nil
}

func (j *jetBrainsFamily) FindBinary(ctx context.Context) (string, error) {
	if path, ok := j.cachedBinary(); ok {
		return path, nil
	}
	path, err := j.discoverBinary()
	j.setCache(path, err == nil)
	if err != nil {
		return "", err
	}
	return path, nil
}

func (j *jetBrainsFamily) cachedBinary() (string, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.cache == nil || time.Since(j.cache.timestamp) >= jetBrainsCacheTTL {
		return "", false
	}
	return j.cache.path, j.cache.ok
}

func (j *jetBrainsFamily) setCache(path string, ok bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.cache = &jetBrainsCache{path: path, ok: ok, timestamp: time.Now()}
}

func (j *jetBrainsFamily) invalidateCache() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.cache = nil
}

func (j *jetBrainsFamily) discoverBinary() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		if p, err := j.findToolboxMac(); err == nil {
			return p, nil
		}
		standalone := fmt.Sprintf("/Applications/%s.app", j.displayName)
		if info, err := os.Stat(standalone); err == nil && info.IsDir() {
			return standalone, nil
		}
	case "windows":
		if p, err := j.findToolboxWindows(); err == nil {
			return p, nil
		}
	default:
		if p, err := j.findToolboxLinux(); err == nil {
			return p, nil
		}
	}
	if p, err := lookPath(j.toolboxID); err == nil {
		return p, nil
	}
	return "", ErrBinaryNotFound
}

func (j *jetBrainsFamily) findToolboxMac() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", ErrBinaryNotFound
	}
	toolboxApps := filepath.Join(home, "Library/Application Support/JetBrains/Toolbox/apps")
	appName := j.displayName + ".app"

	if p, ok := findNewestChannelApp(filepath.Join(toolboxApps, j.toolboxID), appName); ok {
		return p, nil
	}
	entries, err := os.ReadDir(toolboxApps)
	if err != nil {
		return "", ErrBinaryNotFound
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if p, ok := findNewestChannelApp(filepath.Join(toolboxApps, e.Name()), appName); ok {
			return p, nil
		}
	}
	return "", ErrBinaryNotFound
}

func findNewestChannelApp(productDir, appName string) (string, bool) {
	for _, channel := range []string{"ch-0", "ch-1"} {
		channelDir := filepath.Join(productDir, channel)
		latest, ok := newestSubdir(channelDir)
		if !ok {
			continue
		}
		appPath := filepath.Join(latest, appName)
		if info, err := os.Stat(appPath); err == nil && info.IsDir() {
			return appPath, true
		}
	}
	return "", false
}

// newestSubdir picks the newest of dir's immediate subdirectories. Toolbox
// version directories are named like "2024.3.1": when two candidates both
// parse as semver, the higher version wins over mtime, since a channel
// directory's mtime can lag behind an update that only touched files deep
// inside it.
func newestSubdir(dir string) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	type candidate struct {
		path    string
		version string
		modTime time.Time
	}
	var candidates []candidate
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		candidates = append(candidates, candidate{filepath.Join(dir, e.Name()), "v" + e.Name(), info.ModTime()})
	}
	if len(candidates) == 0 {
		return "", false
	}
	sort.Slice(candidates, func(i, k int) bool {
		a, b := candidates[i], candidates[k]
		if semver.IsValid(a.version) && semver.IsValid(b.version) {
			if cmp := semver.Compare(a.version, b.version); cmp != 0 {
				return cmp > 0
			}
		}
		return a.modTime.After(b.modTime)
	})
	return candidates[0].path, true
}

func (j *jetBrainsFamily) findToolboxWindows() (string, error) {
	localAppData := os.Getenv("LOCALAPPDATA")
	if localAppData == "" {
		return "", ErrBinaryNotFound
	}
	toolboxApps := filepath.Join(localAppData, "JetBrains", "Toolbox", "apps", j.toolboxID)
	for _, channel := range []string{"ch-0", "ch-1"} {
		channelDir := filepath.Join(toolboxApps, channel)
		latest, ok := newestSubdir(channelDir)
		if !ok {
			continue
		}
		binDir := filepath.Join(latest, "bin")
		entries, err := os.ReadDir(binDir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if strings.HasSuffix(strings.ToLower(e.Name()), ".exe") {
				return filepath.Join(binDir, e.Name()), nil
			}
		}
	}
	return "", ErrBinaryNotFound
}

func (j *jetBrainsFamily) findToolboxLinux() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", ErrBinaryNotFound
	}
	toolboxApps := filepath.Join(home, ".local/share/JetBrains/Toolbox/apps", j.toolboxID)
	for _, channel := range []string{"ch-0", "ch-1"} {
		channelDir := filepath.Join(toolboxApps, channel)
		latest, ok := newestSubdir(channelDir)
		if !ok {
			continue
		}
		binPath := filepath.Join(latest, "bin", j.toolboxID+".sh")
		if info, err := os.Stat(binPath); err == nil && !info.IsDir() {
			return binPath, nil
		}
	}
	return "", ErrBinaryNotFound
}

func (j *jetBrainsFamily) argsFor(path string, opts OpenOptions) []string {
	var args []string
	if opts.Line != nil {
		args = append(args, "--line", strconv.Itoa(*opts.Line))
		if opts.Column != nil {
			args = append(args, "--column", strconv.Itoa(*opts.Column))
		}
	}
	return append(args, path)
}

func (j *jetBrainsFamily) Open(ctx context.Context, path string, opts OpenOptions) error {
	binary, err := j.FindBinary(ctx)
	if err != nil {
		return err
	}
	args := j.argsFor(path, opts)

	if err := j.spawn(ctx, binary, args); err != nil {
		j.invalidateCache()
		binary, err2 := j.FindBinary(ctx)
		if err2 != nil {
			return fmt.Errorf("launch %s: %w", j.displayName, err)
		}
		if err := j.spawn(ctx, binary, j.argsFor(path, opts)); err != nil {
			return fmt.Errorf("launch %s: %w", j.displayName, err)
		}
	}
	return nil
}

func (j *jetBrainsFamily) spawn(ctx context.Context, binary string, args []string) error {
	switch runtime.GOOS {
	case "darwin":
		macArgs := append([]string{"-n", "-a", binary, "--args"}, args...)
		return exec.CommandContext(ctx, "open", macArgs...).Start()
	case "windows":
		winArgs := append([]string{"/c", "start", `""`, binary}, args...)
		return exec.CommandContext(ctx, "cmd.exe", winArgs...).Start()
	default:
		return exec.CommandContext(ctx, binary, args...).Start()
	}
}

func (j *jetBrainsFamily) RunningInstances(ctx context.Context) []Instance {
	switch runtime.GOOS {
	case "darwin":
		appPath := fmt.Sprintf("/Applications/%s.app", j.displayName)
		if out, err := exec.CommandContext(ctx, "pgrep", "-f", appPath).Output(); err == nil && len(strings.TrimSpace(string(out))) > 0 {
			return []Instance{{Workspace: "detected (workspace unknown)"}}
		}
	case "windows":
		return windowsRunningInstances(ctx, j.toolboxID+".exe")
	default:
		if out, err := exec.CommandContext(ctx, "ps", "aux").Output(); err == nil && strings.Contains(strings.ToLower(string(out)), j.toolboxID) {
			return []Instance{{Workspace: "detected (workspace unknown)"}}
		}
	}
	return nil
}
