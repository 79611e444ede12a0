package mru

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// reflogSignal reads the commit time off the last line of
// .git/logs/HEAD, which git appends to on every checkout, commit,
// merge, rebase step and branch switch.
func reflogSignal(root string) (time.Time, bool) {
	path := filepath.Join(root, ".git", "logs", "HEAD")
	f, err := os.Open(path)
	if err != nil {
		return time.Time{}, false
	}
	defer f.Close()

	var last string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			last = line
		}
	}
	if last == "" {
		return time.Time{}, false
	}
	return parseReflogTime(last)
}

// parseReflogTime pulls the "<unix-seconds> <tz-offset>" pair that
// precedes the trailing tab-separated message on a reflog line.
func parseReflogTime(line string) (time.Time, bool) {
	tabIdx := strings.LastIndex(line, "\t")
	if tabIdx < 0 {
		tabIdx = len(line)
	}
	fields := strings.Fields(line[:tabIdx])
	if len(fields) < 2 {
		return time.Time{}, false
	}
	secStr := fields[len(fields)-2]
	sec, err := strconv.ParseInt(secStr, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(sec, 0), true
}

// uncommittedSignal returns the latest modification time among the
// repo's currently changed files, as reported by git status.
func (t *Tracker) uncommittedSignal(ctx context.Context, root string) (time.Time, bool) {
	paths, err := t.git.ChangedPaths(ctx, root)
	if err != nil || len(paths) == 0 {
		return time.Time{}, false
	}
	var latest time.Time
	found := false
	for _, rel := range paths {
		info, err := os.Stat(filepath.Join(root, rel))
		if err != nil {
			continue
		}
		if !found || info.ModTime().After(latest) {
			latest = info.ModTime()
			found = true
		}
	}
	return latest, found
}
