package mru

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// snapshotProcessCwds enumerates every running process's working
// directory. Processes that can't be inspected (permission denied,
// already exited) are silently skipped; the signal degrades to "no
// match" rather than failing the whole poll.
func snapshotProcessCwds() []string {
	procs, err := process.Processes()
	if err != nil {
		return nil
	}
	cwds := make([]string, 0, len(procs))
	for _, p := range procs {
		cwd, err := p.Cwd()
		if err != nil || cwd == "" {
			continue
		}
		cwds = append(cwds, cwd)
	}
	return cwds
}

// processSignal reports the current time if any snapshotted process
// has a working directory inside root.
func processSignal(root string, cwds []string) (time.Time, bool) {
	canonRoot, err := filepath.Abs(root)
	if err != nil {
		return time.Time{}, false
	}
	canonRoot = filepath.Clean(canonRoot)
	for _, cwd := range cwds {
		c := filepath.Clean(cwd)
		if c == canonRoot || strings.HasPrefix(c, canonRoot+string(filepath.Separator)) {
			return time.Now(), true
		}
	}
	return time.Time{}, false
}
