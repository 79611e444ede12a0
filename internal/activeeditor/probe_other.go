//go:build !windows

package activeeditor

// foregroundWindowTitle has no non-Windows implementation; the Windows
// code path only calls it when runtime.GOOS == "windows", where this
// build is never compiled in.
func foregroundWindowTitle() (string, bool) { return "", false }
