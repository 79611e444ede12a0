//go:build windows

package activeeditor

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32                = windows.NewLazySystemDLL("user32.dll")
	procGetForegroundHWND = user32.NewProc("GetForegroundWindow")
	procGetWindowTextW    = user32.NewProc("GetWindowTextW")
)

// foregroundWindowTitle asks user32 directly for the foreground window's
// title, avoiding a powershell.exe spawn per poll tick.
func foregroundWindowTitle() (string, bool) {
	hwnd, _, _ := procGetForegroundHWND.Call()
	if hwnd == 0 {
		return "", false
	}
	buf := make([]uint16, 512)
	n, _, _ := procGetWindowTextW.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	if n == 0 {
		return "", false
	}
	return windows.UTF16ToString(buf[:n]), true
}
