package activeeditor

import (
	"os/exec"
	"runtime"
	"strings"
)

// detectActiveEditor asks the platform for the foreground window's
// owning application or title and maps it to a known editor id.
func detectActiveEditor() (string, bool) {
	switch runtime.GOOS {
	case "darwin":
		return detectActiveEditorDarwin()
	case "windows":
		return detectActiveEditorWindows()
	default:
		return detectActiveEditorLinux()
	}
}

func detectActiveEditorDarwin() (string, bool) {
	out, err := exec.Command("osascript", "-e",
		`tell application "System Events" to get name of first application process whose frontmost is true`).Output()
	if err != nil {
		return "", false
	}
	appName := strings.ToLower(strings.TrimSpace(string(out)))
	if appName == "" {
		return "", false
	}

	if appName == "electron" {
		if editorID, ok := detectVSCodiumViaPS(); ok {
			return editorID, true
		}
	}
	if strings.Contains(appName, "iterm") || strings.Contains(appName, "terminal") {
		if editorID, ok := detectTerminalEditorViaPS(); ok {
			return editorID, true
		}
	}
	return mapMacAppNameToEditor(appName)
}

func detectVSCodiumViaPS() (string, bool) {
	out, err := exec.Command("ps", "aux").Output()
	if err != nil {
		return "", false
	}
	dump := string(out)
	if strings.Contains(dump, "VSCodium.app/Contents/MacOS/Electron") && !strings.Contains(dump, "Helper") {
		return "vscodium", true
	}
	return "", false
}

func detectTerminalEditorViaPS() (string, bool) {
	out, err := exec.Command("ps", "aux").Output()
	if err != nil {
		return "", false
	}
	dump := string(out)
	switch {
	case strings.Contains(dump, " nvim ") || strings.Contains(dump, " neovim "):
		return "neovim", true
	case strings.Contains(dump, "/vim ") || strings.Contains(dump, " vim "):
		return "vim", true
	}
	return "", false
}

func detectActiveEditorWindows() (string, bool) {
	if title, ok := foregroundWindowTitle(); ok {
		return mapWindowTitleToEditorWindows(strings.ToLower(title))
	}
	return detectActiveEditorWindowsPowershell()
}

func detectActiveEditorWindowsPowershell() (string, bool) {
	const script = `
Add-Type @"
  using System;
  using System.Runtime.InteropServices;
  public class UserWindows {
    [DllImport("user32.dll")]
    public static extern IntPtr GetForegroundWindow();
    [DllImport("user32.dll")]
    public static extern int GetWindowText(IntPtr hWnd, System.Text.StringBuilder text, int count);
  }
"@
$handle = [UserWindows]::GetForegroundWindow()
$title = New-Object System.Text.StringBuilder 512
[UserWindows]::GetWindowText($handle, $title, 512)
$title.ToString()
`
	out, err := exec.Command("powershell.exe", "-NoProfile", "-ExecutionPolicy", "Bypass", "-Command", script).Output()
	if err != nil {
		return "", false
	}
	title := strings.ToLower(strings.TrimSpace(string(out)))
	return mapWindowTitleToEditorWindows(title)
}

func detectActiveEditorLinux() (string, bool) {
	if title, ok := tryXdotool(); ok {
		return mapWindowTitleToEditorLinux(title)
	}
	if title, ok := tryWmctrl(); ok {
		return mapWindowTitleToEditorLinux(title)
	}
	return "", false
}

func tryXdotool() (string, bool) {
	out, err := exec.Command("xdotool", "getactivewindow", "getwindowname").Output()
	if err != nil {
		return "", false
	}
	return strings.ToLower(strings.TrimSpace(string(out))), true
}

func tryWmctrl() (string, bool) {
	out, err := exec.Command("wmctrl", "-a", ":ACTIVE:").Output()
	if err != nil {
		return "", false
	}
	return strings.ToLower(strings.TrimSpace(string(out))), true
}

type mapping struct {
	substr string
	id     string
}

func firstMatch(haystack string, table []mapping) (string, bool) {
	for _, m := range table {
		if strings.Contains(haystack, m.substr) {
			return m.id, true
		}
	}
	return "", false
}

func mapMacAppNameToEditor(appName string) (string, bool) {
	if appName == "code" {
		return "vscode", true
	}
	if appName == "idea" {
		return "idea", true
	}
	if strings.HasPrefix(appName, "roo ") || strings.HasSuffix(appName, " roo") || appName == "roo" {
		return "roo", true
	}
	return firstMatch(appName, []mapping{
		{"visual studio code", "vscode"},
		{"cursor", "cursor"},
		{"vscodium", "vscodium"},
		{"windsurf", "windsurf"},
		{"intellij idea", "idea"},
		{"rubymine", "rubymine"},
		{"pycharm", "pycharm"},
		{"goland", "goland"},
		{"webstorm", "webstorm"},
		{"phpstorm", "phpstorm"},
		{"rider", "rider"},
		{"rustrover", "rustrover"},
		{"clion", "clion"},
		{"datagrip", "datagrip"},
		{"appcode", "appcode"},
		{"androidstudio", "androidstudio"},
		{"android studio", "androidstudio"},
		{"fleet", "fleet"},
		{"xcode", "xcode"},
		{"eclipse", "eclipse"},
		{"neovim", "neovim"},
		{"nvim", "neovim"},
		{"macvim", "vim"},
		{"vim", "vim"},
		{"emacs", "emacs"},
		{"zed", "zed"},
		{"sublime text", "sublime"},
	})
}

func mapWindowTitleToEditorWindows(title string) (string, bool) {
	return firstMatch(title, []mapping{
		{"visual studio code", "vscode"},
		{"cursor", "cursor"},
		{"vscodium", "vscodium"},
		{"roo code", "roo"},
		{"windsurf", "windsurf"},
		{"rubymine", "rubymine"},
		{"goland", "goland"},
		{"webstorm", "webstorm"},
		{"pycharm", "pycharm"},
		{"phpstorm", "phpstorm"},
		{"rider", "rider"},
		{"rustrover", "rustrover"},
		{"clion", "clion"},
		{"datagrip", "datagrip"},
		{"intellij", "idea"},
		{"android studio", "androidstudio"},
		{"fleet", "fleet"},
		{"eclipse", "eclipse"},
		{"visual studio", "visualstudio"},
		{"zed", "zed"},
		{"sublime text", "sublime"},
		{"notepad++", "notepadplusplus"},
		{"vim", "vim"},
		{"emacs", "emacs"},
	})
}

func mapWindowTitleToEditorLinux(title string) (string, bool) {
	switch {
	case strings.Contains(title, "neovim") || strings.Contains(title, " nvim"):
		return "neovim", true
	case strings.Contains(title, "vim") && !strings.Contains(title, "nvim"):
		return "vim", true
	}
	return firstMatch(title, []mapping{
		{"visual studio code", "vscode"},
		{"cursor", "cursor"},
		{"vscodium", "vscodium"},
		{"roo code", "roo"},
		{"windsurf", "windsurf"},
		{"emacs", "emacs"},
		{"rubymine", "rubymine"},
		{"goland", "goland"},
		{"webstorm", "webstorm"},
		{"pycharm", "pycharm"},
		{"phpstorm", "phpstorm"},
		{"rider", "rider"},
		{"rustrover", "rustrover"},
		{"clion", "clion"},
		{"datagrip", "datagrip"},
		{"intellij", "idea"},
		{"android studio", "androidstudio"},
		{"fleet", "fleet"},
		{"eclipse", "eclipse"},
		{"zed", "zed"},
		{"sublime text", "sublime"},
	})
}
