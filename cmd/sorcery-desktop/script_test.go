package main

import (
	"bytes"
	"context"
	"os"
	"testing"

	"rsc.io/script"
	"rsc.io/script/scripttest"
)

// sorceryCmd wires the built cobra tree into the script engine as a single
// command, the way testscript-style harnesses usually expose a program
// under test: each invocation resets the command's output buffers and args,
// then runs it in-process rather than forking a child process.
func sorceryCmd() script.Cmd {
	return script.Command(
		script.CmdUsage{
			Summary: "run a sorcery-desktop subcommand",
			Args:    "subcommand [args...]",
		},
		func(s *script.State, args ...string) (script.WaitFunc, error) {
			// os.UserConfigDir reads real process env, not the script
			// engine's virtual one, so mirror HOME/XDG_CONFIG_HOME across
			// before running a subcommand that resolves a config dir.
			os.Setenv("HOME", s.Getenv("HOME"))
			os.Setenv("XDG_CONFIG_HOME", s.Getenv("XDG_CONFIG_HOME"))

			var stdout, stderr bytes.Buffer
			rootCmd.SetOut(&stdout)
			rootCmd.SetErr(&stderr)
			rootCmd.SetArgs(args)
			runErr := rootCmd.ExecuteContext(s.Context())
			wait := func(*script.State) (string, string, error) {
				return stdout.String(), stderr.String(), runErr
			}
			return wait, nil
		},
	)
}

// newScriptEngine returns the default file/exec command set plus the
// in-process "sorcery" command the testdata scripts drive.
func newScriptEngine() *script.Engine {
	cmds := scripttest.DefaultCmds()
	cmds["sorcery"] = sorceryCmd()
	return &script.Engine{
		Cmds:  cmds,
		Conds: scripttest.DefaultConds(),
	}
}

// TestScripts drives the CLI end to end through testdata/script/*.txt:
// each file is a scripted sequence of "sorcery <subcommand> ..." calls
// plus assertions on stdout/stderr, isolated to a per-test HOME/XDG
// config dir so discover/log never touch the real user's settings.yaml.
func TestScripts(t *testing.T) {
	engine := newScriptEngine()
	env := []string{
		"HOME=" + t.TempDir(),
		"XDG_CONFIG_HOME=",
	}
	ctx := context.Background()
	scripttest.Test(t, ctx, engine, env, "testdata/script/*.txt")
}

// TestMain runs the package's tests as they are. Config dir isolation
// happens per script instead: TestScripts gives each script a scratch
// HOME, and the sorcery command copies it into the process environment
// before running, since buildCollaborators and settings.Load both
// resolve paths off os.UserConfigDir rather than an injectable root.
func TestMain(m *testing.M) {
	os.Exit(m.Run())
}
