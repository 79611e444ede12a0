// Package gitops implements revision validation, extraction, checkout,
// clone, worktree and status operations by shelling out to the git
// binary. Every shell-out is logged via internal/cmdlog with its
// working directory, arguments, exit code, stdout, stderr and duration.
package gitops

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/browserup/sorcery-desktop/internal/cmdlog"
	"github.com/browserup/sorcery-desktop/internal/sanitize"
)

// Sentinel errors returned by the operations below; wrap with
// fmt.Errorf("...: %w", ...) and unwrap with errors.Is.
var (
	ErrRevisionInvalid       = errors.New("revision invalid")
	ErrFileMissingAtRevision = errors.New("file missing at revision")
	ErrTooLarge              = errors.New("file too large")
	ErrGitOpBlocked          = errors.New("git operation blocked")
	ErrWorkingTreeDirty      = errors.New("working tree dirty")
	ErrTargetExists          = errors.New("clone target already exists")
)

// maxFileSize caps how much of a revisioned file ReadFileAtRev returns.
const maxFileSize = 10 * 1024 * 1024

// maxWorktreesPerProject is the per-project LRU cap for create_worktree.
const maxWorktreesPerProject = 3

// GitRefKind tags the three forms a git reference parameter can take.
type GitRefKind int

const (
	RefCommit GitRefKind = iota
	RefBranch
	RefTag
)

// GitRef is the tagged {Commit|Branch|Tag} variant from the data model.
type GitRef struct {
	Kind  GitRefKind
	Value string
}

func (r GitRef) String() string { return r.Value }

// WorkingTreeStatus reports the parsed result of `git status --porcelain`.
type WorkingTreeStatus struct {
	IsClean        bool
	ModifiedCount  int
	UntrackedCount int
}

// OperationState reports whether a merge/rebase/cherry-pick/bisect is in
// progress in the given repository.
type OperationState struct {
	IsBlocked bool
	Reason    string
}

// Ops wraps git command execution, logging every invocation through
// cmdlog. The repository is passed to each operation.
type Ops struct {
	log *cmdlog.Log
}

// New returns an Ops instance backed by the given command log.
func New(log *cmdlog.Log) *Ops {
	return &Ops{log: log}
}

func (o *Ops) run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	start := time.Now()
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	dur := time.Since(start)

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = -1
		}
	}

	if o.log != nil {
		o.log.LogCommand(cmdlog.KindGit, "git", args, dir, exitCode, stdout.String(), stderr.String(), dur)
	}

	if err != nil {
		return stdout.Bytes(), fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, stderr.String())
	}
	return stdout.Bytes(), nil
}

// ValidateRevision runs `git rev-parse --verify <rev>`.
func (o *Ops) ValidateRevision(ctx context.Context, repo, rev string) error {
	if _, err := o.run(ctx, repo, "rev-parse", "--verify", rev); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrRevisionInvalid, rev, err)
	}
	return nil
}

// FileExistsAtRev runs `git cat-file -e <rev>:<path>`.
func (o *Ops) FileExistsAtRev(ctx context.Context, repo, rev, path string) bool {
	_, err := o.run(ctx, repo, "cat-file", "-e", rev+":"+path)
	return err == nil
}

// ReadFileAtRev extracts a file's content from a revision, requiring
// valid UTF-8 and capping at 10 MiB.
func (o *Ops) ReadFileAtRev(ctx context.Context, repo, rev, path string) ([]byte, error) {
	if !o.FileExistsAtRev(ctx, repo, rev, path) {
		return nil, fmt.Errorf("%w: %s at %s", ErrFileMissingAtRevision, path, rev)
	}
	out, err := o.run(ctx, repo, "show", rev+":"+path)
	if err != nil {
		return nil, err
	}
	if len(out) > maxFileSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(out))
	}
	if !utf8.Valid(out) {
		return nil, fmt.Errorf("file %s at %s is not valid UTF-8", path, rev)
	}
	return out, nil
}

// GetRevisionInfo returns a single-line summary, "%h - %s (%an, %ar)".
func (o *Ops) GetRevisionInfo(ctx context.Context, repo, rev string) (string, error) {
	out, err := o.run(ctx, repo, "log", "-1", "--pretty=format:%h - %s (%an, %ar)", rev)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// CurrentRef returns the current branch name, or the short commit hash
// when HEAD is detached.
func (o *Ops) CurrentRef(ctx context.Context, repo string) (string, error) {
	out, err := o.run(ctx, repo, "symbolic-ref", "--short", "HEAD")
	if err == nil {
		return strings.TrimSpace(string(out)), nil
	}
	out, err = o.run(ctx, repo, "rev-parse", "--short", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// WorkingTreeStatus parses `git status --porcelain`.
func (o *Ops) WorkingTreeStatus(ctx context.Context, repo string) (WorkingTreeStatus, error) {
	out, err := o.run(ctx, repo, "status", "--porcelain")
	if err != nil {
		return WorkingTreeStatus{}, err
	}
	trimmed := strings.TrimRight(string(out), "\n")
	if trimmed == "" {
		return WorkingTreeStatus{IsClean: true}, nil
	}
	var modified, untracked int
	for _, line := range strings.Split(trimmed, "\n") {
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "??") {
			untracked++
		} else {
			modified++
		}
	}
	return WorkingTreeStatus{IsClean: false, ModifiedCount: modified, UntrackedCount: untracked}, nil
}

// ChangedPaths returns repo-relative paths reported by `git status
// --porcelain` as modified, added, deleted, typechanged or renamed,
// staged or unstaged, plus untracked top-level files. It excludes
// submodule entries. Used by the workspace activity tracker to find
// the most recently touched uncommitted file.
func (o *Ops) ChangedPaths(ctx context.Context, repo string) ([]string, error) {
	out, err := o.run(ctx, repo, "status", "--porcelain", "--no-renames", "--ignore-submodules=all")
	if err != nil {
		return nil, err
	}
	trimmed := strings.TrimRight(string(out), "\n")
	if trimmed == "" {
		return nil, nil
	}
	var paths []string
	for _, line := range strings.Split(trimmed, "\n") {
		if len(line) < 4 {
			continue
		}
		status := line[:2]
		rel := strings.TrimSpace(line[3:])
		if strings.Contains(status, "S") {
			continue
		}
		// A renamed entry is reported as "old -> new"; only the new
		// path is still present on disk.
		if idx := strings.Index(rel, " -> "); idx >= 0 {
			rel = rel[idx+4:]
		}
		paths = append(paths, rel)
	}
	return paths, nil
}

// opStateSentinels are the .git/ markers that indicate an in-progress
// merge, cherry-pick, bisect, or rebase.
var opStateSentinels = []struct {
	rel    string
	reason string
}{
	{"MERGE_HEAD", "merge in progress"},
	{"CHERRY_PICK_HEAD", "cherry-pick in progress"},
	{"BISECT_LOG", "bisect in progress"},
	{"REBASE_HEAD", "rebase in progress"},
	{"rebase-merge", "rebase in progress"},
	{"rebase-apply", "rebase in progress"},
}

// CheckOpState examines .git/ for merge/rebase/cherry-pick/bisect
// sentinels.
func (o *Ops) CheckOpState(repo string) (OperationState, error) {
	gitDir, err := o.resolveGitDir(repo)
	if err != nil {
		return OperationState{}, err
	}
	for _, s := range opStateSentinels {
		if _, err := os.Stat(filepath.Join(gitDir, s.rel)); err == nil {
			return OperationState{IsBlocked: true, Reason: s.reason}, nil
		}
	}
	return OperationState{}, nil
}

// resolveGitDir returns the .git directory, following the gitdir: file
// that worktrees and submodules use.
func (o *Ops) resolveGitDir(repo string) (string, error) {
	gitPath := filepath.Join(repo, ".git")
	info, err := os.Stat(gitPath)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return gitPath, nil
	}
	data, err := os.ReadFile(gitPath)
	if err != nil {
		return "", err
	}
	content := strings.TrimSpace(string(data))
	const prefix = "gitdir: "
	if !strings.HasPrefix(content, prefix) {
		return "", fmt.Errorf("unrecognized .git file format")
	}
	dir := strings.TrimPrefix(content, prefix)
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(repo, dir)
	}
	return dir, nil
}

// Checkout refuses if op-state is blocked or the working tree is dirty;
// otherwise runs `git checkout <rev>`.
func (o *Ops) Checkout(ctx context.Context, repo, rev string) error {
	opState, err := o.CheckOpState(repo)
	if err != nil {
		return err
	}
	if opState.IsBlocked {
		return fmt.Errorf("%w: %s", ErrGitOpBlocked, opState.Reason)
	}
	status, err := o.WorkingTreeStatus(ctx, repo)
	if err != nil {
		return err
	}
	if !status.IsClean {
		return fmt.Errorf("%w: %d modified file(s) in working tree", ErrWorkingTreeDirty, status.ModifiedCount)
	}
	_, err = o.run(ctx, repo, "checkout", rev)
	return err
}

// Clone clones remote into target. Refuses if target already exists.
// target is re-validated against the same sanitizer rules an opened
// file goes through, since the clone dialog lets the user edit it
// after the original request was already sanitized.
func (o *Ops) Clone(ctx context.Context, remote, target string, ref *GitRef) error {
	clean, err := sanitize.ValidateNewPath(target)
	if err != nil {
		return fmt.Errorf("clone target rejected: %w", err)
	}
	target = clean

	if _, err := os.Stat(target); err == nil {
		return fmt.Errorf("%w: %s", ErrTargetExists, target)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0750); err != nil {
		return fmt.Errorf("creating parent directory: %w", err)
	}

	url := remote
	if !strings.Contains(url, "://") && !strings.HasPrefix(url, "git@") {
		url = "https://" + url
	}

	args := []string{"clone"}
	switch {
	case ref == nil:
		// Default branch.
	case ref.Kind == RefBranch || ref.Kind == RefTag:
		args = append(args, "--branch", ref.Value)
	case ref.Kind == RefCommit:
		args = append(args, "--no-checkout")
	}
	args = append(args, url, target)

	if _, err := o.run(ctx, "", args...); err != nil {
		return err
	}

	if ref != nil && ref.Kind == RefCommit {
		if _, err := o.run(ctx, target, "checkout", ref.Value); err != nil {
			return err
		}
	}
	return nil
}

// sanitizeComponent replaces filesystem-hostile characters with "-" for
// use in worktree directory names.
func sanitizeComponent(s string) string {
	replacer := strings.NewReplacer(
		"/", "-", `\`, "-", ":", "-", "*", "-", "?", "-",
		`"`, "-", "<", "-", ">", "-", "|", "-",
	)
	return replacer.Replace(s)
}

// WorktreesRoot returns ~/.sorcery/worktrees.
func WorktreesRoot() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".sorcery", "worktrees"), nil
}

// CreateWorktree materializes a worktree for ref under
// ~/.sorcery/worktrees/<project>/<ref>/, reusing an existing healthy
// worktree and enforcing a per-project LRU cap of 3.
func (o *Ops) CreateWorktree(ctx context.Context, repo, project, ref string) (string, error) {
	root, err := WorktreesRoot()
	if err != nil {
		return "", err
	}
	projectDir := filepath.Join(root, sanitizeComponent(project))
	target := filepath.Join(projectDir, sanitizeComponent(ref))

	if _, err := os.Stat(filepath.Join(target, ".git")); err == nil {
		now := time.Now()
		_ = os.Chtimes(target, now, now)
		return target, nil
	}

	if err := o.enforceWorktreeLRU(ctx, repo, projectDir, 1); err != nil {
		return "", err
	}
	if err := os.MkdirAll(projectDir, 0750); err != nil {
		return "", err
	}

	if _, err := o.run(ctx, repo, "worktree", "add", target, ref); err != nil {
		if strings.Contains(err.Error(), "already checked out") || strings.Contains(err.Error(), "already used") {
			hash, resolveErr := o.resolveToCommit(ctx, repo, ref)
			if resolveErr != nil {
				return "", err
			}
			if _, err2 := o.run(ctx, repo, "worktree", "add", "--detach", target, hash); err2 != nil {
				return "", err2
			}
			return target, nil
		}
		return "", err
	}
	return target, nil
}

func (o *Ops) resolveToCommit(ctx context.Context, repo, ref string) (string, error) {
	out, err := o.run(ctx, repo, "rev-parse", ref)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// enforceWorktreeLRU removes the oldest worktrees under projectDir
// until there is room for `incoming` more, capping the project at
// maxWorktreesPerProject total.
func (o *Ops) enforceWorktreeLRU(ctx context.Context, repo, projectDir string, incoming int) error {
	entries, err := os.ReadDir(projectDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	type dirInfo struct {
		path  string
		mtime time.Time
	}
	var dirs []dirInfo
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		dirs = append(dirs, dirInfo{path: filepath.Join(projectDir, e.Name()), mtime: info.ModTime()})
	}
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].mtime.Before(dirs[j].mtime) })

	for len(dirs) > maxWorktreesPerProject-incoming {
		oldest := dirs[0]
		dirs = dirs[1:]
		if _, err := o.run(ctx, repo, "worktree", "remove", "--force", oldest.path); err != nil {
			_ = os.RemoveAll(oldest.path)
		}
		_, _ = o.run(ctx, repo, "worktree", "prune")
	}
	return nil
}

// ShouldSkipRevisionDialog reports true iff currentRef == rev or
// "origin/"+currentRef == rev.
func ShouldSkipRevisionDialog(currentRef, rev string) bool {
	return currentRef == rev || "origin/"+currentRef == rev
}

// FindGitRoot walks up from start looking for a directory containing
// .git, returning "" if none is found before reaching the filesystem
// root.
func FindGitRoot(start string) string {
	dir, err := filepath.Abs(start)
	if err != nil {
		dir = start
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// ParseLine parses a numeric string into a line number, or returns 0 if
// it isn't a valid non-negative integer.
func ParseLine(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
