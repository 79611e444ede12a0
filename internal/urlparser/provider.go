package urlparser

import (
	"strings"

	"github.com/browserup/sorcery-desktop/internal/gitops"
)

// parseProviderPassthrough handles the second path shape: a pasted
// forge URL whose first segment looks like a hostname (contains a
// dot) and has at least three "/"-separated segments. It recognizes
// GitHub, GitLab, Bitbucket, Gitea/Codeberg and Azure DevOps blob/file
// URL conventions; anything else degrades to a generic host/repo/path
// passthrough that the resolver can still offer to open in a browser.
func parseProviderPassthrough(segments []string, query map[string]string, fragment, workspaceOverride string) (*Request, error) {
	if len(segments) < 3 {
		return nil, ErrInvalidURL
	}
	host := segments[0]
	rest := segments[1:]

	req := &Request{
		Kind:              KindProviderPassthrough,
		ProviderHost:      host,
		ProviderPath:      strings.Join(segments, "/"),
		WorkspaceOverride: workspaceOverride,
		Fragment:          fragment,
		Remote:            query["remote"],
	}

	switch {
	case strings.Contains(host, "gitlab"):
		parseGitLabStyle(req, rest)
	case strings.Contains(host, "bitbucket"):
		parseBitbucketStyle(req, rest)
	case strings.Contains(host, "dev.azure.com") || strings.Contains(host, "visualstudio.com"):
		parseAzureDevOpsStyle(req, rest, query)
	case strings.Contains(host, "gitea") || strings.Contains(host, "codeberg"):
		parseGiteaStyle(req, rest)
	case strings.Contains(host, "github"):
		parseGitHubStyle(req, rest)
	default:
		// Unrecognized forge: keep the bare repo segment best-effort and
		// leave FilePath empty. The protocol handler then opens the root of
		// a workspace named after the repo, or falls back to OpenInBrowser
		// when none resolves.
		if len(rest) >= 2 {
			req.Repo = rest[1]
		}
	}

	// Azure DevOps carries its line number in a query parameter, already
	// applied above; every other forge encodes it in the fragment.
	if req.Line == nil {
		req.Line, req.Column = parseFragmentLine(fragment)
	}
	return req, nil
}

// findKindSegment returns the index of the first segment equal to one
// of kinds, or -1.
func findKindSegment(segs []string, kinds ...string) int {
	for i, s := range segs {
		for _, k := range kinds {
			if s == k {
				return i
			}
		}
	}
	return -1
}

// parseGitHubStyle handles owner/repo/{blob,tree,blame,raw}/ref/path...
func parseGitHubStyle(req *Request, segs []string) {
	if len(segs) < 2 {
		return
	}
	req.Repo = segs[1]
	idx := findKindSegment(segs, "blob", "tree", "blame", "raw")
	if idx < 0 || idx+1 >= len(segs) {
		return
	}
	ref := segs[idx+1]
	req.GitRef = &gitops.GitRef{Kind: gitops.RefBranch, Value: ref}
	if idx+2 <= len(segs) {
		req.FilePath = strings.Join(segs[idx+2:], "/")
	}
}

// parseGitLabStyle handles (possibly nested) group/.../project/-/
// {blob,tree,blame,raw}/ref/path...
func parseGitLabStyle(req *Request, segs []string) {
	dashIdx := -1
	for i, s := range segs {
		if s == "-" {
			dashIdx = i
			break
		}
	}
	if dashIdx < 1 || dashIdx+2 >= len(segs) {
		if len(segs) >= 2 {
			req.Repo = segs[1]
		}
		return
	}
	req.Repo = segs[dashIdx-1]
	ref := segs[dashIdx+2]
	req.GitRef = &gitops.GitRef{Kind: gitops.RefBranch, Value: ref}
	if dashIdx+3 <= len(segs) {
		req.FilePath = strings.Join(segs[dashIdx+3:], "/")
	}
}

// parseBitbucketStyle handles workspace/repo/src/ref/path...
func parseBitbucketStyle(req *Request, segs []string) {
	if len(segs) < 2 {
		return
	}
	req.Repo = segs[1]
	idx := findKindSegment(segs, "src")
	if idx < 0 || idx+1 >= len(segs) {
		return
	}
	ref := segs[idx+1]
	req.GitRef = &gitops.GitRef{Kind: gitops.RefBranch, Value: ref}
	if idx+2 <= len(segs) {
		req.FilePath = strings.Join(segs[idx+2:], "/")
	}
}

// parseGiteaStyle handles owner/repo/src/{branch,tag,commit}/ref/path...
// which also covers Codeberg, a Gitea instance.
func parseGiteaStyle(req *Request, segs []string) {
	if len(segs) < 2 {
		return
	}
	req.Repo = segs[1]
	idx := findKindSegment(segs, "src")
	if idx < 0 || idx+2 >= len(segs) {
		return
	}
	kindWord := segs[idx+1]
	ref := segs[idx+2]
	kind := gitops.RefBranch
	switch kindWord {
	case "tag":
		kind = gitops.RefTag
	case "commit":
		kind = gitops.RefCommit
	}
	req.GitRef = &gitops.GitRef{Kind: kind, Value: ref}
	if idx+3 <= len(segs) {
		req.FilePath = strings.Join(segs[idx+3:], "/")
	}
}

// parseAzureDevOpsStyle handles org[/project]/_git/repo with the file
// path, branch/tag/commit and line number carried in query parameters
// rather than the URL path.
func parseAzureDevOpsStyle(req *Request, segs []string, query map[string]string) {
	idx := findKindSegment(segs, "_git")
	if idx < 0 || idx+1 >= len(segs) {
		return
	}
	req.Repo = segs[idx+1]

	if p, ok := query["path"]; ok {
		req.FilePath = strings.TrimPrefix(p, "/")
	}
	if v, ok := query["version"]; ok && len(v) >= 2 {
		ref := v[2:]
		switch v[:2] {
		case "GB":
			req.GitRef = &gitops.GitRef{Kind: gitops.RefBranch, Value: ref}
		case "GT":
			req.GitRef = &gitops.GitRef{Kind: gitops.RefTag, Value: ref}
		case "GC":
			req.GitRef = &gitops.GitRef{Kind: gitops.RefCommit, Value: ref}
		}
	}
	if l, ok := query["line"]; ok {
		if n, ok := parseNonNegativeInt(l); ok {
			req.Line = &n
		}
	}
}

// parseFragmentLine extracts a line (and, for GitHub-style fragments, a
// column) from a URL fragment. Recognizes "#L42", "#L42-L50",
// "#L42C5" (GitHub/GitLab/Gitea/Codeberg) and "#lines-5:10" /
// "#lines-5-10" (Bitbucket).
func parseFragmentLine(fragment string) (*int, *int) {
	if fragment == "" {
		return nil, nil
	}

	if strings.HasPrefix(fragment, "L") {
		rest := fragment[1:]
		if idx := strings.Index(rest, "-L"); idx >= 0 {
			rest = rest[:idx]
		}
		if idx := strings.IndexByte(rest, 'C'); idx >= 0 {
			lineStr, colStr := rest[:idx], rest[idx+1:]
			if line, ok := parseNonNegativeInt(lineStr); ok {
				l := line
				var colPtr *int
				if col, ok := parseNonNegativeInt(colStr); ok && col <= MaxColumn {
					c := col
					colPtr = &c
				}
				return &l, colPtr
			}
			return nil, nil
		}
		if line, ok := parseNonNegativeInt(rest); ok {
			l := line
			return &l, nil
		}
		return nil, nil
	}

	if strings.HasPrefix(fragment, "lines-") {
		rest := strings.ReplaceAll(fragment[len("lines-"):], ":", "-")
		parts := strings.SplitN(rest, "-", 2)
		if line, ok := parseNonNegativeInt(parts[0]); ok {
			l := line
			return &l, nil
		}
	}

	return nil, nil
}
