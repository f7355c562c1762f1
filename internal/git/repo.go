// Package git inspects the local repository the tool is started from, so the
// repo panel can preselect the host, repository and base branch.
package git

import (
	"fmt"
	"net/url"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"tekshila/internal/model"
)

func open(dir string) (*gogit.Repository, error) {
	repo, err := gogit.PlainOpenWithOptions(dir, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open repository at %s: %w", dir, err)
	}
	return repo, nil
}

// RepoRoot returns the absolute path of the repository containing dir.
func RepoRoot(dir string) (string, error) {
	repo, err := open(dir)
	if err != nil {
		return "", err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("worktree: %w", err)
	}
	return wt.Filesystem.Root(), nil
}

// OriginURL returns the first URL of the "origin" remote.
func OriginURL(dir string) (string, error) {
	repo, err := open(dir)
	if err != nil {
		return "", err
	}
	remote, err := repo.Remote("origin")
	if err != nil {
		return "", fmt.Errorf("origin remote: %w", err)
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", fmt.Errorf("origin remote has no URL")
	}
	return urls[0], nil
}

// DefaultBranch returns the branch refs/remotes/origin/HEAD points at.
// Falls back to "main" if it cannot be determined.
func DefaultBranch(dir string) string {
	repo, err := open(dir)
	if err != nil {
		return "main"
	}
	ref, err := repo.Reference(plumbing.NewRemoteHEADReferenceName("origin"), false)
	if err != nil || ref.Type() != plumbing.SymbolicReference {
		return "main"
	}
	// target is "refs/remotes/origin/main": strip the remote prefix
	short := ref.Target().Short()
	if _, after, ok := strings.Cut(short, "/"); ok && after != "" {
		return after
	}
	return "main"
}

// RepoFromRemote extracts "owner/name" from an https or scp-style remote URL.
func RepoFromRemote(remote string) (host string, id model.RepoID, ok bool) {
	remote = strings.TrimSpace(remote)
	var path string
	switch {
	case strings.Contains(remote, "://"):
		u, err := url.Parse(remote)
		if err != nil {
			return "", "", false
		}
		host, path = u.Hostname(), u.Path
	case strings.Contains(remote, ":"):
		// git@github.com:owner/name.git
		h, p, _ := strings.Cut(remote, ":")
		if _, after, found := strings.Cut(h, "@"); found {
			h = after
		}
		host, path = h, p
	default:
		return "", "", false
	}
	path = strings.TrimSuffix(strings.Trim(path, "/"), ".git")
	if !strings.Contains(path, "/") {
		return "", "", false
	}
	return strings.ToLower(host), model.RepoID(path), true
}

// BranchToSlug normalises a name into a branch-safe slug.
func BranchToSlug(branch string) string {
	if branch == "" {
		return "unknown"
	}
	s := strings.ToLower(strings.TrimSpace(branch))
	s = strings.ReplaceAll(s, "/", "-")
	s = strings.Join(strings.Fields(s), "-")
	return s
}
