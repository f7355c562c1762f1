package forge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/google/uuid"

	"tekshila/internal/git"
	"tekshila/internal/model"
)

// Host abstracts the repository-hosting operations the pipeline needs.
type Host interface {
	Kind() string // "github" | "gitlab" | "offline"
	Authenticate(ctx context.Context, token string) (model.Identity, error)
	ListRepositories(ctx context.Context, conn model.Connection) ([]model.RepoID, error)
	ListBranches(ctx context.Context, conn model.Connection, repo model.RepoID) ([]string, error)
	SubmitChange(ctx context.Context, conn model.Connection, req ChangeRequest) (model.ChangeRequestRef, error)
}

// ChangeRequest is everything needed to open a pull/merge request.
type ChangeRequest struct {
	Repo          model.RepoID
	BaseBranch    string
	HeadBranch    string // created from BaseBranch's head
	Title         string
	Body          string
	CommitMessage string
	Files         []model.ArtifactFile
}

// ErrUnauthorized marks a rejected or expired token.
var ErrUnauthorized = errors.New("unauthorized")

// runner executes a host CLI. env entries are appended to the process env.
type runner func(ctx context.Context, env []string, stdin []byte, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, env []string, stdin []byte, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), env...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		msg := trimOutput(stderr.Bytes())
		if looksUnauthorized(msg) {
			return nil, fmt.Errorf("%s %s: %s: %w", name, strings.Join(args[:min(2, len(args))], " "), msg, ErrUnauthorized)
		}
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("%s %s: %s", name, strings.Join(args[:min(2, len(args))], " "), msg)
	}
	return out, nil
}

func looksUnauthorized(msg string) bool {
	m := strings.ToLower(msg)
	return strings.Contains(m, "401") || strings.Contains(m, "bad credentials") || strings.Contains(m, "unauthorized")
}

// decodePages decodes one or more concatenated JSON arrays, which is what
// paginated `gh api` / `glab api` calls print.
func decodePages[T any](out []byte) ([]T, error) {
	var all []T
	dec := json.NewDecoder(bytes.NewReader(out))
	for {
		var page []T
		if err := dec.Decode(&page); err != nil {
			if errors.Is(err, io.EOF) {
				return all, nil
			}
			return nil, fmt.Errorf("decode page: %w", err)
		}
		all = append(all, page...)
	}
}

// Options configures Detect.
type Options struct {
	Kind       string // "auto", "offline", "github", "gitlab"
	HeadPrefix string // prefix for created head branches, e.g. "auto-docs-"
}

// Detection is the result of inspecting the working directory.
type Detection struct {
	Host          Host
	Repo          model.RepoID // empty when the origin remote is unrecognised
	DefaultBranch string
}

// Detect returns the Host for opts.Kind. With "auto" it inspects the origin
// remote of the repository at dir and falls back to the offline host.
func Detect(dir string, opts Options) Detection {
	switch opts.Kind {
	case "github":
		return Detection{Host: NewGitHub(), DefaultBranch: git.DefaultBranch(dir)}
	case "gitlab":
		return Detection{Host: NewGitLab(), DefaultBranch: git.DefaultBranch(dir)}
	case "offline":
		return Detection{Host: NewOffline(), DefaultBranch: "main"}
	}

	remote, err := git.OriginURL(dir)
	if err != nil {
		return Detection{Host: NewOffline(), DefaultBranch: "main"}
	}
	hostName, repo, ok := git.RepoFromRemote(remote)
	if !ok {
		return Detection{Host: NewOffline(), DefaultBranch: "main"}
	}
	d := Detection{Repo: repo, DefaultBranch: git.DefaultBranch(dir)}
	switch {
	case strings.Contains(hostName, "github"):
		d.Host = NewGitHub()
	case strings.Contains(hostName, "gitlab"):
		d.Host = NewGitLab()
	default:
		d.Host = NewOffline()
		d.Repo = ""
	}
	return d
}

// HeadBranchName returns a fresh branch name such as "auto-docs-1a2b3c4d".
func HeadBranchName(prefix string) string {
	if prefix == "" {
		prefix = "auto-docs-"
	}
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return git.BranchToSlug(prefix) + id[:8]
}

// Suggest returns the candidate closest to name, or "" when nothing is
// reasonably close.
func Suggest(name model.RepoID, candidates []model.RepoID) model.RepoID {
	target := strings.ToLower(string(name))
	type scored struct {
		id   model.RepoID
		dist int
	}
	var best []scored
	for _, c := range candidates {
		d := levenshtein.ComputeDistance(target, strings.ToLower(string(c)))
		best = append(best, scored{c, d})
	}
	if len(best) == 0 {
		return ""
	}
	sort.SliceStable(best, func(i, j int) bool { return best[i].dist < best[j].dist })
	// more than half the name rewritten is not a typo
	if best[0].dist > max(3, len(target)/2) {
		return ""
	}
	return best[0].id
}

func trimOutput(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		return s[:200] + "…"
	}
	return s
}
