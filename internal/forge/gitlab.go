package forge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"tekshila/internal/model"
)

type gitLab struct {
	run runner
}

// NewGitLab returns a Host backed by the glab CLI.
func NewGitLab() Host { return &gitLab{run: execRunner} }

func (g *gitLab) Kind() string { return "gitlab" }

// glabUser mirrors the fields we care about from GET /user.
type glabUser struct {
	Username string `json:"username"`
	Name     string `json:"name"`
}

type glabProject struct {
	PathWithNamespace string `json:"path_with_namespace"`
}

type glabBranch struct {
	Name string `json:"name"`
}

type glabAction struct {
	Action   string `json:"action"` // "create" | "update"
	FilePath string `json:"file_path"`
	Content  string `json:"content"`
}

type glabCommit struct {
	Branch        string       `json:"branch"`
	CommitMessage string       `json:"commit_message"`
	Actions       []glabAction `json:"actions"`
}

type glabMR struct {
	IID    int    `json:"iid"`
	WebURL string `json:"web_url"`
}

func (g *gitLab) api(ctx context.Context, token string, body any, args ...string) ([]byte, error) {
	var stdin []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		stdin = b
		args = append(args, "--header", "Content-Type: application/json", "--input", "-")
	}
	return g.run(ctx, []string{"GITLAB_TOKEN=" + token}, stdin, "glab", append([]string{"api"}, args...)...)
}

// projectPath is the URL-encoded project id GitLab accepts in place of a number.
func projectPath(repo model.RepoID) string {
	return "projects/" + url.PathEscape(string(repo))
}

func (g *gitLab) Authenticate(ctx context.Context, token string) (model.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	out, err := g.api(ctx, token, nil, "user")
	if err != nil {
		return model.Identity{}, err
	}
	var u glabUser
	if err := json.Unmarshal(out, &u); err != nil {
		return model.Identity{}, fmt.Errorf("decode user: %w", err)
	}
	if u.Username == "" {
		return model.Identity{}, fmt.Errorf("gitlab returned no username: %w", ErrUnauthorized)
	}
	return model.Identity{Handle: u.Username, DisplayName: u.Name}, nil
}

func (g *gitLab) ListRepositories(ctx context.Context, conn model.Connection) ([]model.RepoID, error) {
	ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	out, err := g.api(ctx, conn.Token, nil, "--paginate", "projects?membership=true&per_page=100&order_by=last_activity_at")
	if err != nil {
		return nil, err
	}
	projects, err := decodePages[glabProject](out)
	if err != nil {
		return nil, err
	}
	ids := make([]model.RepoID, 0, len(projects))
	for _, p := range projects {
		ids = append(ids, model.RepoID(p.PathWithNamespace))
	}
	return ids, nil
}

func (g *gitLab) ListBranches(ctx context.Context, conn model.Connection, repo model.RepoID) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	out, err := g.api(ctx, conn.Token, nil, "--paginate", projectPath(repo)+"/repository/branches?per_page=100")
	if err != nil {
		return nil, err
	}
	branches, err := decodePages[glabBranch](out)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(branches))
	for _, b := range branches {
		names = append(names, b.Name)
	}
	return names, nil
}

// SubmitChange creates the head branch, commits every file in one commit and
// opens a merge request.
func (g *gitLab) SubmitChange(ctx context.Context, conn model.Connection, req ChangeRequest) (model.ChangeRequestRef, error) {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	if len(req.Files) == 0 {
		return model.ChangeRequestRef{}, fmt.Errorf("no content provided for merge request")
	}
	project := projectPath(req.Repo)

	if _, err := g.api(ctx, conn.Token, map[string]string{
		"branch": req.HeadBranch,
		"ref":    req.BaseBranch,
	}, "-X", "POST", project+"/repository/branches"); err != nil {
		return model.ChangeRequestRef{}, fmt.Errorf("cannot create branch %q from %q: %w", req.HeadBranch, req.BaseBranch, err)
	}

	commit := glabCommit{Branch: req.HeadBranch, CommitMessage: req.CommitMessage}
	for _, f := range req.Files {
		action := "create"
		if _, err := g.api(ctx, conn.Token, nil, fmt.Sprintf("%s/repository/files/%s?ref=%s", project, url.PathEscape(f.Path), url.QueryEscape(req.HeadBranch))); err == nil {
			action = "update"
		}
		commit.Actions = append(commit.Actions, glabAction{Action: action, FilePath: f.Path, Content: f.Body})
	}
	if _, err := g.api(ctx, conn.Token, commit, "-X", "POST", project+"/repository/commits"); err != nil {
		return model.ChangeRequestRef{}, fmt.Errorf("commit files: %w", err)
	}

	out, err := g.api(ctx, conn.Token, map[string]string{
		"source_branch": req.HeadBranch,
		"target_branch": req.BaseBranch,
		"title":         req.Title,
		"description":   req.Body,
	}, "-X", "POST", project+"/merge_requests")
	if err != nil {
		return model.ChangeRequestRef{}, fmt.Errorf("failed to create merge request: %w", err)
	}
	var mr glabMR
	if err := json.Unmarshal(out, &mr); err != nil {
		return model.ChangeRequestRef{}, fmt.Errorf("decode merge request: %w", err)
	}
	return model.ChangeRequestRef{Number: mr.IID, URL: mr.WebURL, HeadBranch: req.HeadBranch}, nil
}
