package forge

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"tekshila/internal/model"
)

type gitHub struct {
	run runner
}

// NewGitHub returns a Host backed by the gh CLI.
func NewGitHub() Host { return &gitHub{run: execRunner} }

func (g *gitHub) Kind() string { return "github" }

// ghUser mirrors the fields we care about from GET /user.
type ghUser struct {
	Login string `json:"login"`
	Name  string `json:"name"`
}

type ghRepo struct {
	FullName string `json:"full_name"`
}

type ghBranch struct {
	Name string `json:"name"`
}

type ghRef struct {
	Object struct {
		SHA string `json:"sha"`
	} `json:"object"`
}

type ghContent struct {
	SHA string `json:"sha"`
}

type ghPull struct {
	Number  int    `json:"number"`
	HTMLURL string `json:"html_url"`
}

func (g *gitHub) api(ctx context.Context, token string, body any, args ...string) ([]byte, error) {
	var stdin []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		stdin = b
		args = append(args, "--input", "-")
	}
	return g.run(ctx, []string{"GH_TOKEN=" + token}, stdin, "gh", append([]string{"api"}, args...)...)
}

func (g *gitHub) Authenticate(ctx context.Context, token string) (model.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	out, err := g.api(ctx, token, nil, "user")
	if err != nil {
		return model.Identity{}, err
	}
	var u ghUser
	if err := json.Unmarshal(out, &u); err != nil {
		return model.Identity{}, fmt.Errorf("decode user: %w", err)
	}
	if u.Login == "" {
		return model.Identity{}, fmt.Errorf("github returned no login: %w", ErrUnauthorized)
	}
	return model.Identity{Handle: u.Login, DisplayName: u.Name}, nil
}

func (g *gitHub) ListRepositories(ctx context.Context, conn model.Connection) ([]model.RepoID, error) {
	ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	out, err := g.api(ctx, conn.Token, nil, "--paginate", "user/repos?per_page=100&sort=updated")
	if err != nil {
		return nil, err
	}
	repos, err := decodePages[ghRepo](out)
	if err != nil {
		return nil, err
	}
	ids := make([]model.RepoID, 0, len(repos))
	for _, r := range repos {
		ids = append(ids, model.RepoID(r.FullName))
	}
	return ids, nil
}

func (g *gitHub) ListBranches(ctx context.Context, conn model.Connection, repo model.RepoID) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	out, err := g.api(ctx, conn.Token, nil, "--paginate", fmt.Sprintf("repos/%s/branches?per_page=100", repo))
	if err != nil {
		return nil, err
	}
	branches, err := decodePages[ghBranch](out)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(branches))
	for _, b := range branches {
		names = append(names, b.Name)
	}
	return names, nil
}

func (g *gitHub) SubmitChange(ctx context.Context, conn model.Connection, req ChangeRequest) (model.ChangeRequestRef, error) {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	if len(req.Files) == 0 {
		return model.ChangeRequestRef{}, fmt.Errorf("no content provided for pull request")
	}

	out, err := g.api(ctx, conn.Token, nil, fmt.Sprintf("repos/%s/git/ref/heads/%s", req.Repo, req.BaseBranch))
	if err != nil {
		return model.ChangeRequestRef{}, fmt.Errorf("cannot access branch %q: %w", req.BaseBranch, err)
	}
	var base ghRef
	if err := json.Unmarshal(out, &base); err != nil {
		return model.ChangeRequestRef{}, fmt.Errorf("decode base ref: %w", err)
	}

	if _, err := g.api(ctx, conn.Token, map[string]string{
		"ref": "refs/heads/" + req.HeadBranch,
		"sha": base.Object.SHA,
	}, "-X", "POST", fmt.Sprintf("repos/%s/git/refs", req.Repo)); err != nil {
		return model.ChangeRequestRef{}, fmt.Errorf("cannot create branch %q: %w", req.HeadBranch, err)
	}

	for _, f := range req.Files {
		body := map[string]string{
			"message": req.CommitMessage,
			"content": base64.StdEncoding.EncodeToString([]byte(f.Body)),
			"branch":  req.HeadBranch,
		}
		// update in place when the file already exists on the new branch
		if existing, err := g.api(ctx, conn.Token, nil, fmt.Sprintf("repos/%s/contents/%s?ref=%s", req.Repo, escapePath(f.Path), req.HeadBranch)); err == nil {
			var c ghContent
			if json.Unmarshal(existing, &c) == nil && c.SHA != "" {
				body["sha"] = c.SHA
			}
		}
		if _, err := g.api(ctx, conn.Token, body, "-X", "PUT", fmt.Sprintf("repos/%s/contents/%s", req.Repo, escapePath(f.Path))); err != nil {
			return model.ChangeRequestRef{}, fmt.Errorf("write %s: %w", f.Path, err)
		}
	}

	out, err = g.api(ctx, conn.Token, map[string]string{
		"title": req.Title,
		"body":  req.Body,
		"head":  req.HeadBranch,
		"base":  req.BaseBranch,
	}, "-X", "POST", fmt.Sprintf("repos/%s/pulls", req.Repo))
	if err != nil {
		return model.ChangeRequestRef{}, fmt.Errorf("failed to create pull request: %w", err)
	}
	var pr ghPull
	if err := json.Unmarshal(out, &pr); err != nil {
		return model.ChangeRequestRef{}, fmt.Errorf("decode pull request: %w", err)
	}
	return model.ChangeRequestRef{Number: pr.Number, URL: pr.HTMLURL, HeadBranch: req.HeadBranch}, nil
}

// escapePath keeps directory separators but escapes each segment.
func escapePath(p string) string {
	parts := strings.Split(strings.TrimPrefix(p, "/"), "/")
	for i, s := range parts {
		parts[i] = strings.ReplaceAll(s, " ", "%20")
	}
	return strings.Join(parts, "/")
}
