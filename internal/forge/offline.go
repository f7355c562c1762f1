package forge

import (
	"context"
	"fmt"
	"strings"

	"tekshila/internal/model"
)

// offline is a canned host that never leaves the machine. It accepts any
// non-blank token, which makes the whole flow usable without an account.
type offline struct{}

// NewOffline returns the canned host.
func NewOffline() Host { return offline{} }

func (offline) Kind() string { return "offline" }

func (offline) Authenticate(_ context.Context, token string) (model.Identity, error) {
	if strings.TrimSpace(token) == "" {
		return model.Identity{}, fmt.Errorf("empty token: %w", ErrUnauthorized)
	}
	return model.Identity{Handle: "user", DisplayName: "Demo User"}, nil
}

func (offline) ListRepositories(context.Context, model.Connection) ([]model.RepoID, error) {
	return []model.RepoID{"user/repo1", "user/repo2", "user/awesome-project"}, nil
}

func (offline) ListBranches(_ context.Context, _ model.Connection, repo model.RepoID) ([]string, error) {
	if repo == "" {
		return nil, fmt.Errorf("no repository selected")
	}
	return []string{"main", "develop", "feature/new-feature"}, nil
}

func (offline) SubmitChange(_ context.Context, _ model.Connection, req ChangeRequest) (model.ChangeRequestRef, error) {
	if len(req.Files) == 0 {
		return model.ChangeRequestRef{}, fmt.Errorf("no content provided for pull request")
	}
	return model.ChangeRequestRef{
		Number:     123,
		URL:        fmt.Sprintf("https://github.com/%s/pull/123", req.Repo),
		HeadBranch: req.HeadBranch,
	}, nil
}
