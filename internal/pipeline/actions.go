package pipeline

import (
	"context"
	"log/slog"
	"strings"

	"tekshila/internal/forge"
	"tekshila/internal/generate"
	"tekshila/internal/model"
)

// GenerateInput is what the user types next to the upload list.
type GenerateInput struct {
	ProjectName  string
	Instructions string
}

// BeginGenerate validates a generation against the current uploads and purpose.
func (p *Pipeline) BeginGenerate(in GenerateInput) (*Job, error) {
	return p.begin(KindGenerate, func() (func(context.Context) (func() string, error), error) {
		s := p.deps.Store.Get()
		if len(s.Uploads) == 0 {
			return nil, invalid("no files")
		}
		if s.Purpose == model.PurposeReadme && strings.TrimSpace(in.ProjectName) == "" {
			return nil, invalid("missing project name")
		}
		req := generate.Request{
			Files:        s.Uploads,
			Purpose:      s.Purpose,
			ProjectName:  strings.TrimSpace(in.ProjectName),
			Instructions: strings.TrimSpace(in.Instructions),
		}
		return func(ctx context.Context) (func() string, error) {
			a, err := p.deps.Generator.Generate(ctx, req)
			if err != nil {
				return nil, err
			}
			return func() string {
				p.deps.Store.SetArtifact(a)
				return ""
			}, nil
		}, nil
	})
}

// BeginAnalyze validates a quality analysis of the queued file.
func (p *Pipeline) BeginAnalyze() (*Job, error) {
	return p.begin(KindAnalyze, func() (func(context.Context) (func() string, error), error) {
		s := p.deps.Store.Get()
		if s.QualityFile == nil {
			return nil, invalid("no file")
		}
		f := *s.QualityFile
		return func(ctx context.Context) (func() string, error) {
			r, err := p.deps.Quality.Analyze(ctx, f)
			if err != nil {
				return nil, err
			}
			if r.File == "" {
				r.File = f.Name
			}
			return func() string {
				p.deps.Store.SetReport(r)
				return ""
			}, nil
		}, nil
	})
}

// BeginAuthenticate validates a token before asking the host who owns it.
func (p *Pipeline) BeginAuthenticate(token string) (*Job, error) {
	return p.begin(KindAuthenticate, func() (func(context.Context) (func() string, error), error) {
		token = strings.TrimSpace(token)
		if token == "" {
			return nil, invalid("missing token")
		}
		return func(ctx context.Context) (func() string, error) {
			id, err := p.deps.Host.Authenticate(ctx, token)
			if err != nil {
				return nil, err
			}
			conn, err := model.NewConnection(token, id)
			if err != nil {
				return nil, err
			}
			return func() string {
				if err := p.deps.Store.SetConnection(conn); err != nil {
					// NewConnection already guarantees validity.
					p.log.Error("set connection", slog.Any("error", err))
				}
				if err := p.deps.Credentials.Save(conn); err != nil {
					p.log.Warn("connection not persisted", slog.Any("error", err))
				}
				return conn.Identity.Label()
			}, nil
		}, nil
	})
}

// BeginSubmit validates a change-request draft against the connection and
// the current artifact.
func (p *Pipeline) BeginSubmit(d model.ChangeRequestDraft) (*Job, error) {
	return p.begin(KindSubmit, func() (func(context.Context) (func() string, error), error) {
		s := p.deps.Store.Get()
		switch {
		case s.Connection == nil:
			return nil, invalid("not connected")
		case s.Artifact == nil:
			return nil, invalid("no artifact")
		case strings.TrimSpace(string(d.TargetRepo)) == "" || strings.TrimSpace(d.TargetBranch) == "":
			return nil, invalid("missing repository or branch")
		case strings.TrimSpace(d.Title) == "" || strings.TrimSpace(d.CommitMessage) == "":
			return nil, invalid("missing title or commit message")
		}
		conn := *s.Connection
		req := forge.ChangeRequest{
			Repo:          model.RepoID(strings.TrimSpace(string(d.TargetRepo))),
			BaseBranch:    strings.TrimSpace(d.TargetBranch),
			HeadBranch:    forge.HeadBranchName(p.deps.HeadPrefix),
			Title:         strings.TrimSpace(d.Title),
			Body:          d.Description,
			CommitMessage: strings.TrimSpace(d.CommitMessage),
			Files:         filesOf(*s.Artifact),
		}
		return func(ctx context.Context) (func() string, error) {
			ref, err := p.deps.Host.SubmitChange(ctx, conn, req)
			if err != nil {
				return nil, err
			}
			return func() string {
				p.deps.Store.SetLastChange(ref)
				return ref.URL
			}, nil
		}, nil
	})
}

// filesOf returns what a change request commits for a.
func filesOf(a model.Artifact) []model.ArtifactFile {
	if len(a.Files) > 0 {
		return a.Files
	}
	path := generate.ReadmePath
	if a.Kind == model.ArtifactCommentedCode {
		path = "commented_code.txt"
	}
	return []model.ArtifactFile{{Path: path, Body: a.Body}}
}

// Generate runs a generation to completion.
func (p *Pipeline) Generate(ctx context.Context, in GenerateInput) error {
	job, err := p.BeginGenerate(in)
	return p.run(ctx, job, err)
}

// Analyze runs a quality analysis to completion.
func (p *Pipeline) Analyze(ctx context.Context) error {
	job, err := p.BeginAnalyze()
	return p.run(ctx, job, err)
}

// Authenticate runs authentication to completion.
func (p *Pipeline) Authenticate(ctx context.Context, token string) error {
	job, err := p.BeginAuthenticate(token)
	return p.run(ctx, job, err)
}

// SubmitChangeRequest runs a submission to completion.
func (p *Pipeline) SubmitChangeRequest(ctx context.Context, d model.ChangeRequestDraft) error {
	job, err := p.BeginSubmit(d)
	return p.run(ctx, job, err)
}

// Disconnect drops the connection and forgets the saved one. A rejected or
// expired token is only dropped this way, on request.
func (p *Pipeline) Disconnect() error {
	if p.deps.Store.Get().Connection != nil {
		p.deps.Store.ClearConnection()
	}
	if err := p.deps.Credentials.Clear(); err != nil {
		return &ServiceError{Message: err.Error(), Err: err}
	}
	p.log.Info("disconnected")
	return nil
}

// Restore installs the saved connection, if any. The token is not
// revalidated; a stale one surfaces as an AuthError on first use.
func (p *Pipeline) Restore() (bool, error) {
	if p.deps.Store.Get().Connection != nil {
		return true, nil
	}
	conn, ok, err := p.deps.Credentials.Load()
	if err != nil {
		p.log.Warn("saved connection unreadable", slog.Any("error", err))
		return false, err
	}
	if !ok {
		return false, nil
	}
	if err := p.deps.Store.SetConnection(conn); err != nil {
		return false, err
	}
	p.log.Info("connection restored", slog.String("handle", conn.Identity.Handle))
	return true, nil
}

// Lookup is a read-only host query bound to the connection captured when it
// was created, so it may run off the store's goroutine.
type Lookup[T any] func(ctx context.Context) (T, error)

// ListRepositories prepares a repository listing for the connected account.
func (p *Pipeline) ListRepositories() (Lookup[[]model.RepoID], error) {
	s := p.deps.Store.Get()
	if s.Connection == nil {
		return nil, invalid("not connected")
	}
	conn := *s.Connection
	return func(ctx context.Context) ([]model.RepoID, error) {
		repos, err := p.deps.Host.ListRepositories(ctx, conn)
		return repos, classify(KindSubmit, err)
	}, nil
}

// ListBranches prepares a branch listing for repo.
func (p *Pipeline) ListBranches(repo model.RepoID) (Lookup[[]string], error) {
	s := p.deps.Store.Get()
	if s.Connection == nil {
		return nil, invalid("not connected")
	}
	if strings.TrimSpace(string(repo)) == "" {
		return nil, invalid("missing repository or branch")
	}
	conn := *s.Connection
	return func(ctx context.Context) ([]string, error) {
		branches, err := p.deps.Host.ListBranches(ctx, conn, repo)
		return branches, classify(KindSubmit, err)
	}, nil
}

// Repositories lists the connected account's repositories.
func (p *Pipeline) Repositories(ctx context.Context) ([]model.RepoID, error) {
	list, err := p.ListRepositories()
	if err != nil {
		return nil, err
	}
	return list(ctx)
}

// Branches lists the branches of repo.
func (p *Pipeline) Branches(ctx context.Context, repo model.RepoID) ([]string, error) {
	list, err := p.ListBranches(repo)
	if err != nil {
		return nil, err
	}
	return list(ctx)
}
