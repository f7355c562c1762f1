// Package app wires configuration into the services, store and pipeline
// shared by the TUI, the CLI commands and the MCP server.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"tekshila/internal/config"
	"tekshila/internal/credentials"
	"tekshila/internal/forge"
	"tekshila/internal/gemini"
	"tekshila/internal/generate"
	"tekshila/internal/logging"
	"tekshila/internal/model"
	"tekshila/internal/notify"
	"tekshila/internal/pipeline"
	"tekshila/internal/quality"
	"tekshila/internal/state"
	"tekshila/internal/upload"
)

// App is the composition root.
type App struct {
	Config    config.Config
	Logger    *slog.Logger
	Detection forge.Detection
	Store     *state.Store
	Pipeline  *pipeline.Pipeline
	Surface   *notify.Surface

	generator   generate.Service
	quality     quality.Service
	credentials credentials.Store
	closer      io.Closer
}

// Options overrides parts of the wiring, mainly for tests.
type Options struct {
	Dir         string // working directory inspected for a repository; cwd when empty
	Logger      *slog.Logger
	Host        forge.Host
	Credentials credentials.Store
}

// New builds an App from cfg.
func New(cfg config.Config, opts Options) (*App, error) {
	a := &App{Config: cfg}

	if opts.Logger != nil {
		a.Logger = opts.Logger
	} else if cfg.Log.File != "" {
		l, c, err := logging.Open(cfg.Log.File, cfg.Log.Level)
		if err != nil {
			return nil, err
		}
		a.Logger, a.closer = l, c
	} else {
		a.Logger = logging.Discard()
	}

	dir := opts.Dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("working directory: %w", err)
		}
		dir = wd
	}
	a.Detection = forge.Detect(dir, forge.Options{Kind: cfg.Forge.Kind, HeadPrefix: cfg.Forge.HeadPrefix})
	if opts.Host != nil {
		a.Detection.Host = opts.Host
	}

	var llm generate.Completer
	if cfg.Generation.Provider == "gemini" || cfg.Quality.Provider == "gemini" {
		llm = gemini.NewClient(context.Background(), gemini.Options{
			APIKey:  cfg.GeminiKey(),
			Model:   cfg.Generation.Model,
			BaseURL: cfg.Generation.APIURL,
			Timeout: cfg.Generation.Timeout,
		})
	}
	if cfg.Generation.Provider == "gemini" {
		a.generator = generate.Gemini{Model: llm}
	} else {
		a.generator = generate.Offline{}
	}
	if cfg.Quality.Provider == "gemini" {
		a.quality = quality.Gemini{Model: llm}
	} else {
		a.quality = quality.Heuristic{}
	}

	a.credentials = opts.Credentials
	if a.credentials == nil {
		a.credentials = credentials.NewFile(cfg.Credentials.Path, a.Detection.Host.Kind())
	}

	a.Store, a.Pipeline = a.NewSession()
	a.Surface = notify.New(cfg.ToastDuration(), HostName(a.Detection.Host.Kind()))
	a.Pipeline.Subscribe(a.Surface)

	a.Logger.Info("app started",
		slog.String("host", a.Detection.Host.Kind()),
		slog.String("repo", string(a.Detection.Repo)),
		slog.String("generation", cfg.Generation.Provider),
		slog.String("quality", cfg.Quality.Provider),
	)
	return a, nil
}

// NewSession returns a fresh store and pipeline over the App's services.
func (a *App) NewSession() (*state.Store, *pipeline.Pipeline) {
	store := state.NewStore(model.Session{})
	p := pipeline.New(pipeline.Deps{
		Store:       store,
		Generator:   a.generator,
		Quality:     a.quality,
		Host:        a.Detection.Host,
		Credentials: a.credentials,
		HeadPrefix:  a.Config.Forge.HeadPrefix,
		Logger:      a.Logger,
	})
	return store, p
}

// UploadOptions returns the configured upload limits.
func (a *App) UploadOptions() upload.Options {
	return upload.Options{
		MaxFileBytes:  a.Config.Uploads.MaxFileBytes,
		MaxTotalBytes: a.Config.Uploads.MaxTotalBytes,
	}
}

// Draft returns a change-request form pre-filled from config and the
// detected repository.
func (a *App) Draft() model.ChangeRequestDraft {
	return model.ChangeRequestDraft{
		TargetRepo:    a.Detection.Repo,
		TargetBranch:  a.Detection.DefaultBranch,
		Title:         a.Config.Defaults.PRTitle,
		Description:   a.Config.Defaults.PRDescription,
		CommitMessage: a.Config.Defaults.CommitMessage,
	}
}

// Close flushes the log file.
func (a *App) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

// HostName is the display name for a host kind.
func HostName(kind string) string {
	switch kind {
	case "gitlab":
		return "GitLab"
	case "offline":
		return "GitHub (offline)"
	default:
		return "GitHub"
	}
}
