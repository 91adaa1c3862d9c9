// Package core wires configuration, logging, storage and the upstream
// clients into one object built per invocation.
package core

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/marcin-skalski/mngtool/internal/apperrors"
	"github.com/marcin-skalski/mngtool/internal/config"
	"github.com/marcin-skalski/mngtool/internal/figma"
	"github.com/marcin-skalski/mngtool/internal/github"
	"github.com/marcin-skalski/mngtool/internal/linear"
	"github.com/marcin-skalski/mngtool/internal/store"
	"github.com/marcin-skalski/mngtool/internal/syncer"
)

type Core struct {
	Config *config.Config
	Logger *slog.Logger
	Store  *store.Store
	Syncer *syncer.Orchestrator

	http *http.Client

	linearOnce sync.Once
	linear     *linear.Client
	githubOnce sync.Once
	github     *github.Client
	figmaOnce  sync.Once
	figma      *figma.Client
}

func New(cfg *config.Config, logger *slog.Logger) *Core {
	st := store.New(cfg.StorageDir, logger)
	return &Core{
		Config: cfg,
		Logger: logger,
		Store:  st,
		Syncer: syncer.New(st, logger),
		http:   &http.Client{Timeout: cfg.HTTP.Timeout},
	}
}

// Linear returns the project-tracker client. Both the API key and the
// workspace id are required.
func (c *Core) Linear() (*linear.Client, error) {
	lc := c.Config.Linear
	if lc.APIKey == "" {
		return nil, apperrors.Configuration("missing required environment variable: LINEAR_API_KEY")
	}
	if lc.WorkspaceID == "" {
		return nil, apperrors.Configuration("missing required environment variable: LINEAR_WORKSPACE_ID")
	}
	c.linearOnce.Do(func() {
		c.linear = linear.NewClient(linear.Config{
			APIKey:      lc.APIKey,
			WorkspaceID: lc.WorkspaceID,
			Endpoint:    lc.Endpoint,
			PageSize:    lc.PageSize,
			HTTPClient:  c.http,
		}, c.Logger.With("component", "linear"))
	})
	return c.linear, nil
}

func (c *Core) GitHub() (*github.Client, error) {
	gc := c.Config.GitHub
	if gc.Token == "" {
		return nil, apperrors.Configuration("missing required environment variable: GITHUB_TOKEN")
	}
	c.githubOnce.Do(func() {
		c.github = github.NewClient(github.Config{
			Token:          gc.Token,
			APIURL:         gc.APIURL,
			Repository:     github.Repository{Owner: gc.Owner, Repo: gc.Repo},
			MaxConcurrency: gc.MaxConcurrency,
			HTTPClient:     c.http,
		}, c.Logger.With("component", "github"))
	})
	return c.github, nil
}

func (c *Core) Figma() (*figma.Client, error) {
	fc := c.Config.Figma
	if fc.AccessToken == "" {
		return nil, apperrors.Configuration("FIGMA_ACCESS_TOKEN is not set")
	}
	c.figmaOnce.Do(func() {
		c.figma = figma.NewClient(figma.Config{
			AccessToken: fc.AccessToken,
			APIBaseURL:  fc.APIBaseURL,
			HTTPClient:  c.http,
		}, c.Logger.With("component", "figma"))
	})
	return c.figma, nil
}
