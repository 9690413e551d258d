package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/shubhamragade/workflow/internal/config"
	"github.com/shubhamragade/workflow/internal/credential"
	"github.com/shubhamragade/workflow/internal/db"
	"github.com/shubhamragade/workflow/internal/domain"
	"github.com/shubhamragade/workflow/internal/engine"
	"github.com/shubhamragade/workflow/internal/engine/auth"
	"github.com/shubhamragade/workflow/internal/migrate"
	"github.com/shubhamragade/workflow/internal/report"
	"github.com/shubhamragade/workflow/internal/telemetry"
)

// Options override values from workflow.yml. Empty fields keep the file value.
type Options struct {
	Workspace string
	Provider  string
	APIKey    string
	// Keyring is consulted for the generator API key when APIKey is empty.
	Keyring *credential.Store
}

// App holds everything a command or the server needs for one workspace.
type App struct {
	DB       *sqlx.DB
	Config   *config.Config
	Engine   engine.Engine
	Reports  *report.Service
	Auth     auth.Service
	shutdown func(context.Context) error
}

// Open opens and migrates the workspace database, loads configuration, selects
// the report generator and starts tracing.
func Open(ctx context.Context, opts Options) (*App, error) {
	cfg, err := config.LoadOptional(opts.Workspace)
	if err != nil {
		return nil, err
	}
	if opts.Provider != "" {
		cfg.Reports.Generator.Provider = strings.ToLower(opts.Provider)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	conn, err := db.Open(db.Config{Workspace: opts.Workspace})
	if err != nil {
		return nil, err
	}
	if err := migrate.Migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	gen, err := NewGenerator(cfg.Reports.Generator, resolveAPIKey(opts))
	if err != nil {
		conn.Close()
		return nil, err
	}
	shutdown, err := telemetry.Init(cfg.Tracing)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("tracing: %w", err)
	}
	eng := engine.New(conn, cfg)
	return &App{
		DB:       conn,
		Config:   cfg,
		Engine:   eng,
		Reports:  report.NewService(conn, cfg, gen),
		Auth:     auth.Service{Repo: eng.Repo},
		shutdown: shutdown,
	}, nil
}

func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.shutdown != nil {
		errs = append(errs, a.shutdown(ctx))
	}
	errs = append(errs, a.DB.Close())
	return errors.Join(errs...)
}

func resolveAPIKey(opts Options) string {
	if opts.APIKey != "" {
		return opts.APIKey
	}
	if opts.Keyring == nil {
		return ""
	}
	key, err := opts.Keyring.Get(credential.GeneratorAPIKey)
	if err != nil {
		return ""
	}
	return key
}

// NewGenerator builds the configured report generator.
func NewGenerator(cfg config.Generator, apiKey string) (report.Generator, error) {
	switch cfg.Provider {
	case "", config.ProviderStub:
		return report.Stub{}, nil
	case config.ProviderAnthropic:
		if apiKey == "" {
			return nil, errors.New("anthropic generator needs an API key (WORKFLOW_GENERATOR_API_KEY or `wf credential set`)")
		}
		return report.NewAnthropic(apiKey, cfg.Model, cfg.Endpoint, cfg.MaxTokens, nil), nil
	}
	return nil, fmt.Errorf("unknown generator provider %q", cfg.Provider)
}

// ExitPreview is InitiateExit plus the cached handover report.
type ExitPreview struct {
	engine.ExitPreview
	Handover report.Report `json:"handover"`
}

func (a *App) InitiateExit(ctx context.Context, userID, actorID string) (ExitPreview, error) {
	p, err := a.Engine.InitiateExit(ctx, userID)
	if err != nil {
		return ExitPreview{}, err
	}
	rep, err := a.Reports.GetOrGenerate(ctx, domain.ReportHandover, userID, actorID)
	if err != nil {
		return ExitPreview{}, err
	}
	return ExitPreview{ExitPreview: p, Handover: rep}, nil
}
