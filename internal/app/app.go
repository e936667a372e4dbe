// Package app wires configuration, collaborators, services and handlers together.
package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockscope/internal/backend"
	"github.com/ternarybob/stockscope/internal/common"
	"github.com/ternarybob/stockscope/internal/handlers"
	"github.com/ternarybob/stockscope/internal/interfaces"
	"github.com/ternarybob/stockscope/internal/jobs"
	"github.com/ternarybob/stockscope/internal/metrics"
	"github.com/ternarybob/stockscope/internal/services/cache"
	"github.com/ternarybob/stockscope/internal/services/pdf"
	"github.com/ternarybob/stockscope/internal/services/research"
	"github.com/ternarybob/stockscope/internal/storage/badger"
	"github.com/ternarybob/stockscope/internal/universe"
)

// App holds all application components and dependencies
type App struct {
	Config  *common.Config
	Logger  arbor.ILogger
	Metrics *metrics.Metrics

	// Collaborators
	Backend  *backend.Client
	Universe interfaces.UniverseProvider
	RRG      interfaces.RRGProvider
	CacheDB  *badger.DB

	// Services
	JobStore        *jobs.Store
	Janitor         *jobs.Janitor
	PDFService      *pdf.Service
	ReportAssembler *research.ReportAssembler
	Research        *research.Service

	// Handlers
	APIHandler      *handlers.APIHandler
	ResearchHandler *handlers.ResearchHandler
	ScoringHandler  *handlers.ScoringHandler
}

// New builds every component from cfg. The janitor is started; Close stops it.
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.New(),
	}

	if err := app.initBackend(); err != nil {
		return nil, fmt.Errorf("failed to initialize backend: %w", err)
	}

	if err := app.initServices(); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.initHandlers()
	app.Janitor.Start()

	logger.Info().
		Bool("backend_configured", app.Backend.Configured()).
		Bool("cache_enabled", cfg.Cache.Enabled).
		Str("universe_file", cfg.Universe.File).
		Msg("Application initialization complete")

	return app, nil
}

func (a *App) initBackend() error {
	timeout, err := a.Config.Backend.TimeoutDuration()
	if err != nil {
		return err
	}

	a.Backend = backend.NewClient(a.Config.Backend.BaseURL,
		backend.WithReportURL(a.Config.Backend.ReportURL),
		backend.WithTimeout(timeout),
		backend.WithRateLimit(a.Config.Backend.RateLimit),
		backend.WithLogger(a.Logger),
		backend.WithMetrics(a.Metrics),
	)
	if !a.Backend.Configured() {
		a.Logger.Warn().Msg("Backend base_url is not set - research submissions will be refused")
	}

	a.Universe = a.Backend
	a.RRG = a.Backend

	if a.Config.Universe.File != "" {
		provider, err := universe.LoadFile(a.Config.Universe.File, a.Logger)
		if err != nil {
			return err
		}
		a.Universe = provider
	}
	return nil
}

func (a *App) initServices() error {
	ttl, err := a.Config.Jobs.TTLDuration()
	if err != nil {
		return err
	}
	a.JobStore = jobs.NewStore(jobs.StoreOptions{
		TTL:     ttl,
		MaxJobs: a.Config.Jobs.MaxJobs,
	}, a.Logger)

	a.Janitor = jobs.NewJanitor(a.Logger)
	if err := a.Janitor.RegisterStoreSweep(a.JobStore, a.Config.Jobs.SweepSchedule); err != nil {
		return err
	}

	if a.Config.Cache.Enabled {
		if err := a.initCache(); err != nil {
			return err
		}
	}

	a.PDFService = pdf.NewService(a.Logger)
	a.ReportAssembler = research.NewReportAssembler(
		a.Backend,
		a.PDFService,
		pdf.NewMerger(a.Logger),
		a.Config.Research.ReportConcurrency,
		a.Logger,
	)

	a.Research = research.NewService(a.JobStore, research.Collaborators{
		RRG:      a.RRG,
		Universe: a.Universe,
		Analysis: a.Backend,
		Reports:  a.ReportAssembler,
	}, research.Options{
		Defaults: research.Defaults{
			LookbackDays: a.Config.Research.DefaultLookbackDays,
			TopN:         a.Config.Research.DefaultTopN,
		},
		Configured: a.Backend.Configured(),
	}, a.Metrics, a.Logger)

	return nil
}

// initCache wraps the universe and RRG providers in a Badger-backed cache.
func (a *App) initCache() error {
	ttl, err := a.Config.Cache.TTLDuration()
	if err != nil {
		return err
	}

	db, err := badger.Open(a.Config.Cache.Path, a.Logger)
	if err != nil {
		return err
	}
	a.CacheDB = db

	svc := cache.NewService(badger.NewCacheStorage(db, a.Logger), ttl, a.Logger)
	a.Universe = svc.WrapUniverse(a.Universe)
	a.RRG = svc.WrapRRG(a.RRG)

	return a.Janitor.Register("cache_purge", a.Config.Cache.PurgeSchedule, svc.Purge)
}

func (a *App) initHandlers() {
	a.APIHandler = handlers.NewAPIHandler(a.JobStore, a.Backend.Configured(), a.Logger)
	a.ResearchHandler = handlers.NewResearchHandler(a.Research, a.JobStore, a.Logger)
	a.ScoringHandler = handlers.NewScoringHandler(a.Logger)
}

// WaitForJobs blocks until in-flight research jobs finish or ctx expires.
func (a *App) WaitForJobs(ctx context.Context) error {
	if a.Research == nil {
		return nil
	}
	return a.Research.Wait(ctx)
}

// Close stops background tasks and closes storage.
func (a *App) Close() error {
	if a.Janitor != nil {
		a.Janitor.Stop()
	}

	if a.CacheDB != nil {
		if err := a.CacheDB.Close(); err != nil {
			return fmt.Errorf("failed to close cache: %w", err)
		}
		a.Logger.Info().Msg("Cache closed")
	}
	return nil
}
