package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"ArxivDigest/internal/config"
	"ArxivDigest/internal/infrastructure/llm"
	"ArxivDigest/internal/infrastructure/mail"
	"ArxivDigest/internal/infrastructure/parser"
	"ArxivDigest/internal/infrastructure/scheduler"
	"ArxivDigest/internal/infrastructure/storage"
	"ArxivDigest/internal/logging"
	"ArxivDigest/internal/matching"
	"ArxivDigest/internal/ports"
	"ArxivDigest/internal/runstate"
	"ArxivDigest/internal/scanner"
	"ArxivDigest/internal/usecase"
)

// App assembles the pipeline from configuration and exposes the two
// execution modes: a single run and a cron-driven daemon.
type App struct {
	cfg          config.Config
	orchestrator *usecase.Orchestrator
	scheduler    ports.Scheduler
	db           *sql.DB
	logger       *slog.Logger
}

// New wires every adapter the configuration enables. Optional pieces
// (LLM, SMTP, Postgres) degrade gracefully when unconfigured.
func New(cfg config.Config, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	profile, err := matching.NewProfile(cfg.Matching.Keywords)
	if err != nil {
		return nil, fmt.Errorf("build keyword profile: %w", err)
	}
	ranker := matching.NewRanker(matching.NewScorer(profile), cfg.Matching.Threshold, cfg.Matching.TopK)

	runState, err := runstate.New(cfg.Data.StateDir())
	if err != nil {
		return nil, fmt.Errorf("open run state store: %w", err)
	}
	batches, err := storage.NewFileBatchStore(cfg.Data.BatchDir())
	if err != nil {
		return nil, fmt.Errorf("open batch store: %w", err)
	}

	registry := scanner.NewRegistry()
	registry.Register(parser.NewArxivScanner(nil))
	source := parser.NewStrategySource(registry, cfg.Sites, logging.Component(log, "crawler"))

	var summarizer ports.Summarizer
	if cfg.LLM.APIKey != "" {
		summarizer = llm.NewClient(cfg.LLM)
	} else {
		log.Warn("llm api key is not set, digests will carry raw abstracts")
	}

	var mailer ports.Mailer
	if cfg.Email.Complete() {
		mailer = mail.NewSender(cfg.Email, logging.Component(log, "mailer"))
	} else {
		log.Warn("email is not fully configured, digests will be written locally")
	}

	var (
		db         *sql.DB
		repository ports.PaperRepository
	)
	if cfg.Database.DSN != "" {
		db, err = sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		repository = storage.NewPostgresRepository(db)
	}

	orchestrator := usecase.NewOrchestrator(usecase.Deps{
		Source:      source,
		Ranker:      ranker,
		Profile:     profile,
		Summarizer:  summarizer,
		Mailer:      mailer,
		RunState:    runState,
		Batches:     batches,
		Repository:  repository,
		Recipients:  cfg.Email.Recipients,
		BatchSize:   cfg.LLM.BatchSize,
		MaxRetries:  cfg.LLM.MaxRetries,
		Parallelism: cfg.LLM.Parallelism,
		DigestDir:   cfg.Data.DigestDir(),
		Logger:      logging.Component(log, "pipeline"),
	})

	return &App{
		cfg:          cfg,
		orchestrator: orchestrator,
		scheduler: scheduler.New(
			cfg.Scheduler.CronExpression,
			cfg.Scheduler.Location(),
			logging.Component(log, "scheduler"),
		),
		db:     db,
		logger: log,
	}, nil
}

// RunOnce executes the pipeline for a single date and returns its
// terminal result.
func (a *App) RunOnce(ctx context.Context, opts usecase.Options) (usecase.Result, error) {
	return a.orchestrator.Run(ctx, opts)
}

// RunDaemon schedules daily runs and blocks until the context is
// cancelled. Each trigger targets the trigger's own date, so a digest
// missed one day does not leak into the next.
func (a *App) RunDaemon(ctx context.Context) error {
	err := a.scheduler.Start(ctx, func(fired time.Time) {
		result, runErr := a.orchestrator.Run(ctx, usecase.Options{Date: fired})
		if runErr != nil {
			a.logger.Error("scheduled run failed", "date", fired.Format("2006-01-02"), "error", runErr)
			return
		}
		a.logger.Info("scheduled run finished",
			"date", result.Date,
			"state", string(result.State),
			"ranked", result.Ranked,
			"sent", result.Sent,
		)
	})
	if err != nil {
		return err
	}

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return a.scheduler.Stop(stopCtx)
}

// Close releases held resources.
func (a *App) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}
