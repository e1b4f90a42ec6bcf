package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"ArxivDigest/internal/app"
	"ArxivDigest/internal/config"
	"ArxivDigest/internal/logging"
	"ArxivDigest/internal/usecase"
)

func main() {
	var (
		configPath string
		dateArg    string
		keywords   string
		threshold  float64
		topK       int
		force      bool
		skipCrawl  bool
		daemon     bool
	)

	pflag.StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML configuration file")
	pflag.StringVarP(&dateArg, "date", "d", "", "target date in YYYY-MM-DD format (default today)")
	pflag.StringVarP(&keywords, "keywords", "k", "", `keyword overrides, e.g. "rag=2.0,agent=1.0"`)
	pflag.Float64VarP(&threshold, "threshold", "t", -1, "relevance threshold override")
	pflag.IntVar(&topK, "top-k", 0, "maximum papers per digest override")
	pflag.BoolVarP(&force, "force", "f", false, "re-crawl and re-send even if the date is already done")
	pflag.BoolVarP(&skipCrawl, "skip-crawl", "s", false, "reuse the stored batch, fail if none exists")
	pflag.BoolVar(&daemon, "daemon", false, "run as a daemon on the configured cron schedule")
	pflag.Parse()

	if err := run(configPath, dateArg, keywords, threshold, topK, force, skipCrawl, daemon); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(configPath, dateArg, keywords string, threshold float64, topK int, force, skipCrawl, daemon bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if keywords != "" {
		parsed := config.ParseKeywords(keywords)
		if len(parsed) == 0 {
			return fmt.Errorf("invalid --keywords value %q", keywords)
		}
		cfg.Matching.Keywords = parsed
	}
	if threshold >= 0 {
		cfg.Matching.Threshold = threshold
	}
	if topK > 0 {
		cfg.Matching.TopK = topK
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log := logging.New(cfg.Logging)

	application, err := app.New(cfg, log)
	if err != nil {
		return err
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if daemon {
		log.Info("starting in daemon mode", "cron", cfg.Scheduler.CronExpression)
		return application.RunDaemon(ctx)
	}

	opts := usecase.Options{Force: force, SkipCrawl: skipCrawl}
	if dateArg != "" {
		day, err := time.Parse("2006-01-02", dateArg)
		if err != nil {
			return fmt.Errorf("invalid --date value %q, want YYYY-MM-DD", dateArg)
		}
		opts.Date = day
	}

	result, err := application.RunOnce(ctx, opts)
	if err != nil {
		if errors.Is(err, usecase.ErrConcurrentRun) {
			return fmt.Errorf("another run for %s is already in progress", result.Date)
		}
		return err
	}

	log.Info("run finished",
		"date", result.Date,
		"state", string(result.State),
		"crawled", result.Crawled,
		"ranked", result.Ranked,
		"degraded", result.Degraded,
		"sent", result.Sent,
	)
	if result.DigestPath != "" {
		log.Info("digest written locally", "path", result.DigestPath)
	}
	return nil
}
