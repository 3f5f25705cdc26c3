package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"redditminer/internal/config"
	"redditminer/internal/llm"
	"redditminer/internal/reddit"
	"redditminer/internal/scheduler"
	"redditminer/internal/store"
)

// startupFetchDelay gives the scheduler a moment to settle before the
// first fetch kicks off
const startupFetchDelay = 5 * time.Second

// App wires together the worker's components and owns their lifecycle
type App struct {
	cfg       *config.Config
	store     *store.Store
	fetcher   *reddit.Fetcher
	processor *llm.Processor
	scheduler *scheduler.Scheduler
	logger    *slog.Logger

	initialFetch *time.Timer
}

// New builds the full worker from configuration: storage, the Reddit
// client stack, the analysis pipeline, and the job scheduler
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	st, err := store.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	if len(cfg.Reddit.Subreddits) > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := st.SeedSubreddits(ctx, cfg.Reddit.Subreddits); err != nil {
			st.Close()
			return nil, fmt.Errorf("seed subreddits: %w", err)
		}
	}

	tokens := reddit.NewTokenManager(cfg.Reddit.ClientID, cfg.Reddit.ClientSecret,
		cfg.Reddit.UserAgent, st, logger)
	client := reddit.NewClient(tokens, cfg.Reddit.UserAgent, logger)
	fetcher := reddit.NewFetcher(client, st, logger)

	var processor *llm.Processor
	if cfg.LLM.APIKey != "" {
		invoker := llm.NewClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model, logger)
		processor = llm.NewProcessor(invoker, st, logger)
	} else {
		logger.Warn("LLM_API_KEY not set, analysis job disabled")
	}

	return &App{
		cfg:       cfg,
		store:     st,
		fetcher:   fetcher,
		processor: processor,
		scheduler: scheduler.New(logger),
		logger:    logger,
	}, nil
}

// Start registers the periodic jobs and begins running them. An initial
// fetch is kicked off shortly after start so a fresh deployment does
// not wait a full interval for data
func (a *App) Start() error {
	fetchEvery := time.Duration(a.cfg.Worker.FetchIntervalHours) * time.Hour
	if err := a.scheduler.AddInterval("fetch", fetchEvery, a.runFetch); err != nil {
		return err
	}

	if a.processor != nil {
		processEvery := time.Duration(a.cfg.Worker.ProcessIntervalMinutes) * time.Minute
		if err := a.scheduler.AddInterval("process", processEvery, a.runProcess); err != nil {
			return err
		}
	}

	a.scheduler.Start()

	a.initialFetch = time.AfterFunc(startupFetchDelay, func() {
		a.scheduler.RunNow("fetch")
	})

	a.logger.Info("worker started",
		"fetch_interval", fetchEvery,
		"process_interval_minutes", a.cfg.Worker.ProcessIntervalMinutes,
		"batch_size", a.cfg.Worker.BatchSize)
	return nil
}

// Stop shuts the worker down, waiting for in-flight jobs to finish
func (a *App) Stop() {
	if a.initialFetch != nil {
		a.initialFetch.Stop()
	}

	done := a.scheduler.Stop()
	select {
	case <-done.Done():
	case <-time.After(time.Minute):
		a.logger.Warn("timed out waiting for running jobs")
	}

	if err := a.store.Close(); err != nil {
		a.logger.Error("failed to close store", "error", err)
	}
	a.logger.Info("worker stopped")
}

func (a *App) runFetch(ctx context.Context) error {
	_, err := a.fetcher.Run(ctx)
	return err
}

func (a *App) runProcess(ctx context.Context) error {
	_, err := a.processor.RunBatch(ctx, a.cfg.Worker.BatchSize)
	return err
}
