package main

import (
	"fmt"
	"os"
	"time"

	"github.com/hibiken/asynq"

	"github.com/acmsdev/acms/internal/config"
	"github.com/acmsdev/acms/internal/controllers"
	"github.com/acmsdev/acms/internal/models"
	"github.com/acmsdev/acms/internal/services/ai"
	"github.com/acmsdev/acms/internal/services/downloader"
	"github.com/acmsdev/acms/internal/services/processor"
	"github.com/acmsdev/acms/internal/tasks"
	"github.com/acmsdev/acms/internal/utils"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required for the worker")
	}

	logger := utils.NewLogger(cfg.LogLevel)
	logger.Info("Starting ACMS worker")

	db, err := models.NewDatabase(cfg.DatabaseFile)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	cookies := utils.NewFileCookieSource(cfg.CookiesFile)
	engine := downloader.NewEngine(cfg, cookies, logger)
	validator := downloader.NewValidator(logger)

	subtitleConfig := processor.DefaultConfig()
	subtitleConfig.ShiftMs = cfg.SubtitleShiftMs
	subtitleProcessor, err := processor.NewProcessor(subtitleConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize subtitle processor: %w", err)
	}

	var providers []ai.ProviderConfig
	if cfg.OpenAIAPIKey != "" {
		providers = append(providers, ai.ProviderConfig{
			Kind:   "openai",
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.OpenAIModel,
		})
	}
	translator := ai.NewTranslator(providers, logger)

	handler := &tasks.Handler{
		Downloads: controllers.NewDownloadController(db, engine, validator, cfg, logger),
		Subtitles: controllers.NewSubtitleController(db, subtitleProcessor, cfg, logger),
		Translate: controllers.NewTranslateController(db, translator, logger),
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		asynq.Config{
			// One course pipeline at a time; concurrency inside a course is
			// governed by MAX_CONCURRENT_DOWNLOADS.
			Concurrency: 1,
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				delay := 5 * time.Minute
				for i := 0; i < n; i++ {
					delay *= 2
					if delay > 6*time.Hour {
						return 6 * time.Hour
					}
				}
				return delay
			},
		},
	)

	mux := asynq.NewServeMux()
	handler.Register(mux)

	logger.WithField("redis", cfg.RedisAddr).Info("Worker running")
	if err := srv.Run(mux); err != nil {
		return fmt.Errorf("worker stopped: %w", err)
	}
	return nil
}
