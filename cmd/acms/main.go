package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/acmsdev/acms/internal/api"
	"github.com/acmsdev/acms/internal/config"
	"github.com/acmsdev/acms/internal/controllers"
	"github.com/acmsdev/acms/internal/models"
	"github.com/acmsdev/acms/internal/scheduler"
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
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// 2. Setup logger
	logger := utils.NewLogger(cfg.LogLevel)
	logger.Info("Starting ACMS")
	logger.WithField("config_dir", filepath.Dir(cfg.DatabaseFile)).Info("Configuration loaded")

	// 3. Initialize database
	db, err := models.NewDatabase(cfg.DatabaseFile)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()
	logger.Info("Database initialized")

	// 4. Initialize services
	cookies := utils.NewFileCookieSource(cfg.CookiesFile)
	engine := downloader.NewEngine(cfg, cookies, logger)
	validator := downloader.NewValidator(logger)
	matcher := downloader.NewMatcher(db, cfg.FuzzyMatchThreshold, logger)

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
	logger.Info("Services initialized")

	// 5. Initialize controllers
	downloadCtrl := controllers.NewDownloadController(db, engine, validator, cfg, logger)
	linksCtrl := controllers.NewLinksController(db, matcher, logger)
	subtitleCtrl := controllers.NewSubtitleController(db, subtitleProcessor, cfg, logger)
	translateCtrl := controllers.NewTranslateController(db, translator, logger)
	logger.Info("Controllers initialized")

	// 6. Pick a dispatcher: Redis-backed queue when configured, in-process
	// goroutines otherwise.
	sync := &tasks.SyncDispatcher{
		Downloads: downloadCtrl,
		Subtitles: subtitleCtrl,
		Translate: translateCtrl,
	}
	var dispatcher tasks.Dispatcher
	if cfg.RedisAddr != "" {
		client := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		defer client.Close()
		dispatcher = &tasks.AsynqDispatcher{Client: client, Logger: logger}
		logger.WithField("redis", cfg.RedisAddr).Info("Using queued task dispatch")
	} else {
		dispatcher = &tasks.BackgroundDispatcher{Inner: sync, Logger: logger}
		logger.Info("Using in-process task dispatch")
	}

	// 7. Initialize scheduler
	sched := scheduler.NewScheduler(downloadCtrl, dispatcher, db, cfg.DownloadTimeoutMinutes, logger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	// 8. Initialize HTTP server
	server := api.NewServer(cfg, db, linksCtrl, downloadCtrl, engine, dispatcher, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverErrChan := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil {
			serverErrChan <- err
		}
	}()

	// 9. Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("ACMS is running")

	select {
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		logger.WithField("signal", sig).Info("Received shutdown signal")
		cancel()
		if err := server.Shutdown(context.Background()); err != nil {
			logger.WithError(err).Error("Error during server shutdown")
		}
	}

	logger.Info("ACMS stopped")
	return nil
}
