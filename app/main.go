package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/lysyi3m/cfp-comb/app/api"
	"github.com/lysyi3m/cfp-comb/app/cfg"
	"github.com/lysyi3m/cfp-comb/app/database"
	"github.com/lysyi3m/cfp-comb/app/metrics"
	"github.com/lysyi3m/cfp-comb/app/source"
	"github.com/lysyi3m/cfp-comb/app/tasks"
)

func main() {
	appConfig, err := cfg.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if appConfig == nil {
		// help was shown
		return
	}

	logger, closeLog, err := newLogger(appConfig)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer closeLog()
	slog.SetDefault(logger)

	if err := run(appConfig, logger); err != nil {
		slog.Error("CFP Comb stopped with error", "error", err)
		closeLog()
		os.Exit(1)
	}
}

func newLogger(appConfig *cfg.Cfg) (*slog.Logger, func(), error) {
	level := slog.LevelInfo
	if appConfig.Debug {
		level = slog.LevelDebug
	}

	var out io.Writer = os.Stderr
	closeLog := func() {}

	if appConfig.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(appConfig.LogFile), 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(appConfig.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out = io.MultiWriter(os.Stderr, f)
		closeLog = func() { f.Close() }
	}

	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})), closeLog, nil
}

func run(appConfig *cfg.Cfg, logger *slog.Logger) error {
	slog.Info("Starting CFP Comb", "version", appConfig.Version, "backfill", appConfig.Backfill)

	db, err := database.NewConnection(appConfig.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		return err
	}
	slog.Info("Database ready", "path", appConfig.DBPath, "schema_version", version, "dirty", dirty)

	configs, err := source.LoadConfigs(appConfig.SourcesFile)
	if err != nil {
		return err
	}

	fetcher := source.NewFetcher(source.FetcherConfig{
		Timeout:   appConfig.Timeout,
		UserAgent: appConfig.UserAgent,
	})

	adapters, err := source.Build(configs, fetcher, appConfig.Backfill)
	if err != nil {
		return err
	}

	m := metrics.New()
	repo := database.NewRecordRepository(db)
	orchestrator := tasks.NewOrchestrator(db, repo, adapters, tasks.OrchestratorConfig{
		CSVEnabled: appConfig.CSVEnabled,
		CSVPath:    appConfig.CSVPath,
	}, m, logger)

	slog.Info("Sources configured", "count", len(adapters), "sources", orchestrator.Adapters())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if appConfig.Backfill {
		task := tasks.NewRunCycleTask(orchestrator)
		task.Start()
		return task.Execute(ctx)
	}

	scheduler := tasks.NewScheduler(orchestrator, appConfig.Interval(), logger)
	scheduler.Start()
	defer scheduler.Stop()

	serverErrChan := make(chan error, 1)
	var httpServer *http.Server
	if appConfig.Port != "" {
		handler := api.NewHandler(repo, scheduler, orchestrator.Adapters())
		httpServer = &http.Server{
			Addr:         ":" + appConfig.Port,
			Handler:      api.NewServer(handler, appConfig.APIAccessKey, m.Handler()),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		}

		go func() {
			slog.Info("Starting HTTP server", "port", appConfig.Port)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		slog.Info("Received shutdown signal")
	case runErr = <-serverErrChan:
		slog.Error("Server error", "error", runErr)
	}

	slog.Info("Shutting down gracefully...")

	if httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
		} else {
			slog.Info("HTTP server stopped")
		}
	}

	return runErr
}
