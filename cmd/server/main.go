// Package main is the entry point for the Eigenfolio quantum portfolio
// selection service. It generates a synthetic asset universe, encodes the
// selection problem as a QUBO, solves it with exact and variational
// eigensolvers, and serves results over an HTTP API.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eigenfolio/eigenfolio/internal/config"
	"github.com/eigenfolio/eigenfolio/internal/di"
	"github.com/eigenfolio/eigenfolio/internal/reliability"
	"github.com/eigenfolio/eigenfolio/internal/scheduler"
	"github.com/eigenfolio/eigenfolio/internal/server"
	"github.com/eigenfolio/eigenfolio/pkg/logger"
)

func main() {
	// Load configuration first to get log level
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting Eigenfolio")

	// Check for a staged restore BEFORE any database connection is opened.
	// Restores are staged via the API and applied on the next startup so a
	// running instance never swaps files under open connections.
	restoreSvc := reliability.NewRestoreService(nil, cfg.DataDir, log)
	hasPendingRestore, err := restoreSvc.CheckPendingRestore()
	if err != nil {
		log.Error().Err(err).Msg("Failed to check for pending restore")
	}
	if hasPendingRestore {
		log.Warn().Msg("Pending restore detected, executing staged restore")
		if err := restoreSvc.ExecuteStagedRestore(); err != nil {
			log.Fatal().Err(err).Msg("Failed to execute staged restore")
		}
		log.Info().Msg("Restore completed, proceeding with normal startup")
	}

	// Wire all dependencies: databases, repositories, services. Settings
	// stored in the config database take precedence over environment
	// variables, so defaults changed through the API survive restarts.
	container, err := di.Wire(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer container.Close()

	// Background jobs: nightly reference solve, periodic WAL checkpoints,
	// and cloud backups when R2 credentials are configured.
	sched := scheduler.New(log)
	if err := sched.AddJob(scheduler.ScheduleNightlySolve,
		scheduler.NewNightlySolveJob(container.SelectionService, container.MarketService, cfg, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule nightly solve")
	}
	if err := sched.AddJob(scheduler.ScheduleWALCheckpoint,
		scheduler.NewWALCheckpointJob(container.Databases(), log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule WAL checkpoints")
	}
	if container.R2BackupService != nil {
		if err := sched.AddJob(scheduler.ScheduleCloudBackup,
			scheduler.NewCloudBackupJob(container.R2BackupService, cfg.BackupRetentionDays, log)); err != nil {
			log.Fatal().Err(err).Msg("Failed to schedule cloud backups")
		}
	} else {
		log.Info().Msg("Cloud backups not configured, skipping backup job")
	}
	sched.Start()
	defer sched.Stop()

	srv := server.New(server.Config{
		Log:       log,
		Config:    cfg,
		Container: container,
		Scheduler: sched,
		Port:      cfg.Port,
		DevMode:   cfg.DevMode,
	})

	// Start server in goroutine so we can wait for shutdown signals
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Eigenfolio started")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	log.Info().Msg("Eigenfolio stopped")
}
