// Command archive runs one archival pass and exits non-zero when it did not complete.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/noah-isme/mongo-activity/internal/bootstrap"
	"github.com/noah-isme/mongo-activity/internal/config"
	"github.com/noah-isme/mongo-activity/internal/service"
)

const (
	exitFailed     = 1
	exitPartial    = 2
	exitInProgress = 3
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		log.Printf("failed to load configuration: %v", err)
		return exitFailed
	}

	logger := bootstrap.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	components, cleanup, err := bootstrap.Wire(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to wire services")
		return exitFailed
	}
	defer cleanup()

	report, err := components.ArchiveService.Run(ctx)
	var partial *service.PartialArchivalError
	switch {
	case errors.Is(err, service.ErrArchivalInProgress):
		logger.Warn().Msg("another archival run holds the lock")
		return exitInProgress
	case errors.As(err, &partial):
		logger.Error().Err(err).Strs("failed", partial.FailedPartitions()).Msg("archival incomplete")
		return exitPartial
	case err != nil:
		logger.Error().Err(err).Msg("archival failed")
		return exitFailed
	}

	logger.Info().
		Str("run_id", report.RunID).
		Int("migrated", report.MigratedCount).
		Int64("deleted", report.Deleted).
		Msg("archival finished")
	return 0
}
