package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/mongo-activity/internal/bootstrap"
	"github.com/noah-isme/mongo-activity/internal/config"
	"github.com/noah-isme/mongo-activity/internal/handler"
	"github.com/noah-isme/mongo-activity/internal/middleware"
	"github.com/noah-isme/mongo-activity/internal/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := bootstrap.NewLogger(cfg)

	startupCtx, cancel := context.WithTimeout(context.Background(), cfg.MongoTimeout+5*time.Second)
	components, cleanup, err := bootstrap.Wire(startupCtx, cfg, logger)
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to wire services")
	}
	defer cleanup()

	if created, err := components.IndexService.EnsureActive(context.Background()); err != nil {
		logger.Warn().Err(err).Msg("failed to ensure live indexes at startup")
	} else if len(created) > 0 {
		logger.Info().Strs("created", created).Msg("live indexes created")
	}

	activityHandler := handler.NewActivityHandler(components.ActivityService, logger)
	adminHandler := handler.NewAdminArchiveHandler(components.ArchiveService, components.IndexService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		ActivityHandler:     activityHandler,
		AdminArchiveHandler: adminHandler,
		Store:               components.Store,
		JWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(app, logger)
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
