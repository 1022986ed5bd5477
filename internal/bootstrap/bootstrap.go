// Package bootstrap builds the shared service graph used by every binary.
package bootstrap

import (
	"context"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/mongo-activity/internal/config"
	"github.com/noah-isme/mongo-activity/internal/database"
	"github.com/noah-isme/mongo-activity/internal/events"
	"github.com/noah-isme/mongo-activity/internal/lock"
	"github.com/noah-isme/mongo-activity/internal/period"
	"github.com/noah-isme/mongo-activity/internal/repository"
	"github.com/noah-isme/mongo-activity/internal/service"
	"github.com/noah-isme/mongo-activity/internal/store"
	"github.com/noah-isme/mongo-activity/internal/vocab"
)

// Components is the wired service graph.
type Components struct {
	Store           store.Client
	Redis           *redis.Client
	NATS            *nats.Conn
	Resolver        *period.Resolver
	Validator       *validator.Validate
	ActivityService service.ActivityService
	ArchiveService  service.ArchiveService
	IndexService    service.IndexService
}

// NewLogger builds the root logger at the configured level.
func NewLogger(cfg config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).Level(level).With().Timestamp().Str("service", cfg.AppName).Logger()
}

// Option configures Wire.
type Option func(*wireOptions)

type wireOptions struct {
	vocabulary *vocab.Set
}

// WithVocabulary replaces the accepted roles, types and modules. The
// ACTIVITY_EXTRA_* settings are merged on top of it.
func WithVocabulary(set vocab.Set) Option {
	return func(o *wireOptions) {
		o.vocabulary = &set
	}
}

// Vocabulary returns the set Wire validates against: the host set or the
// defaults, extended by the configured extra roles and modules.
func Vocabulary(cfg config.Config, opts ...Option) vocab.Set {
	var o wireOptions
	for _, opt := range opts {
		opt(&o)
	}
	set := vocab.DefaultSet()
	if o.vocabulary != nil {
		set = *o.vocabulary
	}
	if len(cfg.ExtraRoles) > 0 {
		set.Roles = vocab.Merge(set.Roles, vocab.List(cfg.ExtraRoles))
	}
	if len(cfg.ExtraModules) > 0 {
		set.Modules = vocab.Merge(set.Modules, vocab.List(cfg.ExtraModules))
	}
	return set
}

// Wire connects to the configured backends and builds the services. Redis and
// NATS are optional: without them archival runs unlocked across processes,
// archive searches are not cached and no events are published.
func Wire(ctx context.Context, cfg config.Config, logger zerolog.Logger, opts ...Option) (*Components, func(), error) {
	client, err := database.OpenStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	components := &Components{Store: client}
	cleanup := func() {
		if components.NATS != nil {
			components.NATS.Close()
		}
		if components.Redis != nil {
			_ = components.Redis.Close()
		}
		_ = components.Store.Disconnect(context.Background())
	}

	if cfg.RedisURL != "" {
		components.Redis, err = database.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
	} else {
		logger.Warn().Msg("redis not configured; archival lock and search cache disabled")
	}

	if cfg.NATSURL != "" {
		components.NATS, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := vocab.RegisterValidations(validate, Vocabulary(cfg, opts...)); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("register vocabularies: %w", err)
	}
	components.Validator = validate

	resolver := period.NewResolver(period.Config{
		ActiveDatabase:   cfg.ActivityDatabase,
		ActiveCollection: cfg.ActivityCollection,
		ArchiveDatabase:  cfg.ArchiveDatabase,
		RetentionMonths:  cfg.RetentionMonths,
	})
	components.Resolver = resolver

	liveColl := client.Collection(cfg.ActivityDatabase, cfg.ActivityCollection)
	liveRepo := repository.NewActivityRepository(liveColl, cfg.ActivityEnabled)
	cache := service.NewSearchCache(components.Redis, cfg.ArchiveSearchCacheTTL, logger)

	archiveOpts := service.ArchiveOptions{LockTTL: cfg.ArchiveLockTTL, Cache: cache}
	if components.Redis != nil {
		archiveOpts.Locker = lock.NewRedisLocker(components.Redis, "")
	}
	if components.NATS != nil {
		archiveOpts.Publisher = events.NewPublisher(components.NATS, cfg.NATSSubjectPrefix, logger)
	}

	components.ActivityService = service.NewActivityService(liveRepo, client, resolver, cache, validate, logger)
	components.ArchiveService = service.NewArchiveService(liveRepo, client, resolver, archiveOpts, logger)
	components.IndexService = service.NewIndexService(liveColl, client, resolver, logger)

	return components, cleanup, nil
}
