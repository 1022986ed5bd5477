package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/noah-isme/mongo-activity/internal/period"
	"github.com/noah-isme/mongo-activity/internal/repository"
	"github.com/noah-isme/mongo-activity/internal/store"
)

// IndexService keeps the live and archive collections indexed.
type IndexService interface {
	EnsureActive(ctx context.Context) ([]string, error)
	// EnsureArchives indexes the archive partitions of the last yearsBack
	// years that already exist. Missing partitions are not created.
	EnsureArchives(ctx context.Context, yearsBack int) (map[string][]string, error)
}

type indexService struct {
	live     store.Collection
	client   store.Client
	resolver *period.Resolver
	logger   zerolog.Logger
}

// NewIndexService constructs the index maintenance service.
func NewIndexService(live store.Collection, client store.Client, resolver *period.Resolver, logger zerolog.Logger) IndexService {
	return &indexService{
		live:     live,
		client:   client,
		resolver: resolver,
		logger:   logger.With().Str("component", "index_service").Logger(),
	}
}

func (s *indexService) EnsureActive(ctx context.Context) ([]string, error) {
	created, err := repository.EnsureIndexes(ctx, s.live)
	if err != nil {
		return created, err
	}
	s.logger.Info().Str("collection", s.live.Name()).Strs("created", created).Msg("live indexes ensured")
	return created, nil
}

func (s *indexService) EnsureArchives(ctx context.Context, yearsBack int) (map[string][]string, error) {
	database := s.resolver.Config().ArchiveDatabase
	names, err := s.client.CollectionNames(ctx, database)
	if err != nil {
		return nil, fmt.Errorf("list archive partitions: %w", err)
	}
	existing := make(map[string]struct{}, len(names))
	for _, name := range names {
		existing[name] = struct{}{}
	}

	result := make(map[string][]string)
	for _, partition := range s.resolver.ArchivePeriods(yearsBack) {
		if _, ok := existing[partition.Collection]; !ok {
			continue
		}
		created, err := repository.EnsureIndexes(ctx, s.client.Collection(database, partition.Collection))
		if err != nil {
			return result, err
		}
		result[partition.Collection] = created
		if len(created) > 0 {
			s.logger.Info().Str("collection", partition.Collection).Strs("created", created).Msg("archive indexes ensured")
		}
	}
	return result, nil
}
