package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/mongo-activity/internal/events"
	"github.com/noah-isme/mongo-activity/internal/lock"
	"github.com/noah-isme/mongo-activity/internal/models"
	"github.com/noah-isme/mongo-activity/internal/observability"
	"github.com/noah-isme/mongo-activity/internal/period"
	"github.com/noah-isme/mongo-activity/internal/repository"
	"github.com/noah-isme/mongo-activity/internal/store"
)

const (
	archivalLockKey        = "archival"
	defaultArchivalLockTTL = 30 * time.Minute
)

// ErrArchivalInProgress is returned when another archival run holds the lock.
var ErrArchivalInProgress = errors.New("activity archival already in progress")

// PartialArchivalError reports partitions that could not be written. The live
// collection is left untouched whenever it is returned.
type PartialArchivalError struct {
	Succeeded map[string]int
	Failed    map[string]error
}

func (e *PartialArchivalError) Error() string {
	names := e.FailedPartitions()
	return fmt.Sprintf("archival incomplete: %d of %d partitions failed (%s); live records retained",
		len(names), len(names)+len(e.Succeeded), strings.Join(names, ", "))
}

// Unwrap exposes the per-partition causes to errors.Is and errors.As.
func (e *PartialArchivalError) Unwrap() []error {
	names := e.FailedPartitions()
	causes := make([]error, 0, len(names))
	for _, name := range names {
		causes = append(causes, e.Failed[name])
	}
	return causes
}

// FailedPartitions returns the failed partition names in order.
func (e *PartialArchivalError) FailedPartitions() []string {
	names := make([]string, 0, len(e.Failed))
	for name := range e.Failed {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ArchivalLocker serialises archival runs across processes.
type ArchivalLocker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (*lock.Lease, error)
	Extend(ctx context.Context, lease *lock.Lease, ttl time.Duration) error
	Release(ctx context.Context, lease *lock.Lease) error
}

// ArchivalPublisher announces finished runs.
type ArchivalPublisher interface {
	ArchivalFinished(status string, report models.ArchivalReport, runErr error) error
}

// ArchiveOptions carries the optional collaborators of the archive service.
type ArchiveOptions struct {
	Locker    ArchivalLocker
	LockTTL   time.Duration
	Publisher ArchivalPublisher
	Cache     *SearchCache
}

// ArchiveService moves aged records from the live collection into quarterly partitions.
type ArchiveService interface {
	// RunArchival archives every live record older than cutoff.
	RunArchival(ctx context.Context, cutoff time.Time) (models.ArchivalReport, error)
	// Run takes the distributed lease and archives up to the resolver's cutoff.
	Run(ctx context.Context) (models.ArchivalReport, error)
}

type archiveService struct {
	live      repository.ActivityRepository
	client    store.Client
	resolver  *period.Resolver
	locker    ArchivalLocker
	lockTTL   time.Duration
	publisher ArchivalPublisher
	cache     *SearchCache
	running   sync.Mutex
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewArchiveService constructs the archive orchestrator.
func NewArchiveService(live repository.ActivityRepository, client store.Client, resolver *period.Resolver, opts ArchiveOptions, logger zerolog.Logger) ArchiveService {
	ttl := opts.LockTTL
	if ttl <= 0 {
		ttl = defaultArchivalLockTTL
	}
	return &archiveService{
		live:      live,
		client:    client,
		resolver:  resolver,
		locker:    opts.Locker,
		lockTTL:   ttl,
		publisher: opts.Publisher,
		cache:     opts.Cache,
		logger:    logger.With().Str("component", "archive_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/mongo-activity/internal/service/archive"),
	}
}

func (s *archiveService) Run(ctx context.Context) (models.ArchivalReport, error) {
	if s.locker != nil {
		lease, err := s.locker.Acquire(ctx, archivalLockKey, s.lockTTL)
		if errors.Is(err, lock.ErrAlreadyLocked) {
			observability.ArchivalRuns().WithLabelValues("locked").Inc()
			return models.ArchivalReport{}, ErrArchivalInProgress
		}
		if err != nil {
			return models.ArchivalReport{}, fmt.Errorf("acquire archival lock: %w", err)
		}
		defer func() {
			if err := s.locker.Release(context.WithoutCancel(ctx), lease); err != nil {
				s.logger.Warn().Err(err).Msg("failed to release archival lock")
			}
		}()

		runCtx, cancel := context.WithCancelCause(ctx)
		defer cancel(nil)
		stop := s.renewLease(runCtx, lease, cancel)

		report, err := s.RunArchival(runCtx, s.resolver.Cutoff())
		stop()
		if cause := context.Cause(runCtx); errors.Is(cause, lock.ErrLeaseLost) {
			return report, errors.Join(err, fmt.Errorf("archival lease: %w", cause))
		}
		return report, err
	}

	return s.RunArchival(ctx, s.resolver.Cutoff())
}

// renewLease extends lease every third of the lock TTL until stop is called.
// Losing the lease cancels the run with lock.ErrLeaseLost as the cause.
func (s *archiveService) renewLease(ctx context.Context, lease *lock.Lease, cancel context.CancelCauseFunc) (stop func()) {
	interval := s.lockTTL / 3
	if interval <= 0 {
		interval = s.lockTTL
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				err := s.locker.Extend(ctx, lease, s.lockTTL)
				if err == nil {
					continue
				}
				if errors.Is(err, lock.ErrLeaseLost) {
					s.logger.Error().Err(err).Msg("archival lease lost; aborting run")
					cancel(err)
					return
				}
				s.logger.Warn().Err(err).Msg("failed to renew archival lease")
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			wg.Wait()
		})
	}
}

func (s *archiveService) RunArchival(ctx context.Context, cutoff time.Time) (models.ArchivalReport, error) {
	if !s.running.TryLock() {
		observability.ArchivalRuns().WithLabelValues("locked").Inc()
		return models.ArchivalReport{}, ErrArchivalInProgress
	}
	defer s.running.Unlock()

	report := models.ArchivalReport{
		RunID:      uuid.NewString(),
		Cutoff:     cutoff.UTC(),
		Partitions: map[string]int{},
		StartedAt:  time.Now().UTC(),
	}

	ctx, span := s.tracer.Start(ctx, "activities.archival", trace.WithAttributes(
		attribute.String("archival.run_id", report.RunID),
		attribute.String("archival.cutoff", report.Cutoff.Format(time.RFC3339)),
	))
	defer span.End()

	logger := s.logger.With().Str("run_id", report.RunID).Time("cutoff", report.Cutoff).Logger()
	logger.Info().Msg("archival started")

	err := s.archive(ctx, cutoff, &report, logger)
	report.FinishedAt = time.Now().UTC()

	status := events.StatusCompleted
	var partial *PartialArchivalError
	switch {
	case errors.As(err, &partial):
		status = events.StatusPartial
	case err != nil:
		status = events.StatusFailed
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, status)
		logger.Error().Err(err).Strs("failed", report.Failed).Msg("archival did not complete")
	} else {
		span.SetStatus(codes.Ok, status)
		logger.Info().
			Int("migrated", report.MigratedCount).
			Int("skipped", report.Skipped).
			Int64("deleted", report.Deleted).
			Msg("archival completed")
	}

	observability.ArchivalRuns().WithLabelValues(status).Inc()
	observability.ArchivalDuration().Observe(report.FinishedAt.Sub(report.StartedAt).Seconds())

	if s.publisher != nil {
		if pubErr := s.publisher.ArchivalFinished(status, report, err); pubErr != nil {
			logger.Warn().Err(pubErr).Msg("failed to announce archival outcome")
		}
	}

	return report, err
}

func (s *archiveService) archive(ctx context.Context, cutoff time.Time, report *models.ArchivalReport, logger zerolog.Logger) error {
	// Range filters never match records without created_at, so they are counted separately.
	undated, err := s.live.CountUndated(ctx)
	if err != nil {
		return fmt.Errorf("count undated records: %w", err)
	}
	if undated > 0 {
		report.Undated = undated
		report.Skipped += int(undated)
		observability.ArchivalSkipped().Add(float64(undated))
		logger.Warn().Int64("count", undated).Msg("live records without created_at stay in the live collection")
	}

	records, err := s.live.FindOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("fetch archivable records: %w", err)
	}
	report.Fetched = len(records)

	batches := make(map[string][]models.ActivityRecord)
	for _, record := range records {
		if !record.HasCreatedAt() {
			report.Skipped++
			observability.ArchivalSkipped().Inc()
			logger.Warn().Str("id", record.ID.Hex()).Msg("skipping record without created_at")
			continue
		}
		name, err := s.resolver.PartitionName(record.CreatedAt)
		if err != nil {
			report.Skipped++
			observability.ArchivalSkipped().Inc()
			logger.Warn().Err(err).Str("id", record.ID.Hex()).Msg("skipping record without partition")
			continue
		}
		batches[name] = append(batches[name], record)
	}

	names := make([]string, 0, len(batches))
	for name := range batches {
		names = append(names, name)
	}
	sort.Strings(names)

	failed := make(map[string]error)
	for _, name := range names {
		batch := batches[name]
		created, err := s.archivePartition(ctx, name, batch, logger)
		if err != nil {
			failed[name] = err
			logger.Error().Err(err).Str("partition", name).Int("count", len(batch)).Msg("partition archival failed")
			continue
		}

		report.Partitions[name] = len(batch)
		report.MigratedCount += len(batch)
		if created {
			report.IndexedNew = append(report.IndexedNew, name)
		}
		observability.ArchivedRecords().WithLabelValues(name).Add(float64(len(batch)))

		if err := s.cache.Invalidate(ctx, name); err != nil {
			logger.Warn().Err(err).Str("partition", name).Msg("failed to invalidate search cache")
		}
	}

	if len(failed) > 0 {
		partial := &PartialArchivalError{Succeeded: report.Partitions, Failed: failed}
		report.Failed = partial.FailedPartitions()
		return partial
	}

	deleted, err := s.live.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("delete archived records: %w", err)
	}
	report.Deleted = deleted
	return nil
}

// archivePartition writes batch and creates whatever activity indexes the
// partition is missing. It reports whether any index was created.
func (s *archiveService) archivePartition(ctx context.Context, name string, batch []models.ActivityRecord, logger zerolog.Logger) (bool, error) {
	archive := repository.NewArchiveRepository(s.client.Collection(s.resolver.Config().ArchiveDatabase, name))

	inserted, err := archive.InsertMany(ctx, batch)
	if err != nil {
		return false, fmt.Errorf("insert into %s: %w", name, err)
	}

	isNew, err := archive.IsNew(ctx)
	if err != nil {
		return false, fmt.Errorf("inspect indexes on %s: %w", name, err)
	}
	logger.Info().
		Str("partition", name).
		Int("count", len(batch)).
		Int("already_archived", len(batch)-inserted).
		Bool("new_partition", isNew).
		Msg("partition archived")

	// A previous run may have stopped halfway through the index set.
	created, err := repository.EnsureIndexes(ctx, archive.Collection())
	if err != nil {
		return false, err
	}
	return len(created) > 0, nil
}
