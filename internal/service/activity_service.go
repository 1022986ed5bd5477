package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/mongo-activity/internal/dto"
	"github.com/noah-isme/mongo-activity/internal/models"
	"github.com/noah-isme/mongo-activity/internal/observability"
	"github.com/noah-isme/mongo-activity/internal/pagination"
	"github.com/noah-isme/mongo-activity/internal/period"
	"github.com/noah-isme/mongo-activity/internal/repository"
	"github.com/noah-isme/mongo-activity/internal/store"
)

// ErrEmptyAction is returned when the action holds nothing but markup.
var ErrEmptyAction = errors.New("activity action empty after sanitization")

// DefaultYearsBack bounds the archive period listing when no value is given.
const DefaultYearsBack = 2

// ActivityService records activities and answers routed searches.
type ActivityService interface {
	Record(ctx context.Context, req dto.RecordActivityRequest) (dto.ActivityResponse, error)
	FindByUser(ctx context.Context, userID int64, limit int) ([]dto.ActivityResponse, error)
	Search(ctx context.Context, req dto.ActivitySearchRequest) (dto.ActivitySearchResult, error)
	Periods(ctx context.Context, yearsBack int) dto.PeriodsResponse
}

type activitySearcher interface {
	Search(ctx context.Context, filter repository.ActivityFilter, page repository.PageRequest) (repository.SearchPage, error)
}

type activityService struct {
	live      repository.ActivityRepository
	client    store.Client
	resolver  *period.Resolver
	cache     *SearchCache
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewActivityService constructs the activity facade. cache may be nil.
func NewActivityService(live repository.ActivityRepository, client store.Client, resolver *period.Resolver, cache *SearchCache, validate *validator.Validate, logger zerolog.Logger) ActivityService {
	return &activityService{
		live:      live,
		client:    client,
		resolver:  resolver,
		cache:     cache,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "activity_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/mongo-activity/internal/service/activity"),
	}
}

func (s *activityService) Record(ctx context.Context, req dto.RecordActivityRequest) (dto.ActivityResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.ActivityResponse{}, err
	}

	action := strings.TrimSpace(s.sanitizer.Sanitize(req.Action))
	if action == "" {
		return dto.ActivityResponse{}, ErrEmptyAction
	}

	record := models.ActivityRecord{
		UserID:      req.UserID,
		Role:        strings.ToLower(strings.TrimSpace(req.Role)),
		Type:        strings.ToLower(strings.TrimSpace(req.Type)),
		Module:      strings.ToLower(strings.TrimSpace(req.Module)),
		Action:      action,
		Description: s.sanitizeOptional(req.Description),
		RefID:       req.RefID,
		IP:          trimOptional(req.IP),
		UserAgent:   s.sanitizeOptional(req.UserAgent),
	}

	if err := s.live.Insert(ctx, &record); err != nil {
		s.logger.Error().Err(err).Int64("user_id", record.UserID).Str("action", record.Action).Msg("failed to persist activity")
		return dto.ActivityResponse{}, err
	}

	if s.live.Enabled() {
		observability.ActivityRecorded().WithLabelValues(record.Type, record.Module).Inc()
	}

	return dto.NewActivityResponse(record), nil
}

func (s *activityService) FindByUser(ctx context.Context, userID int64, limit int) ([]dto.ActivityResponse, error) {
	records, err := s.live.FindByUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	return dto.NewActivityResponses(records), nil
}

func (s *activityService) Search(ctx context.Context, req dto.ActivitySearchRequest) (dto.ActivitySearchResult, error) {
	ctx, span := s.tracer.Start(ctx, "activities.search")
	defer span.End()

	req.Page, req.PerPage = pagination.Normalize(req.Page, req.PerPage)
	if err := s.validator.Struct(req); err != nil {
		span.SetStatus(codes.Error, "validation failed")
		return dto.ActivitySearchResult{}, err
	}
	if err := pagination.Validate(req.Page, req.PerPage); err != nil {
		span.SetStatus(codes.Error, "invalid pagination")
		return dto.ActivitySearchResult{}, err
	}

	target, err := s.resolver.Resolve(req.From, req.To)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "period resolution failed")
		return dto.ActivitySearchResult{}, err
	}
	span.SetAttributes(
		attribute.String("activity.collection", target.Collection),
		attribute.String("activity.period_type", string(target.Kind)),
	)

	archived := target.Kind == models.PeriodArchive
	if archived {
		if cached, ok := s.cache.Get(ctx, target.Collection, req); ok {
			observability.ActivitySearches().WithLabelValues(string(target.Kind)).Inc()
			return cached, nil
		}
	}

	page, err := s.searcherFor(target).Search(ctx, toActivityFilter(req), repository.PageRequest{
		Page:    req.Page,
		PerPage: req.PerPage,
		Sort:    repository.ParseSortOrder(req.Sort),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "search failed")
		s.logger.Error().Err(err).Str("collection", target.Collection).Msg("activity search failed")
		return dto.ActivitySearchResult{}, err
	}

	result := dto.ActivitySearchResult{
		Data: dto.NewActivityResponses(page.Records),
		Meta: dto.SearchMeta{
			Meta:       page.Meta,
			Collection: target.Collection,
			PeriodType: target.Kind,
			Filters:    req.Filters(),
		},
	}

	if archived {
		s.cache.Set(ctx, target.Collection, req, result)
	}

	observability.ActivitySearches().WithLabelValues(string(target.Kind)).Inc()
	span.SetStatus(codes.Ok, "served")
	return result, nil
}

func (s *activityService) Periods(_ context.Context, yearsBack int) dto.PeriodsResponse {
	if yearsBack <= 0 {
		yearsBack = DefaultYearsBack
	}
	return dto.PeriodsResponse{
		Current:  s.resolver.CurrentWindow(),
		Archives: s.resolver.ArchivePeriods(yearsBack),
	}
}

func (s *activityService) searcherFor(target models.Period) activitySearcher {
	if target.Kind == models.PeriodActive {
		return s.live
	}
	return repository.NewArchiveRepository(s.client.Collection(target.Database, target.Collection))
}

func (s *activityService) sanitizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	clean := strings.TrimSpace(s.sanitizer.Sanitize(*value))
	if clean == "" {
		return nil
	}
	return &clean
}

func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func toActivityFilter(req dto.ActivitySearchRequest) repository.ActivityFilter {
	return repository.ActivityFilter{
		UserID:  req.UserID,
		Role:    strings.ToLower(strings.TrimSpace(req.Role)),
		RefID:   req.RefID,
		Module:  strings.ToLower(strings.TrimSpace(req.Module)),
		Type:    strings.ToLower(strings.TrimSpace(req.Type)),
		Keyword: req.Keyword,
		From:    req.From,
		To:      req.To,
	}
}
