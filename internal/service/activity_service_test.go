package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mongo-activity/internal/dto"
	"github.com/noah-isme/mongo-activity/internal/models"
	"github.com/noah-isme/mongo-activity/internal/pagination"
	"github.com/noah-isme/mongo-activity/internal/period"
)

func TestActivityServiceRecordSanitizesAndNormalizes(t *testing.T) {
	f := newFixture(true)
	svc := NewActivityService(f.repo, f.client, f.resolver, nil, testValidator(t), testLogger())

	resp, err := svc.Record(context.Background(), dto.RecordActivityRequest{
		UserID:      7,
		Role:        "Admin",
		Type:        "update",
		Module:      "Product",
		Action:      "update_product",
		Description: strPtr("<b>price</b> changed"),
		RefID:       int64Ptr(42),
		IP:          strPtr("10.0.0.1"),
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.ID)
	require.Equal(t, "admin", resp.Role)
	require.Equal(t, "product", resp.Module)
	require.Equal(t, "price changed", *resp.Description)
	require.False(t, resp.CreatedAt.IsZero())

	docs := f.live.Documents()
	require.Len(t, docs, 1)
	require.Equal(t, int64(42), *docs[0].RefID)
}

func TestActivityServiceRecordRejectsUnknownVocabulary(t *testing.T) {
	f := newFixture(true)
	svc := NewActivityService(f.repo, f.client, f.resolver, nil, testValidator(t), testLogger())

	_, err := svc.Record(context.Background(), dto.RecordActivityRequest{
		UserID: 7,
		Role:   "pirate",
		Type:   "view",
		Module: "product",
		Action: "view_product",
	})
	var validationErrs validator.ValidationErrors
	require.ErrorAs(t, err, &validationErrs)
	require.Empty(t, f.live.Documents())

	_, err = svc.Record(context.Background(), dto.RecordActivityRequest{
		Role:   "customer",
		Type:   "view",
		Module: "product",
		Action: "<script></script>",
	})
	require.ErrorIs(t, err, ErrEmptyAction)
}

func TestActivityServiceRecordWhenDisabled(t *testing.T) {
	f := newFixture(false)
	svc := NewActivityService(f.repo, f.client, f.resolver, nil, testValidator(t), testLogger())

	resp, err := svc.Record(context.Background(), dto.RecordActivityRequest{
		Role:   "system",
		Type:   "system",
		Module: "auth",
		Action: "login",
	})
	require.NoError(t, err)
	require.Empty(t, resp.ID)
	require.Zero(t, f.live.InsertCalls())

	found, err := svc.FindByUser(context.Background(), 0, 10)
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Empty(t, found)
}

func TestActivityServiceSearchActiveWindow(t *testing.T) {
	f := newFixture(true)
	for i := 0; i < 25; i++ {
		f.live.Seed(activityAt(9, "order", "view_order", fixedNow.Add(-time.Duration(i)*time.Hour)))
	}
	f.live.Seed(activityAt(10, "auth", "login", fixedNow.Add(-time.Hour)))
	svc := NewActivityService(f.repo, f.client, f.resolver, nil, testValidator(t), testLogger())

	result, err := svc.Search(context.Background(), dto.ActivitySearchRequest{
		UserID:  int64Ptr(9),
		PerPage: 10,
		Page:    3,
	})
	require.NoError(t, err)
	require.Equal(t, models.PeriodActive, result.Meta.PeriodType)
	require.Equal(t, "user_activities", result.Meta.Collection)
	require.Equal(t, int64(25), result.Meta.Total)
	require.Equal(t, 3, result.Meta.TotalPages)
	require.Len(t, result.Data, 5)
	require.Equal(t, int64(9), result.Meta.Filters["user_id"])

	// Newest first by default.
	first, err := svc.Search(context.Background(), dto.ActivitySearchRequest{UserID: int64Ptr(9)})
	require.NoError(t, err)
	require.Equal(t, pagination.DefaultPerPage, first.Meta.PerPage)
	require.True(t, first.Data[0].CreatedAt.After(first.Data[1].CreatedAt))
}

func TestActivityServiceSearchErrors(t *testing.T) {
	f := newFixture(true)
	svc := NewActivityService(f.repo, f.client, f.resolver, nil, testValidator(t), testLogger())
	ctx := context.Background()

	_, err := svc.Search(ctx, dto.ActivitySearchRequest{
		From: timePtr(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)),
		To:   timePtr(time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)),
	})
	require.ErrorIs(t, err, period.ErrCrossBoundary)

	_, err = svc.Search(ctx, dto.ActivitySearchRequest{Page: -1})
	require.ErrorIs(t, err, pagination.ErrInvalidPagination)

	_, err = svc.Search(ctx, dto.ActivitySearchRequest{
		From: timePtr(fixedNow),
		To:   timePtr(fixedNow.Add(-time.Hour)),
	})
	require.ErrorIs(t, err, period.ErrInvalidRange)
}

func TestActivityServiceSearchArchiveUsesCache(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer redisClient.Close()

	f := newFixture(true)
	partition := f.archive("user_activities_2025_Q1")
	partition.Seed(activityAt(3, "wallet", "topup", time.Date(2025, 2, 10, 8, 0, 0, 0, time.UTC)))

	cache := NewSearchCache(redisClient, time.Minute, testLogger())
	svc := NewActivityService(f.repo, f.client, f.resolver, cache, testValidator(t), testLogger())
	req := dto.ActivitySearchRequest{
		From: timePtr(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
		To:   timePtr(time.Date(2025, 3, 31, 23, 59, 59, 0, time.UTC)),
	}

	result, err := svc.Search(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, models.PeriodArchive, result.Meta.PeriodType)
	require.Equal(t, "user_activities_2025_Q1", result.Meta.Collection)
	require.Equal(t, int64(1), result.Meta.Total)

	partition.Seed(activityAt(3, "wallet", "withdraw", time.Date(2025, 2, 11, 8, 0, 0, 0, time.UTC)))

	cached, err := svc.Search(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, int64(1), cached.Meta.Total)

	require.NoError(t, cache.Invalidate(context.Background(), "user_activities_2025_Q1"))
	fresh, err := svc.Search(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, int64(2), fresh.Meta.Total)
}

func TestActivityServicePeriods(t *testing.T) {
	f := newFixture(true)
	svc := NewActivityService(f.repo, f.client, f.resolver, nil, testValidator(t), testLogger())

	periods := svc.Periods(context.Background(), 0)
	require.Len(t, periods.Archives, 12)
	require.Equal(t, "user_activities_2023_Q1", periods.Archives[0].Collection)
	require.Equal(t, "Q4 2025", periods.Archives[11].Label)
	require.Equal(t, fixedNow, periods.Current.End)
	require.Equal(t, time.Date(2025, 5, 5, 13, 17, 0, 0, time.UTC), periods.Current.Start)
}
