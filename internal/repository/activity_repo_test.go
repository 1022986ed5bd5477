package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/noah-isme/mongo-activity/internal/models"
	"github.com/noah-isme/mongo-activity/internal/pagination"
	"github.com/noah-isme/mongo-activity/internal/store"
	"github.com/noah-isme/mongo-activity/internal/store/memstore"
)

var baseTime = time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)

func strPtr(v string) *string { return &v }
func int64Ptr(v int64) *int64 { return &v }

func seedActivities(t *testing.T, coll *memstore.Collection, count int) {
	t.Helper()
	modules := []string{"product", "order", "auth"}
	for i := 0; i < count; i++ {
		coll.Seed(models.ActivityRecord{
			ID:          primitive.NewObjectID(),
			UserID:      int64(100 + i%4),
			Role:        "customer",
			Type:        "view",
			Module:      modules[i%len(modules)],
			Action:      fmt.Sprintf("view_%d", i),
			Description: strPtr(fmt.Sprintf("record %d", i)),
			CreatedAt:   baseTime.Add(time.Duration(i) * time.Minute),
		})
	}
}

func TestBuildActivityFilterOnlyIncludesPresentFields(t *testing.T) {
	require.Empty(t, BuildActivityFilter(ActivityFilter{}))

	from := baseTime
	filter := BuildActivityFilter(ActivityFilter{
		UserID:  int64Ptr(5),
		Module:  "order",
		Keyword: "a.b",
		From:    &from,
	})
	require.Len(t, filter, 4)
	require.Equal(t, "user_id", filter[0].Key)
	require.Equal(t, "module", filter[1].Key)
	require.Equal(t, bson.D{{Key: "$gte", Value: from}}, filter[2].Value)

	or, ok := filter[3].Value.(bson.A)
	require.True(t, ok)
	require.Equal(t, bson.D{{Key: "description", Value: primitive.Regex{Pattern: `a\.b`, Options: "i"}}}, or[0])
}

func TestSearchWithoutFiltersReturnsNewestFirst(t *testing.T) {
	coll := memstore.New().Lookup("db", "user_activities")
	seedActivities(t, coll, 45)
	repo := NewActivityRepository(coll, true)

	page, err := repo.Search(context.Background(), ActivityFilter{}, PageRequest{Page: 1, PerPage: 20})
	require.NoError(t, err)
	require.Len(t, page.Records, 20)
	require.Equal(t, int64(45), page.Total)
	require.Equal(t, 3, page.TotalPages)
	require.Equal(t, baseTime.Add(44*time.Minute), page.Records[0].CreatedAt)
	for i := 1; i < len(page.Records); i++ {
		require.True(t, page.Records[i-1].CreatedAt.After(page.Records[i].CreatedAt))
	}

	last, err := repo.Search(context.Background(), ActivityFilter{}, PageRequest{Page: 3, PerPage: 20, Sort: SortDesc})
	require.NoError(t, err)
	require.Len(t, last.Records, 5)
	require.Equal(t, baseTime, last.Records[4].CreatedAt)
}

func TestSearchReturnsEverythingWhenFewerThanPage(t *testing.T) {
	coll := memstore.New().Lookup("db", "user_activities")
	seedActivities(t, coll, 7)
	repo := NewActivityRepository(coll, true)

	page, err := repo.Search(context.Background(), ActivityFilter{}, PageRequest{Page: 1, PerPage: 20})
	require.NoError(t, err)
	require.Len(t, page.Records, 7)
	require.Equal(t, 1, page.TotalPages)
}

func TestSearchByModuleAndKeyword(t *testing.T) {
	coll := memstore.New().Lookup("db", "user_activities")
	seedActivities(t, coll, 30)
	repo := NewActivityRepository(coll, true)
	ctx := context.Background()

	page, err := repo.Search(ctx, ActivityFilter{Module: "order"}, PageRequest{Page: 1, PerPage: 50})
	require.NoError(t, err)
	require.Equal(t, int64(10), page.Total)
	for _, record := range page.Records {
		require.Equal(t, "order", record.Module)
	}

	page, err = repo.Search(ctx, ActivityFilter{Keyword: "RECORD 2"}, PageRequest{Page: 1, PerPage: 50, Sort: SortAsc})
	require.NoError(t, err)
	// "record 2" and "record 20".."record 29"
	require.Equal(t, int64(11), page.Total)
	require.Equal(t, "view_2", page.Records[0].Action)

	page, err = repo.Search(ctx, ActivityFilter{Keyword: "view_7"}, PageRequest{Page: 1, PerPage: 50})
	require.NoError(t, err)
	require.Equal(t, int64(1), page.Total)
}

func TestSearchDateRangeIsInclusive(t *testing.T) {
	coll := memstore.New().Lookup("db", "user_activities")
	seedActivities(t, coll, 10)
	repo := NewActivityRepository(coll, true)

	from := baseTime.Add(2 * time.Minute)
	to := baseTime.Add(5 * time.Minute)
	page, err := repo.Search(context.Background(), ActivityFilter{From: &from, To: &to}, PageRequest{Page: 1, PerPage: 20})
	require.NoError(t, err)
	require.Equal(t, int64(4), page.Total)
}

func TestSearchRejectsInvalidPagination(t *testing.T) {
	repo := NewActivityRepository(memstore.New().Collection("db", "c"), true)

	_, err := repo.Search(context.Background(), ActivityFilter{}, PageRequest{Page: 0, PerPage: 20})
	require.ErrorIs(t, err, pagination.ErrInvalidPagination)
	_, err = repo.Search(context.Background(), ActivityFilter{}, PageRequest{Page: 1, PerPage: 0})
	require.ErrorIs(t, err, pagination.ErrInvalidPagination)
}

func TestInsertAssignsIDAndTimestamp(t *testing.T) {
	coll := memstore.New().Lookup("db", "user_activities")
	repo := NewActivityRepository(coll, true)

	record := models.ActivityRecord{UserID: 1, Role: "admin", Type: "create", Module: "product", Action: "create_product"}
	require.NoError(t, repo.Insert(context.Background(), &record))
	require.False(t, record.ID.IsZero())
	require.True(t, record.HasCreatedAt())
	require.Len(t, coll.Documents(), 1)
}

func TestDisabledRepositoryIsNoop(t *testing.T) {
	coll := memstore.New().Lookup("db", "user_activities")
	seedActivities(t, coll, 3)
	coll.FailInserts(errors.New("must not be called"))
	repo := NewActivityRepository(coll, false)

	require.NoError(t, repo.Insert(context.Background(), &models.ActivityRecord{UserID: 100}))
	require.Equal(t, 0, coll.InsertCalls())

	records, err := repo.FindByUser(context.Background(), 100, 10)
	require.NoError(t, err)
	require.NotNil(t, records)
	require.Empty(t, records)
}

func TestFindByUserLimitsAndSorts(t *testing.T) {
	coll := memstore.New().Lookup("db", "user_activities")
	seedActivities(t, coll, 40)
	repo := NewActivityRepository(coll, true)

	records, err := repo.FindByUser(context.Background(), 101, 0)
	require.NoError(t, err)
	require.Len(t, records, 10)
	require.Equal(t, baseTime.Add(37*time.Minute), records[0].CreatedAt)

	records, err = repo.FindByUser(context.Background(), 101, 3)
	require.NoError(t, err)
	require.Len(t, records, 3)
}

func TestRangeAndOlderThanOperations(t *testing.T) {
	coll := memstore.New().Lookup("db", "user_activities")
	seedActivities(t, coll, 10)
	coll.Seed(models.ActivityRecord{ID: primitive.NewObjectID(), UserID: 1})
	repo := NewActivityRepository(coll, true)
	ctx := context.Background()

	cutoff := baseTime.Add(4 * time.Minute)
	older, err := repo.FindOlderThan(ctx, cutoff)
	require.NoError(t, err)
	require.Len(t, older, 4)
	require.Equal(t, baseTime, older[0].CreatedAt)

	inRange, err := repo.FindRange(ctx, baseTime.Add(6*time.Minute), baseTime.Add(7*time.Minute))
	require.NoError(t, err)
	require.Len(t, inRange, 2)

	deleted, err := repo.DeleteRange(ctx, baseTime.Add(6*time.Minute), baseTime.Add(7*time.Minute))
	require.NoError(t, err)
	require.Equal(t, int64(2), deleted)

	deleted, err = repo.DeleteOlderThan(ctx, cutoff)
	require.NoError(t, err)
	require.Equal(t, int64(4), deleted)
	// the record without created_at is never matched by range filters
	require.Len(t, coll.Documents(), 5)

	undated, err := repo.CountUndated(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), undated)
}

func TestSearchPropagatesStoreFailures(t *testing.T) {
	coll := memstore.New().Lookup("db", "user_activities")
	coll.FailFinds(errors.New("socket closed"))
	repo := NewActivityRepository(coll, true)

	_, err := repo.Search(context.Background(), ActivityFilter{}, PageRequest{Page: 1, PerPage: 20})
	require.ErrorIs(t, err, store.ErrStoreUnavailable)
}
