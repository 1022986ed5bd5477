package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/noah-isme/mongo-activity/internal/models"
	"github.com/noah-isme/mongo-activity/internal/store"
)

// DefaultUserLimit bounds FindByUser when no limit is given.
const DefaultUserLimit = 20

// ActivityRepository owns the live activity collection.
type ActivityRepository interface {
	Insert(ctx context.Context, record *models.ActivityRecord) error
	FindByUser(ctx context.Context, userID int64, limit int) ([]models.ActivityRecord, error)
	Search(ctx context.Context, filter ActivityFilter, page PageRequest) (SearchPage, error)
	FindRange(ctx context.Context, from, to time.Time) ([]models.ActivityRecord, error)
	DeleteRange(ctx context.Context, from, to time.Time) (int64, error)
	FindOlderThan(ctx context.Context, cutoff time.Time) ([]models.ActivityRecord, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	// CountUndated counts live records without created_at. Archival cannot route them.
	CountUndated(ctx context.Context) (int64, error)
	Enabled() bool
	Collection() store.Collection
}

type activityRepository struct {
	coll    store.Collection
	enabled bool
	now     func() time.Time
}

// NewActivityRepository constructs the live store. When enabled is false,
// Insert and FindByUser succeed without touching the collection.
func NewActivityRepository(coll store.Collection, enabled bool) ActivityRepository {
	return &activityRepository{coll: coll, enabled: enabled, now: time.Now}
}

func (r *activityRepository) Enabled() bool {
	return r.enabled
}

func (r *activityRepository) Collection() store.Collection {
	return r.coll
}

func (r *activityRepository) Insert(ctx context.Context, record *models.ActivityRecord) error {
	if !r.enabled {
		return nil
	}

	if record.ID.IsZero() {
		record.ID = primitive.NewObjectID()
	}
	if record.CreatedAt.IsZero() {
		// BSON dates carry millisecond precision.
		record.CreatedAt = r.now().UTC().Truncate(time.Millisecond)
	}
	return r.coll.InsertOne(ctx, record)
}

func (r *activityRepository) FindByUser(ctx context.Context, userID int64, limit int) ([]models.ActivityRecord, error) {
	if !r.enabled {
		return []models.ActivityRecord{}, nil
	}
	if limit <= 0 {
		limit = DefaultUserLimit
	}

	return r.coll.Find(ctx, bson.D{{Key: "user_id", Value: userID}}, store.FindOptions{
		Limit: int64(limit),
		Sort:  createdAtSort(SortDesc),
	})
}

func (r *activityRepository) Search(ctx context.Context, filter ActivityFilter, page PageRequest) (SearchPage, error) {
	return searchCollection(ctx, r.coll, filter, page)
}

func (r *activityRepository) FindRange(ctx context.Context, from, to time.Time) ([]models.ActivityRecord, error) {
	return r.coll.Find(ctx, rangeFilter(from, to), store.FindOptions{Sort: createdAtSort(SortAsc)})
}

func (r *activityRepository) DeleteRange(ctx context.Context, from, to time.Time) (int64, error) {
	return r.coll.DeleteMany(ctx, rangeFilter(from, to))
}

func (r *activityRepository) FindOlderThan(ctx context.Context, cutoff time.Time) ([]models.ActivityRecord, error) {
	return r.coll.Find(ctx, olderThanFilter(cutoff), store.FindOptions{Sort: createdAtSort(SortAsc)})
}

func (r *activityRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return r.coll.DeleteMany(ctx, olderThanFilter(cutoff))
}

func (r *activityRepository) CountUndated(ctx context.Context) (int64, error) {
	return r.coll.CountDocuments(ctx, undatedFilter())
}
