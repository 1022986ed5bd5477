package repository

import (
	"context"
	"time"

	"github.com/noah-isme/mongo-activity/internal/models"
	"github.com/noah-isme/mongo-activity/internal/store"
)

// ArchiveRepository owns one quarterly archive collection. It is append-only.
type ArchiveRepository interface {
	InsertMany(ctx context.Context, records []models.ActivityRecord) (int, error)
	FindRange(ctx context.Context, from, to time.Time) ([]models.ActivityRecord, error)
	Search(ctx context.Context, filter ActivityFilter, page PageRequest) (SearchPage, error)
	IsNew(ctx context.Context) (bool, error)
	Collection() store.Collection
}

type archiveRepository struct {
	coll store.Collection
}

// NewArchiveRepository wraps a partition collection.
func NewArchiveRepository(coll store.Collection) ArchiveRepository {
	return &archiveRepository{coll: coll}
}

func (r *archiveRepository) Collection() store.Collection {
	return r.coll
}

func (r *archiveRepository) InsertMany(ctx context.Context, records []models.ActivityRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	return r.coll.InsertMany(ctx, records)
}

func (r *archiveRepository) FindRange(ctx context.Context, from, to time.Time) ([]models.ActivityRecord, error) {
	return r.coll.Find(ctx, rangeFilter(from, to), store.FindOptions{Sort: createdAtSort(SortDesc)})
}

func (r *archiveRepository) Search(ctx context.Context, filter ActivityFilter, page PageRequest) (SearchPage, error) {
	return searchCollection(ctx, r.coll, filter, page)
}

// IsNew reports whether the partition carries no more than the primary key index.
func (r *archiveRepository) IsNew(ctx context.Context) (bool, error) {
	names, err := r.coll.ListIndexNames(ctx)
	if err != nil {
		return false, err
	}
	return len(names) <= 1, nil
}
