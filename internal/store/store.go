// Package store is the narrow boundary between the activity core and the
// document store driver.
package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/noah-isme/mongo-activity/internal/models"
)

// ErrStoreUnavailable wraps every driver or network failure surfaced by a Collection.
var ErrStoreUnavailable = errors.New("activity store unavailable")

// DefaultIndexName is the primary key index every collection carries.
const DefaultIndexName = "_id_"

// FindOptions shapes a Find call. Zero values mean "no limit", "no skip" and natural order.
type FindOptions struct {
	Limit int64
	Skip  int64
	Sort  bson.D
}

// IndexDefinition names a secondary index and its key specification.
type IndexDefinition struct {
	Name string
	Keys bson.D
}

// Collection is the subset of driver operations the activity core depends on.
type Collection interface {
	Database() string
	Name() string
	Find(ctx context.Context, filter bson.D, opts FindOptions) ([]models.ActivityRecord, error)
	InsertOne(ctx context.Context, record *models.ActivityRecord) error
	// InsertMany appends records and returns how many were newly written.
	// Records whose _id already exists are skipped without error.
	InsertMany(ctx context.Context, records []models.ActivityRecord) (int, error)
	DeleteMany(ctx context.Context, filter bson.D) (int64, error)
	CountDocuments(ctx context.Context, filter bson.D) (int64, error)
	CreateIndex(ctx context.Context, index IndexDefinition) error
	ListIndexNames(ctx context.Context) ([]string, error)
}

// Client hands out collections and owns the underlying connection.
type Client interface {
	Collection(database, name string) Collection
	CollectionNames(ctx context.Context, database string) ([]string, error)
	Ping(ctx context.Context) error
	Disconnect(ctx context.Context) error
}
