package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/noah-isme/mongo-activity/internal/models"
)

const duplicateKeyCode = 11000

// MongoClient adapts a *mongo.Client to the Client interface.
type MongoClient struct {
	client *mongo.Client
}

// NewMongoClient wraps an already connected driver client.
func NewMongoClient(client *mongo.Client) *MongoClient {
	return &MongoClient{client: client}
}

// Collection returns a handle on database.name. No I/O is performed.
func (c *MongoClient) Collection(database, name string) Collection {
	return &mongoCollection{
		database: database,
		coll:     c.client.Database(database).Collection(name),
	}
}

// CollectionNames lists the collections that exist in database.
func (c *MongoClient) CollectionNames(ctx context.Context, database string) ([]string, error) {
	names, err := c.client.Database(database).ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, wrapDriverError("list collections", err)
	}
	return names, nil
}

// Ping verifies the primary is reachable.
func (c *MongoClient) Ping(ctx context.Context) error {
	return wrapDriverError("ping", c.client.Ping(ctx, readpref.Primary()))
}

// Disconnect closes every pooled connection.
func (c *MongoClient) Disconnect(ctx context.Context) error {
	return wrapDriverError("disconnect", c.client.Disconnect(ctx))
}

type mongoCollection struct {
	database string
	coll     *mongo.Collection
}

func (c *mongoCollection) Database() string { return c.database }

func (c *mongoCollection) Name() string { return c.coll.Name() }

func (c *mongoCollection) Find(ctx context.Context, filter bson.D, opts FindOptions) ([]models.ActivityRecord, error) {
	findOpts := options.Find()
	if opts.Limit > 0 {
		findOpts.SetLimit(opts.Limit)
	}
	if opts.Skip > 0 {
		findOpts.SetSkip(opts.Skip)
	}
	if len(opts.Sort) > 0 {
		findOpts.SetSort(opts.Sort)
	}

	cursor, err := c.coll.Find(ctx, normalizeFilter(filter), findOpts)
	if err != nil {
		return nil, wrapDriverError("find", err)
	}

	records := make([]models.ActivityRecord, 0)
	if err := cursor.All(ctx, &records); err != nil {
		return nil, wrapDriverError("decode", err)
	}
	return records, nil
}

func (c *mongoCollection) InsertOne(ctx context.Context, record *models.ActivityRecord) error {
	_, err := c.coll.InsertOne(ctx, record)
	return wrapDriverError("insert one", err)
}

func (c *mongoCollection) InsertMany(ctx context.Context, records []models.ActivityRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	docs := make([]interface{}, 0, len(records))
	for i := range records {
		docs = append(docs, records[i])
	}

	_, err := c.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err == nil {
		return len(records), nil
	}

	if duplicates, ok := onlyDuplicateKeys(err); ok {
		return len(records) - duplicates, nil
	}
	return 0, wrapDriverError("insert many", err)
}

func (c *mongoCollection) DeleteMany(ctx context.Context, filter bson.D) (int64, error) {
	result, err := c.coll.DeleteMany(ctx, normalizeFilter(filter))
	if err != nil {
		return 0, wrapDriverError("delete many", err)
	}
	return result.DeletedCount, nil
}

func (c *mongoCollection) CountDocuments(ctx context.Context, filter bson.D) (int64, error) {
	count, err := c.coll.CountDocuments(ctx, normalizeFilter(filter))
	if err != nil {
		return 0, wrapDriverError("count documents", err)
	}
	return count, nil
}

func (c *mongoCollection) CreateIndex(ctx context.Context, index IndexDefinition) error {
	_, err := c.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    index.Keys,
		Options: options.Index().SetName(index.Name),
	})
	return wrapDriverError("create index "+index.Name, err)
}

func (c *mongoCollection) ListIndexNames(ctx context.Context) ([]string, error) {
	specs, err := c.coll.Indexes().ListSpecifications(ctx)
	if err != nil {
		return nil, wrapDriverError("list indexes", err)
	}

	names := make([]string, 0, len(specs))
	for _, spec := range specs {
		names = append(names, spec.Name)
	}
	return names, nil
}

func normalizeFilter(filter bson.D) bson.D {
	if filter == nil {
		return bson.D{}
	}
	return filter
}

// onlyDuplicateKeys reports whether err is a bulk write failure made up
// exclusively of duplicate key errors, and how many there were.
func onlyDuplicateKeys(err error) (int, bool) {
	var bulkErr mongo.BulkWriteException
	if !errors.As(err, &bulkErr) {
		return 0, false
	}
	if bulkErr.WriteConcernError != nil || len(bulkErr.WriteErrors) == 0 {
		return 0, false
	}
	for _, writeErr := range bulkErr.WriteErrors {
		if writeErr.Code != duplicateKeyCode {
			return 0, false
		}
	}
	return len(bulkErr.WriteErrors), true
}

func wrapDriverError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
