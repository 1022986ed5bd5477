package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/noah-isme/mongo-activity/internal/config"
	"github.com/noah-isme/mongo-activity/internal/store"
	"github.com/noah-isme/mongo-activity/internal/store/memstore"
)

// ConnectMongo opens a driver client and verifies the primary is reachable.
func ConnectMongo(ctx context.Context, uri string, timeout time.Duration) (*store.MongoClient, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo uri must not be empty")
	}

	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout).
		SetTimeout(timeout)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	wrapped := store.NewMongoClient(client)
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := wrapped.Ping(pingCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("unable to reach mongo: %w", err)
	}

	return wrapped, nil
}

// OpenStore returns the document store selected by cfg. A memory:// URI
// yields a process-local store for development runs.
func OpenStore(ctx context.Context, cfg config.Config) (store.Client, error) {
	if cfg.UsesMemoryStore() {
		return memstore.New(), nil
	}
	return ConnectMongo(ctx, cfg.MongoURI, cfg.MongoTimeout)
}
