package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/noah-isme/mongo-activity/internal/store"
)

// ActivityIndexes are the secondary indexes every activity collection needs.
// Each compound index ends on created_at descending, the sort and range key.
var ActivityIndexes = []store.IndexDefinition{
	{Name: "idx_user_id", Keys: bson.D{{Key: "user_id", Value: 1}}},
	{Name: "idx_created_at", Keys: bson.D{{Key: "created_at", Value: -1}}},
	{Name: "idx_module", Keys: bson.D{{Key: "module", Value: 1}}},
	{Name: "idx_role", Keys: bson.D{{Key: "role", Value: 1}}},
	{Name: "idx_type", Keys: bson.D{{Key: "type", Value: 1}}},

	{Name: "idx_userid_createdat", Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
	{Name: "idx_module_createdat", Keys: bson.D{{Key: "module", Value: 1}, {Key: "created_at", Value: -1}}},
	{Name: "idx_type_createdat", Keys: bson.D{{Key: "type", Value: 1}, {Key: "created_at", Value: -1}}},
	{Name: "idx_role_createdat", Keys: bson.D{{Key: "role", Value: 1}, {Key: "created_at", Value: -1}}},
	{Name: "idx_refid_createdat", Keys: bson.D{{Key: "ref_id", Value: 1}, {Key: "created_at", Value: -1}}},
	{Name: "idx_user_module_type_createdat", Keys: bson.D{
		{Key: "user_id", Value: 1},
		{Key: "module", Value: 1},
		{Key: "type", Value: 1},
		{Key: "created_at", Value: -1},
	}},
}

// EnsureIndexes creates the missing entries of ActivityIndexes on coll and
// returns their names. Existing indexes are never dropped or redefined.
func EnsureIndexes(ctx context.Context, coll store.Collection) ([]string, error) {
	existing, err := coll.ListIndexNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("list indexes on %s: %w", coll.Name(), err)
	}

	present := make(map[string]struct{}, len(existing))
	for _, name := range existing {
		present[name] = struct{}{}
	}

	created := make([]string, 0)
	for _, index := range ActivityIndexes {
		if _, ok := present[index.Name]; ok {
			continue
		}
		if err := coll.CreateIndex(ctx, index); err != nil {
			return created, fmt.Errorf("create index %s on %s: %w", index.Name, coll.Name(), err)
		}
		created = append(created, index.Name)
	}
	return created, nil
}
