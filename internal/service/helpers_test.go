package service

import (
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/noah-isme/mongo-activity/internal/models"
	"github.com/noah-isme/mongo-activity/internal/period"
	"github.com/noah-isme/mongo-activity/internal/repository"
	"github.com/noah-isme/mongo-activity/internal/store/memstore"
	"github.com/noah-isme/mongo-activity/internal/vocab"
)

var fixedNow = time.Date(2025, 11, 5, 13, 17, 0, 0, time.UTC)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func testValidator(t *testing.T) *validator.Validate {
	t.Helper()
	validate := validator.New(validator.WithRequiredStructEnabled())
	require.NoError(t, vocab.RegisterValidations(validate, vocab.DefaultSet()))
	return validate
}

type fixture struct {
	client   *memstore.Client
	live     *memstore.Collection
	repo     repository.ActivityRepository
	resolver *period.Resolver
}

func newFixture(enabled bool) fixture {
	client := memstore.New()
	resolver := period.NewResolver(period.Config{}, period.WithClock(func() time.Time { return fixedNow }))
	cfg := resolver.Config()
	live := client.Lookup(cfg.ActiveDatabase, cfg.ActiveCollection)
	return fixture{
		client:   client,
		live:     live,
		repo:     repository.NewActivityRepository(live, enabled),
		resolver: resolver,
	}
}

func (f fixture) archive(name string) *memstore.Collection {
	return f.client.Lookup(f.resolver.Config().ArchiveDatabase, name)
}

func activityAt(userID int64, module, action string, createdAt time.Time) models.ActivityRecord {
	return models.ActivityRecord{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Role:      "customer",
		Type:      "view",
		Module:    module,
		Action:    action,
		CreatedAt: createdAt,
	}
}

func strPtr(v string) *string { return &v }
func int64Ptr(v int64) *int64 { return &v }
func timePtr(v time.Time) *time.Time { return &v }
