package bootstrap

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mongo-activity/internal/config"
	"github.com/noah-isme/mongo-activity/internal/dto"
	"github.com/noah-isme/mongo-activity/internal/vocab"
)

func memoryConfig() config.Config {
	return config.Config{
		AppName:            "activity-test",
		MongoURI:           "memory://",
		ActivityDatabase:   "maatify_activity",
		ActivityCollection: "user_activities",
		ArchiveDatabase:    "maatify_activity_archive",
		ActivityEnabled:    true,
		RetentionMonths:    6,
		NATSSubjectPrefix:  "activity",
	}
}

func TestWireWithMemoryStore(t *testing.T) {
	cfg := memoryConfig()

	components, cleanup, err := Wire(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer cleanup()

	ctx := context.Background()
	created, err := components.IndexService.EnsureActive(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, created)

	recorded, err := components.ActivityService.Record(ctx, dto.RecordActivityRequest{
		UserID: 1,
		Role:   "customer",
		Type:   "view",
		Module: "product",
		Action: "view_product",
	})
	require.NoError(t, err)
	require.NotEmpty(t, recorded.ID)

	result, err := components.ActivityService.Search(ctx, dto.ActivitySearchRequest{})
	require.NoError(t, err)
	require.Equal(t, int64(1), result.Meta.Total)

	report, err := components.ArchiveService.Run(ctx)
	require.NoError(t, err)
	require.Zero(t, report.MigratedCount)
}

func tenantRecord() dto.RecordActivityRequest {
	return dto.RecordActivityRequest{
		UserID: 7,
		Role:   "tenant",
		Type:   "update",
		Module: "billing",
		Action: "update_info",
	}
}

func TestWireRejectsUnknownVocabularyByDefault(t *testing.T) {
	components, cleanup, err := Wire(context.Background(), memoryConfig(), zerolog.Nop())
	require.NoError(t, err)
	defer cleanup()

	_, err = components.ActivityService.Record(context.Background(), tenantRecord())
	require.Error(t, err)
}

func TestWireWithHostVocabulary(t *testing.T) {
	set := vocab.DefaultSet()
	set.Roles = vocab.Merge(vocab.Roles, vocab.List{"tenant"})
	set.Modules = vocab.Merge(vocab.Modules, vocab.List{"billing"})

	components, cleanup, err := Wire(context.Background(), memoryConfig(), zerolog.Nop(), WithVocabulary(set))
	require.NoError(t, err)
	defer cleanup()

	recorded, err := components.ActivityService.Record(context.Background(), tenantRecord())
	require.NoError(t, err)
	require.Equal(t, "tenant", recorded.Role)
}

func TestWireMergesConfiguredVocabulary(t *testing.T) {
	cfg := memoryConfig()
	cfg.ExtraRoles = []string{"Tenant"}
	cfg.ExtraModules = []string{"billing"}

	set := Vocabulary(cfg)
	require.True(t, vocab.Contains(set.Roles, "tenant"))
	require.True(t, vocab.Contains(set.Roles, "admin"))
	require.True(t, vocab.Contains(set.Modules, "billing"))

	components, cleanup, err := Wire(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer cleanup()

	_, err = components.ActivityService.Record(context.Background(), tenantRecord())
	require.NoError(t, err)
}

func TestNewLoggerFallsBackToInfo(t *testing.T) {
	logger := NewLogger(config.Config{LogLevel: "loud"})
	require.Equal(t, zerolog.InfoLevel, logger.GetLevel())

	logger = NewLogger(config.Config{LogLevel: "debug"})
	require.Equal(t, zerolog.DebugLevel, logger.GetLevel())
}
