package period

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mongo-activity/internal/models"
)

func TestQuarterOf(t *testing.T) {
	want := map[time.Month]models.Quarter{
		time.January: models.Q1, time.March: models.Q1,
		time.April: models.Q2, time.June: models.Q2,
		time.July: models.Q3, time.September: models.Q3,
		time.October: models.Q4, time.December: models.Q4,
	}
	for month, quarter := range want {
		got, err := QuarterOf(month)
		require.NoError(t, err)
		require.Equal(t, quarter, got, month.String())
	}

	_, err := QuarterOf(13)
	require.ErrorIs(t, err, ErrInvalidPartition)
	_, err = QuarterOf(0)
	require.ErrorIs(t, err, ErrInvalidPartition)
}

func TestPartitionNameIsStable(t *testing.T) {
	at := time.Date(2025, 2, 10, 8, 0, 0, 0, time.UTC)

	first, err := PartitionName("user_activities", at)
	require.NoError(t, err)
	second, err := PartitionName("user_activities", at)
	require.NoError(t, err)
	require.Equal(t, "user_activities_2025_Q1", first)
	require.Equal(t, first, second)

	sameQuarter, err := PartitionName("user_activities", time.Date(2025, 3, 31, 23, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, first, sameQuarter)

	nextQuarter, err := PartitionName("user_activities", time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NotEqual(t, first, nextQuarter)

	previousQuarter, err := PartitionName("user_activities", time.Date(2024, 12, 31, 23, 59, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, "user_activities_2024_Q4", previousQuarter)
}

func TestKeyForUsesUTC(t *testing.T) {
	zone := time.FixedZone("UTC+3", 3*60*60)
	// 2025-04-01 01:00 at +03:00 is still March in UTC.
	key, err := KeyFor(time.Date(2025, 4, 1, 1, 0, 0, 0, zone))
	require.NoError(t, err)
	require.Equal(t, models.PartitionKey{Year: 2025, Quarter: models.Q1}, key)
	require.Equal(t, "2025_Q1", key.String())
}
