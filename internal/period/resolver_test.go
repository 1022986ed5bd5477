package period

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mongo-activity/internal/models"
)

var fixedNow = time.Date(2025, 11, 5, 13, 17, 0, 0, time.UTC)

func newTestResolver() *Resolver {
	return NewResolver(Config{}, WithClock(func() time.Time { return fixedNow }))
}

func ptr(t time.Time) *time.Time { return &t }

func TestResolveDefaultsToActive(t *testing.T) {
	r := newTestResolver()

	got, err := r.Resolve(nil, nil)
	require.NoError(t, err)
	require.Equal(t, models.Period{Database: DefaultActiveDatabase, Collection: DefaultActiveCollection, Kind: models.PeriodActive}, got)
}

func TestResolveInstantsAfterCutoffAreActive(t *testing.T) {
	r := newTestResolver()
	cutoff := r.Cutoff()
	require.Equal(t, time.Date(2025, 5, 5, 13, 17, 0, 0, time.UTC), cutoff)

	for _, instant := range []time.Time{
		cutoff.Add(time.Nanosecond),
		cutoff.Add(time.Second),
		cutoff.AddDate(0, 1, 0),
		fixedNow,
	} {
		got, err := r.Resolve(ptr(instant), ptr(instant))
		require.NoError(t, err, instant)
		require.Equal(t, models.PeriodActive, got.Kind, instant)
	}
}

func TestResolveInstantsAtOrBeforeCutoffAreArchived(t *testing.T) {
	r := newTestResolver()
	cutoff := r.Cutoff()

	cases := map[time.Time]string{
		cutoff:                                        "user_activities_2025_Q2",
		cutoff.Add(-time.Second):                      "user_activities_2025_Q2",
		time.Date(2025, 3, 31, 23, 59, 59, 0, time.UTC): "user_activities_2025_Q1",
		time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC):    "user_activities_2024_Q4",
		time.Date(2023, 7, 15, 0, 0, 0, 0, time.UTC):    "user_activities_2023_Q3",
	}
	for instant, want := range cases {
		got, err := r.Resolve(ptr(instant), ptr(instant))
		require.NoError(t, err, instant)
		require.Equal(t, models.PeriodArchive, got.Kind)
		require.Equal(t, DefaultArchiveDatabase, got.Database)
		require.Equal(t, want, got.Collection)
	}
}

func TestResolveRejectsRangesAcrossCutoff(t *testing.T) {
	r := newTestResolver()
	cutoff := r.Cutoff()

	_, err := r.Resolve(ptr(cutoff), ptr(cutoff.Add(time.Second)))
	require.ErrorIs(t, err, ErrCrossBoundary)

	_, err = r.Resolve(ptr(cutoff.AddDate(-1, 0, 0)), nil)
	require.ErrorIs(t, err, ErrCrossBoundary)

	var crossErr *CrossBoundaryError
	require.True(t, errors.As(err, &crossErr))
	require.Equal(t, cutoff, crossErr.Cutoff)
}

func TestResolveRejectsRangesAcrossArchivePartitions(t *testing.T) {
	r := newTestResolver()
	from := time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC)

	_, err := r.Resolve(ptr(from), ptr(to))
	require.ErrorIs(t, err, ErrCrossBoundary)
}

func TestResolveArchiveWithOnlyUpperBound(t *testing.T) {
	r := newTestResolver()
	to := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	got, err := r.Resolve(nil, ptr(to))
	require.NoError(t, err)
	require.Equal(t, "user_activities_2024_Q1", got.Collection)
}

func TestResolveRejectsInvertedRange(t *testing.T) {
	r := newTestResolver()
	_, err := r.Resolve(ptr(fixedNow), ptr(fixedNow.Add(-time.Hour)))
	require.ErrorIs(t, err, ErrInvalidRange)
}

func TestResolveHonoursConfiguredNames(t *testing.T) {
	r := NewResolver(Config{
		ActiveDatabase:   "live",
		ActiveCollection: "events",
		ArchiveDatabase:  "cold",
		RetentionMonths:  3,
	}, WithClock(func() time.Time { return fixedNow }))

	require.Equal(t, time.Date(2025, 8, 5, 13, 17, 0, 0, time.UTC), r.Cutoff())

	at := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	got, err := r.Resolve(ptr(at), ptr(at))
	require.NoError(t, err)
	require.Equal(t, models.Period{Database: "cold", Collection: "events_2025_Q3", Kind: models.PeriodArchive}, got)
}

func TestCurrentWindowAndArchivePeriods(t *testing.T) {
	r := newTestResolver()

	window := r.CurrentWindow()
	require.Equal(t, DefaultActiveCollection, window.Collection)
	require.Equal(t, fixedNow, window.End)
	require.Equal(t, r.Cutoff(), window.Start)

	periods := r.ArchivePeriods(2)
	require.Len(t, periods, 12)
	require.Equal(t, "user_activities_2023_Q1", periods[0].Collection)
	require.Equal(t, "Q1 2023", periods[0].Label)
	require.Equal(t, "user_activities_2025_Q4", periods[11].Collection)

	require.Len(t, r.ArchivePeriods(-1), 4)
}

func TestPartitionKeyForUsesUTCQuarter(t *testing.T) {
	r := newTestResolver()
	key, err := r.PartitionKeyFor(time.Date(2025, 7, 1, 1, 0, 0, 0, time.FixedZone("UTC+3", 3*3600)))
	require.NoError(t, err)
	require.Equal(t, models.PartitionKey{Year: 2025, Quarter: models.Q2}, key)
}
