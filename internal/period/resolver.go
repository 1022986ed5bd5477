// Package period routes time ranges to the live collection or to exactly one
// quarterly archive partition.
package period

import (
	"errors"
	"fmt"
	"time"

	"github.com/noah-isme/mongo-activity/internal/models"
)

const (
	DefaultActiveDatabase   = "maatify_activity"
	DefaultActiveCollection = "user_activities"
	DefaultArchiveDatabase  = "maatify_activity_archive"
	DefaultRetentionMonths  = 6
)

var (
	// ErrCrossBoundary marks a range that spans more than one storage period.
	ErrCrossBoundary = errors.New("the selected range crosses into an archived period")
	// ErrInvalidPartition marks a timestamp that maps to no calendar quarter.
	ErrInvalidPartition = errors.New("timestamp does not map to an archive partition")
	// ErrInvalidRange marks a range whose start is after its end.
	ErrInvalidRange = errors.New("range start is after range end")
)

// CrossBoundaryError carries the offending range and the cutoff it straddles.
type CrossBoundaryError struct {
	From   time.Time
	To     time.Time
	Cutoff time.Time
	Reason string
}

func (e *CrossBoundaryError) Error() string {
	return fmt.Sprintf("%s: %s (from %s, to %s, cutoff %s)",
		ErrCrossBoundary, e.Reason,
		e.From.UTC().Format(time.RFC3339), e.To.UTC().Format(time.RFC3339), e.Cutoff.UTC().Format(time.RFC3339))
}

// Is makes errors.Is(err, ErrCrossBoundary) match.
func (e *CrossBoundaryError) Is(target error) bool {
	return target == ErrCrossBoundary
}

// Config names the storage locations the resolver routes to.
type Config struct {
	ActiveDatabase   string
	ActiveCollection string
	ArchiveDatabase  string
	RetentionMonths  int
}

func (c Config) withDefaults() Config {
	if c.ActiveDatabase == "" {
		c.ActiveDatabase = DefaultActiveDatabase
	}
	if c.ActiveCollection == "" {
		c.ActiveCollection = DefaultActiveCollection
	}
	if c.ArchiveDatabase == "" {
		c.ArchiveDatabase = DefaultArchiveDatabase
	}
	if c.RetentionMonths <= 0 {
		c.RetentionMonths = DefaultRetentionMonths
	}
	return c
}

// Resolver is pure routing logic; it owns no data.
type Resolver struct {
	cfg Config
	now func() time.Time
}

// Option customises a Resolver.
type Option func(*Resolver)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

// NewResolver constructs a resolver, filling unset config with defaults.
func NewResolver(cfg Config, opts ...Option) *Resolver {
	r := &Resolver{cfg: cfg.withDefaults(), now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Config returns the effective configuration.
func (r *Resolver) Config() Config {
	return r.cfg
}

// Now returns the resolver clock's current time.
func (r *Resolver) Now() time.Time {
	return r.now()
}

// Cutoff is now minus the retention window. Records at or before it are archived.
func (r *Resolver) Cutoff() time.Time {
	return r.cutoffAt(r.now())
}

func (r *Resolver) cutoffAt(now time.Time) time.Time {
	return now.AddDate(0, -r.cfg.RetentionMonths, 0)
}

// Active returns the live Period.
func (r *Resolver) Active() models.Period {
	return models.Period{
		Database:   r.cfg.ActiveDatabase,
		Collection: r.cfg.ActiveCollection,
		Kind:       models.PeriodActive,
	}
}

// ArchiveFor returns the archive Period holding records created at t.
func (r *Resolver) ArchiveFor(t time.Time) (models.Period, error) {
	name, err := r.PartitionName(t)
	if err != nil {
		return models.Period{}, err
	}
	return models.Period{
		Database:   r.cfg.ArchiveDatabase,
		Collection: name,
		Kind:       models.PeriodArchive,
	}, nil
}

// PartitionKeyFor returns the (year, quarter) partition key of t.
func (r *Resolver) PartitionKeyFor(t time.Time) (models.PartitionKey, error) {
	return KeyFor(t)
}

// PartitionName names the archive collection for t using the live collection as prefix.
func (r *Resolver) PartitionName(t time.Time) (string, error) {
	return PartitionName(r.cfg.ActiveCollection, t)
}

// Resolve maps [from, to] onto a single Period. Missing bounds default to now.
//
// The live side of the cutoff is exclusive: a bound equal to the cutoff is archived.
func (r *Resolver) Resolve(from, to *time.Time) (models.Period, error) {
	now := r.now()
	cutoff := r.cutoffAt(now)

	if from != nil && to != nil && from.After(*to) {
		return models.Period{}, fmt.Errorf("%w: %s > %s", ErrInvalidRange,
			from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339))
	}

	start, end := now, now
	if from != nil {
		start = *from
	}
	if to != nil {
		end = *to
	}

	if end.After(cutoff) {
		if start.After(cutoff) {
			return r.Active(), nil
		}
		return models.Period{}, &CrossBoundaryError{From: start, To: end, Cutoff: cutoff, Reason: "range starts in the archive and ends in the live window"}
	}

	target, err := r.ArchiveFor(end)
	if err != nil {
		return models.Period{}, err
	}

	if from != nil {
		origin, err := r.ArchiveFor(start)
		if err != nil {
			return models.Period{}, err
		}
		if origin.Collection != target.Collection {
			return models.Period{}, &CrossBoundaryError{From: start, To: end, Cutoff: cutoff, Reason: "range spans more than one archive partition"}
		}
	}

	return target, nil
}

// CurrentWindow describes the live collection and the dates it covers.
func (r *Resolver) CurrentWindow() models.CurrentWindow {
	now := r.now()
	return models.CurrentWindow{
		Database:   r.cfg.ActiveDatabase,
		Collection: r.cfg.ActiveCollection,
		Start:      r.cutoffAt(now),
		End:        now,
	}
}

// ArchivePeriods lists every quarterly partition from yearsBack years ago
// through the current year, existing or expected.
func (r *Resolver) ArchivePeriods(yearsBack int) []models.ArchivePeriod {
	if yearsBack < 0 {
		yearsBack = 0
	}
	current := r.now().UTC().Year()

	periods := make([]models.ArchivePeriod, 0, (yearsBack+1)*len(models.Quarters))
	for year := current - yearsBack; year <= current; year++ {
		for _, quarter := range models.Quarters {
			key := models.PartitionKey{Year: year, Quarter: quarter}
			periods = append(periods, models.ArchivePeriod{
				Database:   r.cfg.ArchiveDatabase,
				Collection: CollectionName(r.cfg.ActiveCollection, key),
				Label:      fmt.Sprintf("%s %d", quarter, year),
			})
		}
	}
	return periods
}
