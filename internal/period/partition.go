package period

import (
	"fmt"
	"time"

	"github.com/noah-isme/mongo-activity/internal/models"
)

// QuarterOf maps a calendar month to its quarter.
func QuarterOf(month time.Month) (models.Quarter, error) {
	if month < time.January || month > time.December {
		return 0, fmt.Errorf("%w: month %d", ErrInvalidPartition, int(month))
	}
	return models.Quarter((int(month)-1)/3 + 1), nil
}

// KeyFor derives the partition key of t in UTC.
func KeyFor(t time.Time) (models.PartitionKey, error) {
	utc := t.UTC()
	quarter, err := QuarterOf(utc.Month())
	if err != nil {
		return models.PartitionKey{}, err
	}
	return models.PartitionKey{Year: utc.Year(), Quarter: quarter}, nil
}

// CollectionName renders prefix_YYYY_Qn.
func CollectionName(prefix string, key models.PartitionKey) string {
	return fmt.Sprintf("%s_%s", prefix, key)
}

// PartitionName is the single naming function shared by routing and archival.
func PartitionName(prefix string, t time.Time) (string, error) {
	key, err := KeyFor(t)
	if err != nil {
		return "", err
	}
	return CollectionName(prefix, key), nil
}
