package repository

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/noah-isme/mongo-activity/internal/models"
	"github.com/noah-isme/mongo-activity/internal/pagination"
	"github.com/noah-isme/mongo-activity/internal/store"
)

// SortOrder orders results on created_at.
type SortOrder string

const (
	SortDesc SortOrder = "desc"
	SortAsc  SortOrder = "asc"
)

// ParseSortOrder accepts "asc" (any case); everything else is newest first.
func ParseSortOrder(value string) SortOrder {
	if strings.EqualFold(strings.TrimSpace(value), string(SortAsc)) {
		return SortAsc
	}
	return SortDesc
}

func (s SortOrder) direction() int {
	if s == SortAsc {
		return 1
	}
	return -1
}

// ActivityFilter narrows activity searches. Zero-valued fields impose no constraint.
type ActivityFilter struct {
	UserID  *int64
	Role    string
	RefID   *int64
	Module  string
	Type    string
	Keyword string
	From    *time.Time
	To      *time.Time
}

// PageRequest selects one page of a search.
type PageRequest struct {
	Page    int
	PerPage int
	Sort    SortOrder
}

// SearchPage is one page of records plus the pagination of the full result set.
type SearchPage struct {
	Records []models.ActivityRecord
	pagination.Meta
}

// BuildActivityFilter turns an ActivityFilter into a conjunctive bson filter.
// The keyword matches description OR action as a case-insensitive substring.
func BuildActivityFilter(filter ActivityFilter) bson.D {
	query := bson.D{}

	if filter.UserID != nil {
		query = append(query, bson.E{Key: "user_id", Value: *filter.UserID})
	}
	if role := strings.TrimSpace(filter.Role); role != "" {
		query = append(query, bson.E{Key: "role", Value: role})
	}
	if filter.RefID != nil {
		query = append(query, bson.E{Key: "ref_id", Value: *filter.RefID})
	}
	if module := strings.TrimSpace(filter.Module); module != "" {
		query = append(query, bson.E{Key: "module", Value: module})
	}
	if activityType := strings.TrimSpace(filter.Type); activityType != "" {
		query = append(query, bson.E{Key: "type", Value: activityType})
	}

	if filter.From != nil || filter.To != nil {
		createdAt := bson.D{}
		if filter.From != nil {
			createdAt = append(createdAt, bson.E{Key: "$gte", Value: filter.From.UTC()})
		}
		if filter.To != nil {
			createdAt = append(createdAt, bson.E{Key: "$lte", Value: filter.To.UTC()})
		}
		query = append(query, bson.E{Key: "created_at", Value: createdAt})
	}

	if keyword := strings.TrimSpace(filter.Keyword); keyword != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(keyword), Options: "i"}
		query = append(query, bson.E{Key: "$or", Value: bson.A{
			bson.D{{Key: "description", Value: pattern}},
			bson.D{{Key: "action", Value: pattern}},
		}})
	}

	return query
}

func rangeFilter(from, to time.Time) bson.D {
	return bson.D{{Key: "created_at", Value: bson.D{
		{Key: "$gte", Value: from.UTC()},
		{Key: "$lte", Value: to.UTC()},
	}}}
}

func olderThanFilter(cutoff time.Time) bson.D {
	return bson.D{{Key: "created_at", Value: bson.D{{Key: "$lt", Value: cutoff.UTC()}}}}
}

func undatedFilter() bson.D {
	return bson.D{{Key: "created_at", Value: bson.D{{Key: "$exists", Value: false}}}}
}

func createdAtSort(order SortOrder) bson.D {
	return bson.D{{Key: "created_at", Value: order.direction()}}
}

// searchCollection runs the page fetch and the total count against the same filter.
func searchCollection(ctx context.Context, coll store.Collection, filter ActivityFilter, page PageRequest) (SearchPage, error) {
	if err := pagination.Validate(page.Page, page.PerPage); err != nil {
		return SearchPage{}, err
	}

	query := BuildActivityFilter(filter)
	records, err := coll.Find(ctx, query, store.FindOptions{
		Limit: int64(page.PerPage),
		Skip:  pagination.Offset(page.Page, page.PerPage),
		Sort:  createdAtSort(page.Sort),
	})
	if err != nil {
		return SearchPage{}, err
	}

	total, err := coll.CountDocuments(ctx, query)
	if err != nil {
		return SearchPage{}, err
	}

	return SearchPage{
		Records: records,
		Meta:    pagination.Paginate(total, page.Page, page.PerPage),
	}, nil
}
