package dto

import (
	"time"

	"github.com/noah-isme/mongo-activity/internal/models"
	"github.com/noah-isme/mongo-activity/internal/pagination"
)

// RecordActivityRequest is the payload accepted when recording an activity.
type RecordActivityRequest struct {
	UserID      int64   `json:"user_id" validate:"gte=0"`
	Role        string  `json:"role" validate:"required,activity_role"`
	Type        string  `json:"type" validate:"required,activity_type"`
	Module      string  `json:"module" validate:"required,activity_module"`
	Action      string  `json:"action" validate:"required,max=128"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2048"`
	RefID       *int64  `json:"ref_id,omitempty"`
	IP          *string `json:"ip,omitempty" validate:"omitempty,ip"`
	UserAgent   *string `json:"user_agent,omitempty" validate:"omitempty,max=512"`
}

// ActivitySearchRequest carries the optional filters of a routed search.
type ActivitySearchRequest struct {
	UserID  *int64     `json:"user_id,omitempty"`
	Role    string     `json:"role,omitempty" validate:"omitempty,activity_role"`
	RefID   *int64     `json:"ref_id,omitempty"`
	Module  string     `json:"module,omitempty" validate:"omitempty,activity_module"`
	Type    string     `json:"type,omitempty" validate:"omitempty,activity_type"`
	Keyword string     `json:"keyword,omitempty" validate:"omitempty,max=256"`
	From    *time.Time `json:"from,omitempty"`
	To      *time.Time `json:"to,omitempty"`
	Page    int        `json:"page"`
	PerPage int        `json:"per_page"`
	Sort    string     `json:"sort,omitempty" validate:"omitempty,oneof=asc desc ASC DESC"`
}

// Filters echoes the filters that were applied, omitting absent ones.
func (r ActivitySearchRequest) Filters() map[string]interface{} {
	filters := map[string]interface{}{}
	if r.UserID != nil {
		filters["user_id"] = *r.UserID
	}
	if r.Role != "" {
		filters["role"] = r.Role
	}
	if r.RefID != nil {
		filters["ref_id"] = *r.RefID
	}
	if r.Module != "" {
		filters["module"] = r.Module
	}
	if r.Type != "" {
		filters["type"] = r.Type
	}
	if r.Keyword != "" {
		filters["keyword"] = r.Keyword
	}
	if r.From != nil {
		filters["from"] = r.From.UTC().Format(time.RFC3339)
	}
	if r.To != nil {
		filters["to"] = r.To.UTC().Format(time.RFC3339)
	}
	return filters
}

// ActivityResponse is the public representation of a stored activity.
type ActivityResponse struct {
	ID          string    `json:"id"`
	UserID      int64     `json:"user_id"`
	Role        string    `json:"role"`
	Type        string    `json:"type"`
	Module      string    `json:"module"`
	Action      string    `json:"action"`
	Description *string   `json:"description,omitempty"`
	RefID       *int64    `json:"ref_id,omitempty"`
	IP          *string   `json:"ip,omitempty"`
	UserAgent   *string   `json:"user_agent,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewActivityResponse maps a stored record to its response. Records that were
// never persisted carry an empty id.
func NewActivityResponse(record models.ActivityRecord) ActivityResponse {
	id := ""
	if !record.ID.IsZero() {
		id = record.ID.Hex()
	}
	return ActivityResponse{
		ID:          id,
		UserID:      record.UserID,
		Role:        record.Role,
		Type:        record.Type,
		Module:      record.Module,
		Action:      record.Action,
		Description: record.Description,
		RefID:       record.RefID,
		IP:          record.IP,
		UserAgent:   record.UserAgent,
		CreatedAt:   record.CreatedAt,
	}
}

// NewActivityResponses maps a slice of records, never returning nil.
func NewActivityResponses(records []models.ActivityRecord) []ActivityResponse {
	responses := make([]ActivityResponse, 0, len(records))
	for _, record := range records {
		responses = append(responses, NewActivityResponse(record))
	}
	return responses
}

// SearchMeta describes the page and the collection that served it.
type SearchMeta struct {
	pagination.Meta
	Collection string                 `json:"collection"`
	PeriodType models.PeriodKind      `json:"period_type"`
	Filters    map[string]interface{} `json:"filters,omitempty"`
}

// ActivitySearchResult is a paginated search response.
type ActivitySearchResult struct {
	Data []ActivityResponse `json:"data"`
	Meta SearchMeta         `json:"meta"`
}

// PeriodsResponse lists the live window and the known archive partitions.
type PeriodsResponse struct {
	Current  models.CurrentWindow   `json:"current"`
	Archives []models.ArchivePeriod `json:"archives"`
}

// IndexReport lists the indexes created per collection.
type IndexReport struct {
	Created map[string][]string `json:"created"`
}
