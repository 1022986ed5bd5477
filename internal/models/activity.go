package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ActivityRecord is a single immutable activity document.
type ActivityRecord struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID      int64              `bson:"user_id" json:"user_id"`
	Role        string             `bson:"role" json:"role"`
	Type        string             `bson:"type" json:"type"`
	Module      string             `bson:"module" json:"module"`
	Action      string             `bson:"action" json:"action"`
	Description *string            `bson:"description,omitempty" json:"description,omitempty"`
	RefID       *int64             `bson:"ref_id,omitempty" json:"ref_id,omitempty"`
	IP          *string            `bson:"ip,omitempty" json:"ip,omitempty"`
	UserAgent   *string            `bson:"user_agent,omitempty" json:"user_agent,omitempty"`
	CreatedAt   time.Time          `bson:"created_at,omitempty" json:"created_at"`
}

// HasCreatedAt reports whether the record carries a routable timestamp.
func (r ActivityRecord) HasCreatedAt() bool {
	return !r.CreatedAt.IsZero()
}
