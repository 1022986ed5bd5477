// Package events publishes archival outcomes to NATS.
package events

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/mongo-activity/internal/models"
)

const (
	StatusCompleted = "completed"
	StatusPartial   = "partial"
	StatusFailed    = "failed"
)

// Conn is the publishing half of *nats.Conn.
type Conn interface {
	Publish(subject string, data []byte) error
}

// ArchivalEvent is the message body sent after every archival run.
type ArchivalEvent struct {
	Status string                `json:"status"`
	Report models.ArchivalReport `json:"report"`
	Error  string                `json:"error,omitempty"`
	SentAt time.Time             `json:"sent_at"`
}

// Publisher emits archival events. A nil connection turns it into a no-op.
type Publisher struct {
	conn    Conn
	subject string
	logger  zerolog.Logger
}

// NewPublisher derives the subject from prefix, e.g. "activity" -> "activity.archival".
func NewPublisher(conn Conn, prefix string, logger zerolog.Logger) *Publisher {
	prefix = strings.Trim(strings.ReplaceAll(strings.TrimSpace(prefix), ":", "."), ".")
	if prefix == "" {
		prefix = "activity"
	}
	return &Publisher{
		conn:    conn,
		subject: prefix + ".archival",
		logger:  logger.With().Str("component", "archival_events").Logger(),
	}
}

// Subject returns the base subject; the status is appended per event.
func (p *Publisher) Subject() string {
	return p.subject
}

// ArchivalFinished publishes report under <subject>.<status>.
func (p *Publisher) ArchivalFinished(status string, report models.ArchivalReport, runErr error) error {
	if p == nil || p.conn == nil {
		return nil
	}

	event := ArchivalEvent{Status: status, Report: report, SentAt: time.Now().UTC()}
	if runErr != nil {
		event.Error = runErr.Error()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal archival event: %w", err)
	}

	subject := p.subject + "." + status
	if err := p.conn.Publish(subject, payload); err != nil {
		p.logger.Warn().Err(err).Str("subject", subject).Msg("failed to publish archival event")
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}
