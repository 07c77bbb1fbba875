// Package events publishes inventory lifecycle notifications after their transaction commits.
// Delivery is best effort: the database remains the source of truth.
package events

import (
	"context"
	"time"
)

// Event types emitted by the inventory engine.
const (
	TypeDonationCompleted = "donation.completed"
	TypeUnitIssued        = "unit.issued"
	TypeUnitExpired       = "unit.expired"
	TypeRequestFulfilled  = "request.fulfilled"
)

// Event is the wire payload written to the stream.
type Event struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	SubjectID  string                 `json:"subject_id"`
	OccurredAt time.Time              `json:"occurred_at"`
	Data       map[string]interface{} `json:"data,omitempty"`
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
}

// NopPublisher discards events.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, ...Event) error { return nil }
