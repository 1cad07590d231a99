// Package notify fans portal events out to connected dashboards and
// external channels. Publishing is best effort: a failing sink never
// fails the request that produced the event.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event names published by the portal.
const (
	EventNewLead          = "new-lead"
	EventLeadUpdated      = "lead-updated"
	EventStatusChanged    = "status-changed"
	EventPaymentConfirmed = "payment-confirmed"
	EventShiftSummary     = "shift-summary"
)

// Event is one notification on the shared portal channel.
type Event struct {
	ID      string         `json:"id"`
	Name    string         `json:"event"`
	At      time.Time      `json:"at"`
	Payload map[string]any `json:"payload"`
}

// NewEvent stamps an event with a fresh id and the current instant.
func NewEvent(name string, payload map[string]any) Event {
	return Event{
		ID:      uuid.NewString(),
		Name:    name,
		At:      time.Now().UTC(),
		Payload: payload,
	}
}

// Publisher delivers events to one sink.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}
