package entity

import (
	"context"
	"errors"
	"time"
)

// ErrRejected marks a destination that refused the payload itself (4xx,
// constraint violation). Adapters wrap it; anything else counts as a transport error.
var ErrRejected = errors.New("destination rejected payload")

type Destination string

const (
	DestinationDatabase   Destination = "database"
	DestinationCRMWebhook Destination = "crmWebhook"
	DestinationEventQueue Destination = "eventQueue"
)

type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeTimeout  Outcome = "timeout"
	OutcomeRejected Outcome = "rejected"
	OutcomeError    Outcome = "error"
)

type CaptureStatus string

const (
	// CaptureDelivered means every targeted destination confirmed the lead.
	CaptureDelivered CaptureStatus = "delivered"
	// CaptureQueued means the lead was accepted but at least one destination
	// did not confirm delivery in time.
	CaptureQueued CaptureStatus = "queued"
)

type DeliveryAttempt struct {
	Destination Destination `json:"destination"`
	Outcome     Outcome     `json:"outcome"`
	ResultID    string      `json:"resultId,omitempty"`
	Error       string      `json:"error,omitempty"`
	LatencyMs   int64       `json:"latencyMs"`
	AttemptedAt time.Time   `json:"attemptedAt"`
	Replayed    bool        `json:"replayed,omitempty"`
}

type DeliveryRecord struct {
	ResultID   string    `json:"resultId"`
	RecordedAt time.Time `json:"recordedAt"`
}

// LeadDestination is one downstream sink of a normalized lead.
type LeadDestination interface {
	Name() Destination
	Deliver(ctx context.Context, lead *LeadSubmission) (string, error)
}
