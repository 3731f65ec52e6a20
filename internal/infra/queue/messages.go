package queue

import (
	"time"

	"github.com/conversn-io/seniorsimple-sub006/internal/entity"
)

const EventTypeLeadCaptured = "lead.captured"

// LeadCapturedEvent is published once per captured lead. It carries what the
// alert consumer needs and nothing from the quiz answers.
type LeadCapturedEvent struct {
	EventID     string             `json:"event_id"`
	SessionID   string             `json:"session_id"`
	FunnelType  string             `json:"funnel_type"`
	Contact     entity.Contact     `json:"contact"`
	Geo         entity.Geo         `json:"geo"`
	Attribution entity.Attribution `json:"attribution"`
	TCPAConsent bool               `json:"tcpa_consent"`
	SubmittedAt time.Time          `json:"submitted_at"`
	PublishedAt time.Time          `json:"published_at"`
}

func NewLeadCapturedEvent(eventID string, lead *entity.LeadSubmission, now time.Time) LeadCapturedEvent {
	return LeadCapturedEvent{
		EventID:     eventID,
		SessionID:   lead.SessionID,
		FunnelType:  lead.FunnelType,
		Contact:     lead.Contact,
		Geo:         lead.Geo,
		Attribution: lead.Attribution,
		TCPAConsent: lead.Consent.TCPAConsent,
		SubmittedAt: lead.SubmittedAt,
		PublishedAt: now.UTC(),
	}
}
