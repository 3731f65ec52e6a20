package entity

import (
	"context"
	"time"
)

const (
	LeadStatusCaptured  = "CAPTURED"
	LeadStatusConverted = "CONVERTED"
	LeadStatusExpired   = "EXPIRED"
)

type Contact struct {
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func (c Contact) FullName() string {
	switch {
	case c.FirstName == "":
		return c.LastName
	case c.LastName == "":
		return c.FirstName
	default:
		return c.FirstName + " " + c.LastName
	}
}

type Geo struct {
	ZipCode   string `json:"zipCode"`
	State     string `json:"state"`
	StateName string `json:"stateName"`
}

// Consent carries the TCPA artifacts captured by the form (TrustedForm / Jornaya).
type Consent struct {
	TrustedFormCertURL string `json:"trustedFormCertUrl,omitempty"`
	LeadIDToken        string `json:"leadIdToken,omitempty"`
	TCPAConsent        bool   `json:"tcpaConsent"`
	ConsentText        string `json:"consentText,omitempty"`
}

type Attribution struct {
	URL         string `json:"url,omitempty"`
	Path        string `json:"path,omitempty"`
	Search      string `json:"search,omitempty"`
	Referrer    string `json:"referrer,omitempty"`
	UTMSource   string `json:"utmSource,omitempty"`
	UTMMedium   string `json:"utmMedium,omitempty"`
	UTMCampaign string `json:"utmCampaign,omitempty"`
	UTMTerm     string `json:"utmTerm,omitempty"`
	UTMContent  string `json:"utmContent,omitempty"`
}

type Answer struct {
	QuestionID string `json:"questionId"`
	Value      any    `json:"value"`
}

// LeadSubmission is the canonical, fully-populated lead produced by the
// normalizer. It is never mutated after construction.
type LeadSubmission struct {
	SessionID         string         `json:"sessionId"`
	UserID            string         `json:"userId"`
	Contact           Contact        `json:"contact"`
	FunnelType        string         `json:"funnelType"`
	Answers           []Answer       `json:"answers"`
	CalculatedResults map[string]any `json:"calculatedResults"`
	Geo               Geo            `json:"geo"`
	Consent           Consent        `json:"consent"`
	Attribution       Attribution    `json:"attribution"`
	SubmittedAt       time.Time      `json:"submittedAt"`
}

// AnswerMap flattens the ordered answers for destinations that expect an object.
func (l *LeadSubmission) AnswerMap() map[string]any {
	out := make(map[string]any, len(l.Answers))
	for _, a := range l.Answers {
		out[a.QuestionID] = a.Value
	}
	return out
}

// LeadEvent is a row of the append-only lead table as read back for retargeting.
type LeadEvent struct {
	ID          string     `json:"id"`
	SessionID   string     `json:"sessionId"`
	FunnelType  string     `json:"funnelType"`
	Email       string     `json:"email,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	FirstName   string     `json:"firstName,omitempty"`
	LastName    string     `json:"lastName,omitempty"`
	ZipCode     string     `json:"zipCode,omitempty"`
	State       string     `json:"state,omitempty"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	ConvertedAt *time.Time `json:"convertedAt,omitempty"`
}

type LeadEventRepositoryInterface interface {
	Insert(ctx context.Context, lead *LeadSubmission) (string, error)
	ListUnconverted(ctx context.Context, since time.Time, funnelType string, limit int) ([]LeadEvent, error)
	MarkConverted(ctx context.Context, sessionID string) (int64, error)
	ExpireBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
