package gohighlevel

import (
	"time"

	"github.com/conversn-io/seniorsimple-sub006/internal/entity"
)

const (
	ShapeNested = "nested"
	ShapeFlat   = "flat"

	leadSource = "seniorsimple"
)

type ContactPayload struct {
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Name      string `json:"name"`
}

type LeadPayload struct {
	SessionID         string         `json:"sessionId"`
	UserID            string         `json:"userId"`
	FunnelType        string         `json:"funnelType"`
	SubmittedAt       string         `json:"submittedAt"`
	Answers           map[string]any `json:"quizAnswers"`
	CalculatedResults map[string]any `json:"calculatedResults"`
}

// NestedPayload is what the inbound CRM workflow maps by default.
type NestedPayload struct {
	Contact     ContactPayload     `json:"contact"`
	Lead        LeadPayload        `json:"lead"`
	Geo         entity.Geo         `json:"geo"`
	Consent     entity.Consent     `json:"consent"`
	Attribution entity.Attribution `json:"attribution"`
	Source      string             `json:"source"`
	Tags        []string           `json:"tags"`
}

// Project builds the CRM body for one lead in the configured shape.
func Project(lead *entity.LeadSubmission, shape string) any {
	if shape == ShapeFlat {
		return flatPayload(lead)
	}
	return nestedPayload(lead)
}

func nestedPayload(lead *entity.LeadSubmission) NestedPayload {
	return NestedPayload{
		Contact: ContactPayload{
			Email:     lead.Contact.Email,
			Phone:     lead.Contact.Phone,
			FirstName: lead.Contact.FirstName,
			LastName:  lead.Contact.LastName,
			Name:      lead.Contact.FullName(),
		},
		Lead: LeadPayload{
			SessionID:         lead.SessionID,
			UserID:            lead.UserID,
			FunnelType:        lead.FunnelType,
			SubmittedAt:       lead.SubmittedAt.UTC().Format(time.RFC3339),
			Answers:           lead.AnswerMap(),
			CalculatedResults: lead.CalculatedResults,
		},
		Geo:         lead.Geo,
		Consent:     lead.Consent,
		Attribution: lead.Attribution,
		Source:      leadSource,
		Tags:        tags(lead),
	}
}

func flatPayload(lead *entity.LeadSubmission) map[string]any {
	out := map[string]any{
		"email":                 lead.Contact.Email,
		"phone":                 lead.Contact.Phone,
		"first_name":            lead.Contact.FirstName,
		"last_name":             lead.Contact.LastName,
		"full_name":             lead.Contact.FullName(),
		"postal_code":           lead.Geo.ZipCode,
		"state":                 lead.Geo.State,
		"state_name":            lead.Geo.StateName,
		"session_id":            lead.SessionID,
		"user_id":               lead.UserID,
		"funnel_type":           lead.FunnelType,
		"submitted_at":          lead.SubmittedAt.UTC().Format(time.RFC3339),
		"trusted_form_cert_url": lead.Consent.TrustedFormCertURL,
		"lead_id_token":         lead.Consent.LeadIDToken,
		"tcpa_consent":          lead.Consent.TCPAConsent,
		"landing_page":          lead.Attribution.URL,
		"utm_source":            lead.Attribution.UTMSource,
		"utm_medium":            lead.Attribution.UTMMedium,
		"utm_campaign":          lead.Attribution.UTMCampaign,
		"source":                leadSource,
		"tags":                  tags(lead),
	}
	for k, v := range lead.AnswerMap() {
		out["quiz_"+k] = v
	}
	for k, v := range lead.CalculatedResults {
		out["calc_"+k] = v
	}
	return out
}

func tags(lead *entity.LeadSubmission) []string {
	return []string{leadSource + "-lead", lead.FunnelType}
}
