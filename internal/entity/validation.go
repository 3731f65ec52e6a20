package entity

import (
	"context"
	"errors"
	"time"
)

// ErrNotConfigured is returned by integrations whose credentials are absent.
var ErrNotConfigured = errors.New("integration not configured")

type ValidationKind string

const (
	ValidationKindEmail ValidationKind = "email"
	ValidationKindPhone ValidationKind = "phone"
)

type ReasonCode string

const (
	ReasonOK                  ReasonCode = "ok"
	ReasonDisposable          ReasonCode = "disposable"
	ReasonRoleBased           ReasonCode = "role-based"
	ReasonMalformed           ReasonCode = "malformed"
	ReasonCarrierRejected     ReasonCode = "carrier-rejected"
	ReasonProviderUnavailable ReasonCode = "provider-unavailable"
	ReasonUndeliverable       ReasonCode = "undeliverable"
	ReasonUnknown             ReasonCode = "unknown"
)

type ValidationResult struct {
	Subject    string         `json:"subject"`
	Kind       ValidationKind `json:"kind"`
	Valid      bool           `json:"valid"`
	ReasonCode ReasonCode     `json:"reasonCode"`
	CheckedAt  time.Time      `json:"checkedAt"`

	Deliverable bool `json:"deliverable,omitempty"`
	Disposable  bool `json:"disposable,omitempty"`
	RoleBased   bool `json:"roleBased,omitempty"`

	LineType       string `json:"lineType,omitempty"`
	Carrier        string `json:"carrier,omitempty"`
	NationalFormat string `json:"nationalFormat,omitempty"`
}

type EmailClassification string

const (
	EmailOK         EmailClassification = "ok"
	EmailBad        EmailClassification = "bad"
	EmailUnknown    EmailClassification = "unknown"
	EmailDisposable EmailClassification = "disposable"
	EmailRoleBased  EmailClassification = "role-based"
)

type EmailVerification struct {
	Classification EmailClassification
	Reason         string
	DidYouMean     string
}

type PhoneLookup struct {
	Valid          bool
	LineType       string
	Carrier        string
	NationalFormat string
}

type EmailVerifier interface {
	VerifyEmail(ctx context.Context, email string) (EmailVerification, error)
}

type PhoneVerifier interface {
	LookupPhone(ctx context.Context, e164 string) (PhoneLookup, error)
}
