package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/conversn-io/seniorsimple-sub006/internal/entity"
)

type CaptureLeadOutput struct {
	Success    bool                     `json:"success"`
	EventID    string                   `json:"eventId,omitempty"`
	SessionID  string                   `json:"sessionId"`
	Status     entity.CaptureStatus     `json:"status"`
	Deliveries []entity.DeliveryAttempt `json:"deliveries"`
}

type LeadDispatcher interface {
	Dispatch(ctx context.Context, lead *entity.LeadSubmission, destinations []entity.LeadDestination) []entity.DeliveryAttempt
}

// CaptureLeadUseCase normalizes a funnel payload and hands it to the
// dispatcher. Destination failures never fail the request, except a
// rejection from the only destination targeted.
type CaptureLeadUseCase struct {
	Dispatcher   LeadDispatcher
	Destinations map[entity.Destination]entity.LeadDestination
	Defaults     []entity.Destination
	Now          func() time.Time
	Logger       zerolog.Logger
}

// NewCaptureLeadUseCase registers the known destinations. A nil adapter marks
// a destination as known but not configured. The database and CRM webhook are
// targeted by default; the event queue joins them when it is configured.
func NewCaptureLeadUseCase(dispatcher LeadDispatcher, database, crm, events entity.LeadDestination, logger zerolog.Logger) *CaptureLeadUseCase {
	defaults := []entity.Destination{entity.DestinationDatabase, entity.DestinationCRMWebhook}
	if events != nil {
		defaults = append(defaults, entity.DestinationEventQueue)
	}
	return &CaptureLeadUseCase{
		Dispatcher: dispatcher,
		Destinations: map[entity.Destination]entity.LeadDestination{
			entity.DestinationDatabase:   database,
			entity.DestinationCRMWebhook: crm,
			entity.DestinationEventQueue: events,
		},
		Defaults: defaults,
		Now:      time.Now,
		Logger:   logger.With().Str("component", "capture_lead").Logger(),
	}
}

func (uc *CaptureLeadUseCase) Execute(ctx context.Context, raw RawLead, requested []string) (*CaptureLeadOutput, error) {
	lead, fieldErrs := NormalizeLead(raw, uc.Now())
	if len(fieldErrs) > 0 {
		msgs := make([]string, 0, len(fieldErrs))
		for _, e := range fieldErrs {
			msgs = append(msgs, e.Error())
		}
		return nil, &DomainError{
			Code:    fieldErrs[0].Code,
			Message: "invalid lead: " + strings.Join(msgs, "; "),
			Fields:  fieldErrs,
		}
	}

	targets, err := uc.resolve(requested)
	if err != nil {
		return nil, err
	}

	attempts := uc.Dispatcher.Dispatch(ctx, lead, targets)

	out := &CaptureLeadOutput{
		Success:    true,
		SessionID:  lead.SessionID,
		Status:     entity.CaptureDelivered,
		Deliveries: attempts,
	}
	for _, a := range attempts {
		if a.Outcome != entity.OutcomeSuccess {
			out.Status = entity.CaptureQueued
		}
		if a.Destination == entity.DestinationDatabase && a.Outcome == entity.OutcomeSuccess {
			out.EventID = a.ResultID
		}
	}

	if len(attempts) == 1 && attempts[0].Outcome == entity.OutcomeRejected {
		uc.Logger.Error().
			Str("session_id", lead.SessionID).
			Str("destination", string(attempts[0].Destination)).
			Str("error", attempts[0].Error).
			Interface("lead", lead).
			Msg("sole destination rejected lead")
		return nil, &DomainError{
			Code:    CodeRejected,
			Message: string(attempts[0].Destination) + " rejected the lead: " + attempts[0].Error,
		}
	}

	uc.Logger.Info().
		Str("session_id", lead.SessionID).
		Str("funnel_type", lead.FunnelType).
		Str("status", string(out.Status)).
		Str("event_id", out.EventID).
		Msg("lead captured")
	return out, nil
}

func (uc *CaptureLeadUseCase) resolve(requested []string) ([]entity.LeadDestination, error) {
	names := uc.Defaults
	if len(requested) > 0 {
		names = make([]entity.Destination, 0, len(requested))
		for _, r := range requested {
			names = append(names, entity.Destination(strings.TrimSpace(r)))
		}
	}

	targets := make([]entity.LeadDestination, 0, len(names))
	for _, name := range names {
		dest, known := uc.Destinations[name]
		if !known {
			return nil, &DomainError{
				Code:    CodeInvalidDestination,
				Message: "unknown destination " + string(name),
				Fields:  []ValidationError{{Field: "destinations", Code: CodeInvalidDestination, Message: "unknown destination " + string(name)}},
			}
		}
		if dest == nil {
			uc.Logger.Error().Str("destination", string(name)).Msg("destination requested but not configured")
			return nil, configurationError("destination "+string(name), entity.ErrNotConfigured)
		}
		targets = append(targets, dest)
	}
	return targets, nil
}
