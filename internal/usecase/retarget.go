package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/conversn-io/seniorsimple-sub006/internal/entity"
)

const (
	defaultRetargetLimit = 100
	maxRetargetLimit     = 500
)

type RetargetOutput struct {
	Leads      []entity.LeadEvent `json:"leads"`
	Count      int                `json:"count"`
	Since      time.Time          `json:"since"`
	FunnelType string             `json:"funnelType,omitempty"`
}

// RetargetUseCase reads captured leads that never converted, for follow-up
// campaigns, and lets the funnel mark a session as converted.
type RetargetUseCase struct {
	Repo   entity.LeadEventRepositoryInterface
	Window time.Duration
	Now    func() time.Time
	Logger zerolog.Logger
}

func NewRetargetUseCase(repo entity.LeadEventRepositoryInterface, window time.Duration, logger zerolog.Logger) *RetargetUseCase {
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &RetargetUseCase{
		Repo:   repo,
		Window: window,
		Now:    time.Now,
		Logger: logger.With().Str("component", "retarget").Logger(),
	}
}

func (uc *RetargetUseCase) List(ctx context.Context, funnelType string, limit int) (*RetargetOutput, error) {
	if uc.Repo == nil {
		return nil, configurationError("lead store", entity.ErrNotConfigured)
	}
	switch {
	case limit <= 0:
		limit = defaultRetargetLimit
	case limit > maxRetargetLimit:
		limit = maxRetargetLimit
	}
	funnelType = strings.ToLower(strings.TrimSpace(funnelType))
	since := uc.Now().Add(-uc.Window).UTC()

	leads, err := uc.Repo.ListUnconverted(ctx, since, funnelType, limit)
	if err != nil {
		uc.Logger.Error().Err(err).Str("funnel_type", funnelType).Msg("list unconverted leads")
		return nil, &TechnicalError{Code: CodeDatabase, Message: "failed to list leads", Err: err}
	}
	if leads == nil {
		leads = []entity.LeadEvent{}
	}
	return &RetargetOutput{Leads: leads, Count: len(leads), Since: since, FunnelType: funnelType}, nil
}

func (uc *RetargetUseCase) MarkConverted(ctx context.Context, sessionID string) (int64, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return 0, &DomainError{Code: CodeMissingSessionID, Message: "sessionId is required"}
	}
	if uc.Repo == nil {
		return 0, configurationError("lead store", entity.ErrNotConfigured)
	}

	n, err := uc.Repo.MarkConverted(ctx, sessionID)
	if err != nil {
		uc.Logger.Error().Err(err).Str("session_id", sessionID).Msg("mark converted")
		return 0, &TechnicalError{Code: CodeDatabase, Message: "failed to mark lead converted", Err: err}
	}
	if n == 0 {
		return 0, &DomainError{Code: CodeNotFound, Message: "no captured lead for session " + sessionID}
	}
	uc.Logger.Info().Str("session_id", sessionID).Int64("rows", n).Msg("lead converted")
	return n, nil
}
