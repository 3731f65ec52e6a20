package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

type LeadExpirer interface {
	ExpireBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// LeadExpirationWorker moves captured leads that aged out of the retarget
// window to EXPIRED so the retarget list stays bounded.
type LeadExpirationWorker struct {
	repo         LeadExpirer
	window       time.Duration
	tickInterval time.Duration
	now          func() time.Time
	logger       zerolog.Logger
}

func NewLeadExpirationWorker(repo LeadExpirer, window, tickInterval time.Duration, logger zerolog.Logger) *LeadExpirationWorker {
	return &LeadExpirationWorker{
		repo:         repo,
		window:       window,
		tickInterval: tickInterval,
		now:          time.Now,
		logger:       logger.With().Str("component", "lead_expiration_worker").Logger(),
	}
}

func (w *LeadExpirationWorker) Start(ctx context.Context) {
	w.logger.Info().Dur("window", w.window).Dur("interval", w.tickInterval).Msg("lead expiration worker started")

	ticker := time.NewTicker(w.tickInterval)
	defer ticker.Stop()

	w.expireOldLeads(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("lead expiration worker stopped")
			return
		case <-ticker.C:
			w.expireOldLeads(ctx)
		}
	}
}

func (w *LeadExpirationWorker) expireOldLeads(ctx context.Context) int64 {
	cutoff := w.now().Add(-w.window).UTC()
	n, err := w.repo.ExpireBefore(ctx, cutoff)
	if err != nil {
		w.logger.Error().Err(err).Time("cutoff", cutoff).Msg("expire leads failed")
		return 0
	}
	if n > 0 {
		w.logger.Info().Int64("expired", n).Time("cutoff", cutoff).Msg("leads marked EXPIRED")
	}
	return n
}
