package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/conversn-io/seniorsimple-sub006/internal/entity"
	"github.com/conversn-io/seniorsimple-sub006/internal/infra/kv"
)

// DedupGuard remembers which (session, destination) pairs were delivered so
// a retried submit does not create a second CRM contact or row.
type DedupGuard struct {
	Store     kv.Store
	Retention time.Duration
	Now       func() time.Time
	Logger    zerolog.Logger
}

func NewDedupGuard(store kv.Store, retention time.Duration, logger zerolog.Logger) *DedupGuard {
	return &DedupGuard{Store: store, Retention: retention, Now: time.Now, Logger: logger}
}

func dedupKey(sessionID string, dest entity.Destination) string {
	return "dedup:" + sessionID + ":" + string(dest)
}

// HasSucceeded reports a prior success inside the retention window. An
// unreachable store is logged and reported as "not delivered".
func (g *DedupGuard) HasSucceeded(ctx context.Context, sessionID string, dest entity.Destination) (*entity.DeliveryRecord, bool) {
	raw, ok, err := g.Store.Get(ctx, dedupKey(sessionID, dest))
	if err != nil {
		g.Logger.Error().Err(err).Str("session_id", sessionID).Str("destination", string(dest)).Msg("dedup lookup failed")
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var record entity.DeliveryRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		g.Logger.Error().Err(err).Str("session_id", sessionID).Msg("dedup record unreadable")
		return nil, false
	}
	if g.Now().Sub(record.RecordedAt) >= g.Retention {
		return nil, false
	}
	return &record, true
}

func (g *DedupGuard) RecordSuccess(ctx context.Context, sessionID string, dest entity.Destination, resultID string) {
	record := entity.DeliveryRecord{ResultID: resultID, RecordedAt: g.Now().UTC()}
	raw, err := json.Marshal(record)
	if err != nil {
		return
	}
	if err := g.Store.Set(ctx, dedupKey(sessionID, dest), raw, g.Retention); err != nil {
		g.Logger.Error().Err(err).Str("session_id", sessionID).Str("destination", string(dest)).Msg("dedup record failed")
	}
}
