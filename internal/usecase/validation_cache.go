package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/conversn-io/seniorsimple-sub006/internal/entity"
	"github.com/conversn-io/seniorsimple-sub006/internal/infra/kv"
)

// ValidationCache memoizes verification results per subject. Freshness is
// judged on CheckedAt so a result never outlives its TTL, whatever the
// backing store does with expiry.
type ValidationCache struct {
	Store  kv.Store
	Prefix string
	TTL    time.Duration
	Now    func() time.Time
	Logger zerolog.Logger
}

func NewValidationCache(store kv.Store, kind entity.ValidationKind, ttl time.Duration, logger zerolog.Logger) *ValidationCache {
	return &ValidationCache{
		Store:  store,
		Prefix: "validation:" + string(kind) + ":",
		TTL:    ttl,
		Now:    time.Now,
		Logger: logger,
	}
}

// Get returns the cached result when one exists and is younger than TTL.
// Store failures are treated as a miss.
func (c *ValidationCache) Get(ctx context.Context, subject string) (*entity.ValidationResult, bool) {
	raw, ok, err := c.Store.Get(ctx, c.Prefix+subject)
	if err != nil {
		c.Logger.Warn().Err(err).Str("subject", subject).Msg("validation cache read failed")
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var result entity.ValidationResult
	if err := json.Unmarshal(raw, &result); err != nil {
		c.Logger.Warn().Err(err).Str("subject", subject).Msg("validation cache entry unreadable")
		return nil, false
	}
	if c.Now().Sub(result.CheckedAt) >= c.TTL {
		return nil, false
	}
	return &result, true
}

// Put stamps CheckedAt and stores the result, overwriting any prior entry.
func (c *ValidationCache) Put(ctx context.Context, result entity.ValidationResult) entity.ValidationResult {
	result.CheckedAt = c.Now().UTC()
	raw, err := json.Marshal(result)
	if err != nil {
		c.Logger.Warn().Err(err).Str("subject", result.Subject).Msg("validation cache encode failed")
		return result
	}
	if err := c.Store.Set(ctx, c.Prefix+result.Subject, raw, c.TTL); err != nil {
		c.Logger.Warn().Err(err).Str("subject", result.Subject).Msg("validation cache write failed")
	}
	return result
}
