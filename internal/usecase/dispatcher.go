package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/conversn-io/seniorsimple-sub006/internal/entity"
)

const (
	DefaultDeliveryTimeout     = 2 * time.Second
	DefaultDeliveryHardTimeout = 10 * time.Second
)

// DeliveryObserver receives one call per attempt, replays included.
type DeliveryObserver interface {
	ObserveDelivery(dest entity.Destination, outcome entity.Outcome, latency time.Duration)
}

type deliveryResult struct {
	resultID string
	replayed bool
}

// Dispatcher fans a lead out to its destinations. Each destination gets
// exactly one attempt per call; a send that loses the race against Timeout is
// reported as a timeout and keeps running in the background until
// HardTimeout, at which point its context is cancelled.
type Dispatcher struct {
	Guard       *DedupGuard
	Timeout     time.Duration
	HardTimeout time.Duration
	Observer    DeliveryObserver
	Logger      zerolog.Logger

	flights singleflight.Group
}

func NewDispatcher(guard *DedupGuard, timeout, hardTimeout time.Duration, observer DeliveryObserver, logger zerolog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultDeliveryTimeout
	}
	if hardTimeout < timeout {
		hardTimeout = DefaultDeliveryHardTimeout
	}
	return &Dispatcher{
		Guard:       guard,
		Timeout:     timeout,
		HardTimeout: hardTimeout,
		Observer:    observer,
		Logger:      logger.With().Str("component", "dispatcher").Logger(),
	}
}

// Dispatch returns one attempt per distinct destination, in the order given.
// Destinations run concurrently and no ordering between them is implied.
func (d *Dispatcher) Dispatch(ctx context.Context, lead *entity.LeadSubmission, destinations []entity.LeadDestination) []entity.DeliveryAttempt {
	seen := make(map[entity.Destination]bool, len(destinations))
	targets := make([]entity.LeadDestination, 0, len(destinations))
	for _, dest := range destinations {
		if dest == nil || seen[dest.Name()] {
			continue
		}
		seen[dest.Name()] = true
		targets = append(targets, dest)
	}

	attempts := make([]entity.DeliveryAttempt, len(targets))
	var wg sync.WaitGroup
	for i, dest := range targets {
		wg.Add(1)
		go func(i int, dest entity.LeadDestination) {
			defer wg.Done()
			attempts[i] = d.attempt(ctx, lead, dest)
		}(i, dest)
	}
	wg.Wait()
	return attempts
}

func (d *Dispatcher) attempt(ctx context.Context, lead *entity.LeadSubmission, dest entity.LeadDestination) entity.DeliveryAttempt {
	name := dest.Name()
	started := time.Now()
	attempt := entity.DeliveryAttempt{Destination: name, AttemptedAt: started.UTC()}

	if record, ok := d.Guard.HasSucceeded(ctx, lead.SessionID, name); ok {
		attempt.Outcome = entity.OutcomeSuccess
		attempt.ResultID = record.ResultID
		attempt.Replayed = true
		d.finish(&attempt, lead, started)
		return attempt
	}

	// Concurrent submits of the same session share the in-flight send,
	// including one that already lost its race and is still running.
	key := lead.SessionID + "|" + string(name)
	ch := d.flights.DoChan(key, func() (any, error) {
		return d.send(ctx, lead, dest)
	})

	timer := time.NewTimer(d.Timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if res.Err != nil {
			attempt.Error = res.Err.Error()
			attempt.Outcome = entity.OutcomeError
			if errors.Is(res.Err, entity.ErrRejected) {
				attempt.Outcome = entity.OutcomeRejected
			}
			break
		}
		r := res.Val.(deliveryResult)
		attempt.Outcome = entity.OutcomeSuccess
		attempt.ResultID = r.resultID
		attempt.Replayed = r.replayed
	case <-timer.C:
		attempt.Outcome = entity.OutcomeTimeout
		attempt.Error = "no response within " + d.Timeout.String()
	}

	d.finish(&attempt, lead, started)
	return attempt
}

// send runs in its own goroutine and outlives the request when it times out.
// Success is recorded here so that late completions still count.
// A panicking adapter becomes an error outcome; singleflight would otherwise
// re-raise it on a goroutine nothing can recover.
func (d *Dispatcher) send(ctx context.Context, lead *entity.LeadSubmission, dest entity.LeadDestination) (result deliveryResult, err error) {
	bg := context.WithoutCancel(ctx)
	name := dest.Name()

	defer func() {
		if r := recover(); r != nil {
			d.Logger.Error().Str("session_id", lead.SessionID).Str("destination", string(name)).
				Interface("panic", r).Msg("destination panicked")
			result, err = deliveryResult{}, fmt.Errorf("destination panic: %v", r)
		}
	}()

	if record, ok := d.Guard.HasSucceeded(bg, lead.SessionID, name); ok {
		return deliveryResult{resultID: record.ResultID, replayed: true}, nil
	}

	callCtx, cancel := context.WithTimeout(bg, d.HardTimeout)
	defer cancel()

	started := time.Now()
	resultID, err := dest.Deliver(callCtx, lead)
	if err != nil {
		if time.Since(started) > d.Timeout {
			d.Logger.Warn().Err(err).Str("session_id", lead.SessionID).Str("destination", string(name)).
				Dur("elapsed", time.Since(started)).Msg("late delivery failed")
		}
		return deliveryResult{}, err
	}

	d.Guard.RecordSuccess(bg, lead.SessionID, name, resultID)
	if elapsed := time.Since(started); elapsed > d.Timeout {
		d.Logger.Info().Str("session_id", lead.SessionID).Str("destination", string(name)).
			Str("result_id", resultID).Dur("elapsed", elapsed).Msg("late delivery recorded")
	}
	return deliveryResult{resultID: resultID}, nil
}

func (d *Dispatcher) finish(attempt *entity.DeliveryAttempt, lead *entity.LeadSubmission, started time.Time) {
	elapsed := time.Since(started)
	attempt.LatencyMs = elapsed.Milliseconds()

	if d.Observer != nil {
		d.Observer.ObserveDelivery(attempt.Destination, attempt.Outcome, elapsed)
	}

	event := d.Logger.Info()
	switch attempt.Outcome {
	case entity.OutcomeRejected:
		event = d.Logger.Error().Interface("lead", lead)
	case entity.OutcomeError, entity.OutcomeTimeout:
		event = d.Logger.Warn()
	}
	event.Str("session_id", lead.SessionID).
		Str("destination", string(attempt.Destination)).
		Str("outcome", string(attempt.Outcome)).
		Str("result_id", attempt.ResultID).
		Str("error", attempt.Error).
		Bool("replayed", attempt.Replayed).
		Int64("latency_ms", attempt.LatencyMs).
		Msg("lead delivery")
}
