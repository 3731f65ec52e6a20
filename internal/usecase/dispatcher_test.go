package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conversn-io/seniorsimple-sub006/internal/entity"
	"github.com/conversn-io/seniorsimple-sub006/internal/infra/kv"
)

func newTestDispatcher(timeout time.Duration, observer DeliveryObserver) (*Dispatcher, *DedupGuard) {
	guard := NewDedupGuard(kv.NewMemoryStore(), 15*time.Minute, nopLogger())
	return NewDispatcher(guard, timeout, time.Second, observer, nopLogger()), guard
}

func TestDispatchDeliversToEveryDestination(t *testing.T) {
	observer := &recordingObserver{}
	d, guard := newTestDispatcher(500*time.Millisecond, observer)
	db := newFakeDestination(entity.DestinationDatabase)
	crm := newFakeDestination(entity.DestinationCRMWebhook)

	attempts := d.Dispatch(context.Background(), sampleLead("s1"), []entity.LeadDestination{db, crm, db})

	require.Len(t, attempts, 2)
	assert.Equal(t, entity.DestinationDatabase, attempts[0].Destination)
	assert.Equal(t, entity.OutcomeSuccess, attempts[0].Outcome)
	assert.Equal(t, "database-s1-1", attempts[0].ResultID)
	assert.Equal(t, entity.DestinationCRMWebhook, attempts[1].Destination)
	assert.Equal(t, entity.OutcomeSuccess, attempts[1].Outcome)
	assert.EqualValues(t, 1, db.calls.Load())
	assert.Len(t, observer.deliveries, 2)

	record, ok := guard.HasSucceeded(context.Background(), "s1", entity.DestinationCRMWebhook)
	require.True(t, ok)
	assert.Equal(t, attempts[1].ResultID, record.ResultID)
}

func TestDispatchReplaysPriorSuccess(t *testing.T) {
	d, _ := newTestDispatcher(500*time.Millisecond, nil)
	db := newFakeDestination(entity.DestinationDatabase)
	ctx := context.Background()

	first := d.Dispatch(ctx, sampleLead("abc123"), []entity.LeadDestination{db})
	second := d.Dispatch(ctx, sampleLead("abc123"), []entity.LeadDestination{db})

	assert.EqualValues(t, 1, db.calls.Load())
	assert.False(t, first[0].Replayed)
	assert.True(t, second[0].Replayed)
	assert.Equal(t, entity.OutcomeSuccess, second[0].Outcome)
	assert.Equal(t, first[0].ResultID, second[0].ResultID)
}

func TestDispatchTimesOutWithoutBlocking(t *testing.T) {
	d, guard := newTestDispatcher(50*time.Millisecond, nil)
	slow := newFakeDestination(entity.DestinationCRMWebhook)
	slow.delay = 200 * time.Millisecond
	fast := newFakeDestination(entity.DestinationDatabase)

	started := time.Now()
	attempts := d.Dispatch(context.Background(), sampleLead("s2"), []entity.LeadDestination{fast, slow})
	elapsed := time.Since(started)

	assert.Less(t, elapsed, 150*time.Millisecond)
	assert.Equal(t, entity.OutcomeSuccess, attempts[0].Outcome)
	assert.Equal(t, entity.OutcomeTimeout, attempts[1].Outcome)
	assert.Empty(t, attempts[1].ResultID)

	// The late completion is still recorded, so a retry does not resend.
	select {
	case <-slow.finished:
	case <-time.After(time.Second):
		t.Fatal("slow destination never finished")
	}
	require.Eventually(t, func() bool {
		_, ok := guard.HasSucceeded(context.Background(), "s2", entity.DestinationCRMWebhook)
		return ok
	}, time.Second, 5*time.Millisecond)

	retry := d.Dispatch(context.Background(), sampleLead("s2"), []entity.LeadDestination{slow})
	assert.True(t, retry[0].Replayed)
	assert.EqualValues(t, 1, slow.calls.Load())
}

func TestDispatchIgnoresRequestCancellationForInFlightSend(t *testing.T) {
	d, guard := newTestDispatcher(20*time.Millisecond, nil)
	slow := newFakeDestination(entity.DestinationDatabase)
	slow.delay = 60 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	attempts := d.Dispatch(ctx, sampleLead("s3"), []entity.LeadDestination{slow})
	cancel()

	assert.Equal(t, entity.OutcomeTimeout, attempts[0].Outcome)
	require.Eventually(t, func() bool {
		_, ok := guard.HasSucceeded(context.Background(), "s3", entity.DestinationDatabase)
		return ok
	}, time.Second, 5*time.Millisecond)
}

func TestDispatchHardTimeoutCancelsUnderlyingCall(t *testing.T) {
	guard := NewDedupGuard(kv.NewMemoryStore(), time.Minute, nopLogger())
	d := NewDispatcher(guard, 10*time.Millisecond, 30*time.Millisecond, nil, nopLogger())
	hung := newFakeDestination(entity.DestinationCRMWebhook)
	hung.delay = time.Hour

	attempts := d.Dispatch(context.Background(), sampleLead("s4"), []entity.LeadDestination{hung})
	assert.Equal(t, entity.OutcomeTimeout, attempts[0].Outcome)

	select {
	case <-hung.finished:
	case <-time.After(time.Second):
		t.Fatal("hard timeout did not cancel the send")
	}
	_, ok := guard.HasSucceeded(context.Background(), "s4", entity.DestinationCRMWebhook)
	assert.False(t, ok)
}

func TestDispatchClassifiesErrors(t *testing.T) {
	d, guard := newTestDispatcher(200*time.Millisecond, nil)
	rejecting := newFakeDestination(entity.DestinationCRMWebhook)
	rejecting.err = fmt.Errorf("ghl webhook status 422: %w", entity.ErrRejected)
	broken := newFakeDestination(entity.DestinationDatabase)
	broken.err = errors.New("connection refused")

	attempts := d.Dispatch(context.Background(), sampleLead("s5"), []entity.LeadDestination{rejecting, broken})

	assert.Equal(t, entity.OutcomeRejected, attempts[0].Outcome)
	assert.Contains(t, attempts[0].Error, "422")
	assert.Equal(t, entity.OutcomeError, attempts[1].Outcome)
	assert.Equal(t, "connection refused", attempts[1].Error)

	_, ok := guard.HasSucceeded(context.Background(), "s5", entity.DestinationDatabase)
	assert.False(t, ok)
}

func TestDispatchFailedAttemptIsNotRetriedButMayBeResent(t *testing.T) {
	d, _ := newTestDispatcher(200*time.Millisecond, nil)
	flaky := newFakeDestination(entity.DestinationDatabase)
	flaky.err = errors.New("boom")

	d.Dispatch(context.Background(), sampleLead("s6"), []entity.LeadDestination{flaky})
	assert.EqualValues(t, 1, flaky.calls.Load())

	flaky.err = nil
	again := d.Dispatch(context.Background(), sampleLead("s6"), []entity.LeadDestination{flaky})
	assert.Equal(t, entity.OutcomeSuccess, again[0].Outcome)
	assert.EqualValues(t, 2, flaky.calls.Load())
}

func TestDispatchConcurrentSubmitsShareOneDelivery(t *testing.T) {
	d, _ := newTestDispatcher(time.Second, nil)
	db := newFakeDestination(entity.DestinationDatabase)
	db.delay = 50 * time.Millisecond

	const callers = 8
	results := make([]entity.DeliveryAttempt, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = d.Dispatch(context.Background(), sampleLead("abc123"), []entity.LeadDestination{db})[0]
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, db.calls.Load())
	for _, r := range results {
		assert.Equal(t, entity.OutcomeSuccess, r.Outcome)
		assert.Equal(t, results[0].ResultID, r.ResultID)
	}
}

type panickingDestination struct{}

func (panickingDestination) Name() entity.Destination { return entity.DestinationCRMWebhook }

func (panickingDestination) Deliver(context.Context, *entity.LeadSubmission) (string, error) {
	panic("adapter bug")
}

func TestDispatchTurnsDestinationPanicIntoError(t *testing.T) {
	d, guard := newTestDispatcher(200*time.Millisecond, nil)
	db := newFakeDestination(entity.DestinationDatabase)

	var attempts []entity.DeliveryAttempt
	require.NotPanics(t, func() {
		attempts = d.Dispatch(context.Background(), sampleLead("s7"), []entity.LeadDestination{db, panickingDestination{}})
	})

	require.Len(t, attempts, 2)
	assert.Equal(t, entity.OutcomeSuccess, attempts[0].Outcome)
	assert.Equal(t, entity.OutcomeError, attempts[1].Outcome)
	assert.Contains(t, attempts[1].Error, "adapter bug")

	_, ok := guard.HasSucceeded(context.Background(), "s7", entity.DestinationCRMWebhook)
	assert.False(t, ok)
}
