package usecase

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"

	"github.com/conversn-io/seniorsimple-sub006/internal/entity"
	"github.com/conversn-io/seniorsimple-sub006/internal/infra/kv"
)

var errStoreDown = errors.New("store down")

type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, bool, error) { return nil, false, errStoreDown }
func (failingStore) Set(context.Context, string, []byte, time.Duration) error {
	return errStoreDown
}

var _ kv.Store = failingStore{}

// MockEmailVerifier
type MockEmailVerifier struct {
	mock.Mock
}

func (m *MockEmailVerifier) VerifyEmail(ctx context.Context, email string) (entity.EmailVerification, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(entity.EmailVerification), args.Error(1)
}

// MockPhoneVerifier
type MockPhoneVerifier struct {
	mock.Mock
}

func (m *MockPhoneVerifier) LookupPhone(ctx context.Context, e164 string) (entity.PhoneLookup, error) {
	args := m.Called(ctx, e164)
	return args.Get(0).(entity.PhoneLookup), args.Error(1)
}

// MockLeadEventRepository
type MockLeadEventRepository struct {
	mock.Mock
}

func (m *MockLeadEventRepository) Insert(ctx context.Context, lead *entity.LeadSubmission) (string, error) {
	args := m.Called(ctx, lead)
	return args.String(0), args.Error(1)
}

func (m *MockLeadEventRepository) ListUnconverted(ctx context.Context, since time.Time, funnelType string, limit int) ([]entity.LeadEvent, error) {
	args := m.Called(ctx, since, funnelType, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.LeadEvent), args.Error(1)
}

func (m *MockLeadEventRepository) MarkConverted(ctx context.Context, sessionID string) (int64, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLeadEventRepository) ExpireBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// fakeDestination counts calls and optionally blocks until released or until
// its context ends.
type fakeDestination struct {
	name     entity.Destination
	delay    time.Duration
	err      error
	calls    atomic.Int32
	finished chan struct{}
	once     sync.Once
}

func newFakeDestination(name entity.Destination) *fakeDestination {
	return &fakeDestination{name: name, finished: make(chan struct{})}
}

func (f *fakeDestination) Name() entity.Destination { return f.name }

func (f *fakeDestination) Deliver(ctx context.Context, lead *entity.LeadSubmission) (string, error) {
	n := f.calls.Add(1)
	defer f.once.Do(func() { close(f.finished) })
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.err != nil {
		return "", f.err
	}
	return string(f.name) + "-" + lead.SessionID + "-" + strconv.Itoa(int(n)), nil
}

type recordingObserver struct {
	mu         sync.Mutex
	deliveries []entity.Outcome
	lookups    []string
}

func (o *recordingObserver) ObserveDelivery(_ entity.Destination, outcome entity.Outcome, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.deliveries = append(o.deliveries, outcome)
}

func (o *recordingObserver) ObserveValidation(_ entity.ValidationKind, source string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lookups = append(o.lookups, source)
}

func (o *recordingObserver) Lookups() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.lookups...)
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func nopLogger() zerolog.Logger { return zerolog.Nop() }

func sampleLead(sessionID string) *entity.LeadSubmission {
	return &entity.LeadSubmission{
		SessionID:  sessionID,
		UserID:     sessionID,
		FunnelType: "annuity",
		Contact:    entity.Contact{Email: "a@b.com", FirstName: "A", LastName: "B"},
	}
}
