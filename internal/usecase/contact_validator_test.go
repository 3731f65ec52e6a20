package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/conversn-io/seniorsimple-sub006/internal/entity"
	"github.com/conversn-io/seniorsimple-sub006/internal/infra/kv"
)

func newTestValidator(email entity.EmailVerifier, phone entity.PhoneVerifier, observer ValidationObserver) *ContactValidator {
	store := kv.NewMemoryStore()
	return NewContactValidator(
		email,
		phone,
		NewValidationCache(store, entity.ValidationKindEmail, 10*time.Minute, nopLogger()),
		NewValidationCache(store, entity.ValidationKindPhone, 5*time.Minute, nopLogger()),
		ContactValidatorConfig{
			VerifierTimeout:   time.Second,
			DisposableDomains: []string{"Burner.Example"},
			RejectedLineTypes: []string{"nonFixedVoip", "tollFree"},
		},
		observer,
		nopLogger(),
	)
}

func TestValidateEmailDisposableWithoutProvider(t *testing.T) {
	observer := &recordingObserver{}
	// No verifier configured: the local list still answers.
	v := newTestValidator(nil, nil, observer)

	result, err := v.ValidateEmail(context.Background(), "test@mailinator.com")
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.True(t, result.Disposable)
	assert.Equal(t, entity.ReasonDisposable, result.ReasonCode)

	again, err := v.ValidateEmail(context.Background(), "TEST@mailinator.com")
	require.NoError(t, err)
	assert.False(t, again.Valid)
	assert.Equal(t, []string{SourceLocal, SourceCache}, observer.Lookups())
}

func TestValidateEmailConfiguredDisposableDomain(t *testing.T) {
	emails := new(MockEmailVerifier)
	v := newTestValidator(emails, nil, nil)

	result, err := v.ValidateEmail(context.Background(), "x@burner.example")
	require.NoError(t, err)
	assert.True(t, result.Disposable)
	emails.AssertNotCalled(t, "VerifyEmail", mock.Anything, mock.Anything)
}

func TestValidateEmailCallsProviderOncePerTTL(t *testing.T) {
	emails := new(MockEmailVerifier)
	emails.On("VerifyEmail", mock.Anything, "jane@example.com").
		Return(entity.EmailVerification{Classification: entity.EmailOK}, nil).Once()
	v := newTestValidator(emails, nil, nil)

	for i := 0; i < 3; i++ {
		result, err := v.ValidateEmail(context.Background(), " Jane@Example.com ")
		require.NoError(t, err)
		assert.True(t, result.Valid)
		assert.True(t, result.Deliverable)
		assert.Equal(t, entity.ReasonOK, result.ReasonCode)
	}
	emails.AssertNumberOfCalls(t, "VerifyEmail", 1)
}

func TestValidateEmailClassifications(t *testing.T) {
	cases := []struct {
		class  entity.EmailClassification
		valid  bool
		reason entity.ReasonCode
	}{
		{entity.EmailOK, true, entity.ReasonOK},
		{entity.EmailBad, false, entity.ReasonUndeliverable},
		{entity.EmailUnknown, true, entity.ReasonUnknown},
		{entity.EmailDisposable, false, entity.ReasonDisposable},
		{entity.EmailRoleBased, false, entity.ReasonRoleBased},
	}
	for i, tc := range cases {
		t.Run(string(tc.class), func(t *testing.T) {
			email := fmt.Sprintf("user%d@example.com", i)
			emails := new(MockEmailVerifier)
			emails.On("VerifyEmail", mock.Anything, email).Return(entity.EmailVerification{Classification: tc.class}, nil)
			v := newTestValidator(emails, nil, nil)

			result, err := v.ValidateEmail(context.Background(), email)
			require.NoError(t, err)
			assert.Equal(t, tc.valid, result.Valid)
			assert.Equal(t, tc.reason, result.ReasonCode)
		})
	}
}

func TestValidateEmailMalformedSkipsProvider(t *testing.T) {
	emails := new(MockEmailVerifier)
	v := newTestValidator(emails, nil, nil)

	result, err := v.ValidateEmail(context.Background(), "not-an-email")
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, entity.ReasonMalformed, result.ReasonCode)
	emails.AssertNotCalled(t, "VerifyEmail", mock.Anything, mock.Anything)
}

func TestValidateEmailMissing(t *testing.T) {
	v := newTestValidator(nil, nil, nil)

	_, err := v.ValidateEmail(context.Background(), "  ")
	var de *DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, CodeMissingEmail, de.Code)
}

func TestValidateEmailWithoutCredentialsIsConfigurationError(t *testing.T) {
	v := newTestValidator(nil, nil, nil)

	_, err := v.ValidateEmail(context.Background(), "jane@example.com")
	var te *TechnicalError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, CodeConfiguration, te.Code)
	assert.ErrorIs(t, err, entity.ErrNotConfigured)
}

func TestValidateEmailProviderNotConfiguredError(t *testing.T) {
	emails := new(MockEmailVerifier)
	emails.On("VerifyEmail", mock.Anything, mock.Anything).Return(entity.EmailVerification{}, entity.ErrNotConfigured)
	v := newTestValidator(emails, nil, nil)

	_, err := v.ValidateEmail(context.Background(), "jane@example.com")
	assert.True(t, IsTechnicalError(err))
}

func TestValidatePhoneCachesForFiveMinutes(t *testing.T) {
	clock := newTestClock()
	phones := new(MockPhoneVerifier)
	phones.On("LookupPhone", mock.Anything, "+15550102030").
		Return(entity.PhoneLookup{Valid: true, LineType: "mobile", Carrier: "Verizon", NationalFormat: "(555) 010-2030"}, nil)
	v := newTestValidator(nil, phones, nil)
	v.PhoneCache.Now = clock.Now

	first, err := v.ValidatePhone(context.Background(), "555-010-2030")
	require.NoError(t, err)
	assert.True(t, first.Valid)
	assert.Equal(t, "mobile", first.LineType)
	assert.Equal(t, "Verizon", first.Carrier)

	clock.Advance(4 * time.Minute)
	second, err := v.ValidatePhone(context.Background(), "+1 555 010 2030")
	require.NoError(t, err)
	assert.Equal(t, first.Carrier, second.Carrier)
	assert.Equal(t, first.NationalFormat, second.NationalFormat)
	assert.True(t, first.CheckedAt.Equal(second.CheckedAt))
	phones.AssertNumberOfCalls(t, "LookupPhone", 1)

	clock.Advance(time.Minute)
	_, err = v.ValidatePhone(context.Background(), "5550102030")
	require.NoError(t, err)
	phones.AssertNumberOfCalls(t, "LookupPhone", 2)
}

func TestValidatePhoneRejectedLineType(t *testing.T) {
	phones := new(MockPhoneVerifier)
	phones.On("LookupPhone", mock.Anything, "+15550109999").
		Return(entity.PhoneLookup{Valid: true, LineType: "nonFixedVoip"}, nil)
	phones.On("LookupPhone", mock.Anything, "+15550108888").
		Return(entity.PhoneLookup{Valid: false}, nil)
	v := newTestValidator(nil, phones, nil)

	voip, err := v.ValidatePhone(context.Background(), "5550109999")
	require.NoError(t, err)
	assert.False(t, voip.Valid)
	assert.Equal(t, entity.ReasonCarrierRejected, voip.ReasonCode)

	dead, err := v.ValidatePhone(context.Background(), "5550108888")
	require.NoError(t, err)
	assert.False(t, dead.Valid)
	assert.Equal(t, entity.ReasonCarrierRejected, dead.ReasonCode)
}

func TestValidatePhoneProviderOutageFailsOpenUncached(t *testing.T) {
	observer := &recordingObserver{}
	phones := new(MockPhoneVerifier)
	phones.On("LookupPhone", mock.Anything, "+15550102030").
		Return(entity.PhoneLookup{}, errors.New("twilio lookup status 503"))
	v := newTestValidator(nil, phones, observer)

	for i := 0; i < 2; i++ {
		result, err := v.ValidatePhone(context.Background(), "5550102030")
		require.NoError(t, err)
		assert.True(t, result.Valid)
		assert.Equal(t, entity.ReasonProviderUnavailable, result.ReasonCode)
	}
	phones.AssertNumberOfCalls(t, "LookupPhone", 2)
	assert.Equal(t, []string{SourceFailed, SourceFailed}, observer.Lookups())
}

func TestValidatePhoneMalformedAndMissing(t *testing.T) {
	v := newTestValidator(nil, nil, nil)

	result, err := v.ValidatePhone(context.Background(), "12345")
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, entity.ReasonMalformed, result.ReasonCode)

	_, err = v.ValidatePhone(context.Background(), "")
	var de *DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, CodeMissingPhone, de.Code)
}

func TestValidatePhoneWithoutCredentialsIsConfigurationError(t *testing.T) {
	v := newTestValidator(nil, nil, nil)

	_, err := v.ValidatePhone(context.Background(), "5550102030")
	assert.True(t, IsTechnicalError(err))
	assert.False(t, IsDomainError(err))
}

// ctxAwareVerifier fails the way an HTTP client does when its context is done.
type ctxAwareVerifier struct{}

func (ctxAwareVerifier) VerifyEmail(ctx context.Context, _ string) (entity.EmailVerification, error) {
	if err := ctx.Err(); err != nil {
		return entity.EmailVerification{}, err
	}
	return entity.EmailVerification{Classification: entity.EmailOK}, nil
}

func (ctxAwareVerifier) LookupPhone(ctx context.Context, _ string) (entity.PhoneLookup, error) {
	if err := ctx.Err(); err != nil {
		return entity.PhoneLookup{}, err
	}
	return entity.PhoneLookup{Valid: true, LineType: "mobile"}, nil
}

func TestValidationSurvivesCallerCancellation(t *testing.T) {
	v := newTestValidator(ctxAwareVerifier{}, ctxAwareVerifier{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	email, err := v.ValidateEmail(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, entity.ReasonOK, email.ReasonCode)

	phone, err := v.ValidatePhone(ctx, "5550102030")
	require.NoError(t, err)
	assert.True(t, phone.Valid)
	assert.Equal(t, "mobile", phone.LineType)
}
