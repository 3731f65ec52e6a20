package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/conversn-io/seniorsimple-sub006/internal/entity"
)

// Lookup sources reported to the ValidationObserver.
const (
	SourceCache    = "cache"
	SourceLocal    = "local"
	SourceProvider = "provider"
	SourceFailed   = "provider_error"
)

var defaultDisposableDomains = []string{
	"mailinator.com",
	"guerrillamail.com",
	"10minutemail.com",
	"tempmail.com",
	"temp-mail.org",
	"yopmail.com",
	"trashmail.com",
	"sharklasers.com",
	"getnada.com",
	"maildrop.cc",
	"dispostable.com",
	"fakeinbox.com",
	"throwawaymail.com",
}

type ValidationObserver interface {
	ObserveValidation(kind entity.ValidationKind, source string)
}

type ContactValidatorConfig struct {
	EmailCacheTTL     time.Duration
	PhoneCacheTTL     time.Duration
	VerifierTimeout   time.Duration
	DisposableDomains []string
	RejectedLineTypes []string
}

// ContactValidator answers the validate-email and validate-phone routes.
// Provider outages fail open with provider-unavailable and are not cached;
// missing provider credentials are a configuration error.
type ContactValidator struct {
	Email      entity.EmailVerifier
	Phone      entity.PhoneVerifier
	EmailCache *ValidationCache
	PhoneCache *ValidationCache
	Observer   ValidationObserver
	Logger     zerolog.Logger

	timeout       time.Duration
	disposable    map[string]bool
	rejectedLines map[string]bool
	flights       singleflight.Group
}

func NewContactValidator(
	email entity.EmailVerifier,
	phone entity.PhoneVerifier,
	emailCache *ValidationCache,
	phoneCache *ValidationCache,
	cfg ContactValidatorConfig,
	observer ValidationObserver,
	logger zerolog.Logger,
) *ContactValidator {
	v := &ContactValidator{
		Email:         email,
		Phone:         phone,
		EmailCache:    emailCache,
		PhoneCache:    phoneCache,
		Observer:      observer,
		Logger:        logger.With().Str("component", "contact_validator").Logger(),
		timeout:       cfg.VerifierTimeout,
		disposable:    map[string]bool{},
		rejectedLines: map[string]bool{},
	}
	if v.timeout <= 0 {
		v.timeout = 3 * time.Second
	}
	for _, d := range append(append([]string{}, defaultDisposableDomains...), cfg.DisposableDomains...) {
		v.disposable[strings.ToLower(strings.TrimSpace(d))] = true
	}
	for _, lt := range cfg.RejectedLineTypes {
		v.rejectedLines[strings.ToLower(strings.TrimSpace(lt))] = true
	}
	return v
}

func (v *ContactValidator) ValidateEmail(ctx context.Context, email string) (entity.ValidationResult, error) {
	subject := normalizeEmail(email)
	if subject == "" {
		return entity.ValidationResult{}, &DomainError{Code: CodeMissingEmail, Message: "email is required"}
	}
	if !isValidEmailFormat(subject) {
		return entity.ValidationResult{
			Subject: subject, Kind: entity.ValidationKindEmail,
			ReasonCode: entity.ReasonMalformed, CheckedAt: time.Now().UTC(),
		}, nil
	}

	if cached, ok := v.EmailCache.Get(ctx, subject); ok {
		v.observe(entity.ValidationKindEmail, SourceCache)
		return *cached, nil
	}

	if v.disposable[emailDomain(subject)] {
		v.observe(entity.ValidationKindEmail, SourceLocal)
		return v.EmailCache.Put(ctx, entity.ValidationResult{
			Subject: subject, Kind: entity.ValidationKindEmail,
			ReasonCode: entity.ReasonDisposable, Disposable: true,
		}), nil
	}

	res, err, _ := v.flights.Do("email:"+subject, func() (any, error) {
		if cached, ok := v.EmailCache.Get(ctx, subject); ok {
			return *cached, nil
		}
		if v.Email == nil {
			return nil, configurationError("email verifier", entity.ErrNotConfigured)
		}

		// Joined callers share this call, so the first caller's cancellation
		// must not fail it for everyone.
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), v.timeout)
		defer cancel()
		verification, err := v.Email.VerifyEmail(callCtx, subject)
		if err != nil {
			return v.providerFailure(entity.ValidationKindEmail, subject, err)
		}
		v.observe(entity.ValidationKindEmail, SourceProvider)
		return v.EmailCache.Put(ctx, emailResult(subject, verification)), nil
	})
	if err != nil {
		return entity.ValidationResult{}, err
	}
	return res.(entity.ValidationResult), nil
}

func (v *ContactValidator) ValidatePhone(ctx context.Context, phone string) (entity.ValidationResult, error) {
	if strings.TrimSpace(phone) == "" {
		return entity.ValidationResult{}, &DomainError{Code: CodeMissingPhone, Message: "phone is required"}
	}
	subject, ok := normalizePhone(phone)
	if !ok {
		return entity.ValidationResult{
			Subject: subject, Kind: entity.ValidationKindPhone,
			ReasonCode: entity.ReasonMalformed, CheckedAt: time.Now().UTC(),
		}, nil
	}

	if cached, ok := v.PhoneCache.Get(ctx, subject); ok {
		v.observe(entity.ValidationKindPhone, SourceCache)
		return *cached, nil
	}

	res, err, _ := v.flights.Do("phone:"+subject, func() (any, error) {
		if cached, ok := v.PhoneCache.Get(ctx, subject); ok {
			return *cached, nil
		}
		if v.Phone == nil {
			return nil, configurationError("phone verifier", entity.ErrNotConfigured)
		}

		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), v.timeout)
		defer cancel()
		lookup, err := v.Phone.LookupPhone(callCtx, subject)
		if err != nil {
			return v.providerFailure(entity.ValidationKindPhone, subject, err)
		}
		v.observe(entity.ValidationKindPhone, SourceProvider)
		return v.PhoneCache.Put(ctx, v.phoneResult(subject, lookup)), nil
	})
	if err != nil {
		return entity.ValidationResult{}, err
	}
	return res.(entity.ValidationResult), nil
}

func (v *ContactValidator) providerFailure(kind entity.ValidationKind, subject string, err error) (any, error) {
	if errors.Is(err, entity.ErrNotConfigured) {
		v.Logger.Error().Err(err).Str("kind", string(kind)).Msg("verifier credentials missing")
		return nil, configurationError(string(kind)+" verifier", err)
	}
	v.observe(kind, SourceFailed)
	v.Logger.Warn().Err(err).Str("kind", string(kind)).Str("subject", subject).Msg("verifier unavailable, failing open")
	return entity.ValidationResult{
		Subject:    subject,
		Kind:       kind,
		Valid:      true,
		ReasonCode: entity.ReasonProviderUnavailable,
		CheckedAt:  time.Now().UTC(),
	}, nil
}

func (v *ContactValidator) observe(kind entity.ValidationKind, source string) {
	if v.Observer != nil {
		v.Observer.ObserveValidation(kind, source)
	}
}

func emailResult(subject string, ev entity.EmailVerification) entity.ValidationResult {
	r := entity.ValidationResult{Subject: subject, Kind: entity.ValidationKindEmail}
	switch ev.Classification {
	case entity.EmailOK:
		r.Valid, r.Deliverable, r.ReasonCode = true, true, entity.ReasonOK
	case entity.EmailUnknown:
		r.Valid, r.ReasonCode = true, entity.ReasonUnknown
	case entity.EmailDisposable:
		r.Disposable, r.ReasonCode = true, entity.ReasonDisposable
	case entity.EmailRoleBased:
		r.RoleBased, r.ReasonCode = true, entity.ReasonRoleBased
	default:
		r.ReasonCode = entity.ReasonUndeliverable
	}
	return r
}

func (v *ContactValidator) phoneResult(subject string, lookup entity.PhoneLookup) entity.ValidationResult {
	r := entity.ValidationResult{
		Subject:        subject,
		Kind:           entity.ValidationKindPhone,
		Valid:          lookup.Valid,
		ReasonCode:     entity.ReasonOK,
		LineType:       lookup.LineType,
		Carrier:        lookup.Carrier,
		NationalFormat: lookup.NationalFormat,
	}
	if !lookup.Valid || v.rejectedLines[strings.ToLower(lookup.LineType)] {
		r.Valid = false
		r.ReasonCode = entity.ReasonCarrierRejected
	}
	return r
}
