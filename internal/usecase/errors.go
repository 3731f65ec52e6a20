package usecase

import "errors"

const (
	CodeMissingSession     = "missing_session"
	CodeInvalidEmailFormat = "invalid_email_format"
	CodeInvalidDestination = "invalid_destination"
	CodeMissingEmail       = "missing_email"
	CodeMissingPhone       = "missing_phone"
	CodeMissingSessionID   = "missing_session_id"
	CodeRejected           = "rejected"
	CodeConfiguration      = "configuration_error"
	CodeDatabase           = "database_error"
	CodeInvalidJSON        = "invalid_json"
	CodeUnauthorized       = "unauthorized"
	CodeRateLimited        = "rate_limited"
	CodeNotFound           = "not_found"
)

// DomainError is a client-side problem: malformed input or a payload the only
// targeted destination refused.
type DomainError struct {
	Code    string
	Message string
	Fields  []ValidationError
}

func (e *DomainError) Error() string {
	return e.Message
}

func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

// TechnicalError is an operator-side problem such as missing credentials.
type TechnicalError struct {
	Code    string
	Message string
	Err     error
}

func (e *TechnicalError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *TechnicalError) Unwrap() error {
	return e.Err
}

func IsTechnicalError(err error) bool {
	var te *TechnicalError
	return errors.As(err, &te)
}

func configurationError(what string, err error) *TechnicalError {
	return &TechnicalError{Code: CodeConfiguration, Message: what + " is not configured", Err: err}
}
