package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/conversn-io/seniorsimple-sub006/internal/usecase"
)

type ErrorResponse struct {
	Success bool                      `json:"success"`
	Error   string                    `json:"error"`
	Message string                    `json:"message"`
	Details []usecase.ValidationError `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeErrorResponse(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: message})
}

// writeUseCaseError maps the use case error taxonomy onto HTTP statuses.
// Technical details never leave the process; they go to the request log.
func writeUseCaseError(w http.ResponseWriter, r *http.Request, err error) {
	var de *usecase.DomainError
	if errors.As(err, &de) {
		status := http.StatusBadRequest
		switch de.Code {
		case usecase.CodeRejected:
			status = http.StatusUnprocessableEntity
		case usecase.CodeNotFound:
			status = http.StatusNotFound
		}
		writeJSON(w, status, ErrorResponse{Error: de.Code, Message: de.Message, Details: de.Fields})
		return
	}

	logger := zerolog.Ctx(r.Context())
	var te *usecase.TechnicalError
	if errors.As(err, &te) {
		logger.Error().Err(err).Str("code", te.Code).Msg("request failed")
		writeErrorResponse(w, http.StatusInternalServerError, te.Code, te.Message)
		return
	}

	logger.Error().Err(err).Msg("unexpected error")
	writeErrorResponse(w, http.StatusInternalServerError, "internal_error", "unexpected error")
}
