package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/conversn-io/seniorsimple-sub006/internal/entity"
	"github.com/conversn-io/seniorsimple-sub006/internal/usecase"
)

type ContactValidatorInterface interface {
	ValidateEmail(ctx context.Context, email string) (entity.ValidationResult, error)
	ValidatePhone(ctx context.Context, phone string) (entity.ValidationResult, error)
}

type ValidationHandler struct {
	Validator ContactValidatorInterface
}

func NewValidationHandler(validator ContactValidatorInterface) *ValidationHandler {
	return &ValidationHandler{Validator: validator}
}

type EmailValidationResponse struct {
	Valid       bool              `json:"valid"`
	Email       string            `json:"email"`
	Deliverable bool              `json:"deliverable"`
	Disposable  bool              `json:"disposable"`
	RoleBased   bool              `json:"roleBased"`
	ReasonCode  entity.ReasonCode `json:"reasonCode"`
}

type PhoneValidationResponse struct {
	Valid          bool              `json:"valid"`
	Phone          string            `json:"phone"`
	LineType       string            `json:"lineType,omitempty"`
	Carrier        string            `json:"carrier,omitempty"`
	NationalFormat string            `json:"nationalFormat,omitempty"`
	ReasonCode     entity.ReasonCode `json:"reasonCode"`
}

func (h *ValidationHandler) HandleEmail(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, usecase.CodeInvalidJSON, "request body must be a JSON object")
		return
	}

	result, err := h.Validator.ValidateEmail(r.Context(), input.Email)
	if err != nil {
		writeUseCaseError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, EmailValidationResponse{
		Valid:       result.Valid,
		Email:       result.Subject,
		Deliverable: result.Deliverable,
		Disposable:  result.Disposable,
		RoleBased:   result.RoleBased,
		ReasonCode:  result.ReasonCode,
	})
}

func (h *ValidationHandler) HandlePhone(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Phone string `json:"phone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, usecase.CodeInvalidJSON, "request body must be a JSON object")
		return
	}

	result, err := h.Validator.ValidatePhone(r.Context(), input.Phone)
	if err != nil {
		writeUseCaseError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, PhoneValidationResponse{
		Valid:          result.Valid,
		Phone:          result.Subject,
		LineType:       result.LineType,
		Carrier:        result.Carrier,
		NationalFormat: result.NationalFormat,
		ReasonCode:     result.ReasonCode,
	})
}
