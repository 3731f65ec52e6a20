package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/conversn-io/seniorsimple-sub006/internal/entity"
	"github.com/conversn-io/seniorsimple-sub006/internal/usecase"
)

const maxLeadBodyBytes = 1 << 20

type LeadCapturer interface {
	Execute(ctx context.Context, raw usecase.RawLead, requested []string) (*usecase.CaptureLeadOutput, error)
}

type RetargetService interface {
	List(ctx context.Context, funnelType string, limit int) (*usecase.RetargetOutput, error)
	MarkConverted(ctx context.Context, sessionID string) (int64, error)
}

type LeadHandler struct {
	Capturer LeadCapturer
	Retarget RetargetService
}

func NewLeadHandler(capturer LeadCapturer, retarget RetargetService) *LeadHandler {
	return &LeadHandler{Capturer: capturer, Retarget: retarget}
}

// Capture answers 200 when every destination confirmed and 202 when the lead
// was accepted but some destination is still pending or failed.
func (h *LeadHandler) Capture(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxLeadBodyBytes)

	var raw usecase.RawLead
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil || raw == nil {
		writeErrorResponse(w, http.StatusBadRequest, usecase.CodeInvalidJSON, "request body must be a JSON object")
		return
	}

	requested, ok := destinationsParam(raw["destinations"])
	if !ok {
		writeErrorResponse(w, http.StatusBadRequest, usecase.CodeInvalidDestination, "destinations must be a list of destination names")
		return
	}
	delete(raw, "destinations")

	out, err := h.Capturer.Execute(r.Context(), raw, requested)
	if err != nil {
		writeUseCaseError(w, r, err)
		return
	}

	status := http.StatusOK
	if out.Status == entity.CaptureQueued {
		status = http.StatusAccepted
	}
	writeJSON(w, status, out)
}

func destinationsParam(v any) ([]string, bool) {
	if v == nil {
		return nil, true
	}
	list, ok := v.([]any)
	if !ok {
		return nil, false
	}
	names := make([]string, 0, len(list))
	for _, item := range list {
		name, ok := item.(string)
		if !ok {
			return nil, false
		}
		names = append(names, name)
	}
	return names, true
}

func (h *LeadHandler) ListRetarget(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	out, err := h.Retarget.List(r.Context(), r.URL.Query().Get("funnelType"), limit)
	if err != nil {
		writeUseCaseError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		*usecase.RetargetOutput
	}{true, out})
}

func (h *LeadHandler) MarkConverted(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")

	n, err := h.Retarget.MarkConverted(r.Context(), sessionID)
	if err != nil {
		writeUseCaseError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"sessionId": sessionID,
		"converted": n,
	})
}
