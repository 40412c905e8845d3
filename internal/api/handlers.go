package api

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"signaldesk/internal/analysis"
	"signaldesk/internal/marketdata"
	"signaldesk/internal/signald"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps service errors to HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := errorBody{Error: err.Error()}

	switch {
	case errors.Is(err, marketdata.ErrUnknownSymbol):
		status = http.StatusNotFound
	case errors.Is(err, marketdata.ErrNoBars):
		status = http.StatusBadGateway
	case errors.Is(err, signald.ErrAnalysisDisabled):
		status = http.StatusServiceUnavailable
	case errors.Is(err, analysis.ErrInvalidCredential):
		status = http.StatusBadGateway
		body.Message = analysis.UserMessage(err)
	case errors.Is(err, analysis.ErrRateLimited):
		status = http.StatusTooManyRequests
		body.Message = analysis.UserMessage(err)
		if d, ok := analysis.RetryAfter(err); ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(d.Seconds()))))
		}
	case errors.Is(err, analysis.ErrTransient), errors.Is(err, analysis.ErrEmptyResponse):
		status = http.StatusBadGateway
		body.Message = analysis.UserMessage(err)
	}
	writeJSON(w, status, body)
}

func symbolParam(r *http.Request) string {
	return strings.ToUpper(chi.URLParam(r, "symbol"))
}

func (h *handlers) symbols(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"symbols":  h.svc.Symbols(),
		"interval": h.svc.Interval(),
	}
	if status := h.svc.MarketStatus(); status != "" {
		body["market"] = status
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *handlers) styles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, styleTable())
}

// indicators returns the cached snapshot, computing one on first request.
func (h *handlers) indicators(w http.ResponseWriter, r *http.Request) {
	symbol := symbolParam(r)
	if snap, ok := h.svc.Latest(symbol); ok {
		writeJSON(w, http.StatusOK, snap)
		return
	}
	h.refresh(w, r)
}

func (h *handlers) refresh(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.Refresh(r.Context(), symbolParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *handlers) analyze(w http.ResponseWriter, r *http.Request) {
	sig, err := h.svc.Analyze(r.Context(), symbolParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sig)
}

func (h *handlers) signals(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	sigs, err := h.svc.RecentSignals(r.Context(), symbolParam(r), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if sigs == nil {
		sigs = []analysis.Signal{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"signals": sigs})
}
