// Package handlers provides HTTP handlers for forex signals.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/askpay/forexsignals/internal/modules/ledger"
	"github.com/askpay/forexsignals/internal/modules/signals"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles signal HTTP requests
type Handler struct {
	service *signals.Service
	log     zerolog.Logger
}

// NewHandler creates a new signals handler
func NewHandler(service *signals.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "signals").Logger(),
	}
}

// HandleList handles GET /api/signals
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := signals.Filter{
		Result:    q.Get("result"),
		Pair:      q.Get("pair"),
		Order:     q.Get("order"),
		Direction: q.Get("direction"),
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(q.Get("offset")); err == nil {
		filter.Offset = offset
	}

	list, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"signals": list,
		"total":   total,
		"count":   len(list),
	})
}

// HandleGet handles GET /api/signals/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	signal, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, signal)
}

// HandleCreate handles POST /api/signals
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in signals.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	signal, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, signal)
}

// HandleUpdate handles PUT /api/signals/{id}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var in signals.UpdateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	signal, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, signal)
}

// HandleSetResult handles POST /api/signals/{id}/result
func (h *Handler) HandleSetResult(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Result string `json:"result"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	signal, err := h.service.SetResult(r.Context(), chi.URLParam(r, "id"), req.Result)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, signal)
}

// HandleDelete handles DELETE /api/signals/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"id": id, "deleted": true})
}

// HandleSummary handles GET /api/signals/stats/summary
func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, signals.ErrSignalNotFound):
		http.Error(w, "Signal not found", http.StatusNotFound)
	case errors.Is(err, signals.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ledger.ErrDuplicateSettlement):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		h.log.Error().Err(err).Msg("Signal operation failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
