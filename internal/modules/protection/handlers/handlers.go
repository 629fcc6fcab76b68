// Package handlers provides the HTTP handler for the protection calculator.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/askpay/forexsignals/internal/modules/protection"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Handler handles protection HTTP requests
type Handler struct {
	log zerolog.Logger
}

// NewHandler creates a new protection handler
func NewHandler(log zerolog.Logger) *Handler {
	return &Handler{
		log: log.With().Str("handler", "protection").Logger(),
	}
}

// calculateRequest leaves omitted fields nil so defaults can be applied
type calculateRequest struct {
	Value         *decimal.Decimal `json:"value"`
	Multiplier    *decimal.Decimal `json:"multiplier"`
	Levels        *int             `json:"levels"`
	Currency      string           `json:"currency"`
	IncludeSpread bool             `json:"includeSpread"`
	Spread        *decimal.Decimal `json:"spread"`
}

func (req calculateRequest) input() protection.Input {
	in := protection.DefaultInput()
	if req.Value != nil {
		in.Value = *req.Value
	}
	if req.Multiplier != nil {
		in.Multiplier = *req.Multiplier
	}
	if req.Levels != nil {
		in.Levels = *req.Levels
	}
	if req.Currency != "" {
		in.Currency = req.Currency
	}
	in.IncludeSpread = req.IncludeSpread
	if req.Spread != nil {
		in.Spread = *req.Spread
	}
	return in
}

// HandleCalculate handles POST /api/protection/calculate
func (h *Handler) HandleCalculate(w http.ResponseWriter, r *http.Request) {
	var req calculateRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}

	result, err := protection.Calculate(req.input())
	if err != nil {
		if errors.Is(err, protection.ErrInvalidInput) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.log.Error().Err(err).Msg("Protection calculation failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
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
