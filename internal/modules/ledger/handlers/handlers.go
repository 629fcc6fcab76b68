// Package handlers provides HTTP handlers for ledger operations.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/askpay/forexsignals/internal/events"
	"github.com/askpay/forexsignals/internal/modules/ledger"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// StoredSignals looks up signals kept by the signals module
type StoredSignals interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// Handler handles ledger HTTP requests
type Handler struct {
	ledger  *ledger.Ledger
	bus     *events.Bus
	signals StoredSignals
	log     zerolog.Logger
}

// NewHandler creates a new ledger handler. signals may be nil.
func NewHandler(l *ledger.Ledger, bus *events.Bus, signals StoredSignals, log zerolog.Logger) *Handler {
	return &Handler{
		ledger:  l,
		bus:     bus,
		signals: signals,
		log:     log.With().Str("handler", "ledger").Logger(),
	}
}

// transactionRequest is the body of POST/PUT transaction requests
type transactionRequest struct {
	Amount      json.Number `json:"amount"`
	Type        string      `json:"type"`
	Category    string      `json:"category"`
	Description string      `json:"description"`
	Date        *time.Time  `json:"date"`
}

func (req transactionRequest) toInput() (ledger.TransactionInput, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount.String()))
	if err != nil {
		return ledger.TransactionInput{}, ledger.ErrInvalidAmount
	}
	in := ledger.TransactionInput{
		Amount:      amount,
		Type:        ledger.TransactionType(strings.ToLower(req.Type)),
		Category:    req.Category,
		Description: req.Description,
	}
	if req.Date != nil {
		in.Date = *req.Date
	}
	return in, nil
}

// settlementRequest is the body of POST /api/ledger/settlements
type settlementRequest struct {
	Signal struct {
		ID            string      `json:"id"`
		Pair          string      `json:"pair"`
		Direction     string      `json:"direction"`
		EntryValue    json.Number `json:"entryValue"`
		PayoutPercent json.Number `json:"payoutPercent"`
	} `json:"signal"`
	Result string `json:"result"`
}

// HandleGetLedger handles GET /api/ledger
func (h *Handler) HandleGetLedger(w http.ResponseWriter, r *http.Request) {
	stats := h.ledger.Stats()
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"balance":           stats.Balance,
		"balance_display":   h.ledger.Format(stats.Balance),
		"initial_balance":   h.ledger.InitialBalance(),
		"drift":             h.ledger.Drift(),
		"stats":             stats,
		"transaction_count": stats.TotalTransactions,
	})
}

// HandleGetTransactions handles GET /api/ledger/transactions
func (h *Handler) HandleGetTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ledger.Filter{
		Type:      ledger.TransactionType(strings.ToLower(q.Get("type"))),
		Category:  q.Get("category"),
		Search:    q.Get("search"),
		SortBy:    q.Get("sort"),
		Ascending: strings.EqualFold(q.Get("order"), "asc"),
	}

	txs := h.ledger.Transactions(filter)
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": txs,
		"count":        len(txs),
	})
}

// HandleGetTransaction handles GET /api/ledger/transactions/{id}
func (h *Handler) HandleGetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := h.ledger.Transaction(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, tx)
}

// HandleCreateTransaction handles POST /api/ledger/transactions
func (h *Handler) HandleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decodeTransaction(w, r)
	if !ok {
		return
	}

	tx, err := h.ledger.AddTransaction(in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, tx)
}

// HandleUpdateTransaction handles PUT /api/ledger/transactions/{id}
func (h *Handler) HandleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decodeTransaction(w, r)
	if !ok {
		return
	}

	tx, err := h.ledger.UpdateTransaction(chi.URLParam(r, "id"), in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, tx)
}

// HandleDeleteTransaction handles DELETE /api/ledger/transactions/{id}
func (h *Handler) HandleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := h.ledger.DeleteTransaction(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"deleted": tx,
		"balance": h.ledger.Balance(),
	})
}

// HandleClearTransactions handles DELETE /api/ledger/transactions
func (h *Handler) HandleClearTransactions(w http.ResponseWriter, r *http.Request) {
	removed := h.ledger.Clear()
	h.log.Info().Int("removed", removed).Msg("Ledger cleared")
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"removed": removed,
		"balance": h.ledger.Balance(),
	})
}

// HandleUpdateBalance handles PUT /api/ledger/balance
func (h *Handler) HandleUpdateBalance(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Balance json.Number `json:"balance"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	value, err := req.Balance.Float64()
	if err != nil {
		value = math.NaN()
	}
	if err := h.ledger.UpdateBalance(value); err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"balance": h.ledger.Balance(),
		"drift":   h.ledger.Drift(),
	})
}

// HandleGetStats handles GET /api/ledger/stats
func (h *Handler) HandleGetStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.ledger.Stats())
}

// HandleGetPerformance handles GET /api/ledger/performance
func (h *Handler) HandleGetPerformance(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.ledger.Performance())
}

// HandleCreateSettlement handles POST /api/ledger/settlements.
// It settles signals that are not stored by the signals module; stored
// signals are settled through POST /api/signals/{id}/result so the signal
// row and the ledger stay in step.
func (h *Handler) HandleCreateSettlement(w http.ResponseWriter, r *http.Request) {
	var req settlementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if h.signals != nil && req.Signal.ID != "" {
		stored, err := h.signals.Exists(r.Context(), req.Signal.ID)
		if err != nil {
			h.log.Error().Err(err).Str("signal_id", req.Signal.ID).Msg("Failed to look up signal")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		if stored {
			http.Error(w, "signal is stored; set its result with POST /api/signals/{id}/result", http.StatusConflict)
			return
		}
	}

	// Unparsable numbers become zero and are rejected by the ledger
	entry, _ := decimal.NewFromString(req.Signal.EntryValue.String())
	payout, _ := decimal.NewFromString(req.Signal.PayoutPercent.String())

	tx, err := h.ledger.AddTradingResult(ledger.Signal{
		ID:            req.Signal.ID,
		Pair:          req.Signal.Pair,
		Direction:     req.Signal.Direction,
		EntryValue:    entry,
		PayoutPercent: payout,
	}, ledger.Outcome(strings.ToLower(req.Result)))
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"transaction": tx,
		"balance":     h.ledger.Balance(),
	})
}

func (h *Handler) decodeTransaction(w http.ResponseWriter, r *http.Request) (ledger.TransactionInput, bool) {
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return ledger.TransactionInput{}, false
	}
	in, err := req.toInput()
	if err != nil {
		h.writeError(w, err)
		return ledger.TransactionInput{}, false
	}
	return in, true
}

// writeError maps ledger errors to HTTP status codes
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrTransactionNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ledger.ErrDuplicateSettlement):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrInvalidType),
		errors.Is(err, ledger.ErrInvalidBalance),
		errors.Is(err, ledger.ErrInvalidSignal),
		errors.Is(err, ledger.ErrInvalidOutcome),
		errors.Is(err, ledger.ErrSettlementTransaction):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.log.Error().Err(err).Msg("Ledger operation failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// writeJSON writes the data/metadata envelope
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
