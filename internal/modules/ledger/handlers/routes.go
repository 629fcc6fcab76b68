package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all ledger routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/ledger", func(r chi.Router) {
		r.Get("/", h.HandleGetLedger)
		r.Get("/stats", h.HandleGetStats)
		r.Get("/performance", h.HandleGetPerformance)
		r.Put("/balance", h.HandleUpdateBalance)
		r.Post("/settlements", h.HandleCreateSettlement)
		r.Get("/stream", h.HandleStream)

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", h.HandleGetTransactions)
			r.Post("/", h.HandleCreateTransaction)
			r.Delete("/", h.HandleClearTransactions)
			r.Get("/{id}", h.HandleGetTransaction)
			r.Put("/{id}", h.HandleUpdateTransaction)
			r.Delete("/{id}", h.HandleDeleteTransaction)
		})
	})
}
