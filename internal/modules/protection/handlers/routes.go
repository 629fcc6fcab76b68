package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the protection routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/protection", func(r chi.Router) {
		r.Post("/calculate", h.HandleCalculate)
	})
}
