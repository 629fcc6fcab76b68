package handlers

import (
	"github.com/askpay/forexsignals/internal/modules/auth"
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all auth routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.HandleRegister)
		r.Post("/login", h.HandleLogin)

		r.With(auth.Middleware(h.service)).Get("/profile", h.HandleProfile)
	})
}
