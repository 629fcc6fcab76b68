package auth

import (
	"context"
	"net/http"
	"strings"
)

type contextKey struct{}

// Middleware requires a valid "Authorization: Bearer <token>" header.
// A missing token yields 401 and an invalid one 403.
func Middleware(s *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
			if header == "" || token == "" || token == header {
				http.Error(w, "Access token required", http.StatusUnauthorized)
				return
			}

			claims, err := s.ParseToken(token)
			if err != nil {
				http.Error(w, "Invalid or expired token", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKey{}, claims)))
		})
	}
}

// ClaimsFromContext returns the claims stored by Middleware
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(contextKey{}).(*Claims)
	return claims, ok
}
