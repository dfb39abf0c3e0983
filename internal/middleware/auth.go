package middleware

import (
	"log/slog"
	"net/http"

	"github.com/arqcashflow/backend/internal/teams"
)

// RequireTeam returns a middleware that authenticates requests by API key
// and injects the resolved team into the request context. Every data route
// sits behind it, so handlers can rely on a team always being present.
func RequireTeam(repo teams.Repository, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := r.Header.Get("X-API-Key")
			if apiKey == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			team, err := repo.GetByAPIKey(r.Context(), apiKey)
			if err != nil {
				logger.Warn("api key rejected", "remote_addr", r.RemoteAddr)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(teams.NewContext(r.Context(), team)))
		})
	}
}
