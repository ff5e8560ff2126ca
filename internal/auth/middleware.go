// Package auth authenticates inbound requests against tenant API keys.
package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/relaymesh/llmgate/internal/httpserver"
	"github.com/relaymesh/llmgate/pkg/tenant"
)

// Middleware authenticates every request via X-API-Key or an
// "Authorization: Bearer <key>" header and stores the resolved tenant in
// the request context. Requests without a valid key are rejected with 401.
func Middleware(svc *tenant.Service, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawKey := extractKey(r)
			if rawKey == "" {
				httpserver.RespondError(w, http.StatusUnauthorized, "unauthorized", "missing API key")
				return
			}

			t, err := svc.Authenticate(r.Context(), rawKey)
			if err != nil {
				logger.Warn("authentication failed", "error", err)
				httpserver.RespondError(w, http.StatusUnauthorized, "unauthorized", "invalid API key")
				return
			}

			ctx := tenant.NewContext(r.Context(), t)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractKey(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[len("Bearer "):])
	}
	return ""
}
