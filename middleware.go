package pnba

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

type accountParamKey string

const accountContextKey accountParamKey = "authenticatedAccount"

// Middleware guards HTTP handlers that require a completed authentication.
// It only understands bearer tokens in a header; there is no cookie or
// server-side session handling.
type Middleware struct {
	AuthTokenHeaderName string
	VerifyToken         func(tokenString string) (accountID string, err error)
}

// EnsureReasonableDefaults fills in defaults for unset config values.
func (m *Middleware) EnsureReasonableDefaults() {
	if m.AuthTokenHeaderName == "" {
		m.AuthTokenHeaderName = "Authorization"
	}
}

// EnsureAccount rejects requests without a valid access token and makes the
// authenticated account available to downstream handlers via the request
// context.
func (m *Middleware) EnsureAccount(next http.Handler) http.Handler {
	m.EnsureReasonableDefaults()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accountID := m.authenticatedAccount(r)
		if accountID == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), accountContextKey, accountID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AccountFromContext returns the authenticated account set by EnsureAccount,
// or "".
func AccountFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(accountContextKey).(string); ok {
		return v
	}
	return ""
}

func (m *Middleware) authenticatedAccount(r *http.Request) string {
	if m.VerifyToken == nil {
		slog.Warn("no auth token verifier found, please set one")
		return ""
	}

	for _, header := range r.Header.Values(m.AuthTokenHeaderName) {
		tokenString := strings.TrimSpace(strings.TrimPrefix(header, "Bearer"))
		if tokenString == "" {
			continue
		}
		accountID, err := m.VerifyToken(tokenString)
		if err == nil && accountID != "" {
			return accountID
		}
		if err != nil {
			slog.Warn("error verifying token", "err", err)
		}
	}

	return ""
}
