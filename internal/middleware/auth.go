package middleware

import (
	"context"
	"net/http"
	"time"

	"clinic-gatekeeper/internal/token"
)

type tokenVerifier interface {
	Verify(raw string) (token.Claims, bool)
}

type contextKey string

const sessionClaimsContextKey contextKey = "session_claims"

// SessionAuth guards JSON endpoints that sit on public (API) routes but
// still need a signed-in caller. It reads the access cookie directly and
// answers 401 instead of redirecting.
type SessionAuth struct {
	verifier   tokenVerifier
	cookieName string
	now        func() time.Time
}

func NewSessionAuth(verifier tokenVerifier, cookieName string) *SessionAuth {
	return &SessionAuth{verifier: verifier, cookieName: cookieName, now: time.Now}
}

func (m *SessionAuth) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(m.cookieName)
		if err != nil || cookie.Value == "" {
			writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "session cookie missing")
			return
		}

		claims, ok := m.verifier.Verify(cookie.Value)
		if !ok || claims.Expired(m.now()) {
			writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired session")
			return
		}

		ctx := context.WithValue(r.Context(), sessionClaimsContextKey, claims.Identity())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func SessionClaimsFromContext(ctx context.Context) (token.Claims, bool) {
	claims, ok := ctx.Value(sessionClaimsContextKey).(token.Claims)
	return claims, ok
}

