package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic-gatekeeper/internal/model"
	"clinic-gatekeeper/internal/token"
)

type stubVerifier map[string]token.Claims

func (s stubVerifier) Verify(raw string) (token.Claims, bool) {
	claims, ok := s[raw]
	return claims, ok
}

func TestSessionAuth_RequireSession(t *testing.T) {
	now := time.Unix(1_760_000_000, 0)
	verifier := stubVerifier{
		"fresh": {"sub": "staff-1", "username": "dr.grey", "exp": float64(now.Add(time.Hour).Unix())},
		"stale": {"sub": "staff-1", "exp": float64(now.Add(-time.Minute).Unix())},
	}

	auth := NewSessionAuth(verifier, "token")
	auth.now = func() time.Time { return now }

	var seen token.Claims
	handler := auth.RequireSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = SessionClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	cases := map[string]struct {
		cookie string
		status int
	}{
		"no cookie":     {status: http.StatusUnauthorized},
		"unknown token": {cookie: "forged", status: http.StatusUnauthorized},
		"expired token": {cookie: "stale", status: http.StatusUnauthorized},
		"valid token":   {cookie: "fresh", status: http.StatusOK},
	}

	for name, tc := range cases {
		seen = nil
		req := httptest.NewRequest(http.MethodGet, "/api/audit", nil)
		if tc.cookie != "" {
			req.AddCookie(&http.Cookie{Name: "token", Value: tc.cookie})
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, tc.status, rec.Code, name)
		if tc.status == http.StatusUnauthorized {
			var body model.APIResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), name)
			assert.False(t, body.Success)
			require.NotNil(t, body.Error)
			assert.Equal(t, "UNAUTHORIZED", body.Error.Code)
			assert.Nil(t, seen, name)
			continue
		}

		assert.Equal(t, "staff-1", seen.Subject())
		assert.NotContains(t, seen, "exp")
	}
}
