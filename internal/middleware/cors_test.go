package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCORS(t *testing.T) {
	t.Parallel()

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	request := func(origin string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/api/audit", nil)
		req.Header.Set("Origin", origin)
		return req
	}

	t.Run("listed origin is echoed with credentials", func(t *testing.T) {
		rec := httptest.NewRecorder()
		CORS([]string{"https://dashboard.clinic.example"})(next).ServeHTTP(rec, request("https://dashboard.clinic.example"))

		assert.Equal(t, "https://dashboard.clinic.example", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("unlisted origin gets no grant", func(t *testing.T) {
		rec := httptest.NewRecorder()
		CORS([]string{"https://dashboard.clinic.example"})(next).ServeHTTP(rec, request("https://evil.example"))

		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("no origins means same-origin only", func(t *testing.T) {
		rec := httptest.NewRecorder()
		CORS(nil)(next).ServeHTTP(rec, request("https://evil.example"))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
	})
}
