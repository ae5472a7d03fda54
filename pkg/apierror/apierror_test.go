package apierror

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAPIError(t *testing.T) {
	t.Parallel()

	t.Run("formats with details", func(t *testing.T) {
		err := BadRequest("invalid JSON body", "username")
		require.Equal(t, "BAD_REQUEST: invalid JSON body (username)", err.Error())
		require.Equal(t, http.StatusBadRequest, err.HTTPStatus)
	})

	t.Run("formats without details", func(t *testing.T) {
		require.Equal(t, "UNAUTHORIZED: invalid credentials", Unauthorized("invalid credentials").Error())
	})

	t.Run("wrap keeps the cause reachable", func(t *testing.T) {
		cause := errors.New("pool closed")
		err := Wrap(cause, "INTERNAL_ERROR", "audit store unavailable", http.StatusServiceUnavailable)
		require.ErrorIs(t, err, cause)

		var apiErr *APIError
		require.ErrorAs(t, error(err), &apiErr)
		require.Equal(t, http.StatusServiceUnavailable, apiErr.HTTPStatus)
	})

	t.Run("nil receiver", func(t *testing.T) {
		var err *APIError
		require.Empty(t, err.Error())
		require.NoError(t, err.Unwrap())
	})
}
