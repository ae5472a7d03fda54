package token

import (
	"log/slog"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var (
	accessSecret  = []byte("access-secret-for-tests")
	refreshSecret = []byte("refresh-secret-for-tests")
)

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func mustIssuer(t *testing.T, secret []byte, ttl time.Duration, now time.Time) *Issuer {
	t.Helper()
	issuer, err := NewIssuer(secret, ttl, WithClock(fixedClock(now)))
	require.NoError(t, err)
	return issuer
}

func mustVerifier(t *testing.T, secret []byte) *Verifier {
	t.Helper()
	verifier, err := NewVerifier("access", secret)
	require.NoError(t, err)
	return verifier
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	t.Parallel()

	now := time.Now().Truncate(time.Second)
	issuer := mustIssuer(t, accessSecret, time.Hour, now)
	verifier := mustVerifier(t, accessSecret)

	original := Claims{
		"sub":      "staff-42",
		"username": "dr.house",
		"role":     "doctor",
		"exp":      now.Add(-24 * time.Hour).Unix(),
	}

	raw, err := issuer.Issue(original)
	require.NoError(t, err)

	claims, ok := verifier.Verify(raw)
	require.True(t, ok)

	require.Equal(t, "staff-42", claims.Subject())
	require.Equal(t, "dr.house", claims.String("username"))
	require.Equal(t, "doctor", claims.String("role"))

	exp, ok := claims.ExpiresAt()
	require.True(t, ok)
	require.Equal(t, now.Add(time.Hour).Unix(), exp.Unix())

	iat, ok := claims.IssuedAt()
	require.True(t, ok)
	require.Equal(t, now.Unix(), iat.Unix())

	// The caller's map keeps its own exp.
	require.Equal(t, now.Add(-24*time.Hour).Unix(), original["exp"])
}

func TestVerify_RejectsTampering(t *testing.T) {
	t.Parallel()

	issuer := mustIssuer(t, accessSecret, time.Hour, time.Now())
	verifier := mustVerifier(t, accessSecret)

	raw, err := issuer.Issue(Claims{"sub": "staff-1"})
	require.NoError(t, err)
	_, ok := verifier.Verify(raw)
	require.True(t, ok)

	for i := 0; i < len(raw); i++ {
		for _, bit := range []byte{0x01, 0x02, 0x04} {
			tampered := []byte(raw)
			tampered[i] ^= bit
			_, ok := verifier.Verify(string(tampered))
			require.Falsef(t, ok, "flipping bit %#x at byte %d was accepted", bit, i)
		}
	}
}

func TestVerify_Failures(t *testing.T) {
	t.Parallel()

	verifier := mustVerifier(t, accessSecret)
	now := time.Now()

	t.Run("empty token", func(t *testing.T) {
		_, ok := verifier.Verify("")
		require.False(t, ok)
	})

	t.Run("garbage", func(t *testing.T) {
		_, ok := verifier.Verify("not-a-jwt")
		require.False(t, ok)
	})

	t.Run("wrong secret", func(t *testing.T) {
		raw, err := mustIssuer(t, refreshSecret, time.Hour, now).Issue(Claims{"sub": "x"})
		require.NoError(t, err)
		_, ok := verifier.Verify(raw)
		require.False(t, ok)
	})

	t.Run("alg none", func(t *testing.T) {
		raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "x"}).
			SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, ok := verifier.Verify(raw)
		require.False(t, ok)
	})

	t.Run("other hmac algorithm", func(t *testing.T) {
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{"sub": "x"}).
			SignedString(accessSecret)
		require.NoError(t, err)
		_, ok := verifier.Verify(raw)
		require.False(t, ok)
	})
}

func TestClassifyFailure(t *testing.T) {
	t.Parallel()

	verifier := mustVerifier(t, accessSecret)
	parseErr := func(raw string) error {
		_, err := verifier.parser.ParseWithClaims(raw, jwt.MapClaims{}, func(*jwt.Token) (interface{}, error) {
			return accessSecret, nil
		})
		require.Error(t, err)
		return err
	}

	forged, err := mustIssuer(t, refreshSecret, time.Hour, time.Now()).Issue(Claims{"sub": "x"})
	require.NoError(t, err)
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "x"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{"sub": "x"}).
		SignedString(accessSecret)
	require.NoError(t, err)

	cases := []struct {
		name  string
		err   error
		level slog.Level
		msg   string
	}{
		{"wrong secret", parseErr(forged), slog.LevelWarn, "token signature mismatch"},
		{"alg none", parseErr(unsigned), slog.LevelWarn, "token signing method rejected"},
		{"other hmac algorithm", parseErr(hs512), slog.LevelWarn, "token signing method rejected"},
		{"garbage", parseErr("not-a-jwt"), slog.LevelDebug, "token rejected"},
		{"no error", nil, slog.LevelDebug, "token rejected"},
	}

	for _, tc := range cases {
		level, msg := classifyFailure(tc.err)
		require.Equal(t, tc.level, level, tc.name)
		require.Equal(t, tc.msg, msg, tc.name)
	}
}

func TestVerify_DoesNotCheckExpiry(t *testing.T) {
	t.Parallel()

	past := time.Now().Add(-48 * time.Hour)
	raw, err := mustIssuer(t, accessSecret, time.Hour, past).Issue(Claims{"sub": "staff-1"})
	require.NoError(t, err)

	claims, ok := mustVerifier(t, accessSecret).Verify(raw)
	require.True(t, ok, "expired but well-signed tokens must verify")
	require.True(t, claims.Expired(time.Now()))
}

func TestClaims_Expiry(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_700_000_000, 0)

	t.Run("future exp", func(t *testing.T) {
		c := Claims{"exp": float64(now.Add(time.Minute).Unix())}
		require.False(t, c.Expired(now))
		require.Equal(t, time.Minute, c.Remaining(now))
	})

	t.Run("exp equal to now is still valid", func(t *testing.T) {
		c := Claims{"exp": float64(now.Unix())}
		require.False(t, c.Expired(now))
	})

	t.Run("past exp", func(t *testing.T) {
		c := Claims{"exp": float64(now.Add(-10 * time.Second).Unix())}
		require.True(t, c.Expired(now))
	})

	t.Run("missing exp", func(t *testing.T) {
		c := Claims{"sub": "x"}
		require.True(t, c.Expired(now))
		require.Zero(t, c.Remaining(now))
	})

	t.Run("non-numeric exp", func(t *testing.T) {
		c := Claims{"exp": "tomorrow"}
		require.True(t, c.Expired(now))
	})
}

func TestClaims_Identity(t *testing.T) {
	t.Parallel()

	c := Claims{"sub": "a", "exp": 1, "iat": 2, "nbf": 3}
	id := c.Identity()
	require.Equal(t, Claims{"sub": "a"}, id)
	require.Len(t, c, 4)
}

func TestConstructors(t *testing.T) {
	t.Parallel()

	_, err := NewVerifier("access", nil)
	require.ErrorIs(t, err, ErrEmptySecret)

	_, err = NewIssuer(nil, time.Hour)
	require.ErrorIs(t, err, ErrEmptySecret)

	_, err = NewIssuer(accessSecret, 0)
	require.Error(t, err)
}
