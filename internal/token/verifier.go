// Package token signs and verifies the HS256 credentials carried in the
// session cookies.
package token

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-jwt/jwt/v5"
)

var ErrEmptySecret = errors.New("signing secret is empty")

// Verifier checks signature and structure of a credential. It leaves exp
// unchecked; callers compare Claims.Expired against their own clock.
type Verifier struct {
	kind   string
	secret []byte
	parser *jwt.Parser
}

// NewVerifier builds a verifier for one kind of credential ("access",
// "refresh"); kind only labels log lines.
func NewVerifier(kind string, secret []byte) (*Verifier, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("%s verifier: %w", kind, ErrEmptySecret)
	}

	return &Verifier{
		kind:   kind,
		secret: secret,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
			jwt.WithStrictDecoding(),
		),
	}, nil
}

// Verify returns the claims of raw and true when raw is a well-formed HS256
// token signed with this verifier's secret. Every failure is logged and
// reported as false.
func (v *Verifier) Verify(raw string) (Claims, bool) {
	if raw == "" {
		return nil, false
	}

	parsed, err := v.parser.ParseWithClaims(raw, jwt.MapClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return v.secret, nil
	})
	if err != nil || parsed == nil || !parsed.Valid {
		v.logFailure(err)
		return nil, false
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		v.logFailure(errors.New("unexpected claims type"))
		return nil, false
	}

	return Claims(claims), true
}

func (v *Verifier) logFailure(err error) {
	level, msg := classifyFailure(err)
	if err == nil {
		err = errors.New("token not valid")
	}
	slog.Log(context.Background(), level, msg, "kind", v.kind, "error", err)
}

// classifyFailure separates forged signatures and disallowed algorithms,
// which are logged loudly, from ordinary malformed or stale cookies.
// jwt wraps both of the former in ErrTokenSignatureInvalid; only a real
// mismatch also carries ErrSignatureInvalid.
func classifyFailure(err error) (slog.Level, string) {
	switch {
	case errors.Is(err, jwt.ErrSignatureInvalid):
		return slog.LevelWarn, "token signature mismatch"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return slog.LevelWarn, "token signing method rejected"
	default:
		return slog.LevelDebug, "token rejected"
	}
}
