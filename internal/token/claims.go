package token

import (
	"maps"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the decoded payload of a credential: identity fields plus the
// registered exp/iat claims.
type Claims map[string]any

const (
	claimExpiresAt = "exp"
	claimIssuedAt  = "iat"
)

// Clone returns a shallow copy so callers can edit claims without touching
// the verified original.
func (c Claims) Clone() Claims {
	if c == nil {
		return Claims{}
	}
	return maps.Clone(c)
}

// ExpiresAt returns the exp claim. ok is false when the claim is absent or
// not a number.
func (c Claims) ExpiresAt() (time.Time, bool) {
	exp, err := jwt.MapClaims(c).GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// IssuedAt returns the iat claim.
func (c Claims) IssuedAt() (time.Time, bool) {
	iat, err := jwt.MapClaims(c).GetIssuedAt()
	if err != nil || iat == nil {
		return time.Time{}, false
	}
	return iat.Time, true
}

// Expired reports whether exp lies strictly before now. A credential
// without a usable exp cannot be shown to be fresh and counts as expired.
func (c Claims) Expired(now time.Time) bool {
	exp, ok := c.ExpiresAt()
	if !ok {
		return true
	}
	return exp.Before(now)
}

// Remaining is the time left until exp, zero or negative once expired.
func (c Claims) Remaining(now time.Time) time.Duration {
	exp, ok := c.ExpiresAt()
	if !ok {
		return 0
	}
	return exp.Sub(now)
}

// Subject returns the sub claim, or "" when absent.
func (c Claims) Subject() string {
	sub, _ := c["sub"].(string)
	return sub
}

// String returns a string-valued claim, or "" when absent.
func (c Claims) String(key string) string {
	v, _ := c[key].(string)
	return v
}

// Identity returns the payload without the registered timing claims.
func (c Claims) Identity() Claims {
	out := c.Clone()
	delete(out, claimExpiresAt)
	delete(out, claimIssuedAt)
	delete(out, "nbf")
	return out
}
