package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultAccessTTL is the lifetime of every access token minted by the
// gatekeeper.
const DefaultAccessTTL = time.Hour

type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

type IssuerOption func(*Issuer)

// WithClock overrides time.Now; used by tests.
func WithClock(now func() time.Time) IssuerOption {
	return func(i *Issuer) {
		if now != nil {
			i.now = now
		}
	}
}

func NewIssuer(secret []byte, ttl time.Duration, opts ...IssuerOption) (*Issuer, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("issuer: %w", ErrEmptySecret)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("issuer: ttl must be positive, got %s", ttl)
	}

	i := &Issuer{secret: secret, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(i)
	}

	return i, nil
}

func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Issue signs a copy of claims with a fresh iat and exp = iat + TTL. Any exp
// carried by the input is dropped first so the new window always wins.
func (i *Issuer) Issue(claims Claims) (string, error) {
	payload := jwt.MapClaims(claims.Clone())
	delete(payload, claimExpiresAt)

	now := i.now()
	payload[claimIssuedAt] = now.Unix()
	payload[claimExpiresAt] = now.Add(i.ttl).Unix()

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, payload).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}
