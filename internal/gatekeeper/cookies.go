package gatekeeper

import (
	"net/http"
	"time"
)

const (
	AccessCookieName  = "token"
	RefreshCookieName = "refreshToken"

	// AccessCookieMaxAge matches the access token lifetime.
	AccessCookieMaxAge = 3600
)

// Cookies builds session cookies with the attributes shared by every write:
// HttpOnly, SameSite=Strict, Path=/, and Secure in production.
type Cookies struct {
	Secure bool
}

func (c Cookies) Access(value string) *http.Cookie {
	return c.build(AccessCookieName, value, AccessCookieMaxAge)
}

func (c Cookies) Refresh(value string, ttl time.Duration) *http.Cookie {
	return c.build(RefreshCookieName, value, int(ttl/time.Second))
}

// Clear returns a cookie that deletes name on the client.
func (c Cookies) Clear(name string) *http.Cookie {
	return c.build(name, "", -1)
}

func (c Cookies) build(name string, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		MaxAge:   maxAge,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}

func cookieValue(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// withAccessCookie returns a shallow copy of r whose Cookie header carries
// value as the access token, so handlers behind the gatekeeper observe the
// rotated credential.
func withAccessCookie(r *http.Request, value string) *http.Request {
	clone := r.Clone(r.Context())
	cookies := r.Cookies()

	clone.Header.Del("Cookie")
	replaced := false
	for _, c := range cookies {
		if c.Name == AccessCookieName {
			if replaced {
				continue
			}
			c = &http.Cookie{Name: AccessCookieName, Value: value}
			replaced = true
		}
		clone.AddCookie(c)
	}
	if !replaced {
		clone.AddCookie(&http.Cookie{Name: AccessCookieName, Value: value})
	}

	return clone
}
