// Package gatekeeper decides, per request, whether to let it through, let it
// through with a rotated access token, or send the client to sign-in.
//
// The decision is a pure function of the request path, the two session
// cookies and the clock. Access tokens that are missing, invalid or expired
// are replaced from a valid refresh token when possible; otherwise the
// client is redirected. Access tokens close to expiry are rotated
// opportunistically, and a failure there never blocks the request.
package gatekeeper

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"clinic-gatekeeper/internal/event"
	"clinic-gatekeeper/internal/middleware"
	"clinic-gatekeeper/internal/route"
	"clinic-gatekeeper/internal/token"
)

const (
	DefaultSignInPath    = "/sign-in"
	DefaultRefreshWindow = 5 * time.Minute
)

type verifier interface {
	Verify(raw string) (token.Claims, bool)
}

type issuer interface {
	Issue(claims token.Claims) (string, error)
}

type decisionObserver interface {
	ObserveDecision(outcome string, reason string)
}

type Config struct {
	Routes  *route.Classifier
	Access  verifier
	Refresh verifier
	Issuer  issuer

	SignInPath    string
	RefreshWindow time.Duration
	Production    bool

	// Now defaults to time.Now.
	Now func() time.Time
	// Events receives rotation and redirect notices; optional.
	Events event.Publisher
	// Metrics counts every decision; optional.
	Metrics decisionObserver
}

type Engine struct {
	routes        *route.Classifier
	access        verifier
	refresh       verifier
	issuer        issuer
	signInPath    string
	refreshWindow time.Duration
	cookies       Cookies
	now           func() time.Time
	events        event.Publisher
	metrics       decisionObserver
}

func New(cfg Config) (*Engine, error) {
	if cfg.Routes == nil {
		return nil, errors.New("gatekeeper: route classifier is required")
	}
	if cfg.Access == nil || cfg.Refresh == nil {
		return nil, errors.New("gatekeeper: access and refresh verifiers are required")
	}
	if cfg.Issuer == nil {
		return nil, errors.New("gatekeeper: token issuer is required")
	}

	signIn := strings.TrimSpace(cfg.SignInPath)
	if signIn == "" {
		signIn = DefaultSignInPath
	}
	if !strings.HasPrefix(signIn, "/") {
		signIn = "/" + signIn
	}

	window := cfg.RefreshWindow
	if window <= 0 {
		window = DefaultRefreshWindow
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Engine{
		routes:        cfg.Routes,
		access:        cfg.Access,
		refresh:       cfg.Refresh,
		issuer:        cfg.Issuer,
		signInPath:    signIn,
		refreshWindow: window,
		cookies:       Cookies{Secure: cfg.Production},
		now:           now,
		events:        cfg.Events,
		metrics:       cfg.Metrics,
	}, nil
}

// Cookies exposes the cookie attributes the engine writes with, so sign-in
// and sign-out use the same ones.
func (e *Engine) Cookies() Cookies {
	return e.cookies
}

func (e *Engine) SignInPath() string {
	return e.signInPath
}

// Decide evaluates r without touching the response.
func (e *Engine) Decide(r *http.Request) Decision {
	if e.routes.IsPublic(r.URL.Path) {
		return Decision{Outcome: Pass, Reason: ReasonPublic}
	}

	now := e.now()

	raw := cookieValue(r, AccessCookieName)
	if raw == "" {
		return e.rotateOrRedirect(r, now, TriggerAccessMissing)
	}

	claims, ok := e.access.Verify(raw)
	if !ok {
		return e.rotateOrRedirect(r, now, TriggerAccessInvalid)
	}
	if claims.Expired(now) {
		return e.rotateOrRedirect(r, now, TriggerAccessExpired)
	}

	if claims.Remaining(now) < e.refreshWindow {
		rotated, reason := e.rotate(r, now)
		if reason == ReasonRotated {
			rotated.Trigger = TriggerAccessExpiring
			return rotated
		}
		slog.Debug("proactive refresh skipped", "path", r.URL.Path, "reason", reason)
	}

	return Decision{Outcome: Pass, Reason: ReasonAccessValid, Claims: claims.Identity()}
}

func (e *Engine) rotateOrRedirect(r *http.Request, now time.Time, trigger Trigger) Decision {
	d, reason := e.rotate(r, now)
	d.Trigger = trigger
	if reason == ReasonRotated {
		return d
	}

	return Decision{
		Outcome:  Redirect,
		Trigger:  trigger,
		Reason:   reason,
		Location: e.signInURL(r),
	}
}

// rotate mints a new access token from the refresh cookie. The returned
// reason is ReasonRotated only when the refresh token verified and had not
// expired at now.
func (e *Engine) rotate(r *http.Request, now time.Time) (Decision, Reason) {
	raw := cookieValue(r, RefreshCookieName)
	if raw == "" {
		return Decision{}, ReasonRefreshMissing
	}

	claims, ok := e.refresh.Verify(raw)
	if !ok {
		return Decision{}, ReasonRefreshInvalid
	}
	if claims.Expired(now) {
		return Decision{}, ReasonRefreshExpired
	}

	identity := claims.Identity()
	issued, err := e.issuer.Issue(identity)
	if err != nil {
		slog.Error("access token issue failed", "error", err)
		return Decision{}, ReasonIssueFailed
	}

	return Decision{
		Outcome:     PassWithCookie,
		Reason:      ReasonRotated,
		AccessToken: issued,
		Claims:      identity,
	}, ReasonRotated
}

// signInURL resolves the sign-in path against the request's own base URL.
func (e *Engine) signInURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := strings.TrimSpace(r.Header.Get("X-Forwarded-Proto")); proto == "http" || proto == "https" {
		scheme = proto
	}

	host := r.Host
	if host == "" {
		host = r.URL.Host
	}
	if host == "" {
		return e.signInPath
	}

	return (&url.URL{Scheme: scheme, Host: host, Path: e.signInPath}).String()
}

// Handler applies the decision: redirects, or sets the rotated cookie and
// forwards the request with the caller's identity in its context.
func (e *Engine) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d := e.Decide(r)
		middleware.AddLogAttrs(r.Context(), "auth", d.Outcome.String(), "auth_reason", string(d.Reason))
		if e.metrics != nil {
			e.metrics.ObserveDecision(d.Outcome.String(), string(d.Reason))
		}

		switch d.Outcome {
		case Redirect:
			e.publish(r, d)
			http.Redirect(w, r, d.Location, http.StatusTemporaryRedirect)
			return
		case PassWithCookie:
			e.publish(r, d)
			http.SetCookie(w, e.cookies.Access(d.AccessToken))
			r = withAccessCookie(r, d.AccessToken)
		}

		ctx := context.WithValue(r.Context(), decisionContextKey{}, d)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (e *Engine) publish(r *http.Request, d Decision) {
	if e.events == nil {
		return
	}

	ev := event.Event{
		Type: event.TypeRedirected,
		IP:   middleware.ClientIP(r),
		Path: r.URL.Path,
		Detail: map[string]any{
			"trigger": string(d.Trigger),
			"reason":  string(d.Reason),
		},
	}
	if d.Outcome == PassWithCookie {
		ev.Type = event.TypeTokenRotated
		ev.ActorID = d.Claims.Subject()
		ev.ActorName = d.Claims.String("username")
	}

	e.events.Publish(ev)
}

type decisionContextKey struct{}

// DecisionFromContext returns the decision the gatekeeper made for the
// current request.
func DecisionFromContext(ctx context.Context) (Decision, bool) {
	d, ok := ctx.Value(decisionContextKey{}).(Decision)
	return d, ok
}

// ClaimsFromContext returns the identity of an authenticated request.
func ClaimsFromContext(ctx context.Context) (token.Claims, bool) {
	d, ok := DecisionFromContext(ctx)
	if !ok || d.Claims == nil {
		return nil, false
	}
	return d.Claims, true
}
