package gatekeeper

import "clinic-gatekeeper/internal/token"

// Outcome is what the gatekeeper does with a request.
type Outcome int

const (
	// Pass forwards the request untouched.
	Pass Outcome = iota
	// PassWithCookie forwards the request and sets a freshly issued access
	// token cookie on the response.
	PassWithCookie
	// Redirect sends the client to the sign-in page.
	Redirect
)

func (o Outcome) String() string {
	switch o {
	case Pass:
		return "pass"
	case PassWithCookie:
		return "pass_with_cookie"
	case Redirect:
		return "redirect"
	default:
		return "unknown"
	}
}

// Trigger records why the refresh path was entered.
type Trigger string

const (
	TriggerNone           Trigger = ""
	TriggerAccessMissing  Trigger = "access_missing"
	TriggerAccessInvalid  Trigger = "access_invalid"
	TriggerAccessExpired  Trigger = "access_expired"
	TriggerAccessExpiring Trigger = "access_expiring"
)

// Reason records how the decision was reached.
type Reason string

const (
	ReasonPublic         Reason = "public"
	ReasonAccessValid    Reason = "access_valid"
	ReasonRotated        Reason = "rotated"
	ReasonRefreshMissing Reason = "refresh_missing"
	ReasonRefreshInvalid Reason = "refresh_invalid"
	ReasonRefreshExpired Reason = "refresh_expired"
	ReasonIssueFailed    Reason = "issue_failed"
)

type Decision struct {
	Outcome Outcome
	Trigger Trigger
	Reason  Reason

	// AccessToken is the newly issued token when Outcome is PassWithCookie.
	AccessToken string
	// Location is the absolute sign-in URL when Outcome is Redirect.
	Location string
	// Claims is the identity the request runs as; nil for public routes and
	// redirects.
	Claims token.Claims
}

// Rotated reports whether the response carries a new access token.
func (d Decision) Rotated() bool {
	return d.Outcome == PassWithCookie
}
