package handler

import (
	"encoding/json"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"clinic-gatekeeper/internal/gatekeeper"
	"clinic-gatekeeper/internal/middleware"
	"clinic-gatekeeper/internal/model"
	"clinic-gatekeeper/internal/service"
	"clinic-gatekeeper/internal/token"
	"clinic-gatekeeper/pkg/apierror"
)

const (
	// DefaultLandingPath is where a successful sign-in lands without a
	// redirect target.
	DefaultLandingPath = "/dashboard"

	maxSignInBody = 64 << 10
)

type tokenVerifier interface {
	Verify(raw string) (token.Claims, bool)
}

type AuthHandler struct {
	service    *service.AuthService
	access     tokenVerifier
	cookies    gatekeeper.Cookies
	refreshTTL time.Duration
	signInPath string
}

func NewAuthHandler(service *service.AuthService, access tokenVerifier, cookies gatekeeper.Cookies, refreshTTL time.Duration, signInPath string) *AuthHandler {
	return &AuthHandler{
		service:    service,
		access:     access,
		cookies:    cookies,
		refreshTTL: refreshTTL,
		signInPath: signInPath,
	}
}

// SignInPage describes the form a client should post to sign in.
func (h *AuthHandler) SignInPage(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, model.SignInForm{
		Action: h.signInPath,
		Method: http.MethodPost,
		Fields: []string{"username", "password", "redirect"},
	}, nil)
}

// SignIn accepts JSON or form credentials, sets both session cookies and
// sends the browser on with 303 See Other.
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSignInBody)
	defer r.Body.Close()

	payload, err := decodeSignIn(r)
	if err != nil {
		writeError(w, err)
		return
	}

	tokens, err := h.service.SignIn(r.Context(), payload, middleware.ClientIP(r))
	if err != nil {
		writeError(w, err)
		return
	}

	middleware.AddLogAttrs(r.Context(), "user_id", tokens.User.ID)
	http.SetCookie(w, h.cookies.Access(tokens.AccessToken))
	http.SetCookie(w, h.cookies.Refresh(tokens.RefreshToken, h.refreshTTL))
	http.Redirect(w, r, localRedirect(payload.Redirect), http.StatusSeeOther)
}

// SignOut clears both cookies. The access cookie, when still valid, only
// attributes the audit event.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	var claims token.Claims
	if c, err := r.Cookie(gatekeeper.AccessCookieName); err == nil && c.Value != "" {
		if verified, ok := h.access.Verify(c.Value); ok {
			claims = verified.Identity()
		}
	}
	h.service.SignOut(claims, middleware.ClientIP(r))

	http.SetCookie(w, h.cookies.Clear(gatekeeper.AccessCookieName))
	http.SetCookie(w, h.cookies.Clear(gatekeeper.RefreshCookieName))
	http.Redirect(w, r, h.signInPath, http.StatusSeeOther)
}

func decodeSignIn(r *http.Request) (model.SignInRequest, error) {
	var payload model.SignInRequest

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			return payload, apierror.BadRequest("invalid JSON body", "")
		}
		return payload, nil
	}

	if err := r.ParseForm(); err != nil {
		return payload, apierror.BadRequest("invalid form body", "")
	}
	payload.Username = r.PostForm.Get("username")
	payload.Password = r.PostForm.Get("password")
	payload.Redirect = r.PostForm.Get("redirect")

	return payload, nil
}

// localRedirect only honors same-origin absolute paths.
func localRedirect(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.Contains(raw, `\`) {
		return DefaultLandingPath
	}

	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return DefaultLandingPath
	}

	return u.String()
}
