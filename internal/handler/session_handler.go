package handler

import (
	"net/http"

	"clinic-gatekeeper/internal/gatekeeper"
	"clinic-gatekeeper/internal/model"
	"clinic-gatekeeper/internal/service"
	"clinic-gatekeeper/pkg/apierror"
)

type SessionHandler struct {
	signInPath string
}

func NewSessionHandler(signInPath string) *SessionHandler {
	return &SessionHandler{signInPath: signInPath}
}

func (h *SessionHandler) Home(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, http.StatusOK, map[string]string{
		"service": "clinic-dashboard",
		"sign_in": h.signInPath,
	}, nil)
}

// Session reports who the gatekeeper let through and whether this response
// rotated the access token.
func (h *SessionHandler) Session(w http.ResponseWriter, r *http.Request) {
	claims, ok := gatekeeper.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apierror.Unauthorized("authentication required"))
		return
	}
	decision, _ := gatekeeper.DecisionFromContext(r.Context())

	writeSuccess(w, http.StatusOK, model.SessionInfo{
		User:    service.SessionUserFromClaims(claims),
		Claims:  claims,
		Rotated: decision.Rotated(),
	}, nil)
}

// Page stands in for dashboard page rendering on protected paths. Unknown
// public paths get a 404.
func (h *SessionHandler) Page(w http.ResponseWriter, r *http.Request) {
	claims, ok := gatekeeper.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apierror.New("NOT_FOUND", "route not found", r.URL.Path, http.StatusNotFound))
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"path": r.URL.Path,
		"user": service.SessionUserFromClaims(claims),
	}, nil)
}
