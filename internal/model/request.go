package model

import "time"

type SignInRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Redirect string `json:"redirect,omitempty"`
}

type SignInForm struct {
	Action string   `json:"action"`
	Method string   `json:"method"`
	Fields []string `json:"fields"`
}

type SessionInfo struct {
	User    SessionUser    `json:"user"`
	Claims  map[string]any `json:"claims"`
	Rotated bool           `json:"rotated"`
}

type AuditEntry struct {
	ID         string         `json:"id"`
	Action     string         `json:"action"`
	OccurredAt time.Time      `json:"occurred_at"`
	ActorID    string         `json:"actor_id,omitempty"`
	ActorName  string         `json:"actor_name,omitempty"`
	IP         string         `json:"ip,omitempty"`
	Path       string         `json:"path,omitempty"`
	Detail     map[string]any `json:"detail,omitempty"`
}

type AuditQuery struct {
	Action  string
	ActorID string
	From    string
	To      string
	Page    int
	Limit   int
}

type AuditListData struct {
	Items []AuditEntry `json:"items"`
}
