package event

import "time"

type Type string

const (
	TypeTokenRotated Type = "auth.token_rotated"
	TypeRedirected   Type = "auth.redirected"
	TypeSignedIn     Type = "auth.signed_in"
	TypeSignInFailed Type = "auth.sign_in_failed"
	TypeSignedOut    Type = "auth.signed_out"
)

type Event struct {
	ID         string         `json:"id"`
	Type       Type           `json:"type"`
	OccurredAt time.Time      `json:"occurred_at"`
	ActorID    string         `json:"actor_id,omitempty"`
	ActorName  string         `json:"actor_name,omitempty"`
	IP         string         `json:"ip,omitempty"`
	Path       string         `json:"path,omitempty"`
	Detail     map[string]any `json:"detail,omitempty"`
}

// Publisher is the write side of the bus. Publish must not block.
type Publisher interface {
	Publish(e Event)
}

type Bus interface {
	Publisher
	Subscribe() (<-chan Event, func()) // Returns channel and unsubscribe function
}
