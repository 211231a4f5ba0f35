package audit

import "time"

// Event is an immutable, append-only audit log record of a session transition.
//
// Invariants:
// - Events are never updated or deleted.
// - profile is required; it scopes events the same way the credential store does.
// - tokens and passwords are never recorded.
type Event struct {
	ID      string `json:"id" db:"id"`
	Profile string `json:"profile" db:"profile"`

	Type EventType `json:"type" db:"type"`

	// Actor is empty for failed logins; Email carries the attempted login instead.
	ActorUserID string `json:"actor_user_id,omitempty" db:"actor_user_id"`
	ActorRole   string `json:"actor_role,omitempty" db:"actor_role"`
	Email       string `json:"email,omitempty" db:"email"`

	// IPAddress is the console caller, when the transition came over HTTP.
	IPAddress string `json:"ip_address,omitempty" db:"ip_address"`

	Message string `json:"message,omitempty" db:"message"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeLoginSucceeded EventType = "login_succeeded"
	EventTypeLoginFailed    EventType = "login_failed"
	EventTypeLogout         EventType = "logout"
	EventTypeSessionExpired EventType = "session_expired"
)
