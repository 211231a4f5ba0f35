package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service records session transitions.
// Callers treat audit logging as best-effort.
type Service struct {
	repo    Repository
	profile string
	clock   func() time.Time
}

func NewService(repo Repository, profile string) *Service {
	return &Service{repo: repo, profile: profile, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s == nil || s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.Profile == "" {
		e.Profile = s.profile
	}
	if e.Profile == "" || e.Type == "" {
		return ErrInvalidEvent
	}

	now := s.clock().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	if e.IPAddress == "" {
		e.IPAddress = ClientIPFromContext(ctx)
	}
	return s.repo.Append(ctx, e)
}

// LoginSucceeded records a successful login for userID.
func (s *Service) LoginSucceeded(ctx context.Context, userID, role, email string) error {
	return s.Append(ctx, Event{
		Type:        EventTypeLoginSucceeded,
		ActorUserID: userID,
		ActorRole:   role,
		Email:       email,
	})
}

// LoginFailed records a rejected login attempt; message is the user-facing reason.
func (s *Service) LoginFailed(ctx context.Context, email, message string) error {
	return s.Append(ctx, Event{
		Type:    EventTypeLoginFailed,
		Email:   email,
		Message: message,
	})
}

func (s *Service) Logout(ctx context.Context, userID, role string) error {
	return s.Append(ctx, Event{
		Type:        EventTypeLogout,
		ActorUserID: userID,
		ActorRole:   role,
	})
}

// SessionExpired records a forced logout caused by a 401/403 from the backend.
func (s *Service) SessionExpired(ctx context.Context, userID, role string, status int) error {
	msg := "backend rejected credential"
	if status > 0 {
		msg = "backend responded " + statusText(status)
	}
	return s.Append(ctx, Event{
		Type:        EventTypeSessionExpired,
		ActorUserID: userID,
		ActorRole:   role,
		Message:     msg,
	})
}

func statusText(status int) string {
	switch status {
	case 401:
		return "401 unauthorized"
	case 403:
		return "403 forbidden"
	default:
		return "unexpected status"
	}
}
