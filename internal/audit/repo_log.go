package audit

import (
	"context"
	"log/slog"
)

// LogRepo writes events to a structured logger. It is the default sink for the
// console and the CLI, which have no database of their own.
type LogRepo struct {
	log *slog.Logger
}

func NewLogRepo(l *slog.Logger) *LogRepo {
	if l == nil {
		l = slog.Default()
	}
	return &LogRepo{log: l}
}

func (r *LogRepo) Append(ctx context.Context, e Event) error {
	r.log.InfoContext(ctx, "audit",
		"event_id", e.ID,
		"profile", e.Profile,
		"type", string(e.Type),
		"actor_user_id", e.ActorUserID,
		"actor_role", e.ActorRole,
		"email", e.Email,
		"ip_address", e.IPAddress,
		"message", e.Message,
		"created_at", e.CreatedAt,
	)
	return nil
}
