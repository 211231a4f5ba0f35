package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxQuerier is the subset of *pgxpool.Pool the postgres store needs.
type PgxQuerier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SessionsSchema creates the table used by the postgres store.
const SessionsSchema = `
CREATE TABLE IF NOT EXISTS console_sessions (
	profile    TEXT PRIMARY KEY,
	token      TEXT NOT NULL,
	role       TEXT NOT NULL,
	user_id    TEXT NOT NULL,
	user_name  TEXT NOT NULL,
	saved_at   TIMESTAMPTZ NOT NULL
)`

type postgresStore struct {
	db      PgxQuerier
	profile string
}

// NewPostgresStore keeps one row per profile; the upsert replaces credential
// and identity in a single statement.
func NewPostgresStore(db PgxQuerier, profile string) Store {
	if profile == "" {
		profile = "default"
	}
	return &postgresStore{db: db, profile: profile}
}

// EnsureSchema creates the sessions table when it does not exist yet.
func EnsureSchema(ctx context.Context, db PgxQuerier) error {
	if _, err := db.Exec(ctx, SessionsSchema); err != nil {
		return fmt.Errorf("create console_sessions: %w", err)
	}
	return nil
}

func (s *postgresStore) Load(ctx context.Context) (Record, error) {
	const q = `
SELECT token, role, user_id, user_name, saved_at
FROM console_sessions
WHERE profile = $1
`
	var (
		r       Record
		savedAt time.Time
	)
	err := s.db.QueryRow(ctx, q, s.profile).Scan(
		&r.Credential.Token,
		&r.Credential.Role,
		&r.Identity.ID,
		&r.Identity.Name,
		&savedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNoRecord
		}
		return Record{}, fmt.Errorf("select session: %w", err)
	}
	r.Identity.Role = r.Credential.Role
	r.SavedAt = savedAt
	if !r.Valid() {
		return Record{}, ErrNoRecord
	}
	return r, nil
}

func (s *postgresStore) Save(ctx context.Context, r Record) error {
	if !r.Valid() {
		return errors.New("session: refusing to save a record without a token")
	}
	const q = `
INSERT INTO console_sessions (profile, token, role, user_id, user_name, saved_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (profile) DO UPDATE
SET token = EXCLUDED.token,
    role = EXCLUDED.role,
    user_id = EXCLUDED.user_id,
    user_name = EXCLUDED.user_name,
    saved_at = EXCLUDED.saved_at
`
	_, err := s.db.Exec(ctx, q,
		s.profile,
		r.Credential.Token,
		r.Credential.Role,
		r.Identity.ID,
		r.Identity.Name,
		r.SavedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

func (s *postgresStore) Clear(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM console_sessions WHERE profile = $1`, s.profile); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *postgresStore) Close() error { return nil }
