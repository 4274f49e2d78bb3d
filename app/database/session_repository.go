package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SessionRepository handles database operations for editing sessions
type SessionRepository struct {
	db *DB
}

func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create opens a new editing session that expires after ttl.
func (r *SessionRepository) Create(ctx context.Context, ttl time.Duration) (*Session, error) {
	now := time.Now().UTC()
	session := &Session{
		ID:        uuid.NewString(),
		Status:    "active",
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, status, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		session.ID, session.Status, formatTime(session.CreatedAt), formatTime(session.ExpiresAt))
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}

	return session, nil
}

func (r *SessionRepository) Get(ctx context.Context, id string) (*Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, status, created_at, expires_at FROM sessions WHERE id = ?`, id)

	var session Session
	var createdAt, expiresAt string
	if err := row.Scan(&session.ID, &session.Status, &createdAt, &expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	var err error
	if session.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if session.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return nil, err
	}

	return &session, nil
}

// Touch extends the session lifetime; edits keep an active session alive.
func (r *SessionRepository) Touch(ctx context.Context, id string, ttl time.Duration) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET expires_at = ? WHERE id = ?`,
		formatTime(time.Now().UTC().Add(ttl)), id)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

// GetExpired returns sessions whose lifetime ended before now.
func (r *SessionRepository) GetExpired(ctx context.Context, now time.Time) ([]Session, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, status, created_at, expires_at FROM sessions WHERE expires_at < ?`,
		formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("query expired sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var session Session
		var createdAt, expiresAt string
		if err := rows.Scan(&session.ID, &session.Status, &createdAt, &expiresAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if session.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if session.ExpiresAt, err = parseTime(expiresAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}

	return sessions, rows.Err()
}

// Delete removes a session; articles, templates and settings cascade.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *SessionRepository) GetSessionCount(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return count, nil
}
