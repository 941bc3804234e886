package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"secrets_portal/internal/models"
)

// SessionRepository stores sessions with unix-second timestamps so the same
// statements work on SQLite and PostgreSQL.
type SessionRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewSessionRepository(db *sql.DB, dialect Dialect) *SessionRepository {
	return &SessionRepository{db: db, dialect: dialect}
}

var _ SessionStore = (*SessionRepository)(nil)

const (
	insertSessionSQL         = `INSERT INTO sessions (id, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`
	selectSessionSQL         = `SELECT id, user_id, created_at, expires_at FROM sessions WHERE id = ?`
	deleteSessionSQL         = `DELETE FROM sessions WHERE id = ?`
	deleteExpiredSessionsSQL = `DELETE FROM sessions WHERE expires_at <= ?`
)

func (r *SessionRepository) Create(ctx context.Context, s models.Session) error {
	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(insertSessionSQL),
		s.ID, s.UserID, s.CreatedAt.Unix(), s.ExpiresAt.Unix())
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert session: %w", ErrConflict)
		}
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// Get returns the session with the given id or ErrNotFound.
// Expiry is not checked here.
func (r *SessionRepository) Get(ctx context.Context, id string) (*models.Session, error) {
	var (
		s                  models.Session
		created, expiresAt int64
	)
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(selectSessionSQL), id).
		Scan(&s.ID, &s.UserID, &created, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("select session: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("select session: %w", err)
	}
	s.CreatedAt = time.Unix(created, 0).UTC()
	s.ExpiresAt = time.Unix(expiresAt, 0).UTC()
	return &s, nil
}

// Delete removes a session. Deleting a missing session is not an error.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, r.dialect.Rebind(deleteSessionSQL), id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes every session whose expiry is at or before now.
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(deleteExpiredSessionsSQL), now.Unix())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
