package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"secrets_portal/internal/models"
)

// Storage-level errors. Callers match them with errors.Is.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

// UserStore persists users. Email uniqueness is enforced by the schema,
// so Create reports ErrConflict even when a pre-check raced.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id int) (*models.User, error)
	Create(ctx context.Context, name, email, passwordHash string) (*models.User, error)
}

// SessionStore persists server-side login sessions.
type SessionStore interface {
	Create(ctx context.Context, s models.Session) error
	Get(ctx context.Context, id string) (*models.Session, error)
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type Repository struct {
	Users    UserStore
	Sessions SessionStore
}

func NewRepository(db *sql.DB, dialect Dialect) *Repository {
	return &Repository{
		Users:    NewUserRepository(db, dialect),
		Sessions: NewSessionRepository(db, dialect),
	}
}
