package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"secrets_portal/internal/models"
)

type UserRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewUserRepository(db *sql.DB, dialect Dialect) *UserRepository {
	return &UserRepository{db: db, dialect: dialect}
}

// Ensure implementation of UserStore interface at compile time.
var _ UserStore = (*UserRepository)(nil)

const (
	insertUserSQL        = `INSERT INTO users (email, password, name) VALUES (?, ?, ?) RETURNING id`
	selectUserByEmailSQL = `SELECT id, email, password, name FROM users WHERE email = ?`
	selectUserByIDSQL    = `SELECT id, email, password, name FROM users WHERE id = ?`
)

// Create inserts a new user and returns it with the assigned ID.
// A duplicate email yields ErrConflict.
func (r *UserRepository) Create(ctx context.Context, name, email, passwordHash string) (*models.User, error) {
	u := &models.User{Email: email, PasswordHash: passwordHash, Name: name}
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(insertUserSQL), email, passwordHash, name).Scan(&u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("insert user %q: %w", email, ErrConflict)
		}
		return nil, fmt.Errorf("insert user %q: %w", email, err)
	}
	return u, nil
}

// FindByEmail fetches a user by email. Returns (nil, nil) if not found.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := r.scanOne(ctx, selectUserByEmailSQL, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select user %q: %w", email, err)
	}
	return u, nil
}

// FindByID fetches a user by primary key. Returns ErrNotFound if absent.
func (r *UserRepository) FindByID(ctx context.Context, id int) (*models.User, error) {
	u, err := r.scanOne(ctx, selectUserByIDSQL, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("select user %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("select user %d: %w", id, err)
	}
	return u, nil
}

func (r *UserRepository) scanOne(ctx context.Context, query string, arg any) (*models.User, error) {
	var u models.User
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(query), arg).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
