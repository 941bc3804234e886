package service

import (
	"context"
	"time"

	"secrets_portal/internal/logger"
	"secrets_portal/internal/models"
	"secrets_portal/internal/repository"
)

// Authorization covers account registration, credential checks and the
// bearer tokens used by the JSON API.
type Authorization interface {
	Register(ctx context.Context, in RegisterInput) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.User, error)
	UserByID(ctx context.Context, id int) (*models.User, error)
	GenerateToken(ctx context.Context, email, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Sessions manages the server-side records behind login cookies.
type Sessions interface {
	Start(ctx context.Context, userID int) (string, error)
	Resolve(ctx context.Context, id string) (int, error)
	End(ctx context.Context, id string) error
}

// Sweeper runs the background loop that purges expired sessions.
// Stop via context cancellation in main() for graceful shutdown.
type Sweeper interface {
	Run(ctx context.Context, interval time.Duration)
}

// Service aggregates all sub-services.
type Service struct {
	Authorization
	Sessions
	Sweeper
}

// Options carries the tunables the services read from configuration.
type Options struct {
	BcryptCost int
	SigningKey []byte
	TokenTTL   time.Duration
	SessionTTL time.Duration
}

func NewService(repos *repository.Repository, opts Options, log *logger.Logger) *Service {
	sessions := NewSessionService(repos.Sessions, opts.SessionTTL, log)
	return &Service{
		Authorization: NewAuthService(repos.Users, opts),
		Sessions:      sessions,
		Sweeper:       sessions,
	}
}
