package service

import (
	"context"
	"errors"
	"time"

	"secrets_portal/internal/logger"
	"secrets_portal/internal/models"
	"secrets_portal/internal/repository"

	"github.com/google/uuid"
)

const defaultSessionTTL = 24 * time.Hour

// ErrSessionNotFound means the cookie points at no live session.
var ErrSessionNotFound = errors.New("session not found")

// SessionService issues and resolves server-side sessions. Ending a session
// deletes its row, so a replayed cookie stops working after logout.
type SessionService struct {
	repo repository.SessionStore
	ttl  time.Duration
	log  *logger.Logger

	now   func() time.Time
	newID func() string
}

func NewSessionService(repo repository.SessionStore, ttl time.Duration, log *logger.Logger) *SessionService {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &SessionService{
		repo:  repo,
		ttl:   ttl,
		log:   log,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Start creates a session for userID and returns its id.
func (s *SessionService) Start(ctx context.Context, userID int) (string, error) {
	now := s.now().UTC()
	sess := models.Session{
		ID:        s.newID(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return "", err
	}
	return sess.ID, nil
}

// Resolve returns the user id of a live session. Expired sessions are
// deleted and reported as ErrSessionNotFound.
func (s *SessionService) Resolve(ctx context.Context, id string) (int, error) {
	if id == "" {
		return 0, ErrSessionNotFound
	}
	sess, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, ErrSessionNotFound
		}
		return 0, err
	}
	if sess.Expired(s.now()) {
		if err := s.repo.Delete(ctx, id); err != nil && s.log != nil {
			s.log.Warnw("session_delete_expired_failed", "err", err)
		}
		return 0, ErrSessionNotFound
	}
	return sess.UserID, nil
}

// End deletes the session. Unknown ids are ignored.
func (s *SessionService) End(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return s.repo.Delete(ctx, id)
}

// Purge deletes every expired session and returns how many were removed.
func (s *SessionService) Purge(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpired(ctx, s.now())
}

// Run purges expired sessions at the given interval until ctx is canceled.
func (s *SessionService) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := s.Purge(ctx)
			if s.log == nil {
				continue
			}
			if err != nil {
				s.log.Errorw("session_purge_failed", "err", err)
				continue
			}
			if n > 0 {
				s.log.Debugw("session_purge", "removed", n)
			}
		}
	}
}
