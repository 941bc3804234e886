package handlers

import (
	"errors"

	"secrets_portal/internal/service"
	"secrets_portal/internal/views"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// sessionKeyID is the cookie-session key holding the server-side session id.
const sessionKeyID = "sid"

// sessionStore is the per-request view of a visitor's login session.
type sessionStore interface {
	// Create logs userID in, replacing any previous session.
	Create(userID int) error
	// Destroy ends the server-side session and forgets it in the cookie.
	Destroy() error
	// CurrentUserID returns the logged in user, ok=false for anonymous visitors.
	CurrentUserID() (userID int, ok bool, err error)

	AddFlash(message, category string) error
	Flashes() []views.Flash
}

// cookieSession keeps only the session id and flashes in the signed cookie;
// the session itself lives in the database.
type cookieSession struct {
	c      *gin.Context
	cookie sessions.Session
	svc    service.Sessions
}

func (h *Handler) session(c *gin.Context) sessionStore {
	return &cookieSession{c: c, cookie: sessions.Default(c), svc: h.services.Sessions}
}

func (s *cookieSession) id() string {
	id, _ := s.cookie.Get(sessionKeyID).(string)
	return id
}

func (s *cookieSession) Create(userID int) error {
	ctx := s.c.Request.Context()
	if old := s.id(); old != "" {
		if err := s.svc.End(ctx, old); err != nil {
			return err
		}
	}
	id, err := s.svc.Start(ctx, userID)
	if err != nil {
		return err
	}
	s.cookie.Set(sessionKeyID, id)
	return s.cookie.Save()
}

func (s *cookieSession) Destroy() error {
	id := s.id()
	s.cookie.Delete(sessionKeyID)
	if err := s.cookie.Save(); err != nil {
		return err
	}
	return s.svc.End(s.c.Request.Context(), id)
}

func (s *cookieSession) CurrentUserID() (int, bool, error) {
	id := s.id()
	if id == "" {
		return 0, false, nil
	}
	userID, err := s.svc.Resolve(s.c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			// stale reference: logged out elsewhere or expired
			s.cookie.Delete(sessionKeyID)
			return 0, false, s.cookie.Save()
		}
		return 0, false, err
	}
	return userID, true, nil
}

func (s *cookieSession) AddFlash(message, category string) error {
	s.cookie.AddFlash(views.Flash{Message: message, Category: category})
	return s.cookie.Save()
}

// Flashes pops all pending flashes.
func (s *cookieSession) Flashes() []views.Flash {
	raw := s.cookie.Flashes()
	if len(raw) == 0 {
		return nil
	}
	_ = s.cookie.Save()
	out := make([]views.Flash, 0, len(raw))
	for _, v := range raw {
		if f, ok := v.(views.Flash); ok {
			out = append(out, f)
		}
	}
	return out
}
