package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"secrets_portal/internal/models"
	"secrets_portal/internal/service"
	"secrets_portal/internal/views"

	"github.com/gin-gonic/gin"
)

const (
	ctxUserKey   = "currentUser"
	ctxUserIDKey = "userId"

	msgLoginRequired = "Please log in to access this page."
)

// requestLogger writes one access log line per request.
func (h *Handler) requestLogger(c *gin.Context) {
	start := time.Now()
	c.Next()
	if h.log == nil {
		return
	}
	h.log.Infow("http_request",
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"status", c.Writer.Status(),
		"latency", time.Since(start),
		"ip", c.ClientIP(),
	)
}

// loadCurrentUser resolves the session to a user once per request.
// A session pointing at a deleted user is destroyed.
func (h *Handler) loadCurrentUser(c *gin.Context) {
	store := h.session(c)
	userID, ok, err := store.CurrentUserID()
	if err != nil {
		h.internalError(c, "session_resolve_failed", err)
		c.Abort()
		return
	}
	if !ok {
		c.Next()
		return
	}

	u, err := h.services.UserByID(c.Request.Context(), userID)
	if err != nil {
		if !errors.Is(err, service.ErrUserNotFound) {
			h.internalError(c, "session_user_load_failed", err, "user_id", userID)
			c.Abort()
			return
		}
		if h.log != nil {
			h.log.Infow("session_user_missing", "user_id", userID)
		}
		if err := store.Destroy(); err != nil {
			h.internalError(c, "session_destroy_failed", err)
			c.Abort()
			return
		}
		c.Next()
		return
	}

	c.Set(ctxUserKey, u)
	c.Next()
}

// currentUser returns the user resolved by loadCurrentUser, nil when anonymous.
func currentUser(c *gin.Context) *models.User {
	v, ok := c.Get(ctxUserKey)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}

// requireLogin sends anonymous visitors to the login page.
func (h *Handler) requireLogin(c *gin.Context) {
	if currentUser(c) != nil {
		c.Next()
		return
	}
	if err := h.session(c).AddFlash(msgLoginRequired, views.CategoryInfo); err != nil && h.log != nil {
		h.log.Warnw("flash_save_failed", "err", err)
	}
	c.Redirect(http.StatusFound, "/login")
	c.Abort()
}

// anonymousOnly sends logged in visitors home.
func (h *Handler) anonymousOnly(c *gin.Context) {
	if currentUser(c) == nil {
		c.Next()
		return
	}
	c.Redirect(http.StatusFound, "/")
	c.Abort()
}

// userIdMiddleware guards the JSON API with a bearer token.
func (h *Handler) userIdMiddleware(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if header == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "missing Authorization header",
		})
		return
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "invalid Authorization header format",
		})
		return
	}

	userId, err := h.services.ParseToken(parts[1])
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "invalid or expired token",
		})
		return
	}

	// store in Gin context
	c.Set(ctxUserIDKey, userId)
	c.Next()
}
