package handlers

import (
	"errors"
	"net/http"

	"secrets_portal/internal/service"
	"secrets_portal/internal/views"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// User-facing notices.
const (
	msgAlreadyRegistered = "You are already registered with this email"
	msgNoUserFound       = "No user found"
	msgWrongPassword     = "Wrong password"
	msgRegisterFields    = "Please fill in name, email and password."
	msgLoginFields       = "Please fill in email and password."
	msgPasswordTooLong   = "Password must be at most 72 bytes."
	msgFieldTooLong      = "Email must be at most 100 characters and name at most 1000."
	msgInternal          = "Something went wrong, please try again."
	msgNotImplemented    = "Download is not available yet."
)

type registerForm struct {
	Name     string `form:"name" binding:"required"`
	Email    string `form:"email" binding:"required"`
	Password string `form:"password" binding:"required"`
}

type loginForm struct {
	Email    string `form:"email" binding:"required"`
	Password string `form:"password" binding:"required"`
}

// render fills in the current user and pending flashes, then writes the page.
func (h *Handler) render(c *gin.Context, status int, name, title string, form map[string]string, extra ...views.Flash) {
	page := views.Page{
		Title:   title,
		Flashes: append(h.session(c).Flashes(), extra...),
		Form:    form,
	}
	if u := currentUser(c); u != nil {
		page.User = &views.User{Name: u.Name, Email: u.Email}
	}
	c.HTML(status, name, page)
}

// internalError logs err and renders a generic failure page.
func (h *Handler) internalError(c *gin.Context, logKey string, err error, kv ...interface{}) {
	if h.log != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.HTML(http.StatusInternalServerError, views.Error, views.Page{Title: msgInternal})
}

// redirectWithFlash stores a notice for the next page and redirects.
func (h *Handler) redirectWithFlash(c *gin.Context, location, message, category string) {
	if err := h.session(c).AddFlash(message, category); err != nil && h.log != nil {
		h.log.Warnw("flash_save_failed", "err", err)
	}
	c.Redirect(http.StatusFound, location)
}

func errorFlash(msg string) views.Flash {
	return views.Flash{Message: msg, Category: views.CategoryError}
}

func (h *Handler) home(c *gin.Context) {
	h.render(c, http.StatusOK, views.Index, "Home", nil)
}

func (h *Handler) registerForm(c *gin.Context) {
	h.render(c, http.StatusOK, views.Register, "Register", nil)
}

func (h *Handler) register(c *gin.Context) {
	var input registerForm
	if err := c.ShouldBindWith(&input, binding.Form); err != nil {
		if h.log != nil {
			h.log.Infow("auth_register_bad_request", "err", err)
		}
		h.render(c, http.StatusBadRequest, views.Register, "Register",
			map[string]string{"name": input.Name, "email": input.Email}, errorFlash(msgRegisterFields))
		return
	}
	form := map[string]string{"name": input.Name, "email": input.Email}

	u, err := h.services.Register(c.Request.Context(), service.RegisterInput{
		Name:     input.Name,
		Email:    input.Email,
		Password: input.Password,
	})
	switch {
	case err == nil:
	case errors.Is(err, service.ErrAlreadyRegistered):
		if h.log != nil {
			h.log.Infow("auth_register_conflict", "email", input.Email)
		}
		h.redirectWithFlash(c, "/login", msgAlreadyRegistered, views.CategoryError)
		return
	case errors.Is(err, service.ErrMissingField):
		h.render(c, http.StatusBadRequest, views.Register, "Register", form, errorFlash(msgRegisterFields))
		return
	case errors.Is(err, service.ErrPasswordTooLong):
		h.render(c, http.StatusBadRequest, views.Register, "Register", form, errorFlash(msgPasswordTooLong))
		return
	case errors.Is(err, service.ErrFieldTooLong):
		h.render(c, http.StatusBadRequest, views.Register, "Register", form, errorFlash(msgFieldTooLong))
		return
	default:
		h.internalError(c, "auth_register_failed", err, "email", input.Email)
		return
	}

	if err := h.session(c).Create(u.ID); err != nil {
		h.internalError(c, "session_create_failed", err, "user_id", u.ID)
		return
	}
	if h.log != nil {
		h.log.Infow("auth_registered", "user_id", u.ID)
	}
	c.Redirect(http.StatusFound, "/secrets")
}

func (h *Handler) loginForm(c *gin.Context) {
	h.render(c, http.StatusOK, views.Login, "Login", nil)
}

func (h *Handler) login(c *gin.Context) {
	var input loginForm
	if err := c.ShouldBindWith(&input, binding.Form); err != nil {
		if h.log != nil {
			h.log.Infow("auth_login_bad_request", "err", err)
		}
		h.render(c, http.StatusBadRequest, views.Login, "Login",
			map[string]string{"email": input.Email}, errorFlash(msgLoginFields))
		return
	}
	form := map[string]string{"email": input.Email}

	u, err := h.services.Login(c.Request.Context(), input.Email, input.Password)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrUserNotFound):
		h.render(c, http.StatusUnauthorized, views.Login, "Login", form, errorFlash(msgNoUserFound))
		return
	case errors.Is(err, service.ErrWrongPassword):
		if h.log != nil {
			h.log.Infow("auth_login_failed", "email", input.Email)
		}
		h.render(c, http.StatusUnauthorized, views.Login, "Login", form, errorFlash(msgWrongPassword))
		return
	case errors.Is(err, service.ErrMissingField):
		h.render(c, http.StatusBadRequest, views.Login, "Login", form, errorFlash(msgLoginFields))
		return
	default:
		h.internalError(c, "auth_login_error", err, "email", input.Email)
		return
	}

	if err := h.session(c).Create(u.ID); err != nil {
		h.internalError(c, "session_create_failed", err, "user_id", u.ID)
		return
	}
	c.Redirect(http.StatusFound, "/secrets")
}

func (h *Handler) secrets(c *gin.Context) {
	h.render(c, http.StatusOK, views.Secrets, "Secrets", nil)
}

func (h *Handler) logout(c *gin.Context) {
	if err := h.session(c).Destroy(); err != nil {
		h.internalError(c, "session_destroy_failed", err)
		return
	}
	c.Redirect(http.StatusFound, "/")
}

// download is reserved for serving the user's file; nothing is served yet.
func (h *Handler) download(c *gin.Context) {
	h.render(c, http.StatusNotImplemented, views.Error, msgNotImplemented, nil)
}
