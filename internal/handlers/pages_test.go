package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"secrets_portal/internal/models"
	"secrets_portal/internal/service"
)

func TestPages_PublicRender(t *testing.T) {
	s := &service.Service{Authorization: &mockAuth{}, Sessions: newMockSessions()}
	b := newBrowser(t, newTestRouter(s))

	cases := []struct {
		path string
		want string
	}{
		{"/", `href="/register"`},
		{"/register", `action="/register"`},
		{"/login", `action="/login"`},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			w := b.get(tc.path)
			if w.Code != http.StatusOK {
				t.Fatalf("status: got %d, want 200", w.Code)
			}
			if !strings.Contains(w.Body.String(), tc.want) {
				t.Fatalf("body lacks %q: %s", tc.want, w.Body.String())
			}
		})
	}
}

func TestRegister(t *testing.T) {
	bob := &models.User{ID: 7, Email: "bob@example.com", Name: "Bob"}

	cases := []struct {
		name      string
		form      url.Values
		err       error
		wantCode  int
		wantLoc   string
		wantFlash string
	}{
		{
			name:     "success",
			form:     url.Values{"name": {"Bob"}, "email": {"bob@example.com"}, "password": {"pw"}},
			wantCode: http.StatusFound,
			wantLoc:  "/secrets",
		},
		{
			name:      "missing password",
			form:      url.Values{"name": {"Bob"}, "email": {"bob@example.com"}},
			wantCode:  http.StatusBadRequest,
			wantFlash: msgRegisterFields,
		},
		{
			name:      "blank after trimming",
			form:      url.Values{"name": {"  "}, "email": {"bob@example.com"}, "password": {"pw"}},
			err:       service.ErrMissingField,
			wantCode:  http.StatusBadRequest,
			wantFlash: msgRegisterFields,
		},
		{
			name:     "already registered",
			form:     url.Values{"name": {"Bob"}, "email": {"bob@example.com"}, "password": {"pw"}},
			err:      service.ErrAlreadyRegistered,
			wantCode: http.StatusFound,
			wantLoc:  "/login",
		},
		{
			name:      "password too long",
			form:      url.Values{"name": {"Bob"}, "email": {"bob@example.com"}, "password": {strings.Repeat("x", 73)}},
			err:       service.ErrPasswordTooLong,
			wantCode:  http.StatusBadRequest,
			wantFlash: msgPasswordTooLong,
		},
		{
			name:      "email too long",
			form:      url.Values{"name": {"Bob"}, "email": {strings.Repeat("b", 101) + "@example.com"}, "password": {"pw"}},
			err:       service.ErrFieldTooLong,
			wantCode:  http.StatusBadRequest,
			wantFlash: msgFieldTooLong,
		},
		{
			name:      "storage failure",
			form:      url.Values{"name": {"Bob"}, "email": {"bob@example.com"}, "password": {"pw"}},
			err:       errors.New("disk full"),
			wantCode:  http.StatusInternalServerError,
			wantFlash: msgInternal,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			auth := &mockAuth{registerUser: bob, registerErr: tc.err, users: map[int]*models.User{7: bob}}
			if tc.err != nil {
				auth.registerUser = nil
			}
			s := &service.Service{Authorization: auth, Sessions: newMockSessions()}
			b := newBrowser(t, newTestRouter(s))

			w := b.postForm("/register", tc.form)
			if w.Code != tc.wantCode {
				t.Fatalf("status: got %d, want %d; body=%s", w.Code, tc.wantCode, w.Body.String())
			}
			if tc.wantLoc != "" && w.Header().Get("Location") != tc.wantLoc {
				t.Fatalf("Location: got %q, want %q", w.Header().Get("Location"), tc.wantLoc)
			}
			if tc.wantFlash != "" && !strings.Contains(w.Body.String(), tc.wantFlash) {
				t.Fatalf("body lacks %q: %s", tc.wantFlash, w.Body.String())
			}
		})
	}
}

func TestRegister_ConflictFlashShownOnLogin(t *testing.T) {
	auth := &mockAuth{registerErr: service.ErrAlreadyRegistered}
	s := &service.Service{Authorization: auth, Sessions: newMockSessions()}
	b := newBrowser(t, newTestRouter(s))

	b.postForm("/register", url.Values{"name": {"A"}, "email": {"alice@example.com"}, "password": {"pw"}})
	w := b.get("/login")
	if !strings.Contains(w.Body.String(), msgAlreadyRegistered) {
		t.Fatalf("login page lacks %q: %s", msgAlreadyRegistered, w.Body.String())
	}
}

func TestRegister_RedisplaysSubmittedValues(t *testing.T) {
	s := &service.Service{Authorization: &mockAuth{}, Sessions: newMockSessions()}
	b := newBrowser(t, newTestRouter(s))

	w := b.postForm("/register", url.Values{"name": {"Carol"}, "email": {"carol@example.com"}})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, `value="Carol"`) || !strings.Contains(body, `value="carol@example.com"`) {
		t.Fatalf("form values not echoed: %s", body)
	}
	if strings.Contains(body, "password\" value=") {
		t.Fatal("password must not be echoed")
	}
}

func TestLogin(t *testing.T) {
	alice := &models.User{ID: 1, Email: "alice@example.com", Name: "Alice"}

	cases := []struct {
		name      string
		form      url.Values
		err       error
		wantCode  int
		wantLoc   string
		wantFlash string
	}{
		{
			name:     "success",
			form:     url.Values{"email": {"alice@example.com"}, "password": {"pw123"}},
			wantCode: http.StatusFound,
			wantLoc:  "/secrets",
		},
		{
			name:      "unknown email",
			form:      url.Values{"email": {"nobody@example.com"}, "password": {"pw123"}},
			err:       service.ErrUserNotFound,
			wantCode:  http.StatusUnauthorized,
			wantFlash: msgNoUserFound,
		},
		{
			name:      "wrong password",
			form:      url.Values{"email": {"alice@example.com"}, "password": {"nope"}},
			err:       service.ErrWrongPassword,
			wantCode:  http.StatusUnauthorized,
			wantFlash: msgWrongPassword,
		},
		{
			name:      "missing password",
			form:      url.Values{"email": {"alice@example.com"}},
			wantCode:  http.StatusBadRequest,
			wantFlash: msgLoginFields,
		},
		{
			name:      "storage failure",
			form:      url.Values{"email": {"alice@example.com"}, "password": {"pw123"}},
			err:       errors.New("db down"),
			wantCode:  http.StatusInternalServerError,
			wantFlash: msgInternal,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			auth := &mockAuth{loginUser: alice, loginErr: tc.err, users: map[int]*models.User{1: alice}}
			s := &service.Service{Authorization: auth, Sessions: newMockSessions()}
			b := newBrowser(t, newTestRouter(s))

			w := b.postForm("/login", tc.form)
			if w.Code != tc.wantCode {
				t.Fatalf("status: got %d, want %d; body=%s", w.Code, tc.wantCode, w.Body.String())
			}
			if tc.wantLoc != "" && w.Header().Get("Location") != tc.wantLoc {
				t.Fatalf("Location: got %q, want %q", w.Header().Get("Location"), tc.wantLoc)
			}
			if tc.wantFlash != "" && !strings.Contains(w.Body.String(), tc.wantFlash) {
				t.Fatalf("body lacks %q: %s", tc.wantFlash, w.Body.String())
			}
		})
	}
}

func TestLogin_SessionStartFailureIs500(t *testing.T) {
	alice := &models.User{ID: 1, Email: "alice@example.com", Name: "Alice"}
	sessions := newMockSessions()
	sessions.startErr = errors.New("db down")
	s := &service.Service{Authorization: &mockAuth{loginUser: alice}, Sessions: sessions}
	b := newBrowser(t, newTestRouter(s))

	w := b.postForm("/login", url.Values{"email": {"alice@example.com"}, "password": {"pw123"}})
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d, want 500", w.Code)
	}
}

func TestSecretsLogoutDownload(t *testing.T) {
	alice := &models.User{ID: 1, Email: "alice@example.com", Name: "Alice"}
	auth := &mockAuth{loginUser: alice, users: map[int]*models.User{1: alice}}
	sessions := newMockSessions()
	s := &service.Service{Authorization: auth, Sessions: sessions}
	b := newBrowser(t, newTestRouter(s))

	b.postForm("/login", url.Values{"email": {"alice@example.com"}, "password": {"pw123"}})

	w := b.get("/secrets")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Welcome, Alice") {
		t.Fatalf("secrets: got %d, body=%s", w.Code, w.Body.String())
	}

	w = b.get("/download")
	if w.Code != http.StatusNotImplemented || !strings.Contains(w.Body.String(), msgNotImplemented) {
		t.Fatalf("download: got %d, body=%s", w.Code, w.Body.String())
	}

	w = b.get("/logout")
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/" {
		t.Fatalf("logout: got %d -> %q", w.Code, w.Header().Get("Location"))
	}
	if len(sessions.ended) == 0 {
		t.Fatal("logout did not end the server-side session")
	}

	w = b.get("/secrets")
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/login" {
		t.Fatalf("secrets after logout: got %d -> %q", w.Code, w.Header().Get("Location"))
	}
}

func TestStaleSessionCookieIsAnonymous(t *testing.T) {
	alice := &models.User{ID: 1, Email: "alice@example.com", Name: "Alice"}
	auth := &mockAuth{loginUser: alice, users: map[int]*models.User{1: alice}}
	sessions := newMockSessions()
	s := &service.Service{Authorization: auth, Sessions: sessions}
	router := newTestRouter(s)

	first := newBrowser(t, router)
	first.postForm("/login", url.Values{"email": {"alice@example.com"}, "password": {"pw123"}})
	stale := first.snapshot()

	// drop the session server-side; the cookie now points at nothing
	for id := range sessions.live {
		delete(sessions.live, id)
	}

	replay := newBrowser(t, router)
	replay.cookies = stale
	w := replay.get("/login")
	if w.Code != http.StatusOK {
		t.Fatalf("stale cookie should be anonymous, got %d", w.Code)
	}
}
