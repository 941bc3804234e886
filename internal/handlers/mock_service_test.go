package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"secrets_portal/internal/models"
	"secrets_portal/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	registerUser *models.User
	registerErr  error
	loginUser    *models.User
	loginErr     error
	users        map[int]*models.User
	userErr      error

	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastRegister   service.RegisterInput
	lastLoginEmail string
	lastParseToken string
}

func (m *mockAuth) Register(ctx context.Context, in service.RegisterInput) (*models.User, error) {
	m.lastRegister = in
	return m.registerUser, m.registerErr
}

func (m *mockAuth) Login(ctx context.Context, email, password string) (*models.User, error) {
	m.lastLoginEmail = email
	return m.loginUser, m.loginErr
}

func (m *mockAuth) UserByID(ctx context.Context, id int) (*models.User, error) {
	if m.userErr != nil {
		return nil, m.userErr
	}
	u, ok := m.users[id]
	if !ok {
		return nil, service.ErrUserNotFound
	}
	return u, nil
}

func (m *mockAuth) GenerateToken(ctx context.Context, email, password string) (string, error) {
	m.lastLoginEmail = email
	return m.genTokenToken, m.genTokenErr
}

func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

// mockSessions keeps sessions in memory; ids are "s1", "s2", ...
type mockSessions struct {
	mu       sync.Mutex
	live     map[string]int
	next     int
	startErr error
	resolveE error
	ended    []string
}

func newMockSessions() *mockSessions {
	return &mockSessions{live: map[string]int{}}
}

func (m *mockSessions) Start(ctx context.Context, userID int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.startErr != nil {
		return "", m.startErr
	}
	m.next++
	id := fmt.Sprintf("s%d", m.next)
	m.live[id] = userID
	return id, nil
}

func (m *mockSessions) Resolve(ctx context.Context, id string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.resolveE != nil {
		return 0, m.resolveE
	}
	uid, ok := m.live[id]
	if !ok {
		return 0, service.ErrSessionNotFound
	}
	return uid, nil
}

func (m *mockSessions) End(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ended = append(m.ended, id)
	delete(m.live, id)
	return nil
}

type noopSweeper struct{}

func (noopSweeper) Run(ctx context.Context, interval time.Duration) {}

// ---- Shared Test Helpers ----

const testSecret = "handler-test-secret-0123456789"

func newTestHandler(s *service.Service) *Handler {
	gin.SetMode(gin.TestMode)
	if s.Sweeper == nil {
		s.Sweeper = noopSweeper{}
	}
	return NewHandler(s, nil, Options{
		SessionSecret: []byte(testSecret),
		CookieName:    "test_session",
		SessionMaxAge: time.Hour,
	})
}

func newTestRouter(s *service.Service) *gin.Engine {
	return newTestHandler(s).InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}

// browser replays cookies between requests like a real client, without
// following redirects.
type browser struct {
	t       testing.TB
	router  http.Handler
	cookies map[string]*http.Cookie
}

func newBrowser(t testing.TB, router http.Handler) *browser {
	return &browser{t: t, router: router, cookies: map[string]*http.Cookie{}}
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	b.t.Helper()
	return b.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (b *browser) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	b.t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	b.router.ServeHTTP(w, req)
	for _, c := range w.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c
	}
	return w
}

// snapshot copies the current cookie jar.
func (b *browser) snapshot() map[string]*http.Cookie {
	out := make(map[string]*http.Cookie, len(b.cookies))
	for k, v := range b.cookies {
		cp := *v
		out[k] = &cp
	}
	return out
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func extractJSONField(t testing.TB, body, key string) string {
	t.Helper()
	var out map[string]string
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		t.Fatalf("unmarshal %q: %v", body, err)
	}
	return out[key]
}
