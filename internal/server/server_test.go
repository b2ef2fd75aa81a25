package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dukerupert/magiclink/internal/clock"
	"github.com/dukerupert/magiclink/internal/database"
	"github.com/dukerupert/magiclink/internal/encryption"
	"github.com/dukerupert/magiclink/internal/metrics"
	"github.com/dukerupert/magiclink/internal/middleware"
	"github.com/dukerupert/magiclink/internal/model"
	"github.com/dukerupert/magiclink/internal/store"
)

type captureMailer struct {
	link string
}

func (m *captureMailer) Configured() bool { return true }

func (m *captureMailer) SendMagicLink(_ context.Context, _, link string) error {
	m.link = link
	return nil
}

type testServer struct {
	db     *database.DB
	clock  *clock.Mock
	mailer *captureMailer
	router http.Handler
}

func setupServer(t *testing.T) *testServer {
	t.Helper()
	db, err := database.Open(database.SQLite, ":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	box, err := encryption.NewWithKey(bytes.Repeat([]byte{9}, 32))
	if err != nil {
		t.Fatalf("new box: %v", err)
	}

	clk := clock.NewMock(time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC))
	mailer := &captureMailer{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := Config{BaseURL: "http://localhost:8080", SessionSecret: "test-session-secret"}

	srv := New(db, box, mailer, cfg, clk, metrics.NewCollector(), logger)
	return &testServer{db: db, clock: clk, mailer: mailer, router: srv.Router()}
}

func (ts *testServer) do(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func cookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// login runs the whole magic-link flow and returns the session cookie.
func (ts *testServer) login(t *testing.T, email string) *http.Cookie {
	t.Helper()
	form := url.Values{"email": {email}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	loginRec := ts.do(req)
	if loginRec.Code != http.StatusAccepted {
		t.Fatalf("login status = %d: %s", loginRec.Code, loginRec.Body.String())
	}

	var pending []*http.Cookie
	pending = append(pending, loginRec.Result().Cookies()...)
	magicRec := ts.do(httptest.NewRequest(http.MethodGet, ts.mailer.link, nil), pending...)
	if magicRec.Code != http.StatusOK {
		t.Fatalf("magic status = %d: %s", magicRec.Code, magicRec.Body.String())
	}
	c := cookie(magicRec, middleware.SessionCookieName)
	if c == nil {
		t.Fatal("no session cookie after magic link")
	}
	return c
}

func TestHealth(t *testing.T) {
	ts := setupServer(t)
	rec := ts.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestLoginFlowAndMe(t *testing.T) {
	ts := setupServer(t)
	session := ts.login(t, "alice@example.com")

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/me", nil), session)
	if rec.Code != http.StatusOK {
		t.Fatalf("me status = %d: %s", rec.Code, rec.Body.String())
	}
	var me model.User
	json.NewDecoder(rec.Body).Decode(&me)
	if me.Email != "alice@example.com" {
		t.Errorf("email = %q", me.Email)
	}
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	ts := setupServer(t)
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/me"},
		{http.MethodPatch, "/me"},
		{http.MethodPost, "/logout"},
		{http.MethodPost, "/posts/hello/read"},
		{http.MethodGet, "/admin/posts/hello/reads"},
	} {
		rec := ts.do(httptest.NewRequest(tc.method, tc.path, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s status = %d, want %d", tc.method, tc.path, rec.Code, http.StatusUnauthorized)
		}
	}
}

func TestSessionExpires(t *testing.T) {
	ts := setupServer(t)
	session := ts.login(t, "alice@example.com")

	ts.clock.Advance(31 * 24 * time.Hour)
	rec := ts.do(httptest.NewRequest(http.MethodGet, "/me", nil), session)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestLogoutEndsSession(t *testing.T) {
	ts := setupServer(t)
	session := ts.login(t, "alice@example.com")

	if rec := ts.do(httptest.NewRequest(http.MethodPost, "/logout", nil), session); rec.Code != http.StatusNoContent {
		t.Fatalf("logout status = %d", rec.Code)
	}
	if rec := ts.do(httptest.NewRequest(http.MethodGet, "/me", nil), session); rec.Code != http.StatusUnauthorized {
		t.Errorf("me after logout status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestPostReadThroughRouter(t *testing.T) {
	ts := setupServer(t)
	session := ts.login(t, "alice@example.com")

	first := ts.do(httptest.NewRequest(http.MethodPost, "/posts/hello/read", nil), session)
	if first.Code != http.StatusCreated {
		t.Fatalf("first status = %d: %s", first.Code, first.Body.String())
	}
	second := ts.do(httptest.NewRequest(http.MethodPost, "/posts/hello/read", nil), session)
	if second.Code != http.StatusOK {
		t.Errorf("second status = %d, want %d", second.Code, http.StatusOK)
	}
}

func TestAdminRouteRequiresAdmin(t *testing.T) {
	ts := setupServer(t)
	session := ts.login(t, "alice@example.com")

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/admin/posts/hello/reads", nil), session)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("member status = %d, want %d", rec.Code, http.StatusForbidden)
	}

	if _, err := ts.db.Exec(`UPDATE users SET role = ? WHERE email = ?`, model.RoleAdmin, "alice@example.com"); err != nil {
		t.Fatalf("promote: %v", err)
	}
	rec = ts.do(httptest.NewRequest(http.MethodGet, "/admin/posts/hello/reads", nil), session)
	if rec.Code != http.StatusOK {
		t.Errorf("admin status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := setupServer(t)
	ts.login(t, "alice@example.com")

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "magiclink_links_issued_total 1") {
		t.Errorf("metrics missing issued counter:\n%s", rec.Body.String())
	}
}

func TestExpiredSessionCleanup(t *testing.T) {
	ts := setupServer(t)
	ts.login(t, "alice@example.com")

	sessions := store.NewSessionStore(ts.db)
	n, err := sessions.DeleteExpired(context.Background(), ts.clock.Now().Add(31*24*time.Hour))
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted = %d, want 1", n)
	}
}
