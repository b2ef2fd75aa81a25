package handler

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dukerupert/magiclink/internal/auth"
	"github.com/dukerupert/magiclink/internal/clock"
	"github.com/dukerupert/magiclink/internal/database"
	"github.com/dukerupert/magiclink/internal/encryption"
	"github.com/dukerupert/magiclink/internal/metrics"
	"github.com/dukerupert/magiclink/internal/postread"
	"github.com/dukerupert/magiclink/internal/store"
)

const testBaseURL = "http://localhost:8080"

var testStart = time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeMailer struct {
	configured bool
	err        error
	to         string
	link       string
}

func (m *fakeMailer) Configured() bool { return m.configured }

func (m *fakeMailer) SendMagicLink(_ context.Context, to, link string) error {
	m.to = to
	m.link = link
	return m.err
}

type testEnv struct {
	clock  *clock.Mock
	users  *store.UserStore
	sess   *store.SessionStore
	reads  *store.PostReadStore
	mailer *fakeMailer
	authH  *AuthHandler
	postH  *PostHandler
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Open(database.SQLite, ":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	box, err := encryption.NewWithKey(bytes.Repeat([]byte{3}, 32))
	if err != nil {
		t.Fatalf("new box: %v", err)
	}

	clk := clock.NewMock(testStart)
	env := &testEnv{
		clock:  clk,
		users:  store.NewUserStore(db, clk),
		sess:   store.NewSessionStore(db),
		reads:  store.NewPostReadStore(db),
		mailer: &fakeMailer{configured: true},
	}

	links := auth.NewMagicLinks(box, clk, discardLogger())
	sessions := auth.NewSessions(env.sess, clk, discardLogger())
	cfg := AuthConfig{BaseURL: testBaseURL, SessionSecret: "test-session-secret"}
	env.authH = NewAuthHandler(links, sessions, env.sess, env.users, env.mailer, cfg, metrics.Nop{}, discardLogger())
	env.postH = NewPostHandler(postread.NewRecorder(env.reads, clk, discardLogger()), metrics.Nop{}, discardLogger())
	return env
}
