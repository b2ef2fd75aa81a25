package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukerupert/magiclink/internal/clock"
	"github.com/dukerupert/magiclink/internal/model"
)

// SessionExpiration is how long a session stays valid after creation.
const SessionExpiration = 30 * 24 * time.Hour

// SessionStore persists sessions. Create assigns the id. GetWithUser
// returns nil, nil when the session or its user does not exist.
type SessionStore interface {
	Create(ctx context.Context, s *model.Session) error
	GetWithUser(ctx context.Context, id string) (*model.Session, error)
}

// SessionData is the caller-supplied part of a new session.
type SessionData struct {
	UserID string
}

type Sessions struct {
	store  SessionStore
	clock  clock.Clock
	logger *slog.Logger
}

func NewSessions(store SessionStore, clk clock.Clock, logger *slog.Logger) *Sessions {
	if store == nil {
		panic("auth: nil SessionStore")
	}
	if clk == nil {
		clk = clock.Real{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sessions{store: store, clock: clk, logger: logger}
}

// Create persists a session for data.UserID expiring SessionExpiration
// after its creation time.
func (s *Sessions) Create(ctx context.Context, data SessionData) (*model.Session, error) {
	if data.UserID == "" {
		return nil, invalidInput("User id is required.", nil)
	}
	now := s.clock.Now().UTC()
	sess := &model.Session{
		UserID:         data.UserID,
		CreatedAt:      now,
		ExpirationDate: now.Add(SessionExpiration),
	}
	if err := s.store.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

// Resolve returns the user owning sessionID. Expiration is checked on
// every call; expired sessions are left in place for the cleanup job.
func (s *Sessions) Resolve(ctx context.Context, sessionID string) (*model.User, error) {
	sess, err := s.store.GetWithUser(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("resolve session: %w", err)
	}
	if sess == nil || sess.User == nil {
		return nil, ErrSessionNotFound
	}
	if sess.Expired(s.clock.Now()) {
		s.logger.Debug("session expired", "session_id", sess.ID, "expired_at", sess.ExpirationDate)
		return nil, ErrSessionExpired
	}
	return sess.User, nil
}
