package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/magiclink/internal/database"
	"github.com/dukerupert/magiclink/internal/model"
)

type SessionStore struct {
	db *database.DB
}

func NewSessionStore(db *database.DB) *SessionStore {
	return &SessionStore{db: db}
}

// Create persists s. The store assigns s.ID; the caller supplies the
// timestamps so expiration_date stays an exact offset from created_at.
func (s *SessionStore) Create(ctx context.Context, sess *model.Session) error {
	sess.ID = uuid.NewString()
	sess.CreatedAt = sess.CreatedAt.UTC()
	sess.ExpirationDate = sess.ExpirationDate.UTC()

	_, err := s.db.ExecContext(ctx, s.db.Rebind(
		`INSERT INTO sessions (id, user_id, expiration_date, created_at) VALUES (?, ?, ?, ?)`),
		sess.ID, sess.UserID, sess.ExpirationDate, sess.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetWithUser returns the session with its User loaded, or nil if either
// does not exist. Expired sessions are returned as-is.
func (s *SessionStore) GetWithUser(ctx context.Context, id string) (*model.Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}

	row := s.db.QueryRowContext(ctx, s.db.Rebind(
		`SELECT s.id, s.user_id, s.expiration_date, s.created_at,
		        u.id, u.email, u.first_name, u.discord_id, u.team, u.role, u.created_at, u.updated_at
		 FROM sessions s JOIN users u ON u.id = s.user_id
		 WHERE s.id = ?`), id)

	var sess model.Session
	var u model.User
	var discordID sql.NullString
	var team string
	err := row.Scan(
		&sess.ID, &sess.UserID, &sess.ExpirationDate, &sess.CreatedAt,
		&u.ID, &u.Email, &u.FirstName, &discordID, &team, &u.Role, &u.CreatedAt, &u.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	u.Team = model.Team(team)
	if discordID.Valid {
		u.DiscordID = &discordID.String
	}
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	sess.ExpirationDate = sess.ExpirationDate.UTC()
	sess.CreatedAt = sess.CreatedAt.UTC()
	sess.User = &u
	return &sess, nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM sessions WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes sessions whose expiration date is before now.
func (s *SessionStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM sessions WHERE expiration_date < ?`), now.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}
