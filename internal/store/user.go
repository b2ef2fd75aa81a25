package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dukerupert/magiclink/internal/clock"
	"github.com/dukerupert/magiclink/internal/database"
	"github.com/dukerupert/magiclink/internal/model"
)

type UserStore struct {
	db    *database.DB
	clock clock.Clock
}

func NewUserStore(db *database.DB, clk clock.Clock) *UserStore {
	return &UserStore{db: db, clock: clk}
}

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	var discordID sql.NullString
	var team string
	err := scanner.Scan(&u.ID, &u.Email, &u.FirstName, &discordID, &team, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.Team = model.Team(team)
	if discordID.Valid {
		u.DiscordID = &discordID.String
	}
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return &u, nil
}

const userCols = `id, email, first_name, discord_id, team, role, created_at, updated_at`

func (s *UserStore) Create(ctx context.Context, email, firstName string, team model.Team) (*model.User, error) {
	if team == "" {
		team = model.TeamUnknown
	}
	id := uuid.NewString()
	now := s.clock.Now().UTC()

	_, err := s.db.ExecContext(ctx, s.db.Rebind(
		`INSERT INTO users (id, email, first_name, team, role, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`),
		id, email, firstName, string(team), model.RoleMember, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *UserStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, s.db.Rebind(`SELECT `+userCols+` FROM users WHERE id = ?`), id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, s.db.Rebind(`SELECT `+userCols+` FROM users WHERE email = ?`), email)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// Update applies the non-nil fields of upd and bumps updated_at.
// It returns nil if the user does not exist.
func (s *UserStore) Update(ctx context.Context, id string, upd model.UserUpdate) (*model.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}

	sets := []string{"updated_at = ?"}
	args := []any{s.clock.Now().UTC()}
	if upd.FirstName != nil {
		sets = append(sets, "first_name = ?")
		args = append(args, *upd.FirstName)
	}
	if upd.DiscordID != nil {
		sets = append(sets, "discord_id = ?")
		args = append(args, *upd.DiscordID)
	}
	args = append(args, id)

	_, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = ?`), args...)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *UserStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM users WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}
