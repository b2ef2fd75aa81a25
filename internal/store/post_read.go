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

type PostReadStore struct {
	db *database.DB
}

func NewPostReadStore(db *database.DB) *PostReadStore {
	return &PostReadStore{db: db}
}

const postReadCols = `id, user_id, post_slug, created_at`

func scanPostRead(scanner interface{ Scan(...any) error }) (*model.PostRead, error) {
	var pr model.PostRead
	if err := scanner.Scan(&pr.ID, &pr.UserID, &pr.PostSlug, &pr.CreatedAt); err != nil {
		return nil, err
	}
	pr.CreatedAt = pr.CreatedAt.UTC()
	return &pr, nil
}

// FindSince returns the most recent read of slug by userID created strictly
// after since, or nil if there is none.
func (s *PostReadStore) FindSince(ctx context.Context, userID, slug string, since time.Time) (*model.PostRead, error) {
	row := s.db.QueryRowContext(ctx, s.db.Rebind(
		`SELECT `+postReadCols+` FROM post_reads WHERE user_id = ? AND post_slug = ? AND created_at > ? ORDER BY created_at DESC LIMIT 1`),
		userID, slug, since.UTC(),
	)
	pr, err := scanPostRead(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find post read: %w", err)
	}
	return pr, nil
}

func (s *PostReadStore) Create(ctx context.Context, userID, slug string, createdAt time.Time) (*model.PostRead, error) {
	pr := &model.PostRead{
		ID:        uuid.NewString(),
		UserID:    userID,
		PostSlug:  slug,
		CreatedAt: createdAt.UTC(),
	}
	_, err := s.db.ExecContext(ctx, s.db.Rebind(
		`INSERT INTO post_reads (`+postReadCols+`) VALUES (?, ?, ?, ?)`),
		pr.ID, pr.UserID, pr.PostSlug, pr.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert post read: %w", err)
	}
	return pr, nil
}

// CountBySlug returns how many reads have been recorded for slug.
func (s *PostReadStore) CountBySlug(ctx context.Context, slug string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, s.db.Rebind(`SELECT COUNT(*) FROM post_reads WHERE post_slug = ?`), slug).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count post reads: %w", err)
	}
	return n, nil
}
