// Package postread counts post reads, at most once per user and post
// within a trailing DedupWindow.
package postread

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukerupert/magiclink/internal/clock"
	"github.com/dukerupert/magiclink/internal/model"
)

// DedupWindow is how long a read keeps a repeat read from counting.
const DedupWindow = 7 * 24 * time.Hour

// Store finds and creates post read records. FindSince must match only
// records created strictly after since, and return nil, nil when none do.
type Store interface {
	FindSince(ctx context.Context, userID, slug string, since time.Time) (*model.PostRead, error)
	Create(ctx context.Context, userID, slug string, createdAt time.Time) (*model.PostRead, error)
}

type Recorder struct {
	store  Store
	clock  clock.Clock
	logger *slog.Logger
}

func NewRecorder(store Store, clk clock.Clock, logger *slog.Logger) *Recorder {
	if clk == nil {
		clk = clock.Real{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{store: store, clock: clk, logger: logger}
}

// Record counts a read of slug by userID. It returns nil, nil when the
// user already read slug within DedupWindow.
//
// The check and the insert are not atomic, so two concurrent first reads
// may both be counted.
func (r *Recorder) Record(ctx context.Context, slug, userID string) (*model.PostRead, error) {
	now := r.clock.Now()

	existing, err := r.store.FindSince(ctx, userID, slug, now.Add(-DedupWindow))
	if err != nil {
		return nil, fmt.Errorf("check recent read: %w", err)
	}
	if existing != nil {
		r.logger.Debug("read already counted", "slug", slug, "user_id", userID, "read_id", existing.ID)
		return nil, nil
	}

	pr, err := r.store.Create(ctx, userID, slug, now)
	if err != nil {
		return nil, fmt.Errorf("record read: %w", err)
	}
	return pr, nil
}
