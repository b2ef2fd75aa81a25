package store

import (
	"context"
	"testing"
	"time"

	"github.com/dukerupert/magiclink/internal/clock"
	"github.com/dukerupert/magiclink/internal/database"
	"github.com/dukerupert/magiclink/internal/model"
)

var testStart = time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(database.SQLite, ":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestUser(t *testing.T, us *UserStore, email string) *model.User {
	t.Helper()
	u, err := us.Create(context.Background(), email, "", model.TeamUnknown)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func newTestClock() *clock.Mock {
	return clock.NewMock(testStart)
}
