package testutil

import (
	"context"
	"testing"

	"github.com/nhle/trackmate/internal/model"
	"github.com/nhle/trackmate/internal/store"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// NewTestUser stores a user with provider tokens and returns it.
func NewTestUser(t *testing.T, s *store.SQLiteStore, email string) *model.User {
	t.Helper()

	u, err := s.UpsertUser(context.Background(), model.User{
		GoogleID:     "google-" + email,
		Email:        email,
		Name:         "Test User",
		AccessToken:  "access-" + email,
		RefreshToken: "refresh-" + email,
	})
	if err != nil {
		t.Fatalf("creating test user: %v", err)
	}
	return u
}
