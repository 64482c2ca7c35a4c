//go:build integration

package repository

import (
	"context"
	"testing"

	"github.com/usergate/usergate/internal/testutil"
)

// ============================================================================
// User Repository Integration Tests
// ============================================================================

func TestIntegrationUserRepository(t *testing.T) {
	runStoreContract(t, func(t *testing.T) userStore {
		_, repo := newUserTestEnv(t)
		return repo
	})
}

// ============================================================================
// Test Environment Setup
// ============================================================================

func newUserTestEnv(t *testing.T) (context.Context, *Repository) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}

	ctx := context.Background()
	dbURL := testutil.RequireEnv(t, "DATABASE_URL")

	if err := Migrate(ctx, dbURL); err != nil {
		t.Fatalf("migrate db: %v", err)
	}

	repo, err := New(ctx, dbURL)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(repo.Close)

	unlock, err := testutil.AcquireDBLock(ctx, repo.Pool())
	if err != nil {
		t.Fatalf("acquire db lock: %v", err)
	}
	t.Cleanup(func() {
		_ = unlock()
	})

	if err := testutil.ResetUsersSchema(ctx, repo.Pool()); err != nil {
		t.Fatalf("reset users schema: %v", err)
	}

	return ctx, repo
}

func TestIntegrationUserRepository_ListOrder(t *testing.T) {
	ctx, repo := newUserTestEnv(t)

	var ids []string
	for _, name := range []string{"alice", "bob", "carol"} {
		saved, err := repo.Save(ctx, testutil.NewTestUser(t, name))
		if err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		ids = append(ids, saved.ID)
	}

	users, err := repo.FindAll(ctx)
	if err != nil {
		t.Fatalf("FindAll failed: %v", err)
	}
	if len(users) != len(ids) {
		t.Fatalf("expected %d users, got %d", len(ids), len(users))
	}
	for i, u := range users {
		if u.ID != ids[i] {
			t.Errorf("position %d: expected %s, got %s", i, ids[i], u.ID)
		}
	}
}
