package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/usergate/usergate/internal/model"
)

type userStore interface {
	FindAll(ctx context.Context) ([]*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	Save(ctx context.Context, user *model.User) (*model.User, error)
	DeleteByID(ctx context.Context, id string) error
}

// runStoreContract exercises the behavior every backend must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) userStore) {
	t.Run("save_assigns_id", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)

		candidate := &model.User{Name: "John Doe", Email: "john@example.com"}
		saved, err := store.Save(ctx, candidate)
		if err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		if saved.ID == "" {
			t.Fatal("expected store to assign an ID")
		}
		if candidate.ID != "" {
			t.Error("Save should not mutate the candidate")
		}
		if saved.Name != "John Doe" || saved.Email != "john@example.com" {
			t.Errorf("unexpected saved user: %+v", saved)
		}
		if saved.CreatedAt.IsZero() || saved.UpdatedAt.IsZero() {
			t.Error("expected timestamps to be set")
		}
	})

	t.Run("find_by_id_is_idempotent", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)

		saved, err := store.Save(ctx, &model.User{Name: "Maria", Email: "maria@email.com"})
		if err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		first, err := store.FindByID(ctx, saved.ID)
		if err != nil {
			t.Fatalf("FindByID failed: %v", err)
		}
		second, err := store.FindByID(ctx, saved.ID)
		if err != nil {
			t.Fatalf("FindByID failed: %v", err)
		}

		if *first != *second {
			t.Errorf("expected identical records, got %+v and %+v", first, second)
		}
	})

	t.Run("find_by_id_missing", func(t *testing.T) {
		store := newStore(t)

		_, err := store.FindByID(context.Background(), "missing")
		if !errors.Is(err, ErrUserNotFound) {
			t.Errorf("expected ErrUserNotFound, got %v", err)
		}
	})

	t.Run("save_existing_overwrites", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)

		saved, err := store.Save(ctx, &model.User{Name: "João", Email: "joao@email.com"})
		if err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		saved.Name = "João Atualizado"
		saved.Email = "joao.novo@email.com"
		updated, err := store.Save(ctx, saved)
		if err != nil {
			t.Fatalf("Save (update) failed: %v", err)
		}

		if updated.ID != saved.ID {
			t.Errorf("ID changed on update: %s -> %s", saved.ID, updated.ID)
		}
		if !updated.CreatedAt.Equal(saved.CreatedAt) {
			t.Errorf("CreatedAt changed on update: %v -> %v", saved.CreatedAt, updated.CreatedAt)
		}

		all, err := store.FindAll(ctx)
		if err != nil {
			t.Fatalf("FindAll failed: %v", err)
		}
		if len(all) != 1 {
			t.Fatalf("expected 1 user after update, got %d", len(all))
		}
		if all[0].Email != "joao.novo@email.com" {
			t.Errorf("unexpected email after update: %s", all[0].Email)
		}
	})

	t.Run("find_all_in_creation_order", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)

		names := []string{"first", "second", "third"}
		for _, name := range names {
			if _, err := store.Save(ctx, &model.User{Name: name, Email: name + "@example.com"}); err != nil {
				t.Fatalf("Save failed: %v", err)
			}
			time.Sleep(2 * time.Millisecond)
		}

		all, err := store.FindAll(ctx)
		if err != nil {
			t.Fatalf("FindAll failed: %v", err)
		}
		if len(all) != len(names) {
			t.Fatalf("expected %d users, got %d", len(names), len(all))
		}
		for i, name := range names {
			if all[i].Name != name {
				t.Errorf("position %d: expected %s, got %s", i, name, all[i].Name)
			}
		}
	})

	t.Run("delete_by_id", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)

		saved, err := store.Save(ctx, &model.User{Name: "Temp", Email: "temp@example.com"})
		if err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		if err := store.DeleteByID(ctx, saved.ID); err != nil {
			t.Fatalf("DeleteByID failed: %v", err)
		}

		if _, err := store.FindByID(ctx, saved.ID); !errors.Is(err, ErrUserNotFound) {
			t.Errorf("expected ErrUserNotFound after delete, got %v", err)
		}

		if err := store.DeleteByID(ctx, saved.ID); !errors.Is(err, ErrUserNotFound) {
			t.Errorf("expected ErrUserNotFound on second delete, got %v", err)
		}
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) userStore {
		return NewMemoryStore()
	})
}

func TestSQLiteStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) userStore {
		store, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "users.db"))
		if err != nil {
			t.Fatalf("open sqlite store: %v", err)
		}
		t.Cleanup(func() { _ = store.Close() })
		return store
	})
}

func TestOpenSQLite_EmptyPath(t *testing.T) {
	if _, err := OpenSQLite(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestNewID_Unique(t *testing.T) {
	now := time.Now()
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := newID(now)
		if seen[id] {
			t.Fatalf("duplicate id generated: %s", id)
		}
		seen[id] = true
	}
}
