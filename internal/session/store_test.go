package session

import (
	"context"
	"errors"
	"testing"

	"github.com/spec-kit/support-assistant/internal/domain"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	sess := &domain.Session{ID: "s1", Step: domain.StepName}
	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if loaded.Step != domain.StepName {
		t.Errorf("step = %q, want name", loaded.Step)
	}

	// Mutating the returned copy must not leak into the store.
	loaded.Step = domain.StepEmail
	again, _ := store.Get(ctx, "s1")
	if again.Step != domain.StepName {
		t.Errorf("store mutated through returned copy; step = %q", again.Step)
	}
}

func TestMemoryStoreMissing(t *testing.T) {
	store := NewMemoryStore()
	if _, err := store.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	_ = store.Save(ctx, &domain.Session{ID: "s1"})
	if err := store.Delete(ctx, "s1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, "s1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err after delete = %v, want ErrNotFound", err)
	}
}
