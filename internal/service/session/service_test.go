package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"storefront/internal/repository/slot"
)

func TestIssueAndResolve(t *testing.T) {
	ctx := context.Background()
	slots := slot.NewMemory()
	svc := New(slots, nil)

	id, err := svc.Issue(ctx)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := slots.Get(ctx, "session:"+id+":meta"); err != nil {
		t.Fatalf("expected meta slot, got %v", err)
	}

	// a fresh service has no cache and must read the slot
	other := New(slots, nil)
	got, err := other.Resolve(ctx, strings.ToUpper(id))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != id {
		t.Fatalf("expected canonical id %s, got %s", id, got)
	}
}

func TestResolveRejectsUnknown(t *testing.T) {
	svc := New(slot.NewMemory(), nil)

	if _, err := svc.Resolve(context.Background(), "not-a-uuid"); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}
	if _, err := svc.Resolve(context.Background(), "7d444840-9dc0-11d1-b245-5ffdce74fad2"); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession for unknown id, got %v", err)
	}
}

func TestForget(t *testing.T) {
	ctx := context.Background()
	slots := slot.NewMemory()
	svc := New(slots, nil)
	id, _ := svc.Issue(ctx)

	if err := slots.Delete(ctx, "session:"+id+":meta"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Resolve(ctx, id); err != nil {
		t.Fatalf("cached id should resolve, got %v", err)
	}
	svc.Forget(id)
	if _, err := svc.Resolve(ctx, id); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession after Forget, got %v", err)
	}
}

type countingSlots struct {
	slot.Repository
	mu   sync.Mutex
	sets int
}

func (c *countingSlots) Set(ctx context.Context, key string, value []byte) error {
	c.mu.Lock()
	c.sets++
	c.mu.Unlock()
	return c.Repository.Set(ctx, key, value)
}

func (c *countingSlots) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sets
}

func TestResolveRefreshesMeta(t *testing.T) {
	ctx := context.Background()
	slots := &countingSlots{Repository: slot.NewMemory()}
	svc := New(slots, nil)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	id, err := svc.Issue(ctx)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if slots.count() != 1 {
		t.Fatalf("expected 1 write after Issue, got %d", slots.count())
	}

	now = now.Add(time.Minute)
	if _, err := svc.Resolve(ctx, id); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if slots.count() != 1 {
		t.Fatalf("recent session should not be rewritten, got %d writes", slots.count())
	}

	now = now.Add(2 * time.Hour)
	if _, err := svc.Resolve(ctx, id); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if slots.count() != 2 {
		t.Fatalf("expected meta refresh, got %d writes", slots.count())
	}

	svc.Forget(id)
	if _, err := svc.Resolve(ctx, id); err != nil {
		t.Fatalf("Resolve after Forget: %v", err)
	}
	if slots.count() != 3 {
		t.Fatalf("expected meta refresh on reload, got %d writes", slots.count())
	}
}

func TestResolveDropsExpiredMeta(t *testing.T) {
	ctx := context.Background()
	slots := slot.NewMemory()
	svc := New(slots, nil)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	id, _ := svc.Issue(ctx)

	if err := slots.Delete(ctx, "session:"+id+":meta"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	now = now.Add(2 * time.Hour)
	if _, err := svc.Resolve(ctx, id); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}
}
