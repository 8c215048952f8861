package manager

import (
	"context"
	"errors"
	"testing"
)

func residentIDs(m *Manager) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.id
	}
	return out
}

func TestGetOrLoad_SameInstanceNoDuplicateLoad(t *testing.T) {
	a := newFakeAdapter()
	m := newTestManager(t, a)
	ctx := context.Background()

	h1, err := m.GetOrLoad(ctx, "base")
	if err != nil {
		t.Fatalf("GetOrLoad: %v", err)
	}
	h2, err := m.GetOrLoad(ctx, "base")
	if err != nil {
		t.Fatalf("GetOrLoad again: %v", err)
	}
	if h1 != h2 {
		t.Fatal("resident identifier returned a different instance")
	}
	if n := a.loadCount("base"); n != 1 {
		t.Fatalf("engine loads=%d, want 1", n)
	}
}

func TestGetOrLoad_CapacityTwoInsertionOrderEviction(t *testing.T) {
	a := newFakeAdapter()
	m := newTestManager(t, a)
	ctx := context.Background()

	for _, id := range []string{"tiny", "base", "small"} {
		if _, err := m.GetOrLoad(ctx, id); err != nil {
			t.Fatalf("GetOrLoad(%s): %v", id, err)
		}
	}
	got := residentIDs(m)
	if len(got) != 2 {
		t.Fatalf("resident=%v, want 2 entries", got)
	}
	// tiny was inserted earliest and must be the victim, even though it
	// was never the most recently used.
	if got[0] != "base" || got[1] != "small" {
		t.Fatalf("resident=%v, want [base small]", got)
	}
	if h := a.lastHandle("tiny"); h == nil || !h.wasClosed() {
		t.Fatal("evicted handle was not closed")
	}
}

func TestGetOrLoad_TouchDoesNotChangeEvictionOrder(t *testing.T) {
	// Insertion-order FIFO, not LRU-by-access: re-requesting the oldest
	// resident must not save it from eviction.
	a := newFakeAdapter()
	m := newTestManager(t, a)
	ctx := context.Background()

	_, _ = m.GetOrLoad(ctx, "tiny")
	_, _ = m.GetOrLoad(ctx, "base")
	_, _ = m.GetOrLoad(ctx, "tiny") // touch, no reorder
	if _, err := m.GetOrLoad(ctx, "small"); err != nil {
		t.Fatalf("GetOrLoad(small): %v", err)
	}
	got := residentIDs(m)
	if got[0] != "base" || got[1] != "small" {
		t.Fatalf("resident=%v, want [base small]", got)
	}
}

func TestGetOrLoad_FailedLoadNotCached(t *testing.T) {
	a := newFakeAdapter()
	a.failFor["base"] = errors.New("corrupt asset")
	m := newTestManager(t, a)
	ctx := context.Background()

	_, err := m.GetOrLoad(ctx, "base")
	if !IsModelUnavailable(err) {
		t.Fatalf("err=%v, want model unavailable", err)
	}
	if got := residentIDs(m); len(got) != 0 {
		t.Fatalf("failed load cached: %v", got)
	}

	// A later attempt retries the engine instead of resurrecting the
	// failure.
	delete(a.failFor, "base")
	if _, err := m.GetOrLoad(ctx, "base"); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if n := a.loadCount("base"); n != 2 {
		t.Fatalf("engine loads=%d, want 2", n)
	}
}

func TestEvict_IdempotentAndFreshReconstruction(t *testing.T) {
	a := newFakeAdapter()
	m := newTestManager(t, a)
	ctx := context.Background()

	h1, _ := m.GetOrLoad(ctx, "base")
	m.Evict("base")
	m.Evict("base") // no-op
	m.Evict("never-loaded")

	h2, err := m.GetOrLoad(ctx, "base")
	if err != nil {
		t.Fatalf("reload after evict: %v", err)
	}
	if h1 == h2 {
		t.Fatal("evicted handle was resurrected")
	}
	if n := a.loadCount("base"); n != 2 {
		t.Fatalf("engine loads=%d, want 2", n)
	}
}

func TestGetOrLoad_UnknownIdentifierPassesThrough(t *testing.T) {
	a := newFakeAdapter()
	m := newTestManager(t, a)

	if _, err := m.GetOrLoad(context.Background(), "acme/custom-model"); err != nil {
		t.Fatalf("GetOrLoad custom: %v", err)
	}
	if n := a.loadCount("acme/custom-model"); n != 1 {
		t.Fatalf("engine loads=%d", n)
	}
}

func TestClose_EvictsEverything(t *testing.T) {
	a := newFakeAdapter()
	m := newTestManager(t, a)
	ctx := context.Background()
	_, _ = m.GetOrLoad(ctx, "tiny")
	_, _ = m.GetOrLoad(ctx, "base")

	m.Close()
	if got := residentIDs(m); len(got) != 0 {
		t.Fatalf("resident after close: %v", got)
	}
	for _, id := range []string{"tiny", "base"} {
		if h := a.lastHandle(id); h == nil || !h.wasClosed() {
			t.Fatalf("%s handle not closed", id)
		}
	}
}
