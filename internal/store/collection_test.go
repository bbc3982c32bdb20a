package store

import (
	"testing"
	"time"

	"printdesk/internal/repo"
)

func makeOrder(id, status string, createdAt time.Time) repo.Order {
	return repo.Order{ID: id, Status: status, CreatedAt: createdAt}
}

func newOrderCollection() *Collection[repo.Order] {
	return NewCollection(func(a, b repo.Order) bool {
		return a.CreatedAt.After(b.CreatedAt)
	})
}

func TestSnapshotSorted(t *testing.T) {
	c := newOrderCollection()
	base := time.Now()
	c.UpsertOne(makeOrder("a", "NUEVO", base.Add(-2*time.Hour)))
	c.UpsertOne(makeOrder("b", "NUEVO", base))
	c.UpsertOne(makeOrder("c", "NUEVO", base.Add(-time.Hour)))

	snap := c.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("expected 3 orders, got %d", len(snap))
	}
	want := []string{"b", "c", "a"}
	for i, id := range want {
		if snap[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, snap[i].ID)
		}
	}
}

func TestReplaceAllDropsMissing(t *testing.T) {
	c := newOrderCollection()
	base := time.Now()
	c.UpsertOne(makeOrder("a", "NUEVO", base))
	c.UpsertOne(makeOrder("b", "NUEVO", base))

	c.ReplaceAll([]repo.Order{makeOrder("b", "DISEÑO", base)}, c.Rev())

	if _, ok := c.Get("a"); ok {
		t.Error("entity a should be gone after ReplaceAll without it")
	}
	got, ok := c.Get("b")
	if !ok || got.Status != "DISEÑO" {
		t.Errorf("entity b should carry the refetched status, got %+v", got)
	}
}

func TestReplaceAllKeepsNewerLocalWrite(t *testing.T) {
	c := newOrderCollection()
	base := time.Now()
	c.UpsertOne(makeOrder("a", "NUEVO", base))

	// A refetch begins, observing the current revision.
	asOf := c.Rev()

	// A local optimistic write lands while the refetch is in flight.
	c.UpsertLocal(makeOrder("a", "PRODUCCIÓN", base))

	// The stale refetch must not clobber the local write.
	c.ReplaceAll([]repo.Order{makeOrder("a", "NUEVO", base)}, asOf)

	got, _ := c.Get("a")
	if got.Status != "PRODUCCIÓN" {
		t.Errorf("stale refetch clobbered local write: got %s", got.Status)
	}

	// Once confirmed, a later refetch owns the entity again.
	c.ConfirmLocal("a")
	c.ReplaceAll([]repo.Order{makeOrder("a", "LISTO", base)}, c.Rev())
	got, _ = c.Get("a")
	if got.Status != "LISTO" {
		t.Errorf("confirmed entity should take refetched value, got %s", got.Status)
	}
}

func TestReplaceAllKeepsLocalEntityAbsentFromServer(t *testing.T) {
	c := newOrderCollection()
	base := time.Now()
	asOf := c.Rev()
	c.UpsertLocal(makeOrder("new", "NUEVO", base))

	// Server response predates the local insert and does not include it.
	c.ReplaceAll(nil, asOf)

	if _, ok := c.Get("new"); !ok {
		t.Error("locally written entity dropped by stale refetch")
	}
}

func TestRemoveOne(t *testing.T) {
	c := newOrderCollection()
	c.UpsertOne(makeOrder("a", "NUEVO", time.Now()))
	c.RemoveOne("a")
	if c.Len() != 0 {
		t.Errorf("expected empty collection, got %d", c.Len())
	}
}
