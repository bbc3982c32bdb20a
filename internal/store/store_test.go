package store

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"printdesk/internal/feed"
	"printdesk/internal/repo"
)

func testLogger() *slog.Logger {
	return slog.Default()
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestStoreRefetchesOnFeedEvent(t *testing.T) {
	fake := repo.NewFakeRepository()
	hub := feed.NewHub(nil, testLogger(), nil)
	s := New(fake, hub, testLogger(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start store: %v", err)
	}
	defer s.Close()

	if s.Orders.Len() != 0 {
		t.Fatalf("expected empty store, got %d orders", s.Orders.Len())
	}

	fake.OrderRows["o1"] = repo.Order{ID: "o1", Status: "NUEVO", CreatedAt: time.Now()}
	hub.Broadcast(feed.Event{Table: "orders", Kind: feed.KindInsert, ID: "o1"})

	waitFor(t, time.Second, func() bool { return s.Orders.Len() == 1 })
}

func TestStoreResyncRefreshesEveryTable(t *testing.T) {
	fake := repo.NewFakeRepository()
	hub := feed.NewHub(nil, testLogger(), nil)
	s := New(fake, hub, testLogger(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start store: %v", err)
	}
	defer s.Close()

	fake.LeadRows["l1"] = repo.Lead{ID: "l1", Name: "Ana", PhoneNumber: "+56911111111"}
	fake.OrderRows["o1"] = repo.Order{ID: "o1", Status: "NUEVO", CreatedAt: time.Now()}
	hub.Broadcast(feed.Event{Kind: feed.KindResync})

	waitFor(t, time.Second, func() bool {
		return s.Leads.Len() == 1 && s.Orders.Len() == 1
	})
}

func TestStoreCloseStopsUpdates(t *testing.T) {
	fake := repo.NewFakeRepository()
	hub := feed.NewHub(nil, testLogger(), nil)
	s := New(fake, hub, testLogger(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start store: %v", err)
	}

	s.Close()

	// Events after Close must not reach the store.
	fake.OrderRows["o1"] = repo.Order{ID: "o1", Status: "NUEVO", CreatedAt: time.Now()}
	hub.Broadcast(feed.Event{Table: "orders", Kind: feed.KindInsert, ID: "o1"})

	time.Sleep(50 * time.Millisecond)
	if s.Orders.Len() != 0 {
		t.Error("store updated after Close")
	}
}
