package feed

import (
	"encoding/json"
	"log/slog"
	"testing"
	"time"
)

func TestSubscribeReceivesMatchingTable(t *testing.T) {
	hub := NewHub(nil, slog.Default(), nil)
	events, cancel := hub.Subscribe("orders")
	defer cancel()

	hub.Broadcast(Event{Table: "orders", Kind: KindUpdate, ID: "o1"})

	select {
	case ev := <-events:
		if ev.Table != "orders" || ev.Kind != KindUpdate || ev.ID != "o1" {
			t.Errorf("unexpected event %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
}

func TestSubscribeIgnoresOtherTables(t *testing.T) {
	hub := NewHub(nil, slog.Default(), nil)
	events, cancel := hub.Subscribe("orders")
	defer cancel()

	hub.Broadcast(Event{Table: "leads", Kind: KindInsert, ID: "l1"})

	select {
	case ev := <-events:
		t.Errorf("unexpected delivery %+v", ev)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestResyncReachesEverySubscriber(t *testing.T) {
	hub := NewHub(nil, slog.Default(), nil)
	orders, cancelOrders := hub.Subscribe("orders")
	defer cancelOrders()
	leads, cancelLeads := hub.Subscribe("leads")
	defer cancelLeads()

	hub.Broadcast(Event{Kind: KindResync})

	for name, ch := range map[string]<-chan Event{"orders": orders, "leads": leads} {
		select {
		case ev := <-ch:
			if ev.Kind != KindResync {
				t.Errorf("%s: expected resync, got %+v", name, ev)
			}
		case <-time.After(time.Second):
			t.Fatalf("%s: resync not delivered", name)
		}
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	hub := NewHub(nil, slog.Default(), nil)
	events, cancel := hub.Subscribe("orders")

	cancel()
	hub.Broadcast(Event{Table: "orders", Kind: KindInsert, ID: "o1"})

	// The channel is closed on cancel; a receive must not yield a live event.
	select {
	case ev, ok := <-events:
		if ok {
			t.Errorf("event delivered after cancel: %+v", ev)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("channel should be closed after cancel")
	}

	// Cancelling twice is safe.
	cancel()
}

func TestBroadcastCoalescesWhenSubscriberBusy(t *testing.T) {
	hub := NewHub(nil, slog.Default(), nil)
	events, cancel := hub.Subscribe("orders")
	defer cancel()

	// Fill the buffer, then overflow it.
	hub.Broadcast(Event{Table: "orders", Kind: KindInsert, ID: "1"})
	hub.Broadcast(Event{Table: "orders", Kind: KindInsert, ID: "2"})
	hub.Broadcast(Event{Table: "orders", Kind: KindInsert, ID: "3"})

	received := 0
	for {
		select {
		case <-events:
			received++
		case <-time.After(20 * time.Millisecond):
			if received != 1 {
				t.Errorf("expected 1 coalesced event, got %d", received)
			}
			return
		}
	}
}

func TestEventPayloadDecoding(t *testing.T) {
	payload := `{"table":"orders","kind":"update","id":"b2c3"}`
	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if ev.Table != "orders" || ev.Kind != KindUpdate || ev.ID != "b2c3" {
		t.Errorf("unexpected event %+v", ev)
	}
}
