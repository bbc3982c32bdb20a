package mutate

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"
)

type formSnap struct {
	Description string
	Quantity    int
}

type captureSink struct {
	mu     sync.Mutex
	writes []formSnap
}

func (c *captureSink) save(ctx context.Context, snap formSnap) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, snap)
	return nil
}

func (c *captureSink) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.writes)
}

func (c *captureSink) last() formSnap {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes[len(c.writes)-1]
}

const quiet = 30 * time.Millisecond

func TestAutosaveCollapsesRapidEdits(t *testing.T) {
	sink := &captureSink{}
	saved := formSnap{Description: "original"}
	a := NewAutosaver(saved, quiet, sink.save, slog.Default(), nil)
	defer a.Close()

	a.Update(formSnap{Description: "a"})
	a.Update(formSnap{Description: "ab"})
	a.Update(formSnap{Description: "abc", Quantity: 2})

	time.Sleep(4 * quiet)

	if got := sink.count(); got != 1 {
		t.Fatalf("expected exactly 1 write, got %d", got)
	}
	if last := sink.last(); last.Description != "abc" || last.Quantity != 2 {
		t.Errorf("write should carry the last snapshot, got %+v", last)
	}
}

func TestAutosaveSkipsEditThenRevert(t *testing.T) {
	sink := &captureSink{}
	saved := formSnap{Description: "original"}
	a := NewAutosaver(saved, quiet, sink.save, slog.Default(), nil)
	defer a.Close()

	a.Update(formSnap{Description: "changed"})
	a.Update(formSnap{Description: "original"})

	time.Sleep(4 * quiet)

	if got := sink.count(); got != 0 {
		t.Fatalf("edit-then-revert must issue 0 writes, got %d", got)
	}
}

func TestAutosaveTimerRestartsOnEdit(t *testing.T) {
	sink := &captureSink{}
	a := NewAutosaver(formSnap{}, quiet, sink.save, slog.Default(), nil)
	defer a.Close()

	a.Update(formSnap{Description: "a"})
	time.Sleep(quiet / 2)
	a.Update(formSnap{Description: "ab"})
	time.Sleep(quiet / 2)

	// Still inside the restarted quiet period.
	if got := sink.count(); got != 0 {
		t.Fatalf("write fired before quiet period elapsed: %d", got)
	}

	time.Sleep(3 * quiet)
	if got := sink.count(); got != 1 {
		t.Fatalf("expected 1 write after quiet period, got %d", got)
	}
}

func TestAutosaveCloseCancelsPendingWrite(t *testing.T) {
	sink := &captureSink{}
	a := NewAutosaver(formSnap{}, quiet, sink.save, slog.Default(), nil)

	a.Update(formSnap{Description: "pending"})
	a.Close()

	time.Sleep(4 * quiet)

	if got := sink.count(); got != 0 {
		t.Fatalf("closed autosaver must not write, got %d writes", got)
	}

	// Updates after Close are ignored.
	a.Update(formSnap{Description: "late"})
	time.Sleep(2 * quiet)
	if got := sink.count(); got != 0 {
		t.Fatalf("update after Close scheduled a write")
	}
}

func TestAutosaveFlush(t *testing.T) {
	sink := &captureSink{}
	a := NewAutosaver(formSnap{}, time.Minute, sink.save, slog.Default(), nil)
	defer a.Close()

	a.Update(formSnap{Description: "x"})
	if err := a.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if got := sink.count(); got != 1 {
		t.Fatalf("expected 1 write after flush, got %d", got)
	}

	// Flushing again without edits is a no-op.
	if err := a.Flush(context.Background()); err != nil {
		t.Fatalf("second flush: %v", err)
	}
	if got := sink.count(); got != 1 {
		t.Fatalf("unchanged snapshot flushed again, %d writes", got)
	}
}
