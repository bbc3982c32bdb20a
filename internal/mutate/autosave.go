package mutate

import (
	"context"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"printdesk/internal/metrics"
)

// DefaultQuietPeriod is how long the autosaver waits for the edits to
// stop before writing.
const DefaultQuietPeriod = time.Second

// Autosaver collapses rapid form edits into a single delayed write of
// the whole current snapshot. Every Update restarts the quiet-period
// timer; when it finally fires, the write is skipped if the snapshot
// equals the last saved one. A failed write is not retried and not
// rolled back locally.
type Autosaver[T any] struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
	quiet   time.Duration
	save    func(context.Context, T) error
	equal   func(a, b T) bool
	timeout time.Duration

	mu        sync.Mutex
	timer     *time.Timer
	pending   T
	lastSaved T
	closed    bool
}

// NewAutosaver creates an autosaver seeded with the already-persisted
// snapshot. A non-positive quiet period falls back to the default.
func NewAutosaver[T any](saved T, quiet time.Duration, save func(context.Context, T) error, logger *slog.Logger, m *metrics.Metrics) *Autosaver[T] {
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	return &Autosaver[T]{
		logger:    logger.With("component", "autosave"),
		metrics:   m,
		quiet:     quiet,
		save:      save,
		equal:     func(a, b T) bool { return reflect.DeepEqual(a, b) },
		timeout:   10 * time.Second,
		lastSaved: saved,
		pending:   saved,
	}
}

// Update records the latest form snapshot and restarts the timer.
func (a *Autosaver[T]) Update(snapshot T) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.pending = snapshot
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.quiet, a.fire)
}

func (a *Autosaver[T]) fire() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	snapshot := a.pending
	if a.equal(snapshot, a.lastSaved) {
		a.mu.Unlock()
		if a.metrics != nil {
			a.metrics.AutosaveFlushes.WithLabelValues("skipped").Inc()
		}
		return
	}
	a.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()
	if err := a.save(ctx, snapshot); err != nil {
		// No retry, no local rollback; the operator's edit stays in
		// the form and a later edit will attempt the save again.
		a.logger.Error("autosave failed", "error", err)
		if a.metrics != nil {
			a.metrics.AutosaveFlushes.WithLabelValues("error").Inc()
		}
		return
	}

	a.mu.Lock()
	a.lastSaved = snapshot
	a.mu.Unlock()
	if a.metrics != nil {
		a.metrics.AutosaveFlushes.WithLabelValues("ok").Inc()
	}
}

// Flush writes the pending snapshot immediately if it differs from the
// last saved one. Used when the owning view wants an explicit save.
func (a *Autosaver[T]) Flush(ctx context.Context) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	snapshot := a.pending
	if a.equal(snapshot, a.lastSaved) {
		a.mu.Unlock()
		return nil
	}
	a.mu.Unlock()

	if err := a.save(ctx, snapshot); err != nil {
		return err
	}
	a.mu.Lock()
	a.lastSaved = snapshot
	a.mu.Unlock()
	return nil
}

// Close cancels any pending write. No write fires after Close returns.
func (a *Autosaver[T]) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}
