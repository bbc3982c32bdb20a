package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"printdesk/internal/metrics"

	"github.com/jackc/pgx/v5"
)

// Kind is the change-feed event kind.
type Kind string

const (
	KindInsert Kind = "insert"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
	// KindResync is emitted to every subscriber after the listening
	// connection is re-established. The stream may have dropped events
	// during the gap, so subscribers must refetch.
	KindResync Kind = "resync"
)

// Event is one change notification. It is a hint that the table
// changed, never a payload to apply directly.
type Event struct {
	Table string `json:"table"`
	Kind  Kind   `json:"kind"`
	ID    string `json:"id"`
}

const channelName = "printdesk_changes"

// Connector yields a dedicated database connection for LISTEN.
type Connector func(ctx context.Context) (*pgx.Conn, error)

// PgxConnector builds a Connector from a database URL.
func PgxConnector(databaseURL string) Connector {
	return func(ctx context.Context) (*pgx.Conn, error) {
		return pgx.Connect(ctx, databaseURL)
	}
}

// Hub owns the single LISTEN connection and fans change events out to
// per-table subscriptions. Subscriptions are reference-counted by the
// caller simply holding the channel; each Subscribe gets its own
// channel and cancel func.
type Hub struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
	connect Connector

	mu     sync.Mutex
	nextID int
	subs   map[int]*subscription
}

type subscription struct {
	table string
	ch    chan Event
}

// NewHub creates a feed hub. connect may be nil (SQLite mode): Run
// then only serves Poll-driven resyncs.
func NewHub(connect Connector, logger *slog.Logger, m *metrics.Metrics) *Hub {
	return &Hub{
		logger:  logger.With("component", "feed"),
		metrics: m,
		connect: connect,
		subs:    map[int]*subscription{},
	}
}

// Subscribe registers interest in one table. The returned channel is
// buffered and coalescing: if the subscriber is still processing a
// previous event, further events are dropped, which is safe because
// every event means "refetch the table". The cancel func guarantees no
// delivery after it returns.
func (h *Hub) Subscribe(table string) (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	sub := &subscription{table: table, ch: make(chan Event, 1)}
	h.subs[id] = sub

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if s, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(s.ch)
		}
	}
	return sub.ch, cancel
}

// Broadcast delivers an event to matching subscribers. Exported so the
// SQLite poller and tests can drive the hub without a database.
func (h *Hub) Broadcast(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subs {
		if ev.Kind != KindResync && sub.table != ev.Table {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			// Subscriber busy; it will refetch for the event already queued.
		}
	}
	if h.metrics != nil {
		h.metrics.FeedEvents.WithLabelValues(ev.Table, string(ev.Kind)).Inc()
	}
}

// Run listens for database notifications until ctx is done,
// reconnecting with backoff on connection loss.
func (h *Hub) Run(ctx context.Context) error {
	if h.connect == nil {
		<-ctx.Done()
		return nil
	}

	backoff := time.Second
	for {
		if err := h.listen(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			h.logger.Error("feed listener dropped", "error", err)
			if h.metrics != nil {
				h.metrics.Errors.WithLabelValues("feed").Inc()
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (h *Hub) listen(ctx context.Context) error {
	conn, err := h.connect(ctx)
	if err != nil {
		return fmt.Errorf("feed connect: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = conn.Close(closeCtx)
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+channelName); err != nil {
		return fmt.Errorf("listen %s: %w", channelName, err)
	}

	// Whatever happened while we were not listening is lost; force a
	// refetch everywhere before trusting the stream again.
	h.Broadcast(Event{Kind: KindResync})
	h.logger.Info("change feed listening", "channel", channelName)

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("wait for notification: %w", err)
		}

		var ev Event
		if err := json.Unmarshal([]byte(notification.Payload), &ev); err != nil {
			h.logger.Warn("malformed feed payload", "payload", notification.Payload)
			continue
		}
		h.Broadcast(ev)
	}
}
