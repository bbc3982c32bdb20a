package store

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"printdesk/internal/feed"
	"printdesk/internal/metrics"
	"printdesk/internal/repo"
)

// Store owns the in-memory copies of every entity type and keeps them
// eventually consistent with the database: a full fetch at startup,
// then a full refetch of a table whenever its change feed fires. Views
// read snapshots; they never open their own subscriptions.
type Store struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
	repo    repo.Repository
	hub     *feed.Hub

	Orders        *Collection[repo.Order]
	Leads         *Collection[repo.Lead]
	Messages      *Collection[repo.Message]
	Notifications *Collection[repo.Notification]
	Files         *Collection[repo.FileMetadata]

	notificationLimit int

	wg      sync.WaitGroup
	cancels []func()
}

// New creates a store wired to the repository and feed hub.
func New(r repo.Repository, hub *feed.Hub, logger *slog.Logger, m *metrics.Metrics) *Store {
	return &Store{
		logger:  logger.With("component", "store"),
		metrics: m,
		repo:    r,
		hub:     hub,
		Orders: NewCollection(func(a, b repo.Order) bool {
			return a.CreatedAt.After(b.CreatedAt)
		}),
		Leads: NewCollection(func(a, b repo.Lead) bool {
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		}),
		Messages: NewCollection(func(a, b repo.Message) bool {
			return a.CreatedAt.Before(b.CreatedAt)
		}),
		Notifications: NewCollection(func(a, b repo.Notification) bool {
			return a.CreatedAt.After(b.CreatedAt)
		}),
		Files: NewCollection(func(a, b repo.FileMetadata) bool {
			return a.CreatedAt.After(b.CreatedAt)
		}),
		notificationLimit: 20,
	}
}

// SetNotificationLimit adjusts how many notifications a refetch
// loads. Call before Start.
func (s *Store) SetNotificationLimit(n int) {
	if n > 0 {
		s.notificationLimit = n
	}
}

// Start performs the initial full fetch and opens one feed
// subscription per table.
func (s *Store) Start(ctx context.Context) error {
	if err := s.refetchAll(ctx); err != nil {
		return err
	}

	tables := []struct {
		name    string
		refetch func(context.Context) error
	}{
		{"orders", s.RefetchOrders},
		{"leads", s.RefetchLeads},
		{"message_logs", s.RefetchMessages},
		{"notifications", s.RefetchNotifications},
		{"lead_files", s.RefetchFiles},
	}

	for _, t := range tables {
		events, cancel := s.hub.Subscribe(t.name)
		s.cancels = append(s.cancels, cancel)
		s.wg.Add(1)
		go s.watch(ctx, t.name, events, t.refetch)
	}
	return nil
}

// Close tears down the feed subscriptions and waits for the watchers.
func (s *Store) Close() {
	for _, cancel := range s.cancels {
		cancel()
	}
	s.wg.Wait()
}

func (s *Store) watch(ctx context.Context, table string, events <-chan feed.Event, refetch func(context.Context) error) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-events:
			if !ok {
				return
			}
			// The event payload is only a hint; refetch the whole
			// table. Events arriving during the refetch coalesce in
			// the subscription buffer.
			fetchCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			err := refetch(fetchCtx)
			cancel()
			outcome := "ok"
			if err != nil {
				outcome = "error"
				s.logger.Error("refetch failed", "table", table, "error", err)
			}
			if s.metrics != nil {
				s.metrics.Refetches.WithLabelValues(table, outcome).Inc()
			}
		}
	}
}

func (s *Store) refetchAll(ctx context.Context) error {
	for _, fn := range []func(context.Context) error{
		s.RefetchLeads,
		s.RefetchOrders,
		s.RefetchMessages,
		s.RefetchNotifications,
		s.RefetchFiles,
	} {
		if err := fn(ctx); err != nil {
			return err
		}
	}
	return nil
}

// RefetchOrders reloads the orders table into the cache.
func (s *Store) RefetchOrders(ctx context.Context) error {
	asOf := s.Orders.Rev()
	orders, err := s.repo.ListOrders(ctx)
	if err != nil {
		return err
	}
	s.Orders.ReplaceAll(orders, asOf)
	return nil
}

// RefetchLeads reloads the leads table into the cache.
func (s *Store) RefetchLeads(ctx context.Context) error {
	asOf := s.Leads.Rev()
	leads, err := s.repo.ListLeads(ctx)
	if err != nil {
		return err
	}
	s.Leads.ReplaceAll(leads, asOf)
	return nil
}

// RefetchMessages reloads the conversation log into the cache.
func (s *Store) RefetchMessages(ctx context.Context) error {
	asOf := s.Messages.Rev()
	messages, err := s.repo.ListMessages(ctx)
	if err != nil {
		return err
	}
	s.Messages.ReplaceAll(messages, asOf)
	return nil
}

// RefetchNotifications reloads the unarchived notifications.
func (s *Store) RefetchNotifications(ctx context.Context) error {
	asOf := s.Notifications.Rev()
	notifications, err := s.repo.ListNotifications(ctx, s.notificationLimit)
	if err != nil {
		return err
	}
	s.Notifications.ReplaceAll(notifications, asOf)
	return nil
}

// RefetchFiles reloads the stored file metadata.
func (s *Store) RefetchFiles(ctx context.Context) error {
	asOf := s.Files.Rev()
	files, err := s.repo.ListFiles(ctx)
	if err != nil {
		return err
	}
	s.Files.ReplaceAll(files, asOf)
	return nil
}
