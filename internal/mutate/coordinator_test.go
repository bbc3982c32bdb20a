package mutate

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"printdesk/internal/audit"
	"printdesk/internal/feed"
	"printdesk/internal/repo"
	"printdesk/internal/store"
)

type fakeNotifier struct {
	statusCalls  int
	paymentCalls int
	notified     bool
	err          error
}

func (f *fakeNotifier) NotifyStatusChange(ctx context.Context, orderID, newStatus string) (bool, error) {
	f.statusCalls++
	return f.notified, f.err
}

func (f *fakeNotifier) NotifyPaymentUpdate(ctx context.Context, orderID string, deposit, total int64) (bool, error) {
	f.paymentCalls++
	return f.notified, f.err
}

func setup(t *testing.T) (*repo.FakeRepository, *store.Store, *fakeNotifier, *Coordinator) {
	t.Helper()
	fake := repo.NewFakeRepository()
	hub := feed.NewHub(nil, slog.Default(), nil)
	s := store.New(fake, hub, slog.Default(), nil)
	notifier := &fakeNotifier{notified: true}
	recorder := audit.NewRecorder(fake, slog.Default(), nil)
	c := NewCoordinator(fake, s, recorder, notifier, slog.Default(), nil)
	return fake, s, notifier, c
}

func seedOrder(fake *repo.FakeRepository, s *store.Store, o repo.Order) {
	fake.OrderRows[o.ID] = o
	s.Orders.UpsertOne(o)
}

func TestChangeStatusOptimisticAndAudited(t *testing.T) {
	fake, s, notifier, c := setup(t)
	seedOrder(fake, s, repo.Order{ID: "A1", Status: StatusNew, CreatedAt: time.Now()})

	res, err := c.ChangeStatus(context.Background(), "A1", StatusDesign, "agente")
	if err != nil {
		t.Fatalf("change status: %v", err)
	}
	if !res.Notified {
		t.Error("expected notified result")
	}

	got, _ := s.Orders.Get("A1")
	if got.Status != StatusDesign {
		t.Errorf("cache status = %s, want %s", got.Status, StatusDesign)
	}
	if fake.OrderRows["A1"].Status != StatusDesign {
		t.Errorf("persisted status = %s", fake.OrderRows["A1"].Status)
	}
	if len(fake.AuditRows) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(fake.AuditRows))
	}
	entry := fake.AuditRows[0]
	if entry.ChangeType != repo.ChangeStatus || *entry.OldStatus != StatusNew || *entry.NewStatus != StatusDesign {
		t.Errorf("unexpected audit entry %+v", entry)
	}
	if entry.ChangedBy != "agente" {
		t.Errorf("changed_by = %s", entry.ChangedBy)
	}
	if notifier.statusCalls != 1 {
		t.Errorf("expected 1 notify call, got %d", notifier.statusCalls)
	}
}

func TestChangeStatusRejectedReverts(t *testing.T) {
	fake, s, _, c := setup(t)
	seedOrder(fake, s, repo.Order{ID: "A1", Status: StatusNew, CreatedAt: time.Now()})
	fake.ErrUpdateOrderStatus = errors.New("boom")

	if _, err := c.ChangeStatus(context.Background(), "A1", StatusDesign, ""); err == nil {
		t.Fatal("expected error")
	}

	got, _ := s.Orders.Get("A1")
	if got.Status != StatusNew {
		t.Errorf("cache stuck on optimistic value %s after rejected write", got.Status)
	}
	if len(fake.AuditRows) != 0 {
		t.Errorf("rejected mutation must not emit audit entries, got %d", len(fake.AuditRows))
	}
}

func TestChangeStatusInvalidStage(t *testing.T) {
	_, s, _, c := setup(t)
	s.Orders.UpsertOne(repo.Order{ID: "A1", Status: StatusNew})

	if _, err := c.ChangeStatus(context.Background(), "A1", "INVENTADO", ""); err == nil {
		t.Fatal("expected error for unknown stage")
	}
}

func TestNotificationFailureDoesNotRevert(t *testing.T) {
	fake, s, notifier, c := setup(t)
	seedOrder(fake, s, repo.Order{ID: "A1", Status: StatusNew, CreatedAt: time.Now()})
	notifier.err = errors.New("messaging down")
	notifier.notified = false

	res, err := c.ChangeStatus(context.Background(), "A1", StatusReady, "")
	if err != nil {
		t.Fatalf("status change must survive notification failure: %v", err)
	}
	if res.NotifyErr == nil {
		t.Error("expected surfaced notification error")
	}
	if got, _ := s.Orders.Get("A1"); got.Status != StatusReady {
		t.Errorf("status reverted on notification failure: %s", got.Status)
	}
}

func TestUpdatePaymentScenario(t *testing.T) {
	fake, s, _, c := setup(t)
	seedOrder(fake, s, repo.Order{
		ID:            "A1",
		Status:        StatusDesign,
		TotalAmount:   10000,
		DepositAmount: 4000,
		CreatedAt:     time.Now(),
	})

	before, _ := s.Orders.Get("A1")
	if before.Balance() != 6000 {
		t.Fatalf("balance = %d, want 6000", before.Balance())
	}

	if _, err := c.UpdatePayment(context.Background(), "A1", 10000, 10000, ""); err != nil {
		t.Fatalf("update payment: %v", err)
	}

	after, _ := s.Orders.Get("A1")
	if after.Balance() != 0 {
		t.Errorf("balance = %d, want 0", after.Balance())
	}

	if len(fake.AuditRows) != 1 {
		t.Fatalf("expected exactly 1 audit entry, got %d", len(fake.AuditRows))
	}
	entry := fake.AuditRows[0]
	if entry.ChangeType != repo.ChangeDeposit {
		t.Errorf("change type = %s, want %s", entry.ChangeType, repo.ChangeDeposit)
	}
	if *entry.OldAmount != 4000 || *entry.NewAmount != 10000 {
		t.Errorf("amounts = %d -> %d, want 4000 -> 10000", *entry.OldAmount, *entry.NewAmount)
	}
}

func TestUpdatePaymentBothAmountsChange(t *testing.T) {
	fake, s, _, c := setup(t)
	seedOrder(fake, s, repo.Order{ID: "A1", Status: StatusNew, TotalAmount: 5000, DepositAmount: 0, CreatedAt: time.Now()})

	if _, err := c.UpdatePayment(context.Background(), "A1", 2000, 8000, ""); err != nil {
		t.Fatalf("update payment: %v", err)
	}
	if len(fake.AuditRows) != 2 {
		t.Fatalf("expected 2 audit entries, got %d", len(fake.AuditRows))
	}
}

func TestAuditFailureDoesNotFailMutation(t *testing.T) {
	fake, s, _, c := setup(t)
	seedOrder(fake, s, repo.Order{ID: "A1", Status: StatusNew, CreatedAt: time.Now()})
	fake.ErrInsertAuditLog = errors.New("audit table gone")

	if _, err := c.ChangeStatus(context.Background(), "A1", StatusDesign, ""); err != nil {
		t.Fatalf("mutation must not fail on audit failure: %v", err)
	}
	if got, _ := s.Orders.Get("A1"); got.Status != StatusDesign {
		t.Errorf("status = %s, want %s", got.Status, StatusDesign)
	}
}

func TestMarkAllNotificationsReadRejectedReverts(t *testing.T) {
	fake, s, _, c := setup(t)
	n1 := repo.Notification{ID: "n1", Type: "new_message", Title: "Nuevo mensaje", Message: "hola", CreatedAt: time.Now()}
	n2 := repo.Notification{ID: "n2", Type: "new_message", Title: "Nuevo mensaje", Message: "chao", IsRead: true, CreatedAt: time.Now()}
	fake.NotificationRows["n1"] = n1
	fake.NotificationRows["n2"] = n2
	s.Notifications.UpsertOne(n1)
	s.Notifications.UpsertOne(n2)

	fake.ErrMarkAllNotificationsRead = errors.New("boom")

	if err := c.MarkAllNotificationsRead(context.Background()); err == nil {
		t.Fatal("expected error")
	}

	got, _ := s.Notifications.Get("n1")
	if got.IsRead {
		t.Error("cache stuck on optimistic IsRead after rejected write")
	}
	got, _ = s.Notifications.Get("n2")
	if !got.IsRead {
		t.Error("already-read notification lost its flag on revert")
	}
}

func TestMarkAllNotificationsReadSuccess(t *testing.T) {
	fake, s, _, c := setup(t)
	n := repo.Notification{ID: "n1", Type: "new_message", Title: "Nuevo mensaje", Message: "hola", CreatedAt: time.Now()}
	fake.NotificationRows["n1"] = n
	s.Notifications.UpsertOne(n)

	if err := c.MarkAllNotificationsRead(context.Background()); err != nil {
		t.Fatalf("mark all read: %v", err)
	}
	got, _ := s.Notifications.Get("n1")
	if !got.IsRead {
		t.Error("read flag not applied to cache")
	}
	if !fake.NotificationRows["n1"].IsRead {
		t.Error("read flag not persisted")
	}
}

func TestApplyMissingEntity(t *testing.T) {
	_, s, _, _ := setup(t)
	err := Apply(context.Background(), s.Orders, "nope",
		func(o repo.Order) repo.Order { return o },
		func(ctx context.Context, o repo.Order) error { return nil },
	)
	if !errors.Is(err, repo.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
