package mutate

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"printdesk/internal/audit"
	"printdesk/internal/metrics"
	"printdesk/internal/repo"
	"printdesk/internal/store"
)

// Order workflow stages. The board presents them in this order, but
// any stage may move to any other stage.
const (
	StatusNew        = "NUEVO"
	StatusDesign     = "DISEÑO"
	StatusProduction = "PRODUCCIÓN"
	StatusReady      = "LISTO"
	StatusDelivered  = "ENTREGADO"
)

// WorkflowStages lists the stages in board order.
var WorkflowStages = []string{StatusNew, StatusDesign, StatusProduction, StatusReady, StatusDelivered}

// ValidStatus reports whether s is a known workflow stage.
func ValidStatus(s string) bool {
	return slices.Contains(WorkflowStages, s)
}

// Notifier pushes customer-facing notifications through the external
// messaging service.
type Notifier interface {
	NotifyStatusChange(ctx context.Context, orderID, newStatus string) (bool, error)
	NotifyPaymentUpdate(ctx context.Context, orderID string, deposit, total int64) (bool, error)
}

// Apply performs one optimistic mutation: patch the cached entity,
// push the write, and revert the cache if the write fails. The caller
// sees either a nil error with the cache already current, or an error
// with the cache back at its pre-patch value.
func Apply[T store.Entity](
	ctx context.Context,
	col *store.Collection[T],
	id string,
	patch func(T) T,
	write func(context.Context, T) error,
) error {
	pre, ok := col.Get(id)
	if !ok {
		return fmt.Errorf("apply %s: %w", id, repo.ErrNotFound)
	}

	next := patch(pre)
	col.UpsertLocal(next)

	if err := write(ctx, next); err != nil {
		col.UpsertOne(pre)
		col.ConfirmLocal(id)
		return err
	}

	col.ConfirmLocal(id)
	return nil
}

// Result carries the outcome of a mutation whose side effects may
// partially fail without reverting the primary change.
type Result struct {
	// Notified reports whether the customer actually received a
	// message, which depends on the lead having a phone number.
	Notified bool
	// NotifyErr is set when the primary write landed but the customer
	// notification failed. The mutation stands regardless.
	NotifyErr error
}

// Coordinator wraps user edits: optimistic cache update, remote write,
// revert on failure, and the audited side effects of the dedicated
// status and payment paths.
type Coordinator struct {
	logger   *slog.Logger
	metrics  *metrics.Metrics
	repo     repo.Repository
	store    *store.Store
	audit    *audit.Recorder
	notifier Notifier
}

// NewCoordinator wires the coordinator. notifier may be nil in tests.
func NewCoordinator(r repo.Repository, s *store.Store, rec *audit.Recorder, n Notifier, logger *slog.Logger, m *metrics.Metrics) *Coordinator {
	return &Coordinator{
		logger:   logger.With("component", "coordinator"),
		metrics:  m,
		repo:     r,
		store:    s,
		audit:    rec,
		notifier: n,
	}
}

func (c *Coordinator) countMutation(entity, outcome string) {
	if c.metrics != nil {
		c.metrics.Mutations.WithLabelValues(entity, outcome).Inc()
	}
}

// ChangeStatus moves an order to a new workflow stage. Exactly one
// STATUS_CHANGE audit entry is emitted after the write is
// acknowledged; the customer notification is attempted afterwards and
// never reverts the change.
func (c *Coordinator) ChangeStatus(ctx context.Context, orderID, newStatus, changedBy string) (Result, error) {
	if !ValidStatus(newStatus) {
		return Result{}, fmt.Errorf("unknown status %q", newStatus)
	}

	pre, ok := c.store.Orders.Get(orderID)
	if !ok {
		return Result{}, fmt.Errorf("order %s: %w", orderID, repo.ErrNotFound)
	}
	oldStatus := pre.Status

	err := Apply(ctx, c.store.Orders, orderID,
		func(o repo.Order) repo.Order {
			o.Status = newStatus
			return o
		},
		func(ctx context.Context, o repo.Order) error {
			return c.repo.UpdateOrderStatus(ctx, o.ID, o.Status)
		},
	)
	if err != nil {
		c.countMutation("order_status", "error")
		return Result{}, fmt.Errorf("change status: %w", err)
	}
	c.countMutation("order_status", "ok")

	if oldStatus != newStatus {
		c.audit.StatusChange(ctx, orderID, oldStatus, newStatus, changedBy)
	}

	res := Result{}
	if c.notifier != nil {
		notified, nerr := c.notifier.NotifyStatusChange(ctx, orderID, newStatus)
		res.Notified = notified
		if nerr != nil {
			res.NotifyErr = nerr
			c.logger.Warn("status notification failed", "order_id", orderID, "error", nerr)
		}
	}
	return res, nil
}

// UpdatePayment stores new deposit and total amounts. One audit entry
// per changed amount (PAYMENT_DEPOSIT and/or PAYMENT_TOTAL_UPDATE).
func (c *Coordinator) UpdatePayment(ctx context.Context, orderID string, deposit, total int64, changedBy string) (Result, error) {
	if deposit < 0 || total < 0 {
		return Result{}, fmt.Errorf("amounts must be non-negative")
	}

	pre, ok := c.store.Orders.Get(orderID)
	if !ok {
		return Result{}, fmt.Errorf("order %s: %w", orderID, repo.ErrNotFound)
	}
	oldDeposit, oldTotal := pre.DepositAmount, pre.TotalAmount

	err := Apply(ctx, c.store.Orders, orderID,
		func(o repo.Order) repo.Order {
			o.DepositAmount = deposit
			o.TotalAmount = total
			return o
		},
		func(ctx context.Context, o repo.Order) error {
			return c.repo.UpdateOrderPayment(ctx, o.ID, o.DepositAmount, o.TotalAmount)
		},
	)
	if err != nil {
		c.countMutation("order_payment", "error")
		return Result{}, fmt.Errorf("update payment: %w", err)
	}
	c.countMutation("order_payment", "ok")

	if oldDeposit != deposit {
		c.audit.PaymentUpdate(ctx, orderID, oldDeposit, deposit, audit.PaymentDeposit, changedBy)
	}
	if oldTotal != total {
		c.audit.PaymentUpdate(ctx, orderID, oldTotal, total, audit.PaymentTotal, changedBy)
	}

	res := Result{}
	if c.notifier != nil {
		notified, nerr := c.notifier.NotifyPaymentUpdate(ctx, orderID, deposit, total)
		res.Notified = notified
		if nerr != nil {
			res.NotifyErr = nerr
			c.logger.Warn("payment notification failed", "order_id", orderID, "error", nerr)
		}
	}
	return res, nil
}

// UpdateOrderFields applies the generic (autosave) field patch. No
// audit entries: only the dedicated paths above are audited.
func (c *Coordinator) UpdateOrderFields(ctx context.Context, orderID string, patch repo.OrderFieldPatch) error {
	err := Apply(ctx, c.store.Orders, orderID,
		func(o repo.Order) repo.Order {
			if patch.Description != nil {
				o.Description = patch.Description
			}
			if patch.Material != nil {
				o.Material = patch.Material
			}
			if patch.Dimensions != nil {
				o.Dimensions = patch.Dimensions
			}
			if patch.Quantity != nil {
				o.Quantity = patch.Quantity
			}
			if patch.PrintSides != nil {
				o.PrintSides = patch.PrintSides
			}
			if patch.Finishing != nil {
				o.Finishing = patch.Finishing
			}
			if patch.FileURLs != nil {
				o.FileURLs = patch.FileURLs
			}
			return o
		},
		func(ctx context.Context, o repo.Order) error {
			return c.repo.UpdateOrderFields(ctx, o.ID, patch)
		},
	)
	if err != nil {
		c.countMutation("order_fields", "error")
		return fmt.Errorf("update order fields: %w", err)
	}
	c.countMutation("order_fields", "ok")
	return nil
}

// DeleteOrders removes orders from the database and the cache.
func (c *Coordinator) DeleteOrders(ctx context.Context, ids []string) error {
	if err := c.repo.DeleteOrders(ctx, ids); err != nil {
		c.countMutation("order_delete", "error")
		return fmt.Errorf("delete orders: %w", err)
	}
	for _, id := range ids {
		c.store.Orders.RemoveOne(id)
	}
	c.countMutation("order_delete", "ok")
	return nil
}

// UpdateLead applies a lead patch optimistically.
func (c *Coordinator) UpdateLead(ctx context.Context, leadID string, patch repo.LeadPatch) error {
	err := Apply(ctx, c.store.Leads, leadID,
		func(l repo.Lead) repo.Lead {
			if patch.Name != nil {
				l.Name = *patch.Name
			}
			if patch.PhoneNumber != nil {
				l.PhoneNumber = *patch.PhoneNumber
			}
			if patch.Email != nil {
				l.Email = patch.Email
			}
			if patch.RUT != nil {
				l.RUT = patch.RUT
			}
			if patch.Address != nil {
				l.Address = patch.Address
			}
			if patch.BusinessName != nil {
				l.BusinessName = patch.BusinessName
			}
			return l
		},
		func(ctx context.Context, l repo.Lead) error {
			return c.repo.UpdateLead(ctx, l.ID, patch)
		},
	)
	if err != nil {
		c.countMutation("lead", "error")
		return fmt.Errorf("update lead: %w", err)
	}
	c.countMutation("lead", "ok")
	return nil
}

// SetLeadAI toggles the AI auto-response flag optimistically.
func (c *Coordinator) SetLeadAI(ctx context.Context, leadID string, enabled bool) error {
	err := Apply(ctx, c.store.Leads, leadID,
		func(l repo.Lead) repo.Lead {
			l.AIEnabled = enabled
			return l
		},
		func(ctx context.Context, l repo.Lead) error {
			return c.repo.SetLeadAI(ctx, l.ID, l.AIEnabled)
		},
	)
	if err != nil {
		c.countMutation("lead_ai", "error")
		return fmt.Errorf("set lead ai: %w", err)
	}
	c.countMutation("lead_ai", "ok")
	return nil
}

// MarkNotificationRead flips the read flag optimistically.
func (c *Coordinator) MarkNotificationRead(ctx context.Context, id string) error {
	err := Apply(ctx, c.store.Notifications, id,
		func(n repo.Notification) repo.Notification {
			n.IsRead = true
			return n
		},
		func(ctx context.Context, n repo.Notification) error {
			return c.repo.MarkNotificationRead(ctx, n.ID)
		},
	)
	if err != nil {
		c.countMutation("notification", "error")
		return fmt.Errorf("mark notification read: %w", err)
	}
	c.countMutation("notification", "ok")
	return nil
}

// MarkAllNotificationsRead flips every unread flag optimistically and
// restores the pre-images if the write is rejected.
func (c *Coordinator) MarkAllNotificationsRead(ctx context.Context) error {
	var flipped []repo.Notification
	for _, n := range c.store.Notifications.Snapshot() {
		if !n.IsRead {
			flipped = append(flipped, n)
			n.IsRead = true
			c.store.Notifications.UpsertOne(n)
		}
	}
	if err := c.repo.MarkAllNotificationsRead(ctx); err != nil {
		for _, pre := range flipped {
			c.store.Notifications.UpsertOne(pre)
		}
		c.countMutation("notification", "error")
		return fmt.Errorf("mark all notifications read: %w", err)
	}
	c.countMutation("notification", "ok")
	return nil
}

// ArchiveNotification hides a notification; the row survives archived.
func (c *Coordinator) ArchiveNotification(ctx context.Context, id string) error {
	pre, ok := c.store.Notifications.Get(id)
	if !ok {
		return fmt.Errorf("notification %s: %w", id, repo.ErrNotFound)
	}
	c.store.Notifications.RemoveOne(id)
	if err := c.repo.ArchiveNotification(ctx, id); err != nil {
		c.store.Notifications.UpsertOne(pre)
		c.countMutation("notification", "error")
		return fmt.Errorf("archive notification: %w", err)
	}
	c.countMutation("notification", "ok")
	return nil
}
