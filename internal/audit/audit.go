package audit

import (
	"context"
	"fmt"
	"log/slog"

	"printdesk/internal/metrics"
	"printdesk/internal/repo"

	"github.com/google/uuid"
)

// PaymentKind selects which amount a payment audit entry tracks.
type PaymentKind string

const (
	PaymentDeposit PaymentKind = repo.ChangeDeposit
	PaymentTotal   PaymentKind = repo.ChangeTotalUpdate
)

// Recorder writes the order audit trail. Writes are best-effort: a
// failed insert is logged and swallowed, never propagated, and never
// rolls back the mutation that triggered it.
type Recorder struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
	repo    repo.Repository
}

// NewRecorder creates an audit recorder.
func NewRecorder(r repo.Repository, logger *slog.Logger, m *metrics.Metrics) *Recorder {
	return &Recorder{
		logger:  logger.With("component", "audit"),
		metrics: m,
		repo:    r,
	}
}

// StatusChange records one workflow stage transition.
func (r *Recorder) StatusChange(ctx context.Context, orderID, oldStatus, newStatus, changedBy string) {
	entry := repo.AuditLogEntry{
		ID:         uuid.NewString(),
		OrderID:    orderID,
		ChangeType: repo.ChangeStatus,
		OldStatus:  &oldStatus,
		NewStatus:  &newStatus,
		Details:    fmt.Sprintf("Estado cambiado de %s a %s", oldStatus, newStatus),
		ChangedBy:  orEmpty(changedBy),
	}
	r.insert(ctx, entry)
}

// PaymentUpdate records a deposit or total amount change.
func (r *Recorder) PaymentUpdate(ctx context.Context, orderID string, oldAmount, newAmount int64, kind PaymentKind, changedBy string) {
	details := fmt.Sprintf("Abono actualizado: $%d -> $%d", oldAmount, newAmount)
	if kind == PaymentTotal {
		details = fmt.Sprintf("Total actualizado: $%d -> $%d", oldAmount, newAmount)
	}
	entry := repo.AuditLogEntry{
		ID:         uuid.NewString(),
		OrderID:    orderID,
		ChangeType: string(kind),
		OldAmount:  &oldAmount,
		NewAmount:  &newAmount,
		Details:    details,
		ChangedBy:  orEmpty(changedBy),
	}
	r.insert(ctx, entry)
}

func (r *Recorder) insert(ctx context.Context, entry repo.AuditLogEntry) {
	if err := r.repo.InsertAuditLog(ctx, entry); err != nil {
		r.logger.Error("audit write failed", "order_id", entry.OrderID, "change_type", entry.ChangeType, "error", err)
		if r.metrics != nil {
			r.metrics.Errors.WithLabelValues("audit").Inc()
		}
		return
	}
	if r.metrics != nil {
		r.metrics.AuditEntries.WithLabelValues(entry.ChangeType).Inc()
	}
}

func orEmpty(changedBy string) string {
	if changedBy == "" {
		return "system"
	}
	return changedBy
}
