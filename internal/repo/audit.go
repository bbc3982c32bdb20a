package repo

import (
	"context"
	"fmt"
)

// InsertAuditLog appends an immutable change record for an order.
func (r *PostgresRepository) InsertAuditLog(ctx context.Context, entry AuditLogEntry) error {
	const q = `
INSERT INTO audit_logs (id, order_id, change_type, old_status, new_status, old_amount, new_amount, details, changed_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
`
	_, err := r.pool.Exec(ctx, q,
		entry.ID,
		entry.OrderID,
		entry.ChangeType,
		entry.OldStatus,
		entry.NewStatus,
		entry.OldAmount,
		entry.NewAmount,
		entry.Details,
		entry.ChangedBy,
	)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

// ListOrderAuditLogs returns the change history of one order, newest first.
func (r *PostgresRepository) ListOrderAuditLogs(ctx context.Context, orderID string) ([]AuditLogEntry, error) {
	const q = `
SELECT id, order_id, change_type, old_status, new_status, old_amount, new_amount, details, changed_by, created_at
FROM audit_logs
WHERE order_id = $1
ORDER BY created_at DESC;
`
	rows, err := r.pool.Query(ctx, q, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order audit logs: %w", err)
	}
	defer rows.Close()

	var entries []AuditLogEntry
	for rows.Next() {
		var e AuditLogEntry
		if err := rows.Scan(
			&e.ID, &e.OrderID, &e.ChangeType,
			&e.OldStatus, &e.NewStatus, &e.OldAmount, &e.NewAmount,
			&e.Details, &e.ChangedBy, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit logs: %w", err)
	}
	return entries, nil
}

// ListAuditLogs returns the global audit trail with order and lead
// context for the audit export, newest first.
func (r *PostgresRepository) ListAuditLogs(ctx context.Context, limit int) ([]AuditLogEntry, error) {
	if limit <= 0 {
		limit = 1000
	}
	const q = `
SELECT a.id, a.order_id, a.change_type, a.old_status, a.new_status, a.old_amount, a.new_amount,
       a.details, a.changed_by, a.created_at,
       o.description, l.name
FROM audit_logs a
LEFT JOIN orders o ON o.id = a.order_id
LEFT JOIN leads l ON l.id = o.lead_id
ORDER BY a.created_at DESC
LIMIT $1;
`
	rows, err := r.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	defer rows.Close()

	var entries []AuditLogEntry
	for rows.Next() {
		var e AuditLogEntry
		if err := rows.Scan(
			&e.ID, &e.OrderID, &e.ChangeType,
			&e.OldStatus, &e.NewStatus, &e.OldAmount, &e.NewAmount,
			&e.Details, &e.ChangedBy, &e.CreatedAt,
			&e.OrderDescription, &e.LeadName,
		); err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit logs: %w", err)
	}
	return entries, nil
}
