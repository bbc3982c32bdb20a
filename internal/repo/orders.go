package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const orderColumns = `o.id, o.lead_id, o.status, o.total_amount, o.deposit_amount,
       o.description, o.material, o.dimensions, o.quantity, o.print_sides,
       o.finishing, o.file_urls, o.created_at, o.updated_at`

func scanOrder(row pgx.Row, withLead bool) (*Order, error) {
	var o Order
	dest := []any{
		&o.ID,
		&o.LeadID,
		&o.Status,
		&o.TotalAmount,
		&o.DepositAmount,
		&o.Description,
		&o.Material,
		&o.Dimensions,
		&o.Quantity,
		&o.PrintSides,
		&o.Finishing,
		&o.FileURLs,
		&o.CreatedAt,
		&o.UpdatedAt,
	}
	var (
		leadName  *string
		leadPhone *string
		leadRUT   *string
		leadAddr  *string
		leadMail  *string
	)
	if withLead {
		dest = append(dest, &leadName, &leadPhone, &leadRUT, &leadAddr, &leadMail)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if withLead && leadName != nil {
		o.Lead = &Lead{
			ID:      o.LeadID,
			Name:    *leadName,
			RUT:     leadRUT,
			Address: leadAddr,
			Email:   leadMail,
		}
		if leadPhone != nil {
			o.Lead.PhoneNumber = *leadPhone
		}
	}
	return &o, nil
}

// ListOrders returns all orders with their owning lead, newest first.
func (r *PostgresRepository) ListOrders(ctx context.Context) ([]Order, error) {
	q := fmt.Sprintf(`
SELECT %s, l.name, l.phone_number, l.rut, l.address, l.email
FROM orders o
LEFT JOIN leads l ON l.id = o.lead_id
ORDER BY o.created_at DESC;`, orderColumns)
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows, true)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return orders, nil
}

// GetOrder retrieves a single order with its owning lead.
func (r *PostgresRepository) GetOrder(ctx context.Context, id string) (*Order, error) {
	q := fmt.Sprintf(`
SELECT %s, l.name, l.phone_number, l.rut, l.address, l.email
FROM orders o
LEFT JOIN leads l ON l.id = o.lead_id
WHERE o.id = $1
LIMIT 1;`, orderColumns)
	o, err := scanOrder(r.pool.QueryRow(ctx, q, id), true)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get order %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// UpdateOrderStatus moves the order to a new workflow stage.
func (r *PostgresRepository) UpdateOrderStatus(ctx context.Context, id, status string) error {
	const q = `UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1;`
	ct, err := r.pool.Exec(ctx, q, id, status)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("update order status %s: %w", id, ErrNotFound)
	}
	return nil
}

// UpdateOrderPayment stores new deposit and total amounts.
func (r *PostgresRepository) UpdateOrderPayment(ctx context.Context, id string, deposit, total int64) error {
	const q = `
UPDATE orders
SET deposit_amount = $2, total_amount = $3, updated_at = NOW()
WHERE id = $1;
`
	ct, err := r.pool.Exec(ctx, q, id, deposit, total)
	if err != nil {
		return fmt.Errorf("update order payment: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("update order payment %s: %w", id, ErrNotFound)
	}
	return nil
}

// UpdateOrderFields applies the autosave-editable fields, keeping
// unset fields as-is. Status and amounts never travel this path.
func (r *PostgresRepository) UpdateOrderFields(ctx context.Context, id string, patch OrderFieldPatch) error {
	const q = `
UPDATE orders
SET description = COALESCE($2, description),
    material = COALESCE($3, material),
    dimensions = COALESCE($4, dimensions),
    quantity = COALESCE($5, quantity),
    print_sides = COALESCE($6, print_sides),
    finishing = COALESCE($7, finishing),
    file_urls = COALESCE($8, file_urls),
    updated_at = NOW()
WHERE id = $1;
`
	ct, err := r.pool.Exec(ctx, q, id,
		patch.Description,
		patch.Material,
		patch.Dimensions,
		patch.Quantity,
		patch.PrintSides,
		patch.Finishing,
		patch.FileURLs,
	)
	if err != nil {
		return fmt.Errorf("update order fields: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("update order fields %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteOrders removes the given orders and their audit trail.
func (r *PostgresRepository) DeleteOrders(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return r.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM audit_logs WHERE order_id = ANY($1);`, ids); err != nil {
			return fmt.Errorf("delete order audit logs: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM orders WHERE id = ANY($1);`, ids); err != nil {
			return fmt.Errorf("delete orders: %w", err)
		}
		return nil
	})
}
