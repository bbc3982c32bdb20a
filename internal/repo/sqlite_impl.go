package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const sqliteLeadColumns = `id, name, phone_number, email, rut, address, business_name,
       ai_enabled, profile_picture_url, last_interaction, created_at, updated_at`

type sqliteRow interface {
	Scan(dest ...any) error
}

func scanSQLiteLead(row sqliteRow) (*Lead, error) {
	var l Lead
	var lastInteraction *string
	var createdAt, updatedAt string
	if err := row.Scan(
		&l.ID, &l.Name, &l.PhoneNumber, &l.Email, &l.RUT, &l.Address, &l.BusinessName,
		&l.AIEnabled, &l.ProfilePictureURL, &lastInteraction, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	l.LastInteraction = parseSQLiteTimePtr(lastInteraction)
	l.CreatedAt = parseSQLiteTime(createdAt)
	l.UpdatedAt = parseSQLiteTime(updatedAt)
	return &l, nil
}

// ListLeads returns all leads ordered by name ascending.
func (r *SQLiteRepository) ListLeads(ctx context.Context) ([]Lead, error) {
	q := fmt.Sprintf(`SELECT %s FROM leads ORDER BY name ASC;`, sqliteLeadColumns)
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	var leads []Lead
	for rows.Next() {
		l, err := scanSQLiteLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		leads = append(leads, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leads: %w", err)
	}
	return leads, nil
}

// GetLead retrieves a single lead by id.
func (r *SQLiteRepository) GetLead(ctx context.Context, id string) (*Lead, error) {
	q := fmt.Sprintf(`SELECT %s FROM leads WHERE id = ? LIMIT 1;`, sqliteLeadColumns)
	l, err := scanSQLiteLead(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get lead %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get lead: %w", err)
	}
	return l, nil
}

// GetLeadByPhone retrieves a lead by its phone number.
func (r *SQLiteRepository) GetLeadByPhone(ctx context.Context, phone string) (*Lead, error) {
	q := fmt.Sprintf(`SELECT %s FROM leads WHERE phone_number = ? LIMIT 1;`, sqliteLeadColumns)
	l, err := scanSQLiteLead(r.db.QueryRowContext(ctx, q, phone))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get lead by phone: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("get lead by phone: %w", err)
	}
	return l, nil
}

// InsertLead creates a new lead record.
func (r *SQLiteRepository) InsertLead(ctx context.Context, lead Lead) (*Lead, error) {
	const q = `
INSERT INTO leads (id, name, phone_number, email, rut, address, business_name, ai_enabled)
VALUES (?, ?, ?, ?, ?, ?, ?, ?);
`
	if _, err := r.db.ExecContext(ctx, q,
		lead.ID, lead.Name, lead.PhoneNumber, lead.Email, lead.RUT,
		lead.Address, lead.BusinessName, lead.AIEnabled,
	); err != nil {
		return nil, fmt.Errorf("insert lead: %w", err)
	}
	return r.GetLead(ctx, lead.ID)
}

// UpdateLead applies the provided patch, keeping unset fields as-is.
func (r *SQLiteRepository) UpdateLead(ctx context.Context, id string, patch LeadPatch) error {
	const q = `
UPDATE leads
SET name = COALESCE(?, name),
    phone_number = COALESCE(?, phone_number),
    email = COALESCE(?, email),
    rut = COALESCE(?, rut),
    address = COALESCE(?, address),
    business_name = COALESCE(?, business_name),
    updated_at = ?
WHERE id = ?;
`
	res, err := r.db.ExecContext(ctx, q,
		patch.Name, patch.PhoneNumber, patch.Email, patch.RUT,
		patch.Address, patch.BusinessName, sqliteNow(), id,
	)
	if err != nil {
		return fmt.Errorf("update lead: %w", err)
	}
	return requireSQLiteRows(res, "update lead", id)
}

// SetLeadAI toggles the AI auto-response flag.
func (r *SQLiteRepository) SetLeadAI(ctx context.Context, id string, enabled bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE leads SET ai_enabled = ?, updated_at = ? WHERE id = ?;`, enabled, sqliteNow(), id)
	if err != nil {
		return fmt.Errorf("set lead ai: %w", err)
	}
	return requireSQLiteRows(res, "set lead ai", id)
}

// SetLeadProfilePicture stores the synced profile picture URL.
func (r *SQLiteRepository) SetLeadProfilePicture(ctx context.Context, id, url string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE leads SET profile_picture_url = ?, updated_at = ? WHERE id = ?;`, url, sqliteNow(), id)
	if err != nil {
		return fmt.Errorf("set lead profile picture: %w", err)
	}
	return requireSQLiteRows(res, "set lead profile picture", id)
}

// TouchLeadInteraction bumps last_interaction after an inbound message.
func (r *SQLiteRepository) TouchLeadInteraction(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE leads SET last_interaction = ?, updated_at = ? WHERE id = ?;`,
		at.UTC().Format(sqliteTimeLayout), sqliteNow(), id)
	if err != nil {
		return fmt.Errorf("touch lead interaction: %w", err)
	}
	return nil
}

const sqliteOrderColumns = `o.id, o.lead_id, o.status, o.total_amount, o.deposit_amount,
       o.description, o.material, o.dimensions, o.quantity, o.print_sides,
       o.finishing, o.file_urls, o.created_at, o.updated_at,
       l.name, l.phone_number, l.rut, l.address, l.email`

func scanSQLiteOrder(row sqliteRow) (*Order, error) {
	var o Order
	var finishing, fileURLs, createdAt, updatedAt string
	var leadName, leadPhone, leadRUT, leadAddr, leadMail *string
	if err := row.Scan(
		&o.ID, &o.LeadID, &o.Status, &o.TotalAmount, &o.DepositAmount,
		&o.Description, &o.Material, &o.Dimensions, &o.Quantity, &o.PrintSides,
		&finishing, &fileURLs, &createdAt, &updatedAt,
		&leadName, &leadPhone, &leadRUT, &leadAddr, &leadMail,
	); err != nil {
		return nil, err
	}
	o.Finishing = decodeStrings(finishing)
	o.FileURLs = decodeStrings(fileURLs)
	o.CreatedAt = parseSQLiteTime(createdAt)
	o.UpdatedAt = parseSQLiteTime(updatedAt)
	if leadName != nil {
		o.Lead = &Lead{ID: o.LeadID, Name: *leadName, RUT: leadRUT, Address: leadAddr, Email: leadMail}
		if leadPhone != nil {
			o.Lead.PhoneNumber = *leadPhone
		}
	}
	return &o, nil
}

// ListOrders returns all orders with their owning lead, newest first.
func (r *SQLiteRepository) ListOrders(ctx context.Context) ([]Order, error) {
	q := fmt.Sprintf(`
SELECT %s
FROM orders o
LEFT JOIN leads l ON l.id = o.lead_id
ORDER BY o.created_at DESC;`, sqliteOrderColumns)
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanSQLiteOrder(rows)
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
func (r *SQLiteRepository) GetOrder(ctx context.Context, id string) (*Order, error) {
	q := fmt.Sprintf(`
SELECT %s
FROM orders o
LEFT JOIN leads l ON l.id = o.lead_id
WHERE o.id = ?
LIMIT 1;`, sqliteOrderColumns)
	o, err := scanSQLiteOrder(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get order %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// UpdateOrderStatus moves the order to a new workflow stage.
func (r *SQLiteRepository) UpdateOrderStatus(ctx context.Context, id, status string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status = ?, updated_at = ? WHERE id = ?;`, status, sqliteNow(), id)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	return requireSQLiteRows(res, "update order status", id)
}

// UpdateOrderPayment stores new deposit and total amounts.
func (r *SQLiteRepository) UpdateOrderPayment(ctx context.Context, id string, deposit, total int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET deposit_amount = ?, total_amount = ?, updated_at = ? WHERE id = ?;`,
		deposit, total, sqliteNow(), id)
	if err != nil {
		return fmt.Errorf("update order payment: %w", err)
	}
	return requireSQLiteRows(res, "update order payment", id)
}

// UpdateOrderFields applies the autosave-editable fields.
func (r *SQLiteRepository) UpdateOrderFields(ctx context.Context, id string, patch OrderFieldPatch) error {
	var finishing, fileURLs *string
	if patch.Finishing != nil {
		v := encodeStrings(patch.Finishing)
		finishing = &v
	}
	if patch.FileURLs != nil {
		v := encodeStrings(patch.FileURLs)
		fileURLs = &v
	}
	const q = `
UPDATE orders
SET description = COALESCE(?, description),
    material = COALESCE(?, material),
    dimensions = COALESCE(?, dimensions),
    quantity = COALESCE(?, quantity),
    print_sides = COALESCE(?, print_sides),
    finishing = COALESCE(?, finishing),
    file_urls = COALESCE(?, file_urls),
    updated_at = ?
WHERE id = ?;
`
	res, err := r.db.ExecContext(ctx, q,
		patch.Description, patch.Material, patch.Dimensions, patch.Quantity,
		patch.PrintSides, finishing, fileURLs, sqliteNow(), id,
	)
	if err != nil {
		return fmt.Errorf("update order fields: %w", err)
	}
	return requireSQLiteRows(res, "update order fields", id)
}

// DeleteOrders removes the given orders and their audit trail.
func (r *SQLiteRepository) DeleteOrders(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete orders: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM audit_logs WHERE order_id IN (%s);`, placeholders), args...); err != nil {
		return fmt.Errorf("delete order audit logs: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM orders WHERE id IN (%s);`, placeholders), args...); err != nil {
		return fmt.Errorf("delete orders: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete orders: %w", err)
	}
	return nil
}

// ListMessages returns the full conversation log, oldest first.
func (r *SQLiteRepository) ListMessages(ctx context.Context) ([]Message, error) {
	const q = `SELECT id, lead_id, role, content, created_at FROM message_logs ORDER BY created_at ASC;`
	return r.queryMessages(ctx, q)
}

// ListLeadMessages returns the latest messages for one lead, oldest first.
func (r *SQLiteRepository) ListLeadMessages(ctx context.Context, leadID string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `
SELECT id, lead_id, role, content, created_at
FROM (
    SELECT id, lead_id, role, content, created_at
    FROM message_logs
    WHERE lead_id = ?
    ORDER BY created_at DESC
    LIMIT ?
) latest
ORDER BY created_at ASC;
`
	return r.queryMessages(ctx, q, leadID, limit)
}

func (r *SQLiteRepository) queryMessages(ctx context.Context, q string, args ...any) ([]Message, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		var createdAt string
		if err := rows.Scan(&m.ID, &m.LeadID, &m.Role, &m.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.CreatedAt = parseSQLiteTime(createdAt)
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}

// InsertMessage appends one conversation log entry.
func (r *SQLiteRepository) InsertMessage(ctx context.Context, msg Message) (*Message, error) {
	const q = `INSERT INTO message_logs (id, lead_id, role, content) VALUES (?, ?, ?, ?);`
	if _, err := r.db.ExecContext(ctx, q, msg.ID, msg.LeadID, msg.Role, msg.Content); err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	row := r.db.QueryRowContext(ctx,
		`SELECT id, lead_id, role, content, created_at FROM message_logs WHERE id = ?;`, msg.ID)
	var inserted Message
	var createdAt string
	if err := row.Scan(&inserted.ID, &inserted.LeadID, &inserted.Role, &inserted.Content, &createdAt); err != nil {
		return nil, fmt.Errorf("reload message: %w", err)
	}
	inserted.CreatedAt = parseSQLiteTime(createdAt)
	return &inserted, nil
}

// ListNotifications returns the latest unarchived notifications, newest first.
func (r *SQLiteRepository) ListNotifications(ctx context.Context, limit int) ([]Notification, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT n.id, n.lead_id, n.type, n.title, n.message, n.is_read, n.is_archived, n.created_at,
       l.name, l.phone_number, l.profile_picture_url
FROM notifications n
LEFT JOIN leads l ON l.id = n.lead_id
WHERE n.is_archived = 0
ORDER BY n.created_at DESC
LIMIT ?;
`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []Notification
	for rows.Next() {
		var n Notification
		var createdAt string
		var leadName, leadPhone, leadPic *string
		if err := rows.Scan(
			&n.ID, &n.LeadID, &n.Type, &n.Title, &n.Message,
			&n.IsRead, &n.IsArchived, &createdAt,
			&leadName, &leadPhone, &leadPic,
		); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.CreatedAt = parseSQLiteTime(createdAt)
		if n.LeadID != nil && leadName != nil {
			n.Lead = &Lead{ID: *n.LeadID, Name: *leadName, ProfilePictureURL: leadPic}
			if leadPhone != nil {
				n.Lead.PhoneNumber = *leadPhone
			}
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return notifications, nil
}

// InsertNotification creates a new notification.
func (r *SQLiteRepository) InsertNotification(ctx context.Context, n Notification) (*Notification, error) {
	const q = `INSERT INTO notifications (id, lead_id, type, title, message) VALUES (?, ?, ?, ?, ?);`
	if _, err := r.db.ExecContext(ctx, q, n.ID, n.LeadID, n.Type, n.Title, n.Message); err != nil {
		return nil, fmt.Errorf("insert notification: %w", err)
	}
	n.CreatedAt = time.Now().UTC()
	return &n, nil
}

// MarkNotificationRead flips the read flag on one notification.
func (r *SQLiteRepository) MarkNotificationRead(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read = 1 WHERE id = ?;`, id)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return requireSQLiteRows(res, "mark notification read", id)
}

// MarkAllNotificationsRead flips the read flag on every unread notification.
func (r *SQLiteRepository) MarkAllNotificationsRead(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read = 1 WHERE is_read = 0;`); err != nil {
		return fmt.Errorf("mark all notifications read: %w", err)
	}
	return nil
}

// ArchiveNotification hides a notification from the inbox.
func (r *SQLiteRepository) ArchiveNotification(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_archived = 1 WHERE id = ?;`, id)
	if err != nil {
		return fmt.Errorf("archive notification: %w", err)
	}
	return requireSQLiteRows(res, "archive notification", id)
}

// InsertAuditLog appends an immutable change record for an order.
func (r *SQLiteRepository) InsertAuditLog(ctx context.Context, entry AuditLogEntry) error {
	const q = `
INSERT INTO audit_logs (id, order_id, change_type, old_status, new_status, old_amount, new_amount, details, changed_by)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);
`
	_, err := r.db.ExecContext(ctx, q,
		entry.ID, entry.OrderID, entry.ChangeType,
		entry.OldStatus, entry.NewStatus, entry.OldAmount, entry.NewAmount,
		entry.Details, entry.ChangedBy,
	)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

// ListOrderAuditLogs returns the change history of one order, newest first.
func (r *SQLiteRepository) ListOrderAuditLogs(ctx context.Context, orderID string) ([]AuditLogEntry, error) {
	const q = `
SELECT id, order_id, change_type, old_status, new_status, old_amount, new_amount, details, changed_by, created_at
FROM audit_logs
WHERE order_id = ?
ORDER BY created_at DESC;
`
	rows, err := r.db.QueryContext(ctx, q, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order audit logs: %w", err)
	}
	defer rows.Close()
	return scanSQLiteAuditLogs(rows, false)
}

// ListAuditLogs returns the global audit trail with order and lead context.
func (r *SQLiteRepository) ListAuditLogs(ctx context.Context, limit int) ([]AuditLogEntry, error) {
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
LIMIT ?;
`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	defer rows.Close()
	return scanSQLiteAuditLogs(rows, true)
}

func scanSQLiteAuditLogs(rows *sql.Rows, withContext bool) ([]AuditLogEntry, error) {
	var entries []AuditLogEntry
	for rows.Next() {
		var e AuditLogEntry
		var createdAt string
		dest := []any{
			&e.ID, &e.OrderID, &e.ChangeType,
			&e.OldStatus, &e.NewStatus, &e.OldAmount, &e.NewAmount,
			&e.Details, &e.ChangedBy, &createdAt,
		}
		if withContext {
			dest = append(dest, &e.OrderDescription, &e.LeadName)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		e.CreatedAt = parseSQLiteTime(createdAt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit logs: %w", err)
	}
	return entries, nil
}

// ListFiles returns every stored file's metadata, newest first.
func (r *SQLiteRepository) ListFiles(ctx context.Context) ([]FileMetadata, error) {
	const q = `
SELECT id, file_path, file_name, mime_type, lead_id, status, created_at
FROM lead_files
ORDER BY created_at DESC;
`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	var files []FileMetadata
	for rows.Next() {
		var f FileMetadata
		var createdAt string
		if err := rows.Scan(&f.ID, &f.FilePath, &f.FileName, &f.MimeType, &f.LeadID, &f.Status, &createdAt); err != nil {
			return nil, fmt.Errorf("scan file metadata: %w", err)
		}
		f.CreatedAt = parseSQLiteTime(createdAt)
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate files: %w", err)
	}
	return files, nil
}

// InsertFileMetadata records a newly stored file.
func (r *SQLiteRepository) InsertFileMetadata(ctx context.Context, f FileMetadata) (*FileMetadata, error) {
	const q = `INSERT INTO lead_files (id, file_path, file_name, mime_type, lead_id, status) VALUES (?, ?, ?, ?, ?, ?);`
	if _, err := r.db.ExecContext(ctx, q, f.ID, f.FilePath, f.FileName, f.MimeType, f.LeadID, f.Status); err != nil {
		return nil, fmt.Errorf("insert file metadata: %w", err)
	}
	f.CreatedAt = time.Now().UTC()
	return &f, nil
}

// DeleteFileMetadata removes the metadata row for a deleted file.
func (r *SQLiteRepository) DeleteFileMetadata(ctx context.Context, path string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM lead_files WHERE file_path = ?;`, path); err != nil {
		return fmt.Errorf("delete file metadata: %w", err)
	}
	return nil
}

func requireSQLiteRows(res sql.Result, op, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", op, id, ErrNotFound)
	}
	return nil
}
