package repo

import (
	"context"
	"fmt"
)

// ListNotifications returns the latest unarchived notifications with
// their lead, newest first.
func (r *PostgresRepository) ListNotifications(ctx context.Context, limit int) ([]Notification, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT n.id, n.lead_id, n.type, n.title, n.message, n.is_read, n.is_archived, n.created_at,
       l.name, l.phone_number, l.profile_picture_url
FROM notifications n
LEFT JOIN leads l ON l.id = n.lead_id
WHERE n.is_archived = FALSE
ORDER BY n.created_at DESC
LIMIT $1;
`
	rows, err := r.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []Notification
	for rows.Next() {
		var n Notification
		var leadName, leadPhone, leadPic *string
		if err := rows.Scan(
			&n.ID, &n.LeadID, &n.Type, &n.Title, &n.Message,
			&n.IsRead, &n.IsArchived, &n.CreatedAt,
			&leadName, &leadPhone, &leadPic,
		); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
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
func (r *PostgresRepository) InsertNotification(ctx context.Context, n Notification) (*Notification, error) {
	const q = `
INSERT INTO notifications (id, lead_id, type, title, message)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, lead_id, type, title, message, is_read, is_archived, created_at;
`
	var inserted Notification
	err := r.pool.QueryRow(ctx, q, n.ID, n.LeadID, n.Type, n.Title, n.Message).Scan(
		&inserted.ID, &inserted.LeadID, &inserted.Type, &inserted.Title, &inserted.Message,
		&inserted.IsRead, &inserted.IsArchived, &inserted.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert notification: %w", err)
	}
	return &inserted, nil
}

// MarkNotificationRead flips the read flag on one notification.
func (r *PostgresRepository) MarkNotificationRead(ctx context.Context, id string) error {
	const q = `UPDATE notifications SET is_read = TRUE WHERE id = $1;`
	ct, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("mark notification read %s: %w", id, ErrNotFound)
	}
	return nil
}

// MarkAllNotificationsRead flips the read flag on every unread notification.
func (r *PostgresRepository) MarkAllNotificationsRead(ctx context.Context) error {
	const q = `UPDATE notifications SET is_read = TRUE WHERE is_read = FALSE;`
	if _, err := r.pool.Exec(ctx, q); err != nil {
		return fmt.Errorf("mark all notifications read: %w", err)
	}
	return nil
}

// ArchiveNotification hides a notification from the inbox. Rows are
// archived, never deleted.
func (r *PostgresRepository) ArchiveNotification(ctx context.Context, id string) error {
	const q = `UPDATE notifications SET is_archived = TRUE WHERE id = $1;`
	ct, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return fmt.Errorf("archive notification: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("archive notification %s: %w", id, ErrNotFound)
	}
	return nil
}
