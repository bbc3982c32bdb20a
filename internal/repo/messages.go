package repo

import (
	"context"
	"fmt"
)

// ListMessages returns the full conversation log, oldest first.
func (r *PostgresRepository) ListMessages(ctx context.Context) ([]Message, error) {
	const q = `
SELECT id, lead_id, role, content, created_at
FROM message_logs
ORDER BY created_at ASC;
`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.LeadID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}

// ListLeadMessages returns the latest messages for one lead, oldest
// first so the chat window renders top-down.
func (r *PostgresRepository) ListLeadMessages(ctx context.Context, leadID string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `
SELECT id, lead_id, role, content, created_at
FROM (
    SELECT id, lead_id, role, content, created_at
    FROM message_logs
    WHERE lead_id = $1
    ORDER BY created_at DESC
    LIMIT $2
) latest
ORDER BY created_at ASC;
`
	rows, err := r.pool.Query(ctx, q, leadID, limit)
	if err != nil {
		return nil, fmt.Errorf("list lead messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.LeadID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan lead message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lead messages: %w", err)
	}
	return messages, nil
}

// InsertMessage appends one conversation log entry.
func (r *PostgresRepository) InsertMessage(ctx context.Context, msg Message) (*Message, error) {
	const q = `
INSERT INTO message_logs (id, lead_id, role, content)
VALUES ($1, $2, $3, $4)
RETURNING id, lead_id, role, content, created_at;
`
	var inserted Message
	err := r.pool.QueryRow(ctx, q, msg.ID, msg.LeadID, msg.Role, msg.Content).
		Scan(&inserted.ID, &inserted.LeadID, &inserted.Role, &inserted.Content, &inserted.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	return &inserted, nil
}
