package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

const leadColumns = `id, name, phone_number, email, rut, address, business_name,
       ai_enabled, profile_picture_url, last_interaction, created_at, updated_at`

func scanLead(row pgx.Row) (*Lead, error) {
	var l Lead
	if err := row.Scan(
		&l.ID,
		&l.Name,
		&l.PhoneNumber,
		&l.Email,
		&l.RUT,
		&l.Address,
		&l.BusinessName,
		&l.AIEnabled,
		&l.ProfilePictureURL,
		&l.LastInteraction,
		&l.CreatedAt,
		&l.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &l, nil
}

// ListLeads returns all leads ordered by name ascending.
func (r *PostgresRepository) ListLeads(ctx context.Context) ([]Lead, error) {
	q := fmt.Sprintf(`SELECT %s FROM leads ORDER BY name ASC;`, leadColumns)
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	var leads []Lead
	for rows.Next() {
		l, err := scanLead(rows)
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
func (r *PostgresRepository) GetLead(ctx context.Context, id string) (*Lead, error) {
	q := fmt.Sprintf(`SELECT %s FROM leads WHERE id = $1 LIMIT 1;`, leadColumns)
	l, err := scanLead(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get lead %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get lead: %w", err)
	}
	return l, nil
}

// GetLeadByPhone retrieves a lead by its phone number, the routing key
// for inbound messaging events.
func (r *PostgresRepository) GetLeadByPhone(ctx context.Context, phone string) (*Lead, error) {
	q := fmt.Sprintf(`SELECT %s FROM leads WHERE phone_number = $1 LIMIT 1;`, leadColumns)
	l, err := scanLead(r.pool.QueryRow(ctx, q, phone))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get lead by phone: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("get lead by phone: %w", err)
	}
	return l, nil
}

// InsertLead creates a new lead record.
func (r *PostgresRepository) InsertLead(ctx context.Context, lead Lead) (*Lead, error) {
	q := fmt.Sprintf(`
INSERT INTO leads (id, name, phone_number, email, rut, address, business_name, ai_enabled)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING %s;`, leadColumns)
	inserted, err := scanLead(r.pool.QueryRow(ctx, q,
		lead.ID,
		lead.Name,
		lead.PhoneNumber,
		lead.Email,
		lead.RUT,
		lead.Address,
		lead.BusinessName,
		lead.AIEnabled,
	))
	if err != nil {
		return nil, fmt.Errorf("insert lead: %w", err)
	}
	return inserted, nil
}

// UpdateLead applies the provided patch, keeping unset fields as-is.
func (r *PostgresRepository) UpdateLead(ctx context.Context, id string, patch LeadPatch) error {
	const q = `
UPDATE leads
SET name = COALESCE($2, name),
    phone_number = COALESCE($3, phone_number),
    email = COALESCE($4, email),
    rut = COALESCE($5, rut),
    address = COALESCE($6, address),
    business_name = COALESCE($7, business_name),
    updated_at = NOW()
WHERE id = $1;
`
	ct, err := r.pool.Exec(ctx, q, id,
		patch.Name,
		patch.PhoneNumber,
		patch.Email,
		patch.RUT,
		patch.Address,
		patch.BusinessName,
	)
	if err != nil {
		return fmt.Errorf("update lead: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("update lead %s: %w", id, ErrNotFound)
	}
	return nil
}

// SetLeadAI toggles the AI auto-response flag.
func (r *PostgresRepository) SetLeadAI(ctx context.Context, id string, enabled bool) error {
	const q = `UPDATE leads SET ai_enabled = $2, updated_at = NOW() WHERE id = $1;`
	ct, err := r.pool.Exec(ctx, q, id, enabled)
	if err != nil {
		return fmt.Errorf("set lead ai: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("set lead ai %s: %w", id, ErrNotFound)
	}
	return nil
}

// SetLeadProfilePicture stores the synced profile picture URL.
func (r *PostgresRepository) SetLeadProfilePicture(ctx context.Context, id, url string) error {
	const q = `UPDATE leads SET profile_picture_url = $2, updated_at = NOW() WHERE id = $1;`
	ct, err := r.pool.Exec(ctx, q, id, url)
	if err != nil {
		return fmt.Errorf("set lead profile picture: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("set lead profile picture %s: %w", id, ErrNotFound)
	}
	return nil
}

// TouchLeadInteraction bumps last_interaction after an inbound message.
func (r *PostgresRepository) TouchLeadInteraction(ctx context.Context, id string, at time.Time) error {
	const q = `UPDATE leads SET last_interaction = $2, updated_at = NOW() WHERE id = $1;`
	if _, err := r.pool.Exec(ctx, q, id, at); err != nil {
		return fmt.Errorf("touch lead interaction: %w", err)
	}
	return nil
}
