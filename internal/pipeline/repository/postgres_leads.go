package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marketplace_backend/internal/pipeline/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const leadColumns = `id, brand_id, customer_name, customer_email, customer_phone, source, status, priority,
	estimated_value_cents, notes, created_at, updated_at, contacted_at, qualified_at, converted_at`

func scanLead(row pgx.Row) (domain.Lead, error) {
	var l domain.Lead
	var source, status, priority string
	err := row.Scan(
		&l.ID, &l.BrandID, &l.CustomerName, &l.CustomerEmail, &l.CustomerPhone, &source, &status, &priority,
		&l.EstimatedValueCents, &l.Notes, &l.CreatedAt, &l.UpdatedAt, &l.ContactedAt, &l.QualifiedAt, &l.ConvertedAt,
	)
	if err != nil {
		return domain.Lead{}, err
	}
	l.Source = domain.LeadSource(source)
	l.Status = domain.LeadStatus(status)
	l.Priority = domain.Priority(priority)
	l.CreatedAt = l.CreatedAt.UTC()
	l.UpdatedAt = l.UpdatedAt.UTC()
	l.ContactedAt = utcPtr(l.ContactedAt)
	l.QualifiedAt = utcPtr(l.QualifiedAt)
	l.ConvertedAt = utcPtr(l.ConvertedAt)
	return l, nil
}

func (r *PostgresStore) GetLead(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)
	lead, err := scanLead(row)
	return lead, mapPgError(err)
}

func (r *PostgresStore) ListLeads(ctx context.Context, params ListParams) (Page[domain.Lead], error) {
	if params.Scope.Empty() {
		return Page[domain.Lead]{Items: []domain.Lead{}}, nil
	}

	w := listWhere(params, "customer_name", "customer_email", "customer_phone")

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM leads WHERE "+w.String(), w.args...).Scan(&total); err != nil {
		return Page[domain.Lead]{}, err
	}

	query := "SELECT " + leadColumns + " FROM leads WHERE " + w.String()
	query += orderAndPage(w, leadSortColumns, params)

	rows, err := r.pool.Query(ctx, query, w.args...)
	if err != nil {
		return Page[domain.Lead]{}, err
	}
	defer rows.Close()

	items := make([]domain.Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return Page[domain.Lead]{}, err
		}
		items = append(items, lead)
	}
	if rows.Err() != nil {
		return Page[domain.Lead]{}, rows.Err()
	}

	return Page[domain.Lead]{Items: items, Total: total}, nil
}

func (r *PostgresStore) CreateLead(ctx context.Context, l domain.Lead) (domain.Lead, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO leads (`+leadColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING `+leadColumns,
		l.ID, l.BrandID, l.CustomerName, l.CustomerEmail, l.CustomerPhone, string(l.Source), string(l.Status), string(l.Priority),
		l.EstimatedValueCents, l.Notes, l.CreatedAt, l.UpdatedAt, l.ContactedAt, l.QualifiedAt, l.ConvertedAt,
	)
	created, err := scanLead(row)
	return created, mapPgError(err)
}

func (r *PostgresStore) UpdateLead(ctx context.Context, l domain.Lead, expectedUpdatedAt time.Time) (domain.Lead, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE leads SET
			customer_name = $3, customer_email = $4, customer_phone = $5, source = $6, status = $7, priority = $8,
			estimated_value_cents = $9, notes = $10, updated_at = $11, contacted_at = $12, qualified_at = $13, converted_at = $14
		WHERE id = $1 AND updated_at = $2
		RETURNING `+leadColumns,
		l.ID, expectedUpdatedAt, l.CustomerName, l.CustomerEmail, l.CustomerPhone, string(l.Source), string(l.Status), string(l.Priority),
		l.EstimatedValueCents, l.Notes, l.UpdatedAt, l.ContactedAt, l.QualifiedAt, l.ConvertedAt,
	)
	updated, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, r.versionMiss(ctx, "leads", l.ID)
	}
	return updated, mapPgError(err)
}

func (r *PostgresStore) DeleteLead(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// versionMiss tells a vanished row from a concurrent modification after a
// guarded UPDATE matched nothing.
func (r *PostgresStore) versionMiss(ctx context.Context, table string, id uuid.UUID) error {
	var exists bool
	if err := r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)`, table), id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrConflict
}

const interactionColumns = `id, lead_id, interaction_type, interaction_date, subject, description, outcome, next_action, created_at`

func scanInteraction(row pgx.Row) (domain.LeadInteraction, error) {
	var in domain.LeadInteraction
	var kind string
	if err := row.Scan(&in.ID, &in.LeadID, &kind, &in.InteractionDate, &in.Subject, &in.Description, &in.Outcome, &in.NextAction, &in.CreatedAt); err != nil {
		return domain.LeadInteraction{}, err
	}
	in.InteractionType = domain.InteractionType(kind)
	in.InteractionDate = in.InteractionDate.UTC()
	in.CreatedAt = in.CreatedAt.UTC()
	return in, nil
}

func (r *PostgresStore) AddInteraction(ctx context.Context, in domain.LeadInteraction) (domain.LeadInteraction, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO lead_interactions (`+interactionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+interactionColumns,
		in.ID, in.LeadID, string(in.InteractionType), in.InteractionDate, in.Subject, in.Description, in.Outcome, in.NextAction, in.CreatedAt,
	)
	created, err := scanInteraction(row)
	return created, mapPgError(err)
}

func (r *PostgresStore) ListInteractions(ctx context.Context, leadID uuid.UUID) ([]domain.LeadInteraction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+interactionColumns+` FROM lead_interactions
		WHERE lead_id = $1
		ORDER BY interaction_date ASC, created_at ASC
	`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.LeadInteraction, 0)
	for rows.Next() {
		in, err := scanInteraction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, in)
	}
	return items, rows.Err()
}
