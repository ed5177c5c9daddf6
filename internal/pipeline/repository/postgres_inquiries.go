package repository

import (
	"context"
	"errors"
	"time"

	"marketplace_backend/internal/pipeline/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const inquiryColumns = `id, brand_id, customer_name, customer_email, customer_phone, subject, message, inquiry_type,
	status, priority, source, reply_count, created_at, updated_at, read_at, replied_at`

func scanInquiry(row pgx.Row) (domain.Inquiry, error) {
	var q domain.Inquiry
	var inquiryType, status, priority string
	err := row.Scan(
		&q.ID, &q.BrandID, &q.CustomerName, &q.CustomerEmail, &q.CustomerPhone, &q.Subject, &q.Message, &inquiryType,
		&status, &priority, &q.Source, &q.ReplyCount, &q.CreatedAt, &q.UpdatedAt, &q.ReadAt, &q.RepliedAt,
	)
	if err != nil {
		return domain.Inquiry{}, err
	}
	q.InquiryType = domain.InquiryType(inquiryType)
	q.Status = domain.InquiryStatus(status)
	q.Priority = domain.Priority(priority)
	q.CreatedAt = q.CreatedAt.UTC()
	q.UpdatedAt = q.UpdatedAt.UTC()
	q.ReadAt = utcPtr(q.ReadAt)
	q.RepliedAt = utcPtr(q.RepliedAt)
	return q, nil
}

func (r *PostgresStore) GetInquiry(ctx context.Context, id uuid.UUID) (domain.Inquiry, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+inquiryColumns+` FROM inquiries WHERE id = $1`, id)
	inquiry, err := scanInquiry(row)
	return inquiry, mapPgError(err)
}

func (r *PostgresStore) ListInquiries(ctx context.Context, params ListParams) (Page[domain.Inquiry], error) {
	if params.Scope.Empty() {
		return Page[domain.Inquiry]{Items: []domain.Inquiry{}}, nil
	}

	w := listWhere(params, "customer_name", "customer_email", "subject")

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM inquiries WHERE "+w.String(), w.args...).Scan(&total); err != nil {
		return Page[domain.Inquiry]{}, err
	}

	query := "SELECT " + inquiryColumns + " FROM inquiries WHERE " + w.String()
	query += orderAndPage(w, inquirySortColumns, params)

	rows, err := r.pool.Query(ctx, query, w.args...)
	if err != nil {
		return Page[domain.Inquiry]{}, err
	}
	defer rows.Close()

	items := make([]domain.Inquiry, 0)
	for rows.Next() {
		inquiry, err := scanInquiry(rows)
		if err != nil {
			return Page[domain.Inquiry]{}, err
		}
		items = append(items, inquiry)
	}
	if rows.Err() != nil {
		return Page[domain.Inquiry]{}, rows.Err()
	}

	return Page[domain.Inquiry]{Items: items, Total: total}, nil
}

func (r *PostgresStore) CreateInquiry(ctx context.Context, q domain.Inquiry) (domain.Inquiry, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO inquiries (`+inquiryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING `+inquiryColumns,
		q.ID, q.BrandID, q.CustomerName, q.CustomerEmail, q.CustomerPhone, q.Subject, q.Message, string(q.InquiryType),
		string(q.Status), string(q.Priority), q.Source, q.ReplyCount, q.CreatedAt, q.UpdatedAt, q.ReadAt, q.RepliedAt,
	)
	created, err := scanInquiry(row)
	return created, mapPgError(err)
}

const updateInquirySQL = `
	UPDATE inquiries SET
		customer_phone = $3, inquiry_type = $4, status = $5, priority = $6,
		updated_at = $7, read_at = $8, replied_at = $9, reply_count = reply_count + $10
	WHERE id = $1 AND updated_at = $2
	RETURNING ` + inquiryColumns

func (r *PostgresStore) UpdateInquiry(ctx context.Context, q domain.Inquiry, expectedUpdatedAt time.Time) (domain.Inquiry, error) {
	row := r.pool.QueryRow(ctx, updateInquirySQL,
		q.ID, expectedUpdatedAt, q.CustomerPhone, string(q.InquiryType), string(q.Status), string(q.Priority),
		q.UpdatedAt, q.ReadAt, q.RepliedAt, 0,
	)
	updated, err := scanInquiry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Inquiry{}, r.versionMiss(ctx, "inquiries", q.ID)
	}
	return updated, mapPgError(err)
}

func (r *PostgresStore) DeleteInquiry(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM inquiries WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const replyColumns = `id, inquiry_id, admin_id, message, is_internal_note, created_at`

func scanReply(row pgx.Row) (domain.Reply, error) {
	var reply domain.Reply
	if err := row.Scan(&reply.ID, &reply.InquiryID, &reply.AdminID, &reply.Message, &reply.IsInternalNote, &reply.CreatedAt); err != nil {
		return domain.Reply{}, err
	}
	reply.CreatedAt = reply.CreatedAt.UTC()
	return reply, nil
}

func (r *PostgresStore) AddReply(ctx context.Context, reply domain.Reply, q domain.Inquiry, expectedUpdatedAt time.Time) (domain.Reply, domain.Inquiry, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.Reply{}, domain.Inquiry{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var updated domain.Inquiry
	if reply.IsInternalNote {
		updated, err = scanInquiry(tx.QueryRow(ctx, `SELECT `+inquiryColumns+` FROM inquiries WHERE id = $1 FOR SHARE`, reply.InquiryID))
	} else {
		updated, err = scanInquiry(tx.QueryRow(ctx, updateInquirySQL,
			q.ID, expectedUpdatedAt, q.CustomerPhone, string(q.InquiryType), string(q.Status), string(q.Priority),
			q.UpdatedAt, q.ReadAt, q.RepliedAt, 1,
		))
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Reply{}, domain.Inquiry{}, r.versionMiss(ctx, "inquiries", q.ID)
		}
	}
	if err != nil {
		return domain.Reply{}, domain.Inquiry{}, mapPgError(err)
	}

	created, err := scanReply(tx.QueryRow(ctx, `
		INSERT INTO replies (`+replyColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+replyColumns,
		reply.ID, reply.InquiryID, reply.AdminID, reply.Message, reply.IsInternalNote, reply.CreatedAt,
	))
	if err != nil {
		return domain.Reply{}, domain.Inquiry{}, mapPgError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Reply{}, domain.Inquiry{}, err
	}
	return created, updated, nil
}

func (r *PostgresStore) ListReplies(ctx context.Context, inquiryID uuid.UUID) ([]domain.Reply, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+replyColumns+` FROM replies
		WHERE inquiry_id = $1
		ORDER BY created_at ASC, id ASC
	`, inquiryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Reply, 0)
	for rows.Next() {
		reply, err := scanReply(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, reply)
	}
	return items, rows.Err()
}
