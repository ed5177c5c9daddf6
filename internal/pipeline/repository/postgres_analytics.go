package repository

import (
	"context"
	"time"

	"marketplace_backend/internal/pipeline/domain"
)

func countWhere(params CountParams) *where {
	w := &where{}
	w.scope(params.Scope, "brand_id")
	if params.CreatedFrom != nil {
		w.add("created_at >= $%d", *params.CreatedFrom)
	}
	return w
}

func (r *PostgresStore) CountLeads(ctx context.Context, params CountParams) (LeadCounts, error) {
	counts := LeadCounts{}
	if params.Scope.Empty() {
		return counts, nil
	}

	w := countWhere(params)
	rows, err := r.pool.Query(ctx, "SELECT status, COUNT(*) FROM leads WHERE "+w.String()+" GROUP BY status", w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[domain.LeadStatus(status)] = n
	}
	return counts, rows.Err()
}

func (r *PostgresStore) CountInquiries(ctx context.Context, params CountParams) (InquiryCounts, error) {
	counts := InquiryCounts{ByStatus: map[domain.InquiryStatus]int{}}
	if params.Scope.Empty() {
		return counts, nil
	}

	w := countWhere(params)
	rows, err := r.pool.Query(ctx, `
		SELECT status, COUNT(*), COUNT(*) FILTER (WHERE reply_count > 0)
		FROM inquiries WHERE `+w.String()+` GROUP BY status`, w.args...)
	if err != nil {
		return InquiryCounts{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var n, answered int
		if err := rows.Scan(&status, &n, &answered); err != nil {
			return InquiryCounts{}, err
		}
		counts.ByStatus[domain.InquiryStatus(status)] = n
		counts.Answered += answered
	}
	return counts, rows.Err()
}

func (r *PostgresStore) BrandLeadStats(ctx context.Context, scope domain.Scope, since time.Time) ([]BrandLeadStat, error) {
	if scope.Empty() {
		return []BrandLeadStat{}, nil
	}

	w := &where{}
	w.add("(created_at >= $%d OR converted_at >= $1)", since)
	w.scope(scope, "brand_id")

	rows, err := r.pool.Query(ctx, `
		SELECT brand_id,
			COALESCE(SUM(estimated_value_cents) FILTER (WHERE status = 'converted' AND converted_at >= $1), 0)::BIGINT,
			COUNT(*) FILTER (WHERE status = 'converted' AND converted_at >= $1),
			COUNT(*) FILTER (WHERE created_at >= $1)
		FROM leads
		WHERE `+w.String()+`
		GROUP BY brand_id
		ORDER BY brand_id ASC`, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make([]BrandLeadStat, 0)
	for rows.Next() {
		var s BrandLeadStat
		if err := rows.Scan(&s.BrandID, &s.ConvertedValueCents, &s.ConvertedCount, &s.CreatedCount); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

func (r *PostgresStore) BrandInquiryCounts(ctx context.Context, scope domain.Scope, since time.Time) (map[string]int, error) {
	counts := map[string]int{}
	if scope.Empty() {
		return counts, nil
	}

	w := &where{}
	w.add("created_at >= $%d", since)
	w.scope(scope, "brand_id")

	rows, err := r.pool.Query(ctx, "SELECT brand_id, COUNT(*) FROM inquiries WHERE "+w.String()+" GROUP BY brand_id", w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var brandID string
		var n int
		if err := rows.Scan(&brandID, &n); err != nil {
			return nil, err
		}
		counts[brandID] = n
	}
	return counts, rows.Err()
}
