package repository

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"marketplace_backend/internal/pipeline/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// PostgresStore is the Store backed by Postgres through pgx.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a store on an open pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

var _ Store = (*PostgresStore)(nil)

func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return ErrConflict
		case pgForeignKeyViolation:
			return ErrNotFound
		}
	}
	return err
}

// where accumulates positional SQL predicates.
type where struct {
	clauses []string
	args    []interface{}
}

func (w *where) add(format string, value interface{}) {
	w.args = append(w.args, value)
	w.clauses = append(w.clauses, fmt.Sprintf(format, len(w.args)))
}

func (w *where) scope(s domain.Scope, column string) {
	if !s.All {
		w.add(column+" = ANY($%d)", s.BrandIDs)
	}
}

func (w *where) String() string {
	if len(w.clauses) == 0 {
		return "TRUE"
	}
	return strings.Join(w.clauses, " AND ")
}

func (w *where) next() int {
	return len(w.args) + 1
}

func listWhere(params ListParams, searchColumns ...string) *where {
	w := &where{}
	w.scope(params.Scope, "brand_id")
	if len(params.Statuses) > 0 {
		w.add("status = ANY($%d)", params.Statuses)
	}
	if params.Priority != "" {
		w.add("priority = $%d", params.Priority)
	}
	if params.CreatedFrom != nil {
		w.add("created_at >= $%d", *params.CreatedFrom)
	}
	if params.CreatedTo != nil {
		w.add("created_at < $%d", *params.CreatedTo)
	}
	if q := strings.TrimSpace(params.Search); q != "" {
		w.args = append(w.args, "%"+q+"%")
		ors := make([]string, 0, len(searchColumns))
		for _, col := range searchColumns {
			ors = append(ors, fmt.Sprintf("%s ILIKE $%d", col, len(w.args)))
		}
		w.clauses = append(w.clauses, "("+strings.Join(ors, " OR ")+")")
	}
	return w
}

func orderAndPage(w *where, columns map[string]string, params ListParams) string {
	order := "DESC"
	if !descending(params.SortOrder) {
		order = "ASC"
	}
	clause := fmt.Sprintf(" ORDER BY %s %s, id ASC", sortColumn(columns, params.SortBy), order)
	if params.Limit > 0 {
		clause += fmt.Sprintf(" LIMIT $%d", w.next())
		w.args = append(w.args, params.Limit)
	}
	if params.Offset > 0 {
		clause += fmt.Sprintf(" OFFSET $%d", w.next())
		w.args = append(w.args, params.Offset)
	}
	return clause
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
