package session

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RoleStore reads role assignments. LookupRole reports found=false when the
// user has no row.
type RoleStore interface {
	LookupRole(ctx context.Context, userID string) (role string, found bool, err error)
	OwnedBrands(ctx context.Context, userID string) ([]string, error)
}

// PostgresRoleStore reads user_roles and brand_members.
type PostgresRoleStore struct {
	pool *pgxpool.Pool
}

// NewPostgresRoleStore creates a role store on pool.
func NewPostgresRoleStore(pool *pgxpool.Pool) *PostgresRoleStore {
	return &PostgresRoleStore{pool: pool}
}

func (s *PostgresRoleStore) LookupRole(ctx context.Context, userID string) (string, bool, error) {
	var role string
	err := s.pool.QueryRow(ctx, `SELECT role FROM user_roles WHERE user_id = $1`, userID).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return role, true, nil
}

func (s *PostgresRoleStore) OwnedBrands(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT brand_id
		FROM brand_members
		WHERE user_id = $1
		ORDER BY brand_id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	brands := make([]string, 0)
	for rows.Next() {
		var brandID string
		if err := rows.Scan(&brandID); err != nil {
			return nil, err
		}
		brands = append(brands, brandID)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return brands, nil
}

// MemoryRoleStore holds role assignments in memory, for local development and tests.
type MemoryRoleStore struct {
	mu     sync.RWMutex
	roles  map[string]string
	brands map[string][]string
}

// NewMemoryRoleStore creates an empty store.
func NewMemoryRoleStore() *MemoryRoleStore {
	return &MemoryRoleStore{roles: map[string]string{}, brands: map[string][]string{}}
}

// Assign sets userID's role and owned brands.
func (s *MemoryRoleStore) Assign(userID, role string, brands ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles[userID] = role
	owned := append([]string(nil), brands...)
	sort.Strings(owned)
	s.brands[userID] = owned
}

func (s *MemoryRoleStore) LookupRole(ctx context.Context, userID string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	role, ok := s.roles[userID]
	return role, ok, nil
}

func (s *MemoryRoleStore) OwnedBrands(ctx context.Context, userID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.brands[userID]...), nil
}
