package tenant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a tenant lookup finds no matching row.
var ErrNotFound = errors.New("tenant not found")

// Store persists tenants in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Create(ctx context.Context, t *Tenant) error {
	t.ID = uuid.New()
	t.CreatedAt = time.Now().UTC()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO tenants (id, name, slug, api_key_hash, api_key_prefix, default_model, created_at, disabled)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, t.ID, t.Name, t.Slug, t.APIKeyHash, t.APIKeyPrefix, t.DefaultModel, t.CreatedAt, t.Disabled)
	if err != nil {
		return fmt.Errorf("inserting tenant: %w", err)
	}
	return nil
}

func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*Tenant, error) {
	return s.scanOne(ctx, `
		SELECT id, name, slug, api_key_hash, api_key_prefix, default_model, created_at, disabled
		FROM tenants WHERE id = $1`, id)
}

func (s *Store) GetByAPIKeyHash(ctx context.Context, hash string) (*Tenant, error) {
	return s.scanOne(ctx, `
		SELECT id, name, slug, api_key_hash, api_key_prefix, default_model, created_at, disabled
		FROM tenants WHERE api_key_hash = $1`, hash)
}

func (s *Store) scanOne(ctx context.Context, query string, arg any) (*Tenant, error) {
	row := s.pool.QueryRow(ctx, query, arg)
	var t Tenant
	err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.APIKeyHash, &t.APIKeyPrefix, &t.DefaultModel, &t.CreatedAt, &t.Disabled)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning tenant: %w", err)
	}
	return &t, nil
}
