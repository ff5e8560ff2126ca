package providerconfig

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("provider config not found")

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Upsert(ctx context.Context, pc *ProviderConfig) error {
	if pc.ID == uuid.Nil {
		pc.ID = uuid.New()
	}
	if pc.CreatedAt.IsZero() {
		pc.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO provider_configs (id, tenant_id, provider, encrypted_key, base_url, priority, enabled, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (tenant_id, provider) DO UPDATE
		SET encrypted_key = EXCLUDED.encrypted_key,
		    base_url = EXCLUDED.base_url,
		    priority = EXCLUDED.priority,
		    enabled = EXCLUDED.enabled
	`, pc.ID, pc.TenantID, pc.Provider, pc.EncryptedKey, pc.BaseURL, pc.Priority, pc.Enabled, pc.CreatedAt)
	if err != nil {
		return fmt.Errorf("upserting provider config: %w", err)
	}
	return nil
}

// ListEnabled returns a tenant's enabled provider configs ordered by
// priority ascending, matching the failover order §4.G's pipeline expects.
func (s *Store) ListEnabled(ctx context.Context, tenantID uuid.UUID) ([]*ProviderConfig, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, tenant_id, provider, encrypted_key, base_url, priority, enabled, created_at
		FROM provider_configs WHERE tenant_id = $1 AND enabled = true
		ORDER BY priority ASC
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("listing provider configs: %w", err)
	}
	defer rows.Close()

	var out []*ProviderConfig
	for rows.Next() {
		var pc ProviderConfig
		if err := rows.Scan(&pc.ID, &pc.TenantID, &pc.Provider, &pc.EncryptedKey, &pc.BaseURL, &pc.Priority, &pc.Enabled, &pc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning provider config: %w", err)
		}
		out = append(out, &pc)
	}
	return out, rows.Err()
}

// SetEnabled flips a provider config's enabled flag in place.
func (s *Store) SetEnabled(ctx context.Context, tenantID uuid.UUID, provider string, enabled bool) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE provider_configs SET enabled = $3 WHERE tenant_id = $1 AND provider = $2
	`, tenantID, provider, enabled)
	if err != nil {
		return fmt.Errorf("updating provider config enabled flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) Get(ctx context.Context, tenantID uuid.UUID, provider string) (*ProviderConfig, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, tenant_id, provider, encrypted_key, base_url, priority, enabled, created_at
		FROM provider_configs WHERE tenant_id = $1 AND provider = $2
	`, tenantID, provider)

	var pc ProviderConfig
	err := row.Scan(&pc.ID, &pc.TenantID, &pc.Provider, &pc.EncryptedKey, &pc.BaseURL, &pc.Priority, &pc.Enabled, &pc.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning provider config: %w", err)
	}
	return &pc, nil
}
