package tenant

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Service wraps Store with API key generation.
type Service struct {
	store *Store
}

func NewService(store *Store) *Service {
	return &Service{store: store}
}

// CreateResult carries the raw API key, which is only ever shown once.
type CreateResult struct {
	Tenant *Tenant
	APIKey string
}

// Register creates a new tenant and mints its API key.
func (s *Service) Register(ctx context.Context, name, slug, defaultModel string) (*CreateResult, error) {
	raw, hash, prefix, err := generateAPIKey()
	if err != nil {
		return nil, fmt.Errorf("generating API key: %w", err)
	}

	t := &Tenant{
		Name:         name,
		Slug:         slug,
		APIKeyHash:   hash,
		APIKeyPrefix: prefix,
		DefaultModel: defaultModel,
	}
	if err := s.store.Create(ctx, t); err != nil {
		return nil, err
	}

	return &CreateResult{Tenant: t, APIKey: raw}, nil
}

// Authenticate resolves a raw API key to its owning tenant.
func (s *Service) Authenticate(ctx context.Context, rawKey string) (*Tenant, error) {
	if rawKey == "" {
		return nil, fmt.Errorf("empty API key")
	}
	hash := HashAPIKey(rawKey)
	t, err := s.store.GetByAPIKeyHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	if t.Disabled {
		return nil, fmt.Errorf("tenant is disabled")
	}
	return t, nil
}

// HashAPIKey returns the stable digest used for storage and lookup.
func HashAPIKey(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:])
}

func generateAPIKey() (raw, hash, prefix string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", "", err
	}
	raw = fmt.Sprintf("lmg_%x", b)
	hash = HashAPIKey(raw)
	prefix = raw[:10]
	return raw, hash, prefix, nil
}
