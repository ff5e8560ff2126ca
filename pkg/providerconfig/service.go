package providerconfig

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Service mediates provider config persistence through the KeyCipher so raw
// API keys never reach the store or the wire unencrypted.
type Service struct {
	store  *Store
	cipher *KeyCipher
}

func NewService(store *Store, cipher *KeyCipher) *Service {
	return &Service{store: store, cipher: cipher}
}

// Set encrypts rawAPIKey and upserts the provider config.
func (s *Service) Set(ctx context.Context, tenantID uuid.UUID, provider, rawAPIKey, baseURL string, priority int) error {
	enc, err := s.cipher.Encrypt(rawAPIKey)
	if err != nil {
		return fmt.Errorf("encrypting provider key: %w", err)
	}
	return s.store.Upsert(ctx, &ProviderConfig{
		TenantID:     tenantID,
		Provider:     provider,
		EncryptedKey: enc,
		BaseURL:      baseURL,
		Priority:     priority,
		Enabled:      true,
	})
}

// ResolveKey decrypts the stored key for a provider config. The returned
// plaintext must not be retained beyond the adapter call that consumes it.
func (s *Service) ResolveKey(pc *ProviderConfig) (string, error) {
	return s.cipher.Decrypt(pc.EncryptedKey)
}

// Enabled returns every enabled provider config for a tenant.
func (s *Service) Enabled(ctx context.Context, tenantID uuid.UUID) ([]*ProviderConfig, error) {
	return s.store.ListEnabled(ctx, tenantID)
}

// Disable turns off a tenant's provider config without deleting its
// encrypted key, so re-enabling doesn't require re-entering credentials.
func (s *Service) Disable(ctx context.Context, tenantID uuid.UUID, provider string) error {
	return s.store.SetEnabled(ctx, tenantID, provider, false)
}
