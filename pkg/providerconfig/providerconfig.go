// Package providerconfig manages per-tenant upstream provider credentials.
package providerconfig

import (
	"time"

	"github.com/google/uuid"
)

// ProviderConfig is one tenant's configured upstream provider account.
type ProviderConfig struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	Provider     string // "openai", "anthropic", "mistral", "groq", "google"
	EncryptedKey string // ciphertext, never exposed via the API
	BaseURL      string
	Priority     int // lower value tried first during failover
	Enabled      bool
	CreatedAt    time.Time
}
