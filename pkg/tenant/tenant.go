// Package tenant manages the caller accounts that own provider configs,
// cache entries, usage records, and alert configuration.
package tenant

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Tenant is a billable caller account authenticated by a single API key.
type Tenant struct {
	ID            uuid.UUID
	Name          string
	Slug          string
	APIKeyHash    string
	APIKeyPrefix  string
	DefaultModel  string
	CreatedAt     time.Time
	Disabled      bool
}

type contextKey struct{}

// NewContext stores the authenticated tenant in the request context.
func NewContext(ctx context.Context, t *Tenant) context.Context {
	return context.WithValue(ctx, contextKey{}, t)
}

// FromContext returns the authenticated tenant, or nil if none is set.
func FromContext(ctx context.Context) *Tenant {
	v, _ := ctx.Value(contextKey{}).(*Tenant)
	return v
}
