package ports

import (
	"brokerfront/internal/types"
	"context"
)

// ConfigSource looks up a tenant's config from the backend.
// A non-nil config is always valid and active. Expected failures are reported as types.ErrNotFound,
// types.ErrInactive, types.ErrTransport or types.ErrValidation.
type ConfigSource interface {
	Lookup(ctx context.Context, tenantKey string) (*types.BrokerConfig, error)
}
