package identity

import (
	"context"

	"github.com/google/uuid"
)

// TenantRepository looks up tenants. Tenants are global rows, so lookups are
// not tenant scoped.
type TenantRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Tenant, error)
	FindBySlug(ctx context.Context, slug string) (*Tenant, error)
}

// DeviceRepository looks up devices within one tenant
type DeviceRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Device, error)
}
