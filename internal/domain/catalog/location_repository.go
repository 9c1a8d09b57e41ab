package catalog

import (
	"context"

	"github.com/google/uuid"
)

// LocationRepository defines location lookups used by the ledger
type LocationRepository interface {
	// FindByIDForTenant finds a location by ID within a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Location, error)
}
