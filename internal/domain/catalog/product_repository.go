package catalog

import (
	"context"

	"github.com/google/uuid"
)

// ProductRepository defines product persistence used by the ledger
type ProductRepository interface {
	// FindByIDForTenant finds a product by ID within a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Product, error)

	// FindByBarcode finds a product by its exact barcode within a tenant
	FindByBarcode(ctx context.Context, tenantID uuid.UUID, barcode string) (*Product, error)

	// ApplyQuantityDelta atomically adds delta to the product's quantity if the
	// result stays non-negative, returning the new quantity. It returns an
	// INVARIANT_VIOLATION error and changes nothing otherwise.
	ApplyQuantityDelta(ctx context.Context, tenantID, id uuid.UUID, delta int64) (int64, error)
}
