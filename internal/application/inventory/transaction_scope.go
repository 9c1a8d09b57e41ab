package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/audit"
	"github.com/stockledger/backend/internal/domain/catalog"
	"github.com/stockledger/backend/internal/domain/identity"
	"github.com/stockledger/backend/internal/domain/inventory"
)

// TransactionScope runs a unit of work for one tenant.
// All repositories handed to fn share one database transaction on a
// connection scoped to tenantID; fn's error rolls everything back.
type TransactionScope interface {
	// Execute validates the tenant, opens the transaction and runs fn in it.
	// The tenant's connection is released on every exit path.
	Execute(ctx context.Context, tenantID uuid.UUID, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides the ledger's repositories within one transaction
type TransactionalRepositories interface {
	Products() catalog.ProductRepository
	Locations() catalog.LocationRepository
	Devices() identity.DeviceRepository
	Transactions() inventory.InventoryTransactionRepository
	Audit() audit.AuditRecordRepository
}
