package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/shared"
)

// TransactionFilter narrows a tenant's ledger listing
type TransactionFilter struct {
	shared.LogFilter
	ProductID *uuid.UUID
	Type      TransactionType
}

// InventoryTransactionRepository persists the append-only ledger.
// Entries are never updated or deleted.
type InventoryTransactionRepository interface {
	// Create inserts a new ledger entry
	Create(ctx context.Context, txn *InventoryTransaction) error

	// FindByIDForTenant finds a ledger entry by ID within a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*InventoryTransaction, error)

	// ListForTenant returns ledger entries ordered by created_at ascending
	ListForTenant(ctx context.Context, tenantID uuid.UUID, filter TransactionFilter) ([]InventoryTransaction, error)
}
