package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/inventory"
	"github.com/stockledger/backend/internal/domain/shared"
	"github.com/stockledger/backend/internal/infrastructure/persistence/tenant"
	"gorm.io/gorm"
)

// GormInventoryTransactionRepository implements InventoryTransactionRepository using GORM.
// It only inserts and reads; the table rejects updates and deletes.
type GormInventoryTransactionRepository struct {
	db *gorm.DB
}

// NewGormInventoryTransactionRepository creates a new GormInventoryTransactionRepository
func NewGormInventoryTransactionRepository(db *gorm.DB) *GormInventoryTransactionRepository {
	return &GormInventoryTransactionRepository{db: db}
}

// Create inserts a new ledger entry
func (r *GormInventoryTransactionRepository) Create(ctx context.Context, txn *inventory.InventoryTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

// FindByIDForTenant finds a ledger entry by ID within a tenant
func (r *GormInventoryTransactionRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*inventory.InventoryTransaction, error) {
	var txn inventory.InventoryTransaction
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&txn).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewDomainError(shared.CodeNotFound, "Transaction not found")
		}
		return nil, err
	}
	return &txn, nil
}

// ListForTenant returns ledger entries ordered by created_at ascending
func (r *GormInventoryTransactionRepository) ListForTenant(ctx context.Context, tenantID uuid.UUID, filter inventory.TransactionFilter) ([]inventory.InventoryTransaction, error) {
	query := r.db.WithContext(ctx).
		Model(&inventory.InventoryTransaction{}).
		Scopes(tenant.Scope(tenantID))

	if filter.ProductID != nil {
		query = query.Where("product_id = ?", *filter.ProductID)
	}
	if filter.Type != "" {
		query = query.Where("transaction_type = ?", filter.Type)
	}

	var txns []inventory.InventoryTransaction
	if err := applyLogFilter(query, filter.LogFilter).Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}

// applyLogFilter applies the time window, ordering and paging shared by the append-only logs
func applyLogFilter(query *gorm.DB, filter shared.LogFilter) *gorm.DB {
	filter = filter.Normalized()
	if filter.Since != nil {
		query = query.Where("created_at >= ?", *filter.Since)
	}
	if filter.Until != nil {
		query = query.Where("created_at < ?", *filter.Until)
	}
	return query.
		Order("created_at ASC").
		Order("id ASC").
		Limit(filter.Limit).
		Offset(filter.Offset)
}

var _ inventory.InventoryTransactionRepository = (*GormInventoryTransactionRepository)(nil)
