package persistence

import (
	"context"

	"github.com/google/uuid"
	appinv "github.com/stockledger/backend/internal/application/inventory"
	"github.com/stockledger/backend/internal/domain/audit"
	"github.com/stockledger/backend/internal/domain/catalog"
	"github.com/stockledger/backend/internal/domain/identity"
	"github.com/stockledger/backend/internal/domain/inventory"
	"github.com/stockledger/backend/internal/infrastructure/persistence/tenant"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope on tenant sessions.
// Each Execute checks out a connection scoped to the tenant, runs one GORM
// transaction on it and releases the connection afterwards.
type GormTransactionScope struct {
	sessions *tenant.Manager
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(sessions *tenant.Manager) *GormTransactionScope {
	return &GormTransactionScope{sessions: sessions}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, tenantID uuid.UUID, fn func(repos appinv.TransactionalRepositories) error) error {
	return s.sessions.WithSession(ctx, tenantID, func(session *tenant.Session) error {
		return session.Transaction(ctx, func(tx *gorm.DB) error {
			return fn(&gormTransactionalRepositories{tx: tx})
		})
	})
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// Products returns the product repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Products() catalog.ProductRepository {
	return NewGormProductRepository(r.tx)
}

// Locations returns the location repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Locations() catalog.LocationRepository {
	return NewGormLocationRepository(r.tx)
}

// Devices returns the device repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Devices() identity.DeviceRepository {
	return NewGormDeviceRepository(r.tx)
}

// Transactions returns the ledger repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Transactions() inventory.InventoryTransactionRepository {
	return NewGormInventoryTransactionRepository(r.tx)
}

// Audit returns the audit record repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Audit() audit.AuditRecordRepository {
	return NewGormAuditRecordRepository(r.tx)
}

// Ensure GormTransactionScope implements TransactionScope
var _ appinv.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ appinv.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
