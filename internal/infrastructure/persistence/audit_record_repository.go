package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/audit"
	"github.com/stockledger/backend/internal/domain/shared"
	"github.com/stockledger/backend/internal/infrastructure/persistence/tenant"
	"gorm.io/gorm"
)

// GormAuditRecordRepository implements AuditRecordRepository using GORM
type GormAuditRecordRepository struct {
	db *gorm.DB
}

// NewGormAuditRecordRepository creates a new GormAuditRecordRepository
func NewGormAuditRecordRepository(db *gorm.DB) *GormAuditRecordRepository {
	return &GormAuditRecordRepository{db: db}
}

// Create inserts an audit record
func (r *GormAuditRecordRepository) Create(ctx context.Context, record *audit.AuditRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// FindByTransaction returns the audit record for a ledger entry
func (r *GormAuditRecordRepository) FindByTransaction(ctx context.Context, tenantID, transactionID uuid.UUID) (*audit.AuditRecord, error) {
	var record audit.AuditRecord
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND transaction_id = ?", tenantID, transactionID).
		First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewDomainError(shared.CodeNotFound, "Audit record not found")
		}
		return nil, err
	}
	return &record, nil
}

// ListForTenant returns audit records ordered by created_at ascending
func (r *GormAuditRecordRepository) ListForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.LogFilter) ([]audit.AuditRecord, error) {
	query := r.db.WithContext(ctx).
		Model(&audit.AuditRecord{}).
		Scopes(tenant.Scope(tenantID))

	var records []audit.AuditRecord
	if err := applyLogFilter(query, filter).Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

var _ audit.AuditRecordRepository = (*GormAuditRecordRepository)(nil)
