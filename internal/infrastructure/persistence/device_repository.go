package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/identity"
	"github.com/stockledger/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormDeviceRepository implements DeviceRepository using GORM
type GormDeviceRepository struct {
	db *gorm.DB
}

// NewGormDeviceRepository creates a new GormDeviceRepository
func NewGormDeviceRepository(db *gorm.DB) *GormDeviceRepository {
	return &GormDeviceRepository{db: db}
}

// FindByIDForTenant finds a device by ID within a tenant
func (r *GormDeviceRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*identity.Device, error) {
	var device identity.Device
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&device).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewDomainError(shared.CodeNotFound, "Device not found")
		}
		return nil, err
	}
	return &device, nil
}

// Create persists a new device
func (r *GormDeviceRepository) Create(ctx context.Context, device *identity.Device) error {
	return r.db.WithContext(ctx).Create(device).Error
}

var _ identity.DeviceRepository = (*GormDeviceRepository)(nil)
