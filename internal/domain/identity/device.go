package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/shared"
)

// DeviceStatus represents whether a scanning device may act for its tenant
type DeviceStatus string

const (
	DeviceStatusAuthorized DeviceStatus = "authorized"
	DeviceStatusRevoked    DeviceStatus = "revoked"
)

// Device is an unattended scanner registered to one tenant
type Device struct {
	shared.TenantEntity
	Name   string       `gorm:"type:varchar(100);not null"`
	Status DeviceStatus `gorm:"type:varchar(20);not null;default:'authorized'"`
}

// TableName returns the table name for GORM
func (Device) TableName() string {
	return "devices"
}

// NewDevice creates an authorized device for a tenant
func NewDevice(tenantID uuid.UUID, name string) (*Device, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Tenant ID cannot be empty")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Device name cannot be empty")
	}
	return &Device{
		TenantEntity: shared.NewTenantEntity(tenantID),
		Name:         name,
		Status:       DeviceStatusAuthorized,
	}, nil
}

// IsAuthorized returns true if the device may perform ledger operations
func (d *Device) IsAuthorized() bool {
	return d.Status == DeviceStatusAuthorized
}

// Revoke withdraws the device's authorization
func (d *Device) Revoke() {
	d.Status = DeviceStatusRevoked
	d.UpdatedAt = time.Now()
}
