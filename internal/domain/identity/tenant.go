package identity

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/shared"
)

// TenantStatus represents the status of a tenant
type TenantStatus string

const (
	TenantStatusActive    TenantStatus = "active"
	TenantStatusInactive  TenantStatus = "inactive"
	TenantStatusSuspended TenantStatus = "suspended" // Suspended due to payment/violation issues
)

// TenantTier represents the subscription tier of a tenant
type TenantTier string

const (
	TenantTierFree       TenantTier = "free"
	TenantTierBasic      TenantTier = "basic"
	TenantTierPro        TenantTier = "pro"
	TenantTierEnterprise TenantTier = "enterprise"
)

// TenantLimits holds the resource limits of a tenant
type TenantLimits struct {
	MaxProducts  int `json:"max_products" gorm:"column:max_products;not null;default:0"`
	MaxLocations int `json:"max_locations" gorm:"column:max_locations;not null;default:0"`
	MaxDevices   int `json:"max_devices" gorm:"column:max_devices;not null;default:0"`
}

// DefaultTenantLimits returns the limits for a tier
func DefaultTenantLimits(tier TenantTier) TenantLimits {
	switch tier {
	case TenantTierBasic:
		return TenantLimits{MaxProducts: 5000, MaxLocations: 10, MaxDevices: 10}
	case TenantTierPro:
		return TenantLimits{MaxProducts: 50000, MaxLocations: 100, MaxDevices: 100}
	case TenantTierEnterprise:
		return TenantLimits{MaxProducts: 0, MaxLocations: 0, MaxDevices: 0} // unlimited
	default:
		return TenantLimits{MaxProducts: 500, MaxLocations: 2, MaxDevices: 2}
	}
}

// Tenant is an isolated business account and the unit of data partitioning.
// Tenants are not tenant-owned rows, so the table carries no row level security.
type Tenant struct {
	shared.BaseEntity
	Slug   string       `gorm:"type:varchar(63);not null;uniqueIndex"`
	Name   string       `gorm:"type:varchar(200);not null"`
	Status TenantStatus `gorm:"type:varchar(20);not null;default:'active'"`
	Tier   TenantTier   `gorm:"type:varchar(20);not null;default:'free'"`
	Limits TenantLimits `gorm:"embedded"`
}

// TableName returns the table name for GORM
func (Tenant) TableName() string {
	return "tenants"
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

// NewTenant creates an active tenant on the free tier
func NewTenant(slug, name string) (*Tenant, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if !slugPattern.MatchString(slug) {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Tenant slug must be 1-63 lowercase letters, digits or hyphens")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Tenant name cannot be empty")
	}
	if len(name) > 200 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Tenant name cannot exceed 200 characters")
	}

	return &Tenant{
		BaseEntity: shared.NewBaseEntity(),
		Slug:       slug,
		Name:       name,
		Status:     TenantStatusActive,
		Tier:       TenantTierFree,
		Limits:     DefaultTenantLimits(TenantTierFree),
	}, nil
}

// IsActive returns true if the tenant may access its data
func (t *Tenant) IsActive() bool {
	return t.Status == TenantStatusActive
}

// Suspend marks the tenant as suspended
func (t *Tenant) Suspend() {
	t.Status = TenantStatusSuspended
	t.UpdatedAt = time.Now()
}

// ChangeTier moves the tenant to another tier and resets its limits
func (t *Tenant) ChangeTier(tier TenantTier) {
	t.Tier = tier
	t.Limits = DefaultTenantLimits(tier)
	t.UpdatedAt = time.Now()
}

// ParseTenantID validates a raw tenant identifier. Missing and malformed
// identifiers are reported as forbidden rather than falling back to no tenant.
func ParseTenantID(raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, shared.NewDomainError(shared.CodeForbidden, "Tenant id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, shared.NewDomainError(shared.CodeForbidden, "Tenant id is malformed")
	}
	return id, nil
}
