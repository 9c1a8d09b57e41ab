package catalog

import (
	"strings"

	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/shared"
)

// LocationType classifies a place that can hold stock
type LocationType string

const (
	LocationTypeWarehouse LocationType = "warehouse"
	LocationTypeStore     LocationType = "store"
	LocationTypeShelf     LocationType = "shelf"
	LocationTypeTransit   LocationType = "transit"
)

// IsValid returns true if the location type is known
func (t LocationType) IsValid() bool {
	switch t {
	case LocationTypeWarehouse, LocationTypeStore, LocationTypeShelf, LocationTypeTransit:
		return true
	}
	return false
}

// Location is a place stock is received into, transferred between or sold from.
// Ledger entries reference locations; they do not own them.
type Location struct {
	shared.TenantEntity
	Name string       `gorm:"type:varchar(100);not null"`
	Type LocationType `gorm:"type:varchar(20);not null"`
}

// TableName returns the table name for GORM
func (Location) TableName() string {
	return "locations"
}

// NewLocation creates a location for a tenant
func NewLocation(tenantID uuid.UUID, name string, locationType LocationType) (*Location, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Tenant ID cannot be empty")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Location name cannot be empty")
	}
	if !locationType.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Invalid location type")
	}
	return &Location{
		TenantEntity: shared.NewTenantEntity(tenantID),
		Name:         name,
		Type:         locationType,
	}, nil
}
