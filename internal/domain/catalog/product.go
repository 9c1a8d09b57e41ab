package catalog

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stockledger/backend/internal/domain/shared"
)

// Product is a stocked item. Quantity is the tenant-wide on-hand count and is
// only changed by ledger operations through ProductRepository.ApplyQuantityDelta.
type Product struct {
	shared.TenantEntity
	SKU          string          `gorm:"column:sku;type:varchar(64);not null;uniqueIndex:idx_products_tenant_sku,priority:2"`
	Barcode      string          `gorm:"type:varchar(64);index"`
	Name         string          `gorm:"type:varchar(200);not null"`
	Quantity     int64           `gorm:"not null;default:0"`
	ReorderPoint *int64          `gorm:""`
	Cost         decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Price        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "products"
}

// NewProduct creates a product with zero stock
func NewProduct(tenantID uuid.UUID, sku, name string) (*Product, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Tenant ID cannot be empty")
	}
	sku = strings.TrimSpace(sku)
	if sku == "" || len(sku) > 64 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Product SKU must be 1-64 characters")
	}
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 200 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Product name must be 1-200 characters")
	}

	return &Product{
		TenantEntity: shared.NewTenantEntity(tenantID),
		SKU:          strings.ToUpper(sku),
		Name:         name,
		Cost:         decimal.Zero,
		Price:        decimal.Zero,
	}, nil
}

// WithBarcode sets the scan code
func (p *Product) WithBarcode(barcode string) *Product {
	p.Barcode = strings.TrimSpace(barcode)
	return p
}

// WithReorderPoint sets the low-stock threshold
func (p *Product) WithReorderPoint(point int64) *Product {
	p.ReorderPoint = &point
	return p
}

// WithPricing sets unit cost and price
func (p *Product) WithPricing(cost, price decimal.Decimal) *Product {
	p.Cost = cost
	p.Price = price
	return p
}

// NeedsReorder reports whether quantity is at or below the reorder point.
// Products without a reorder point never need reorder.
func (p *Product) NeedsReorder(quantity int64) bool {
	return p.ReorderPoint != nil && quantity <= *p.ReorderPoint
}
