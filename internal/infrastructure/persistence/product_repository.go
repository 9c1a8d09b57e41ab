package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/catalog"
	"github.com/stockledger/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// applyDeltaSQL moves stock in one statement. The quantity guard in the WHERE
// clause makes concurrent decrements serialize on the row lock instead of
// reading a stale value.
const applyDeltaSQL = `UPDATE products SET quantity = quantity + ?, updated_at = ? ` +
	`WHERE tenant_id = ? AND id = ? AND quantity + ? >= 0 RETURNING quantity`

// GormProductRepository implements ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// FindByIDForTenant finds a product by ID within a tenant
func (r *GormProductRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*catalog.Product, error) {
	var product catalog.Product
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewDomainError(shared.CodeNotFound, "Product not found")
		}
		return nil, err
	}
	return &product, nil
}

// FindByBarcode finds a product by its barcode within a tenant
func (r *GormProductRepository) FindByBarcode(ctx context.Context, tenantID uuid.UUID, barcode string) (*catalog.Product, error) {
	if barcode == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Barcode cannot be empty")
	}
	var product catalog.Product
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND barcode = ?", tenantID, barcode).
		Order("created_at ASC").
		First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewDomainError(shared.CodeNotFound, "No product with this barcode")
		}
		return nil, err
	}
	return &product, nil
}

// Create persists a new product
func (r *GormProductRepository) Create(ctx context.Context, product *catalog.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// ApplyQuantityDelta atomically adds delta to the product's quantity
func (r *GormProductRepository) ApplyQuantityDelta(ctx context.Context, tenantID, id uuid.UUID, delta int64) (int64, error) {
	var quantities []int64
	if err := r.db.WithContext(ctx).
		Raw(applyDeltaSQL, delta, time.Now(), tenantID, id, delta).
		Scan(&quantities).Error; err != nil {
		return 0, err
	}
	if len(quantities) == 0 {
		return 0, shared.NewDomainError(shared.CodeInvariantViolation, "Insufficient stock for this operation")
	}
	return quantities[0], nil
}

var _ catalog.ProductRepository = (*GormProductRepository)(nil)
