package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var productColumns = []string{
	"id", "tenant_id", "sku", "barcode", "name", "quantity", "reorder_point",
	"cost", "price", "created_at", "updated_at",
}

func TestGormProductRepository_FindByIDForTenant(t *testing.T) {
	ctx := context.Background()

	t.Run("finds product of tenant", func(t *testing.T) {
		db, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormProductRepository(db)

		tenantID, productID := uuid.New(), uuid.New()
		now := time.Now()
		mock.ExpectQuery(`SELECT \* FROM "products" WHERE tenant_id = \$1 AND id = \$2`).
			WillReturnRows(sqlmock.NewRows(productColumns).
				AddRow(productID, tenantID, "SKU-1", "4006381333931", "Widget", 12, nil, "1.50", "2.99", now, now))

		product, err := repo.FindByIDForTenant(ctx, tenantID, productID)
		require.NoError(t, err)
		assert.Equal(t, productID, product.ID)
		assert.Equal(t, tenantID, product.TenantID)
		assert.Equal(t, "SKU-1", product.SKU)
		assert.Equal(t, int64(12), product.Quantity)
		assert.Nil(t, product.ReorderPoint)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("absent or foreign product is not found", func(t *testing.T) {
		db, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormProductRepository(db)

		mock.ExpectQuery(`SELECT \* FROM "products" WHERE tenant_id = \$1 AND id = \$2`).
			WillReturnRows(sqlmock.NewRows(productColumns))

		_, err := repo.FindByIDForTenant(ctx, uuid.New(), uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database error is returned unchanged", func(t *testing.T) {
		db, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormProductRepository(db)

		dbErr := errors.New("connection refused")
		mock.ExpectQuery(`SELECT \* FROM "products"`).WillReturnError(dbErr)

		_, err := repo.FindByIDForTenant(ctx, uuid.New(), uuid.New())
		assert.ErrorIs(t, err, dbErr)
		assert.Empty(t, shared.CodeOf(err))
	})
}

func TestGormProductRepository_FindByBarcode(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects empty barcode", func(t *testing.T) {
		db, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()

		_, err := NewGormProductRepository(db).FindByBarcode(ctx, uuid.New(), "")
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("finds product by barcode", func(t *testing.T) {
		db, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()

		tenantID, productID := uuid.New(), uuid.New()
		now := time.Now()
		mock.ExpectQuery(`SELECT \* FROM "products" WHERE tenant_id = \$1 AND barcode = \$2`).
			WillReturnRows(sqlmock.NewRows(productColumns).
				AddRow(productID, tenantID, "SKU-1", "4006381333931", "Widget", 1, 5, "0", "0", now, now))

		product, err := NewGormProductRepository(db).FindByBarcode(ctx, tenantID, "4006381333931")
		require.NoError(t, err)
		assert.Equal(t, productID, product.ID)
		require.NotNil(t, product.ReorderPoint)
		assert.Equal(t, int64(5), *product.ReorderPoint)
	})

	t.Run("unknown barcode is not found", func(t *testing.T) {
		db, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "products" WHERE tenant_id = \$1 AND barcode = \$2`).
			WillReturnRows(sqlmock.NewRows(productColumns))

		_, err := NewGormProductRepository(db).FindByBarcode(ctx, uuid.New(), "123")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormProductRepository_ApplyQuantityDelta(t *testing.T) {
	ctx := context.Background()
	updateSQL := `UPDATE products SET quantity = quantity \+ \$1, updated_at = \$2 WHERE tenant_id = \$3 AND id = \$4 AND quantity \+ \$5 >= 0 RETURNING quantity`

	t.Run("returns quantity after update", func(t *testing.T) {
		db, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()

		tenantID, productID := uuid.New(), uuid.New()
		mock.ExpectQuery(updateSQL).
			WithArgs(int64(-3), sqlmock.AnyArg(), tenantID, productID, int64(-3)).
			WillReturnRows(sqlmock.NewRows([]string{"quantity"}).AddRow(7))

		after, err := NewGormProductRepository(db).ApplyQuantityDelta(ctx, tenantID, productID, -3)
		require.NoError(t, err)
		assert.Equal(t, int64(7), after)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no row updated is an invariant violation", func(t *testing.T) {
		db, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()

		mock.ExpectQuery(updateSQL).
			WillReturnRows(sqlmock.NewRows([]string{"quantity"}))

		_, err := NewGormProductRepository(db).ApplyQuantityDelta(ctx, uuid.New(), uuid.New(), -100)
		assert.ErrorIs(t, err, shared.ErrInvariantViolation)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("check constraint error is returned unchanged", func(t *testing.T) {
		db, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()

		dbErr := errors.New(`new row for relation "products" violates check constraint "products_quantity_non_negative"`)
		mock.ExpectQuery(updateSQL).WillReturnError(dbErr)

		_, err := NewGormProductRepository(db).ApplyQuantityDelta(ctx, uuid.New(), uuid.New(), -1)
		assert.ErrorIs(t, err, dbErr)
	})
}

func TestGormLocationAndDeviceRepositories_NotFound(t *testing.T) {
	ctx := context.Background()
	db, mock, mockDB := newMockGormDB(t)
	defer mockDB.Close()

	mock.ExpectQuery(`SELECT \* FROM "locations" WHERE tenant_id = \$1 AND id = \$2`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "name", "type"}))
	mock.ExpectQuery(`SELECT \* FROM "devices" WHERE tenant_id = \$1 AND id = \$2`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "name", "status"}))

	_, err := NewGormLocationRepository(db).FindByIDForTenant(ctx, uuid.New(), uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = NewGormDeviceRepository(db).FindByIDForTenant(ctx, uuid.New(), uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}
