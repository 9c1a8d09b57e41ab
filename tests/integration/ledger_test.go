package integration

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	inventoryapp "github.com/stockledger/backend/internal/application/inventory"
	"github.com/stockledger/backend/internal/domain/catalog"
	"github.com/stockledger/backend/internal/domain/identity"
	"github.com/stockledger/backend/internal/domain/shared"
	"github.com/stockledger/backend/internal/infrastructure/persistence"
	"github.com/stockledger/backend/internal/infrastructure/persistence/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type ledgerSetup struct {
	db       *TestDB
	sessions *tenant.Manager
	service  *inventoryapp.LedgerService
}

func newLedgerSetup(t *testing.T, maxOpenConns int) *ledgerSetup {
	t.Helper()
	db := NewTestDB(t, maxOpenConns)

	sessions, err := tenant.NewManager(db.App.DB, persistence.NewGormTenantRepository(db.App.DB),
		tenant.ManagerConfig{}, zaptest.NewLogger(t))
	require.NoError(t, err)

	return &ledgerSetup{
		db:       db,
		sessions: sessions,
		service:  inventoryapp.NewLedgerService(persistence.NewGormTransactionScope(sessions), zaptest.NewLogger(t)),
	}
}

func TestLedger_ReceiveSellAndReadBack(t *testing.T) {
	s := newLedgerSetup(t, 4)
	ctx := context.Background()
	tn, product, location := s.db.SeedTenant(t, "acme", 0)
	user := identity.UserActor(uuid.New())

	received, err := s.service.Receive(ctx, tn.ID, user, inventoryapp.ReceiveRequest{
		ProductID:  product.ID,
		Quantity:   12,
		LocationID: &location.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(12), received.QuantityAfter)

	sold, err := s.service.Sell(ctx, tn.ID, user, inventoryapp.SellRequest{ProductID: product.ID, Quantity: 5})
	require.NoError(t, err)
	assert.Equal(t, int64(7), sold.QuantityAfter)

	var qty int64
	require.NoError(t, s.db.Owner.Raw("SELECT quantity FROM products WHERE id = ?", product.ID).Scan(&qty).Error)
	assert.Equal(t, int64(7), qty)

	detail, err := s.service.GetTransaction(ctx, tn.ID, sold.Transaction.ID)
	require.NoError(t, err)
	assert.Equal(t, sold.AuditRecordID, detail.AuditRecord.ID)
	assert.Equal(t, "SALE", detail.AuditRecord.ActionType)

	txns, err := s.service.ListTransactions(ctx, tn.ID, inventoryapp.TransactionListFilter{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, txns, 2)
}

func TestLedger_InsufficientStockWritesNothing(t *testing.T) {
	s := newLedgerSetup(t, 4)
	ctx := context.Background()
	tn, product, _ := s.db.SeedTenant(t, "acme", 2)

	_, err := s.service.Sell(ctx, tn.ID, identity.UserActor(uuid.New()),
		inventoryapp.SellRequest{ProductID: product.ID, Quantity: 3})
	require.Error(t, err)
	assert.Equal(t, shared.CodeInvariantViolation, shared.CodeOf(err))

	var txCount, auditCount, qty int64
	require.NoError(t, s.db.Owner.Raw("SELECT count(*) FROM inventory_transactions").Scan(&txCount).Error)
	require.NoError(t, s.db.Owner.Raw("SELECT count(*) FROM audit_records").Scan(&auditCount).Error)
	require.NoError(t, s.db.Owner.Raw("SELECT quantity FROM products WHERE id = ?", product.ID).Scan(&qty).Error)
	assert.Zero(t, txCount)
	assert.Zero(t, auditCount)
	assert.Equal(t, int64(2), qty)
}

func TestLedger_RowLevelSecurityIsolatesTenants(t *testing.T) {
	s := newLedgerSetup(t, 4)
	ctx := context.Background()
	tenantA, productA, _ := s.db.SeedTenant(t, "tenant-a", 5)
	tenantB, productB, _ := s.db.SeedTenant(t, "tenant-b", 5)
	user := identity.UserActor(uuid.New())

	t.Run("foreign product is not found", func(t *testing.T) {
		_, err := s.service.Receive(ctx, tenantA.ID, user,
			inventoryapp.ReceiveRequest{ProductID: productB.ID, Quantity: 1})
		assert.Equal(t, shared.CodeNotFound, shared.CodeOf(err))
	})

	t.Run("raw reads only see the session tenant", func(t *testing.T) {
		err := s.sessions.WithSession(ctx, tenantA.ID, func(sess *tenant.Session) error {
			db, err := sess.DB(ctx)
			if err != nil {
				return err
			}
			var ids []uuid.UUID
			if err := db.Raw("SELECT id FROM products").Scan(&ids).Error; err != nil {
				return err
			}
			assert.Equal(t, []uuid.UUID{productA.ID}, ids)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("unscoped pool sees no tenant rows", func(t *testing.T) {
		var n int64
		require.NoError(t, s.db.App.DB.Raw("SELECT count(*) FROM products").Scan(&n).Error)
		assert.Zero(t, n)
	})

	t.Run("writes into another tenant are rejected", func(t *testing.T) {
		err := s.sessions.WithSession(ctx, tenantA.ID, func(sess *tenant.Session) error {
			db, err := sess.DB(ctx)
			if err != nil {
				return err
			}
			p, err := catalog.NewProduct(tenantB.ID, "SMUGGLED", "Smuggled")
			if err != nil {
				return err
			}
			return db.Create(p).Error
		})
		assert.Error(t, err)
	})
}

func TestLedger_ReleasedConnectionCarriesNoTenant(t *testing.T) {
	// One connection, so the session and the follow-up query share it
	s := newLedgerSetup(t, 1)
	ctx := context.Background()
	tn, _, _ := s.db.SeedTenant(t, "acme", 5)

	err := s.sessions.WithSession(ctx, tn.ID, func(sess *tenant.Session) error {
		db, err := sess.DB(ctx)
		if err != nil {
			return err
		}
		var setting string
		if err := db.Raw("SELECT current_setting('app.current_tenant', true)").Scan(&setting).Error; err != nil {
			return err
		}
		assert.Equal(t, tn.ID.String(), setting)
		return nil
	})
	require.NoError(t, err)

	var setting string
	require.NoError(t, s.db.App.DB.Raw("SELECT coalesce(current_setting('app.current_tenant', true), '')").Scan(&setting).Error)
	assert.Empty(t, setting)

	var n int64
	require.NoError(t, s.db.App.DB.Raw("SELECT count(*) FROM products").Scan(&n).Error)
	assert.Zero(t, n)
}

func TestLedger_LedgerIsAppendOnly(t *testing.T) {
	s := newLedgerSetup(t, 2)
	ctx := context.Background()
	tn, product, _ := s.db.SeedTenant(t, "acme", 0)

	result, err := s.service.Receive(ctx, tn.ID, identity.UserActor(uuid.New()),
		inventoryapp.ReceiveRequest{ProductID: product.ID, Quantity: 4})
	require.NoError(t, err)

	err = s.sessions.WithSession(ctx, tn.ID, func(sess *tenant.Session) error {
		db, err := sess.DB(ctx)
		if err != nil {
			return err
		}
		if err := db.Exec("UPDATE inventory_transactions SET quantity = 40 WHERE id = ?", result.Transaction.ID).Error; err == nil {
			t.Error("update of a ledger entry succeeded")
		}
		if err := db.Exec("DELETE FROM audit_records WHERE id = ?", result.AuditRecordID).Error; err == nil {
			t.Error("delete of an audit record succeeded")
		}
		return nil
	})
	require.NoError(t, err)
}

func TestLedger_ConcurrentSalesNeverOversell(t *testing.T) {
	s := newLedgerSetup(t, 8)
	ctx := context.Background()
	tn, product, _ := s.db.SeedTenant(t, "acme", 10)
	device := identity.DeviceActor(uuid.New())
	require.NoError(t, s.db.Owner.Exec(
		"INSERT INTO devices (id, tenant_id, name, status) VALUES (?, ?, 'till-1', 'authorized')",
		*device.DeviceID, tn.ID).Error)

	const attempts = 15
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.service.Sell(ctx, tn.ID, device, inventoryapp.SellRequest{ProductID: product.ID, Quantity: 1})
			if err != nil {
				assert.ErrorIs(t, err, shared.ErrInvariantViolation)
				return
			}
			mu.Lock()
			succeeded++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	assert.Zero(t, s.quantity(t, product.ID))
	assert.Equal(t, int64(10), s.count(t, "inventory_transactions", tn.ID))
	assert.Equal(t, int64(10), s.count(t, "audit_records", tn.ID))
}

func TestLedger_TwoConcurrentSalesOfSixOnTen(t *testing.T) {
	s := newLedgerSetup(t, 4)
	ctx := context.Background()
	tn, product, _ := s.db.SeedTenant(t, "acme", 10)
	user := identity.UserActor(uuid.New())

	start := make(chan struct{})
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = s.service.Sell(ctx, tn.ID, user, inventoryapp.SellRequest{ProductID: product.ID, Quantity: 6})
		}(i)
	}
	close(start)
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, shared.ErrInvariantViolation)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, int64(4), s.quantity(t, product.ID))
	assert.Equal(t, int64(1), s.count(t, "inventory_transactions", tn.ID))
	assert.Equal(t, int64(1), s.count(t, "audit_records", tn.ID))
}

// quantity reads a product's quantity through the owner connection
func (s *ledgerSetup) quantity(t *testing.T, productID uuid.UUID) int64 {
	t.Helper()
	var qty int64
	require.NoError(t, s.db.Owner.Raw("SELECT quantity FROM products WHERE id = ?", productID).Scan(&qty).Error)
	return qty
}

// count returns the rows of a tenant-owned table for one tenant
func (s *ledgerSetup) count(t *testing.T, table string, tenantID uuid.UUID) int64 {
	t.Helper()
	var n int64
	require.NoError(t, s.db.Owner.Table(table).Where("tenant_id = ?", tenantID).Count(&n).Error)
	return n
}
