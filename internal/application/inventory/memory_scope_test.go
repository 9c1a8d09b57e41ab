package inventory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/audit"
	"github.com/stockledger/backend/internal/domain/catalog"
	"github.com/stockledger/backend/internal/domain/identity"
	"github.com/stockledger/backend/internal/domain/inventory"
	"github.com/stockledger/backend/internal/domain/shared"
)

// memoryState is the committed data of memoryScope
type memoryState struct {
	products  map[uuid.UUID]catalog.Product
	locations map[uuid.UUID]catalog.Location
	devices   map[uuid.UUID]identity.Device
	txns      []inventory.InventoryTransaction
	audits    []audit.AuditRecord
}

// memoryScope is a TransactionScope over in-memory tables that behaves like
// the Postgres unit of work: units run concurrently, reads see committed
// data, a quantity update takes the product's row lock until the unit ends
// and re-checks the condition against the latest committed quantity.
// Writes become visible only when fn succeeds.
type memoryScope struct {
	mu      sync.Mutex
	tenants map[uuid.UUID]*identity.Tenant
	state   *memoryState
	rows    map[uuid.UUID]*sync.Mutex

	failAuditCreate error
	// beforeApplyDelta runs inside the unit right before the conditional update
	beforeApplyDelta func(productID uuid.UUID)
}

func newMemoryScope() *memoryScope {
	return &memoryScope{
		tenants: make(map[uuid.UUID]*identity.Tenant),
		rows:    make(map[uuid.UUID]*sync.Mutex),
		state: &memoryState{
			products:  make(map[uuid.UUID]catalog.Product),
			locations: make(map[uuid.UUID]catalog.Location),
			devices:   make(map[uuid.UUID]identity.Device),
		},
	}
}

func (s *memoryScope) Execute(ctx context.Context, tenantID uuid.UUID, fn func(repos TransactionalRepositories) error) error {
	if tenantID == uuid.Nil {
		return shared.NewDomainError(shared.CodeForbidden, "Tenant id is required")
	}

	s.mu.Lock()
	t, ok := s.tenants[tenantID]
	s.mu.Unlock()
	if !ok {
		return shared.NewDomainError(shared.CodeNotFound, "Tenant not found")
	}
	if !t.IsActive() {
		return shared.NewDomainError(shared.CodeForbidden, "Tenant is not active")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	u := &memoryUnit{
		scope:      s,
		quantities: make(map[uuid.UUID]int64),
		locked:     make(map[uuid.UUID]*sync.Mutex),
	}
	defer u.releaseRows()

	if err := fn(u); err != nil {
		return err
	}
	u.commit()
	return nil
}

// rowLock returns the lock guarding a product row
func (s *memoryScope) rowLock(id uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.rows[id]
	if !ok {
		l = &sync.Mutex{}
		s.rows[id] = l
	}
	return l
}

func (s *memoryScope) addTenant(t *identity.Tenant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenants[t.ID] = t
}

func (s *memoryScope) addProduct(p *catalog.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.products[p.ID] = *p
}

func (s *memoryScope) addLocation(l *catalog.Location) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.locations[l.ID] = *l
}

func (s *memoryScope) addDevice(d *identity.Device) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.devices[d.ID] = *d
}

// setQuantity overwrites a committed quantity, as a concurrent writer would
func (s *memoryScope) setQuantity(id uuid.UUID, qty int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.state.products[id]
	p.Quantity = qty
	s.state.products[id] = p
}

func (s *memoryScope) quantity(id uuid.UUID) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.products[id].Quantity
}

func (s *memoryScope) transactions() []inventory.InventoryTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]inventory.InventoryTransaction(nil), s.state.txns...)
}

func (s *memoryScope) auditRecords() []audit.AuditRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]audit.AuditRecord(nil), s.state.audits...)
}

// memoryUnit is one open unit of work
type memoryUnit struct {
	scope      *memoryScope
	quantities map[uuid.UUID]int64
	locked     map[uuid.UUID]*sync.Mutex
	txns       []inventory.InventoryTransaction
	audits     []audit.AuditRecord
}

func (u *memoryUnit) Products() catalog.ProductRepository   { return memoryProducts{u} }
func (u *memoryUnit) Locations() catalog.LocationRepository { return memoryLocations{u} }
func (u *memoryUnit) Devices() identity.DeviceRepository    { return memoryDevices{u} }
func (u *memoryUnit) Audit() audit.AuditRecordRepository    { return memoryAudit{u} }

func (u *memoryUnit) Transactions() inventory.InventoryTransactionRepository {
	return memoryTxns{u}
}

func (u *memoryUnit) lockRow(id uuid.UUID) {
	if _, ok := u.locked[id]; ok {
		return
	}
	l := u.scope.rowLock(id)
	l.Lock()
	u.locked[id] = l
}

func (u *memoryUnit) releaseRows() {
	for id, l := range u.locked {
		l.Unlock()
		delete(u.locked, id)
	}
}

func (u *memoryUnit) commit() {
	s := u.scope
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, qty := range u.quantities {
		p := s.state.products[id]
		p.Quantity = qty
		s.state.products[id] = p
	}
	s.state.txns = append(s.state.txns, u.txns...)
	s.state.audits = append(s.state.audits, u.audits...)
}

// product returns the committed row overlaid with this unit's own update
func (u *memoryUnit) product(id uuid.UUID) (catalog.Product, bool) {
	u.scope.mu.Lock()
	p, ok := u.scope.state.products[id]
	u.scope.mu.Unlock()
	if qty, pending := u.quantities[id]; ok && pending {
		p.Quantity = qty
	}
	return p, ok
}

type memoryProducts struct{ *memoryUnit }

func (r memoryProducts) FindByIDForTenant(_ context.Context, tenantID, id uuid.UUID) (*catalog.Product, error) {
	p, ok := r.product(id)
	if !ok || p.TenantID != tenantID {
		return nil, shared.NewDomainError(shared.CodeNotFound, "Product not found")
	}
	return &p, nil
}

func (r memoryProducts) FindByBarcode(_ context.Context, tenantID uuid.UUID, barcode string) (*catalog.Product, error) {
	r.scope.mu.Lock()
	var id uuid.UUID
	for _, p := range r.scope.state.products {
		if p.TenantID == tenantID && p.Barcode == barcode {
			id = p.ID
			break
		}
	}
	r.scope.mu.Unlock()
	if id == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeNotFound, "No product with this barcode")
	}
	p, _ := r.product(id)
	return &p, nil
}

func (r memoryProducts) ApplyQuantityDelta(_ context.Context, tenantID, id uuid.UUID, delta int64) (int64, error) {
	if r.scope.beforeApplyDelta != nil {
		r.scope.beforeApplyDelta(id)
	}
	r.lockRow(id)

	p, ok := r.product(id)
	if !ok || p.TenantID != tenantID || p.Quantity+delta < 0 {
		return 0, shared.NewDomainError(shared.CodeInvariantViolation, "Insufficient stock for this operation")
	}
	r.quantities[id] = p.Quantity + delta
	return p.Quantity + delta, nil
}

type memoryLocations struct{ *memoryUnit }

func (r memoryLocations) FindByIDForTenant(_ context.Context, tenantID, id uuid.UUID) (*catalog.Location, error) {
	r.scope.mu.Lock()
	defer r.scope.mu.Unlock()
	l, ok := r.scope.state.locations[id]
	if !ok || l.TenantID != tenantID {
		return nil, shared.NewDomainError(shared.CodeNotFound, "Location not found")
	}
	return &l, nil
}

type memoryDevices struct{ *memoryUnit }

func (r memoryDevices) FindByIDForTenant(_ context.Context, tenantID, id uuid.UUID) (*identity.Device, error) {
	r.scope.mu.Lock()
	defer r.scope.mu.Unlock()
	d, ok := r.scope.state.devices[id]
	if !ok || d.TenantID != tenantID {
		return nil, shared.NewDomainError(shared.CodeNotFound, "Device not found")
	}
	return &d, nil
}

type memoryTxns struct{ *memoryUnit }

func (r memoryTxns) Create(_ context.Context, txn *inventory.InventoryTransaction) error {
	r.txns = append(r.txns, *txn)
	return nil
}

func (r memoryTxns) visible() []inventory.InventoryTransaction {
	r.scope.mu.Lock()
	defer r.scope.mu.Unlock()
	return append(append([]inventory.InventoryTransaction(nil), r.scope.state.txns...), r.txns...)
}

func (r memoryTxns) FindByIDForTenant(_ context.Context, tenantID, id uuid.UUID) (*inventory.InventoryTransaction, error) {
	for _, t := range r.visible() {
		if t.ID == id && t.TenantID == tenantID {
			return &t, nil
		}
	}
	return nil, shared.NewDomainError(shared.CodeNotFound, "Transaction not found")
}

func (r memoryTxns) ListForTenant(_ context.Context, tenantID uuid.UUID, filter inventory.TransactionFilter) ([]inventory.InventoryTransaction, error) {
	var out []inventory.InventoryTransaction
	for _, t := range r.visible() {
		if t.TenantID != tenantID {
			continue
		}
		if filter.ProductID != nil && t.ProductID != *filter.ProductID {
			continue
		}
		if filter.Type != "" && t.TransactionType != filter.Type {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

type memoryAudit struct{ *memoryUnit }

func (r memoryAudit) Create(_ context.Context, record *audit.AuditRecord) error {
	if r.scope.failAuditCreate != nil {
		return r.scope.failAuditCreate
	}
	r.audits = append(r.audits, *record)
	return nil
}

func (r memoryAudit) visible() []audit.AuditRecord {
	r.scope.mu.Lock()
	defer r.scope.mu.Unlock()
	return append(append([]audit.AuditRecord(nil), r.scope.state.audits...), r.audits...)
}

func (r memoryAudit) FindByTransaction(_ context.Context, tenantID, transactionID uuid.UUID) (*audit.AuditRecord, error) {
	for _, a := range r.visible() {
		if a.TransactionID == transactionID && a.TenantID == tenantID {
			return &a, nil
		}
	}
	return nil, shared.NewDomainError(shared.CodeNotFound, "Audit record not found")
}

func (r memoryAudit) ListForTenant(_ context.Context, tenantID uuid.UUID, _ shared.LogFilter) ([]audit.AuditRecord, error) {
	var out []audit.AuditRecord
	for _, a := range r.visible() {
		if a.TenantID == tenantID {
			out = append(out, a)
		}
	}
	return out, nil
}

var _ TransactionScope = (*memoryScope)(nil)
