package inventory

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/audit"
	"github.com/stockledger/backend/internal/domain/catalog"
	"github.com/stockledger/backend/internal/domain/identity"
	"github.com/stockledger/backend/internal/domain/inventory"
	"github.com/stockledger/backend/internal/domain/shared"
	"github.com/stockledger/backend/internal/infrastructure/logger"
	"github.com/stockledger/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Operation outcomes reported to LedgerMetrics
const (
	OutcomeSuccess = "success"
)

// LedgerMetrics observes completed ledger operations. A nil value disables it.
type LedgerMetrics interface {
	RecordOperation(ctx context.Context, txType inventory.TransactionType, outcome string, moved int64)
}

// LedgerService records stock movements. Every operation is one unit of work
// on a tenant-scoped connection: the ledger entry, the quantity change and the
// audit record commit together or not at all.
type LedgerService struct {
	scope          TransactionScope
	logger         *zap.Logger
	metrics        LedgerMetrics
	cacheKeyPrefix string
	timeout        time.Duration
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(scope TransactionScope, log *zap.Logger) *LedgerService {
	if log == nil {
		log = zap.NewNop()
	}
	return &LedgerService{
		scope:          scope,
		logger:         log.Named("ledger"),
		cacheKeyPrefix: DefaultCacheKeyPrefix,
	}
}

// SetMetrics sets the metrics recorder
func (s *LedgerService) SetMetrics(metrics LedgerMetrics) {
	s.metrics = metrics
}

// SetCacheKeyPrefix sets the prefix of the cache keys returned in results
func (s *LedgerService) SetCacheKeyPrefix(prefix string) {
	if prefix != "" {
		s.cacheKeyPrefix = prefix
	}
}

// SetOperationTimeout bounds each operation. Zero means the caller's context only.
func (s *LedgerService) SetOperationTimeout(timeout time.Duration) {
	s.timeout = timeout
}

// scanInfo marks a movement dispatched from a barcode scan
type scanInfo struct {
	barcode string
}

// Receive records a RECEIPT and increases the product's quantity
func (s *LedgerService) Receive(ctx context.Context, tenantID uuid.UUID, actor identity.Actor, req ReceiveRequest) (*LedgerResult, error) {
	m, err := inventory.NewReceipt(req.ProductID, req.Quantity, req.LocationID)
	if err != nil {
		return nil, s.rejected(ctx, inventory.TransactionTypeReceipt, err)
	}
	return s.record(ctx, tenantID, actor, m, req.Notes)
}

// Adjust records an ADJUSTMENT with a signed quantity
func (s *LedgerService) Adjust(ctx context.Context, tenantID uuid.UUID, actor identity.Actor, req AdjustRequest) (*LedgerResult, error) {
	m, err := inventory.NewAdjustment(req.ProductID, req.Quantity, req.LocationID)
	if err != nil {
		return nil, s.rejected(ctx, inventory.TransactionTypeAdjustment, err)
	}
	return s.record(ctx, tenantID, actor, m, req.Notes)
}

// Sell records a SALE and decreases the product's quantity
func (s *LedgerService) Sell(ctx context.Context, tenantID uuid.UUID, actor identity.Actor, req SellRequest) (*LedgerResult, error) {
	m, err := inventory.NewSale(req.ProductID, req.Quantity, req.LocationID)
	if err != nil {
		return nil, s.rejected(ctx, inventory.TransactionTypeSale, err)
	}
	return s.record(ctx, tenantID, actor, m, req.Notes)
}

// Transfer records stock moving between two locations. The product's
// quantity is tenant-wide, so it does not change.
func (s *LedgerService) Transfer(ctx context.Context, tenantID uuid.UUID, actor identity.Actor, req TransferRequest) (*LedgerResult, error) {
	m, err := inventory.NewTransfer(req.ProductID, req.Quantity, req.SourceLocationID, req.DestinationLocationID)
	if err != nil {
		return nil, s.rejected(ctx, inventory.TransactionTypeTransfer, err)
	}
	return s.record(ctx, tenantID, actor, m, req.Notes)
}

// ScanBarcode resolves the product by barcode and dispatches to a receipt,
// adjustment or sale in the same unit of work
func (s *LedgerService) ScanBarcode(ctx context.Context, tenantID uuid.UUID, actor identity.Actor, req ScanRequest) (*LedgerResult, error) {
	txType, err := inventory.ParseTransactionType(req.TransactionType)
	if err != nil {
		return nil, s.rejected(ctx, inventory.TransactionType(req.TransactionType), err)
	}
	if !txType.IsScannable() {
		return nil, s.rejected(ctx, txType, shared.NewDomainError(shared.CodeInvalidInput,
			"Transaction type "+txType.String()+" cannot be dispatched from a barcode scan"))
	}
	barcode := strings.TrimSpace(req.Barcode)
	if barcode == "" {
		return nil, s.rejected(ctx, txType, shared.NewDomainError(shared.CodeInvalidInput, "Barcode cannot be empty"))
	}
	actor = actor.Normalized()
	if err := actor.Validate(); err != nil {
		return nil, s.rejected(ctx, txType, err)
	}

	return s.execute(ctx, tenantID, txType, func(ctx context.Context, repos TransactionalRepositories) (*LedgerResult, error) {
		product, err := repos.Products().FindByBarcode(ctx, tenantID, barcode)
		if err != nil {
			return nil, err
		}
		m, err := inventory.NewScanMovement(txType, product.ID, req.Quantity, req.LocationID)
		if err != nil {
			return nil, err
		}
		return s.apply(ctx, repos, tenantID, actor, m, req.Notes, product, &scanInfo{barcode: barcode})
	})
}

func (s *LedgerService) record(ctx context.Context, tenantID uuid.UUID, actor identity.Actor, m inventory.Movement, notes string) (*LedgerResult, error) {
	actor = actor.Normalized()
	if err := actor.Validate(); err != nil {
		return nil, s.rejected(ctx, m.Type, err)
	}
	return s.execute(ctx, tenantID, m.Type, func(ctx context.Context, repos TransactionalRepositories) (*LedgerResult, error) {
		return s.apply(ctx, repos, tenantID, actor, m, notes, nil, nil)
	})
}

// execute runs fn as one unit of work and reports its outcome
func (s *LedgerService) execute(
	ctx context.Context,
	tenantID uuid.UUID,
	txType inventory.TransactionType,
	fn func(ctx context.Context, repos TransactionalRepositories) (*LedgerResult, error),
) (*LedgerResult, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	ctx = logger.WithTenantID(ctx, tenantID.String())

	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", strings.ToLower(txType.String()),
		"tenant_id", tenantID,
	)
	defer span.End()

	var result *LedgerResult
	err := s.scope.Execute(ctx, tenantID, func(repos TransactionalRepositories) error {
		r, err := fn(ctx, repos)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		err = shared.NewTransactionFailure("record "+strings.ToLower(txType.String()), err)
		telemetry.RecordError(span, err)
		return nil, s.rejected(ctx, txType, err)
	}
	telemetry.SetAttributes(span,
		"transaction_id", result.Transaction.ID,
		"quantity_after", result.QuantityAfter,
	)

	moved := result.Transaction.Quantity
	if moved < 0 {
		moved = -moved
	}
	if s.metrics != nil {
		s.metrics.RecordOperation(ctx, txType, OutcomeSuccess, moved)
	}
	logger.Enrich(ctx, s.logger).Info("Ledger operation recorded",
		zap.String("transaction_type", txType.String()),
		zap.String("transaction_id", result.Transaction.ID.String()),
		zap.String("product_id", result.Transaction.ProductID.String()),
		zap.Int64("quantity_before", result.QuantityBefore),
		zap.Int64("quantity_after", result.QuantityAfter),
	)
	return result, nil
}

// apply performs the ledger algorithm inside an open transaction. product may
// be nil, in which case it is loaded by the movement's product id.
func (s *LedgerService) apply(
	ctx context.Context,
	repos TransactionalRepositories,
	tenantID uuid.UUID,
	actor identity.Actor,
	m inventory.Movement,
	notes string,
	product *catalog.Product,
	scan *scanInfo,
) (*LedgerResult, error) {
	if product == nil {
		var err error
		product, err = repos.Products().FindByIDForTenant(ctx, tenantID, m.ProductID)
		if err != nil {
			return nil, err
		}
	}

	for _, locationID := range m.LocationIDs() {
		if _, err := repos.Locations().FindByIDForTenant(ctx, tenantID, locationID); err != nil {
			return nil, err
		}
	}

	if actor.HasDevice() {
		device, err := repos.Devices().FindByIDForTenant(ctx, tenantID, *actor.DeviceID)
		if err != nil {
			return nil, err
		}
		if !device.IsAuthorized() {
			return nil, shared.NewDomainError(shared.CodeForbidden, "Device is revoked")
		}
	}

	// Fail fast on the snapshot; the conditional update below is authoritative.
	if _, err := m.ApplyTo(product.Quantity); err != nil {
		return nil, err
	}

	txn, err := inventory.NewInventoryTransaction(tenantID, m, actor, notes)
	if err != nil {
		return nil, err
	}
	if err := repos.Transactions().Create(ctx, txn); err != nil {
		return nil, err
	}

	before, after := product.Quantity, product.Quantity
	if delta := txn.QuantityDelta(); delta != 0 {
		after, err = repos.Products().ApplyQuantityDelta(ctx, tenantID, product.ID, delta)
		if err != nil {
			return nil, err
		}
		before = after - delta
	}

	snapshot := audit.Snapshot{
		ProductID:      product.ID,
		SKU:            product.SKU,
		QuantityBefore: before,
		QuantityAfter:  after,
	}
	if scan != nil {
		snapshot.Scanned = true
		snapshot.Barcode = scan.barcode
	}
	record, err := audit.NewAuditRecord(txn, snapshot)
	if err != nil {
		return nil, err
	}
	if err := repos.Audit().Create(ctx, record); err != nil {
		return nil, err
	}

	return &LedgerResult{
		Transaction:       ToTransactionResponse(txn),
		AuditRecordID:     record.ID,
		QuantityBefore:    before,
		QuantityAfter:     after,
		BelowReorderPoint: product.NeedsReorder(after),
		CacheKeys: []string{
			ProductCacheKey(s.cacheKeyPrefix, tenantID, product.ID),
			ListCacheKey(s.cacheKeyPrefix, tenantID),
		},
	}, nil
}

// rejected logs and counts a failed operation and returns err unchanged
func (s *LedgerService) rejected(ctx context.Context, txType inventory.TransactionType, err error) error {
	code := shared.CodeOf(err)
	if code == "" {
		code = shared.CodeTransactionFailure
	}
	if s.metrics != nil {
		s.metrics.RecordOperation(ctx, txType, strings.ToLower(code), 0)
	}

	log := logger.Enrich(ctx, s.logger).With(
		zap.String("transaction_type", txType.String()),
		zap.String("code", code),
	)
	if code == shared.CodeTransactionFailure {
		log.Error("Ledger operation failed", zap.Error(err))
	} else {
		log.Info("Ledger operation rejected", zap.String("reason", err.Error()))
	}
	return err
}

// GetTransaction reads back a ledger entry with its audit record
func (s *LedgerService) GetTransaction(ctx context.Context, tenantID, transactionID uuid.UUID) (*TransactionDetail, error) {
	var detail *TransactionDetail
	err := s.scope.Execute(ctx, tenantID, func(repos TransactionalRepositories) error {
		txn, err := repos.Transactions().FindByIDForTenant(ctx, tenantID, transactionID)
		if err != nil {
			return err
		}
		record, err := repos.Audit().FindByTransaction(ctx, tenantID, txn.ID)
		if err != nil {
			return err
		}
		detail = &TransactionDetail{
			Transaction: ToTransactionResponse(txn),
			AuditRecord: ToAuditRecordResponse(record),
		}
		return nil
	})
	if err != nil {
		return nil, shared.NewTransactionFailure("get transaction", err)
	}
	return detail, nil
}

// ListTransactions returns a tenant's ledger entries ordered by creation time
func (s *LedgerService) ListTransactions(ctx context.Context, tenantID uuid.UUID, filter TransactionListFilter) ([]TransactionResponse, error) {
	domainFilter, err := filter.toDomain()
	if err != nil {
		return nil, err
	}

	var responses []TransactionResponse
	err = s.scope.Execute(ctx, tenantID, func(repos TransactionalRepositories) error {
		txns, err := repos.Transactions().ListForTenant(ctx, tenantID, domainFilter)
		if err != nil {
			return err
		}
		responses = make([]TransactionResponse, 0, len(txns))
		for i := range txns {
			responses = append(responses, ToTransactionResponse(&txns[i]))
		}
		return nil
	})
	if err != nil {
		return nil, shared.NewTransactionFailure("list transactions", err)
	}
	return responses, nil
}

// ListAudit returns a tenant's audit records ordered by creation time
func (s *LedgerService) ListAudit(ctx context.Context, tenantID uuid.UUID, filter AuditListFilter) ([]AuditRecordResponse, error) {
	var responses []AuditRecordResponse
	err := s.scope.Execute(ctx, tenantID, func(repos TransactionalRepositories) error {
		records, err := repos.Audit().ListForTenant(ctx, tenantID, filter.toDomain())
		if err != nil {
			return err
		}
		responses = make([]AuditRecordResponse, 0, len(records))
		for i := range records {
			responses = append(responses, ToAuditRecordResponse(&records[i]))
		}
		return nil
	})
	if err != nil {
		return nil, shared.NewTransactionFailure("list audit records", err)
	}
	return responses, nil
}
