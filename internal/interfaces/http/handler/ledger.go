package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	inventoryapp "github.com/stockledger/backend/internal/application/inventory"
	"github.com/stockledger/backend/internal/domain/identity"
	"github.com/stockledger/backend/internal/domain/inventory"
	"github.com/stockledger/backend/internal/infrastructure/cache"
	"github.com/stockledger/backend/internal/infrastructure/logger"
	"github.com/stockledger/backend/internal/interfaces/http/middleware"
	"github.com/stockledger/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

// Listing bounds
const (
	defaultPageLimit = 50
	maxPageLimit     = 200
)

// LedgerOperations is the ledger service surface the HTTP layer uses
type LedgerOperations interface {
	Receive(ctx context.Context, tenantID uuid.UUID, actor identity.Actor, req inventoryapp.ReceiveRequest) (*inventoryapp.LedgerResult, error)
	Adjust(ctx context.Context, tenantID uuid.UUID, actor identity.Actor, req inventoryapp.AdjustRequest) (*inventoryapp.LedgerResult, error)
	Sell(ctx context.Context, tenantID uuid.UUID, actor identity.Actor, req inventoryapp.SellRequest) (*inventoryapp.LedgerResult, error)
	Transfer(ctx context.Context, tenantID uuid.UUID, actor identity.Actor, req inventoryapp.TransferRequest) (*inventoryapp.LedgerResult, error)
	ScanBarcode(ctx context.Context, tenantID uuid.UUID, actor identity.Actor, req inventoryapp.ScanRequest) (*inventoryapp.LedgerResult, error)
	GetTransaction(ctx context.Context, tenantID, transactionID uuid.UUID) (*inventoryapp.TransactionDetail, error)
	ListTransactions(ctx context.Context, tenantID uuid.UUID, filter inventoryapp.TransactionListFilter) ([]inventoryapp.TransactionResponse, error)
	ListAudit(ctx context.Context, tenantID uuid.UUID, filter inventoryapp.AuditListFilter) ([]inventoryapp.AuditRecordResponse, error)
}

// scanPermissions maps a scanned transaction type to the permission it needs
var scanPermissions = map[inventory.TransactionType]identity.Permission{
	inventory.TransactionTypeReceipt:    identity.PermissionInventoryReceive,
	inventory.TransactionTypeAdjustment: identity.PermissionInventoryAdjust,
	inventory.TransactionTypeSale:       identity.PermissionInventorySell,
}

// LedgerHandler handles the ledger API endpoints
type LedgerHandler struct {
	BaseHandler
	ledger LedgerOperations
	cache  cache.Invalidator
	logger *zap.Logger
}

// NewLedgerHandler creates a new LedgerHandler. A nil invalidator disables
// post-commit cache invalidation.
func NewLedgerHandler(ledger LedgerOperations, invalidator cache.Invalidator, log *zap.Logger) *LedgerHandler {
	if invalidator == nil {
		invalidator = cache.NopInvalidator{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &LedgerHandler{
		ledger: ledger,
		cache:  invalidator,
		logger: log,
	}
}

// RegisterRoutes mounts the ledger endpoints with their permissions
func (h *LedgerHandler) RegisterRoutes(g *router.DomainGroup) {
	perm := func(p identity.Permission) gin.HandlerFunc {
		return middleware.RequirePermissionWithConfig(middleware.PermissionConfig{Logger: h.logger}, p)
	}

	g.POST("/receipts", perm(identity.PermissionInventoryReceive), h.Receive)
	g.POST("/adjustments", perm(identity.PermissionInventoryAdjust), h.Adjust)
	g.POST("/sales", perm(identity.PermissionInventorySell), h.Sell)
	g.POST("/transfers", perm(identity.PermissionInventoryTransfer), h.Transfer)
	// Scans are authorized per transaction type once the body is read
	g.POST("/scans", h.Scan)
	g.GET("/transactions", perm(identity.PermissionInventoryRead), h.ListTransactions)
	g.GET("/transactions/:id", perm(identity.PermissionInventoryRead), h.GetTransaction)
	g.GET("/audit", perm(identity.PermissionAuditRead), h.ListAudit)
}

// identityFrom returns the authenticated tenant and actor or answers 401
func (h *LedgerHandler) identityFrom(c *gin.Context) (uuid.UUID, identity.Actor, bool) {
	tenantID, ok := middleware.GetTenantID(c)
	if !ok {
		h.Unauthorized(c, "Tenant context required")
		return uuid.Nil, identity.Actor{}, false
	}
	actor, ok := middleware.GetActor(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return uuid.Nil, identity.Actor{}, false
	}
	return tenantID, actor, true
}

// respond writes a committed ledger result and then invalidates the cache
// entries the write made stale
func (h *LedgerHandler) respond(c *gin.Context, result *inventoryapp.LedgerResult, err error) {
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if len(result.CacheKeys) > 0 {
		if cerr := h.cache.Invalidate(c.Request.Context(), result.CacheKeys...); cerr != nil {
			logger.Enrich(c.Request.Context(), h.logger).Warn("Cache invalidation failed after commit",
				zap.Error(cerr),
				zap.Strings("keys", result.CacheKeys),
			)
		}
	}

	h.Created(c, result)
}

// Receive godoc
// @Summary      Receive stock
// @Tags         ledger
// @Accept       json
// @Produce      json
// @Param        request body inventoryapp.ReceiveRequest true "Receipt"
// @Success      201 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Router       /ledger/receipts [post]
func (h *LedgerHandler) Receive(c *gin.Context) {
	tenantID, actor, ok := h.identityFrom(c)
	if !ok {
		return
	}
	var req inventoryapp.ReceiveRequest
	if !h.BindJSON(c, &req) {
		return
	}
	result, err := h.ledger.Receive(c.Request.Context(), tenantID, actor, req)
	h.respond(c, result, err)
}

// Adjust godoc
// @Summary      Adjust stock by a signed quantity
// @Tags         ledger
// @Accept       json
// @Produce      json
// @Param        request body inventoryapp.AdjustRequest true "Adjustment"
// @Success      201 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Router       /ledger/adjustments [post]
func (h *LedgerHandler) Adjust(c *gin.Context) {
	tenantID, actor, ok := h.identityFrom(c)
	if !ok {
		return
	}
	var req inventoryapp.AdjustRequest
	if !h.BindJSON(c, &req) {
		return
	}
	result, err := h.ledger.Adjust(c.Request.Context(), tenantID, actor, req)
	h.respond(c, result, err)
}

// Sell godoc
// @Summary      Record a sale
// @Tags         ledger
// @Accept       json
// @Produce      json
// @Param        request body inventoryapp.SellRequest true "Sale"
// @Success      201 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Router       /ledger/sales [post]
func (h *LedgerHandler) Sell(c *gin.Context) {
	tenantID, actor, ok := h.identityFrom(c)
	if !ok {
		return
	}
	var req inventoryapp.SellRequest
	if !h.BindJSON(c, &req) {
		return
	}
	result, err := h.ledger.Sell(c.Request.Context(), tenantID, actor, req)
	h.respond(c, result, err)
}

// Transfer godoc
// @Summary      Move stock between two locations
// @Tags         ledger
// @Accept       json
// @Produce      json
// @Param        request body inventoryapp.TransferRequest true "Transfer"
// @Success      201 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Router       /ledger/transfers [post]
func (h *LedgerHandler) Transfer(c *gin.Context) {
	tenantID, actor, ok := h.identityFrom(c)
	if !ok {
		return
	}
	var req inventoryapp.TransferRequest
	if !h.BindJSON(c, &req) {
		return
	}
	result, err := h.ledger.Transfer(c.Request.Context(), tenantID, actor, req)
	h.respond(c, result, err)
}

// Scan godoc
// @Summary      Record a barcode scan
// @Description  Resolves the barcode to a product and records a receipt, adjustment or sale
// @Tags         ledger
// @Accept       json
// @Produce      json
// @Param        request body inventoryapp.ScanRequest true "Scan"
// @Success      201 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Router       /ledger/scans [post]
func (h *LedgerHandler) Scan(c *gin.Context) {
	tenantID, actor, ok := h.identityFrom(c)
	if !ok {
		return
	}
	var req inventoryapp.ScanRequest
	if !h.BindJSON(c, &req) {
		return
	}

	txType, err := inventory.ParseTransactionType(req.TransactionType)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	required, ok := scanPermissions[txType]
	if !ok {
		h.BadRequest(c, "Transaction type cannot be scanned")
		return
	}
	if !middleware.HasPermission(c, required) {
		middleware.DenyPermission(c, h.logger, required)
		return
	}

	result, err := h.ledger.ScanBarcode(c.Request.Context(), tenantID, actor, req)
	h.respond(c, result, err)
}

// GetTransaction godoc
// @Summary      Get a ledger entry with its audit record
// @Tags         ledger
// @Produce      json
// @Param        id path string true "Transaction ID"
// @Success      200 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Router       /ledger/transactions/{id} [get]
func (h *LedgerHandler) GetTransaction(c *gin.Context) {
	tenantID, _, ok := h.identityFrom(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid transaction ID format")
		return
	}

	detail, err := h.ledger.GetTransaction(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, detail)
}

// ListTransactions godoc
// @Summary      List ledger entries
// @Tags         ledger
// @Produce      json
// @Param        product_id       query string false "Product ID"
// @Param        transaction_type query string false "RECEIPT, ADJUSTMENT, TRANSFER or SALE"
// @Param        since            query string false "RFC3339 lower bound"
// @Param        until            query string false "RFC3339 upper bound"
// @Param        limit            query int    false "Page size"
// @Param        offset           query int    false "Offset"
// @Success      200 {object} dto.Response
// @Router       /ledger/transactions [get]
func (h *LedgerHandler) ListTransactions(c *gin.Context) {
	tenantID, _, ok := h.identityFrom(c)
	if !ok {
		return
	}

	var query transactionListQuery
	if !h.BindQuery(c, &query) {
		return
	}
	if !h.checkWindow(c, query.pageQuery) {
		return
	}
	filter := inventoryapp.TransactionListFilter{
		TransactionType: query.TransactionType,
		Since:           query.Since,
		Until:           query.Until,
		Limit:           query.limit(),
		Offset:          query.Offset,
	}
	if query.ProductID != "" {
		id, err := uuid.Parse(query.ProductID)
		if err != nil {
			h.BadRequest(c, "Invalid product_id format")
			return
		}
		filter.ProductID = &id
	}

	items, err := h.ledger.ListTransactions(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessList(c, items, filter.Limit, filter.Offset, len(items))
}

// ListAudit godoc
// @Summary      List audit records
// @Tags         ledger
// @Produce      json
// @Param        since  query string false "RFC3339 lower bound"
// @Param        until  query string false "RFC3339 upper bound"
// @Param        limit  query int    false "Page size"
// @Param        offset query int    false "Offset"
// @Success      200 {object} dto.Response
// @Router       /ledger/audit [get]
func (h *LedgerHandler) ListAudit(c *gin.Context) {
	tenantID, _, ok := h.identityFrom(c)
	if !ok {
		return
	}

	var query pageQuery
	if !h.BindQuery(c, &query) {
		return
	}
	if !h.checkWindow(c, query) {
		return
	}
	filter := inventoryapp.AuditListFilter{
		Since:  query.Since,
		Until:  query.Until,
		Limit:  query.limit(),
		Offset: query.Offset,
	}

	items, err := h.ledger.ListAudit(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessList(c, items, filter.Limit, filter.Offset, len(items))
}

// pageQuery is the time window and page shared by the log listings
type pageQuery struct {
	Since  *time.Time `form:"since" json:"since" time_format:"2006-01-02T15:04:05Z07:00"`
	Until  *time.Time `form:"until" json:"until" time_format:"2006-01-02T15:04:05Z07:00"`
	Limit  *int       `form:"limit" json:"limit" binding:"omitempty,min=1"`
	Offset int        `form:"offset" json:"offset" binding:"omitempty,min=0"`
}

// limit applies the default page size and clamps to maxPageLimit
func (q pageQuery) limit() int {
	switch {
	case q.Limit == nil:
		return defaultPageLimit
	case *q.Limit > maxPageLimit:
		return maxPageLimit
	default:
		return *q.Limit
	}
}

// transactionListQuery filters the ledger listing
type transactionListQuery struct {
	pageQuery
	ProductID       string `form:"product_id" json:"product_id" binding:"omitempty,uuid"`
	TransactionType string `form:"transaction_type" json:"transaction_type" binding:"omitempty,oneof=RECEIPT ADJUSTMENT TRANSFER SALE"`
}

// checkWindow rejects a window that ends before it starts
func (h *LedgerHandler) checkWindow(c *gin.Context, q pageQuery) bool {
	if q.Since != nil && q.Until != nil && q.Until.Before(*q.Since) {
		h.BadRequest(c, "until must not be before since")
		return false
	}
	return true
}
