package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	inventoryapp "github.com/stockledger/backend/internal/application/inventory"
	"github.com/stockledger/backend/internal/domain/identity"
	"github.com/stockledger/backend/internal/domain/shared"
	"github.com/stockledger/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newLedgerResult(productID uuid.UUID, before, after int64) *inventoryapp.LedgerResult {
	return &inventoryapp.LedgerResult{
		Transaction: inventoryapp.TransactionResponse{
			ID:              uuid.New(),
			TransactionType: "RECEIPT",
			Quantity:        after - before,
			ProductID:       productID,
		},
		AuditRecordID:  uuid.New(),
		QuantityBefore: before,
		QuantityAfter:  after,
		CacheKeys:      []string{"ledger:product", "ledger:list"},
	}
}

func TestLedgerHandler_Receive(t *testing.T) {
	who := newTestIdentity(identity.PermissionInventoryReceive)
	productID := uuid.New()

	t.Run("records the receipt and invalidates the cache", func(t *testing.T) {
		ledger := new(MockLedger)
		inv := new(MockInvalidator)
		result := newLedgerResult(productID, 10, 15)

		ledger.On("Receive", mock.Anything, who.tenantID, who.actor, inventoryapp.ReceiveRequest{
			ProductID: productID,
			Quantity:  5,
			Notes:     "dock 3",
		}).Return(result, nil)
		inv.On("Invalidate", mock.Anything, result.CacheKeys).Return(nil)

		w := doJSON(newLedgerRouter(t, ledger, inv, who), http.MethodPost, "/api/v1/ledger/receipts",
			fmt.Sprintf(`{"product_id":%q,"quantity":5,"notes":"dock 3"}`, productID))

		assert.Equal(t, http.StatusCreated, w.Code)
		resp := decodeResponse(t, w)
		assert.True(t, resp.Success)
		data := resp.Data.(map[string]any)
		assert.EqualValues(t, 10, data["quantity_before"])
		assert.EqualValues(t, 15, data["quantity_after"])
		assert.NotContains(t, w.Body.String(), "ledger:product")

		ledger.AssertExpectations(t)
		inv.AssertExpectations(t)
	})

	t.Run("cache failure does not fail the committed write", func(t *testing.T) {
		ledger := new(MockLedger)
		inv := new(MockInvalidator)
		result := newLedgerResult(productID, 0, 5)

		ledger.On("Receive", mock.Anything, who.tenantID, who.actor, mock.Anything).Return(result, nil)
		inv.On("Invalidate", mock.Anything, result.CacheKeys).Return(errors.New("redis down"))

		w := doJSON(newLedgerRouter(t, ledger, inv, who), http.MethodPost, "/api/v1/ledger/receipts",
			fmt.Sprintf(`{"product_id":%q,"quantity":5}`, productID))

		assert.Equal(t, http.StatusCreated, w.Code)
		inv.AssertExpectations(t)
	})

	t.Run("rejected by validation", func(t *testing.T) {
		ledger := new(MockLedger)
		w := doJSON(newLedgerRouter(t, ledger, nil, who), http.MethodPost, "/api/v1/ledger/receipts",
			fmt.Sprintf(`{"product_id":%q,"quantity":0}`, productID))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeValidation, decodeResponse(t, w).Error.Code)
		ledger.AssertNotCalled(t, "Receive", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("domain error is mapped", func(t *testing.T) {
		ledger := new(MockLedger)
		ledger.On("Receive", mock.Anything, who.tenantID, who.actor, mock.Anything).
			Return(nil, shared.NewDomainError(shared.CodeNotFound, "Product not found"))

		w := doJSON(newLedgerRouter(t, ledger, nil, who), http.MethodPost, "/api/v1/ledger/receipts",
			fmt.Sprintf(`{"product_id":%q,"quantity":5}`, productID))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, dto.ErrCodeNotFound, decodeResponse(t, w).Error.Code)
	})

	t.Run("missing permission", func(t *testing.T) {
		ledger := new(MockLedger)
		w := doJSON(newLedgerRouter(t, ledger, nil, newTestIdentity(identity.PermissionInventoryRead)),
			http.MethodPost, "/api/v1/ledger/receipts",
			fmt.Sprintf(`{"product_id":%q,"quantity":5}`, productID))

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestLedgerHandler_SellInvariantViolation(t *testing.T) {
	who := newTestIdentity(identity.PermissionInventorySell)
	ledger := new(MockLedger)
	ledger.On("Sell", mock.Anything, who.tenantID, who.actor, mock.Anything).
		Return(nil, shared.NewDomainError(shared.CodeInvariantViolation, "Insufficient stock"))

	w := doJSON(newLedgerRouter(t, ledger, nil, who), http.MethodPost, "/api/v1/ledger/sales",
		fmt.Sprintf(`{"product_id":%q,"quantity":50}`, uuid.New()))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, dto.ErrCodeInvariantViolation, decodeResponse(t, w).Error.Code)
}

func TestLedgerHandler_AdjustAndTransfer(t *testing.T) {
	who := newTestIdentity(identity.PermissionInventoryAdjust, identity.PermissionInventoryTransfer)
	productID := uuid.New()
	src, dst := uuid.New(), uuid.New()

	ledger := new(MockLedger)
	ledger.On("Adjust", mock.Anything, who.tenantID, who.actor, inventoryapp.AdjustRequest{
		ProductID: productID,
		Quantity:  -3,
	}).Return(newLedgerResult(productID, 10, 7), nil)
	ledger.On("Transfer", mock.Anything, who.tenantID, who.actor, inventoryapp.TransferRequest{
		ProductID:             productID,
		Quantity:              2,
		SourceLocationID:      src,
		DestinationLocationID: dst,
	}).Return(newLedgerResult(productID, 7, 7), nil)

	r := newLedgerRouter(t, ledger, nil, who)

	w := doJSON(r, http.MethodPost, "/api/v1/ledger/adjustments",
		fmt.Sprintf(`{"product_id":%q,"quantity":-3}`, productID))
	assert.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(r, http.MethodPost, "/api/v1/ledger/transfers",
		fmt.Sprintf(`{"product_id":%q,"quantity":2,"source_location_id":%q,"destination_location_id":%q}`, productID, src, dst))
	assert.Equal(t, http.StatusCreated, w.Code)

	ledger.AssertExpectations(t)
}

func TestLedgerHandler_Scan(t *testing.T) {
	body := `{"barcode":"4006381333931","transaction_type":"SALE","quantity":1}`

	t.Run("permission follows the scanned type", func(t *testing.T) {
		who := newTestIdentity(identity.PermissionInventorySell)
		ledger := new(MockLedger)
		ledger.On("ScanBarcode", mock.Anything, who.tenantID, who.actor, inventoryapp.ScanRequest{
			Barcode:         "4006381333931",
			TransactionType: "SALE",
			Quantity:        1,
		}).Return(newLedgerResult(uuid.New(), 3, 2), nil)

		w := doJSON(newLedgerRouter(t, ledger, nil, who), http.MethodPost, "/api/v1/ledger/scans", body)
		assert.Equal(t, http.StatusCreated, w.Code)
		ledger.AssertExpectations(t)
	})

	t.Run("receive permission does not allow a sale scan", func(t *testing.T) {
		who := newTestIdentity(identity.PermissionInventoryReceive)
		ledger := new(MockLedger)

		w := doJSON(newLedgerRouter(t, ledger, nil, who), http.MethodPost, "/api/v1/ledger/scans", body)
		assert.Equal(t, http.StatusForbidden, w.Code)
		ledger.AssertNotCalled(t, "ScanBarcode", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("transfer cannot be scanned", func(t *testing.T) {
		who := newTestIdentity(identity.PermissionInventoryTransfer)
		w := doJSON(newLedgerRouter(t, new(MockLedger), nil, who), http.MethodPost, "/api/v1/ledger/scans",
			`{"barcode":"4006381333931","transaction_type":"TRANSFER","quantity":1}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestLedgerHandler_GetTransaction(t *testing.T) {
	who := newTestIdentity(identity.PermissionInventoryRead)
	txID := uuid.New()

	ledger := new(MockLedger)
	ledger.On("GetTransaction", mock.Anything, who.tenantID, txID).Return(&inventoryapp.TransactionDetail{
		Transaction: inventoryapp.TransactionResponse{ID: txID, TransactionType: "SALE"},
	}, nil)
	missing := uuid.New()
	ledger.On("GetTransaction", mock.Anything, who.tenantID, missing).
		Return(nil, shared.NewDomainError(shared.CodeNotFound, "Transaction not found"))

	r := newLedgerRouter(t, ledger, nil, who)

	w := doJSON(r, http.MethodGet, "/api/v1/ledger/transactions/"+txID.String(), "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodGet, "/api/v1/ledger/transactions/"+missing.String(), "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(r, http.MethodGet, "/api/v1/ledger/transactions/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLedgerHandler_ListTransactions(t *testing.T) {
	who := newTestIdentity(identity.PermissionInventoryRead)
	productID := uuid.New()
	since := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	ledger := new(MockLedger)
	ledger.On("ListTransactions", mock.Anything, who.tenantID, mock.MatchedBy(func(f inventoryapp.TransactionListFilter) bool {
		return f.ProductID != nil && *f.ProductID == productID &&
			f.TransactionType == "SALE" &&
			f.Since != nil && f.Since.Equal(since) && f.Until == nil &&
			f.Limit == 200 && f.Offset == 5
	})).Return([]inventoryapp.TransactionResponse{{ID: uuid.New()}}, nil)

	r := newLedgerRouter(t, ledger, nil, who)

	w := doJSON(r, http.MethodGet, fmt.Sprintf(
		"/api/v1/ledger/transactions?product_id=%s&transaction_type=SALE&since=%s&limit=1000&offset=5",
		productID, since.Format(time.RFC3339)), "")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 1, resp.Meta.Count)
	ledger.AssertExpectations(t)

	for _, query := range []string{
		"limit=0",
		"limit=abc",
		"offset=-1",
		"since=yesterday",
		"product_id=abc",
		"transaction_type=REFUND",
		"since=2026-02-01T00:00:00Z&until=2026-01-01T00:00:00Z",
	} {
		w := doJSON(r, http.MethodGet, "/api/v1/ledger/transactions?"+query, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, query)
	}

	w = doJSON(r, http.MethodGet, "/api/v1/ledger/transactions?limit=0", "")
	resp = decodeResponse(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	require.Len(t, resp.Error.Details, 1)
	assert.Equal(t, "limit", resp.Error.Details[0].Field)
}

func TestLedgerHandler_ListTransactions_Defaults(t *testing.T) {
	who := newTestIdentity(identity.PermissionInventoryRead)
	until := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	ledger := new(MockLedger)
	ledger.On("ListTransactions", mock.Anything, who.tenantID, mock.MatchedBy(func(f inventoryapp.TransactionListFilter) bool {
		return f.ProductID == nil && f.TransactionType == "" &&
			f.Since == nil && f.Until != nil && f.Until.Equal(until) &&
			f.Limit == defaultPageLimit && f.Offset == 0
	})).Return([]inventoryapp.TransactionResponse{}, nil)

	w := doJSON(newLedgerRouter(t, ledger, nil, who), http.MethodGet,
		"/api/v1/ledger/transactions?until="+until.Format(time.RFC3339), "")
	assert.Equal(t, http.StatusOK, w.Code)
	ledger.AssertExpectations(t)
}

func TestLedgerHandler_ListAudit(t *testing.T) {
	who := newTestIdentity(identity.PermissionAuditRead)
	ledger := new(MockLedger)
	ledger.On("ListAudit", mock.Anything, who.tenantID, inventoryapp.AuditListFilter{Limit: defaultPageLimit}).
		Return([]inventoryapp.AuditRecordResponse{}, nil)

	w := doJSON(newLedgerRouter(t, ledger, nil, who), http.MethodGet, "/api/v1/ledger/audit", "")
	assert.Equal(t, http.StatusOK, w.Code)
	ledger.AssertExpectations(t)

	w = doJSON(newLedgerRouter(t, new(MockLedger), nil, newTestIdentity(identity.PermissionInventoryRead)),
		http.MethodGet, "/api/v1/ledger/audit", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}
