package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/audit"
	"github.com/stockledger/backend/internal/domain/inventory"
	"github.com/stockledger/backend/internal/domain/shared"
)

// ReceiveRequest adds stock to a product
type ReceiveRequest struct {
	ProductID  uuid.UUID  `json:"product_id" binding:"required"`
	Quantity   int64      `json:"quantity" binding:"required,gt=0"`
	LocationID *uuid.UUID `json:"location_id"`
	Notes      string     `json:"notes" binding:"max=1000"`
}

// AdjustRequest corrects stock by a signed quantity
type AdjustRequest struct {
	ProductID  uuid.UUID  `json:"product_id" binding:"required"`
	Quantity   int64      `json:"quantity" binding:"required,ne=0"`
	LocationID *uuid.UUID `json:"location_id"`
	Notes      string     `json:"notes" binding:"max=1000"`
}

// SellRequest removes sold stock from a product
type SellRequest struct {
	ProductID  uuid.UUID  `json:"product_id" binding:"required"`
	Quantity   int64      `json:"quantity" binding:"required,gt=0"`
	LocationID *uuid.UUID `json:"location_id"`
	Notes      string     `json:"notes" binding:"max=1000"`
}

// TransferRequest records stock moving between two locations
type TransferRequest struct {
	ProductID             uuid.UUID `json:"product_id" binding:"required"`
	Quantity              int64     `json:"quantity" binding:"required,gt=0"`
	SourceLocationID      uuid.UUID `json:"source_location_id" binding:"required"`
	DestinationLocationID uuid.UUID `json:"destination_location_id" binding:"required"`
	Notes                 string    `json:"notes" binding:"max=1000"`
}

// ScanRequest dispatches a barcode scan to a receipt, adjustment or sale
type ScanRequest struct {
	Barcode         string     `json:"barcode" binding:"required,max=64"`
	TransactionType string     `json:"transaction_type" binding:"required,oneof=RECEIPT ADJUSTMENT SALE"`
	Quantity        int64      `json:"quantity" binding:"required,ne=0"`
	LocationID      *uuid.UUID `json:"location_id"`
	Notes           string     `json:"notes" binding:"max=1000"`
}

// TransactionResponse represents a ledger entry in API responses
type TransactionResponse struct {
	ID                    uuid.UUID  `json:"id"`
	TenantID              uuid.UUID  `json:"tenant_id"`
	TransactionType       string     `json:"transaction_type"`
	Quantity              int64      `json:"quantity"`
	ProductID             uuid.UUID  `json:"product_id"`
	SourceLocationID      *uuid.UUID `json:"source_location_id,omitempty"`
	DestinationLocationID *uuid.UUID `json:"destination_location_id,omitempty"`
	PerformedBy           *uuid.UUID `json:"performed_by,omitempty"`
	DeviceID              *uuid.UUID `json:"device_id,omitempty"`
	Notes                 string     `json:"notes,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
}

// ToTransactionResponse converts a ledger entry to its response DTO
func ToTransactionResponse(t *inventory.InventoryTransaction) TransactionResponse {
	return TransactionResponse{
		ID:                    t.ID,
		TenantID:              t.TenantID,
		TransactionType:       t.TransactionType.String(),
		Quantity:              t.Quantity,
		ProductID:             t.ProductID,
		SourceLocationID:      t.SourceLocationID,
		DestinationLocationID: t.DestinationLocationID,
		PerformedBy:           t.PerformedBy,
		DeviceID:              t.DeviceID,
		Notes:                 t.Notes,
		CreatedAt:             t.CreatedAt,
	}
}

// AuditRecordResponse represents an audit record in API responses
type AuditRecordResponse struct {
	ID            uuid.UUID      `json:"id"`
	TransactionID uuid.UUID      `json:"transaction_id"`
	DeviceID      *uuid.UUID     `json:"device_id,omitempty"`
	UserID        *uuid.UUID     `json:"user_id,omitempty"`
	ActionType    string         `json:"action_type"`
	Metadata      map[string]any `json:"metadata"`
	CreatedAt     time.Time      `json:"created_at"`
}

// ToAuditRecordResponse converts an audit record to its response DTO
func ToAuditRecordResponse(r *audit.AuditRecord) AuditRecordResponse {
	return AuditRecordResponse{
		ID:            r.ID,
		TransactionID: r.TransactionID,
		DeviceID:      r.DeviceID,
		UserID:        r.UserID,
		ActionType:    string(r.ActionType),
		Metadata:      map[string]any(r.Metadata),
		CreatedAt:     r.CreatedAt,
	}
}

// LedgerResult is the outcome of one committed ledger operation
type LedgerResult struct {
	Transaction       TransactionResponse `json:"transaction"`
	AuditRecordID     uuid.UUID           `json:"audit_record_id"`
	QuantityBefore    int64               `json:"quantity_before"`
	QuantityAfter     int64               `json:"quantity_after"`
	BelowReorderPoint bool                `json:"below_reorder_point"`
	// CacheKeys must be invalidated by the caller once the result is returned
	CacheKeys []string `json:"-"`
}

// TransactionDetail is a ledger entry read back together with its audit record
type TransactionDetail struct {
	Transaction TransactionResponse `json:"transaction"`
	AuditRecord AuditRecordResponse `json:"audit_record"`
}

// TransactionListFilter selects ledger entries of a tenant
type TransactionListFilter struct {
	ProductID       *uuid.UUID
	TransactionType string
	Since           *time.Time
	Until           *time.Time
	Limit           int
	Offset          int
}

func (f TransactionListFilter) toDomain() (inventory.TransactionFilter, error) {
	filter := inventory.TransactionFilter{
		LogFilter: shared.LogFilter{Since: f.Since, Until: f.Until, Limit: f.Limit, Offset: f.Offset},
		ProductID: f.ProductID,
	}
	if f.TransactionType != "" {
		t, err := inventory.ParseTransactionType(f.TransactionType)
		if err != nil {
			return filter, err
		}
		filter.Type = t
	}
	return filter, nil
}

// AuditListFilter selects audit records of a tenant
type AuditListFilter struct {
	Since  *time.Time
	Until  *time.Time
	Limit  int
	Offset int
}

func (f AuditListFilter) toDomain() shared.LogFilter {
	return shared.LogFilter{Since: f.Since, Until: f.Until, Limit: f.Limit, Offset: f.Offset}
}
