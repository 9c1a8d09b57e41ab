package audit

import (
	"time"

	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/inventory"
	"github.com/stockledger/backend/internal/domain/shared"
	"gorm.io/datatypes"
)

// ActionType names the ledger action an audit record describes
type ActionType string

const (
	ActionStockReceipt    ActionType = "STOCK_RECEIPT"
	ActionStockAdjustment ActionType = "STOCK_ADJUSTMENT"
	ActionStockTransfer   ActionType = "STOCK_TRANSFER"
	ActionSale            ActionType = "SALE"
)

// ActionFor maps a ledger transaction type to its audit action
func ActionFor(t inventory.TransactionType) ActionType {
	switch t {
	case inventory.TransactionTypeReceipt:
		return ActionStockReceipt
	case inventory.TransactionTypeAdjustment:
		return ActionStockAdjustment
	case inventory.TransactionTypeTransfer:
		return ActionStockTransfer
	case inventory.TransactionTypeSale:
		return ActionSale
	}
	return ActionType(t)
}

// Snapshot captures product state around one ledger entry
type Snapshot struct {
	ProductID             uuid.UUID
	SKU                   string
	QuantityBefore        int64
	QuantityAfter         int64
	SourceLocationID      *uuid.UUID
	DestinationLocationID *uuid.UUID
	Notes                 string
	Scanned               bool
	Barcode               string
}

// Metadata renders the snapshot as the JSON document stored with the record
func (s Snapshot) Metadata() datatypes.JSONMap {
	m := datatypes.JSONMap{
		"product_id":      s.ProductID.String(),
		"sku":             s.SKU,
		"quantity_before": s.QuantityBefore,
		"quantity_after":  s.QuantityAfter,
		"delta":           s.QuantityAfter - s.QuantityBefore,
	}
	if s.SourceLocationID != nil {
		m["source_location_id"] = s.SourceLocationID.String()
	}
	if s.DestinationLocationID != nil {
		m["destination_location_id"] = s.DestinationLocationID.String()
	}
	if s.Notes != "" {
		m["notes"] = s.Notes
	}
	if s.Scanned {
		m["barcode"] = s.Barcode
	}
	return m
}

// AuditRecord is the immutable forensic twin of one ledger entry
type AuditRecord struct {
	ID            uuid.UUID         `gorm:"type:uuid;primaryKey"`
	TenantID      uuid.UUID         `gorm:"type:uuid;not null;index:idx_audit_records_tenant_created,priority:1"`
	TransactionID uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex"`
	DeviceID      *uuid.UUID        `gorm:"type:uuid"`
	UserID        *uuid.UUID        `gorm:"type:uuid"`
	ActionType    ActionType        `gorm:"type:varchar(30);not null"`
	Metadata      datatypes.JSONMap `gorm:"type:jsonb;not null"`
	CreatedAt     time.Time         `gorm:"not null;index:idx_audit_records_tenant_created,priority:2"`
}

// TableName returns the table name for GORM
func (AuditRecord) TableName() string {
	return "audit_records"
}

// NewAuditRecord builds the audit record for a ledger entry
func NewAuditRecord(txn *inventory.InventoryTransaction, snapshot Snapshot) (*AuditRecord, error) {
	if txn == nil || txn.ID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Audit record requires a ledger entry")
	}
	if snapshot.ProductID != txn.ProductID {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Audit snapshot does not match ledger entry product")
	}
	if snapshot.QuantityAfter-snapshot.QuantityBefore != txn.QuantityDelta() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Audit snapshot does not match ledger entry quantity")
	}

	snapshot.SourceLocationID = txn.SourceLocationID
	snapshot.DestinationLocationID = txn.DestinationLocationID
	snapshot.Notes = txn.Notes

	return &AuditRecord{
		ID:            uuid.New(),
		TenantID:      txn.TenantID,
		TransactionID: txn.ID,
		DeviceID:      txn.DeviceID,
		UserID:        txn.PerformedBy,
		ActionType:    ActionFor(txn.TransactionType),
		Metadata:      snapshot.Metadata(),
		CreatedAt:     txn.CreatedAt,
	}, nil
}
