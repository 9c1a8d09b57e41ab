package inventory

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/identity"
	"github.com/stockledger/backend/internal/domain/shared"
)

// TransactionType represents the type of inventory transaction
type TransactionType string

const (
	// TransactionTypeReceipt represents stock arriving at a location
	TransactionTypeReceipt TransactionType = "RECEIPT"
	// TransactionTypeAdjustment represents a signed correction of on-hand stock
	TransactionTypeAdjustment TransactionType = "ADJUSTMENT"
	// TransactionTypeTransfer represents stock moving between two locations
	TransactionTypeTransfer TransactionType = "TRANSFER"
	// TransactionTypeSale represents stock leaving through a sale
	TransactionTypeSale TransactionType = "SALE"
)

// MaxNotesLength bounds free-text notes on a ledger entry
const MaxNotesLength = 1000

// String returns the string representation of TransactionType
func (t TransactionType) String() string {
	return string(t)
}

// IsValid returns true if the transaction type is valid
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeReceipt,
		TransactionTypeAdjustment,
		TransactionTypeTransfer,
		TransactionTypeSale:
		return true
	}
	return false
}

// TouchesQuantity returns false for transfers, which move stock without
// changing the product's total on-hand quantity
func (t TransactionType) TouchesQuantity() bool {
	return t.IsValid() && t != TransactionTypeTransfer
}

// IsScannable returns true if a barcode scan may dispatch this type
func (t TransactionType) IsScannable() bool {
	switch t {
	case TransactionTypeReceipt, TransactionTypeAdjustment, TransactionTypeSale:
		return true
	}
	return false
}

// ParseTransactionType parses a type name case-insensitively
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", shared.NewDomainError(shared.CodeInvalidInput, "Invalid transaction type: "+s)
	}
	return t, nil
}

// InventoryTransaction is an immutable ledger entry describing one stock event.
// Quantity is signed: receipts are positive, sales negative, adjustments carry
// the caller's sign, transfers record the moved amount as positive.
type InventoryTransaction struct {
	ID                    uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TenantID              uuid.UUID       `gorm:"type:uuid;not null;index:idx_inventory_transactions_tenant_created,priority:1"`
	TransactionType       TransactionType `gorm:"type:varchar(20);not null"`
	Quantity              int64           `gorm:"not null"`
	ProductID             uuid.UUID       `gorm:"type:uuid;not null;index"`
	SourceLocationID      *uuid.UUID      `gorm:"type:uuid"`
	DestinationLocationID *uuid.UUID      `gorm:"type:uuid"`
	PerformedBy           *uuid.UUID      `gorm:"type:uuid"`
	DeviceID              *uuid.UUID      `gorm:"type:uuid"`
	Notes                 string          `gorm:"type:text"`
	CreatedAt             time.Time       `gorm:"not null;index:idx_inventory_transactions_tenant_created,priority:2"`
}

// TableName returns the table name for GORM
func (InventoryTransaction) TableName() string {
	return "inventory_transactions"
}

// NewInventoryTransaction records a validated movement on behalf of an actor
func NewInventoryTransaction(tenantID uuid.UUID, m Movement, actor identity.Actor, notes string) (*InventoryTransaction, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Tenant ID cannot be empty")
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	actor = actor.Normalized()
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	notes = strings.TrimSpace(notes)
	if utf8.RuneCountInString(notes) > MaxNotesLength {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Notes cannot exceed 1000 characters")
	}

	return &InventoryTransaction{
		ID:                    uuid.New(),
		TenantID:              tenantID,
		TransactionType:       m.Type,
		Quantity:              m.SignedQuantity(),
		ProductID:             m.ProductID,
		SourceLocationID:      m.SourceLocationID,
		DestinationLocationID: m.DestinationLocationID,
		PerformedBy:           actor.UserID,
		DeviceID:              actor.DeviceID,
		Notes:                 notes,
		CreatedAt:             time.Now(),
	}, nil
}

// QuantityDelta returns the change this entry applies to the product's quantity
func (t *InventoryTransaction) QuantityDelta() int64 {
	if !t.TransactionType.TouchesQuantity() {
		return 0
	}
	return t.Quantity
}
