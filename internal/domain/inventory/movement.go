package inventory

import (
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/shared"
)

// Movement is a requested stock event before it is recorded. Constructors
// enforce the location shape of each transaction type.
type Movement struct {
	Type                  TransactionType
	ProductID             uuid.UUID
	Quantity              int64 // positive, except ADJUSTMENT which is signed
	SourceLocationID      *uuid.UUID
	DestinationLocationID *uuid.UUID
}

// NewReceipt adds qty units, optionally into a destination location
func NewReceipt(productID uuid.UUID, qty int64, destination *uuid.UUID) (Movement, error) {
	m := Movement{Type: TransactionTypeReceipt, ProductID: productID, Quantity: qty, DestinationLocationID: destination}
	return m, m.Validate()
}

// NewSale removes qty units, optionally from a source location
func NewSale(productID uuid.UUID, qty int64, source *uuid.UUID) (Movement, error) {
	m := Movement{Type: TransactionTypeSale, ProductID: productID, Quantity: qty, SourceLocationID: source}
	return m, m.Validate()
}

// NewAdjustment applies a signed correction. A supplied location becomes the
// source when delta is negative and the destination when it is positive.
func NewAdjustment(productID uuid.UUID, delta int64, location *uuid.UUID) (Movement, error) {
	m := Movement{Type: TransactionTypeAdjustment, ProductID: productID, Quantity: delta}
	if location != nil {
		if delta < 0 {
			m.SourceLocationID = location
		} else {
			m.DestinationLocationID = location
		}
	}
	return m, m.Validate()
}

// NewTransfer moves qty units between two distinct locations
func NewTransfer(productID uuid.UUID, qty int64, source, destination uuid.UUID) (Movement, error) {
	m := Movement{
		Type:                  TransactionTypeTransfer,
		ProductID:             productID,
		Quantity:              qty,
		SourceLocationID:      &source,
		DestinationLocationID: &destination,
	}
	return m, m.Validate()
}

// NewScanMovement builds the movement a barcode scan dispatches to. Only
// receipts, adjustments and sales can be triggered by a scan.
func NewScanMovement(txType TransactionType, productID uuid.UUID, qty int64, location *uuid.UUID) (Movement, error) {
	switch txType {
	case TransactionTypeReceipt:
		return NewReceipt(productID, qty, location)
	case TransactionTypeAdjustment:
		return NewAdjustment(productID, qty, location)
	case TransactionTypeSale:
		return NewSale(productID, qty, location)
	}
	return Movement{}, shared.NewDomainError(shared.CodeInvalidInput,
		fmt.Sprintf("Transaction type %q cannot be dispatched from a barcode scan", txType))
}

// Validate checks quantity sign and location shape for the movement's type
func (m Movement) Validate() error {
	if m.ProductID == uuid.Nil {
		return shared.NewDomainError(shared.CodeInvalidInput, "Product ID cannot be empty")
	}
	if nilLocation(m.SourceLocationID) || nilLocation(m.DestinationLocationID) {
		return shared.NewDomainError(shared.CodeInvalidInput, "Location ID cannot be empty")
	}

	switch m.Type {
	case TransactionTypeReceipt:
		if m.Quantity <= 0 {
			return shared.NewDomainError(shared.CodeInvalidInput, "Receipt quantity must be positive")
		}
		if m.SourceLocationID != nil {
			return shared.NewDomainError(shared.CodeInvalidInput, "Receipt takes a destination location only")
		}
	case TransactionTypeSale:
		if m.Quantity <= 0 {
			return shared.NewDomainError(shared.CodeInvalidInput, "Sale quantity must be positive")
		}
		if m.DestinationLocationID != nil {
			return shared.NewDomainError(shared.CodeInvalidInput, "Sale takes a source location only")
		}
	case TransactionTypeAdjustment:
		if m.Quantity == 0 {
			return shared.NewDomainError(shared.CodeInvalidInput, "Adjustment quantity cannot be zero")
		}
		if m.Quantity == math.MinInt64 {
			return shared.NewDomainError(shared.CodeInvalidInput, "Adjustment quantity out of range")
		}
		if m.Quantity < 0 && m.DestinationLocationID != nil {
			return shared.NewDomainError(shared.CodeInvalidInput, "Negative adjustment takes a source location only")
		}
		if m.Quantity > 0 && m.SourceLocationID != nil {
			return shared.NewDomainError(shared.CodeInvalidInput, "Positive adjustment takes a destination location only")
		}
	case TransactionTypeTransfer:
		if m.Quantity <= 0 {
			return shared.NewDomainError(shared.CodeInvalidInput, "Transfer quantity must be positive")
		}
		if m.SourceLocationID == nil || m.DestinationLocationID == nil {
			return shared.NewDomainError(shared.CodeInvalidInput, "Transfer requires source and destination locations")
		}
		if *m.SourceLocationID == *m.DestinationLocationID {
			return shared.NewDomainError(shared.CodeInvalidInput, "Transfer source and destination must differ")
		}
	default:
		return shared.NewDomainError(shared.CodeInvalidInput, "Invalid transaction type")
	}
	return nil
}

// SignedQuantity is the quantity written to the ledger row
func (m Movement) SignedQuantity() int64 {
	if m.Type == TransactionTypeSale {
		return -m.Quantity
	}
	return m.Quantity
}

// Delta is the change applied to the product's on-hand quantity
func (m Movement) Delta() int64 {
	if !m.Type.TouchesQuantity() {
		return 0
	}
	return m.SignedQuantity()
}

// ApplyTo is the transition function of the ledger: it returns the quantity
// after the movement, or INVARIANT_VIOLATION if the result would be negative.
// Transfers leave the quantity unchanged but still require current >= moved.
func (m Movement) ApplyTo(current int64) (int64, error) {
	if m.Type == TransactionTypeTransfer {
		if current < m.Quantity {
			return current, shared.NewDomainError(shared.CodeInvariantViolation,
				fmt.Sprintf("Cannot transfer %d units, only %d on hand", m.Quantity, current))
		}
		return current, nil
	}

	delta := m.Delta()
	if delta > 0 && current > math.MaxInt64-delta {
		return current, shared.NewDomainError(shared.CodeInvalidInput, "Quantity would overflow")
	}
	next := current + delta
	if next < 0 {
		return current, shared.NewDomainError(shared.CodeInvariantViolation,
			fmt.Sprintf("Quantity would become %d", next))
	}
	return next, nil
}

// LocationIDs returns the distinct locations the movement references
func (m Movement) LocationIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, 2)
	if m.SourceLocationID != nil {
		ids = append(ids, *m.SourceLocationID)
	}
	if m.DestinationLocationID != nil && (m.SourceLocationID == nil || *m.DestinationLocationID != *m.SourceLocationID) {
		ids = append(ids, *m.DestinationLocationID)
	}
	return ids
}

func nilLocation(id *uuid.UUID) bool {
	return id != nil && *id == uuid.Nil
}
