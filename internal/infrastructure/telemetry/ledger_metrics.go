package telemetry

import (
	"context"

	"github.com/stockledger/backend/internal/domain/inventory"
	"go.opentelemetry.io/otel/metric"
)

// LedgerMetrics records ledger operations and tenant session lifecycle.
//
//	ledger_operations_total{type, outcome}
//	ledger_quantity_moved_total{type}
//	tenant_sessions_acquired_total
//	tenant_sessions_released_total{discarded}
//	tenant_sessions_active
type LedgerMetrics struct {
	operations       *Counter
	quantityMoved    *Counter
	sessionsAcquired *Counter
	sessionsReleased *Counter
	sessionsActive   *UpDownCounter
}

// NewLedgerMetrics creates the ledger instruments on meter.
func NewLedgerMetrics(meter metric.Meter) (*LedgerMetrics, error) {
	operations, err := NewCounter(meter, "ledger_operations_total",
		"Ledger operations by transaction type and outcome", "{operation}")
	if err != nil {
		return nil, err
	}
	quantityMoved, err := NewCounter(meter, "ledger_quantity_moved_total",
		"Absolute units moved by committed ledger operations", "{unit}")
	if err != nil {
		return nil, err
	}
	sessionsAcquired, err := NewCounter(meter, "tenant_sessions_acquired_total",
		"Tenant-scoped connections checked out", "{session}")
	if err != nil {
		return nil, err
	}
	sessionsReleased, err := NewCounter(meter, "tenant_sessions_released_total",
		"Tenant-scoped connections released, by whether the connection was discarded", "{session}")
	if err != nil {
		return nil, err
	}
	sessionsActive, err := NewUpDownCounter(meter, "tenant_sessions_active",
		"Tenant-scoped connections currently checked out", "{session}")
	if err != nil {
		return nil, err
	}

	return &LedgerMetrics{
		operations:       operations,
		quantityMoved:    quantityMoved,
		sessionsAcquired: sessionsAcquired,
		sessionsReleased: sessionsReleased,
		sessionsActive:   sessionsActive,
	}, nil
}

// RecordOperation counts one ledger operation. moved is the absolute quantity
// change and is only counted for successful operations.
func (m *LedgerMetrics) RecordOperation(ctx context.Context, txType inventory.TransactionType, outcome string, moved int64) {
	typeAttr := AttrTransactionType.String(txType.String())
	m.operations.Inc(ctx, typeAttr, AttrOutcome.String(outcome))
	if moved > 0 {
		m.quantityMoved.Add(ctx, moved, typeAttr)
	}
}

// SessionAcquired counts a tenant session checkout.
func (m *LedgerMetrics) SessionAcquired(ctx context.Context) {
	m.sessionsAcquired.Inc(ctx)
	m.sessionsActive.Add(ctx, 1)
}

// SessionReleased counts a tenant session release.
func (m *LedgerMetrics) SessionReleased(ctx context.Context, discarded bool) {
	m.sessionsReleased.Inc(ctx, AttrDiscarded.Bool(discarded))
	m.sessionsActive.Add(ctx, -1)
}
