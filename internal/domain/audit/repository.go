package audit

import (
	"context"

	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/shared"
)

// AuditRecordRepository persists the append-only audit trail
type AuditRecordRepository interface {
	// Create inserts an audit record
	Create(ctx context.Context, record *AuditRecord) error

	// FindByTransaction returns the audit record for a ledger entry
	FindByTransaction(ctx context.Context, tenantID, transactionID uuid.UUID) (*AuditRecord, error)

	// ListForTenant returns audit records ordered by created_at ascending
	ListForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.LogFilter) ([]AuditRecord, error)
}
