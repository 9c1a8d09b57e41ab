// Package tenant scopes database access to exactly one tenant.
//
// Two layers cooperate. A Session pins one pooled connection and sets the
// Postgres setting consulted by the row level security policies before the
// first query, then resets it before the connection goes back to the pool.
// On top of that, repositories filter every statement by tenant_id
// explicitly, and the scope guard callback rejects statements on
// tenant-owned tables that forget to.
//
// Usage:
//
//	err := manager.WithSession(ctx, tenantID, func(s *tenant.Session) error {
//		return s.Transaction(ctx, func(tx *gorm.DB) error {
//			return tx.Scopes(tenant.Scope(tenantID)).First(&product, "id = ?", id).Error
//		})
//	})
package tenant

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Column is the tenant ownership column on every tenant-owned table
const Column = "tenant_id"

// Scope applies tenant filtering to GORM queries
func Scope(tenantID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(Column+" = ?", tenantID)
	}
}
