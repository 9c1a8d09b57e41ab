package tenant

import (
	"errors"
	"reflect"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

// ErrMissingTenantFilter is returned when a statement on a tenant-owned table
// carries no tenant_id condition
var ErrMissingTenantFilter = errors.New("tenant: statement on tenant-owned table has no tenant_id condition")

// ErrMissingTenantID is returned when a tenant-owned row is created without a tenant
var ErrMissingTenantID = errors.New("tenant: tenant-owned row has empty tenant_id")

// RegisterScopeGuard installs callbacks that refuse statements on models with
// a tenant_id column unless the statement filters or sets it explicitly.
// Statements on models without the column, and raw SQL, pass through.
func RegisterScopeGuard(db *gorm.DB) error {
	cb := db.Callback()
	if err := cb.Query().Before("gorm:query").Register("tenant:guard_query", guardFilter); err != nil {
		return err
	}
	if err := cb.Row().Before("gorm:row").Register("tenant:guard_row", guardFilter); err != nil {
		return err
	}
	if err := cb.Update().Before("gorm:update").Register("tenant:guard_update", guardFilter); err != nil {
		return err
	}
	if err := cb.Delete().Before("gorm:delete").Register("tenant:guard_delete", guardFilter); err != nil {
		return err
	}
	return cb.Create().Before("gorm:create").Register("tenant:guard_create", guardCreate)
}

func tenantField(db *gorm.DB) *schema.Field {
	if db.Error != nil || db.Statement.Schema == nil {
		return nil
	}
	return db.Statement.Schema.LookUpField(Column)
}

func guardFilter(db *gorm.DB) {
	if tenantField(db) == nil {
		return
	}
	if hasTenantCondition(db.Statement) {
		return
	}
	_ = db.AddError(ErrMissingTenantFilter)
}

func guardCreate(db *gorm.DB) {
	field := tenantField(db)
	if field == nil {
		return
	}

	rv := db.Statement.ReflectValue
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if emptyTenant(db, field, reflect.Indirect(rv.Index(i))) {
				_ = db.AddError(ErrMissingTenantID)
				return
			}
		}
	case reflect.Struct:
		if emptyTenant(db, field, rv) {
			_ = db.AddError(ErrMissingTenantID)
		}
	}
}

func emptyTenant(db *gorm.DB, field *schema.Field, rv reflect.Value) bool {
	v, zero := field.ValueOf(db.Statement.Context, rv)
	if zero {
		return true
	}
	id, ok := v.(uuid.UUID)
	return ok && id == uuid.Nil
}

func hasTenantCondition(stmt *gorm.Statement) bool {
	if c, ok := stmt.Clauses["WHERE"]; ok {
		if where, ok := c.Expression.(clause.Where); ok {
			for _, expr := range where.Exprs {
				if exprContainsTenant(expr) {
					return true
				}
			}
		}
	}
	return strings.Contains(stmt.SQL.String(), Column)
}

func exprContainsTenant(expr clause.Expression) bool {
	switch e := expr.(type) {
	case clause.Eq:
		return columnIsTenant(e.Column)
	case clause.IN:
		return columnIsTenant(e.Column)
	case clause.Expr:
		return strings.Contains(e.SQL, Column)
	case clause.NamedExpr:
		return strings.Contains(e.SQL, Column)
	case clause.AndConditions:
		for _, cond := range e.Exprs {
			if exprContainsTenant(cond) {
				return true
			}
		}
	}
	return false
}

func columnIsTenant(col any) bool {
	switch c := col.(type) {
	case clause.Column:
		return c.Name == Column
	case string:
		return c == Column
	}
	return false
}
