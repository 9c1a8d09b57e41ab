package inventory

import (
	"fmt"

	"github.com/google/uuid"
)

// DefaultCacheKeyPrefix namespaces every cache key by tenant
const DefaultCacheKeyPrefix = "tenant"

// ProductCacheKey is the cache key of one product's inventory view
func ProductCacheKey(prefix string, tenantID, productID uuid.UUID) string {
	return fmt.Sprintf("%s:%s:inventory:product:%s", prefix, tenantID, productID)
}

// ListCacheKey is the cache key of a tenant's inventory listing
func ListCacheKey(prefix string, tenantID uuid.UUID) string {
	return fmt.Sprintf("%s:%s:inventory:list", prefix, tenantID)
}
