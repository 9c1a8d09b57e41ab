package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/interfaces/http/dto"
)

// TenantHeaderKey lets a client state the tenant it expects to act on
const TenantHeaderKey = "X-Tenant-ID"

// TenantGuard requires an authenticated tenant. A request that also names a
// tenant in X-Tenant-ID must name the token's tenant; the header can never
// select a different one.
func TenantGuard() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID, ok := GetTenantID(c)
		if !ok {
			abortWithError(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "Tenant context required")
			return
		}

		if header := c.GetHeader(TenantHeaderKey); header != "" {
			requested, err := uuid.Parse(header)
			if err != nil {
				abortWithError(c, http.StatusBadRequest, dto.ErrCodeBadRequest, "Invalid tenant ID format")
				return
			}
			if requested != tenantID {
				abortWithError(c, http.StatusForbidden, dto.ErrCodeForbidden, "Tenant does not match token")
				return
			}
		}

		c.Next()
	}
}
