package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stockledger/backend/internal/domain/identity"
	"github.com/stockledger/backend/internal/infrastructure/logger"
	"github.com/stockledger/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// PermissionConfig holds configuration for permission middleware
type PermissionConfig struct {
	Logger *zap.Logger
}

// RequirePermission requires every listed permission. It must run after JWTAuthMiddleware.
func RequirePermission(perms ...identity.Permission) gin.HandlerFunc {
	return RequirePermissionWithConfig(PermissionConfig{}, perms...)
}

// RequirePermissionWithConfig is RequirePermission with a logger for denials
func RequirePermissionWithConfig(cfg PermissionConfig, perms ...identity.Permission) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		if _, ok := GetActor(c); !ok {
			abortWithError(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "Authentication required")
			return
		}
		if !GetPermissions(c).HasAll(perms...) {
			DenyPermission(c, log, perms...)
			return
		}
		c.Next()
	}
}

// HasPermission reports whether the authenticated token grants p
func HasPermission(c *gin.Context, p identity.Permission) bool {
	return GetPermissions(c).Has(p)
}

// DenyPermission logs the denial and answers 403
func DenyPermission(c *gin.Context, log *zap.Logger, required ...identity.Permission) {
	names := make([]string, len(required))
	for i, p := range required {
		names[i] = string(p)
	}
	logger.Enrich(c.Request.Context(), log).Warn("Permission denied",
		zap.Strings("required", names),
		zap.String("path", c.Request.URL.Path),
	)
	abortWithError(c, http.StatusForbidden, dto.ErrCodeForbidden, "Missing required permission")
}
