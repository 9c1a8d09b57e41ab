package middleware

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stockledger/backend/internal/domain/identity"
	"github.com/stockledger/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

// withIdentity stands in for JWTAuthMiddleware
func withIdentity(actor *identity.Actor, perms ...identity.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		if actor != nil {
			c.Set(TenantIDKey, uuid.New())
			c.Set(ActorKey, *actor)
			c.Set(PermissionsKey, identity.NewPermissionSet(perms...))
		}
		c.Next()
	}
}

func TestRequirePermission(t *testing.T) {
	user := identity.UserActor(uuid.New())

	tests := []struct {
		name     string
		actor    *identity.Actor
		granted  []identity.Permission
		required []identity.Permission
		status   int
		code     string
	}{
		{
			name:     "granted",
			actor:    &user,
			granted:  []identity.Permission{identity.PermissionInventoryReceive, identity.PermissionInventoryRead},
			required: []identity.Permission{identity.PermissionInventoryReceive},
			status:   http.StatusOK,
		},
		{
			name:     "missing one of several",
			actor:    &user,
			granted:  []identity.Permission{identity.PermissionInventoryRead},
			required: []identity.Permission{identity.PermissionInventoryRead, identity.PermissionAuditRead},
			status:   http.StatusForbidden,
			code:     dto.ErrCodeForbidden,
		},
		{
			name:     "no permissions",
			actor:    &user,
			required: []identity.Permission{identity.PermissionInventorySell},
			status:   http.StatusForbidden,
			code:     dto.ErrCodeForbidden,
		},
		{
			name:     "unauthenticated",
			required: []identity.Permission{identity.PermissionInventorySell},
			status:   http.StatusUnauthorized,
			code:     dto.ErrCodeUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(withIdentity(tt.actor, tt.granted...))
			r.GET("/test",
				RequirePermissionWithConfig(PermissionConfig{Logger: zaptest.NewLogger(t)}, tt.required...),
				func(c *gin.Context) { c.Status(http.StatusOK) },
			)

			rec := perform(r, http.MethodGet, "/test", "")
			assert.Equal(t, tt.status, rec.Code)
			if tt.code != "" {
				assert.Equal(t, tt.code, decodeError(t, rec).Code)
			}
		})
	}
}

func TestHasPermission(t *testing.T) {
	device := identity.DeviceActor(uuid.New())
	r := gin.New()
	r.Use(withIdentity(&device, identity.PermissionInventorySell))
	r.GET("/test", func(c *gin.Context) {
		assert.True(t, HasPermission(c, identity.PermissionInventorySell))
		assert.False(t, HasPermission(c, identity.PermissionInventoryAdjust))
		c.Status(http.StatusOK)
	})

	assert.Equal(t, http.StatusOK, perform(r, http.MethodGet, "/test", "").Code)
}
