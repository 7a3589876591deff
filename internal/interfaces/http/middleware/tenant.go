package middleware

import (
	"net/http"
	"strings"

	"github.com/erp/settlement/internal/infrastructure/logger"
	"github.com/erp/settlement/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Tenant context keys and header
const (
	TenantIDKey     = logger.GinTenantIDKey
	TenantUUIDKey   = "tenant_uuid"
	TenantHeaderKey = "X-Tenant-ID"
)

// TenantConfig holds configuration for the tenant middleware
type TenantConfig struct {
	// DefaultTenantID is used when the request carries no X-Tenant-ID.
	// With uuid.Nil the header is required.
	DefaultTenantID uuid.UUID
	// SkipPaths don't need a tenant (e.g. health checks)
	SkipPaths []string
	Logger    *zap.Logger
}

// DefaultTenantConfig returns the tenant configuration for a default tenant
func DefaultTenantConfig(defaultTenantID uuid.UUID) TenantConfig {
	return TenantConfig{
		DefaultTenantID: defaultTenantID,
		SkipPaths:       []string{"/health", "/api/v1/health"},
	}
}

// Tenant resolves the tenant from X-Tenant-ID, falling back to the default
// tenant, and stores it in the gin and request contexts
func Tenant(cfg TenantConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skip := range cfg.SkipPaths {
			if path == skip || strings.HasPrefix(path, skip+"/") {
				c.Next()
				return
			}
		}

		tenantID := cfg.DefaultTenantID
		if raw := strings.TrimSpace(c.GetHeader(TenantHeaderKey)); raw != "" {
			parsed, err := uuid.Parse(raw)
			if err != nil {
				log.Debug("Rejected tenant header", zap.String("tenant_id", raw))
				c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
					dto.CodeBadRequest, "Invalid tenant ID format", RequestIDFrom(c)))
				return
			}
			tenantID = parsed
		}
		if tenantID == uuid.Nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
				dto.CodeBadRequest, "Tenant identification required", RequestIDFrom(c)))
			return
		}

		c.Set(TenantIDKey, tenantID.String())
		c.Set(TenantUUIDKey, tenantID)
		c.Request = c.Request.WithContext(logger.WithTenantID(c.Request.Context(), tenantID.String()))
		c.Next()
	}
}

// GetTenantUUID returns the tenant resolved by Tenant
func GetTenantUUID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(TenantUUIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok && id != uuid.Nil
}
