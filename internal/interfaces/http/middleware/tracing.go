package middleware

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ErrorCodeKey is where handlers leave the error code of a failed request
const ErrorCodeKey = "error_code"

// TracingConfig holds configuration for the tracing middleware
type TracingConfig struct {
	ServiceName string
	Enabled     bool
	// TracerProvider overrides the global provider
	TracerProvider trace.TracerProvider
}

// Tracing starts a server span per request through otelgin. Span names
// follow the route pattern, e.g. "GET /api/v1/invoices/:id".
func Tracing(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}
	var opts []otelgin.Option
	if cfg.TracerProvider != nil {
		opts = append(opts, otelgin.WithTracerProvider(cfg.TracerProvider))
	}
	return otelgin.Middleware(cfg.ServiceName, opts...)
}

// SpanAttributes tags the request span with the request id and tenant, and
// with the error code once the handler has run. It must run after Tracing,
// RequestID and Tenant.
func SpanAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			c.Next()
			return
		}

		if id := RequestIDFrom(c); id != "" {
			span.SetAttributes(attribute.String("request_id", id))
		}
		if tenantID := c.GetString(TenantIDKey); tenantID != "" {
			span.SetAttributes(attribute.String("tenant_id", tenantID))
		}

		c.Next()

		if code := c.GetString(ErrorCodeKey); code != "" {
			span.SetAttributes(attribute.String("ledger.error_code", code))
		}
	}
}
