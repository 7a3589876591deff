package router

import (
	"net/http"

	"github.com/erp/settlement/internal/infrastructure/config"
	"github.com/erp/settlement/internal/infrastructure/logger"
	"github.com/erp/settlement/internal/interfaces/http/dto"
	"github.com/erp/settlement/internal/interfaces/http/handler"
	"github.com/erp/settlement/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Handlers are the ledger API handlers; nil handlers are not mounted
type Handlers struct {
	Invoices    *handler.BillingHandler
	Bills       *handler.BillingHandler
	Payments    *handler.PaymentHandler
	Parties     *handler.PartyHandler
	Revenue     *handler.RevenueHandler
	Collections *handler.CollectionHandler
	Payouts     *handler.PayoutHandler
	Health      *handler.HealthHandler
}

// Options configure the engine's middleware chain
type Options struct {
	Logger          *zap.Logger
	HTTP            config.HTTPConfig
	DefaultTenantID uuid.UUID

	ServiceName      string
	TracingEnabled   bool
	TracerProvider   trace.TracerProvider
	Meter            metric.Meter
	ProfilingEnabled bool
}

// NewEngine builds the gin engine serving the ledger API.
//
// Every request gets a request id, panic recovery, security and CORS
// headers, the body size limit and a server span. Routes under /api/v1
// additionally resolve the tenant, log the request and record metrics.
func NewEngine(opts Options, h Handlers) *gin.Engine {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	middleware.SetupValidator()

	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	if len(opts.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(opts.HTTP.TrustedProxies); err != nil {
			log.Warn("Ignoring invalid trusted proxies", zap.Error(err))
		}
	}

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = opts.HTTP.CORSAllowOrigins
	if len(opts.HTTP.CORSAllowMethods) > 0 {
		cors.AllowMethods = opts.HTTP.CORSAllowMethods
	}
	if len(opts.HTTP.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = opts.HTTP.CORSAllowHeaders
	}

	engine.Use(
		middleware.RequestID(),
		logger.Recovery(log),
		middleware.Secure(),
		middleware.CORSWithConfig(cors),
		middleware.BodyLimit(opts.HTTP.MaxBodySize),
		middleware.Tracing(middleware.TracingConfig{
			ServiceName:    opts.ServiceName,
			Enabled:        opts.TracingEnabled,
			TracerProvider: opts.TracerProvider,
		}),
	)

	tenantCfg := middleware.DefaultTenantConfig(opts.DefaultTenantID)
	tenantCfg.Logger = log

	r := NewRouter(engine, WithGroupMiddleware(
		middleware.Tenant(tenantCfg),
		middleware.SpanAttributes(),
		logger.GinMiddleware(log),
		middleware.HTTPMetrics(opts.Meter, log),
		middleware.Profiling(opts.ProfilingEnabled),
	))

	if h.Invoices != nil {
		r.Mount("/invoices", h.Invoices)
	}
	if h.Bills != nil {
		r.Mount("/bills", h.Bills)
	}
	if h.Payments != nil {
		r.Mount("/payments", h.Payments)
	}
	if h.Parties != nil {
		r.Mount("/parties", h.Parties)
	}
	if h.Revenue != nil {
		r.Mount("/revenue", h.Revenue)
	}
	if h.Collections != nil {
		r.Mount("/revenue/collections", h.Collections)
	}
	if h.Payouts != nil {
		r.Mount("/revenue", h.Payouts)
	}
	if h.Health != nil {
		engine.GET("/health", h.Health.Health)
		r.Mount("", RegistrarFunc(func(rg *gin.RouterGroup) {
			rg.GET("/health", h.Health.Health)
		}))
	}
	r.Setup()

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, dto.NewErrorResponseWithRequestID(
			dto.CodeRouteNotFound, "Route not found: "+c.Request.Method+" "+c.Request.URL.Path, middleware.RequestIDFrom(c)))
	})
	engine.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, dto.NewErrorResponseWithRequestID(
			dto.CodeBadRequest, "Method not allowed", middleware.RequestIDFrom(c)))
	})

	return engine
}
