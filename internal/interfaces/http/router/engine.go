package router

import (
	"github.com/gin-gonic/gin"
	"github.com/stockledger/backend/internal/infrastructure/config"
	"github.com/stockledger/backend/internal/infrastructure/logger"
	"github.com/stockledger/backend/internal/interfaces/http/middleware"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// EngineConfig holds what the global middleware chain needs
type EngineConfig struct {
	Env     string
	HTTP    config.HTTPConfig
	Tracing middleware.TracingConfig
	// Meter records HTTP metrics. Nil disables them.
	Meter  metric.Meter
	Logger *zap.Logger
}

// NewEngine builds a gin engine with the global middleware chain. Request
// IDs come first so every later log line and span can carry them.
func NewEngine(cfg EngineConfig) (*gin.Engine, error) {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		return nil, err
	}
	middleware.SetupValidator()

	httpMetrics, err := middleware.HTTPMetrics(cfg.Meter)
	if err != nil {
		return nil, err
	}

	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.Secure(),
		middleware.Tracing(cfg.Tracing),
		httpMetrics,
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	)
	engine.NoRoute(middleware.NoRoute())

	return engine, nil
}

// AuthenticatedGroup returns a domain group behind JWT authentication and
// the tenant guard
func AuthenticatedGroup(name, prefix string, jwtCfg middleware.JWTMiddlewareConfig) *DomainGroup {
	return NewDomainGroup(name, prefix).Use(
		middleware.JWTAuthMiddleware(jwtCfg),
		middleware.TenantGuard(),
		middleware.SpanAttributes(),
	)
}
