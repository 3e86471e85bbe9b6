package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ifcvalidation/bff/internal/infrastructure/config"
	"github.com/ifcvalidation/bff/internal/infrastructure/logger"
	"github.com/ifcvalidation/bff/internal/infrastructure/telemetry"
	"github.com/ifcvalidation/bff/internal/interfaces/http/handler"
	"github.com/ifcvalidation/bff/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// Dependencies are the handlers and collaborators the engine routes to
type Dependencies struct {
	Legacy *handler.LegacyHandler
	Auth   *handler.AuthHandler
	System *handler.SystemHandler

	Sessions middleware.SessionLoader
	Users    middleware.UserResolver

	// LoginLimiter throttles /login and /callback per client, nil disables
	LoginLimiter *middleware.RateLimiter
	// Swagger serves the API documentation, nil leaves /swagger unrouted
	Swagger gin.HandlerFunc

	Meter          *telemetry.MeterProvider
	TracingEnabled bool
	Logger         *zap.Logger
}

// NewEngine builds the gin engine with the middleware stack and every route
func NewEngine(cfg *config.Config, deps Dependencies) *gin.Engine {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Order matters:
	// 1. RequestID - generate/propagate request ID
	// 2. Recovery - catch panics
	// 3. Logger - access log
	// 4. Tracing and metrics - see every routed request
	// 5. Host and CORS checks
	// 6. BodyLimit - uploads are the largest bodies
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     deps.TracingEnabled,
	}))
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
		MeterProvider: deps.Meter,
		Enabled:       deps.Meter.IsEnabled(),
	}))
	if len(cfg.HTTP.AllowedHosts) > 0 {
		engine.Use(middleware.AllowedHosts(cfg.HTTP.AllowedHosts))
	}
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"Content-Disposition", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	currentUser := middleware.CurrentUser(deps.Sessions, deps.Users, log)

	r := NewRouter(engine, WithMiddleware(
		middleware.Secure(),
		currentUser,
		middleware.TracingAttributeInjector(),
	))
	r.Register(LegacyRoutes(deps.Legacy))
	r.Setup()

	var limiter gin.HandlerFunc
	if deps.LoginLimiter != nil {
		limiter = middleware.RateLimit(deps.LoginLimiter)
	}
	AuthRoutes(deps.Auth, limiter).Use(middleware.Secure()).RegisterRoutes(&engine.RouterGroup)
	SystemRoutes(deps.System).RegisterRoutes(&engine.RouterGroup)

	if deps.Swagger != nil {
		engine.GET("/swagger/*any",
			currentUser,
			middleware.SwaggerProtection(middleware.SwaggerConfig{
				Enabled:     cfg.Swagger.Enabled,
				RequireAuth: cfg.Swagger.RequireAuth,
				AllowedIPs:  cfg.Swagger.AllowedIPs,
			}, middleware.RequireUser()),
			deps.Swagger,
		)
	}

	return engine
}
