package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	appidentity "github.com/ifcvalidation/bff/internal/application/identity"
	appvalidation "github.com/ifcvalidation/bff/internal/application/validation"
	"github.com/ifcvalidation/bff/internal/infrastructure/auth"
	"github.com/ifcvalidation/bff/internal/infrastructure/bootstrap"
	"github.com/ifcvalidation/bff/internal/infrastructure/config"
	"github.com/ifcvalidation/bff/internal/infrastructure/persistence"
	"github.com/ifcvalidation/bff/internal/infrastructure/queue"
	"github.com/ifcvalidation/bff/internal/infrastructure/session"
	"github.com/ifcvalidation/bff/internal/infrastructure/telemetry"
	"github.com/ifcvalidation/bff/internal/interfaces/http/handler"
	"github.com/ifcvalidation/bff/internal/interfaces/http/middleware"
	"github.com/ifcvalidation/bff/internal/interfaces/http/router"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	_ "github.com/ifcvalidation/bff/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

//	@title			IFC Validation Service API
//	@version		1.0
//	@description	Backend for the IFC validation dashboard: upload models, follow their validation and read the reports.

//	@contact.name	Validation Service Support

//	@license.name	MIT

//	@BasePath	/api

//	@securityDefinitions.apikey	SessionCookie
//	@in							cookie
//	@name						sessionid
//	@description				Session established through /login

const shutdownTimeout = 30 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.New(ctx, cfg, "server")
	if err != nil {
		panic("Failed to initialize: " + err.Error())
	}
	log := rt.Logger

	log.Info("Starting IFC validation backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", cfg.App.Version),
	)

	runErr := run(ctx, cfg, rt)
	if runErr != nil {
		log.Error("Server stopped with error", zap.Error(runErr))
	} else {
		log.Info("Server exited gracefully")
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := rt.Close(closeCtx); err != nil {
		log.Error("Error during shutdown", zap.Error(err))
	}
	if runErr != nil {
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, rt *bootstrap.Runtime) error {
	log := rt.Logger
	db := rt.DB.DB

	// Initialize repositories
	requestRepo := persistence.NewGormValidationRequestRepository(db)
	taskRepo := persistence.NewGormValidationTaskRepository(db)
	outcomeRepo := persistence.NewGormValidationOutcomeRepository(db)
	userRepo := persistence.NewGormUserRepository(db)
	txScope := persistence.NewGormTransactionScope(db)

	// Task queue
	redisOpt, err := queue.RedisConnOpt(cfg.Redis)
	if err != nil {
		return err
	}
	queueClient := queue.NewClient(redisOpt, cfg.Queue, queue.WithClientLogger(log))
	defer func() {
		if err := queueClient.Close(); err != nil {
			log.Warn("Error closing queue client", zap.Error(err))
		}
	}()

	// Validation activity metrics (no-op instruments when metrics are off)
	validationMetrics, err := telemetry.NewValidationMetrics(telemetry.ValidationMetricsConfig{
		Meter:           rt.Meter.Meter("ifc.validation"),
		Logger:          log,
		BacklogProvider: requestRepo,
	})
	if err != nil {
		return err
	}
	if rt.Meter.IsEnabled() {
		validationMetrics.StartPeriodicCollection(ctx, cfg.Telemetry.MetricsInterval)
	}
	defer validationMetrics.Stop()

	validationService := appvalidation.NewService(
		requestRepo, taskRepo, outcomeRepo, txScope, rt.Storage, queueClient, log,
		appvalidation.WithActivityRecorder(validationMetrics),
		appvalidation.WithServiceConfig(appvalidation.ServiceConfig{
			MaxFilesPerUpload: cfg.Upload.MaxFiles,
			MaxFileSize:       cfg.Upload.MaxFileSize,
		}),
	)

	// Sessions
	sessionStore, err := session.NewStore(cfg.Session, cfg.Redis, cfg.App.IsDevelopment(), log)
	if err != nil {
		return err
	}
	defer func() {
		_ = sessionStore.Close()
	}()
	sessions := session.NewManager(sessionStore, cfg.Session)

	// Single sign-on
	authService, err := newAuthService(ctx, cfg, userRepo, log)
	if err != nil {
		return err
	}
	resolver := appidentity.NewCurrentUserResolver(userRepo, cfg.App.IsDevelopment(), log)

	// Set Gin mode based on environment
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	var loginLimiter *middleware.RateLimiter
	if cfg.HTTP.LoginRateLimit > 0 {
		loginLimiter = middleware.NewRateLimiter(cfg.HTTP.LoginRateLimit, cfg.HTTP.LoginRateWindow)
		defer loginLimiter.Stop()
	}

	engine := router.NewEngine(cfg, router.Dependencies{
		Legacy:         handler.NewLegacyHandler(validationService, cfg.App.LoginURL()),
		Auth:           handler.NewAuthHandler(authService, sessions),
		System:         handler.NewSystemHandler(rt.DB, cfg.App.Version),
		Sessions:       sessions,
		Users:          resolver,
		LoginLimiter:   loginLimiter,
		Swagger:        ginSwagger.WrapHandler(swaggerFiles.Handler),
		Meter:          rt.Meter,
		TracingEnabled: rt.Tracer.IsEnabled(),
		Logger:         log,
	})

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// newAuthService wires the identity provider when SSO is configured. Without
// it the login routes answer SSO_DISABLED.
func newAuthService(ctx context.Context, cfg *config.Config, users *persistence.GormUserRepository, log *zap.Logger) (*appidentity.AuthService, error) {
	var (
		provider appidentity.OIDCProvider
		states   appidentity.StateSigner
	)

	if cfg.Auth.Enabled() {
		client, err := auth.NewOIDCClient(ctx, cfg.Auth, cfg.App.CallbackURL())
		if err != nil {
			return nil, err
		}
		stateService, err := auth.NewStateService(cfg.Auth.StateSecret, cfg.Auth.StateTTL)
		if err != nil {
			return nil, err
		}
		provider, states = client, stateService
		log.Info("Single sign-on enabled", zap.String("issuer", cfg.Auth.IssuerURL()))
	} else {
		log.Warn("Single sign-on is not configured; /login is disabled")
	}

	return appidentity.NewAuthService(users, provider, states, appidentity.AuthServiceConfig{
		PostLoginRedirectURL: cfg.App.PostLoginRedirectURL(),
		PublicURL:            cfg.App.PublicURL,
	}, log), nil
}
