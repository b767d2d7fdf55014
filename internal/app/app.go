// Package app wires configuration, infrastructure and modules into a
// runnable HTTP application.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"

	_ "github.com/vidgo/server/cmd/server/docs" // swagger docs
	"github.com/vidgo/server/internal/infra/events"
	"github.com/vidgo/server/internal/module/auth"
	"github.com/vidgo/server/internal/module/credit"
	"github.com/vidgo/server/internal/module/generation"
	genprovider "github.com/vidgo/server/internal/module/generation/provider"
	"github.com/vidgo/server/internal/module/generation/routing"
	"github.com/vidgo/server/internal/module/material"
	"github.com/vidgo/server/internal/module/order"
	"github.com/vidgo/server/internal/module/payment"
	payprovider "github.com/vidgo/server/internal/module/payment/provider"
	"github.com/vidgo/server/internal/module/promotion"
	"github.com/vidgo/server/internal/module/quota"
	"github.com/vidgo/server/internal/module/session"
	"github.com/vidgo/server/internal/module/storage"
	"github.com/vidgo/server/internal/shared/cache"
	"github.com/vidgo/server/internal/shared/config"
	"github.com/vidgo/server/internal/shared/database"
	"github.com/vidgo/server/internal/shared/httpclient"
	"github.com/vidgo/server/internal/shared/logger"
	"github.com/vidgo/server/internal/shared/middleware"
	"github.com/vidgo/server/internal/utils/metrics"
)

// App holds the assembled application.
type App struct {
	config *config.Config
	logger *zap.Logger
	db     *gorm.DB
	redis  redis.UniversalClient
	router *gin.Engine

	metrics *metrics.Metrics
	bus     *events.Bus
	cron    *cron.Cron

	// Services that need explicit shutdown.
	generationService *generation.Service
	routingMonitor    *routing.Monitor

	// Handlers, in registration order.
	generationHandler *generation.Handler
	creditHandler     *credit.Handler
	quotaHandler      *quota.Handler
	sessionTracker    *session.Tracker
	sessionHandler    *session.Handler
	materialHandler   *material.Handler
	orderHandler      *order.Handler
	promotionHandler  *promotion.Handler
	paymentHandler    *payment.Handler
	authHandler       *auth.Handler
	authManager       *auth.Manager

	// Services shared across modules.
	creditService    *credit.Service
	quotaService     *quota.Service
	orderService     *order.Service
	promotionService *promotion.Service
}

// New creates the application: infrastructure first, then modules, then
// routes and background jobs.
func New(cfg *config.Config) (*App, error) {
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	app := &App{
		config:  cfg,
		logger:  log,
		metrics: metrics.New("vidgo"),
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	app.db = db

	if cfg.Database.AutoMigrate {
		if err := app.migrate(); err != nil {
			return nil, fmt.Errorf("migrate database: %w", err)
		}
	}

	// Redis backs quota counters and session heartbeats. Both degrade to
	// fail-open without it, so a connection failure is not fatal.
	rdb, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		log.Warn("redis unavailable, quota and session tracking degraded", zap.Error(err))
	} else {
		app.redis = rdb
	}

	app.setupRouter()

	if err := app.initModules(); err != nil {
		return nil, err
	}

	app.registerRoutes()
	app.registerEventHandlers()

	if err := app.startJobs(); err != nil {
		return nil, fmt.Errorf("start jobs: %w", err)
	}

	return app, nil
}

// migrate creates or updates the schema for every persisted model.
func (a *App) migrate() error {
	return database.Migrate(a.db,
		&generation.Record{},
		&credit.Balance{},
		&credit.Transaction{},
		&material.Material{},
		&order.Order{},
		&promotion.PromoCode{},
		&promotion.Redemption{},
		&payment.WebhookEvent{},
	)
}

// setupRouter builds the gin engine with the shared middleware chain.
func (a *App) setupRouter() {
	if a.config.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.Recovery(a.logger))
	router.Use(middleware.RequestID())
	router.Use(middleware.Logging(a.logger))
	router.Use(middleware.Metrics(a.metrics))
	router.Use(middleware.CORS(&a.config.CORS))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))

	a.router = router
}

// initModules constructs every module. The event bus comes first so
// modules can publish; event handlers register after all modules exist.
func (a *App) initModules() error {
	a.bus = events.NewBus(a.logger)

	if err := a.initAuthModule(); err != nil {
		return fmt.Errorf("init auth module: %w", err)
	}
	if err := a.initCreditModule(); err != nil {
		return fmt.Errorf("init credit module: %w", err)
	}
	if err := a.initQuotaModule(); err != nil {
		return fmt.Errorf("init quota module: %w", err)
	}
	if err := a.initSessionModule(); err != nil {
		return fmt.Errorf("init session module: %w", err)
	}
	if err := a.initMaterialModule(); err != nil {
		return fmt.Errorf("init material module: %w", err)
	}
	if err := a.initPromotionModule(); err != nil {
		return fmt.Errorf("init promotion module: %w", err)
	}
	if err := a.initOrderModule(); err != nil {
		return fmt.Errorf("init order module: %w", err)
	}
	if err := a.initPaymentModule(); err != nil {
		return fmt.Errorf("init payment module: %w", err)
	}
	if err := a.initGenerationModule(); err != nil {
		return fmt.Errorf("init generation module: %w", err)
	}

	return nil
}

func (a *App) initAuthModule() error {
	if a.config.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}

	a.authManager = auth.NewManager(auth.Config{
		Secret: a.config.Auth.JWTSecret,
		Expiry: a.config.Auth.TokenExpiry,
		Issuer: a.config.Auth.Issuer,
	})

	// The dev-token endpoint mints arbitrary identities, so it only
	// registers when explicitly enabled.
	if a.config.Auth.DevTokens {
		a.authHandler = auth.NewHandler(a.authManager)
	}

	return nil
}

func (a *App) initCreditModule() error {
	repo := credit.NewRepository(a.db)
	a.creditService = credit.NewService(repo, a.logger, a.metrics)
	a.creditHandler = credit.NewHandler(a.creditService)
	return nil
}

func (a *App) initQuotaModule() error {
	a.quotaService = quota.NewService(a.redis, a.config.Quota.Daily, a.logger, a.metrics)
	a.quotaHandler = quota.NewHandler(a.quotaService)
	return nil
}

func (a *App) initSessionModule() error {
	a.sessionTracker = session.NewTracker(a.redis, a.config.Session.Window, a.logger, a.metrics)
	a.sessionHandler = session.NewHandler(a.sessionTracker)
	return nil
}

func (a *App) initMaterialModule() error {
	repo := material.NewRepository(a.db)
	svc := material.NewService(repo, a.logger)
	a.materialHandler = material.NewHandler(svc)
	return nil
}

func (a *App) initPromotionModule() error {
	repo := promotion.NewRepository(a.db)
	a.promotionService = promotion.NewService(repo, a.creditService, a.logger)
	a.promotionHandler = promotion.NewHandler(a.promotionService)
	return nil
}

func (a *App) initOrderModule() error {
	repo := order.NewRepository(a.db)
	a.orderService = order.NewService(order.ServiceConfig{
		Repo:       repo,
		Discounter: a.promotionService,
		Expiry:     a.config.Orders.Expiry,
		Logger:     a.logger,
		Metrics:    a.metrics,
	})
	a.orderHandler = order.NewHandler(a.orderService)
	return nil
}

func (a *App) initPaymentModule() error {
	var providers []payprovider.Provider

	if a.config.Stripe.SecretKey != "" {
		providers = append(providers, payprovider.NewStripe(payprovider.StripeConfig{
			APIKey:        a.config.Stripe.SecretKey,
			WebhookSecret: a.config.Stripe.WebhookSecret,
		}))
	}

	if a.config.Alipay.AppID != "" && a.config.Alipay.PrivateKey != "" {
		alipayProvider, err := payprovider.NewAlipay(payprovider.AlipayConfig{
			AppID:      a.config.Alipay.AppID,
			PrivateKey: a.config.Alipay.PrivateKey,
			PublicKey:  a.config.Alipay.AlipayPublicKey,
			IsProd:     a.config.Alipay.IsProd,
			NotifyURL:  a.config.Alipay.NotifyURL,
			ReturnURL:  a.config.Alipay.ReturnURL,
		})
		if err != nil {
			return fmt.Errorf("create alipay provider: %w", err)
		}
		providers = append(providers, alipayProvider)
	}

	if len(providers) == 0 {
		a.logger.Warn("no payment providers configured, checkout disabled")
	}

	repo := payment.NewRepository(a.db)
	svc := payment.NewService(payment.ServiceConfig{
		Repo:      repo,
		Orders:    a.orderService,
		Providers: providers,
		Bus:       a.bus,
		Logger:    a.logger,
		Metrics:   a.metrics,
	})
	a.paymentHandler = payment.NewHandler(svc)
	return nil
}

func (a *App) initGenerationModule() error {
	// A client registers only when its key is configured. The routing
	// table names all four providers, so table validation below turns a
	// missing key into a boot error naming the provider.
	clients := make(map[genprovider.Name]genprovider.Client)

	if c := a.config.Providers.PiAPI; c.APIKey != "" {
		clients[genprovider.NamePiAPI] = genprovider.NewPiAPI(genprovider.Config{
			BaseURL:         c.BaseURL,
			APIKey:          c.APIKey,
			Timeout:         c.Timeout,
			PollInterval:    c.PollInterval,
			PollMaxAttempts: c.PollMaxAttempts,
		})
	}
	if c := a.config.Providers.Pollo; c.APIKey != "" {
		clients[genprovider.NamePollo] = genprovider.NewPollo(genprovider.Config{
			BaseURL:         c.BaseURL,
			APIKey:          c.APIKey,
			Timeout:         c.Timeout,
			PollInterval:    c.PollInterval,
			PollMaxAttempts: c.PollMaxAttempts,
		})
	}
	if c := a.config.Providers.A2E; c.APIKey != "" {
		clients[genprovider.NameA2E] = genprovider.NewA2E(genprovider.Config{
			BaseURL:         c.BaseURL,
			APIKey:          c.APIKey,
			Timeout:         c.Timeout,
			PollInterval:    c.PollInterval,
			PollMaxAttempts: c.PollMaxAttempts,
		})
	}
	if c := a.config.Providers.Gemini; c.APIKey != "" {
		gemini, err := genprovider.NewGemini(context.Background(), genprovider.GeminiConfig{
			APIKey:              c.APIKey,
			Model:               c.Model,
			ModerationThreshold: a.config.Moderation.Threshold,
		})
		if err != nil {
			return fmt.Errorf("create gemini client: %w", err)
		}
		clients[genprovider.NameGemini] = gemini
	}

	router, err := routing.New(routing.Config{
		HealthTTL:        a.config.Router.HealthTTL,
		FailureThreshold: a.config.Router.FailureThreshold,
	}, routing.DefaultTable(), clients, a.logger, a.metrics)
	if err != nil {
		return fmt.Errorf("create provider router: %w", err)
	}

	if a.config.Router.SweepEnabled {
		monitorCfg := routing.DefaultMonitorConfig()
		if a.config.Router.SweepInterval > 0 {
			monitorCfg.SweepInterval = a.config.Router.SweepInterval
		}
		a.routingMonitor = routing.NewMonitor(router, monitorCfg, a.logger)
	}

	var archiver generation.Archiver
	if a.config.Storage.Enabled {
		store, err := storage.NewClient(storage.Config{
			Endpoint:        a.config.Storage.Endpoint,
			Region:          a.config.Storage.Region,
			AccessKeyID:     a.config.Storage.AccessKeyID,
			SecretAccessKey: a.config.Storage.SecretAccessKey,
			Bucket:          a.config.Storage.Bucket,
		})
		if err != nil {
			return fmt.Errorf("create storage client: %w", err)
		}
		archiver = storage.NewArchiver(storage.ArchiverConfig{
			Store:         store,
			PublicBaseURL: a.config.Storage.PublicBaseURL,
			HTTPClient:    httpclient.New(httpclient.Config{ResponseTimeout: 2 * time.Minute}),
			Logger:        a.logger,
		})
	}

	// The A2E client doubles as the avatar catalog when configured.
	var avatars generation.AvatarLister
	if a2e, ok := clients[genprovider.NameA2E].(*genprovider.A2E); ok {
		avatars = a2e
	}

	repo := generation.NewRepository(a.db)
	a.generationService = generation.NewService(&generation.ServiceConfig{
		Repo:           repo,
		Router:         router,
		Credits:        a.creditService,
		Quota:          a.quotaService,
		Archiver:       archiver,
		Avatars:        avatars,
		Costs:          a.config.Credit.Costs,
		ModerateInputs: a.config.Moderation.Enabled,
		MaxConcurrent:  a.config.Generation.MaxConcurrent,
		Logger:         a.logger,
		Metrics:        a.metrics,
	})
	a.generationHandler = generation.NewHandler(a.generationService)
	return nil
}

// registerEventHandlers subscribes the modules that react to payment
// outcomes. Order runs before credit in handler iteration, but the bus
// isolates failures so each side settles independently.
func (a *App) registerEventHandlers() {
	a.bus.Register(order.NewPaymentHandler(a.orderService, a.logger))
	a.bus.Register(credit.NewPaymentHandler(a.creditService, a.logger))
}

// registerRoutes mounts every module under /api/v1.
func (a *App) registerRoutes() {
	v1 := a.router.Group("/api/v1")

	// Public routes: catalog reads and signature-verified webhooks.
	public := v1.Group("")
	a.orderHandler.RegisterPublicRoutes(public)
	a.materialHandler.RegisterRoutes(public)
	a.paymentHandler.RegisterPublicRoutes(public)
	if a.authHandler != nil {
		a.authHandler.RegisterRoutes(public)
	}

	// Protected routes require a bearer token.
	protected := v1.Group("")
	protected.Use(auth.RequireAuth(a.authManager))
	a.generationHandler.RegisterRoutes(protected)
	a.creditHandler.RegisterRoutes(protected)
	a.quotaHandler.RegisterRoutes(protected)
	a.sessionHandler.RegisterRoutes(protected)
	a.orderHandler.RegisterRoutes(protected)
	a.promotionHandler.RegisterRoutes(protected)
	a.paymentHandler.RegisterRoutes(protected)

	// Admin routes share the bearer guard until a dedicated operator
	// role lands; deployments front them with network policy.
	admin := v1.Group("/admin")
	admin.Use(auth.RequireAuth(a.authManager))
	a.generationHandler.RegisterAdminRoutes(admin)
	a.creditHandler.RegisterAdminRoutes(admin)
	a.materialHandler.RegisterAdminRoutes(admin)
	a.promotionHandler.RegisterAdminRoutes(admin)
}

// startJobs schedules the background maintenance jobs.
func (a *App) startJobs() error {
	a.cron = cron.New()

	if spec := a.config.Jobs.OrderExpirySpec; spec != "" {
		_, err := a.cron.AddFunc(spec, func() {
			if err := a.orderService.ExpirePending(context.Background()); err != nil {
				a.logger.Error("order expiry sweep failed", zap.Error(err))
			}
		})
		if err != nil {
			return fmt.Errorf("schedule order expiry: %w", err)
		}
	}

	if spec := a.config.Jobs.SessionPruneSpec; spec != "" {
		_, err := a.cron.AddFunc(spec, func() {
			if err := a.sessionTracker.Prune(context.Background()); err != nil {
				a.logger.Error("session prune failed", zap.Error(err))
			}
		})
		if err != nil {
			return fmt.Errorf("schedule session prune: %w", err)
		}
	}

	a.cron.Start()

	if a.routingMonitor != nil {
		a.routingMonitor.Start()
	}

	return nil
}

// Router returns the HTTP router.
func (a *App) Router() *gin.Engine {
	return a.router
}

// Stop stops background work and releases resources. In-flight async
// generations drain before the database closes under them.
func (a *App) Stop() {
	if a.cron != nil {
		a.cron.Stop()
	}

	if a.routingMonitor != nil {
		a.routingMonitor.Stop()
	}

	if a.generationService != nil {
		a.generationService.Stop()
	}

	if a.logger != nil {
		_ = a.logger.Sync()
	}

	if a.redis != nil {
		_ = a.redis.Close()
	}

	if a.db != nil {
		_ = database.Close(a.db)
	}
}
