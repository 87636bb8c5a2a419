// Package main runs the CRM HTTP server with WebSocket chat and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vantage-crm/backend/config"
	"github.com/vantage-crm/backend/internal/attachments"
	"github.com/vantage-crm/backend/internal/auth"
	"github.com/vantage-crm/backend/internal/billing"
	"github.com/vantage-crm/backend/internal/chat"
	"github.com/vantage-crm/backend/internal/customers"
	"github.com/vantage-crm/backend/internal/invoices"
	"github.com/vantage-crm/backend/internal/leads"
	"github.com/vantage-crm/backend/internal/middleware"
	"github.com/vantage-crm/backend/internal/rbac"
	"github.com/vantage-crm/backend/internal/tenant"
	"github.com/vantage-crm/backend/pkg/database"
	"github.com/vantage-crm/backend/pkg/queue"
	"github.com/vantage-crm/backend/pkg/redis"
	"github.com/vantage-crm/backend/pkg/response"
	"github.com/vantage-crm/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.AWS.Region != "" {
		s3Cfg := storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			AttachmentsBucket:    cfg.AWS.AttachmentsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}
		s3Client, err = storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		}
	}

	// Token service and revocation-aware validator
	tokenService := auth.NewTokenService(
		cfg.JWT.Secret,
		time.Duration(cfg.JWT.AccessExpireMins)*time.Minute,
		time.Duration(cfg.JWT.RefreshExpireHours)*time.Hour,
	)
	revocations := auth.NewRedisRevocationStore(rdb.Client)
	validator := auth.NewValidator(tokenService, revocations)

	// Tenant resolution
	orgRepo := tenant.NewRepository(pool)
	resolver := tenant.NewResolver(orgRepo)
	tenantHandler := tenant.NewHandler(orgRepo, tenant.RoleSeeds{
		Admin:  rbac.AllCapabilities(),
		Member: rbac.ReadCapabilities(),
	}, logger)

	// Auth
	userRepo := auth.NewRepository(pool)
	refreshRepo := auth.NewRefreshRepository(pool)
	authService := auth.NewService(tokenService, validator, userRepo, refreshRepo, revocations, orgRepo, logger)
	authHandler := auth.NewHandler(authService, logger)

	// Billing: webhook-driven subscription state + demo purge jobs
	jobQueue := queue.NewQueue(rdb.Client, logger)
	billingRepo := billing.NewRepository(pool)
	billingWebhook := billing.NewWebhookHandler(cfg.Billing.WebhookSecret, billingRepo, jobQueue, logger)
	billingHandler := billing.NewHandler(billingRepo, logger)

	// RBAC
	rbacRepo := rbac.NewRepository(pool)
	engine := rbac.NewEngine(rbacRepo, rdb.Client, rbac.DefaultCacheTTL)
	rbacHandler := rbac.NewHandler(rbacRepo, engine)
	usersHandler := auth.NewUsersHandler(userRepo, rbacRepo, logger)

	// Business domain
	customerRepo := customers.NewRepository(pool)
	customerHandler := customers.NewHandler(customerRepo, logger)
	invoiceRepo := invoices.NewRepository(pool)
	invoiceHandler := invoices.NewHandler(invoiceRepo, logger)
	leadRepo := leads.NewRepository(pool)
	leadHandler := leads.NewHandler(leadRepo, logger)

	// Attachments (S3-backed)
	attachmentRepo := attachments.NewRepository(pool)
	attachmentHandler := attachments.NewHandler(attachmentRepo, invoiceRepo, s3Client, logger)

	// Workspace chat
	chatPubSub := chat.NewRedisPubSub(rdb.Client, logger)
	hub := chat.NewHub(logger, chatPubSub, chatPubSub)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.POST("/signup", tenantHandler.Signup)
	}

	// Session endpoints need a valid token but no tenant scope, so they also
	// work for super-admin sessions, which carry no organization.
	session := router.Group("/auth")
	session.Use(middleware.Auth(validator))
	{
		session.POST("/logout", authHandler.Logout)
		session.GET("/me", authHandler.Me)
		session.POST("/change-password", authHandler.ChangePassword)
	}

	// Webhooks (no JWT; signature verified in handler)
	router.POST("/webhooks/billing", billingWebhook.Handle)

	// Tenant API: token -> tenant -> subscription -> permission, in that order.
	// Each business route additionally requires its exact capability.
	api := router.Group("")
	api.Use(middleware.Auth(validator))
	api.Use(middleware.TenantResolve(resolver))
	{
		// Team management sits outside the subscription guard so an
		// organization can finish setting up its users while on trial.
		api.GET("/users", middleware.RequirePermission(engine, "users", "read"), usersHandler.List)
		api.POST("/users", middleware.RequirePermission(engine, "users", "create"), usersHandler.Invite)

		// Organization self-service. Cancellation is deliberately not behind
		// the subscription guard: any state may cancel.
		api.GET("/organization", middleware.RequirePermission(engine, "organization", "read"), tenantHandler.Get)
		api.POST("/organization/cancel", middleware.RequirePermission(engine, "organization", "update"), billingHandler.Cancel)

		guarded := api.Group("")
		guarded.Use(middleware.SubscriptionGuard())
		{
			// Customers
			guarded.GET("/customers", middleware.RequirePermission(engine, "customers", "read"), customerHandler.List)
			guarded.POST("/customers", middleware.RequirePermission(engine, "customers", "create"), customerHandler.Create)
			guarded.GET("/customers/:id", middleware.RequirePermission(engine, "customers", "read"), customerHandler.Get)
			guarded.PUT("/customers/:id", middleware.RequirePermission(engine, "customers", "update"), customerHandler.Update)
			guarded.DELETE("/customers/:id", middleware.RequirePermission(engine, "customers", "delete"), customerHandler.Delete)

			// Invoices
			guarded.GET("/invoices", middleware.RequirePermission(engine, "invoices", "read"), invoiceHandler.List)
			guarded.POST("/invoices", middleware.RequirePermission(engine, "invoices", "create"), invoiceHandler.Create)
			guarded.GET("/invoices/:id", middleware.RequirePermission(engine, "invoices", "read"), invoiceHandler.Get)
			guarded.PUT("/invoices/:id", middleware.RequirePermission(engine, "invoices", "update"), invoiceHandler.Update)
			guarded.DELETE("/invoices/:id", middleware.RequirePermission(engine, "invoices", "delete"), invoiceHandler.Delete)

			// Leads
			guarded.GET("/leads", middleware.RequirePermission(engine, "leads", "read"), leadHandler.List)
			guarded.POST("/leads", middleware.RequirePermission(engine, "leads", "create"), leadHandler.Create)
			guarded.GET("/leads/:id", middleware.RequirePermission(engine, "leads", "read"), leadHandler.Get)
			guarded.PUT("/leads/:id", middleware.RequirePermission(engine, "leads", "update"), leadHandler.Update)
			guarded.DELETE("/leads/:id", middleware.RequirePermission(engine, "leads", "delete"), leadHandler.Delete)

			// Invoice attachments (S3 presigned URLs + server-side upload)
			guarded.POST("/invoices/:id/attachments/upload-url", middleware.RequirePermission(engine, "attachments", "create"), attachmentHandler.UploadURL)
			guarded.POST("/invoices/:id/attachments", middleware.RequirePermission(engine, "attachments", "create"), attachmentHandler.Upload)
			guarded.GET("/invoices/:id/attachments", middleware.RequirePermission(engine, "attachments", "read"), attachmentHandler.ListByInvoice)
			guarded.GET("/attachments/:id/download-url", middleware.RequirePermission(engine, "attachments", "read"), attachmentHandler.DownloadURL)
			guarded.DELETE("/attachments/:id", middleware.RequirePermission(engine, "attachments", "delete"), attachmentHandler.Delete)

			// Roles
			guarded.GET("/roles/catalog", middleware.RequirePermission(engine, "roles", "read"), rbacHandler.Catalog)
			guarded.GET("/roles", middleware.RequirePermission(engine, "roles", "read"), rbacHandler.List)
			guarded.POST("/roles", middleware.RequirePermission(engine, "roles", "create"), rbacHandler.Create)
			guarded.PUT("/roles/:id/permissions", middleware.RequirePermission(engine, "roles", "update"), rbacHandler.SetPermissions)
			guarded.DELETE("/roles/:id", middleware.RequirePermission(engine, "roles", "delete"), rbacHandler.Delete)
		}
	}

	// Platform operator API (super admin only; no tenant scope)
	platform := router.Group("/platform")
	platform.Use(middleware.Auth(validator))
	platform.Use(middleware.RequireSuperAdmin())
	{
		platform.GET("/organizations", tenantHandler.PlatformList)
		platform.POST("/organizations/:id/disable", tenantHandler.PlatformDisable)
	}

	// WebSocket (token in query; no Authorization header on upgrades)
	router.GET("/ws", chat.ServeWs(hub, validator, resolver, engine, logger))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
