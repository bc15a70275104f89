package main

import (
	"context"
	"net/http"
	"time"

	_ "textile-erp/api/swagger" // swagger docs
	"textile-erp/internal/config"
	"textile-erp/internal/database"
	"textile-erp/internal/events"
	"textile-erp/internal/export"
	"textile-erp/internal/handler"
	"textile-erp/internal/lock"
	"textile-erp/internal/logger"
	"textile-erp/internal/middleware"
	"textile-erp/internal/repository"
	"textile-erp/internal/service"
	"textile-erp/internal/websocket"
	"textile-erp/pkg/response"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const (
	lockTTL  = 30 * time.Second
	lockWait = 5 * time.Second
)

// @title           Textile ERP API
// @version         1.0
// @description     Production pipeline for a textile manufacturer: purchase, weaving, shorting, stitching and finished goods inventory.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	middleware.SetJWTSecret(cfg.JWTSecret)

	ctx := context.Background()

	db, err := database.NewConnection(cfg, log)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.WithField("driver", cfg.DBDriver).Info("Connected to database successfully.")

	// Conversion locks span instances only when Redis is configured
	var locker lock.Locker
	if cfg.RedisAddress != "" {
		rdb, err := lock.Connect(ctx, cfg.RedisAddress, cfg.RedisPassword)
		if err != nil {
			log.Fatalf("Redis connection failed: %v", err)
		}
		defer rdb.Close()
		locker = lock.NewRedisLocker(rdb, lockTTL, lockWait)
		log.WithField("address", cfg.RedisAddress).Info("Using redis conversion locks")
	} else {
		locker = lock.NewLocalLocker(lockWait)
		log.Warn("REDIS_ADDRESS not set, conversion locks are local to this process")
	}

	// Set up WebSocket Hub
	wsHub := websocket.NewHub(log)
	go wsHub.Run()

	publishers := events.Fanout{events.NewHubPublisher(wsHub, log)}
	if cfg.PubSubTopic != "" {
		ps, err := events.NewPubSubPublisher(ctx, cfg.PubSubProjectID, cfg.PubSubTopic, cfg.PubSubCredentialsJSON, log)
		if err != nil {
			log.Fatalf("Pub/Sub setup failed: %v", err)
		}
		defer ps.Close()
		publishers = append(publishers, ps)
	}

	var archiver export.Archiver
	if cfg.ExportBucket != "" {
		gcs, err := export.NewGCSArchiver(ctx, cfg.ExportBucket, cfg.GCSCredentialsJSON)
		if err != nil {
			log.Fatalf("Export bucket setup failed: %v", err)
		}
		defer gcs.Close()
		archiver = gcs
	}

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	auditRepo := repository.NewAuditRepository(db)
	conversionLogRepo := repository.NewConversionLogRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	purchaseRepo := repository.NewPurchaseRepository(db)
	weaverRepo := repository.NewWeaverChallanRepository(db)
	shortingRepo := repository.NewShortingEntryRepository(db)
	stitchingRepo := repository.NewStitchingChallanRepository(db)
	inventoryRepo := repository.NewInventoryItemRepository(db)
	expenseRepo := repository.NewExpenseRepository(db)
	voucherRepo := repository.NewPaymentVoucherRepository(db)
	costTrendRepo := repository.NewCostTrendRepository(db)

	exportService := service.NewExportService(archiver, log)
	ledgerService := service.NewLedgerService(ledgerRepo, auditRepo, txManager)
	purchaseService := service.NewPurchaseService(purchaseRepo, ledgerRepo, auditRepo, txManager)
	weaverService := service.NewWeaverChallanService(weaverRepo, purchaseRepo, ledgerRepo, auditRepo, txManager, publishers)
	shortingService := service.NewShortingEntryService(shortingRepo, weaverRepo, purchaseRepo, auditRepo, txManager)
	stitchingService := service.NewStitchingChallanService(stitchingRepo, shortingRepo, ledgerRepo, auditRepo, txManager, publishers)
	conversionService := service.NewConversionService(stitchingRepo, inventoryRepo, conversionLogRepo, auditRepo, txManager, locker, publishers)
	inventoryService := service.NewInventoryService(inventoryRepo, auditRepo, txManager)
	expenseService := service.NewExpenseService(expenseRepo, ledgerRepo, weaverRepo, stitchingRepo, auditRepo, txManager)
	voucherService := service.NewPaymentVoucherService(voucherRepo, ledgerRepo, weaverRepo, stitchingRepo, auditRepo, txManager)
	analyticsService := service.NewAnalyticsService(purchaseRepo, weaverRepo, shortingRepo, stitchingRepo, inventoryRepo, expenseRepo, voucherRepo)
	costTrendService := service.NewCostTrendService(costTrendRepo)
	auditService := service.NewAuditService(auditRepo, conversionLogRepo)

	// Initialize Handlers
	handlers := []interface{ RegisterRoutes(*gin.RouterGroup) }{
		handler.NewLedgerHandler(ledgerService, exportService, log),
		handler.NewPurchaseHandler(purchaseService, exportService, log),
		handler.NewWeaverChallanHandler(weaverService, exportService, log),
		handler.NewShortingHandler(shortingService, exportService, log),
		handler.NewStitchingHandler(stitchingService, conversionService, exportService, log),
		handler.NewInventoryHandler(inventoryService, exportService, log),
		handler.NewExpenseHandler(expenseService, voucherService, exportService, log),
		handler.NewAnalyticsHandler(analyticsService, costTrendService, log),
		handler.NewAuditHandler(auditService, log),
	}

	// Set up Gin Router
	router := gin.New()
	router.Use(gin.Recovery(), logger.GinMiddleware(log))

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.ExposeHeaders = []string{"Content-Disposition"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "DEGRADED"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "OK", "ws_clients": wsHub.ClientCount()})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret(), middleware.AllowWebsocketRole)
	})

	// Current caller and the permissions the frontend should unlock
	router.GET("/api/me", middleware.RequireRole(
		middleware.RoleAdmin, middleware.RoleProductionManager, middleware.RoleInventoryManager, middleware.RoleAccountant,
	), func(c *gin.Context) {
		role := c.GetString("userRole")
		c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{
			"user_id":     c.GetString("userID"),
			"role":        role,
			"permissions": middleware.PermissionsForRole(role),
		}))
	})

	// API Routing
	for _, h := range handlers {
		h.RegisterRoutes(router.Group(""))
	}

	log.WithField("port", cfg.Port).Info("Server listening")
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
