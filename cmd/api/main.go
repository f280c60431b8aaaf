package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"atelier-sync/internal/cache"
	"atelier-sync/internal/config"
	"atelier-sync/internal/handler"
	"atelier-sync/internal/middleware"
	"atelier-sync/internal/model"
	"atelier-sync/internal/repository"
	"atelier-sync/internal/service"
	"atelier-sync/internal/shopify"
	"atelier-sync/internal/ws"
	"atelier-sync/pkg/database"
	"atelier-sync/pkg/logger"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// 1. Load Env
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Invalid configuration: ", err)
	}

	appLogger, err := logger.New()
	if err != nil {
		log.Fatal("Failed to build logger: ", err)
	}
	defer appLogger.Sync()

	// 2. Setup Database
	db := database.ConnectDB()
	db.AutoMigrate(
		&model.Product{}, &model.Variant{},
		&model.Delivery{}, &model.DeliveryItem{},
		&model.OrderItem{}, &model.Replenishment{},
		&model.SyncLog{}, &model.SalesMetric{},
	)

	// 3. Cache store (explicit TTL cache, injected into the push engine)
	var store cache.Store
	if cfg.Cache.Backend == "redis" {
		redisStore, err := cache.NewRedisStore(cfg.Cache.RedisURL)
		if err != nil {
			log.Fatal("Failed to connect to redis: ", err)
		}
		store = redisStore
	} else {
		store = cache.NewMemoryStore()
	}

	// 4. Setup WebSocket Hub (single progress stream for the operator UI)
	wsHub := ws.NewHub()
	go wsHub.Run()

	// 5. Dependency Injection (Wiring Layers)
	shopifyClient := shopify.NewClient(cfg.Shopify, nil)

	variantRepo := repository.NewVariantRepo(db)
	deliveryRepo := repository.NewDeliveryRepo(db)
	syncLogRepo := repository.NewSyncLogRepo(db)
	metricRepo := repository.NewMetricRepo(db)

	repairSvc := service.NewSKURepairService(shopifyClient, syncLogRepo, wsHub, appLogger)
	consolidationSvc := service.NewConsolidationService(db, variantRepo, appLogger)
	pushSvc := service.NewInventoryPushService(shopifyClient, deliveryRepo, syncLogRepo, store, wsHub, appLogger, cfg.Shopify.LocationID)
	duplicationSvc := service.NewDuplicationService(metricRepo, appLogger)
	batchSvc := service.NewBatchService(syncLogRepo, wsHub)

	syncHandler := handler.NewSyncHandler(repairSvc, consolidationSvc, pushSvc, duplicationSvc)
	batchHandler := handler.NewBatchHandler(batchSvc)
	deliveryHandler := handler.NewDeliveryHandler(deliveryRepo)

	// 6. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName: "Atelier Sync v1.0",
	})

	// Middleware
	app.Use(fiberlogger.New()) // Logging request
	app.Use(recover.New())     // Panic recovery
	app.Use(cors.New())        // CORS

	app.Get("/healthz", func(c *fiber.Ctx) error {
		sqlDB, err := db.DB()
		if err != nil || sqlDB.Ping() != nil {
			return c.Status(503).JSON(fiber.Map{"status": "degraded"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// 7. Routes
	api := app.Group("/api/v1")

	// Sync trigger routes are rate limited: overlapping triggers are the
	// root cause of duplicated metrics.
	sync := api.Group("/sync", middleware.RateLimit("10-M"))
	sync.Post("/assign-shopify-skus", syncHandler.AssignShopifySKUs)
	sync.Post("/consolidate-duplicate-variants", syncHandler.ConsolidateDuplicateVariants)
	sync.Post("/inventory", syncHandler.SyncInventory)
	sync.Post("/resync-delivery", syncHandler.ResyncDelivery)
	sync.Post("/fix-duplications", syncHandler.FixDuplications)

	// Batch lifecycle
	sync.Get("/batches", batchHandler.List)
	sync.Get("/batches/:processId", batchHandler.Get)
	sync.Post("/batches/:processId/cancel", batchHandler.Cancel)
	sync.Post("/batches/:processId/pause", batchHandler.Pause)
	sync.Post("/batches/:processId/resume", batchHandler.Resume)

	// Delivery read side for the operator UI
	api.Get("/deliveries/:id", deliveryHandler.Get)
	api.Get("/deliveries/:id/items", deliveryHandler.GetItems)

	// WebSocket Route
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		wsHub.Register <- c
		defer func() { wsHub.Unregister <- c }()

		for {
			// Keep alive loop
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
	}))

	// 8. Graceful Shutdown
	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Panic(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		appLogger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	appLogger.Info("Server exited")
}
