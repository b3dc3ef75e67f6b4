package main

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"kukuyard-system/config"
	"kukuyard-system/internal/database"
	"kukuyard-system/internal/gateway/handlers"
	"kukuyard-system/internal/gateway/middleware"
	"kukuyard-system/internal/services/alerts/engine"
	alerthandler "kukuyard-system/internal/services/alerts/handler"
	dashboardhandler "kukuyard-system/internal/services/dashboard/handler"
	devicehandler "kukuyard-system/internal/services/device/handler"
	farmhandler "kukuyard-system/internal/services/farm/handler"
	inventoryhandler "kukuyard-system/internal/services/inventory/handler"
	subscriptionhandler "kukuyard-system/internal/services/subscription/handler"
	userhandler "kukuyard-system/internal/services/user/handler"
)

func main() {
	cfg := config.LoadConfig()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	db, err := database.NewConnection(cfg.DB.DSN())
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	redisClient := config.NewRedisClient(cfg.Redis)

	alertEngine := engine.New(
		alerthandler.NewGormRuleSource(db),
		alerthandler.NewGormAlertStore(db, redisClient, logger),
		logger,
	)

	users := userhandler.NewUserHandler(db, redisClient, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)
	farms := farmhandler.NewFarmHandler(db, redisClient)
	devices := devicehandler.NewDeviceHandler(db, redisClient, alertEngine, logger)
	inventory := inventoryhandler.NewInventoryHandler(db, redisClient, alertEngine, logger)
	alerts := alerthandler.NewAlertHandler(db, redisClient, alertEngine, logger)
	subscriptions := subscriptionhandler.NewSubscriptionHandler(db, redisClient)
	dashboard := dashboardhandler.NewDashboardHandler(db, redisClient)

	userHandler := handlers.NewUserHTTPHandler(users)
	farmHandler := handlers.NewFarmHTTPHandler(farms)
	deviceHandler := handlers.NewDeviceHTTPHandler(devices)
	inventoryHandler := handlers.NewInventoryHTTPHandler(inventory)
	alertHandler := handlers.NewAlertHTTPHandler(alerts)
	subscriptionHandler := handlers.NewSubscriptionHTTPHandler(subscriptions)
	dashboardHandler := handlers.NewDashboardHTTPHandler(dashboard)
	predictionHandler := handlers.NewPredictionHTTPHandler(cfg.Prediction, logger)

	r := gin.Default()

	r.Use(middleware.CORS())
	r.Use(middleware.RateLimit("300-M"))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// --- Public API Group ---
	public := r.Group("/api/v1")
	{
		auth := public.Group("/auth")
		{
			auth.POST("/register", userHandler.Register)
			auth.POST("/login", userHandler.Login)
		}

		// Device ingestion authenticates by serial id, not user token.
		public.POST("/readings", deviceHandler.IngestReading)

		public.GET("/plans", subscriptionHandler.ListPlans)
	}

	// --- Protected API Group ---
	protected := r.Group("/api/v1")
	protected.Use(middleware.JWTAuth())
	{
		usersGroup := protected.Group("/users")
		{
			usersGroup.GET("", userHandler.ListUsers)
			usersGroup.GET("/me", userHandler.Me)
			usersGroup.POST("/me/password", userHandler.ChangePassword)
			usersGroup.GET("/:id", userHandler.GetUser)
			usersGroup.PUT("/:id", userHandler.UpdateUser)
		}

		farmsGroup := protected.Group("/farms")
		{
			farmsGroup.POST("", farmHandler.CreateFarm)
			farmsGroup.GET("", farmHandler.ListFarms)
			farmsGroup.GET("/:id", farmHandler.GetFarm)
			farmsGroup.PUT("/:id", farmHandler.UpdateFarm)
			farmsGroup.POST("/:id/workers", farmHandler.AddWorker)
			farmsGroup.DELETE("/:id/workers/:userId", farmHandler.RemoveWorker)
		}

		batchesGroup := protected.Group("/batches")
		{
			batchesGroup.POST("", farmHandler.CreateBatch)
			batchesGroup.GET("", farmHandler.ListBatches)
			batchesGroup.GET("/:id", farmHandler.GetBatch)
			batchesGroup.PUT("/:id", farmHandler.UpdateBatch)
			batchesGroup.PUT("/:id/status", farmHandler.UpdateBatchStatus)
		}

		devicesGroup := protected.Group("/devices")
		{
			devicesGroup.POST("", deviceHandler.CreateDevice)
			devicesGroup.GET("", deviceHandler.ListDevices)
			devicesGroup.GET("/:id", deviceHandler.GetDevice)
			devicesGroup.PUT("/:id", deviceHandler.UpdateDevice)
			devicesGroup.PUT("/:id/status", deviceHandler.UpdateDeviceStatus)
			devicesGroup.GET("/:id/readings", deviceHandler.ListReadings)
			devicesGroup.GET("/:id/readings/latest", deviceHandler.LatestReading)
		}

		inventoryGroup := protected.Group("/inventory")
		{
			inventoryGroup.POST("/categories", inventoryHandler.CreateCategory)
			inventoryGroup.GET("/categories", inventoryHandler.ListCategories)
			inventoryGroup.POST("/items", inventoryHandler.CreateItem)
			inventoryGroup.GET("/items", inventoryHandler.ListItems)
			inventoryGroup.GET("/items/:id", inventoryHandler.GetItem)
			inventoryGroup.PUT("/items/:id", inventoryHandler.UpdateItem)
			inventoryGroup.POST("/items/:id/transactions", inventoryHandler.ApplyTransaction)
			inventoryGroup.GET("/items/:id/transactions", inventoryHandler.ListTransactions)
			inventoryGroup.POST("/items/:id/add-stock", inventoryHandler.AddStock)
			inventoryGroup.POST("/items/:id/remove-stock", inventoryHandler.RemoveStock)
		}

		alertsGroup := protected.Group("/alerts")
		{
			alertsGroup.POST("/rules", alertHandler.CreateRule)
			alertsGroup.GET("/rules", alertHandler.ListRules)
			alertsGroup.GET("/rules/:id", alertHandler.GetRule)
			alertsGroup.PUT("/rules/:id", alertHandler.UpdateRule)
			alertsGroup.POST("/rules/:id/test", alertHandler.TestRule)
			alertsGroup.GET("", alertHandler.ListAlerts)
			alertsGroup.GET("/:id", alertHandler.GetAlert)
			alertsGroup.POST("/:id/acknowledge", alertHandler.AcknowledgeAlert)
			alertsGroup.POST("/:id/resolve", alertHandler.ResolveAlert)
		}

		subscriptionsGroup := protected.Group("/subscriptions")
		{
			subscriptionsGroup.POST("/plans", subscriptionHandler.CreatePlan)
			subscriptionsGroup.POST("", subscriptionHandler.Subscribe)
			subscriptionsGroup.GET("/current", subscriptionHandler.CurrentSubscription)
			subscriptionsGroup.POST("/:id/cancel", subscriptionHandler.Cancel)
			subscriptionsGroup.GET("/:id/payments", subscriptionHandler.ListPayments)
			subscriptionsGroup.POST("/payments", subscriptionHandler.RecordPayment)
		}

		protected.GET("/dashboard", dashboardHandler.Summary)

		protected.POST("/predictions", predictionHandler.Predict)
	}

	logger.Info("server starting", zap.String("port", cfg.Server.Port))
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
