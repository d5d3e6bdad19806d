package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	appreturns "github.com/retailcore/backend/internal/application/returns"
	"github.com/retailcore/backend/internal/domain/ledger"
	"github.com/retailcore/backend/internal/domain/returns"
	"github.com/retailcore/backend/internal/domain/shared"
	"github.com/retailcore/backend/internal/infrastructure/config"
	"github.com/retailcore/backend/internal/infrastructure/logger"
	"github.com/retailcore/backend/internal/infrastructure/notification"
	"github.com/retailcore/backend/internal/infrastructure/persistence"
	"github.com/retailcore/backend/internal/infrastructure/telemetry"
	"github.com/retailcore/backend/internal/interfaces/http/handler"
	"github.com/retailcore/backend/internal/interfaces/http/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting retailcore backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(ctx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Transaction scope with retry on serialization failures and deadlocks
	txRunner := persistence.NewTxRunner(db.DB, cfg.Returns.TxMaxRetries, cfg.Returns.TxRetryBaseDelay, log)
	txScope := persistence.NewGormTransactionScope(txRunner)

	returnRepo := persistence.NewGormReturnRepository(db.DB)
	orderLookup := persistence.NewGormOrderLookup(db.DB)
	productLookup := persistence.NewGormProductLookup(db.DB)

	policy := returns.FeePolicy{
		BasePercent:      decimal.NewFromFloat(cfg.Returns.RestockingFeePercent),
		ReturnWindowDays: cfg.Returns.WindowDays,
	}
	accounts := appreturns.AccountMap{
		SalesReturns:       ledger.AccountCode(cfg.Accounts.SalesReturns),
		AccountsReceivable: ledger.AccountCode(cfg.Accounts.AccountsReceivable),
		AccountsPayable:    ledger.AccountCode(cfg.Accounts.AccountsPayable),
		PurchaseReturns:    ledger.AccountCode(cfg.Accounts.PurchaseReturns),
		Cash:               ledger.AccountCode(cfg.Accounts.Cash),
		Bank:               ledger.AccountCode(cfg.Accounts.Bank),
		Inventory:          ledger.AccountCode(cfg.Accounts.Inventory),
		COGS:               ledger.AccountCode(cfg.Accounts.COGS),
	}
	if err := accounts.Validate(); err != nil {
		log.Fatal("Invalid account mapping", zap.Error(err))
	}

	returnService := appreturns.NewReturnService(
		txScope, returnRepo, orderLookup, productLookup, policy, accounts, log)

	var publisher shared.EventPublisher
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.RedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() {
			_ = redisClient.Close()
		}()
		publisher = notification.NewRedisPublisher(redisClient, log)
		log.Info("Redis event publisher enabled", zap.String("addr", cfg.Redis.RedisAddr()))
	} else {
		publisher = notification.NewLoggingPublisher(log)
	}
	returnService.SetEventPublisher(publisher)

	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.CORSWithConfig(middleware.DefaultCORSConfig()))

	engine.GET("/health", healthHandler(db))

	api := engine.Group("/api/v1")
	returnHandler := handler.NewReturnHandler(returnService)
	returnHandler.RegisterRoutes(api)

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler reports liveness of the service and its database
func healthHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
