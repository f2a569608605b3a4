package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"amhaz-backend/config"
	"amhaz-backend/database"
	"amhaz-backend/logger"
	"amhaz-backend/middleware"
	"amhaz-backend/notify"
	"amhaz-backend/routes"
	"amhaz-backend/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Load environment variables
	if err := config.LoadEnv(); err != nil {
		log.Fatal("Error loading .env file:", err)
	}
	cfg := config.Load()

	zlog, err := logger.New(cfg.LogLevel, cfg.GinMode == gin.ReleaseMode)
	if err != nil {
		log.Fatal("Failed to build logger:", err)
	}
	defer zlog.Sync()

	// Validate critical environment variables
	if err := config.ValidateEnv(zlog); err != nil {
		zlog.Fatal("environment validation failed", zap.Error(err))
	}

	// Initialize database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		zlog.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run migrations
	if err := database.Migrate(db, "postgres", zlog.Named("migrate")); err != nil {
		zlog.Fatal("failed to run migrations", zap.Error(err))
	}

	// Create default admin user if not exists
	if err := database.CreateDefaultAdmin(db, cfg.AdminEmail, cfg.AdminPassword, zlog); err != nil {
		zlog.Warn("could not create default admin", zap.Error(err))
	}

	notifier, closeNotifiers := buildNotifier(cfg, zlog.Named("notify"))
	svc := services.New(db, notifier, zlog)

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(zlog.Named("http")))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.GuestSessionHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.GuestSessionHeader},
		AllowCredentials: true,
	}))

	checkoutLimiter := middleware.NewRateLimiter(10, time.Minute)
	routes.SetupRoutes(r, db, svc, routes.Options{
		LowStockThreshold: cfg.LowStockThreshold,
		CheckoutLimiter:   checkoutLimiter,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	// Run server in a goroutine
	go func() {
		zlog.Info("server starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info("shutting down server")

	// Give outstanding requests 30 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zlog.Error("server forced to shutdown", zap.Error(err))
	}
	checkoutLimiter.Stop()

	// Drain queued notifications before the process exits
	closeNotifiers(ctx)

	// Close database connection
	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			zlog.Error("error closing database connection", zap.Error(err))
		} else {
			zlog.Info("database connection closed")
		}
	}

	zlog.Info("server exited gracefully")
}

// buildNotifier assembles the configured delivery channels, each behind its
// own retrying dispatcher. The returned func drains and closes them.
func buildNotifier(cfg config.Config, log *zap.Logger) (notify.Notifier, func(context.Context)) {
	dispatcherCfg := func(name string) notify.DispatcherConfig {
		return notify.DispatcherConfig{
			Name:        name,
			QueueSize:   cfg.Notify.QueueSize,
			MaxAttempts: cfg.Notify.MaxAttempts,
			Backoff:     cfg.Notify.Backoff,
		}
	}

	var (
		channels    notify.Multi
		dispatchers []*notify.Dispatcher
		kafka       *notify.KafkaNotifier
	)

	emailCfg := notify.EmailConfig{
		Host:         cfg.Email.Host,
		Port:         cfg.Email.Port,
		Username:     cfg.Email.Username,
		Password:     cfg.Email.Password,
		From:         cfg.Email.From,
		AdminAddress: cfg.Email.AdminAddress,
	}
	if emailCfg.Configured() {
		d := notify.NewDispatcher(notify.NewEmailNotifier(emailCfg), dispatcherCfg("email"), log)
		dispatchers = append(dispatchers, d)
		channels = append(channels, d)
	}

	if len(cfg.Kafka.Brokers) > 0 {
		k, err := notify.NewKafkaNotifier(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			log.Error("kafka notifier disabled", zap.Error(err))
		} else {
			kafka = k
			d := notify.NewDispatcher(k, dispatcherCfg("kafka"), log)
			dispatchers = append(dispatchers, d)
			channels = append(channels, d)
		}
	}

	if len(channels) == 0 {
		log.Warn("no notification channels configured, order events are dropped")
	}

	closeAll := func(ctx context.Context) {
		for _, d := range dispatchers {
			if err := d.Close(ctx); err != nil {
				log.Warn("notification queue not drained", zap.Error(err))
			}
		}
		if kafka != nil {
			kafka.Close()
		}
	}
	return channels, closeAll
}
