package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/storehaus/review-engine/internal/config"
	"github.com/storehaus/review-engine/internal/delivery/events"
	httpDelivery "github.com/storehaus/review-engine/internal/delivery/http"
	"github.com/storehaus/review-engine/internal/delivery/http/handler"
	"github.com/storehaus/review-engine/internal/pkg/cache"
	"github.com/storehaus/review-engine/internal/pkg/database"
	"github.com/storehaus/review-engine/internal/pkg/logger"
	cacheRepo "github.com/storehaus/review-engine/internal/repository/cache"
	"github.com/storehaus/review-engine/internal/repository/postgres"
	"github.com/storehaus/review-engine/internal/usecase/notification"
	"github.com/storehaus/review-engine/internal/usecase/review"

	_ "github.com/storehaus/review-engine/docs"
)

// @title Review & Notification Engine API
// @version 1.0
// @description Product reviews with threaded replies, like toggles, and user notifications for an e-commerce storefront.
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url http://github.com/storehaus/review-engine
// @contact.email support@example.com

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

// @tag.name Reviews
// @tag.description Review, like and reply endpoints

// @tag.name Notifications
// @tag.description Notification endpoints

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(cfg.Env)
	appLogger.Info("Starting Review & Notification Engine API...")

	appLogger.Info("Connecting to PostgreSQL...")
	db, err := database.WaitForDB(cfg, 10, 2*time.Second)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", err)
	}
	defer db.Close()
	appLogger.Info("Connected to PostgreSQL successfully")

	appLogger.Info("Running database migrations...")
	if err := database.RunMigrations(db); err != nil {
		appLogger.Fatal("Failed to run migrations", err)
	}

	appLogger.Info("Connecting to Redis...")
	redisClient, err := cache.WaitForRedis(cfg, 10, 2*time.Second)
	if err != nil {
		appLogger.Fatal("Failed to connect to Redis", err)
	}
	defer redisClient.Close()
	appLogger.Info("Connected to Redis successfully")

	appLogger.Info("Connecting to NATS...")
	publisher, err := events.NewPublisher(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to create NATS publisher", err)
	}
	defer publisher.Close()

	productRepo := postgres.NewProductRepository(db)
	userRepo := postgres.NewUserRepository(db)
	reviewRepo := postgres.NewReviewRepository(db)
	notificationRepo := postgres.NewNotificationRepository(db)
	redisCache := cacheRepo.NewRedisCache(
		redisClient,
		cfg.Cache.ReviewsListTTL,
		cfg.Cache.UnreadCountTTL,
	)

	notificationService := notification.NewService(
		notificationRepo,
		productRepo,
		userRepo,
		redisCache,
		publisher,
		appLogger,
	)
	reviewService := review.NewService(
		reviewRepo,
		productRepo,
		redisCache,
		notificationService,
		appLogger,
	)

	reviewHandler := handler.NewReviewHandler(reviewService, appLogger)
	notificationHandler := handler.NewNotificationHandler(notificationService, appLogger)

	router := httpDelivery.NewRouter(reviewHandler, notificationHandler, cfg, appLogger)
	httpHandler := router.Setup()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      httpHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		appLogger.Infof("HTTP server listening on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("HTTP server failed", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		appLogger.Fatal("Server forced to shutdown", err)
	}

	appLogger.Info("Server stopped gracefully")
}
