package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/NematiDev/Zentec/internal/bus"
	"github.com/NematiDev/Zentec/internal/cache"
	"github.com/NematiDev/Zentec/internal/client"
	"github.com/NematiDev/Zentec/internal/config"
	"github.com/NematiDev/Zentec/internal/consumer"
	"github.com/NematiDev/Zentec/internal/httpapi"
	"github.com/NematiDev/Zentec/internal/metrics"
	"github.com/NematiDev/Zentec/internal/reaper"
	"github.com/NematiDev/Zentec/internal/repository"
	"github.com/NematiDev/Zentec/internal/service"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg := config.Load()
	logger.Info("order service starting", zap.String("payment_mode", string(cfg.PaymentMode)))

	// Database
	repo, err := repository.NewRepository(&cfg.DB)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer repo.Close()

	if err := repo.RunMigrations(&cfg.DB); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	logger.Info("database migrations completed")

	// Redis cart cache
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	cartCache := cache.NewRedisCache(redisClient)

	// Capability clients
	inventoryClient := client.NewInventoryClient(cfg.InventoryBaseURL, cfg.ClientTimeout, logger)
	paymentClient := client.NewPaymentClient(cfg.PaymentBaseURL, cfg.ClientTimeout, logger)
	userClient := client.NewUserClient(cfg.UserBaseURL, cfg.ClientTimeout, logger)
	productClient := client.NewProductClient(cfg.ProductBaseURL, cfg.ClientTimeout, logger)

	m := metrics.New()

	// Event publisher for order lifecycle events
	publisher := bus.NewKafkaPublisher(cfg.KafkaBrokers, cfg.OrderEventsTopic, logger)
	defer publisher.Close()

	// Services
	cartService := service.NewCartService(repo, productClient, cartCache, logger)
	checkoutService := service.NewCheckoutService(
		repo, repo, cartCache,
		inventoryClient, paymentClient, userClient,
		publisher, m, logger, cfg.PaymentMode,
	)
	orderService := service.NewOrderService(repo, inventoryClient, logger)

	var wg sync.WaitGroup
	runCtx, cancel := context.WithCancel(context.Background())

	// Payment reconciliation consumer
	paymentHandler := consumer.NewPaymentEventHandler(repo, inventoryClient, publisher, cfg.ServiceToken, m, logger)
	paymentConsumer := bus.NewConsumer(cfg.KafkaBrokers, cfg.PaymentEventsTopic, cfg.ConsumerGroupID, paymentHandler, logger)
	wg.Add(1)
	go func() {
		defer wg.Done()
		paymentConsumer.Run(runCtx)
	}()

	// Abandoned order reaper
	orderReaper := reaper.New(repo, inventoryClient, reaper.Config{
		Deadline:     cfg.ReaperDeadline,
		Interval:     cfg.ReaperInterval,
		ErrorBackoff: cfg.ReaperErrorBackoff,
		BatchSize:    cfg.ReaperBatchSize,
		ServiceToken: cfg.ServiceToken,
	}, m, logger)
	wg.Add(1)
	go func() {
		defer wg.Done()
		orderReaper.Run(runCtx)
	}()

	// HTTP API
	router := httpapi.NewRouter(
		httpapi.NewCartHandler(cartService),
		httpapi.NewCheckoutHandler(checkoutService),
		httpapi.NewOrdersHandler(orderService),
		m,
	)
	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
	}
	go func() {
		logger.Info("http server listening", zap.String("port", cfg.HTTPPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", zap.Error(err))
	}

	cancel()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("background workers stopped")
	case <-shutdownCtx.Done():
		logger.Warn("background workers did not stop in time")
	}

	paymentConsumer.Close()
	if err := redisClient.Close(); err != nil {
		logger.Error("failed to close redis client", zap.Error(err))
	}
	logger.Info("order service stopped")
}
