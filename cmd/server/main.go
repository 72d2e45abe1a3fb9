package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"booking-service/config"
	"booking-service/internal/api"
	"booking-service/internal/auth"
	"booking-service/internal/broker"
	"booking-service/internal/payment"
	"booking-service/internal/pricing"
	"booking-service/internal/redisclient"
	"booking-service/internal/service"
	"booking-service/internal/store"
	"booking-service/internal/util"
	"booking-service/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env, cfg.Server.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting booking service", zap.String("env", cfg.Server.Env))

	if cfg.Observ.TracingEnabled {
		tp, err := util.InitTracer(util.TracerOptions{
			ServiceName:    "booking-service",
			Environment:    cfg.Server.Env,
			JaegerEndpoint: cfg.Observ.JaegerEndpoint,
			SampleRatio:    cfg.Observ.SampleRatio,
		})
		if err != nil {
			logger.Fatal("Failed to initialize tracer", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(ctx); err != nil {
				logger.Error("Error shutting down tracer", zap.Error(err))
			}
		}()
	}

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("Database connected")

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(context.Background()); err != nil {
			logger.Fatal("Failed to apply schema", zap.Error(err))
		}
	}

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	logger.Info("Redis connected")

	var publisher service.EventPublisher = broker.NoopPublisher{}
	if cfg.Kafka.Enabled {
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicBooking)
		defer producer.Close()
		publisher = broker.NewEventPublisher(producer)
		logger.Info("Kafka producer initialized", zap.String("topic", cfg.Kafka.TopicBooking))
	} else {
		logger.Warn("Kafka disabled, booking events will not be published")
	}

	bookingCfg := service.BookingConfig{
		HoldTTL:        cfg.Business.HoldTTL,
		PaymentWindow:  cfg.Business.PaymentWindow,
		PenaltyPercent: cfg.Business.ReschedulePenaltyPct,
		PenaltyWindow:  cfg.Business.PenaltyWindow,
		IdempotencyTTL: cfg.Business.IdempotencyCacheTTL,
	}

	oracle := pricing.NewClient(cfg.Pricing.URL, cfg.Pricing.Timeout)
	gateway := payment.NewStubGateway(0)

	inventoryService := service.NewInventoryService(db, redisClient, cfg.Business.AvailabilityCacheTTL)
	bookingService := service.NewBookingService(db, redisClient, oracle, publisher, bookingCfg)
	paymentService := service.NewPaymentService(db, redisClient, gateway, publisher)
	catalogService := service.NewCatalogService(db, inventoryService)
	sweeper := service.NewExpirySweeper(db, redisClient, publisher, cfg.Business.PaymentWindow, cfg.Business.SweepBatchSize)

	ctx := context.Background()
	if err := inventoryService.SyncAvailabilityToRedis(ctx); err != nil {
		logger.Warn("Failed to sync availability to Redis", zap.Error(err))
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	expiryWorker := worker.NewExpiryWorker(sweeper, cfg.Business.SweepInterval)
	if err := expiryWorker.Start(workerCtx); err != nil {
		logger.Fatal("Failed to start expiry worker", zap.Error(err))
	}

	var availabilityWorker *worker.AvailabilityWorker
	if cfg.Kafka.Enabled {
		consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicBooking, cfg.Kafka.ConsumerGroup)
		availabilityWorker = worker.NewAvailabilityWorker(consumer, inventoryService)
		go func() {
			if err := availabilityWorker.Start(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Availability worker error", zap.Error(err))
			}
		}()
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := api.NewRouter(cfg.Server.CORSOrigin, logger)
	handler := api.NewHandler(api.Options{
		Bookings:     bookingService,
		Payments:     paymentService,
		Catalog:      catalogService,
		Availability: inventoryService,
		Verifier:     auth.NewVerifier(cfg.Auth.JWTSecret),
		Dependencies: map[string]api.Pinger{
			"postgres": db,
			"redis":    redisClient,
		},
		Logger: logger,
	})
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	expiryWorker.Stop()
	if availabilityWorker != nil {
		if err := availabilityWorker.Stop(); err != nil {
			logger.Warn("Failed to close consumer", zap.Error(err))
		}
	}

	logger.Info("Server exited")
}
