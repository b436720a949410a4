package main

// @title           PairPlan API
// @version         1.0
// @description     REST and realtime backend for a two person coordination app
// @host            localhost:8080
// @BasePath        /api/v1
// @schemes         http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pairplan-service/internal/api/routes"
	"pairplan-service/internal/config"
	"pairplan-service/internal/database"
	"pairplan-service/internal/kafka"
	"pairplan-service/internal/realtime"
	"pairplan-service/internal/repositories/postgres"
	"pairplan-service/internal/services"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	slog.Info("Starting pairplan server")

	db, err := database.NewPostgresConnection(cfg.Database.URI)
	if err != nil {
		slog.Error("Failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}

	redisClient, err := database.NewRedisConnection(&cfg.Redis)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	minioClient, err := database.NewMinIOClient(cfg.MinIO.Endpoint, cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, cfg.MinIO.Bucket)
	if err != nil {
		slog.Error("Failed to connect to MinIO", "error", err)
		os.Exit(1)
	}

	producer, err := kafka.InitKafkaProducer(cfg.Kafka.Brokers)
	if err != nil {
		// Push notifications are best effort, realtime delivery still works
		slog.Warn("Kafka producer unavailable, push notifications disabled", "error", err)
		producer = nil
	}

	manager := realtime.NewManager(cfg.Realtime)
	dispatcher := realtime.NewDispatcher(manager, producer, cfg.Kafka.PushTopic)

	reminders := services.NewReminderService(
		postgres.NewEventRepository(db),
		services.NewRedisService(redisClient),
		dispatcher,
	)
	reminders.Start()

	router := routes.NewRouter(cfg, db, redisClient, minioClient, manager, dispatcher)
	router.SetupRoutes()

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.GetEngine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		slog.Info("Server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	reminders.Stop()

	// Close websockets first so clients see the going away frame before
	// the HTTP listener stops accepting
	manager.Shutdown()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	if producer != nil {
		if err := producer.Close(); err != nil {
			slog.Error("Failed to close Kafka producer", "error", err)
		}
	}

	slog.Info("Server stopped")
}
