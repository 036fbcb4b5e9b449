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

	"storefront-client/config"
	"storefront-client/internal/api"
	"storefront-client/internal/apperr"
	"storefront-client/internal/broker"
	"storefront-client/internal/gateway"
	"storefront-client/internal/retry"
	"storefront-client/internal/scratch"
	"storefront-client/internal/store"
	"storefront-client/internal/util"
	"storefront-client/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Client.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting storefront client")

	tp, err := util.InitTracer("storefront-client", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	var scratchStore scratch.Store
	switch cfg.Scratch.Backend {
	case "redis":
		rs, err := scratch.NewRedisStore(cfg.Scratch.RedisAddr, cfg.Scratch.RedisPassword, cfg.Scratch.RedisDB, cfg.Scratch.RedisPrefix)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer rs.Close()
		scratchStore = rs
		log.Println("Redis scratch store connected")
	case "memory":
		scratchStore = scratch.NewMemoryStore()
	default:
		ss, err := scratch.NewSQLiteStore(cfg.Scratch.Path)
		if err != nil {
			log.Fatalf("Failed to open scratch database: %v", err)
		}
		defer ss.Close()
		scratchStore = ss
		log.Println("SQLite scratch store opened")
	}

	gw := gateway.NewClient(cfg.Client.APIBaseURL, time.Duration(cfg.Client.TimeoutSeconds)*time.Second)

	var activity *broker.ActivityPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer producer.Close()
		activity = broker.NewActivityPublisher(producer)
		log.Println("Kafka producer initialized")
	}

	app := store.NewApp(store.Options{
		Gateway: gw,
		Scratch: scratchStore,
		Retry: retry.Policy{
			MaxAttempts: cfg.Retry.MaxAttempts,
			Delay:       time.Duration(cfg.Retry.DelayMillis) * time.Millisecond,
			Retryable:   apperr.IsTransient,
		},
		Activity: activity,
	})

	ctx := context.Background()
	app.Start(ctx)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	cartWorker := worker.NewCartSyncWorker(app.Cart, 30*time.Second)
	go func() {
		if err := cartWorker.Start(workerCtx); err != nil && err != context.Canceled {
			log.Printf("Cart sync worker error: %v", err)
		}
	}()

	if cfg.Client.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(app)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Client.AdminPort),
		Handler: router,
	}

	go func() {
		log.Printf("Starting admin server on port %s", cfg.Client.AdminPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()

	if err := app.Close(shutdownCtx); err != nil {
		log.Printf("Cart flush on shutdown failed: %v", err)
	}

	log.Println("Client exited")
}
