// Package main runs an in-memory storefront backend for local development.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/niloyhakimai/medistore-client/internal/mockapi"
	"github.com/niloyhakimai/medistore-client/pkg/config"
	"github.com/niloyhakimai/medistore-client/pkg/kafka"
	"github.com/niloyhakimai/medistore-client/pkg/logger"
	"github.com/niloyhakimai/medistore-client/pkg/middleware"
	pkgredis "github.com/niloyhakimai/medistore-client/pkg/redis"
	"github.com/niloyhakimai/medistore-client/pkg/telemetry"
	"github.com/spf13/cobra"
)

const serviceName = "medistore-mock-api"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		envFile      string
		port         int
		publishKafka bool
		useRedis     bool
	)

	cmd := &cobra.Command{
		Use:   "mock-api",
		Short: "In-memory MediStore backend",
		Long: `mock-api serves the MediStore REST API from memory with seeded
demo accounts (admin, seller and customer, password "` + mockapi.DemoPassword + `").

With --kafka, order status changes are published to the configured topic.
With --redis, order idempotency records are kept in Redis.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(envFile, port, publishKafka, useRedis)
		},
	}

	cmd.Flags().StringVar(&envFile, "env", "", "Path to an env file (defaults to ./.env)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Listen port (overrides MOCK_API_PORT)")
	cmd.Flags().BoolVar(&publishKafka, "kafka", false, "Publish order status events to Kafka")
	cmd.Flags().BoolVar(&useRedis, "redis", false, "Store idempotency records in Redis")

	return cmd
}

func run(envFile string, port int, publishKafka, useRedis bool) error {
	// Load configuration
	var cfg *config.Config
	var err error
	if envFile != "" {
		cfg, err = config.LoadWithPath(envFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logCfg := &logger.Config{
		Level:       logLevel(cfg),
		ServiceName: serviceName,
		Development: cfg.IsDevelopment(),
	}
	if err := logger.Init(logCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting mock API...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize OpenTelemetry
	telemetryCfg := &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    serviceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		SampleRatio:    cfg.OTel.SampleRatio,
	}
	if _, err := telemetry.Init(ctx, telemetryCfg); err != nil {
		appLog.Warn(fmt.Sprintf("Failed to initialize telemetry: %v", err))
	}
	defer telemetry.Shutdown(context.Background())

	// Seed data
	data := mockapi.NewData(0)
	if err := mockapi.Seed(data); err != nil {
		return err
	}

	// Optional Kafka publisher
	var publisher mockapi.Publisher
	if publishKafka {
		producer, err := kafka.NewProducer(ctx, &kafka.ProducerConfig{
			Brokers:       cfg.Kafka.Brokers,
			ClientID:      serviceName,
			MaxRetries:    3,
			RetryInterval: time.Second,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to kafka: %w", err)
		}
		defer producer.Close()
		publisher = producer
		appLog.Info(fmt.Sprintf("Publishing order events to %s", cfg.Kafka.OrderStatusTopic))
	}

	// Optional shared idempotency store
	var records middleware.RecordStore
	if useRedis {
		rc := cfg.Redis
		client, err := pkgredis.NewClient(ctx, &pkgredis.Config{
			Host:          rc.Host,
			Port:          rc.Port,
			Password:      rc.Password,
			DB:            rc.DB,
			PoolSize:      rc.PoolSize,
			DialTimeout:   rc.DialTimeout,
			ReadTimeout:   rc.ReadTimeout,
			WriteTimeout:  rc.WriteTimeout,
			MaxRetries:    3,
			RetryInterval: time.Second,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer client.Close()
		records = middleware.NewRedisRecordStore(client)
		appLog.Info(fmt.Sprintf("Idempotency records stored in redis at %s", rc.Addr()))
	}

	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	server := mockapi.New(data, publisher, &mockapi.Config{
		JWTSecret:   cfg.MockAPI.JWTSecret,
		TokenExpiry: 24 * time.Hour,
		StatusTopic: cfg.Kafka.OrderStatusTopic,
		Tracing:     cfg.OTel.Enabled,
		ServiceName: serviceName,
		Idempotency: records,
	})

	if port == 0 {
		port = cfg.MockAPI.Port
	}
	addr := fmt.Sprintf("%s:%d", cfg.MockAPI.Host, port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           server.Router(),
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info(fmt.Sprintf("Mock API listening on %s", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}
	appLog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	appLog.Info("Server exited gracefully")
	return nil
}

func logLevel(cfg *config.Config) string {
	if cfg.App.Debug {
		return "debug"
	}
	return "info"
}
