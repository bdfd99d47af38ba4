package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"todo_api/internal/config"
	"todo_api/internal/db"
	"todo_api/internal/handler"
	"todo_api/internal/observability"
	"todo_api/internal/queue"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()
	if err := observability.SetupLogging(cfg.Log); err != nil {
		logrus.WithError(err).Fatal("Invalid logging configuration")
	}
	if err := cfg.Validate(); err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.Init(&cfg.DB)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}
	defer func() {
		if err := database.Close(); err != nil {
			logrus.WithError(err).Error("Failed to close database connection")
		}
	}()

	if err := db.Migrate(ctx, database); err != nil {
		logrus.WithError(err).Fatal("Failed to migrate database")
	}

	// Initialize Prometheus metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(registry)
	if err := metrics.RegisterDBStats(database, cfg.DB.Name); err != nil {
		logrus.WithError(err).Warn("Failed to register database stats collector")
	}

	rdb, err := db.SetupRedis(ctx, &cfg.Redis)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to Redis")
	}
	if rdb == nil {
		logrus.Warn("REDIS_HOST not set, rate limiting disabled")
	} else {
		defer func() {
			if err := rdb.Close(); err != nil {
				logrus.WithError(err).Error("Failed to close redis connection")
			}
		}()
	}

	var publisher queue.Publisher = queue.NopPublisher{}
	if cfg.RabbitMQ.Enabled() {
		conn, err := queue.SetupRabbitMQ(&cfg.RabbitMQ)
		if err != nil {
			logrus.WithError(err).Fatal("Failed to connect to RabbitMQ")
		}
		defer func() {
			if err := conn.Close(); err != nil {
				logrus.WithError(err).Error("Failed to close RabbitMQ connection")
			}
		}()

		rp, err := queue.NewRabbitPublisher(conn, cfg.RabbitMQ.EventsQueue, metrics)
		if err != nil {
			logrus.WithError(err).Fatal("Failed to create task event publisher")
		}
		defer rp.Close()
		publisher = rp
	} else {
		logrus.Warn("RABBITMQ_URL not set, task events disabled")
	}

	r := handler.SetupHandler(handler.Deps{
		DB:        database,
		Redis:     rdb,
		Publisher: publisher,
		Metrics:   metrics,
		Gatherer:  registry,
		Config:    cfg,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logrus.Infof("Starting %s on :%s", cfg.AppName, cfg.AppPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Error("Server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	logrus.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Server forced to shut down")
		os.Exit(1)
	}
	logrus.Info("Server exited")
}
