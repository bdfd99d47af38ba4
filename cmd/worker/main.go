package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"todo_api/internal/activity"
	"todo_api/internal/config"
	"todo_api/internal/db"
	"todo_api/internal/observability"
	"todo_api/internal/queue"
	"todo_api/internal/worker"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()
	if err := observability.SetupLogging(cfg.Log); err != nil {
		logrus.WithError(err).Fatal("Invalid logging configuration")
	}
	if !cfg.RabbitMQ.Enabled() {
		logrus.Fatal("RABBITMQ_URL is required for the worker")
	}
	if cfg.Worker.Count < 1 {
		logrus.Fatal("WORKER_COUNT must be at least 1")
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

	conn, err := queue.SetupRabbitMQ(&cfg.RabbitMQ)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to RabbitMQ")
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logrus.WithError(err).Error("Failed to close RabbitMQ connection")
		}
	}()

	consumerChannel, err := queue.CreateChannel(conn)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to create RabbitMQ channel")
	}
	if _, err := queue.DeclareQueue(consumerChannel, cfg.RabbitMQ.EventsQueue); err != nil {
		logrus.WithError(err).Fatal("Failed to declare RabbitMQ queue")
	}
	if err := consumerChannel.Close(); err != nil {
		logrus.WithError(err).Fatal("Failed to close RabbitMQ channel")
	}

	// Initialize Prometheus metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	metrics := observability.NewMetrics(registry)
	if err := metrics.RegisterDBStats(database, cfg.DB.Name); err != nil {
		logrus.WithError(err).Warn("Failed to register database stats collector")
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	metricsSrv := &http.Server{
		Addr:              ":" + cfg.Worker.MetricsPort,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logrus.Infof("Worker metrics server started on :%s", cfg.Worker.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Error("Metrics server stopped")
		}
	}()

	repo := activity.NewActivityRepository()

	var wg sync.WaitGroup
	for i := 1; i <= cfg.Worker.Count; i++ {
		ch, err := queue.CreateChannel(conn)
		if err != nil {
			logrus.WithError(err).Fatalf("Worker %d failed to open channel", i)
		}

		w := worker.NewWorker(i, cfg.RabbitMQ.EventsQueue, database, repo, metrics)
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			defer ch.Close()
			if err := w.Run(ctx, ch); err != nil {
				logrus.WithError(err).WithField("worker_id", id).Error("Worker exited")
				stop()
			}
		}(i)
	}

	<-ctx.Done()
	logrus.Info("Shutting down workers...")
	wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Metrics server forced to shut down")
	}
}
