package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"admarket/internal/adapter/mongodb"
	"admarket/internal/adapter/usecase"
	"admarket/internal/config"
	"admarket/internal/core/rules"
	"admarket/internal/db"
	"admarket/internal/sweep"
)

// main is the entry point of the reconciliation service. It loads
// configuration, connects MongoDB, wires the stores and usecases, then runs
// the completion sweeper alongside a small health/metrics listener. On a
// termination signal it shuts both down gracefully.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	var logger *slog.Logger
	{
		var handler slog.Handler
		opts := &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}
		if cfg.Log.SlogFormat() == "json" {
			handler = slog.NewJSONHandler(os.Stdout, opts)
		} else {
			handler = slog.NewTextHandler(os.Stdout, opts)
		}
		logger = slog.New(handler).With(slog.String("env", cfg.Env))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client, database, err := db.NewMongoDatabase(ctx, cfg.Mongo)
	if err != nil {
		logger.Error("mongodb connection error", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	campaigns := mongodb.NewCampaignRepository(database)
	orders := mongodb.NewOrderRepository(database)
	performance := mongodb.NewPerformanceRepository(database)
	proofs := mongodb.NewProofRepository(database)

	completion := usecase.NewCompletionUseCase(
		orders, campaigns, performance, proofs,
		rules.ProofScope(cfg.Sweep.ProofScope), logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	metrics := sweep.NewMetrics(registry)

	if cfg.Sweep.Enabled {
		sweeper := sweep.NewSweeper(orders, completion, cfg.Sweep.Interval, metrics, logger)
		go sweeper.Run(ctx)
		logger.Info("completion sweeper started", slog.Duration("interval", cfg.Sweep.Interval))
	}

	router := chi.NewRouter()
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Ops.Port),
		Handler: router,
	}

	go func() {
		logger.Info("ops server listening", slog.Int("port", int(cfg.Ops.Port)))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("ops server error", slog.Any("error", err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("ops server shutdown error", slog.Any("error", err))
	} else {
		logger.Info("service gracefully stopped")
	}
}
