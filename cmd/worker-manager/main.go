// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"catalog-workers/internal/app"
	"catalog-workers/internal/common/camunda"
	"catalog-workers/internal/common/config"
	"catalog-workers/internal/common/database"
	"catalog-workers/internal/common/logger"
	"catalog-workers/internal/common/observability"

	asm "catalog-workers/internal/workers/catalog/assemble-spreadsheet"
	cos "catalog-workers/internal/workers/catalog/choose-options"
	ext "catalog-workers/internal/workers/catalog/extract-schema"
	gmc "catalog-workers/internal/workers/catalog/generate-main-content"
	gsp "catalog-workers/internal/workers/catalog/generate-spreadsheet"
	prc "catalog-workers/internal/workers/catalog/process-chunk"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.NewWithOutput(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New("worker-manager")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Zeebe Client with retry ---
	var zeebe *camunda.Client
	err = database.Retry(ctx, database.Options{Attempts: 10, Backoff: 2 * time.Second}, log, "Zeebe client initialization", func() error {
		var err error
		zeebe, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			ConnectionTimeout:      10 * time.Second,
			RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
		})
		return err
	})
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- Init Redis, PostgreSQL and Elasticsearch as the config requires ---
	conns, err := database.Open(ctx, cfg, database.Options{Attempts: 15, Backoff: 2 * time.Second}, log)
	if err != nil {
		zapLog.Fatal("backing stores failed after retries", zap.Error(err))
	}
	defer conns.Close()

	clients := app.ClientsFrom(conns)

	catalog, err := app.Build(ctx, cfg, clients, obs, log)
	if err != nil {
		zapLog.Fatal("pipeline assembly failed", zap.Error(err))
	}
	if clients.Redis == nil {
		zapLog.Warn("No Redis configured: job status and templates are only visible to this process")
	}

	// --- Register catalog workers ---
	zbc := zeebe.GetClient()
	var workers []*camunda.CamundaWorker

	workerTimeout := func(taskType string) time.Duration {
		return config.GetDuration(config.GetWorkerConfig(cfg, taskType).Timeout)
	}
	register := func(taskType string, handler camunda.JobHandler) {
		if w := camunda.StartWorker(zbc, taskType, config.GetWorkerConfig(cfg, taskType), handler, log); w != nil {
			workers = append(workers, w)
		}
	}

	extract := ext.NewHandler(&ext.Config{Timeout: workerTimeout(ext.TaskType)}, catalog.Executor, log)
	register(ext.TaskType, extract.Handle)

	mainContent := gmc.NewHandler(&gmc.Config{Timeout: workerTimeout(gmc.TaskType)}, catalog.Generator, log)
	register(gmc.TaskType, mainContent.Handle)

	options := cos.NewHandler(&cos.Config{Timeout: workerTimeout(cos.TaskType)}, catalog.Generator, log)
	register(cos.TaskType, options.Handle)

	chunk := prc.NewHandler(&prc.Config{Timeout: workerTimeout(prc.TaskType)}, catalog.Generator, log)
	register(prc.TaskType, chunk.Handle)

	assemble := asm.NewHandler(&asm.Config{Timeout: workerTimeout(asm.TaskType)}, catalog.Executor, log)
	register(asm.TaskType, assemble.Handle)

	whole := gsp.NewHandler(&gsp.Config{Timeout: workerTimeout(gsp.TaskType)}, catalog.Executor, log)
	register(gsp.TaskType, whole.Handle)

	zapLog.Info("Catalog workers registered", zap.Int("count", len(workers)))

	// --- Health & Metrics Server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			status, code := "ready", http.StatusOK
			if err := zeebe.HealthCheck(r.Context()); err != nil {
				status, code = "zeebe unavailable", http.StatusServiceUnavailable
			} else if err := conns.Ping(r.Context()); err != nil {
				status, code = "store unavailable", http.StatusServiceUnavailable
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(code)
			json.NewEncoder(w).Encode(map[string]string{
				"status": status,
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.App.HTTPAddress))
		if err := http.ListenAndServe(cfg.App.HTTPAddress, nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	for _, w := range workers {
		w.Stop()
	}

	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}
