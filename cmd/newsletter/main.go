package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/deusflow/newsletter/internal/app"
	"github.com/deusflow/newsletter/internal/config"
	"github.com/deusflow/newsletter/internal/logger"
	"github.com/deusflow/newsletter/internal/metrics"
)

// Usage: newsletter [all|init|scrape|select|redact|design|publish]
func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Check if we should start HTTP server for monitoring
	if cfg.EnableMonitoring {
		go startMonitoringServer(cfg.MonitoringPort)
	}

	command := "all"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := app.New(cfg)
	if err := a.Run(ctx, command); err != nil {
		logger.Error("newsletter run failed", "run_id", a.RunID(), "error", err)
		stop()
		os.Exit(1)
	}
}

func startMonitoringServer(port string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/metrics", metricsHandler)

	logger.Info("starting monitoring server", "port", port)
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		logger.Error("monitoring server error", "error", err)
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	stats := metrics.Global.GetStats()

	status := "ok"
	code := http.StatusOK
	if !metrics.Global.Healthy() {
		status = "error"
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":     status,
		"run_id":     stats["run_id"],
		"last_run":   stats["last_run_time"],
		"last_error": stats["last_error"],
	})
}

func metricsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(metrics.Global.GetStats())
}
