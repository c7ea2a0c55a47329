package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/deusflow/newsky/internal/logger"
	"github.com/deusflow/newsky/internal/metrics"
)

func startMonitoringServer(port string) *http.Server {
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: monitoringHandler(metrics.Global),
	}

	go func() {
		logger.Info("starting monitoring server", "port", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("monitoring server error", "error", err)
		}
	}()
	return srv
}

func monitoringHandler(m *metrics.Metrics) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler(m))
	mux.HandleFunc("/metrics", metricsHandler(m))
	return mux
}

func healthHandler(m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats := m.GetStats()

		status := "ok"
		code := http.StatusOK
		if !stats["is_healthy"].(bool) {
			status = "error"
			code = http.StatusServiceUnavailable
		}

		response := map[string]interface{}{
			"status":     status,
			"last_run":   stats["last_run_time"],
			"last_error": stats["last_error"],
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(response)
	}
}

func metricsHandler(m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(m.GetStats())
	}
}
