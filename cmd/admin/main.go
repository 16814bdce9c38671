// Command admin serves the ops/admin HTTP plane: health, readiness,
// textual book status, and Prometheus metrics. It holds no reference to
// the live order book; it learns the book's state from the engine
// process's telemetry channel.
package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/ARtorias742/DCTP/internal/api"
	"github.com/ARtorias742/DCTP/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, nil))

	handler := api.NewHandler(cfg, log)
	server := &http.Server{
		Addr:    cfg.AdminAddr,
		Handler: handler,
	}

	log.Info("admin server starting", "addr", cfg.AdminAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("admin server failed", "err", err)
		os.Exit(1)
	}
}
