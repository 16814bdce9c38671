// Command engine runs the matching core behind the TCP line protocol:
// accept loop, periodic matcher, trade broadcast.
package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ARtorias742/DCTP/internal/config"
	"github.com/ARtorias742/DCTP/internal/matching"
	"github.com/ARtorias742/DCTP/internal/models"
	"github.com/ARtorias742/DCTP/pkg/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	publisher := telemetry.NewPublisher(cfg.RedisAddr)
	defer publisher.Close()

	book := models.NewOrderBook()
	engine := matching.NewEngine(book, cfg.MatchInterval, publisher, log)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("shutdown signal received")
		engine.Shutdown()
	}()

	log.Info("matching engine starting", "addr", cfg.ListenAddr)
	if err := engine.ListenAndServe(cfg.ListenAddr); err != nil {
		log.Error("engine exited", "err", err)
		os.Exit(1)
	}
	log.Info("matching engine stopped")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
