// Package api is the admin/ops HTTP plane: health, readiness, the textual
// book status, and Prometheus metrics. It never accepts orders and never
// serves market-data snapshots beyond the one status line — both would
// duplicate or exceed what the TCP trading interface is specified to do.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"sync/atomic"

	"github.com/ARtorias742/DCTP/internal/config"
	"github.com/ARtorias742/DCTP/pkg/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var statusPattern = regexp.MustCompile(`^Orders: (\d+), Bid levels: (\d+), Ask levels: (\d+)$`)

// Handler serves the admin plane. It never talks to the order book
// directly; it learns the book's state by subscribing to the telemetry
// channels the engine process publishes to, keeping the two processes
// independently deployable.
type Handler struct {
	cfg        *config.Config
	subscriber *telemetry.Subscriber
	log        *slog.Logger

	tradesObserved prometheus.Counter
	orders         prometheus.Gauge
	bidLevels      prometheus.Gauge
	askLevels      prometheus.Gauge

	ready      atomic.Bool
	lastStatus atomic.Value // string
}

// NewHandler wires a gin engine exposing the admin surface and starts the
// background goroutine that consumes telemetry from Redis.
func NewHandler(cfg *config.Config, log *slog.Logger) *gin.Engine {
	h := &Handler{
		cfg:        cfg,
		subscriber: telemetry.NewSubscriber(cfg.RedisAddr),
		log:        log,
		tradesObserved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dctp_trades_observed_total",
			Help: "Trades observed via telemetry since process start.",
		}),
		orders: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "dctp_orders",
			Help: "Live order count, as of the last observed status line.",
		}),
		bidLevels: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "dctp_bid_levels",
			Help: "Live bid price level count, as of the last observed status line.",
		}),
		askLevels: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "dctp_ask_levels",
			Help: "Live ask price level count, as of the last observed status line.",
		}),
	}
	h.lastStatus.Store("")

	go h.consumeTelemetry(context.Background())

	r := gin.Default()
	r.GET("/healthz", h.healthz)
	r.GET("/readyz", h.readyz)
	r.GET("/status", h.status)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

func (h *Handler) consumeTelemetry(ctx context.Context) {
	trades := h.subscriber.Trades(ctx)
	statuses := h.subscriber.Status(ctx)
	for {
		select {
		case _, ok := <-trades:
			if !ok {
				return
			}
			h.tradesObserved.Inc()
		case line, ok := <-statuses:
			if !ok {
				return
			}
			h.lastStatus.Store(line)
			h.ready.Store(true)
			h.recordStatus(line)
		}
	}
}

func (h *Handler) recordStatus(line string) {
	m := statusPattern.FindStringSubmatch(line)
	if m == nil {
		return
	}
	orders, _ := strconv.ParseFloat(m[1], 64)
	bidLevels, _ := strconv.ParseFloat(m[2], 64)
	askLevels, _ := strconv.ParseFloat(m[3], 64)
	h.orders.Set(orders)
	h.bidLevels.Set(bidLevels)
	h.askLevels.Set(askLevels)
}

func (h *Handler) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) readyz(c *gin.Context) {
	if !h.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "waiting for telemetry"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (h *Handler) status(c *gin.Context) {
	line, _ := h.lastStatus.Load().(string)
	if line == "" {
		c.String(http.StatusServiceUnavailable, "no status observed yet")
		return
	}
	c.String(http.StatusOK, fmt.Sprintf("STATUS %s", line))
}
