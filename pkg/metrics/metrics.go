// Package metrics registers the service's Prometheus collectors
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// WalletOperationsTotal counts wallet operations by class and
	// outcome (accepted, limit_exceeded, insufficient_balance, ...).
	WalletOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "aurum",
		Name:      "wallet_operations_total",
		Help:      "Wallet operations by class and outcome",
	}, []string{"class", "outcome"})

	// HTTPRequestDuration observes API latency by route and status.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "aurum",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by method, route and status",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	// SettlementRunsTotal counts settlement worker runs by outcome.
	SettlementRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "aurum",
		Name:      "settlement_runs_total",
		Help:      "Settlement worker runs by outcome",
	}, []string{"outcome"})

	// DepositsSettledTotal counts deposits confirmed by settlement.
	DepositsSettledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "aurum",
		Name:      "deposits_settled_total",
		Help:      "Deposits confirmed by the settlement worker",
	})

	// GoldQuoteFailuresTotal counts failed quote fetches.
	GoldQuoteFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "aurum",
		Name:      "gold_quote_failures_total",
		Help:      "Failed gold quote fetches from the upstream provider",
	})

	// DatabaseConnectionsGauge tracks pool usage by state.
	DatabaseConnectionsGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "aurum",
		Name:      "database_connections",
		Help:      "Database connection pool usage by state",
	}, []string{"state"})
)

// Handler exposes the metrics endpoint
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// Middleware records request latency per route
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			route,
			strconv.Itoa(c.Writer.Status()),
		).Observe(time.Since(start).Seconds())
	}
}
