// Package metrics exposes prometheus counters for the HTTP surface and gateway calls.
package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cppla/discourse/gateway"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "discourse_http_requests_total",
		Help: "The total number of handled HTTP requests",
	}, []string{"method", "route", "status"})

	httpLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "discourse_http_request_duration_seconds",
			Help:    "Histogram of HTTP request latency in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "route"},
	)

	gatewayCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "discourse_gateway_calls_total",
		Help: "The total number of remote gateway calls",
	}, []string{"operation", "outcome"})

	gatewayLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "discourse_gateway_call_duration_seconds",
			Help:    "Histogram of remote gateway latency in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"operation"},
	)
)

// Handler serves the default registry.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

// Middleware counts requests by matched route. Unmatched paths share one label.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpLatency.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// outcome buckets an error for the outcome label.
func outcome(err error) string {
	var gwErr *gateway.Error
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, gateway.ErrNotFound):
		return "not_found"
	case errors.Is(err, gateway.ErrInvalidSession):
		return "unauthorized"
	case errors.As(err, &gwErr) && gwErr.Status < 500:
		return "rejected"
	default:
		return "error"
	}
}

func observe(op string, start time.Time, err error) {
	gatewayCalls.WithLabelValues(op, outcome(err)).Inc()
	gatewayLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
