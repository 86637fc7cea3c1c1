package web

import (
	"strconv"
	"time"

	"github.com/kataras/iris/v12"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "social_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "social_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// Metrics records every routed request, labelled by route template so that
// path parameters do not explode cardinality.
func Metrics(ctx iris.Context) {
	start := time.Now()
	ctx.Next()

	route := "unmatched"
	if cr := ctx.GetCurrentRoute(); cr != nil {
		route = cr.Path()
	}
	HTTPRequestsTotal.WithLabelValues(ctx.Method(), route, strconv.Itoa(ctx.GetStatusCode())).Inc()
	HTTPRequestDuration.WithLabelValues(ctx.Method(), route).Observe(time.Since(start).Seconds())
}
