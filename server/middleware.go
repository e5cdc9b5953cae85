// Copyright 2025 The cazipcode Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"
)

const RequestIDHeader = "X-Request-Id"

// requestID propagates the caller request id, or assigns a new one.
func requestID() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		rid := ctx.GetHeader(RequestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}

		ctx.Set(RequestIDHeader, rid)
		ctx.Writer.Header().Set(RequestIDHeader, rid)
		ctx.Next()
	}
}

// rateLimit rejects requests beyond the limiter budget with 429.
func rateLimit(limiter *rate.Limiter) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !limiter.Allow() {
			ctx.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})

			return
		}

		ctx.Next()
	}
}

// Metrics holds the Prometheus metrics of the API.
type Metrics struct {
	registry *prometheus.Registry

	Requests *prometheus.CounterVec
	Latency  *prometheus.HistogramVec
	Results  prometheus.Histogram
}

// NewMetrics creates the API metrics on their own registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cazip_http_requests_total",
			Help: "Total number of API requests by route and status",
		}, []string{"route", "status"}),
		Latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cazip_http_request_duration_seconds",
			Help:    "API request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		Results: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "cazip_search_results",
			Help:    "Number of postal codes returned by searches",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
	}
}

// ObserveResults records the size of a search result.
func (m *Metrics) ObserveResults(n int) {
	m.Results.Observe(float64(n))
}

func (m *Metrics) middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}

		m.Requests.WithLabelValues(route, strconv.Itoa(ctx.Writer.Status())).Inc()
		m.Latency.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}
