// Copyright 2025 The cazipcode Authors
// SPDX-License-Identifier: Apache-2.0

// Package server exposes the postal code search engine as a JSON HTTP API.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jcodagnone/cazipcode/postalcode"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// MaxReturns caps the number of postal codes a single request returns.
const MaxReturns = 10000

// Options configure the HTTP server. The zero value serves every origin
// without rate limits.
type Options struct {
	// AllowedOrigins lists the CORS origins; empty or "*" allows all.
	AllowedOrigins []string
	// RateLimit is the number of requests per second served; zero disables
	// the limit.
	RateLimit float64
	// Burst is the rate limiter bucket size; zero selects RateLimit rounded up.
	Burst int
}

type Server struct {
	engine  *postalcode.Engine
	opts    Options
	metrics *Metrics
}

func NewServer(engine *postalcode.Engine, opts Options) *Server {
	return &Server{engine: engine, opts: opts, metrics: NewMetrics()}
}

func (s *Server) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", RequestIDHeader},
		MaxAge:       12 * time.Hour,
	}

	if len(s.opts.AllowedOrigins) == 0 || (len(s.opts.AllowedOrigins) == 1 && s.opts.AllowedOrigins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = s.opts.AllowedOrigins
	}

	return cfg
}

// Router returns the API routes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(requestID())
	r.Use(s.metrics.middleware())
	r.Use(cors.New(s.corsConfig()))

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{})))
	r.GET("/api/health", s.health)

	api := r.Group("/api")
	if s.opts.RateLimit > 0 {
		burst := s.opts.Burst
		if burst <= 0 {
			burst = int(math.Ceil(s.opts.RateLimit))
		}

		api.Use(rateLimit(rate.NewLimiter(rate.Limit(s.opts.RateLimit), burst)))
	}

	api.GET("/search", s.search)
	api.POST("/search", s.searchJSON)
	api.GET("/postalcodes/:code", s.getPostalCode)
	api.GET("/random", s.random)
	api.GET("/resolve/:field", s.resolve)

	return r
}

// Run serves the API on addr until the listener fails.
func (s *Server) Run(addr string) error {
	log.Printf("Serving postal code API on http://%s/api", addr)

	return s.Router().Run(addr)
}

// SearchResponse is the body of a successful search.
type SearchResponse struct {
	Count   int                     `json:"count"`
	Results []postalcode.PostalCode `json:"results"`
}

// statusOf maps search errors to HTTP status codes.
func statusOf(err error) int {
	switch {
	case postalcode.IsInvalidQuery(err), postalcode.IsInvalidArgument(err):
		return http.StatusBadRequest
	case postalcode.IsNoMatch(err):
		return http.StatusNotFound
	case postalcode.IsDataSourceError(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func abort(ctx *gin.Context, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		log.Printf("%s %s: %v", ctx.Request.Method, ctx.Request.URL.Path, err)
	}

	ctx.JSON(status, gin.H{"error": err.Error()})
}

// withSession runs fn on a session that lives for the request.
func (s *Server) withSession(ctx *gin.Context, fn func(*postalcode.Session) error) {
	session, err := s.engine.Open(ctx.Request.Context())
	if err != nil {
		abort(ctx, err)

		return
	}
	defer session.Close()

	if err := fn(session); err != nil {
		abort(ctx, err)
	}
}

func (s *Server) health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"provinces":  s.engine.Vocabulary(postalcode.FieldProvince).Len(),
		"cities":     s.engine.Vocabulary(postalcode.FieldCity).Len(),
		"area_names": s.engine.Vocabulary(postalcode.FieldAreaName).Len(),
	})
}

func (s *Server) find(ctx *gin.Context, c postalcode.Criteria) {
	if c.Returns != nil && *c.Returns > MaxReturns {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("returns must be at most %d", MaxReturns)})

		return
	}

	s.withSession(ctx, func(session *postalcode.Session) error {
		codes, err := session.Find(ctx.Request.Context(), c)
		if err != nil {
			return err
		}

		s.metrics.ObserveResults(len(codes))
		ctx.JSON(http.StatusOK, SearchResponse{Count: len(codes), Results: codes})

		return nil
	})
}

func (s *Server) search(ctx *gin.Context) {
	c, err := postalcode.ParseCriteriaValues(ctx.Request.URL.Query())
	if err != nil {
		abort(ctx, err)

		return
	}

	s.find(ctx, c)
}

func (s *Server) searchJSON(ctx *gin.Context) {
	var args map[string]any

	decoder := json.NewDecoder(ctx.Request.Body)
	decoder.UseNumber()

	if err := decoder.Decode(&args); err != nil && !errors.Is(err, io.EOF) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body: " + err.Error()})

		return
	}

	c, err := postalcode.ParseCriteria(args)
	if err != nil {
		abort(ctx, err)

		return
	}

	s.find(ctx, c)
}

func (s *Server) getPostalCode(ctx *gin.Context) {
	s.withSession(ctx, func(session *postalcode.Session) error {
		p, found, err := session.ByPostalCode(ctx.Request.Context(), ctx.Param("code"))
		if err != nil {
			return err
		}

		if !found {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "postal code not found"})

			return nil
		}

		ctx.JSON(http.StatusOK, p)

		return nil
	})
}

type randomQuery struct {
	Returns *int `form:"returns" binding:"omitempty,min=0,max=10000"`
}

func (s *Server) random(ctx *gin.Context) {
	var q randomQuery
	if err := ctx.ShouldBindQuery(&q); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid returns parameter: " + err.Error()})

		return
	}

	n := postalcode.DefaultReturns
	if q.Returns != nil {
		n = *q.Returns
	}

	s.withSession(ctx, func(session *postalcode.Session) error {
		codes, err := session.Random(ctx.Request.Context(), n)
		if err != nil {
			return err
		}

		ctx.JSON(http.StatusOK, SearchResponse{Count: len(codes), Results: codes})

		return nil
	})
}

func (s *Server) resolve(ctx *gin.Context) {
	f, err := postalcode.ParseField(ctx.Param("field"))
	if err != nil {
		abort(ctx, err)

		return
	}

	canonical, err := s.engine.Resolve(f, ctx.Query("name"))
	if err != nil {
		abort(ctx, err)

		return
	}

	ctx.JSON(http.StatusOK, gin.H{"field": f.String(), "name": ctx.Query("name"), "canonical": canonical})
}
