// Copyright 2025 The cazipcode Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"iter"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jcodagnone/cazipcode/dataset"
	"github.com/jcodagnone/cazipcode/postalcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupServerTest(t *testing.T, src postalcode.Source) *gin.Engine {
	return setupServerTestWithOptions(t, src, Options{})
}

func setupServerTestWithOptions(t *testing.T, src postalcode.Source, opts Options) *gin.Engine {
	gin.SetMode(gin.TestMode)

	if src == nil {
		codes, err := dataset.Sample()
		require.NoError(t, err)

		m, err := dataset.NewMemory(codes)
		require.NoError(t, err)

		src = m
	}

	engine, err := postalcode.NewEngine(context.Background(), src, postalcode.Options{})
	require.NoError(t, err)

	return NewServer(engine, opts).Router()
}

func do(t *testing.T, router *gin.Engine, method, url, body string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w
}

func decodeSearch(t *testing.T, w *httptest.ResponseRecorder) SearchResponse {
	var resp SearchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	return resp
}

func TestSearchAPI(t *testing.T) {
	router := setupServerTest(t, nil)

	w := do(t, router, http.MethodGet, "/api/search?lat=45.477873&lng=-75.7211&radius=100", "")
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeSearch(t, w)
	assert.Equal(t, 5, resp.Count)
	assert.Equal(t, "K1P 4W0", resp.Results[0].Code)

	w = do(t, router, http.MethodGet, "/api/search?province=on&sort_by=population&ascending=false&returns=3", "")
	require.Equal(t, http.StatusOK, w.Code)

	resp = decodeSearch(t, w)
	require.Len(t, resp.Results, 3)

	for _, p := range resp.Results {
		assert.Equal(t, "ON", p.Province)
	}

	assert.GreaterOrEqual(t, *resp.Results[0].Population, *resp.Results[1].Population)
}

func TestSearchJSONAPI(t *testing.T) {
	router := setupServerTest(t, nil)

	w := do(t, router, http.MethodPost, "/api/search", `{"prefix": "K1A", "returns": 10}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 8, decodeSearch(t, w).Count)

	w = do(t, router, http.MethodPost, "/api/search", `{"prefix": 123}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, http.MethodPost, "/api/search", `{"prefix": `)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// an empty body is an empty query
	w = do(t, router, http.MethodPost, "/api/search", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, decodeSearch(t, w).Count)
}

func TestSearchAPIErrors(t *testing.T) {
	router := setupServerTest(t, nil)

	tests := []struct {
		name string
		url  string
		want int
	}{
		{"partial geo", "/api/search?lat=45.4", http.StatusBadRequest},
		{"long prefix", "/api/search?prefix=K1A0B1XX", http.StatusBadRequest},
		{"unknown key", "/api/search?zip=K1A", http.StatusBadRequest},
		{"bad number", "/api/search?radius=far", http.StatusBadRequest},
		{"bad sort", "/api/search?sort_by=colour", http.StatusBadRequest},
		{"zero radius", "/api/search?lat=45.4&lng=-75.7&radius=0", http.StatusOK},
		{"huge returns", "/api/search?lat=45.4&lng=-75.7&radius=100&sort_by=postalcode&returns=1000000000000", http.StatusBadRequest},
		{"returns at cap", "/api/search?lat=45.4&lng=-75.7&radius=100&sort_by=postalcode&returns=10000", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, http.MethodGet, tt.url, "")
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestSearchJSONReturnsCap(t *testing.T) {
	router := setupServerTest(t, nil)

	w := do(t, router, http.MethodPost, "/api/search", `{"lat":45.4,"lng":-75.7,"radius":100,"sort_by":"postalcode","returns":1000000000000}`)
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
}

func TestPostalCodeAPI(t *testing.T) {
	router := setupServerTest(t, nil)

	w := do(t, router, http.MethodGet, "/api/postalcodes/k1a0b1", "")
	require.Equal(t, http.StatusOK, w.Code)

	var p postalcode.PostalCode
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	assert.Equal(t, "K1A 0B1", p.Code)
	assert.True(t, strings.Contains(w.Body.String(), `"postalcode":"K1A 0B1"`))

	w = do(t, router, http.MethodGet, "/api/postalcodes/Z9Z9Z9", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRandomAPI(t *testing.T) {
	router := setupServerTest(t, nil)

	w := do(t, router, http.MethodGet, "/api/random?returns=7", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 7, decodeSearch(t, w).Count)

	w = do(t, router, http.MethodGet, "/api/random", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, postalcode.DefaultReturns, decodeSearch(t, w).Count)

	w = do(t, router, http.MethodGet, "/api/random?returns=many", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, http.MethodGet, "/api/random?returns=-1", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRequestID(t *testing.T) {
	router := setupServerTest(t, nil)

	w := do(t, router, http.MethodGet, "/api/health", "")
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	req, err := http.NewRequest(http.MethodGet, "/api/health", nil)
	require.NoError(t, err)
	req.Header.Set(RequestIDHeader, "abc-123")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestMetrics(t *testing.T) {
	router := setupServerTest(t, nil)

	require.Equal(t, http.StatusOK, do(t, router, http.MethodGet, "/api/search?prefix=K1A", "").Code)
	require.Equal(t, http.StatusBadRequest, do(t, router, http.MethodGet, "/api/search?lat=1", "").Code)

	w := do(t, router, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, `cazip_http_requests_total{route="/api/search",status="200"} 1`)
	assert.Contains(t, body, `cazip_http_requests_total{route="/api/search",status="400"} 1`)
	assert.Contains(t, body, "cazip_search_results_count 1")
}

func TestRateLimit(t *testing.T) {
	router := setupServerTestWithOptions(t, nil, Options{RateLimit: 0.001, Burst: 2})

	assert.Equal(t, http.StatusOK, do(t, router, http.MethodGet, "/api/search?prefix=K1A", "").Code)
	assert.Equal(t, http.StatusOK, do(t, router, http.MethodGet, "/api/search?prefix=K1A", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(t, router, http.MethodGet, "/api/search?prefix=K1A", "").Code)

	// health checks are not limited
	assert.Equal(t, http.StatusOK, do(t, router, http.MethodGet, "/api/health", "").Code)
}

func TestCORS(t *testing.T) {
	router := setupServerTestWithOptions(t, nil, Options{AllowedOrigins: []string{"https://maps.example.org"}})

	req, err := http.NewRequest(http.MethodGet, "/api/search?prefix=K1A", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://maps.example.org")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://maps.example.org", w.Header().Get("Access-Control-Allow-Origin"))

	req, err = http.NewRequest(http.MethodGet, "/api/search?prefix=K1A", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://elsewhere.example.org")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestResolveAPI(t *testing.T) {
	router := setupServerTest(t, nil)

	w := do(t, router, http.MethodGet, "/api/resolve/city?name=ottwa", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"canonical":"Ottawa"`)

	w = do(t, router, http.MethodGet, "/api/resolve/city?name=xyz", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, router, http.MethodGet, "/api/resolve/timezone?name=5", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthAPI(t *testing.T) {
	router := setupServerTest(t, nil)

	w := do(t, router, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"provinces":10`)
}

type brokenSource struct{}

func (brokenSource) Open(context.Context) (postalcode.Handle, error) { return brokenHandle{}, nil }

func (brokenSource) Distinct(context.Context, postalcode.Field) ([]string, error) {
	return []string{"ON"}, nil
}

type brokenHandle struct{}

func (brokenHandle) Select(context.Context, postalcode.Selection) iter.Seq2[postalcode.PostalCode, error] {
	return func(yield func(postalcode.PostalCode, error) bool) {
		yield(postalcode.PostalCode{}, postalcode.NewDataSourceError("failed to query", errors.New("gone")))
	}
}

func (brokenHandle) Close() error { return nil }

func TestDataSourceErrorAPI(t *testing.T) {
	router := setupServerTest(t, brokenSource{})

	w := do(t, router, http.MethodGet, "/api/search?prefix=K1A", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)

	w = do(t, router, http.MethodGet, "/api/postalcodes/K1A0B1", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
}
