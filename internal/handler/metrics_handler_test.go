package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/learning-analytics-api/internal/service"
)

func TestMetricsHandlerReady(t *testing.T) {
	handler := NewMetricsHandler(nil, map[string]Pinger{
		"store": PingFunc(func(context.Context) error { return nil }),
		"cache": PingFunc(func(context.Context) error { return nil }),
	}, nil)

	c, rec := newTestContext(http.MethodGet, "/ready", nil)
	handler.Ready(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestMetricsHandlerReadyReportsFailure(t *testing.T) {
	handler := NewMetricsHandler(nil, map[string]Pinger{
		"store": PingFunc(func(context.Context) error { return errors.New("no primary") }),
		"cache": nil,
	}, nil)

	c, rec := newTestContext(http.MethodGet, "/ready", nil)
	handler.Ready(c)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not_ready", body.Status)
	assert.Equal(t, "unavailable", body.Checks["store"])
	assert.NotContains(t, body.Checks, "cache")
}

func TestMetricsHandlerPrometheus(t *testing.T) {
	metrics := service.NewMetricsService()
	metrics.ObserveComputation("leaderboard", 20*time.Millisecond)
	handler := NewMetricsHandler(metrics, nil, nil)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/metrics", handler.Prometheus)
	r.GET("/health", handler.Health)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "analytics_compute_duration_seconds"))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsHandlerPrometheusUnavailable(t *testing.T) {
	handler := NewMetricsHandler(nil, nil, nil)

	c, rec := newTestContext(http.MethodGet, "/metrics", nil)
	handler.Prometheus(c)
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
