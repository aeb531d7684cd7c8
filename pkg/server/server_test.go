package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Obel-arg/catch-influencer-sub003/pkg/monitoring"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestSetupServiceRouter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hc := monitoring.NewHealthChecker("planner", "v1")
	hc.AddCheck("config", monitoring.ConfigurationHealthCheck(map[string]string{"PORT": "18040"}))
	mc := monitoring.NewMetricsCollector("planner_router_test", "v1", "abc")

	r := SetupServiceRouter(quietLogger(), DefaultConfig("planner", "18040"), hc, mc)
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	for _, path := range []string{"/ping", "/health", "/metrics"} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, path, nil)
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, w.Code)
		}
		if w.Header().Get("X-Request-ID") == "" {
			t.Fatalf("%s: expected request id header", path)
		}
	}

	w := httptest.NewRecorder()
	req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, "/metrics", nil)
	r.ServeHTTP(w, req)
	if !strings.Contains(w.Body.String(), `planner_router_test_http_requests_total{endpoint="/ping"`) {
		t.Fatalf("expected request metrics for /ping")
	}
}

func TestDefaultConfigReadsEnv(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com,https://b.example.com")
	cfg := DefaultConfig("planner", "18040")
	if cfg.Port != "9999" || len(cfg.AllowedOrigins) != 2 {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cfg := Config{Port: strconv.Itoa(port), ServiceName: "planner", ShutdownTimeout: time.Second}
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, cfg, http.NotFoundHandler(), quietLogger())
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
