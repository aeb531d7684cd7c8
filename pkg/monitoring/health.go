// Package monitoring serves the /health and /metrics endpoints of the planner.
package monitoring

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
)

type HealthStatus struct {
	Status    string                 `json:"status"`
	Service   string                 `json:"service"`
	Version   string                 `json:"version"`
	Timestamp int64                  `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks"`
}

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

type CheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// HealthCheck performs one check. Checks run concurrently.
type HealthCheck func() CheckResult

type HealthChecker struct {
	service string
	version string
	mu      sync.RWMutex
	checks  map[string]HealthCheck
}

func NewHealthChecker(service, version string) *HealthChecker {
	return &HealthChecker{
		service: service,
		version: version,
		checks:  make(map[string]HealthCheck),
	}
}

func (hc *HealthChecker) AddCheck(name string, check HealthCheck) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.checks[name] = check
}

// Names lists the registered checks in sorted order.
func (hc *HealthChecker) Names() []string {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	names := make([]string, 0, len(hc.checks))
	for name := range hc.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CheckHealth runs every check. Any unhealthy (or unknown) result makes the
// service unhealthy; otherwise any degraded result makes it degraded.
func (hc *HealthChecker) CheckHealth() HealthStatus {
	hc.mu.RLock()
	checks := make(map[string]HealthCheck, len(hc.checks))
	for name, check := range hc.checks {
		checks[name] = check
	}
	hc.mu.RUnlock()

	status := HealthStatus{
		Service:   hc.service,
		Version:   hc.version,
		Timestamp: time.Now().Unix(),
		Checks:    make(map[string]CheckResult, len(checks)),
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for name, check := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result := check()
			mu.Lock()
			status.Checks[name] = result
			mu.Unlock()
		}()
	}
	wg.Wait()

	anyUnhealthy := false
	anyDegraded := false
	for _, result := range status.Checks {
		switch result.Status {
		case StatusHealthy:
		case StatusDegraded:
			anyDegraded = true
		default:
			anyUnhealthy = true
		}
	}

	switch {
	case anyUnhealthy:
		status.Status = StatusUnhealthy
	case anyDegraded:
		status.Status = StatusDegraded
	default:
		status.Status = StatusHealthy
	}
	return status
}

func (hc *HealthChecker) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		health := hc.CheckHealth()
		statusCode := http.StatusOK
		if health.Status == StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		c.JSON(statusCode, health)
	}
}

// PingFunc checks one connection.
type PingFunc func(ctx context.Context) error

// PingHealthCheck wraps a connection ping. A failing optional dependency
// reports degraded instead of unhealthy.
func PingHealthCheck(component string, ping PingFunc, optional bool) HealthCheck {
	return func() CheckResult {
		start := time.Now()
		if ping == nil {
			return CheckResult{
				Status:  StatusUnhealthy,
				Message: component + " is not configured",
				Latency: time.Since(start).String(),
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		err := ping(ctx)
		duration := time.Since(start)
		if err != nil {
			failed := StatusUnhealthy
			if optional {
				failed = StatusDegraded
			}
			return CheckResult{
				Status:  failed,
				Message: fmt.Sprintf("%s ping failed: %v", component, err),
				Latency: duration.String(),
			}
		}
		return CheckResult{
			Status:  StatusHealthy,
			Message: component + " connection healthy",
			Latency: duration.String(),
		}
	}
}

func DatabaseHealthCheck(db *sql.DB) HealthCheck {
	if db == nil {
		return PingHealthCheck("Database", nil, false)
	}
	return PingHealthCheck("Database", db.PingContext, false)
}

func ClickHouseHealthCheck(db *sql.DB) HealthCheck {
	if db == nil {
		return PingHealthCheck("ClickHouse", nil, false)
	}
	return PingHealthCheck("ClickHouse", db.PingContext, false)
}

func RedisHealthCheck(client goredis.UniversalClient) HealthCheck {
	if client == nil {
		return PingHealthCheck("Redis", nil, false)
	}
	return PingHealthCheck("Redis", func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}, false)
}

// KafkaHealthCheck is degraded rather than unhealthy on failure: without the
// broker, snapshots are only refreshed by explicit reloads.
func KafkaHealthCheck(ping PingFunc) HealthCheck {
	return PingHealthCheck("Kafka", ping, true)
}

// HTTPServiceHealthCheck probes a dependency's HTTP health endpoint.
func HTTPServiceHealthCheck(serviceName, url string) HealthCheck {
	client := &http.Client{Timeout: 5 * time.Second}
	return func() CheckResult {
		start := time.Now()
		resp, err := client.Get(url)
		duration := time.Since(start)
		if err != nil {
			return CheckResult{
				Status:  StatusUnhealthy,
				Message: fmt.Sprintf("%s service unreachable: %v", serviceName, err),
				Latency: duration.String(),
			}
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			return CheckResult{
				Status:  StatusUnhealthy,
				Message: fmt.Sprintf("%s service returned %d", serviceName, resp.StatusCode),
				Latency: duration.String(),
			}
		}
		return CheckResult{
			Status:  StatusHealthy,
			Message: fmt.Sprintf("%s service responding", serviceName),
			Latency: duration.String(),
		}
	}
}

// ConfigurationHealthCheck reports missing required settings.
func ConfigurationHealthCheck(configs map[string]string) HealthCheck {
	return func() CheckResult {
		missing := []string{}
		for key, value := range configs {
			if value == "" {
				missing = append(missing, key)
			}
		}
		sort.Strings(missing)
		if len(missing) > 0 {
			return CheckResult{
				Status:  StatusUnhealthy,
				Message: fmt.Sprintf("Missing required configuration: %v", missing),
			}
		}
		return CheckResult{
			Status:  StatusHealthy,
			Message: "All required configuration present",
		}
	}
}
