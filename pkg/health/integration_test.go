package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/opd-ai/go-racer/pkg/clock"
	"github.com/opd-ai/go-racer/pkg/config"
	"github.com/opd-ai/go-racer/pkg/control"
	"github.com/opd-ai/go-racer/pkg/engine"
	"github.com/opd-ai/go-racer/pkg/results"
)

// TestHealthCheckIntegration wires the checks to a real session and store.
func TestHealthCheckIntegration(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Session.FixedStep = true
	grid, err := cfg.LoadTrack()
	if err != nil {
		t.Fatalf("LoadTrack() error = %v", err)
	}

	clk := clock.NewManual(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	forward := control.ControllerFunc(func(v control.Vehicle, _ control.Observation) error {
		control.Forward(v)
		return nil
	})
	session, err := engine.NewSession(cfg, grid, []control.Controller{forward}, engine.WithClock(clk))
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}

	store, err := results.Open("file:health_integration?mode=memory&cache=shared", nil)
	if err != nil {
		t.Fatalf("results.Open() error = %v", err)
	}
	defer store.Close()

	healthChecker := NewHealthChecker()
	healthChecker.AddCheck(NewSessionHealthCheck(func() bool {
		return session.Status() == engine.StatusActive
	}))
	healthChecker.AddCheck(NewTickProgressHealthCheck(time.Second, session.LastTick, session.Clock().Now))
	healthChecker.AddCheck(NewStoreHealthCheck(store.Ping))

	t.Run("health checks before the race starts", func(t *testing.T) {
		health := healthChecker.CheckHealth(context.Background())

		if health.Checks["session"].Status != "unhealthy" {
			t.Error("session should be unhealthy before the race starts")
		}
		if health.Checks["tick_progress"].Status != "unhealthy" {
			t.Error("tick_progress should be unhealthy before the first tick")
		}
		if health.Checks["results_store"].Status != "healthy" {
			t.Errorf("results_store should be healthy, got: %s", health.Checks["results_store"].Message)
		}
		if health.Status != "unhealthy" {
			t.Error("overall status should be unhealthy before the race starts")
		}
	})

	for i := 0; i < 10; i++ {
		if err := session.Step(context.Background()); err != nil {
			t.Fatalf("Step() error = %v", err)
		}
	}

	t.Run("readiness endpoint while racing", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/ready", nil)
		w := httptest.NewRecorder()

		healthChecker.ReadinessHandler(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Expected status code %d, got %d", http.StatusOK, w.Code)
		}

		var response HealthStatus
		if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if response.Status != "healthy" {
			t.Errorf("Expected status 'healthy', got %s: %+v", response.Status, response.Checks)
		}
	})

	t.Run("stalled ticks", func(t *testing.T) {
		resume := clk.Now()
		clk.Advance(2 * time.Second)
		defer clk.Set(resume)

		health := healthChecker.CheckHealth(context.Background())
		if health.Checks["tick_progress"].Status != "unhealthy" {
			t.Error("tick_progress should be unhealthy after a two second stall")
		}
		if health.Checks["session"].Status != "healthy" {
			t.Error("session should still report running while stalled")
		}
	})

	session.Stop()

	t.Run("health checks after the race ends", func(t *testing.T) {
		health := healthChecker.CheckHealth(context.Background())
		if health.Checks["session"].Status != "unhealthy" {
			t.Error("session should be unhealthy after Stop")
		}
	})
}

// TestHealthServerRoutes verifies NewServer mounts both endpoints.
func TestHealthServerRoutes(t *testing.T) {
	healthChecker := NewHealthChecker()
	healthChecker.AddCheck(&mockHealthCheck{name: "down", healthy: false, err: fmt.Errorf("component is down")})
	server := NewServer(":0", healthChecker)

	tests := []struct {
		path string
		code int
	}{
		{"/health", http.StatusOK},
		{"/ready", http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			server.Handler.ServeHTTP(w, httptest.NewRequest("GET", tt.path, nil))
			if w.Code != tt.code {
				t.Errorf("GET %s = %d, expected %d", tt.path, w.Code, tt.code)
			}
		})
	}
}

// TestMemoryHealthCheckIntegration runs the memory check against real stats.
func TestMemoryHealthCheckIntegration(t *testing.T) {
	healthChecker := NewHealthChecker()
	healthChecker.AddCheck(NewMemoryHealthCheck(10000, CurrentMemoryMB))

	health := healthChecker.CheckHealth(context.Background())
	if health.Checks["memory"].Status != "healthy" {
		t.Errorf("Memory check should be healthy with a 10GB limit, got: %s",
			health.Checks["memory"].Message)
	}

	healthChecker.RemoveCheck("memory")
	healthChecker.AddCheck(NewMemoryHealthCheck(50, func() int64 { return 100 }))

	health = healthChecker.CheckHealth(context.Background())
	if health.Checks["memory"].Status != "unhealthy" || health.Status != "unhealthy" {
		t.Error("Memory check should be unhealthy over the limit")
	}
}
