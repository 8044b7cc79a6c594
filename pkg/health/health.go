// Package health serves liveness and readiness checks for a headless race
// runner. Readiness aggregates pluggable checks: the session is running,
// ticks keep arriving, the results store answers and memory stays bounded.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"time"
)

// HealthCheck is one named readiness check.
type HealthCheck interface {
	Name() string
	Check(ctx context.Context) error
}

// HealthStatus is the aggregated readiness report.
type HealthStatus struct {
	Status string                     `json:"status"`
	Checks map[string]ComponentHealth `json:"checks"`
}

// ComponentHealth is the result of a single check.
type ComponentHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthChecker runs registered checks.
type HealthChecker struct {
	checks map[string]HealthCheck
	mu     sync.RWMutex
}

// NewHealthChecker creates an empty checker.
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		checks: make(map[string]HealthCheck),
	}
}

// AddCheck registers check, replacing any check with the same name.
func (hc *HealthChecker) AddCheck(check HealthCheck) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.checks[check.Name()] = check
}

// RemoveCheck removes a check by name.
func (hc *HealthChecker) RemoveCheck(name string) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	delete(hc.checks, name)
}

// CheckHealth runs every check. The overall status is "healthy" only when
// all of them pass.
func (hc *HealthChecker) CheckHealth(ctx context.Context) HealthStatus {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	status := HealthStatus{
		Status: "healthy",
		Checks: make(map[string]ComponentHealth, len(hc.checks)),
	}
	for name, check := range hc.checks {
		if err := check.Check(ctx); err != nil {
			status.Status = "unhealthy"
			status.Checks[name] = ComponentHealth{Status: "unhealthy", Message: err.Error()}
			continue
		}
		status.Checks[name] = ComponentHealth{Status: "healthy"}
	}
	return status
}

// LivenessHandler answers 200 while the process can serve HTTP at all.
func (hc *HealthChecker) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
}

// ReadinessHandler runs every check and answers 200 or 503 with the report.
func (hc *HealthChecker) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := hc.CheckHealth(ctx)

	w.Header().Set("Content-Type", "application/json")
	if health.Status == "healthy" {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(health)
}

// NewServer returns an HTTP server exposing /health and /ready on addr.
func NewServer(addr string, hc *HealthChecker) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", hc.LivenessHandler)
	mux.HandleFunc("/ready", hc.ReadinessHandler)
	return &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
}

// SessionHealthCheck fails unless the race session is active.
type SessionHealthCheck struct {
	running func() bool
}

// NewSessionHealthCheck creates a session check around running.
func NewSessionHealthCheck(running func() bool) *SessionHealthCheck {
	return &SessionHealthCheck{running: running}
}

// Name returns "session".
func (s *SessionHealthCheck) Name() string {
	return "session"
}

// Check reports an error when the session is not running.
func (s *SessionHealthCheck) Check(ctx context.Context) error {
	if !s.running() {
		return fmt.Errorf("race session is not running")
	}
	return nil
}

// TickProgressHealthCheck fails when the session has not ticked within the
// stall timeout.
type TickProgressHealthCheck struct {
	lastTick func() time.Time
	now      func() time.Time
	stall    time.Duration
}

// NewTickProgressHealthCheck creates a stall detector. lastTick and now
// must read the same clock.
func NewTickProgressHealthCheck(stall time.Duration, lastTick, now func() time.Time) *TickProgressHealthCheck {
	return &TickProgressHealthCheck{lastTick: lastTick, now: now, stall: stall}
}

// Name returns "tick_progress".
func (t *TickProgressHealthCheck) Name() string {
	return "tick_progress"
}

// Check reports an error before the first tick or once ticks stall.
func (t *TickProgressHealthCheck) Check(ctx context.Context) error {
	last := t.lastTick()
	if last.IsZero() {
		return fmt.Errorf("race has not started")
	}
	if since := t.now().Sub(last); t.stall > 0 && since > t.stall {
		return fmt.Errorf("no tick for %v (limit %v)", since.Round(time.Millisecond), t.stall)
	}
	return nil
}

// StoreHealthCheck pings the results store.
type StoreHealthCheck struct {
	ping func(ctx context.Context) error
}

// NewStoreHealthCheck creates a store check around ping.
func NewStoreHealthCheck(ping func(ctx context.Context) error) *StoreHealthCheck {
	return &StoreHealthCheck{ping: ping}
}

// Name returns "results_store".
func (s *StoreHealthCheck) Name() string {
	return "results_store"
}

// Check reports the ping error, if any.
func (s *StoreHealthCheck) Check(ctx context.Context) error {
	if err := s.ping(ctx); err != nil {
		return fmt.Errorf("results store unreachable: %w", err)
	}
	return nil
}

// MemoryHealthCheck fails when heap usage exceeds a limit.
type MemoryHealthCheck struct {
	maxMemoryMB    int64
	getMemoryUsage func() int64
}

// NewMemoryHealthCheck creates a memory check. A non-positive limit
// disables it.
func NewMemoryHealthCheck(maxMemoryMB int64, getMemoryUsage func() int64) *MemoryHealthCheck {
	return &MemoryHealthCheck{
		maxMemoryMB:    maxMemoryMB,
		getMemoryUsage: getMemoryUsage,
	}
}

// Name returns "memory".
func (m *MemoryHealthCheck) Name() string {
	return "memory"
}

// Check compares current usage to the limit.
func (m *MemoryHealthCheck) Check(ctx context.Context) error {
	if m.maxMemoryMB <= 0 {
		return nil
	}
	if currentMB := m.getMemoryUsage(); currentMB > m.maxMemoryMB {
		return fmt.Errorf("memory usage %dMB exceeds limit %dMB", currentMB, m.maxMemoryMB)
	}
	return nil
}

// CurrentMemoryMB reports the live heap in megabytes.
func CurrentMemoryMB() int64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return int64(m.Alloc / 1024 / 1024)
}
