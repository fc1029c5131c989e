package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// HealthStatus represents the overall service health.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthCheck is a single named probe. Critical checks gate readiness;
// non-critical ones (the remote store, typically) only degrade.
type HealthCheck struct {
	Name      string
	CheckFunc func(context.Context) error
	Timeout   time.Duration
	Critical  bool
}

// HealthChecker runs registered probes on demand.
type HealthChecker struct {
	checks map[string]*HealthCheck
	mu     sync.RWMutex
}

// CheckStatus is the outcome of one probe.
type CheckStatus struct {
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// HealthResponse is the /health payload.
type HealthResponse struct {
	Status    HealthStatus           `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckStatus `json:"checks"`
}

// NewHealthChecker creates an empty checker.
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{checks: make(map[string]*HealthCheck)}
}

// RegisterCheck adds a probe. A zero timeout defaults to 5s.
func (hc *HealthChecker) RegisterCheck(check *HealthCheck) {
	if check.Timeout == 0 {
		check.Timeout = 5 * time.Second
	}
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.checks[check.Name] = check
}

// Check runs all probes and folds their statuses.
func (hc *HealthChecker) Check(ctx context.Context) HealthResponse {
	hc.mu.RLock()
	checks := make([]*HealthCheck, 0, len(hc.checks))
	for _, c := range hc.checks {
		checks = append(checks, c)
	}
	hc.mu.RUnlock()

	results := make(map[string]CheckStatus, len(checks))
	overall := HealthStatusHealthy

	for _, check := range checks {
		checkCtx, cancel := context.WithTimeout(ctx, check.Timeout)
		err := check.CheckFunc(checkCtx)
		cancel()

		status := CheckStatus{Status: HealthStatusHealthy, Message: "OK"}
		if err != nil {
			status.Message = err.Error()
			if check.Critical {
				status.Status = HealthStatusUnhealthy
				overall = HealthStatusUnhealthy
			} else {
				status.Status = HealthStatusDegraded
				if overall == HealthStatusHealthy {
					overall = HealthStatusDegraded
				}
			}
		}
		results[check.Name] = status
	}

	return HealthResponse{
		Status:    overall,
		Timestamp: time.Now().UTC(),
		Checks:    results,
	}
}

// Handler serves the /health endpoint.
func (hc *HealthChecker) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := hc.Check(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if resp.Status == HealthStatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// LocalStoreCheck probes the reliable local store; failures here are
// fatal to mutations, so it is critical.
func LocalStoreCheck(ping func(context.Context) error) *HealthCheck {
	return &HealthCheck{
		Name:      "local-store",
		CheckFunc: ping,
		Timeout:   2 * time.Second,
		Critical:  true,
	}
}

// RemoteStoreCheck probes the eventually-synced remote store; the engine
// runs without it, so it only degrades.
func RemoteStoreCheck(ping func(context.Context) error) *HealthCheck {
	return &HealthCheck{
		Name:      "remote-store",
		CheckFunc: ping,
		Timeout:   5 * time.Second,
		Critical:  false,
	}
}
