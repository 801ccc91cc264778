package observability

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// DefaultCheckTimeout bounds one readiness probe
const DefaultCheckTimeout = 5 * time.Second

// CheckFunc reports the health of one component; nil means healthy
type CheckFunc func(ctx context.Context) error

type check struct {
	fn       CheckFunc
	critical bool
}

// HealthStatus is the body of a readiness probe
type HealthStatus struct {
	Status     string                     `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Version    string                     `json:"version,omitempty"`
	Components map[string]ComponentStatus `json:"components,omitempty"`
}

// ComponentStatus is the outcome of one check
type ComponentStatus struct {
	Status    string `json:"status"`
	Critical  bool   `json:"critical"`
	Message   string `json:"message,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

// HealthChecker runs named checks for the readiness probe. A failing critical
// check makes the service unhealthy; any other failure only degrades it.
type HealthChecker struct {
	version string
	timeout time.Duration

	mu     sync.RWMutex
	checks map[string]check
}

// NewHealthChecker creates a checker reporting version
func NewHealthChecker(version string) *HealthChecker {
	return &HealthChecker{
		version: version,
		timeout: DefaultCheckTimeout,
		checks:  make(map[string]check),
	}
}

// SetTimeout changes the probe timeout; d <= 0 is ignored
func (h *HealthChecker) SetTimeout(d time.Duration) {
	if d > 0 {
		h.timeout = d
	}
}

// AddCheck registers fn under name, replacing a previous check of that name
func (h *HealthChecker) AddCheck(name string, fn CheckFunc, critical bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check{fn: fn, critical: critical}
}

// Check runs every check concurrently and folds the results
func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	h.mu.RLock()
	checks := make(map[string]check, len(h.checks))
	for name, c := range h.checks {
		checks[name] = c
	}
	h.mu.RUnlock()

	var (
		mu         sync.Mutex
		components = make(map[string]ComponentStatus, len(checks))
		g          errgroup.Group
	)
	for name, c := range checks {
		g.Go(func() error {
			st := runCheck(ctx, c)
			mu.Lock()
			components[name] = st
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	status := HealthStatus{
		Status:     StatusHealthy,
		Timestamp:  time.Now().UTC(),
		Version:    h.version,
		Components: components,
	}
	for _, st := range components {
		switch {
		case st.Status == StatusHealthy:
		case st.Critical:
			status.Status = StatusUnhealthy
		case status.Status == StatusHealthy:
			status.Status = StatusDegraded
		}
	}
	return status
}

func runCheck(ctx context.Context, c check) (st ComponentStatus) {
	start := time.Now()
	st = ComponentStatus{Status: StatusHealthy, Critical: c.critical}
	defer func() {
		if err := PanicError(recover()); err != nil {
			st.Status = StatusUnhealthy
			st.Message = err.Error()
		}
		st.LatencyMS = time.Since(start).Milliseconds()
	}()

	if err := c.fn(ctx); err != nil {
		st.Status = StatusUnhealthy
		st.Message = err.Error()
	}
	return st
}

// Liveness answers 200 while the process serves requests
func (h *HealthChecker) Liveness(w http.ResponseWriter, _ *http.Request) {
	writeHealth(w, http.StatusOK, HealthStatus{
		Status:    StatusHealthy,
		Timestamp: time.Now().UTC(),
		Version:   h.version,
	})
}

// Readiness answers 503 while a critical check fails
func (h *HealthChecker) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	status := h.Check(ctx)
	code := http.StatusOK
	if status.Status == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	writeHealth(w, code, status)
}

func writeHealth(w http.ResponseWriter, code int, status HealthStatus) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(status)
}

// PingSQL checks that db answers a trivial query
func PingSQL(db *sql.DB) CheckFunc {
	return func(ctx context.Context) error {
		if db == nil {
			return errors.New("no database handle")
		}
		var one int
		return db.QueryRowContext(ctx, "SELECT 1").Scan(&one)
	}
}

// RegisterHealthRoutes registers /health, /health/live and /health/ready
func RegisterHealthRoutes(router *mux.Router, checker *HealthChecker) {
	router.HandleFunc("/health", checker.Readiness).Methods(http.MethodGet)
	router.HandleFunc("/health/live", checker.Liveness).Methods(http.MethodGet)
	router.HandleFunc("/health/ready", checker.Readiness).Methods(http.MethodGet)
}
