package observability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthChecker_Liveness(t *testing.T) {
	checker := NewHealthChecker("1.2.3")
	checker.AddCheck("container", func(context.Context) error { return errors.New("not assembled") }, true)

	rr := httptest.NewRecorder()
	checker.Liveness(rr, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var status HealthStatus
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &status))
	assert.Equal(t, StatusHealthy, status.Status)
	assert.Equal(t, "1.2.3", status.Version)
	assert.Empty(t, status.Components)
}

func TestHealthChecker_Check(t *testing.T) {
	ok := func(context.Context) error { return nil }
	fail := func(msg string) CheckFunc {
		return func(context.Context) error { return errors.New(msg) }
	}

	tests := []struct {
		name   string
		setup  func(h *HealthChecker)
		status string
	}{
		{
			name:   "no checks",
			setup:  func(*HealthChecker) {},
			status: StatusHealthy,
		},
		{
			name: "all passing",
			setup: func(h *HealthChecker) {
				h.AddCheck("container", ok, true)
				h.AddCheck("snapshot store", ok, false)
			},
			status: StatusHealthy,
		},
		{
			name: "optional failure degrades",
			setup: func(h *HealthChecker) {
				h.AddCheck("container", ok, true)
				h.AddCheck("snapshot store", fail("redis down"), false)
			},
			status: StatusDegraded,
		},
		{
			name: "critical failure wins",
			setup: func(h *HealthChecker) {
				h.AddCheck("snapshot store", fail("redis down"), false)
				h.AddCheck("container", fail("cycle"), true)
			},
			status: StatusUnhealthy,
		},
		{
			name: "panicking check fails",
			setup: func(h *HealthChecker) {
				h.AddCheck("container", func(context.Context) error { panic("boom") }, true)
			},
			status: StatusUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthChecker("v")
			tt.setup(h)
			assert.Equal(t, tt.status, h.Check(context.Background()).Status)
		})
	}
}

func TestHealthChecker_Components(t *testing.T) {
	h := NewHealthChecker("v")
	h.AddCheck("container", func(context.Context) error { return errors.New("stale") }, true)
	h.AddCheck("container", func(context.Context) error { return nil }, false)
	h.AddCheck("snapshot store", func(context.Context) error { return errors.New("redis down") }, false)

	status := h.Check(context.Background())
	require.Len(t, status.Components, 2)
	assert.Equal(t, ComponentStatus{Status: StatusHealthy}, status.Components["container"])

	store := status.Components["snapshot store"]
	assert.Equal(t, StatusUnhealthy, store.Status)
	assert.False(t, store.Critical)
	assert.Equal(t, "redis down", store.Message)
}

func TestHealthChecker_Readiness(t *testing.T) {
	h := NewHealthChecker("v")
	h.SetTimeout(50 * time.Millisecond)
	h.AddCheck("container", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, true)

	rr := httptest.NewRecorder()
	h.Readiness(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	var status HealthStatus
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &status))
	assert.Equal(t, StatusUnhealthy, status.Status)
	assert.Equal(t, context.DeadlineExceeded.Error(), status.Components["container"].Message)
}

func TestPingSQL(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"one"}).AddRow(1))
	require.NoError(t, PingSQL(db)(context.Background()))

	mock.ExpectQuery("SELECT 1").WillReturnError(errors.New("connection reset"))
	assert.ErrorContains(t, PingSQL(db)(context.Background()), "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())

	assert.Error(t, PingSQL(nil)(context.Background()))
}

func TestRegisterHealthRoutes(t *testing.T) {
	router := mux.NewRouter()
	RegisterHealthRoutes(router, NewHealthChecker("v"))

	for _, path := range []string{"/health", "/health/live", "/health/ready"} {
		t.Run(path, func(t *testing.T) {
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusOK, rr.Code)
		})
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
