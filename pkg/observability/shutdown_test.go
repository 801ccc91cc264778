package observability

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdownManager_RunsFunctions(t *testing.T) {
	sm := NewShutdownManager(Discard(), nil, 0)
	assert.Equal(t, 30*time.Second, sm.timeout)

	var calls atomic.Int32
	for _, name := range []string{"snapshot store", "tracer", "meter"} {
		sm.Register(name, func(context.Context) error {
			calls.Add(1)
			return nil
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, sm.Wait(ctx))
	assert.Equal(t, int32(3), calls.Load())

	// later calls are no-ops
	require.NoError(t, sm.Shutdown())
	assert.Equal(t, int32(3), calls.Load())
}

func TestShutdownManager_CollectsErrors(t *testing.T) {
	sm := NewShutdownManager(Discard(), nil, time.Second)
	boom := errors.New("close failed")
	sm.Register("snapshot store", func(context.Context) error { return boom })
	sm.Register("tracer", func(context.Context) error { return nil })

	err := sm.Shutdown()
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "snapshot store: close failed")
	assert.NotContains(t, err.Error(), "tracer")
}

func TestShutdownManager_Timeout(t *testing.T) {
	sm := NewShutdownManager(Discard(), nil, 20*time.Millisecond)
	release := make(chan struct{})
	defer close(release)

	sm.Register("stuck", func(context.Context) error {
		<-release
		return nil
	})

	err := sm.Shutdown()
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestShutdownManager_StopsServer(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	server := &http.Server{Handler: http.NotFoundHandler()}
	served := make(chan error, 1)
	go func() { served <- server.Serve(listener) }()

	sm := NewShutdownManager(Discard(), server, time.Second)
	require.NoError(t, sm.Shutdown())

	select {
	case err := <-served:
		assert.ErrorIs(t, err, http.ErrServerClosed)
	case <-time.After(time.Second):
		t.Fatal("server did not stop")
	}
}
