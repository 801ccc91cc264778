package assembly

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/hub/pkg/container"
	"github.com/platinummonkey/hub/pkg/observability"
)

func TestLegacyParser(t *testing.T) {
	tests := []struct {
		id     string
		module string
		export string
		life   container.Life
	}{
		{"App_Service#", "App_Service", container.DefaultExport, container.LifeSingleton},
		{"App_Service#$$", "App_Service", container.DefaultExport, container.LifeInstance},
		{"App_Service#make", "App_Service", "make", container.LifeSingleton},
		{"App_Service#make$", "App_Service", "make", container.LifeSingleton},
		{"App_Service#make$$", "App_Service", "make", container.LifeInstance},
	}

	chunk := LegacyParser()
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			dep, ok := chunk.Parse(tt.id)
			require.True(t, ok)
			assert.Equal(t, tt.id, dep.Value)
			assert.Equal(t, tt.module, dep.Module)
			assert.Equal(t, tt.export, dep.Export)
			assert.Equal(t, tt.life, dep.Life)
		})
	}

	for _, id := range []string{"App_Service", "App_Service.make", "#make", "App-Service#", "App_Service#a#b"} {
		_, ok := chunk.Parse(id)
		assert.False(t, ok, id)
	}
}

func TestLegacyParser_InContainer(t *testing.T) {
	c := container.New()
	require.NoError(t, c.Resolver().AddNamespaceRoot("App_", "/srv/app/src", "js"))
	c.Parser().AddChunk(LegacyParser())
	c.RegisterExport("App_Service", "make", func(context.Context, *container.Container) (any, error) {
		return "made", nil
	})

	ctx := context.Background()
	legacy, err := c.Get(ctx, "App_Service#make")
	require.NoError(t, err)
	modern, err := c.Get(ctx, "App_Service.make")
	require.NoError(t, err)

	assert.Equal(t, "made", legacy)
	assert.Equal(t, legacy, modern)
}

func TestLoggerChunk(t *testing.T) {
	var buf bytes.Buffer
	base := observability.NewLogger(observability.InfoLevel, &buf)

	c := container.New()
	require.NoError(t, c.Resolver().AddNamespaceRoot("App_", "/srv/app/src", "js"))
	c.PostProcessor().AddChunk(LoggerChunk{})
	c.Register("App_Logger", func(context.Context, *container.Container) (any, error) {
		return base, nil
	})
	c.Register("App_Service", func(ctx context.Context, c *container.Container) (any, error) {
		logger, err := c.Get(ctx, "App_Logger$$")
		if err != nil {
			return nil, err
		}
		logger.(*observability.Logger).Info("service ready")
		return "service", nil
	})

	ctx := context.Background()
	_, err := c.Get(ctx, "App_Service")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"namespace":"App_Service"`)

	buf.Reset()
	direct, err := c.Get(ctx, "App_Logger$$")
	require.NoError(t, err)
	direct.(*observability.Logger).Info("direct")
	assert.Contains(t, buf.String(), `"namespace":"App_Logger"`)
}

func TestLoggerChunk_OtherObjects(t *testing.T) {
	dep := &container.DepID{Module: "App_Service", Export: container.DefaultExport}

	obj, err := LoggerChunk{}.Modify(context.Background(), "plain", dep, nil)
	require.NoError(t, err)
	assert.Equal(t, "plain", obj)

	var nilLogger *observability.Logger
	obj, err = LoggerChunk{}.Modify(context.Background(), nilLogger, dep, nil)
	require.NoError(t, err)
	assert.Nil(t, obj)
}
