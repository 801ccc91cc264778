package assembly

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/hub/pkg/container"
	"github.com/platinummonkey/hub/pkg/observability"
	"github.com/platinummonkey/hub/pkg/plugins"
)

func descriptor(name string, replaces, proxies []plugins.Rule) *plugins.Descriptor {
	return &plugins.Descriptor{
		Name: name,
		Path: "/srv/app/" + name,
		DI:   &plugins.DIDecl{Replaces: replaces, Proxy: proxies},
	}
}

func TestReplaceChunk_Table(t *testing.T) {
	chunk := NewReplaceChunk()
	chunk.Add("Logger", "ConsoleLogger")
	chunk.Add("Db", "PgDb")
	chunk.Add("Logger", "FileLogger")

	to, ok := chunk.Lookup("Logger")
	assert.True(t, ok)
	assert.Equal(t, "FileLogger", to)

	_, ok = chunk.Lookup("Cache")
	assert.False(t, ok)

	assert.Equal(t, 2, chunk.Len())
	assert.Equal(t, []Mapping{
		{From: "Logger", To: "FileLogger"},
		{From: "Db", To: "PgDb"},
	}, chunk.Table())
}

func TestReplaceChunk_Modify(t *testing.T) {
	chunk := NewReplaceChunk()
	chunk.Add("App_Logger", "App_FileLogger")

	dep := &container.DepID{Module: "App_Logger", Export: container.DefaultExport}
	assert.Equal(t, "App_FileLogger", chunk.Modify(dep.Clone(), nil).Module)
	assert.Equal(t, "App_FileLogger", chunk.Modify(dep.Clone(), []string{"App_Service"}).Module)

	// the replacement itself may depend on what it replaces
	assert.Equal(t, "App_Logger", chunk.Modify(dep.Clone(), []string{"App_Service", "App_FileLogger"}).Module)

	other := &container.DepID{Module: "App_Db", Export: container.DefaultExport}
	assert.Equal(t, "App_Db", chunk.Modify(other, nil).Module)
}

func TestInitPreReplaces(t *testing.T) {
	items := []*plugins.Descriptor{
		descriptor("Base", []plugins.Rule{
			{From: "Logger", To: "ConsoleLogger", Sphere: plugins.SphereBack},
			{From: "Storage", To: "LocalStorage", Sphere: plugins.SphereShared},
		}, nil),
		descriptor("Top", []plugins.Rule{
			{From: "Logger", To: "FileLogger", Sphere: plugins.SphereBack},
			{From: "Storage", To: "IndexedDb", Sphere: plugins.SphereFront},
		}, nil),
		{Name: "Bare", Path: "/srv/app/bare"},
	}

	metrics := observability.NewMetrics(prometheus.NewRegistry())
	c := container.New()
	chunk := InitPreReplaces(c, items, nil, metrics)

	assert.Equal(t, []Mapping{
		{From: "Logger", To: "FileLogger"},
		{From: "Storage", To: "LocalStorage"},
	}, chunk.Table())
	assert.Len(t, c.PreProcessor().Chunks(), 1)

	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.RulesAppliedTotal.WithLabelValues("replace")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RulesSkippedTotal.WithLabelValues("replace", "sphere")))
}

func TestInitPreReplaces_Empty(t *testing.T) {
	c := container.New()
	chunk := InitPreReplaces(c, nil, nil, nil)

	assert.Zero(t, chunk.Len())
	assert.Empty(t, chunk.Table())
}

func TestProxyChunk(t *testing.T) {
	c := container.New()
	require.NoError(t, c.Resolver().AddNamespaceRoot("App_", "/srv/app/src", "mjs"))

	c.Register("App_Service", func(context.Context, *container.Container) (any, error) {
		return "service", nil
	})
	c.Register("App_Other", func(context.Context, *container.Container) (any, error) {
		return "other", nil
	})
	c.RegisterWrapper("App_Audit", func(_ context.Context, _ *container.Container, obj any) (any, error) {
		return fmt.Sprintf("audited(%v)", obj), nil
	})

	items := []*plugins.Descriptor{
		descriptor("App", nil, []plugins.Rule{
			{From: "App_Service", To: "App_Audit", Sphere: plugins.SphereBack},
			{From: "App_Other", To: "App_Audit", Sphere: plugins.SphereFront},
		}),
	}
	chunk := InitPostProxy(c, items, nil, nil)
	assert.Equal(t, []Mapping{{From: "App_Service", To: "App_Audit"}}, chunk.Table())

	ctx := context.Background()
	obj, err := c.Get(ctx, "App_Service")
	require.NoError(t, err)
	assert.Equal(t, "audited(service)", obj)

	obj, err = c.Get(ctx, "App_Other")
	require.NoError(t, err)
	assert.Equal(t, "other", obj)
}

func TestProxyChunk_Errors(t *testing.T) {
	ctx := context.Background()

	c := container.New()
	require.NoError(t, c.Resolver().AddNamespaceRoot("App_", "/srv/app/src", "mjs"))
	c.Register("App_Service", func(context.Context, *container.Container) (any, error) {
		return "service", nil
	})
	c.Register("App_Repo", func(context.Context, *container.Container) (any, error) {
		return "repo", nil
	})
	c.RegisterWrapper("App_Broken", func(context.Context, *container.Container, any) (any, error) {
		return nil, errors.New("wrapper failed")
	})

	chunk := NewProxyChunk(c)
	chunk.Map("App_Service", "Vendor_Audit")
	chunk.Map("App_Repo", "App_Missing")
	chunk.Map("App_Cache", "App_Broken")
	c.PostProcessor().AddChunk(chunk)

	_, err := c.Get(ctx, "App_Service")
	assert.ErrorIs(t, err, container.ErrNamespaceNotFound)

	_, err = c.Get(ctx, "App_Repo")
	assert.ErrorIs(t, err, container.ErrModuleNotRegistered)

	c.Register("App_Cache", func(context.Context, *container.Container) (any, error) {
		return "cache", nil
	})
	_, err = c.Get(ctx, "App_Cache")
	assert.ErrorContains(t, err, "wrapper failed")

	assert.Equal(t, 3, chunk.Len())
	to, ok := chunk.Lookup("App_Repo")
	assert.True(t, ok)
	assert.Equal(t, "App_Missing", to)
}

type fakeRegistrar struct {
	roots map[string][2]string
	fail  error
}

func (f *fakeRegistrar) AddNamespaceRoot(ns, root, ext string) error {
	if f.fail != nil {
		return f.fail
	}
	f.roots[ns] = [2]string{root, ext}
	return nil
}

func TestInitNamespaces(t *testing.T) {
	items := []*plugins.Descriptor{
		{Name: "Base", Path: "/srv/app/node_modules/base"},
		{Name: "Mid", Path: "/srv/app/node_modules/@vnd/mid", DI: &plugins.DIDecl{
			Autoload: &plugins.Autoload{Namespace: "Mid_", Path: "src", Ext: "mjs"},
		}},
		{Name: "Top", Path: "/srv/app", DI: &plugins.DIDecl{
			Autoload: &plugins.Autoload{Namespace: "Top_", Path: "./lib"},
		}},
		{Name: "Empty", Path: "/srv/app/empty", DI: &plugins.DIDecl{
			Autoload: &plugins.Autoload{Path: "src"},
		}},
	}

	reg := &fakeRegistrar{roots: make(map[string][2]string)}
	require.NoError(t, InitNamespaces(reg, items, nil))

	assert.Equal(t, map[string][2]string{
		"Mid_": {"/srv/app/node_modules/@vnd/mid/src", "mjs"},
		"Top_": {"/srv/app/lib", "js"},
	}, reg.roots)
}

func TestInitNamespaces_Conflict(t *testing.T) {
	items := []*plugins.Descriptor{
		{Name: "One", Path: "/srv/one", DI: &plugins.DIDecl{
			Autoload: &plugins.Autoload{Namespace: "Vnd_", Path: "src"},
		}},
		{Name: "Two", Path: "/srv/two", DI: &plugins.DIDecl{
			Autoload: &plugins.Autoload{Namespace: "Vnd_", Path: "src"},
		}},
	}

	r := container.NewResolver(0, nil)
	err := InitNamespaces(r, items, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, container.ErrNamespaceConflict)
	assert.Contains(t, err.Error(), "plugin Two")

	var conflict *container.NamespaceConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "/srv/one/src", conflict.Existing.Root)
	assert.Equal(t, "/srv/two/src", conflict.Requested.Root)
}

func TestInitNamespaces_SameRootTwice(t *testing.T) {
	item := &plugins.Descriptor{Name: "One", Path: "/srv/one", DI: &plugins.DIDecl{
		Autoload: &plugins.Autoload{Namespace: "Vnd_", Path: "src", Ext: "js"},
	}}

	r := container.NewResolver(0, nil)
	require.NoError(t, InitNamespaces(r, []*plugins.Descriptor{item, item}, nil))
	assert.Len(t, r.Namespaces(), 1)
}
