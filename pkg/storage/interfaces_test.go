package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/hub/pkg/plugins"
)

func testRegistry(t *testing.T) *plugins.Registry {
	t.Helper()
	reg := plugins.NewRegistry()
	reg.Set("Zeta", &plugins.Descriptor{Name: "Zeta", Path: "/p/zeta", Dependencies: []string{"Base"}})
	reg.Set("Base", &plugins.Descriptor{
		Name: "Base",
		Path: "/p/base",
		DI: &plugins.DIDecl{
			Autoload: &plugins.Autoload{Namespace: "Base_", Path: "src"},
			Replaces: []plugins.Rule{{From: "Base_Api", To: "Base_Impl", Sphere: plugins.SphereBack}},
		},
	})
	return reg
}

func TestSnapshot_Registry(t *testing.T) {
	reg := testRegistry(t)
	snap := NewSnapshot("/p", "fp-1", reg)

	assert.Equal(t, "/p", snap.Root)
	assert.Equal(t, "fp-1", snap.Fingerprint)
	assert.False(t, snap.CreatedAt.IsZero())
	require.Len(t, snap.Plugins, 2)

	rebuilt := snap.Registry()
	assert.Equal(t, []string{"Zeta", "Base"}, rebuilt.Names())

	base, ok := rebuilt.Get("Base")
	require.True(t, ok)
	assert.Equal(t, "Base_", base.Autoload().Namespace)

	// the snapshot holds copies
	orig, _ := reg.Get("Base")
	orig.DI.Autoload.Namespace = "Changed_"
	assert.Equal(t, "Base_", snap.Plugins[1].Autoload().Namespace)
}

func TestSnapshotKey(t *testing.T) {
	assert.Equal(t, SnapshotKey("/srv/app"), SnapshotKey("/srv/app/"))
	assert.NotEqual(t, SnapshotKey("/srv/app"), SnapshotKey("/srv/other"))
	assert.Len(t, SnapshotKey("/srv/app"), 32)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "none", cfg.Backend)
	assert.NotEmpty(t, cfg.Dir)
	assert.Positive(t, cfg.TTL)
	assert.Positive(t, cfg.L1CacheSize)
}
