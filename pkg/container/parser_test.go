package container

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefault(t *testing.T) {
	tests := []struct {
		id     string
		module string
		export string
		life   Life
	}{
		{"Mid_Service", "Mid_Service", DefaultExport, LifeSingleton},
		{"Mid_Service$", "Mid_Service", DefaultExport, LifeSingleton},
		{"Mid_Service$$", "Mid_Service", DefaultExport, LifeInstance},
		{"Mid_Service.helper", "Mid_Service", "helper", LifeSingleton},
		{"Mid_Service.helper$$", "Mid_Service", "helper", LifeInstance},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			dep, ok := ParseDefault(tt.id)
			require.True(t, ok)
			assert.Equal(t, tt.id, dep.Value)
			assert.Equal(t, tt.module, dep.Module)
			assert.Equal(t, tt.export, dep.Export)
			assert.Equal(t, tt.life, dep.Life)
		})
	}

	for _, bad := range []string{"", "$$", ".x", "Mod.", "Mod#x", "Mod-Name", "Mod.a.b"} {
		t.Run("invalid "+bad, func(t *testing.T) {
			_, ok := ParseDefault(bad)
			assert.False(t, ok)
		})
	}
}

func TestDepID_String(t *testing.T) {
	assert.Equal(t, "Mod", (&DepID{Module: "Mod", Export: DefaultExport}).String())
	assert.Equal(t, "Mod.x$$", (&DepID{Module: "Mod", Export: "x", Life: LifeInstance}).String())
	assert.Equal(t, "Mod.x", (&DepID{Module: "Mod", Export: "x"}).Key())
	assert.Equal(t, "instance", LifeInstance.String())
	assert.Equal(t, "singleton", LifeSingleton.String())
}

func TestParser_ChunksComeFirst(t *testing.T) {
	p := NewParser()
	p.AddChunk(ParserChunkFunc(func(id string) (*DepID, bool) {
		module, ok := strings.CutPrefix(id, "@")
		if !ok {
			return nil, false
		}
		return &DepID{Module: module, Export: DefaultExport, Life: LifeInstance}, true
	}))

	dep, err := p.Parse("@Mid_Service")
	require.NoError(t, err)
	assert.Equal(t, "Mid_Service", dep.Module)
	assert.Equal(t, LifeInstance, dep.Life)
	assert.Equal(t, "@Mid_Service", dep.Value)

	dep, err = p.Parse("Mid_Service")
	require.NoError(t, err)
	assert.Equal(t, LifeSingleton, dep.Life)

	_, err = p.Parse("not valid")
	assert.ErrorIs(t, err, ErrInvalidID)
	assert.Len(t, p.Chunks(), 1)
}
