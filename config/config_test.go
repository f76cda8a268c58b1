package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	s := Default()

	assert.Equal(t, float32(30), s.Import.BakeFPS)
	assert.True(t, s.Import.RemoveImmutableTracks)
	assert.True(t, s.Import.CreateAnimations)
	assert.False(t, s.Import.NamedSkinBinds)
	assert.True(t, s.Export.Binary)
	assert.Equal(t, ":8000", s.Server.Addr)
	assert.Equal(t, "info", s.Log.Level)
	assert.NoError(t, s.Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenedoc.yaml")
	require.NoError(t, os.WriteFile(path, []byte("import:\n  bake_fps: 60\n  trimming: true\nserver:\n  addr: \":9000\"\n"), 0644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, float32(60), s.Import.BakeFPS)
	assert.True(t, s.Import.Trimming)
	assert.True(t, s.Import.RemoveImmutableTracks, "untouched keys keep defaults")
	assert.Equal(t, ":9000", s.Server.Addr)
}

func TestLoadRejectsBadFPS(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("import:\n  bake_fps: 0\n"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "cfg.yaml")
	s := Default()
	s.Import.NamedSkinBinds = true
	require.NoError(t, s.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, s, loaded)
}

func TestEncoding(t *testing.T) {
	defer SetEncoding("Windows 1252")

	assert.Contains(t, ListEncodings(), "Windows 1251")
	require.NoError(t, SetEncoding("Windows 1251"))
	assert.Equal(t, "Windows 1251", GetEncoding().String())
	assert.Error(t, SetEncoding("no such encoding"))
	require.NoError(t, SetEncoding("windows 1250"))
	assert.Equal(t, "Windows 1250", GetEncoding().String())
}
