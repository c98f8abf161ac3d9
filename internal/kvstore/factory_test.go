// internal/kvstore/factory_test.go
package kvstore_test

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infomapapp/parceldash/internal/config"
	"github.com/infomapapp/parceldash/internal/kvstore"
)

func TestNewStore_Memory(t *testing.T) {
	s, err := kvstore.NewStore(config.StorageConfig{Type: "memory"}, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, s.Set("k", "v"))
	v, ok, err := s.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestNewStore_File(t *testing.T) {
	cfg := config.StorageConfig{Type: "file"}
	cfg.File.Dir = t.TempDir()

	s, err := kvstore.NewStore(cfg, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, s.Set("k", "v"))

	v, ok, err := s.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestNewStore_Sqlite(t *testing.T) {
	cfg := config.StorageConfig{Type: "sqlite"}

	s, err := kvstore.NewStore(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Set("k", `{"v":true}`))
	_, ok, err := s.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNewStore_Unknown(t *testing.T) {
	_, err := kvstore.NewStore(config.StorageConfig{Type: "redis"}, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown storage type")
}
