package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_WithValidConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	cfg := `{
		"logLevel": "debug",
		"storage": { "type": "sqlite", "sqlite": { "path": "/tmp/parceldash.db" } },
		"keys": { "annotations": "drawings_v2" }
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "parceldash.cfg.json"), []byte(cfg), 0644))

	err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "debug", viper.GetString("logLevel"))
	assert.Equal(t, "sqlite", viper.GetString("storage.type"))
	assert.Equal(t, "/tmp/parceldash.db", viper.GetString("storage.sqlite.path"))
	assert.Equal(t, "drawings_v2", viper.GetString("keys.annotations"))
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "parceldash.cfg.json"), []byte(`{}`), 0644))

	err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "info", viper.GetString("logLevel"))
	assert.Equal(t, "./logs", viper.GetString("logsDir"))
	assert.Equal(t, "file", viper.GetString("storage.type"))
	assert.Equal(t, "./data", viper.GetString("storage.file.dir"))
	assert.Equal(t, "user_drawings", viper.GetString("keys.annotations"))
	assert.Equal(t, "populationData", viper.GetString("keys.records"))
	assert.Equal(t, ":8087", viper.GetString("surface.listenAddr"))
	assert.Equal(t, false, viper.GetBool("influx.enabled"))
	assert.Equal(t, "parceldash", viper.GetString("influx.org"))
	assert.Equal(t, "dashboard_stats", viper.GetString("influx.bucket"))
}

func TestLoad_MissingFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load("/nonexistent/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestGetStorageConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "parceldash.cfg.json"), []byte(`{}`), 0644))
	require.NoError(t, Load(dir))

	cfg := GetStorageConfig()
	assert.Equal(t, "file", cfg.Type)
	assert.Equal(t, "./data", cfg.File.Dir)
	assert.Equal(t, "localhost", cfg.Postgres.Host)
	assert.Equal(t, "parceldash", cfg.Postgres.Database)
}

func TestGetFeatureServiceConfig(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	cfg := `{ "featureService": { "url": "http://example.test/query", "timeout": "5s" } }`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "parceldash.cfg.json"), []byte(cfg), 0644))
	require.NoError(t, Load(dir))

	fc := GetFeatureServiceConfig()
	assert.Equal(t, "http://example.test/query", fc.URL)
	assert.Equal(t, 5*time.Second, fc.Timeout)
}

func TestGetInfluxConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	cfg := `{
		"influx": {
			"enabled": true,
			"host": "influx.internal",
			"port": "8087",
			"token": "secret",
			"org": "gis",
			"bucket": "stats"
		}
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "parceldash.cfg.json"), []byte(cfg), 0644))
	require.NoError(t, Load(dir))

	ic := GetInfluxConfig()
	assert.Equal(t, true, ic.Enabled)
	assert.Equal(t, "influx.internal", ic.Host)
	assert.Equal(t, "8087", ic.Port)
	assert.Equal(t, "secret", ic.Token)
	assert.Equal(t, "gis", ic.Org)
	assert.Equal(t, "stats", ic.Bucket)
}

func TestGetOTelConfig(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	cfg := `{ "otel": { "enabled": true, "endpoint": "collector:4318", "batchTimeout": "2s" } }`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "parceldash.cfg.json"), []byte(cfg), 0644))
	require.NoError(t, Load(dir))

	oc := GetOTelConfig()
	assert.Equal(t, true, oc.Enabled)
	assert.Equal(t, "parceldash", oc.ServiceName)
	assert.Equal(t, "collector:4318", oc.Endpoint)
	assert.Equal(t, 2*time.Second, oc.BatchTimeout)
}

func TestGetString(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testKey", "testValue")
	assert.Equal(t, "testValue", GetString("testKey"))
}

func TestGetInt(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testInt", 42)
	assert.Equal(t, 42, GetInt("testInt"))
}

func TestGetBool(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testBool", true)
	assert.Equal(t, true, GetBool("testBool"))
}
