package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
data_dir: /srv/traces
cache:
  compression: xz
batch:
  pattern: "**/*.pcap"
  num_workers: 4
capture:
  interface: eth0
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/traces", cfg.DataDir)
	assert.Equal(t, "./out", cfg.OutDir)
	assert.Equal(t, "xz", cfg.Cache.Compression)
	assert.Equal(t, 4, cfg.Batch.NumWorkers)
	assert.Equal(t, "eth0", cfg.Capture.Interface)
	assert.Equal(t, int32(1600), cfg.Capture.SnapshotLen)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cache:\n  compression: zip\nbatch:\n  num_workers: 0\n"), 0644))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compression")
	assert.Contains(t, err.Error(), "num_workers")

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestApplyOverrides(t *testing.T) {
	t.Setenv("NETENTROPY_DATA_DIR", "/env/data")
	t.Setenv("NETENTROPY_BATCH_NUM_WORKERS", "8")
	t.Setenv("NETENTROPY_REPORT_CLICKHOUSE_ENABLED", "true")

	v := NewViper()
	v.Set("cache.compression", "xz")
	v.Set("log.level", "debug")

	cfg := Default()
	cfg.ApplyOverrides(v)
	assert.Equal(t, "/env/data", cfg.DataDir)
	assert.Equal(t, 8, cfg.Batch.NumWorkers)
	assert.True(t, cfg.Report.ClickHouse.Enabled)
	assert.Equal(t, "xz", cfg.Cache.Compression)
	assert.Equal(t, "debug", cfg.Log.Level)

	// Keys that are not set keep the file or default value.
	assert.Equal(t, "./out", cfg.OutDir)
	assert.Equal(t, "*.pcap", cfg.Batch.Pattern)
	assert.True(t, cfg.Capture.Promiscuous)
	assert.NoError(t, cfg.Validate())
}

func TestSampleConfigIsValid(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("..", "..", "configs", "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Batch.NumWorkers)
	assert.Equal(t, "netentropy.frames", cfg.Probe.Subject)
	assert.False(t, cfg.Report.ClickHouse.Enabled)
}
