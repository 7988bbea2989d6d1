package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docgrind/internal/platform/config"
)

func TestNewRequiresDataPath(t *testing.T) {
	t.Parallel()
	_, err := config.New("")
	assert.Error(t, err)

	cfg, err := config.New("/tmp/books")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/books", ".docgrind", "docgrind.db"), cfg.DBPath)
	assert.Equal(t, 100*time.Millisecond, cfg.Tracker.ScrollDebounce)
	assert.Equal(t, int64(5*1024*1024), cfg.Storage.MaxSizeBytes)
	assert.Equal(t, config.DefaultThresholds(), cfg.Tracker.Thresholds)
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	body := `
tracker:
  scroll_debounce: 250ms
  average_reading_speed: 240
storage:
  compression: false
  max_size_bytes: 2048
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName), []byte(body), 0o644))

	cfg, err := config.Load(dir, "")
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, cfg.Tracker.ScrollDebounce)
	assert.Equal(t, 240.0, cfg.Tracker.AverageReadingSpeed)
	assert.False(t, cfg.Storage.Compression)
	assert.Equal(t, int64(2048), cfg.Storage.MaxSizeBytes)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "body", cfg.Tracker.ContainerSelector)
	assert.Equal(t, 5*time.Second, cfg.Tracker.AutoSaveInterval)
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := config.Load(t.TempDir(), "")
	require.NoError(t, err)
	assert.True(t, cfg.Storage.Compression)

	_, err = config.Load(t.TempDir(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidateNamesTheBadField(t *testing.T) {
	t.Parallel()
	cfg := config.Defaults()
	cfg.Tracker.Thresholds = []float64{0, 1.5}
	err := cfg.Validate()
	var cerr config.ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "tracker.intersection_thresholds", cerr.Field)

	cfg = config.Defaults()
	cfg.Storage.KeyPrefix = " "
	require.ErrorAs(t, cfg.Validate(), &cerr)
	assert.Equal(t, "storage.key_prefix", cerr.Field)
}
