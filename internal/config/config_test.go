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

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, ReferenceCSV, cfg.ReferenceSource)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, int64(42), cfg.RandomSeed)
	assert.Equal(t, 0.2, cfg.TestSize)
	assert.True(t, cfg.MetricsEnabled)
	assert.Equal(t, filepath.Join("data", "processed", "visa_applications_cleaned.csv"), cfg.CleanDataPath())
}

func TestLoadEnvFileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "pipeline.env")
	require.NoError(t, os.WriteFile(envFile, []byte("PORT=9090\nRANDOM_SEED=7\nDATA_DIR=/srv/data\n"), 0o644))
	t.Setenv("TEST_SIZE", "0.25")

	v := viper.New()
	v.SetConfigFile(envFile)
	cfg, err := LoadWith(v)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, int64(7), cfg.RandomSeed)
	assert.Equal(t, 0.25, cfg.TestSize)
	assert.Equal(t, filepath.Join("/srv/data", "raw", "visa_applications_raw.csv"), cfg.RawDataPath())
}

func TestValidate(t *testing.T) {
	base := Config{ReferenceSource: ReferenceCSV, TestSize: 0.2}
	assert.NoError(t, base.Validate())

	c := base
	c.ReferenceSource = ReferencePostgres
	assert.Error(t, c.Validate())
	c.DatabaseURL = "postgres://localhost/visa"
	assert.NoError(t, c.Validate())

	c = base
	c.ReferenceSource = "s3"
	assert.Error(t, c.Validate())

	c = base
	c.TestSize = 1
	assert.Error(t, c.Validate())
}
