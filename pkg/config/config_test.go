package config

import (
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	var cfg Config
	require.NoError(t, env.ParseWithOptions(&cfg, env.Options{Environment: map[string]string{}}))
	cfg.Sanitize()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.Equal(t, "docqueue", cfg.Redis.KeyPrefix)
	assert.Equal(t, 2*time.Second, cfg.Redis.ProbeTimeout)
	assert.Equal(t, 2, cfg.Jobx.Concurrency)
	assert.Equal(t, 5*time.Minute, cfg.Jobx.LeaseDuration)
	assert.True(t, cfg.Jobx.InlineWorkers)
	assert.False(t, cfg.Database.Enabled)
	assert.Equal(t, StorageModeLocal, cfg.Storage.Mode)
	assert.EqualValues(t, 10<<20, cfg.Storage.MaxUploadBytes)
	assert.EqualValues(t, 4096, cfg.Analysis.MaxTokens)
}

func TestPrefixedVariables(t *testing.T) {
	var cfg Config
	require.NoError(t, env.ParseWithOptions(&cfg, env.Options{Environment: map[string]string{
		"REDIS_URL":           "redis://cache:6380/2",
		"JOBX_CONCURRENCY":    "8",
		"JOBX_LEASE_DURATION": "90s",
		"DB_ENABLED":          "true",
		"DB_HOST":             "pg",
		"STORAGE_MODE":        " S3 ",
		"ANALYSIS_MODEL":      "claude-x",
	}}))
	cfg.Sanitize()

	assert.Equal(t, "redis://cache:6380/2", cfg.Redis.URL)
	assert.Equal(t, 8, cfg.Jobx.Concurrency)
	assert.Equal(t, 90*time.Second, cfg.Jobx.LeaseDuration)
	assert.True(t, cfg.Database.Enabled)
	assert.Contains(t, cfg.Database.DSN(), "host=pg ")
	assert.Equal(t, StorageModeS3, cfg.Storage.Mode)
	assert.Equal(t, "claude-x", cfg.Analysis.Model)
}

func TestSanitizeRepairsRanges(t *testing.T) {
	cfg := Config{
		Jobx:     JobxConfig{Concurrency: 0, BackoffInterval: -1},
		Database: DatabaseConfig{MaxOpenConns: 4, MaxIdleConns: 9},
		Storage:  StorageConfig{MaxUploadBytes: -5},
	}
	cfg.Sanitize()

	assert.Equal(t, 2, cfg.Jobx.Concurrency)
	assert.Equal(t, 5*time.Second, cfg.Jobx.BackoffInterval)
	assert.Equal(t, time.Second, cfg.Jobx.IdleInterval)
	assert.Equal(t, 4, cfg.Database.MaxIdleConns)
	assert.EqualValues(t, 10<<20, cfg.Storage.MaxUploadBytes)
}
