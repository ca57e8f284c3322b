// Package config loads process configuration from the environment. A .env
// file in the working directory is read first when present.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the root configuration of the server and worker processes.
type Config struct {
	Server   ServerConfig
	Redis    RedisConfig    `envPrefix:"REDIS_"`
	Jobx     JobxConfig     `envPrefix:"JOBX_"`
	Database DatabaseConfig `envPrefix:"DB_"`
	Storage  StorageConfig
	Analysis AnalysisConfig `envPrefix:"ANALYSIS_"`
}

// Load reads .env (if any), parses the environment and sanitizes the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("load .env file: %w", err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.Sanitize()
	return &cfg, nil
}

// Sanitize replaces out-of-range values with their defaults.
func (c *Config) Sanitize() {
	c.Server.Sanitize()
	c.Jobx.Sanitize()
	c.Database.Sanitize()
	c.Storage.Sanitize()
	c.Analysis.Sanitize()
}
