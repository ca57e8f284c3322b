package config

import (
	"fmt"
	"time"
)

// DatabaseConfig configures the PostgreSQL result store. Results are kept
// only on the job record when Enabled is false.
type DatabaseConfig struct {
	Enabled         bool          `env:"ENABLED"           envDefault:"false"`
	Host            string        `env:"HOST"              envDefault:"localhost"`
	Port            int           `env:"PORT"              envDefault:"5432"`
	User            string        `env:"USER"              envDefault:"docqueue"`
	Password        string        `env:"PASSWORD"          envDefault:"docqueue"`
	Name            string        `env:"NAME"              envDefault:"docqueue"`
	SSLMode         string        `env:"SSL_MODE"          envDefault:"disable"`
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS"    envDefault:"10"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS"    envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"30m"`
	MigrateOnStart  bool          `env:"MIGRATE_ON_START"  envDefault:"true"`
}

func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

func (d *DatabaseConfig) Sanitize() {
	if d.MaxOpenConns < 1 {
		d.MaxOpenConns = 10
	}
	if d.MaxIdleConns < 0 || d.MaxIdleConns > d.MaxOpenConns {
		d.MaxIdleConns = d.MaxOpenConns
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}
}
