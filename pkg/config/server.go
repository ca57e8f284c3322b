package config

import "time"

// ServerConfig configures the HTTP front end.
type ServerConfig struct {
	Port            string        `env:"PORT"                  envDefault:"8080"`
	CORSOrigins     string        `env:"CORS_ORIGINS"          envDefault:"*"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT"     envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	Debug           bool          `env:"DEBUG"                 envDefault:"false"`
}

func (s *ServerConfig) Sanitize() {
	if s.Port == "" {
		s.Port = "8080"
	}
	if s.CORSOrigins == "" {
		s.CORSOrigins = "*"
	}
	if s.ReadTimeout <= 0 {
		s.ReadTimeout = 30 * time.Second
	}
	if s.ShutdownTimeout <= 0 {
		s.ShutdownTimeout = 30 * time.Second
	}
}
