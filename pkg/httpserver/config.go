package httpserver

import "time"

// Config carries server settings read from the environment.
type Config struct {
	Addr            string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

// NewFromConfig creates a Server from environment-driven configuration.
// Zero values keep the package defaults.
func NewFromConfig(cfg Config, opts ...Option) *Server {
	configured := make([]Option, 0, 5+len(opts))
	if cfg.Addr != "" {
		configured = append(configured, WithAddr(cfg.Addr))
	}
	if cfg.ReadTimeout > 0 {
		configured = append(configured, WithReadTimeout(cfg.ReadTimeout))
	}
	if cfg.WriteTimeout > 0 {
		configured = append(configured, WithWriteTimeout(cfg.WriteTimeout))
	}
	if cfg.IdleTimeout > 0 {
		configured = append(configured, WithIdleTimeout(cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout > 0 {
		configured = append(configured, WithShutdownTimeout(cfg.ShutdownTimeout))
	}
	configured = append(configured, opts...)
	return New(configured...)
}
