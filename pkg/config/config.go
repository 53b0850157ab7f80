package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	mu     sync.Mutex
	loaded = make(map[string]any)

	dotenvOnce sync.Once
)

// Load populates cfg from environment variables using `env` struct tags.
// Each configuration type is parsed at most once per process; repeated calls
// for the same type return the cached value so every component sees the same
// configuration regardless of load order.
//
// A .env file in the working directory is loaded lazily on first use. A
// missing file is not an error - production deployments configure the
// environment directly.
//
// Example:
//
//	type StripeConfig struct {
//		SecretKey string `env:"STRIPE_SECRET_KEY,required"`
//		Currency  string `env:"STRIPE_CURRENCY" envDefault:"usd"`
//	}
//
//	var cfg StripeConfig
//	if err := config.Load(&cfg); err != nil { ... }
func Load[T any](cfg *T) error {
	if cfg == nil {
		return ErrNilPointer
	}

	dotenvOnce.Do(func() {
		_ = godotenv.Load()
	})

	key := typeKey[T]()

	mu.Lock()
	defer mu.Unlock()

	if cached, ok := loaded[key]; ok {
		*cfg = cached.(T)
		return nil
	}

	if err := env.Parse(cfg); err != nil {
		return errors.Join(ErrParseFailed, err)
	}

	// Cache a copy so later mutations by the caller do not leak into
	// other components loading the same type.
	loaded[key] = *cfg
	return nil
}

// MustLoad is Load for configuration the process cannot start without.
func MustLoad[T any](cfg *T) {
	if err := Load(cfg); err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
}

// LoadEnv loads one or more env files before any configuration is parsed.
// Later files take precedence over earlier ones. Unlike the implicit .env
// handling in Load, a missing file here is an error because the caller asked
// for it explicitly.
func LoadEnv(paths ...string) error {
	if err := godotenv.Overload(paths...); err != nil {
		return errors.Join(ErrEnvFileNotFound, err)
	}
	return nil
}

// Reset drops all cached configuration. Intended for tests that need to
// reload the same type with different environment values.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	loaded = make(map[string]any)
}

func typeKey[T any]() string {
	var zero T
	if t := reflect.TypeOf(zero); t != nil {
		return t.String()
	}
	return fmt.Sprintf("%T", *new(T))
}
