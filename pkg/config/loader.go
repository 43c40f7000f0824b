package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Load parses environment variables into the provided struct using `env`
// tags. Parsing only covers types and presence; semantic checks (secret
// length, expiry ordering, production-vs-development rules) belong to the
// caller's Validate step.
//
// Example:
//
//	type Config struct {
//	    Port            int           `env:"AUTH_HTTP_PORT" envDefault:"8001"`
//	    AccessTokenTTL  time.Duration `env:"JWT_ACCESS_TOKEN_EXPIRY" envDefault:"15m"`
//	    JWTAccessSecret string        `env:"JWT_ACCESS_SECRET"`
//	}
func Load(cfg any) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}
