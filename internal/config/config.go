// Package config reads the server configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"
)

// DevSecret signs tokens when JWT_SECRET is unset.
const DevSecret = "folio-development-secret-change-me"

type Config struct {
	Port     int
	DataDir  string
	LogLevel string
	RedisURL string

	JWTSecret string
	JWTTTL    time.Duration

	ArticleCount int
	ArticleSeed  uint64

	RateLimitRPS   float64
	RateLimitBurst int
	// Networks whose X-Forwarded-For and X-Real-IP headers are believed.
	TrustedProxies []netip.Prefix
}

// Load builds a Config from environment variables. Values that are set but
// do not parse are reported together.
func Load() (*Config, error) {
	var errs []error

	cfg := &Config{
		DataDir:   getEnvOrDefault("DATA_DIR", "./data"),
		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		RedisURL:  getEnvOrDefault("REDIS_URL", "redis://localhost:6379"),
		JWTSecret: getEnvOrDefault("JWT_SECRET", DevSecret),
	}

	var err error
	if cfg.Port, err = strconv.Atoi(getEnvOrDefault("PORT", "8080")); err != nil {
		errs = append(errs, fmt.Errorf("PORT: %w", err))
	}
	if cfg.JWTTTL, err = time.ParseDuration(getEnvOrDefault("JWT_TTL", "24h")); err != nil {
		errs = append(errs, fmt.Errorf("JWT_TTL: %w", err))
	}
	if cfg.ArticleCount, err = strconv.Atoi(getEnvOrDefault("ARTICLE_COUNT", "20")); err != nil {
		errs = append(errs, fmt.Errorf("ARTICLE_COUNT: %w", err))
	}
	if cfg.ArticleSeed, err = strconv.ParseUint(getEnvOrDefault("ARTICLE_SEED", "1"), 10, 64); err != nil {
		errs = append(errs, fmt.Errorf("ARTICLE_SEED: %w", err))
	}
	if cfg.RateLimitRPS, err = strconv.ParseFloat(getEnvOrDefault("RATE_LIMIT_RPS", "5"), 64); err != nil {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_RPS: %w", err))
	}
	if cfg.RateLimitBurst, err = strconv.Atoi(getEnvOrDefault("RATE_LIMIT_BURST", "10")); err != nil {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_BURST: %w", err))
	}
	for _, cidr := range strings.Split(os.Getenv("TRUSTED_PROXIES"), ",") {
		if cidr = strings.TrimSpace(cidr); cidr == "" {
			continue
		}
		p, perr := netip.ParsePrefix(cidr)
		if perr != nil {
			errs = append(errs, fmt.Errorf("TRUSTED_PROXIES: %w", perr))
			continue
		}
		cfg.TrustedProxies = append(cfg.TrustedProxies, p.Masked())
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("PORT out of range: %d", c.Port)
	case c.JWTTTL <= 0:
		return errors.New("JWT_TTL must be positive")
	case c.ArticleCount < 0:
		return errors.New("ARTICLE_COUNT must not be negative")
	case c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0:
		return errors.New("rate limit settings must be positive")
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

// UsingDevSecret reports whether tokens are signed with DevSecret.
func (c *Config) UsingDevSecret() bool {
	return c.JWTSecret == DevSecret
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
