package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	EnvCacheEnabled = "ATTEST_CACHE_ENABLED"
	EnvCacheURL     = "ATTEST_CACHE_URL"
	EnvCacheTTL     = "ATTEST_CACHE_TTL"
	EnvCachePrefix  = "ATTEST_CACHE_PREFIX"
)

// CacheConfig holds the Redis verdict cache settings.
type CacheConfig struct {
	Enabled bool   `toml:"enabled"`
	URL     string `toml:"url"`
	TTL     string `toml:"ttl"`
	Prefix  string `toml:"prefix"`
}

// TTLDuration returns TTL as a time.Duration.
func (c *CacheConfig) TTLDuration() time.Duration {
	d, _ := time.ParseDuration(c.TTL)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *CacheConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites fields from overlay. Enabled always applies.
func (c *CacheConfig) Merge(overlay *CacheConfig) {
	c.Enabled = overlay.Enabled
	if overlay.URL != "" {
		c.URL = overlay.URL
	}
	if overlay.TTL != "" {
		c.TTL = overlay.TTL
	}
	if overlay.Prefix != "" {
		c.Prefix = overlay.Prefix
	}
}

func (c *CacheConfig) loadDefaults() {
	if c.URL == "" {
		c.URL = "redis://localhost:6379/0"
	}
	if c.TTL == "" {
		c.TTL = "24h"
	}
	if c.Prefix == "" {
		c.Prefix = "attest:verdict:"
	}
}

func (c *CacheConfig) loadEnv() {
	if v := os.Getenv(EnvCacheEnabled); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			c.Enabled = enabled
		}
	}
	if v := os.Getenv(EnvCacheURL); v != "" {
		c.URL = v
	}
	if v := os.Getenv(EnvCacheTTL); v != "" {
		c.TTL = v
	}
	if v := os.Getenv(EnvCachePrefix); v != "" {
		c.Prefix = v
	}
}

func (c *CacheConfig) validate() error {
	ttl, err := time.ParseDuration(c.TTL)
	if err != nil {
		return fmt.Errorf("invalid ttl: %w", err)
	}
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive: %s", c.TTL)
	}
	return nil
}
