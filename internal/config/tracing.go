package config

import (
	"fmt"
	"os"
	"strconv"
)

const (
	EnvTracingEnabled     = "ATTEST_TRACING_ENABLED"
	EnvTracingEndpoint    = "ATTEST_TRACING_ENDPOINT"
	EnvTracingServiceName = "ATTEST_TRACING_SERVICE_NAME"
	EnvTracingSampleRatio = "ATTEST_TRACING_SAMPLE_RATIO"
)

// TracingConfig controls OTLP span export. When disabled the global no-op
// tracer provider stays in place and spans cost nothing.
type TracingConfig struct {
	Enabled     bool    `toml:"enabled"`
	Endpoint    string  `toml:"endpoint"`
	ServiceName string  `toml:"service_name"`
	SampleRatio float64 `toml:"sample_ratio"`
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *TracingConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites fields from overlay. Enabled always applies.
func (c *TracingConfig) Merge(overlay *TracingConfig) {
	c.Enabled = overlay.Enabled
	if overlay.Endpoint != "" {
		c.Endpoint = overlay.Endpoint
	}
	if overlay.ServiceName != "" {
		c.ServiceName = overlay.ServiceName
	}
	if overlay.SampleRatio != 0 {
		c.SampleRatio = overlay.SampleRatio
	}
}

func (c *TracingConfig) loadDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4317"
	}
	if c.ServiceName == "" {
		c.ServiceName = "attest"
	}
	if c.SampleRatio == 0 {
		c.SampleRatio = 1
	}
}

func (c *TracingConfig) loadEnv() {
	if v := os.Getenv(EnvTracingEnabled); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			c.Enabled = enabled
		}
	}
	if v := os.Getenv(EnvTracingEndpoint); v != "" {
		c.Endpoint = v
	}
	if v := os.Getenv(EnvTracingServiceName); v != "" {
		c.ServiceName = v
	}
	if v := os.Getenv(EnvTracingSampleRatio); v != "" {
		if r, err := strconv.ParseFloat(v, 64); err == nil {
			c.SampleRatio = r
		}
	}
}

func (c *TracingConfig) validate() error {
	if c.SampleRatio < 0 || c.SampleRatio > 1 {
		return fmt.Errorf("sample_ratio must be within [0, 1]: %v", c.SampleRatio)
	}
	return nil
}
