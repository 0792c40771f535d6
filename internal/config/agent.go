package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	EnvAgentProject     = "ATTEST_AGENT_PROJECT"
	EnvAgentLocation    = "ATTEST_AGENT_LOCATION"
	EnvAgentModel       = "ATTEST_AGENT_MODEL"
	EnvAgentTemperature = "ATTEST_AGENT_TEMPERATURE"
	EnvAgentCallTimeout = "ATTEST_AGENT_CALL_TIMEOUT"
)

// AgentConfig selects the Vertex AI model backing the segment, extract,
// logo and judge collaborators.
type AgentConfig struct {
	Project     string   `toml:"project"`
	Location    string   `toml:"location"`
	Model       string   `toml:"model"`
	Temperature *float32 `toml:"temperature"`
	CallTimeout string   `toml:"call_timeout"`
}

// CallTimeoutDuration returns CallTimeout as a time.Duration.
func (c *AgentConfig) CallTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.CallTimeout)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
// Project is not required here so that commands which never call the model
// can load configuration without one.
func (c *AgentConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *AgentConfig) Merge(overlay *AgentConfig) {
	if overlay.Project != "" {
		c.Project = overlay.Project
	}
	if overlay.Location != "" {
		c.Location = overlay.Location
	}
	if overlay.Model != "" {
		c.Model = overlay.Model
	}
	if overlay.Temperature != nil {
		t := *overlay.Temperature
		c.Temperature = &t
	}
	if overlay.CallTimeout != "" {
		c.CallTimeout = overlay.CallTimeout
	}
}

func (c *AgentConfig) loadDefaults() {
	if c.Location == "" {
		c.Location = "us-central1"
	}
	if c.Model == "" {
		c.Model = "gemini-2.0-flash"
	}
	if c.Temperature == nil {
		var t float32
		c.Temperature = &t
	}
	if c.CallTimeout == "" {
		c.CallTimeout = "2m"
	}
}

func (c *AgentConfig) loadEnv() {
	if v := os.Getenv(EnvAgentProject); v != "" {
		c.Project = v
	}
	if v := os.Getenv(EnvAgentLocation); v != "" {
		c.Location = v
	}
	if v := os.Getenv(EnvAgentModel); v != "" {
		c.Model = v
	}
	if v := os.Getenv(EnvAgentTemperature); v != "" {
		if t, err := strconv.ParseFloat(v, 32); err == nil {
			f := float32(t)
			c.Temperature = &f
		}
	}
	if v := os.Getenv(EnvAgentCallTimeout); v != "" {
		c.CallTimeout = v
	}
}

func (c *AgentConfig) validate() error {
	if t := *c.Temperature; t < 0 || t > 2 {
		return fmt.Errorf("temperature must be within [0, 2]: %v", t)
	}
	if _, err := time.ParseDuration(c.CallTimeout); err != nil {
		return fmt.Errorf("invalid call_timeout: %w", err)
	}
	return nil
}
