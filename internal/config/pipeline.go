package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	EnvPipelineTimeout         = "ATTEST_PIPELINE_TIMEOUT"
	EnvPipelineMaxConcurrency  = "ATTEST_PIPELINE_MAX_CONCURRENCY"
	EnvPipelineMaxEditDistance = "ATTEST_PIPELINE_MAX_EDIT_DISTANCE"
	EnvPipelineMinFuzzyLength  = "ATTEST_PIPELINE_MIN_FUZZY_LENGTH"
	EnvPipelineJudgeMode       = "ATTEST_PIPELINE_JUDGE_MODE"
	EnvPipelineDPI             = "ATTEST_PIPELINE_DPI"
)

// Judge modes.
const (
	JudgeRules = "rules"
	JudgeAgent = "agent"
)

// PipelineConfig tunes the validation run.
//
// MaxEditDistance is a pointer so that an explicit zero (exact token
// matching) survives defaults and merges.
type PipelineConfig struct {
	Timeout         string              `toml:"timeout"`
	MaxConcurrency  int                 `toml:"max_concurrency"`
	MaxEditDistance *int                `toml:"max_edit_distance"`
	MinFuzzyLength  int                 `toml:"min_fuzzy_length"`
	JudgeMode       string              `toml:"judge_mode"`
	DPI             int                 `toml:"dpi"`
	Organizations   map[string][]string `toml:"organizations"`
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *PipelineConfig) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// EditDistance returns the configured typo tolerance.
func (c *PipelineConfig) EditDistance() int {
	if c.MaxEditDistance == nil {
		return 1
	}
	return *c.MaxEditDistance
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *PipelineConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay. An overlay organizations
// table replaces the base table entirely.
func (c *PipelineConfig) Merge(overlay *PipelineConfig) {
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
	if overlay.MaxConcurrency != 0 {
		c.MaxConcurrency = overlay.MaxConcurrency
	}
	if overlay.MaxEditDistance != nil {
		d := *overlay.MaxEditDistance
		c.MaxEditDistance = &d
	}
	if overlay.MinFuzzyLength != 0 {
		c.MinFuzzyLength = overlay.MinFuzzyLength
	}
	if overlay.JudgeMode != "" {
		c.JudgeMode = overlay.JudgeMode
	}
	if overlay.DPI != 0 {
		c.DPI = overlay.DPI
	}
	if overlay.Organizations != nil {
		c.Organizations = overlay.Organizations
	}
}

func (c *PipelineConfig) loadDefaults() {
	if c.Timeout == "" {
		c.Timeout = "10m"
	}
	if c.MaxConcurrency == 0 {
		c.MaxConcurrency = 8
	}
	if c.MaxEditDistance == nil {
		d := 1
		c.MaxEditDistance = &d
	}
	if c.MinFuzzyLength == 0 {
		c.MinFuzzyLength = 4
	}
	if c.JudgeMode == "" {
		c.JudgeMode = JudgeRules
	}
	if c.DPI == 0 {
		c.DPI = 300
	}
}

func (c *PipelineConfig) loadEnv() {
	if v := os.Getenv(EnvPipelineTimeout); v != "" {
		c.Timeout = v
	}
	if v := os.Getenv(EnvPipelineMaxConcurrency); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxConcurrency = n
		}
	}
	if v := os.Getenv(EnvPipelineMaxEditDistance); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxEditDistance = &n
		}
	}
	if v := os.Getenv(EnvPipelineMinFuzzyLength); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MinFuzzyLength = n
		}
	}
	if v := os.Getenv(EnvPipelineJudgeMode); v != "" {
		c.JudgeMode = v
	}
	if v := os.Getenv(EnvPipelineDPI); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.DPI = n
		}
	}
}

func (c *PipelineConfig) validate() error {
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	if c.MaxConcurrency < 1 {
		return fmt.Errorf("max_concurrency must be positive: %d", c.MaxConcurrency)
	}
	if *c.MaxEditDistance < 0 {
		return fmt.Errorf("max_edit_distance must not be negative: %d", *c.MaxEditDistance)
	}
	if c.JudgeMode != JudgeRules && c.JudgeMode != JudgeAgent {
		return fmt.Errorf("invalid judge_mode %q: expected %q or %q", c.JudgeMode, JudgeRules, JudgeAgent)
	}
	if c.DPI < 72 || c.DPI > 1200 {
		return fmt.Errorf("dpi out of range [72, 1200]: %d", c.DPI)
	}
	for name, aliases := range c.Organizations {
		if name == "" {
			return fmt.Errorf("organization name must not be empty")
		}
		if len(aliases) == 0 {
			return fmt.Errorf("organization %s has no aliases", name)
		}
	}
	return nil
}
