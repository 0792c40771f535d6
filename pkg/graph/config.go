package graph

import (
	"fmt"
	"runtime"
	"time"
)

// Config holds run-wide execution limits.
type Config struct {
	Name           string
	MaxConcurrency int
	MaxSteps       int
	Timeout        time.Duration
}

// DefaultConfig returns a config bounded by the host CPU count.
func DefaultConfig(name string) Config {
	return Config{
		Name:           name,
		MaxConcurrency: runtime.NumCPU(),
		MaxSteps:       64,
	}
}

func (c Config) validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: name required", ErrInvalidConfig)
	}
	if c.MaxConcurrency < 1 {
		return fmt.Errorf("%w: max concurrency must be positive", ErrInvalidConfig)
	}
	if c.MaxSteps < 1 {
		return fmt.Errorf("%w: max steps must be positive", ErrInvalidConfig)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: negative timeout", ErrInvalidConfig)
	}
	return nil
}
