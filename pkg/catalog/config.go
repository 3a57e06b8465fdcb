package catalog

import (
	"errors"
	"time"
)

// Config represents the configuration for the product API client
type Config struct {
	// BaseURL is the product API root, without the /v1 suffix
	BaseURL string

	// Timeout bounds each HTTP call
	Timeout time.Duration

	// BreakerTimeout is how long the circuit stays open before a trial request
	BreakerTimeout time.Duration

	// BreakerThreshold is the number of consecutive failures that opens the circuit
	BreakerThreshold uint32
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("catalog: API_URL is not configured")
	}
	return nil
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.Timeout <= 0 {
		out.Timeout = 10 * time.Second
	}
	if out.BreakerTimeout <= 0 {
		out.BreakerTimeout = 30 * time.Second
	}
	if out.BreakerThreshold == 0 {
		out.BreakerThreshold = 5
	}
	return out
}
