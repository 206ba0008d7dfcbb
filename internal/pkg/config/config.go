package config

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v9"
)

var ErrEnvironmentRequired = errors.New("ENVIRONMENT is required")

// Config holds everything the generator reads from the process environment.
type Config struct {
	Environment        string `env:"ENVIRONMENT"`
	NetworkConfig      string `env:"NETWORK_CONFIG"`
	StackName          string `env:"STACK_NAME"`
	Output             string `env:"OUTPUT" envDefault:"-"`
	SkipInvalidPeering bool   `env:"SKIP_INVALID_PEERING" envDefault:"false"`
	AWS                AWSConfig
	Log                LogConfig
}

type AWSConfig struct {
	Account string `env:"AWS_ACCOUNT"`
	Region  string `env:"AWS_REGION" envDefault:"eu-west-1"`
}

type LogConfig struct {
	Path  string `env:"LOG_PATH" envDefault:"stderr"`
	Level string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("env.Parse: %w", err)
	}
	return cfg, nil
}

// Validate is called after flag overrides have been applied.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return ErrEnvironmentRequired
	}
	if c.Output == "" {
		c.Output = "-"
	}
	return nil
}

// StackNameFor returns the configured stack name or the default
// "<network>-<environment>".
func (c *Config) StackNameFor(network string) string {
	if c.StackName != "" {
		return c.StackName
	}
	return fmt.Sprintf("%s-%s", network, c.Environment)
}
