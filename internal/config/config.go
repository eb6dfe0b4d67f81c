package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/y0f/httpcheck/internal/checker"
)

type Config struct {
	Client  ClientConfig      `yaml:"client"`
	Runner  RunnerConfig      `yaml:"runner"`
	Logging LoggingConfig     `yaml:"logging"`
	Checks  []checker.Options `yaml:"checks"`
}

type ClientConfig struct {
	UserAgent           string        `yaml:"user_agent"`
	Timeout             time.Duration `yaml:"timeout"`
	Pool                string        `yaml:"pool"`
	Proxy               string        `yaml:"proxy"`
	AllowPrivateTargets bool          `yaml:"allow_private_targets"`
}

type RunnerConfig struct {
	Workers         int           `yaml:"workers"`
	RateLimitPerSec float64       `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int           `yaml:"rate_limit_burst"`
	CheckTimeout    time.Duration `yaml:"check_timeout"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

func Defaults() *Config {
	return &Config{
		Client: ClientConfig{
			UserAgent: checker.DefaultIdentity,
			Timeout:   checker.DefaultTimeout,
			Pool:      checker.DefaultPool,
		},
		Runner: RunnerConfig{
			Workers:         4,
			RateLimitPerSec: 10,
			RateLimitBurst:  10,
			CheckTimeout:    30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML document over Defaults. Environment variables are
// expanded first.
func Parse(data []byte) (*Config, error) {
	cfg := Defaults()

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := c.validateClient(); err != nil {
		return err
	}
	if err := c.validateRunner(); err != nil {
		return err
	}
	if err := c.validateChecks(); err != nil {
		return err
	}
	return validateLogging(c.Logging)
}

func (c *Config) validateClient() error {
	if c.Client.Timeout < checker.MinTimeout {
		return fmt.Errorf("client.timeout must be at least %s", checker.MinTimeout)
	}
	if c.Client.Proxy != "" {
		scheme, _, ok := strings.Cut(c.Client.Proxy, "://")
		if !ok || (scheme != "http" && scheme != "https" && scheme != "socks5" && scheme != "socks5h") {
			return fmt.Errorf("client.proxy must be an http, https or socks5 URL")
		}
	}
	return nil
}

func (c *Config) validateRunner() error {
	if c.Runner.Workers <= 0 {
		return fmt.Errorf("runner.workers must be positive")
	}
	if c.Runner.RateLimitPerSec <= 0 {
		return fmt.Errorf("runner.rate_limit_per_sec must be positive")
	}
	if c.Runner.RateLimitBurst <= 0 {
		return fmt.Errorf("runner.rate_limit_burst must be positive")
	}
	if c.Runner.CheckTimeout < c.Client.Timeout {
		return fmt.Errorf("runner.check_timeout must not be shorter than client.timeout")
	}
	return nil
}

func (c *Config) validateChecks() error {
	seen := make(map[string]bool, len(c.Checks))
	for i, chk := range c.Checks {
		if strings.TrimSpace(chk.Name) == "" {
			return fmt.Errorf("checks[%d].name is required", i)
		}
		if seen[chk.Name] {
			return fmt.Errorf("checks[%d].name %q is duplicated", i, chk.Name)
		}
		seen[chk.Name] = true
		if strings.TrimSpace(chk.URL) == "" {
			return fmt.Errorf("checks[%d].url is required", i)
		}
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	switch strings.ToLower(l.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	switch l.Format {
	case "text", "json":
		return nil
	}
	return fmt.Errorf("logging.format must be text or json")
}

// ClientDefaults returns the engine-wide client options every check is
// merged over.
func (c *Config) ClientDefaults() checker.ClientOptions {
	return checker.ClientOptions{
		Timeout: c.Client.Timeout,
		Pool:    c.Client.Pool,
		Proxy:   c.Client.Proxy,
	}
}

// Builder returns a checker.Builder carrying the configured identity and
// client defaults.
func (c *Config) Builder() *checker.Builder {
	return checker.NewBuilder(c.Client.UserAgent, c.ClientDefaults())
}

// LookupCheck returns the check named name.
func (c *Config) LookupCheck(name string) (checker.Options, bool) {
	for _, chk := range c.Checks {
		if chk.Name == name {
			return chk, true
		}
	}
	return checker.Options{}, false
}
