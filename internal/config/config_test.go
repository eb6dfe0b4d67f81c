package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/y0f/httpcheck/internal/checker"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Client.Timeout != 5*time.Second {
		t.Fatalf("expected 5s client timeout, got %s", cfg.Client.Timeout)
	}
	if cfg.Client.UserAgent != checker.DefaultIdentity {
		t.Fatalf("expected default user agent, got %s", cfg.Client.UserAgent)
	}
	if cfg.Runner.Workers != 4 {
		t.Fatalf("expected 4 workers, got %d", cfg.Runner.Workers)
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("expected info log level, got %s", cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errSub string
	}{
		{
			name:   "client timeout too small",
			modify: func(c *Config) { c.Client.Timeout = 100 * time.Millisecond },
			errSub: "client.timeout",
		},
		{
			name:   "bad proxy scheme",
			modify: func(c *Config) { c.Client.Proxy = "ftp://proxy:21" },
			errSub: "client.proxy",
		},
		{
			name:   "zero workers",
			modify: func(c *Config) { c.Runner.Workers = 0 },
			errSub: "runner.workers",
		},
		{
			name:   "negative rate limit",
			modify: func(c *Config) { c.Runner.RateLimitPerSec = -1 },
			errSub: "rate_limit_per_sec",
		},
		{
			name:   "zero burst",
			modify: func(c *Config) { c.Runner.RateLimitBurst = 0 },
			errSub: "rate_limit_burst",
		},
		{
			name:   "check timeout below client timeout",
			modify: func(c *Config) { c.Runner.CheckTimeout = time.Second },
			errSub: "check_timeout",
		},
		{
			name:   "check without name",
			modify: func(c *Config) { c.Checks = []checker.Options{{URL: "http://x"}} },
			errSub: "checks[0].name",
		},
		{
			name: "duplicate check name",
			modify: func(c *Config) {
				c.Checks = []checker.Options{{Name: "a", URL: "http://x"}, {Name: "a", URL: "http://y"}}
			},
			errSub: "duplicated",
		},
		{
			name:   "check without url",
			modify: func(c *Config) { c.Checks = []checker.Options{{Name: "a"}} },
			errSub: "checks[0].url",
		},
		{
			name:   "invalid log level",
			modify: func(c *Config) { c.Logging.Level = "verbose" },
			errSub: "logging.level",
		},
		{
			name:   "invalid log format",
			modify: func(c *Config) { c.Logging.Format = "xml" },
			errSub: "logging.format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.errSub) {
				t.Fatalf("error %q should mention %q", err, tt.errSub)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("HTTPCHECK_TEST_HOST", "api.example.com")

	content := `
client:
  user_agent: acme-probe/2.1
  timeout: 8s
runner:
  workers: 2
logging:
  level: debug
  format: json
checks:
  - name: api
    url: https://${HTTPCHECK_TEST_HOST}/health
    status: ["200-204", 304]
    expect:
      pattern: ok
  - name: home
    url: https://www.example.com/
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Client.UserAgent != "acme-probe/2.1" {
		t.Fatalf("user agent = %q", cfg.Client.UserAgent)
	}
	if cfg.Client.Timeout != 8*time.Second {
		t.Fatalf("timeout = %s", cfg.Client.Timeout)
	}
	if cfg.Runner.Workers != 2 || cfg.Runner.RateLimitPerSec != 10 {
		t.Fatalf("runner = %+v", cfg.Runner)
	}
	if len(cfg.Checks) != 2 {
		t.Fatalf("expected 2 checks, got %d", len(cfg.Checks))
	}

	api, ok := cfg.LookupCheck("api")
	if !ok {
		t.Fatal("api check not found")
	}
	if api.URL != "https://api.example.com/health" {
		t.Fatalf("env not expanded: %s", api.URL)
	}
	if !checker.Matches(304, api.Status) || checker.Matches(205, api.Status) {
		t.Fatalf("status = %s", api.Status)
	}
	if _, ok := api.Body.(checker.Pattern); !ok {
		t.Fatalf("body spec = %#v", api.Body)
	}
	if _, ok := cfg.LookupCheck("missing"); ok {
		t.Fatal("unexpected check")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error")
	}
}

func TestParseInvalidCheck(t *testing.T) {
	_, err := Parse([]byte("checks:\n  - name: a\n    url: http://x\n    status: 300-200\n"))
	if err == nil || !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestBuilderUsesConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Client.UserAgent = "acme/1"
	cfg.Client.Timeout = 7 * time.Second
	cfg.Client.Pool = "acme"

	built, err := cfg.Builder().Build(checker.Options{URL: "http://x"})
	if err != nil {
		t.Fatal(err)
	}
	if ua, _ := built.Headers.Get("User-Agent"); ua != "acme/1" {
		t.Fatalf("user agent = %q", ua)
	}
	if built.Client.Timeout != 7*time.Second || built.Client.Pool != "acme" {
		t.Fatalf("client options = %+v", built.Client)
	}
}
