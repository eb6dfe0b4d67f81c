package checker

import (
	"crypto/tls"
	"fmt"
	"maps"
	"strings"
	"time"
)

const (
	// DefaultIdentity is the User-Agent used when the Builder has none.
	DefaultIdentity = "httpcheck/dev"
	// DefaultPool is the connection pool shared by checks that name none.
	DefaultPool = "httpcheck"

	DefaultTimeout = 5 * time.Second
	MinTimeout     = 1 * time.Second
	MinTLSVersion  = TLSVersion(tls.VersionTLS12)
)

// Header is a single request or response header.
type Header struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

// Headers is an ordered header list. Duplicate names are allowed.
type Headers []Header

// Get returns the value of the first header named exactly name.
func (h Headers) Get(name string) (string, bool) {
	for _, hdr := range h {
		if hdr.Name == name {
			return hdr.Value, true
		}
	}
	return "", false
}

// Has reports whether a header named name exists, ignoring case.
func (h Headers) Has(name string) bool {
	for _, hdr := range h {
		if strings.EqualFold(hdr.Name, name) {
			return true
		}
	}
	return false
}

func (h Headers) Clone() Headers {
	if h == nil {
		return Headers{}
	}
	out := make(Headers, len(h))
	copy(out, h)
	return out
}

// TLSVersion is a crypto/tls version constant.
type TLSVersion uint16

func (v TLSVersion) String() string {
	switch v {
	case tls.VersionTLS10:
		return "1.0"
	case tls.VersionTLS11:
		return "1.1"
	case tls.VersionTLS12:
		return "1.2"
	case tls.VersionTLS13:
		return "1.3"
	}
	return fmt.Sprintf("0x%04x", uint16(v))
}

// ParseTLSVersion parses "1.0" through "1.3".
func ParseTLSVersion(s string) (TLSVersion, error) {
	switch strings.TrimPrefix(strings.TrimSpace(s), "TLS") {
	case "1.0", "10":
		return tls.VersionTLS10, nil
	case "1.1", "11":
		return tls.VersionTLS11, nil
	case "1.2", "12":
		return tls.VersionTLS12, nil
	case "1.3", "13":
		return tls.VersionTLS13, nil
	}
	return 0, fmt.Errorf("unknown TLS version %q", s)
}

// ClientOptions is passed through to the HTTP client. Extra carries keys the
// engine does not interpret.
type ClientOptions struct {
	Timeout         time.Duration     `yaml:"timeout"`
	MinTLSVersion   TLSVersion        `yaml:"tls_min_version"`
	Pool            string            `yaml:"pool"`
	SkipTLSVerify   bool              `yaml:"skip_tls_verify"`
	FollowRedirects *bool             `yaml:"follow_redirects"`
	Proxy           string            `yaml:"proxy"`
	BasicAuthUser   string            `yaml:"basic_auth_user"`
	BasicAuthPass   string            `yaml:"basic_auth_pass"`
	Extra           map[string]string `yaml:"extra"`
}

// DefaultClientOptions returns the options every Config starts from.
func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		Timeout:       DefaultTimeout,
		MinTLSVersion: MinTLSVersion,
		Pool:          DefaultPool,
	}
}

// merge fills unset fields from def. Values already set win, except that
// the TLS version and timeout are raised to the engine minimums.
func (o ClientOptions) merge(def ClientOptions) ClientOptions {
	out := o
	if out.Timeout == 0 {
		out.Timeout = def.Timeout
	}
	if out.Timeout < MinTimeout {
		out.Timeout = MinTimeout
	}
	out.MinTLSVersion = max(out.MinTLSVersion, def.MinTLSVersion, MinTLSVersion)
	if out.Pool == "" {
		out.Pool = def.Pool
	}
	if out.Pool == "" {
		out.Pool = DefaultPool
	}
	if out.FollowRedirects == nil {
		out.FollowRedirects = def.FollowRedirects
	}
	out.FollowRedirects = copyBool(out.FollowRedirects)
	if out.Proxy == "" {
		out.Proxy = def.Proxy
	}
	if len(def.Extra) > 0 || len(o.Extra) > 0 {
		extra := make(map[string]string, len(def.Extra)+len(o.Extra))
		maps.Copy(extra, def.Extra)
		maps.Copy(extra, o.Extra)
		out.Extra = extra
	}
	return out
}

// Options is the raw, possibly partial description of a check.
type Options struct {
	Name        string
	URL         string
	Method      string
	Headers     Headers
	RequestBody string
	Status      StatusSpec
	Body        BodySpec
	Client      ClientOptions
}

// Config is the canonical form of Options with every default applied.
// It must not be modified after Build; use the With methods instead.
type Config struct {
	Name        string
	URL         string
	Method      string
	Headers     Headers
	RequestBody string
	Status      StatusSpec
	Body        BodySpec
	Client      ClientOptions
}

func (c *Config) Clone() *Config {
	out := *c
	out.Headers = c.Headers.Clone()
	out.Client.FollowRedirects = copyBool(c.Client.FollowRedirects)
	if c.Client.Extra != nil {
		out.Client.Extra = maps.Clone(c.Client.Extra)
	}
	return &out
}

func copyBool(p *bool) *bool {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// WithBody returns a copy of c expecting spec.
func (c *Config) WithBody(spec BodySpec) *Config {
	out := c.Clone()
	out.Body = spec
	return out
}

// WithStatus returns a copy of c accepting spec.
func (c *Config) WithStatus(spec StatusSpec) *Config {
	out := c.Clone()
	out.Status = spec
	return out
}

// Builder turns Options into Configs. Identity is sent as the User-Agent
// unless a check sets its own; Client holds the defaults merged under each
// check's client options.
type Builder struct {
	Identity string
	Client   ClientOptions
}

func NewBuilder(identity string, client ClientOptions) *Builder {
	return &Builder{Identity: identity, Client: client}
}

func (b *Builder) Build(opts Options) (*Config, error) {
	if b == nil {
		b = &Builder{}
	}
	if strings.TrimSpace(opts.URL) == "" {
		return nil, fmt.Errorf("%w: url", ErrMissingRequiredField)
	}

	cfg := &Config{
		Name:        opts.Name,
		URL:         opts.URL,
		Method:      opts.Method,
		Headers:     opts.Headers.Clone(),
		RequestBody: opts.RequestBody,
		Status:      opts.Status,
		Body:        opts.Body,
	}
	if cfg.Method == "" {
		cfg.Method = "GET"
	}
	if cfg.Status.IsZero() {
		cfg.Status = Code(200)
	} else if err := cfg.Status.Validate(); err != nil {
		return nil, err
	}
	if p, ok := cfg.Body.(Pattern); ok && p.Re == nil {
		return nil, fmt.Errorf("%w: pattern without expression", ErrUnrecognizedBodySpec)
	}

	if !cfg.Headers.Has("User-Agent") {
		ua := b.Identity
		if ua == "" {
			ua = DefaultIdentity
		}
		cfg.Headers = append(cfg.Headers, Header{Name: "User-Agent", Value: ua})
	}

	def := b.Client.merge(DefaultClientOptions())
	cfg.Client = opts.Client.merge(def)

	return cfg, nil
}
