package checker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Entry is the top-level check: issue the request and evaluate the response.
type Entry interface {
	Check(ctx context.Context, e *Engine, cfg *Config) (Verdict, error)
}

// Orchestrator sequences status matching and body comparison.
type Orchestrator interface {
	Orchestrate(e *Engine, resp *Response, cfg *Config) (Verdict, error)
}

// BodyComparator validates a response body against a BodySpec.
type BodyComparator interface {
	Compare(e *Engine, contentType, body string, spec BodySpec, cfg *Config) (Verdict, error)
}

// StatusMatcher decides whether a status code satisfies a StatusSpec.
type StatusMatcher interface {
	Match(code int, spec StatusSpec) bool
}

type EntryFunc func(ctx context.Context, e *Engine, cfg *Config) (Verdict, error)

func (f EntryFunc) Check(ctx context.Context, e *Engine, cfg *Config) (Verdict, error) {
	return f(ctx, e, cfg)
}

type OrchestratorFunc func(e *Engine, resp *Response, cfg *Config) (Verdict, error)

func (f OrchestratorFunc) Orchestrate(e *Engine, resp *Response, cfg *Config) (Verdict, error) {
	return f(e, resp, cfg)
}

type BodyComparatorFunc func(e *Engine, contentType, body string, spec BodySpec, cfg *Config) (Verdict, error)

func (f BodyComparatorFunc) Compare(e *Engine, contentType, body string, spec BodySpec, cfg *Config) (Verdict, error) {
	return f(e, contentType, body, spec, cfg)
}

type StatusMatcherFunc func(code int, spec StatusSpec) bool

func (f StatusMatcherFunc) Match(code int, spec StatusSpec) bool { return f(code, spec) }

// Default stages. Overrides call these to fall back to the built-in behavior.
var (
	DefaultEntry        Entry          = defaultEntry{}
	DefaultOrchestrator Orchestrator   = defaultOrchestrator{}
	DefaultComparator   BodyComparator = defaultComparator{}
	DefaultMatcher      StatusMatcher  = StatusMatcherFunc(Matches)
)

// Engine runs checks. Any nil stage uses its default, so a consumer
// replaces only the stages it cares about.
type Engine struct {
	Client  Client
	Builder *Builder
	Logger  *slog.Logger

	Entry        Entry
	Orchestrator Orchestrator
	Comparator   BodyComparator
	Matcher      StatusMatcher

	// Handlers resolves Named body specs by module and function.
	Handlers *Registry[Named, BodyFunc]
	// Rules resolves Custom body specs by tag.
	Rules *Registry[string, BodyRule]
}

func NewEngine(client Client, builder *Builder, logger *slog.Logger) *Engine {
	return &Engine{
		Client:   client,
		Builder:  builder,
		Logger:   logger,
		Handlers: NewRegistry[Named, BodyFunc](),
		Rules:    NewRegistry[string, BodyRule](),
	}
}

// RegisterHandler makes fn available to Named{Module: module, Function: function}.
func (e *Engine) RegisterHandler(module, function string, fn BodyFunc) {
	if e.Handlers == nil {
		e.Handlers = NewRegistry[Named, BodyFunc]()
	}
	e.Handlers.Register(Named{Module: module, Function: function}, fn)
}

// RegisterRule makes rule available to Custom{Tag: tag}.
func (e *Engine) RegisterRule(tag string, rule BodyRule) {
	if e.Rules == nil {
		e.Rules = NewRegistry[string, BodyRule]()
	}
	e.Rules.Register(tag, rule)
}

// Run builds a Config from opts and checks it.
func (e *Engine) Run(ctx context.Context, opts Options) (Verdict, error) {
	cfg, err := e.Builder.Build(opts)
	if err != nil {
		return Verdict{}, err
	}
	return e.Check(ctx, cfg)
}

// Check performs one request and evaluates it. Health conditions come back
// as a Verdict; a non-nil error means the check itself is misconfigured.
func (e *Engine) Check(ctx context.Context, cfg *Config) (Verdict, error) {
	entry := e.Entry
	if entry == nil {
		entry = DefaultEntry
	}
	v, err := entry.Check(ctx, e, cfg)
	if err != nil {
		e.logger().Error("check misconfigured", "check", cfg.Name, "url", cfg.URL, "error", err)
		return Verdict{}, err
	}
	e.logger().Debug("check finished", "check", cfg.Name, "url", cfg.URL, "status", v.Status, "message", v.Message)
	return v, nil
}

// Evaluate judges resp against cfg using the installed Orchestrator.
func (e *Engine) Evaluate(resp *Response, cfg *Config) (Verdict, error) {
	o := e.Orchestrator
	if o == nil {
		o = DefaultOrchestrator
	}
	return o.Orchestrate(e, resp, cfg)
}

// MatchStatus applies the installed StatusMatcher.
func (e *Engine) MatchStatus(code int, spec StatusSpec) bool {
	m := e.Matcher
	if m == nil {
		m = DefaultMatcher
	}
	return m.Match(code, spec)
}

// CompareBody applies the installed BodyComparator.
func (e *Engine) CompareBody(contentType, body string, spec BodySpec, cfg *Config) (Verdict, error) {
	c := e.Comparator
	if c == nil {
		c = DefaultComparator
	}
	return c.Compare(e, contentType, body, spec, cfg)
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

func (e *Engine) handlers() *Registry[Named, BodyFunc] {
	if e == nil {
		return nil
	}
	return e.Handlers
}

func (e *Engine) rules() *Registry[string, BodyRule] {
	if e == nil {
		return nil
	}
	return e.Rules
}

type defaultEntry struct{}

func (defaultEntry) Check(ctx context.Context, e *Engine, cfg *Config) (Verdict, error) {
	if e.Client == nil {
		return Verdict{}, errors.New("engine has no client")
	}
	resp, err := e.Client.Do(ctx, &Request{
		Method:  cfg.Method,
		URL:     cfg.URL,
		Body:    cfg.RequestBody,
		Headers: cfg.Headers,
		Options: cfg.Client,
	})
	if err != nil {
		e.logger().Debug("request failed", "check", cfg.Name, "url", cfg.URL, "error", err)
		return Error(err.Error()), nil
	}
	return e.Evaluate(resp, cfg)
}

type defaultOrchestrator struct{}

func (defaultOrchestrator) Orchestrate(e *Engine, resp *Response, cfg *Config) (Verdict, error) {
	if !e.MatchStatus(resp.StatusCode, cfg.Status) {
		return Error(fmt.Sprintf("Unexpected status code %d.", resp.StatusCode)), nil
	}
	if skipsBody(cfg.Body) {
		return OK(), nil
	}
	contentType, _ := resp.Headers.Get("Content-Type")
	return e.CompareBody(contentType, resp.Body, cfg.Body, cfg)
}
