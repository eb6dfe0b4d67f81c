package checker

import (
	"fmt"
	"regexp"
)

const msgUnexpectedBody = "Unexpected response body."

// BodySpec describes how a response body is validated. A nil BodySpec
// means the body is not checked. The variants are Exact, Pattern,
// Callback, Named, Custom and DontCare.
type BodySpec interface {
	bodySpec()
}

// BodyFunc validates a body. Its Verdict is returned to the caller unchanged.
type BodyFunc func(contentType, body string, cfg *Config) Verdict

// BodyRule validates a body against the payload of a Custom spec.
type BodyRule func(contentType, body string, payload any, cfg *Config) (Verdict, error)

// Exact expects the body to equal Body byte for byte.
type Exact struct {
	Body string
}

// Pattern expects Re to match somewhere in the body.
type Pattern struct {
	Re *regexp.Regexp
}

// Callback delegates the verdict to a function.
type Callback BodyFunc

// Named delegates the verdict to a handler registered under Module.Function.
type Named struct {
	Module   string
	Function string
}

// Custom carries an expectation resolved through the rule registered for Tag.
// A Custom spec with a Tag that has a rule is also the way to make a
// comparator override fire for every response.
type Custom struct {
	Tag     string
	Payload any
}

// JSONPathTag is the Custom tag the "json_path" expect key decodes to.
const JSONPathTag = "json_path"

// DontCare explicitly skips body validation.
type DontCare struct{}

func (Exact) bodySpec()    {}
func (Pattern) bodySpec()  {}
func (Callback) bodySpec() {}
func (Named) bodySpec()    {}
func (Custom) bodySpec()   {}
func (DontCare) bodySpec() {}

// CompilePattern compiles expr into a Pattern spec.
func CompilePattern(expr string) (Pattern, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return Pattern{}, fmt.Errorf("compile body pattern: %w", err)
	}
	return Pattern{Re: re}, nil
}

// MustPattern is like CompilePattern but panics on a bad expression.
func MustPattern(expr string) Pattern {
	return Pattern{Re: regexp.MustCompile(expr)}
}

// Key returns "module.function" for messages.
func (n Named) Key() string {
	return n.Module + "." + n.Function
}

// skipsBody reports whether spec means the comparator must not be called.
func skipsBody(spec BodySpec) bool {
	switch spec.(type) {
	case nil, DontCare:
		return true
	}
	return false
}

type defaultComparator struct{}

func (defaultComparator) Compare(e *Engine, contentType, body string, spec BodySpec, cfg *Config) (Verdict, error) {
	switch s := spec.(type) {
	case nil, DontCare:
		return OK(), nil
	case Exact:
		if body == s.Body {
			return OK(), nil
		}
		return Error(msgUnexpectedBody), nil
	case Pattern:
		if s.Re == nil {
			return Verdict{}, fmt.Errorf("%w: pattern without expression", ErrUnrecognizedBodySpec)
		}
		if s.Re.MatchString(body) {
			return OK(), nil
		}
		return Error(msgUnexpectedBody), nil
	case Callback:
		if s == nil {
			return Verdict{}, fmt.Errorf("%w: nil callback", ErrUnrecognizedBodySpec)
		}
		return s(contentType, body, cfg), nil
	case Named:
		fn, ok := e.handlers().Get(s)
		if !ok {
			return Verdict{}, fmt.Errorf("%w: %s", ErrUnresolvedHandler, s.Key())
		}
		return fn(contentType, body, cfg), nil
	case Custom:
		rule, ok := e.rules().Get(s.Tag)
		if !ok {
			return Verdict{}, fmt.Errorf("%w: no rule for tag %q", ErrUnrecognizedBodySpec, s.Tag)
		}
		return rule(contentType, body, s.Payload, cfg)
	default:
		return Verdict{}, fmt.Errorf("%w: %T", ErrUnrecognizedBodySpec, spec)
	}
}
