package checker

import (
	"errors"
	"fmt"
	"sync"
)

// Status is the tri-state outcome of a check.
type Status string

const (
	StatusOK    Status = "ok"
	StatusWarn  Status = "warn"
	StatusError Status = "error"
)

// Verdict holds the outcome of evaluating one response against one Config.
type Verdict struct {
	Status  Status
	Message string
}

func OK() Verdict { return Verdict{Status: StatusOK} }

func Warn(msg string) Verdict { return Verdict{Status: StatusWarn, Message: msg} }

func Error(msg string) Verdict { return Verdict{Status: StatusError, Message: msg} }

func (v Verdict) String() string {
	if v.Message == "" {
		return string(v.Status)
	}
	return fmt.Sprintf("%s: %s", v.Status, v.Message)
}

var (
	// ErrMissingRequiredField is returned by Build when a required option is absent.
	ErrMissingRequiredField = errors.New("missing required field")
	// ErrInvalidStatusSpec is returned by Build for a malformed status spec.
	ErrInvalidStatusSpec = errors.New("invalid status spec")
	// ErrUnrecognizedBodySpec means no comparison rule exists for a body spec.
	ErrUnrecognizedBodySpec = errors.New("unrecognized body spec")
	// ErrUnresolvedHandler means a named body handler is not registered.
	ErrUnresolvedHandler = errors.New("unresolved body handler")
)

// Registry holds keyed values such as body handlers and custom body rules.
type Registry[K comparable, T any] struct {
	mu    sync.RWMutex
	items map[K]T
}

func NewRegistry[K comparable, T any]() *Registry[K, T] {
	return &Registry[K, T]{items: make(map[K]T)}
}

func (r *Registry[K, T]) Register(key K, v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[key] = v
}

func (r *Registry[K, T]) Get(key K) (T, bool) {
	if r == nil {
		var zero T
		return zero, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.items[key]
	return v, ok
}
