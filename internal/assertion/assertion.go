// Package assertion validates JSON response bodies. It plugs into the
// checker engine as the rule for Custom body specs tagged "json_path".
package assertion

import (
	"errors"

	"github.com/y0f/httpcheck/internal/checker"
)

// Tag is the Custom body spec tag handled by Rule.
const Tag = checker.JSONPathTag

// ErrInvalidPayload is returned when a json_path spec cannot be decoded.
var ErrInvalidPayload = errors.New("invalid json_path payload")

// Condition checks the value found at Path.
type Condition struct {
	Path     string `yaml:"path"`     // dot notation with indexes, e.g. items[0].id
	Operator string `yaml:"operator"` // eq, neq, contains, not_contains, gt, lt, gte, lte, exists
	Value    string `yaml:"value"`
	Degraded bool   `yaml:"degraded"` // failure yields warn instead of error
}

// Set combines conditions with "and" (default) or "or".
type Set struct {
	Operator   string      `yaml:"operator"`
	Conditions []Condition `yaml:"conditions"`
}

// Spec wraps set as a body spec for the checker engine.
func Spec(set Set) checker.BodySpec {
	return checker.Custom{Tag: Tag, Payload: set}
}

// Register installs Rule on e.
func Register(e *checker.Engine) {
	e.RegisterRule(Tag, Rule)
}
