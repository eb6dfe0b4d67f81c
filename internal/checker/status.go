package checker

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

type specKind uint8

const (
	specUnset specKind = iota
	specCode
	specRange
	specAny
)

// StatusSpec is a recursive acceptance predicate over HTTP status codes:
// a single code, an inclusive range, or a sequence of specs (logical OR).
// The zero value is unset and matches nothing.
type StatusSpec struct {
	kind  specKind
	low   int
	high  int
	elems []StatusSpec
}

// Code returns a spec matching exactly one status code.
func Code(code int) StatusSpec {
	return StatusSpec{kind: specCode, low: code, high: code}
}

// Range returns a spec matching every code in [low, high].
func Range(low, high int) StatusSpec {
	return StatusSpec{kind: specRange, low: low, high: high}
}

// AnyOf returns a spec matching when any of specs matches. The spec keeps
// its own copy of specs.
func AnyOf(specs ...StatusSpec) StatusSpec {
	return StatusSpec{kind: specAny, elems: slices.Clone(specs)}
}

// IsZero reports whether the spec is unset.
func (s StatusSpec) IsZero() bool { return s.kind == specUnset }

// Matches reports whether code satisfies spec. Sequences are walked
// structurally and short-circuit on the first match.
func Matches(code int, spec StatusSpec) bool {
	switch spec.kind {
	case specCode:
		return code == spec.low
	case specRange:
		return code >= spec.low && code <= spec.high
	case specAny:
		for _, e := range spec.elems {
			if Matches(code, e) {
				return true
			}
		}
	}
	return false
}

// Validate rejects negative codes, inverted ranges and unset sequence elements.
func (s StatusSpec) Validate() error {
	switch s.kind {
	case specUnset:
		return fmt.Errorf("%w: empty spec", ErrInvalidStatusSpec)
	case specCode:
		if s.low < 0 {
			return fmt.Errorf("%w: negative status code %d", ErrInvalidStatusSpec, s.low)
		}
	case specRange:
		if s.low < 0 {
			return fmt.Errorf("%w: negative status code %d", ErrInvalidStatusSpec, s.low)
		}
		if s.low > s.high {
			return fmt.Errorf("%w: range %d-%d is inverted", ErrInvalidStatusSpec, s.low, s.high)
		}
	case specAny:
		for i, e := range s.elems {
			if err := e.Validate(); err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
		}
	}
	return nil
}

func (s StatusSpec) String() string {
	switch s.kind {
	case specCode:
		return strconv.Itoa(s.low)
	case specRange:
		return fmt.Sprintf("%d-%d", s.low, s.high)
	case specAny:
		parts := make([]string, len(s.elems))
		for i, e := range s.elems {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return "<unset>"
}

// ParseStatusSpec parses a single code ("200") or a range ("200-299" or
// "200..299").
func ParseStatusSpec(s string) (StatusSpec, error) {
	s = strings.TrimSpace(s)
	sep := ""
	switch {
	case strings.Contains(s, ".."):
		sep = ".."
	case strings.Contains(s, "-"):
		sep = "-"
	}
	if sep == "" {
		code, err := strconv.Atoi(s)
		if err != nil {
			return StatusSpec{}, fmt.Errorf("%w: %q", ErrInvalidStatusSpec, s)
		}
		return Code(code), nil
	}

	lo, hi, _ := strings.Cut(s, sep)
	low, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return StatusSpec{}, fmt.Errorf("%w: %q", ErrInvalidStatusSpec, s)
	}
	high, err := strconv.Atoi(strings.TrimSpace(hi))
	if err != nil {
		return StatusSpec{}, fmt.Errorf("%w: %q", ErrInvalidStatusSpec, s)
	}
	return Range(low, high), nil
}
