package assertion

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/y0f/httpcheck/internal/checker"
)

// Rule evaluates a json_path payload against body. A failure where every
// failed condition is degraded yields warn; any other failure yields error.
func Rule(_, body string, payload any, _ *checker.Config) (checker.Verdict, error) {
	set, err := decodePayload(payload)
	if err != nil {
		return checker.Verdict{}, err
	}
	if len(set.Conditions) == 0 {
		return checker.OK(), nil
	}

	var root any
	if err := json.Unmarshal([]byte(body), &root); err != nil {
		return checker.Error("json_path: invalid JSON body"), nil
	}

	var (
		passes   []bool
		messages []string
		degraded = true
	)
	for _, c := range set.Conditions {
		pass, msg := evaluate(c, root)
		passes = append(passes, pass)
		if !pass {
			messages = append(messages, msg)
			if !c.Degraded {
				degraded = false
			}
		}
	}

	if combine(passes, set.Operator) {
		return checker.OK(), nil
	}
	msg := strings.Join(messages, "; ")
	if degraded {
		return checker.Warn(msg), nil
	}
	return checker.Error(msg), nil
}

var operators = map[string]bool{
	"": true, "eq": true, "neq": true, "contains": true, "not_contains": true,
	"gt": true, "lt": true, "gte": true, "lte": true, "exists": true,
}

func decodePayload(payload any) (Set, error) {
	set, err := payloadSet(payload)
	if err != nil {
		return Set{}, err
	}
	switch set.Operator {
	case "", "and", "or":
	default:
		return Set{}, fmt.Errorf("%w: unknown set operator %q", ErrInvalidPayload, set.Operator)
	}
	for i, c := range set.Conditions {
		if !operators[c.Operator] {
			return Set{}, fmt.Errorf("%w: conditions[%d]: unknown operator %q", ErrInvalidPayload, i, c.Operator)
		}
	}
	return set, nil
}

func payloadSet(payload any) (Set, error) {
	switch p := payload.(type) {
	case Set:
		return p, nil
	case *Set:
		if p != nil {
			return *p, nil
		}
	case []Condition:
		return Set{Conditions: p}, nil
	case *yaml.Node:
		if p == nil {
			break
		}
		var set Set
		if p.Kind == yaml.SequenceNode {
			if err := p.Decode(&set.Conditions); err != nil {
				return Set{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
			}
		} else if err := p.Decode(&set); err != nil {
			return Set{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		return set, nil
	}
	return Set{}, fmt.Errorf("%w: unsupported payload %T", ErrInvalidPayload, payload)
}

func combine(passes []bool, operator string) bool {
	if operator == "or" {
		for _, p := range passes {
			if p {
				return true
			}
		}
		return false
	}
	for _, p := range passes {
		if !p {
			return false
		}
	}
	return true
}

func evaluate(c Condition, root any) (bool, string) {
	val, err := walk(root, c.Path)
	if c.Operator == "exists" {
		if err != nil {
			return false, fmt.Sprintf("json_path: %s does not exist", c.Path)
		}
		return true, ""
	}
	if err != nil {
		return false, fmt.Sprintf("json_path: %v", err)
	}

	actual := fmt.Sprintf("%v", val)
	if compare(actual, c.Value, c.Operator) {
		return true, ""
	}
	return false, fmt.Sprintf("json_path %s: expected %s %s, got %s", c.Path, c.Operator, c.Value, truncate(actual, 100))
}

// walk follows path through a decoded JSON document.
// Examples: "status", "data.name", "items[0].id".
func walk(root any, path string) (any, error) {
	current := root
	for _, part := range strings.Split(path, ".") {
		if part == "" {
			continue
		}
		key, idx, hasIdx := parsePart(part)

		if key != "" {
			obj, ok := current.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("expected object at %s", key)
			}
			val, exists := obj[key]
			if !exists {
				return nil, fmt.Errorf("key %s not found", key)
			}
			current = val
		}

		if hasIdx {
			arr, ok := current.([]any)
			if !ok {
				return nil, fmt.Errorf("expected array at index %d", idx)
			}
			if idx < 0 || idx >= len(arr) {
				return nil, fmt.Errorf("index %d out of range (len=%d)", idx, len(arr))
			}
			current = arr[idx]
		}
	}
	return current, nil
}

// parsePart splits "name[0]" into ("name", 0, true).
func parsePart(part string) (string, int, bool) {
	open := strings.Index(part, "[")
	if open == -1 || !strings.HasSuffix(part, "]") {
		return part, 0, false
	}
	idx, err := strconv.Atoi(part[open+1 : len(part)-1])
	if err != nil {
		return part, 0, false
	}
	return part[:open], idx, true
}

func compare(actual, expected, op string) bool {
	switch op {
	case "eq", "":
		return actual == expected
	case "neq":
		return actual != expected
	case "contains":
		return strings.Contains(actual, expected)
	case "not_contains":
		return !strings.Contains(actual, expected)
	case "gt", "lt", "gte", "lte":
		a, errA := strconv.ParseFloat(actual, 64)
		e, errE := strconv.ParseFloat(expected, 64)
		if errA != nil || errE != nil {
			return false
		}
		switch op {
		case "gt":
			return a > e
		case "lt":
			return a < e
		case "gte":
			return a >= e
		}
		return a <= e
	}
	return false
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
