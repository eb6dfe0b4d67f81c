package checker

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// UnmarshalYAML accepts an integer, a range string ("200-299", "200..299")
// or a sequence of those, nested to any depth.
func (s *StatusSpec) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		spec, err := ParseStatusSpec(node.Value)
		if err != nil {
			return fmt.Errorf("line %d: %w: %q", node.Line, ErrInvalidStatusSpec, node.Value)
		}
		*s = spec
	case yaml.SequenceNode:
		elems := make([]StatusSpec, 0, len(node.Content))
		for _, child := range node.Content {
			var e StatusSpec
			if err := e.UnmarshalYAML(child); err != nil {
				return err
			}
			elems = append(elems, e)
		}
		*s = AnyOf(elems...)
	default:
		return fmt.Errorf("line %d: %w: expected code, range or list", node.Line, ErrInvalidStatusSpec)
	}
	return s.Validate()
}

// UnmarshalYAML accepts a mapping, whose key order is kept, or a sequence of
// {name, value} entries, which may repeat names.
func (h *Headers) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.MappingNode:
		out := make(Headers, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			out = append(out, Header{Name: node.Content[i].Value, Value: node.Content[i+1].Value})
		}
		*h = out
		return nil
	case yaml.SequenceNode:
		var out []Header
		if err := node.Decode(&out); err != nil {
			return err
		}
		*h = out
		return nil
	}
	return fmt.Errorf("line %d: headers must be a mapping or a list", node.Line)
}

func (v *TLSVersion) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := ParseTLSVersion(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*v = parsed
	return nil
}

type expectYAML struct {
	Exact    *string   `yaml:"exact"`
	Pattern  string    `yaml:"pattern"`
	Handler  string    `yaml:"handler"`
	Custom   string    `yaml:"custom"`
	Payload  yaml.Node `yaml:"payload"`
	JSONPath yaml.Node `yaml:"json_path"`
	DontCare bool      `yaml:"dont_care"`

	// keys is the number of keys present in the mapping.
	keys int
}

var expectKeys = map[string]bool{
	"exact":     true,
	"pattern":   true,
	"handler":   true,
	"custom":    true,
	"payload":   true,
	"json_path": true,
	"dont_care": true,
}

// UnmarshalYAML rejects keys that name no body spec variant.
func (e *expectYAML) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expect must be a mapping", node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i]
		if !expectKeys[key.Value] {
			return fmt.Errorf("line %d: unknown expect key %q", key.Line, key.Value)
		}
	}

	type plain expectYAML
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*e = expectYAML(p)
	e.keys = len(node.Content) / 2
	return nil
}

func (e *expectYAML) spec() (BodySpec, error) {
	var specs []BodySpec
	if e.Exact != nil {
		specs = append(specs, Exact{Body: *e.Exact})
	}
	if e.Pattern != "" {
		p, err := CompilePattern(e.Pattern)
		if err != nil {
			return nil, err
		}
		specs = append(specs, p)
	}
	if e.Handler != "" {
		i := strings.LastIndex(e.Handler, ".")
		if i <= 0 || i == len(e.Handler)-1 {
			return nil, fmt.Errorf("handler %q must be module.function", e.Handler)
		}
		specs = append(specs, Named{Module: e.Handler[:i], Function: e.Handler[i+1:]})
	}
	if e.Custom != "" {
		c := Custom{Tag: e.Custom}
		if e.Payload.Kind != 0 {
			payload := e.Payload
			c.Payload = &payload
		}
		specs = append(specs, c)
	}
	if e.JSONPath.Kind != 0 {
		payload := e.JSONPath
		specs = append(specs, Custom{Tag: JSONPathTag, Payload: &payload})
	}
	if e.DontCare {
		specs = append(specs, DontCare{})
	}
	if e.Payload.Kind != 0 && e.Custom == "" {
		return nil, fmt.Errorf("payload requires custom")
	}

	switch len(specs) {
	case 0:
		if e.keys > 0 {
			return nil, fmt.Errorf("no body spec selected")
		}
		return nil, nil
	case 1:
		return specs[0], nil
	}
	return nil, fmt.Errorf("only one of exact, pattern, handler, custom, json_path or dont_care may be set")
}

// UnmarshalYAML decodes a check definition. The "expect" key selects the
// body spec variant.
func (o *Options) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Name    string        `yaml:"name"`
		URL     string        `yaml:"url"`
		Method  string        `yaml:"method"`
		Headers Headers       `yaml:"headers"`
		Body    string        `yaml:"body"`
		Status  StatusSpec    `yaml:"status"`
		Expect  *expectYAML   `yaml:"expect"`
		Client  ClientOptions `yaml:"client"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}

	*o = Options{
		Name:        raw.Name,
		URL:         raw.URL,
		Method:      strings.ToUpper(raw.Method),
		Headers:     raw.Headers,
		RequestBody: raw.Body,
		Status:      raw.Status,
		Client:      raw.Client,
	}
	if raw.Expect != nil {
		spec, err := raw.Expect.spec()
		if err != nil {
			return fmt.Errorf("line %d: expect: %w", node.Line, err)
		}
		o.Body = spec
	}
	return nil
}
