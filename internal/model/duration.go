package model

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// DurationDef is either an ISO-8601 duration string or the DSL's structured
// {days,hours,minutes,seconds,milliseconds} object, or (at evaluation time) a
// runtime expression yielding one of those. Parsing is deferred to
// internal/expr/duration.go, which understands all three forms; this type
// only carries the raw shape through from YAML/JSON.
type DurationDef struct {
	ISO        string             `yaml:"-" json:"-"`
	Structured *StructuredDuration `yaml:"-" json:"-"`
	Expression Expr               `yaml:"-" json:"-"`
}

// StructuredDuration is the DSL's explicit duration object.
type StructuredDuration struct {
	Days         int `yaml:"days,omitempty" json:"days,omitempty"`
	Hours        int `yaml:"hours,omitempty" json:"hours,omitempty"`
	Minutes      int `yaml:"minutes,omitempty" json:"minutes,omitempty"`
	Seconds      int `yaml:"seconds,omitempty" json:"seconds,omitempty"`
	Milliseconds int `yaml:"milliseconds,omitempty" json:"milliseconds,omitempty"`
}

// AsTimeDuration converts a structured duration to time.Duration directly;
// ISO-8601 and expression forms are resolved elsewhere (internal/expr) since
// the latter needs an evaluation environment.
func (s *StructuredDuration) AsTimeDuration() time.Duration {
	if s == nil {
		return 0
	}
	d := time.Duration(s.Days) * 24 * time.Hour
	d += time.Duration(s.Hours) * time.Hour
	d += time.Duration(s.Minutes) * time.Minute
	d += time.Duration(s.Seconds) * time.Second
	d += time.Duration(s.Milliseconds) * time.Millisecond
	return d
}

func (d *DurationDef) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		if isStrictOrLooseExpression(s) {
			d.Expression = Expr(s)
			return nil
		}
		d.ISO = s
		return nil
	case yaml.MappingNode:
		var sd StructuredDuration
		if err := node.Decode(&sd); err != nil {
			return err
		}
		d.Structured = &sd
		return nil
	default:
		return fmt.Errorf("model: duration must be a string or mapping, got %v", node.Kind)
	}
}

func (d DurationDef) MarshalYAML() (interface{}, error) {
	switch {
	case d.Structured != nil:
		return d.Structured, nil
	case d.Expression != "":
		return string(d.Expression), nil
	default:
		return d.ISO, nil
	}
}

func isStrictOrLooseExpression(s string) bool {
	return len(s) >= 4 && s[:2] == "${" && s[len(s)-1] == '}'
}

func (t *TimeoutOrReference) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		t.Reference = s
		return nil
	case yaml.MappingNode:
		var td TimeoutDef
		if err := node.Decode(&td); err != nil {
			return err
		}
		t.Inline = &td
		return nil
	default:
		return fmt.Errorf("model: timeout must be a string reference or mapping, got %v", node.Kind)
	}
}

func (t TimeoutOrReference) MarshalYAML() (interface{}, error) {
	if t.Inline != nil {
		return t.Inline, nil
	}
	return t.Reference, nil
}

func (r *RetryOrReference) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		r.Reference = s
		return nil
	case yaml.MappingNode:
		var rp RetryPolicy
		if err := node.Decode(&rp); err != nil {
			return err
		}
		r.Inline = &rp
		return nil
	default:
		return fmt.Errorf("model: retry must be a string reference or mapping, got %v", node.Kind)
	}
}

func (r RetryOrReference) MarshalYAML() (interface{}, error) {
	if r.Inline != nil {
		return r.Inline, nil
	}
	return r.Reference, nil
}

func (e *ErrorOrReference) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		e.Reference = s
		return nil
	case yaml.MappingNode:
		var pd ProblemDetails
		if err := node.Decode(&pd); err != nil {
			return err
		}
		e.Inline = &pd
		return nil
	default:
		return fmt.Errorf("model: raise.error must be a string reference or mapping, got %v", node.Kind)
	}
}

func (e ErrorOrReference) MarshalYAML() (interface{}, error) {
	if e.Inline != nil {
		return e.Inline, nil
	}
	return e.Reference, nil
}
