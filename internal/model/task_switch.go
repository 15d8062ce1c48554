package model

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// SwitchTask evaluates When expressions in declaration order; the first
// truthy branch's Then directive is taken. A branch with no When is the
// default and always matches.
type SwitchTask struct {
	TaskBase `yaml:",inline"`
	Switch   []SwitchCase `yaml:"switch"`
}

func (s *SwitchTask) GetBase() *TaskBase { return &s.TaskBase }
func (s *SwitchTask) Kind() string       { return "switch" }

// SwitchCase is one named branch of a switch task: `{name: {when: ..., then: ...}}`.
type SwitchCase struct {
	Name string
	When Expr
	Then *FlowDirective
}

func (s *SwitchTask) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		TaskBase `yaml:",inline"`
		Switch   []yaml.Node `yaml:"switch"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	s.TaskBase = raw.TaskBase
	cases := make([]SwitchCase, 0, len(raw.Switch))
	for _, entry := range raw.Switch {
		if entry.Kind != yaml.MappingNode || len(entry.Content) != 2 {
			return fmt.Errorf("model: each switch entry must have exactly one key (case name), line %d", entry.Line)
		}
		var name string
		if err := entry.Content[0].Decode(&name); err != nil {
			return err
		}
		var body struct {
			When Expr           `yaml:"when,omitempty"`
			Then *FlowDirective `yaml:"then"`
		}
		if err := entry.Content[1].Decode(&body); err != nil {
			return fmt.Errorf("model: switch case %q: %w", name, err)
		}
		cases = append(cases, SwitchCase{Name: name, When: body.When, Then: body.Then})
	}
	s.Switch = cases
	return nil
}
