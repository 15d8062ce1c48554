package model

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// TaskBase carries the fields every Task Definition variant shares, per
// spec.md §3: guard, input/output/export filters, per-task timeout, flow
// directive, and free-form metadata.
type TaskBase struct {
	If       Expr                `yaml:"if,omitempty" json:"if,omitempty"`
	Input    *InputDef           `yaml:"input,omitempty" json:"input,omitempty"`
	Output   *OutputDef          `yaml:"output,omitempty" json:"output,omitempty"`
	Export   *Export             `yaml:"export,omitempty" json:"export,omitempty"`
	Timeout  *TimeoutOrReference `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	Then     *FlowDirective          `yaml:"then,omitempty" json:"then,omitempty"`
	Metadata map[string]interface{} `yaml:"metadata,omitempty" json:"metadata,omitempty"`
}

// Task is implemented by every tagged Task Definition variant.
type Task interface {
	GetBase() *TaskBase
	Kind() string
}

// TaskItem is one named entry of a TaskList: the DSL represents `do` as a
// sequence of single-key maps, `{name: {<kind>: {...}}}`.
type TaskItem struct {
	Name string
	Task Task
}

func (ti *TaskItem) GetBase() *TaskBase {
	if ti == nil || ti.Task == nil {
		return nil
	}
	return ti.Task.GetBase()
}

// FlowDirective is the `then` field: a sibling task name, or one of the
// reserved directives `continue`, `end`, `exit`.
type FlowDirective struct {
	Value string
}

const (
	FlowContinue = "continue"
	FlowEnd      = "end"
	FlowExit     = "exit"
)

func (f *FlowDirective) IsTermination() bool {
	return f != nil && (f.Value == FlowEnd)
}

func (f *FlowDirective) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	f.Value = s
	return nil
}

func (f FlowDirective) MarshalYAML() (interface{}, error) {
	return f.Value, nil
}

// TaskList is an ordered sequence of named tasks, as they appear under `do`
// or inside a Do/Switch branch/Try block.
type TaskList []*TaskItem

// ByName finds a TaskItem by its declared name, returning its index too so
// callers can compute "next sibling".
func (tl TaskList) ByName(name string) (int, *TaskItem) {
	for i, item := range tl {
		if item.Name == name {
			return i, item
		}
	}
	return -1, nil
}

// constructors keyed by the single discriminator field present in a task's
// map. "call" is special-cased because its sub-kind lives in the value of
// the `call` key rather than in the key itself.
var taskConstructors = map[string]func() Task{
	"do":     func() Task { return &DoTask{} },
	"emit":   func() Task { return &EmitTask{} },
	"for":    func() Task { return &ForTask{} },
	"fork":   func() Task { return &ForkTask{} },
	"listen": func() Task { return &ListenTask{} },
	"raise":  func() Task { return &RaiseTask{} },
	"run":    func() Task { return &RunTask{} },
	"set":    func() Task { return &SetTask{} },
	"switch": func() Task { return &SwitchTask{} },
	"try":    func() Task { return &TryTask{} },
	"wait":   func() Task { return &WaitTask{} },
}

func (tl *TaskList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.SequenceNode {
		return fmt.Errorf("model: do must be a sequence of single-key task maps, got %v", node.Kind)
	}
	items := make(TaskList, 0, len(node.Content))
	for _, entryNode := range node.Content {
		if entryNode.Kind != yaml.MappingNode || len(entryNode.Content) != 2 {
			return fmt.Errorf("model: each do entry must have exactly one key (task name), line %d", entryNode.Line)
		}
		nameNode, bodyNode := entryNode.Content[0], entryNode.Content[1]
		var name string
		if err := nameNode.Decode(&name); err != nil {
			return err
		}
		task, err := decodeTask(name, bodyNode)
		if err != nil {
			return err
		}
		items = append(items, &TaskItem{Name: name, Task: task})
	}
	*tl = items
	return nil
}

// TaskMap is a name-keyed collection of reusable task definitions, used for
// `use.functions`.
type TaskMap map[string]Task

func (tm *TaskMap) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("model: functions must be a mapping, got %v", node.Kind)
	}
	out := make(TaskMap, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var name string
		if err := node.Content[i].Decode(&name); err != nil {
			return err
		}
		task, err := decodeTask(name, node.Content[i+1])
		if err != nil {
			return err
		}
		out[name] = task
	}
	*tm = out
	return nil
}

func decodeTask(name string, body *yaml.Node) (Task, error) {
	if body.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("model: task %q must be a mapping", name)
	}
	var probe map[string]yaml.Node
	if err := body.Decode(&probe); err != nil {
		return nil, fmt.Errorf("model: task %q: %w", name, err)
	}
	if _, ok := probe["call"]; ok {
		t := &CallTask{}
		if err := body.Decode(t); err != nil {
			return nil, fmt.Errorf("model: task %q (call): %w", name, err)
		}
		return t, nil
	}
	// "do" is probed last: a for task carries both a `for` and a `do` key.
	for _, key := range []string{"emit", "for", "fork", "listen", "raise", "run", "set", "switch", "try", "wait", "do"} {
		ctor, known := taskConstructors[key]
		if !known {
			continue
		}
		if _, ok := probe[key]; ok {
			t := ctor()
			if err := body.Decode(t); err != nil {
				return nil, fmt.Errorf("model: task %q (%s): %w", name, key, err)
			}
			return t, nil
		}
	}
	return nil, fmt.Errorf("model: task %q has no recognized kind discriminator", name)
}
