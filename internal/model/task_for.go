package model

// ForTask iterates sequentially over a collection expression, binding `item`
// and optional `at` (index) names per iteration and respecting an optional
// early-exit `while` expression.
type ForTask struct {
	TaskBase `yaml:",inline"`
	For      ForLoop  `yaml:"for"`
	While    Expr     `yaml:"while,omitempty"`
	Do       TaskList `yaml:"do"`
}

func (f *ForTask) GetBase() *TaskBase { return &f.TaskBase }
func (f *ForTask) Kind() string       { return "for" }

type ForLoop struct {
	Each string `yaml:"each,omitempty"`
	In   Expr   `yaml:"in"`
	At   string `yaml:"at,omitempty"`
}
