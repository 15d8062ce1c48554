package model

// RaiseTask synthesizes an Error Value and propagates it as if the current
// task had failed.
type RaiseTask struct {
	TaskBase `yaml:",inline"`
	Raise    RaiseSpec `yaml:"raise"`
}

func (r *RaiseTask) GetBase() *TaskBase { return &r.TaskBase }
func (r *RaiseTask) Kind() string       { return "raise" }

type RaiseSpec struct {
	Error ErrorOrReference `yaml:"error"`
}

// ErrorOrReference is either an inline ProblemDetails literal (fields may be
// runtime expressions) or a `use.errors` name.
type ErrorOrReference struct {
	Inline    *ProblemDetails `yaml:"-"`
	Reference string          `yaml:"-"`
}
