package model

// ForkTask executes its branches concurrently (§5). Compete mode returns the
// first branch to complete and cancels the rest (see SPEC_FULL.md §9 Open
// Question resolution); otherwise every branch must complete and outputs are
// aggregated into an ordered list.
type ForkTask struct {
	TaskBase `yaml:",inline"`
	Fork     ForkSpec `yaml:"fork"`
}

func (f *ForkTask) GetBase() *TaskBase { return &f.TaskBase }
func (f *ForkTask) Kind() string       { return "fork" }

type ForkSpec struct {
	Branches TaskList `yaml:"branches"`
	Compete  bool     `yaml:"compete,omitempty"`
}
