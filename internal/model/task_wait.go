package model

// WaitTask suspends execution for a duration; cancellation short-circuits
// the wait.
type WaitTask struct {
	TaskBase `yaml:",inline"`
	Wait     DurationDef `yaml:"wait"`
}

func (w *WaitTask) GetBase() *TaskBase { return &w.TaskBase }
func (w *WaitTask) Kind() string       { return "wait" }
