package model

// DoTask runs a nested task list sequentially; its output is the output of
// the last executed child.
type DoTask struct {
	TaskBase `yaml:",inline"`
	Do       TaskList `yaml:"do"`
}

func (d *DoTask) GetBase() *TaskBase { return &d.TaskBase }
func (d *DoTask) Kind() string       { return "do" }
