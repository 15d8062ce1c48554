package model

// SetTask's output is an evaluated literal/expression object; every value in
// Set is run through the Expression Engine in loose mode before becoming the
// task's raw output.
type SetTask struct {
	TaskBase `yaml:",inline"`
	Set      map[string]interface{} `yaml:"set"`
}

func (s *SetTask) GetBase() *TaskBase { return &s.TaskBase }
func (s *SetTask) Kind() string       { return "set" }
