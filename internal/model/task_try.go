package model

// TryTask runs Try, and on error matches it against Catch's static filters
// plus an optional dynamic When; on match, binds the error under Catch.As
// and runs Catch.Do, retrying the Try block first if Catch.Retry is set.
type TryTask struct {
	TaskBase `yaml:",inline"`
	Try      TaskList  `yaml:"try"`
	Catch    CatchSpec `yaml:"catch"`
}

func (t *TryTask) GetBase() *TaskBase { return &t.TaskBase }
func (t *TryTask) Kind() string       { return "try" }

type CatchSpec struct {
	Errors     *ErrorFilter      `yaml:"errors,omitempty"`
	As         string            `yaml:"as,omitempty"`
	When       Expr              `yaml:"when,omitempty"`
	ExceptWhen Expr              `yaml:"exceptWhen,omitempty"`
	Retry      *RetryOrReference `yaml:"retry,omitempty"`
	Do         TaskList          `yaml:"do,omitempty"`
}

// ErrorFilter matches an escaping ProblemDetails by static glob-capable
// fields; any unset field matches everything.
type ErrorFilter struct {
	With ErrorFilterFields `yaml:"with"`
}

type ErrorFilterFields struct {
	Type     string `yaml:"type,omitempty"`
	Status   int    `yaml:"status,omitempty"`
	Instance string `yaml:"instance,omitempty"`
	Title    string `yaml:"title,omitempty"`
	Detail   string `yaml:"detail,omitempty"`
}
