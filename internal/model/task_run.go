package model

// RunTask delegates to the Task Dispatcher's Run sub-executors: container,
// script, shell, or a nested workflow invocation.
type RunTask struct {
	TaskBase `yaml:",inline"`
	Run      RunSpec `yaml:"run"`
}

func (r *RunTask) GetBase() *TaskBase { return &r.TaskBase }
func (r *RunTask) Kind() string       { return "run" }

type RunSpec struct {
	Container *ContainerRunSpec `yaml:"container,omitempty"`
	Script    *ScriptRunSpec    `yaml:"script,omitempty"`
	Shell     *ShellRunSpec     `yaml:"shell,omitempty"`
	Workflow  *WorkflowRunSpec  `yaml:"workflow,omitempty"`
	Await     *bool             `yaml:"await,omitempty"`
	Return    string            `yaml:"return,omitempty"`
}

// SubKind reports which of the four mutually-exclusive run targets is set.
func (r RunSpec) SubKind() string {
	switch {
	case r.Container != nil:
		return "container"
	case r.Script != nil:
		return "script"
	case r.Shell != nil:
		return "shell"
	case r.Workflow != nil:
		return "workflow"
	default:
		return ""
	}
}

type ContainerRunSpec struct {
	Image       string            `yaml:"image"`
	Command     string            `yaml:"command,omitempty"`
	Ports       map[string]string `yaml:"ports,omitempty"`
	Volumes     map[string]string `yaml:"volumes,omitempty"`
	Environment map[string]string `yaml:"environment,omitempty"`
	Lifetime    string            `yaml:"lifetime,omitempty"`
}

type ScriptRunSpec struct {
	Language  string                  `yaml:"language"`
	Code      string                  `yaml:"code,omitempty"`
	Source    *ExternalResource       `yaml:"source,omitempty"`
	Arguments map[string]interface{} `yaml:"arguments,omitempty"`
}

type ShellRunSpec struct {
	Command     string                 `yaml:"command"`
	Arguments   map[string]interface{} `yaml:"arguments,omitempty"`
	Environment map[string]string      `yaml:"environment,omitempty"`
}

type WorkflowRunSpec struct {
	Namespace string                 `yaml:"namespace,omitempty"`
	Name      string                 `yaml:"name"`
	Version   string                 `yaml:"version,omitempty"`
	Input     map[string]interface{} `yaml:"input,omitempty"`
}
