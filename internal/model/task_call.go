package model

// CallTask invokes an external function. The sub-kind (http, openapi, grpc,
// asyncapi, or a catalog/user function name) lives in `Call` itself; `With`
// carries sub-kind-specific arguments and is handed to the Task Dispatcher
// uninterpreted.
type CallTask struct {
	TaskBase `yaml:",inline"`
	Call     string                 `yaml:"call"`
	With     map[string]interface{} `yaml:"with,omitempty"`
}

func (c *CallTask) GetBase() *TaskBase { return &c.TaskBase }
func (c *CallTask) Kind() string       { return "call" }

// CallSubKind classifies the well-known transports; anything else is treated
// as a catalog/user-defined function reference.
func (c *CallTask) CallSubKind() string {
	switch c.Call {
	case "http", "openapi", "grpc", "asyncapi":
		return c.Call
	default:
		return "function"
	}
}
