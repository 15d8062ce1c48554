package model

// EmitTask constructs and publishes a CloudEvents 1.0 envelope. Missing `id`
// is auto-generated; missing `time` is the wall clock at emission.
type EmitTask struct {
	TaskBase `yaml:",inline"`
	Emit     EmitSpec `yaml:"emit"`
}

func (e *EmitTask) GetBase() *TaskBase { return &e.TaskBase }
func (e *EmitTask) Kind() string       { return "emit" }

type EmitSpec struct {
	Event EmitEventSpec `yaml:"event"`
}

type EmitEventSpec struct {
	With EventEnvelopeSpec `yaml:"with"`
}

// EventEnvelopeSpec mirrors the CloudEvents 1.0 context attributes the DSL
// lets a workflow author populate; all fields may contain runtime
// expressions and are resolved just before publishing.
type EventEnvelopeSpec struct {
	ID              Expr                   `yaml:"id,omitempty"`
	Source          Expr                   `yaml:"source,omitempty"`
	Type            Expr                   `yaml:"type"`
	Time            Expr                   `yaml:"time,omitempty"`
	Subject         Expr                   `yaml:"subject,omitempty"`
	DataContentType Expr                   `yaml:"datacontenttype,omitempty"`
	Data            map[string]interface{} `yaml:"data,omitempty"`
}
