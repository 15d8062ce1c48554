// Package model holds the in-memory representation of a Serverless Workflow
// DSL document after loading: the document header, the `use` block, and the
// tagged Task Definition variants that make up `do`.
package model

// Document carries the identity and DSL metadata of a Workflow Document.
type Document struct {
	DSL       string `yaml:"dsl" json:"dsl"`
	Namespace string `yaml:"namespace" json:"namespace"`
	Name      string `yaml:"name" json:"name"`
	Version   string `yaml:"version" json:"version"`
	Title     string `yaml:"title,omitempty" json:"title,omitempty"`
	Summary   string `yaml:"summary,omitempty" json:"summary,omitempty"`
}

// Workflow is the fully parsed Workflow Document. It is immutable once
// returned by a Parser; the Scheduler never mutates it.
type Workflow struct {
	Document Document                `yaml:"document" json:"document"`
	Input    *InputDef               `yaml:"input,omitempty" json:"input,omitempty"`
	Output   *OutputDef              `yaml:"output,omitempty" json:"output,omitempty"`
	Use      *Use                    `yaml:"use,omitempty" json:"use,omitempty"`
	Timeout  *TimeoutOrReference     `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	Schedule map[string]interface{} `yaml:"schedule,omitempty" json:"schedule,omitempty"`
	Do       TaskList                `yaml:"do" json:"do"`
}

// Key returns the (namespace, name, version) identity used by the Workflow
// Registry.
func (w *Workflow) Key() (namespace, name, version string) {
	return w.Document.Namespace, w.Document.Name, w.Document.Version
}

// InputDef configures how the raw caller input is filtered and validated
// before becoming the initial workflow (or task) context.
type InputDef struct {
	Schema *SchemaDef `yaml:"schema,omitempty" json:"schema,omitempty"`
	From   *Expr      `yaml:"from,omitempty" json:"from,omitempty"`
}

// OutputDef configures how a raw output is reshaped and validated before it
// becomes the visible result of a workflow or task.
type OutputDef struct {
	Schema *SchemaDef `yaml:"schema,omitempty" json:"schema,omitempty"`
	As     *Expr      `yaml:"as,omitempty" json:"as,omitempty"`
}

// Export configures how a task's filtered output is merged into the running
// `$context`.
type Export struct {
	Schema *SchemaDef `yaml:"schema,omitempty" json:"schema,omitempty"`
	As     *Expr      `yaml:"as,omitempty" json:"as,omitempty"`
}

// SchemaDef is a JSON Schema document, inline or by reference. Only the
// "type: object" plus "required" subset is modeled (internal/scheduler's
// validateAgainstSchema checks it against a dynamic any-typed value); it is
// intentionally not a full JSON Schema compiler.
type SchemaDef struct {
	Format   string                 `yaml:"format,omitempty" json:"format,omitempty"`
	Document map[string]interface{} `yaml:"document,omitempty" json:"document,omitempty"`
	Resource *ExternalResource      `yaml:"resource,omitempty" json:"resource,omitempty"`
}

// ExternalResource points at a document (OpenAPI, proto, JSON Schema, nested
// workflow) that must be fetched through the Workflow Registry's catalog
// filesystem.
type ExternalResource struct {
	Name string                `yaml:"name,omitempty" json:"name,omitempty"`
	URI  string                `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	Auth *AuthenticationPolicy `yaml:"authentication,omitempty" json:"authentication,omitempty"`
}

// Expr is a runtime expression string, carried verbatim; the Expression
// Engine decides strict vs. loose evaluation based on its surrounding `${}`.
type Expr string

func (e Expr) String() string { return string(e) }
