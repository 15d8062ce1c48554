package model

// Use is the reusable-components block: authentications, retry policies,
// timeouts, error templates, catalogs, and function/resource references that
// tasks elsewhere in the document refer to by name.
type Use struct {
	Authentications map[string]*AuthenticationPolicy `yaml:"authentications,omitempty" json:"authentications,omitempty"`
	Errors          map[string]*ProblemDetails       `yaml:"errors,omitempty" json:"errors,omitempty"`
	Retries         map[string]*RetryPolicy          `yaml:"retries,omitempty" json:"retries,omitempty"`
	Timeouts        map[string]*TimeoutDef           `yaml:"timeouts,omitempty" json:"timeouts,omitempty"`
	Catalogs        map[string]*Catalog              `yaml:"catalogs,omitempty" json:"catalogs,omitempty"`
	Functions       TaskMap                          `yaml:"functions,omitempty" json:"functions,omitempty"`
	Secrets         []string                         `yaml:"secrets,omitempty" json:"secrets,omitempty"`
}

// Catalog names an external, versioned collection of reusable workflow
// definitions, rooted at a URI the Workflow Registry resolves lazily.
type Catalog struct {
	Endpoint string `yaml:"endpoint" json:"endpoint"`
}

// AuthenticationPolicy describes one of the DSL's supported credential
// schemes. Only the scheme tag plus its own block is populated; the engine
// resolves secrets referenced within through `$secrets`.
type AuthenticationPolicy struct {
	Basic  *BasicAuth  `yaml:"basic,omitempty" json:"basic,omitempty"`
	Bearer *BearerAuth `yaml:"bearer,omitempty" json:"bearer,omitempty"`
	OAuth2 *OAuth2Auth `yaml:"oauth2,omitempty" json:"oauth2,omitempty"`
	Use    string      `yaml:"use,omitempty" json:"use,omitempty"`
}

type BasicAuth struct {
	Username Expr `yaml:"username" json:"username"`
	Password Expr `yaml:"password" json:"password"`
}

type BearerAuth struct {
	Token Expr `yaml:"token" json:"token"`
}

type OAuth2Auth struct {
	Authority Expr              `yaml:"authority" json:"authority"`
	ClientID  Expr              `yaml:"client,omitempty" json:"client,omitempty"`
	Grant     string            `yaml:"grant,omitempty" json:"grant,omitempty"`
	Scopes    []string          `yaml:"scopes,omitempty" json:"scopes,omitempty"`
	Extra     map[string]string `yaml:"extra,omitempty" json:"extra,omitempty"`
}

// BackoffKind enumerates the retry policy's back-off shapes.
type BackoffKind string

const (
	BackoffConstant    BackoffKind = "constant"
	BackoffLinear      BackoffKind = "linear"
	BackoffExponential BackoffKind = "exponential"
)

// RetryPolicy matches spec.md §4.4.5: back-off kind, initial delay,
// multiplier, max per-attempt delay, optional jitter, attempt limit, and an
// optional total-duration limit.
type RetryPolicy struct {
	Backoff      BackoffKind  `yaml:"backoff" json:"backoff" validate:"required,oneof=constant linear exponential"`
	InitialDelay *DurationDef `yaml:"delay,omitempty" json:"delay,omitempty"`
	Multiplier   float64      `yaml:"multiplier,omitempty" json:"multiplier,omitempty"`
	MaxDelay     *DurationDef `yaml:"maxDelay,omitempty" json:"maxDelay,omitempty"`
	Jitter       *JitterDef   `yaml:"jitter,omitempty" json:"jitter,omitempty"`
	Limit        *RetryLimit  `yaml:"limit,omitempty" json:"limit,omitempty"`
}

type JitterDef struct {
	From *DurationDef `yaml:"from,omitempty" json:"from,omitempty"`
	To   *DurationDef `yaml:"to,omitempty" json:"to,omitempty"`
}

type RetryLimit struct {
	Attempt  *AttemptLimit `yaml:"attempt,omitempty" json:"attempt,omitempty"`
	Duration *DurationDef  `yaml:"duration,omitempty" json:"duration,omitempty"`
}

type AttemptLimit struct {
	Count int `yaml:"count" json:"count"`
}

// TimeoutDef is a named, reusable timeout duration.
type TimeoutDef struct {
	After *DurationDef `yaml:"after" json:"after"`
}

// TimeoutOrReference is either an inline TimeoutDef or a `use.timeouts` name.
type TimeoutOrReference struct {
	Inline    *TimeoutDef `yaml:"-" json:"-"`
	Reference string      `yaml:"-" json:"-"`
}

// RetryOrReference is either an inline RetryPolicy or a `use.retries` name.
type RetryOrReference struct {
	Inline    *RetryPolicy `yaml:"-" json:"-"`
	Reference string       `yaml:"-" json:"-"`
}
