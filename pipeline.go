package arbor

// OutputFunc writes a finalized record. Per spec.md §6 it must not mutate
// the record. cfg is the per-output configuration after defaults have been
// shallow-merged under the user-supplied values.
type OutputFunc func(rec *Record, cfg map[string]interface{}) error

// PresenterFunc renders a record to its final message string. Must be
// pure: it may read every record field but must not mutate it.
type PresenterFunc func(rec *Record, cfg map[string]interface{}) (string, error)

// TransformerFunc returns a possibly-modified shallow copy of rec.
type TransformerFunc func(rec *Record, cfg map[string]interface{}) (Record, error)

// OutputSpec pairs an output function with its configuration and defaults.
type OutputSpec struct {
	Name     string
	Fn       OutputFunc
	Config   map[string]interface{}
	Defaults map[string]interface{}
}

// PresenterSpec pairs a presenter function with its configuration.
type PresenterSpec struct {
	Name     string
	Fn       PresenterFunc
	Config   map[string]interface{}
	Defaults map[string]interface{}
}

// TransformerSpec pairs a transformer function with its configuration.
type TransformerSpec struct {
	Name     string
	Fn       TransformerFunc
	Config   map[string]interface{}
	Defaults map[string]interface{}
}

// mergedConfig shallow-merges a defaults map under the user-supplied
// values, per spec.md §4.B: "All configuration tables passed to steps
// merge a defaults mapping (set by component type) under the
// user-supplied values. The merge is shallow."
func mergedConfig(defaults, user map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(defaults)+len(user))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range user {
		out[k] = v
	}
	return out
}

// Pipeline is a configured transformers→presenter→outputs chain belonging
// to a logger.
type Pipeline struct {
	Outputs      []OutputSpec
	Presenter    PresenterSpec
	Transformers []TransformerSpec
	// Level, if set (non-NotSet), additionally gates this pipeline below
	// the owning logger's effective level.
	Level Level
}

// Validate checks the non-goal-free structural requirements from
// spec.md §6: outputs non-empty, exactly one presenter.
func (p *Pipeline) Validate() error {
	if len(p.Outputs) == 0 {
		return &ConfigError{Kind: InvalidType, Key: "pipelines.outputs", Detail: "pipeline must have at least one output"}
	}
	if p.Presenter.Fn == nil {
		return &ConfigError{Kind: InvalidType, Key: "pipelines.presenter", Detail: "pipeline must have exactly one presenter"}
	}
	return nil
}
