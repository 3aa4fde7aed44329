package arbor

const redactedPlaceholder = "***redacted***"

// NewRedactTransformer builds a transformer that replaces the named
// Context keys with a fixed placeholder before the record reaches any
// presenter. It allocates a fresh Context map rather than mutating the
// shared one, since sibling pipelines on the same logger see the same
// Record.Context by reference (spec.md §6).
func NewRedactTransformer(keys []string, defaults map[string]interface{}) TransformerSpec {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return TransformerSpec{
		Name:     "redact",
		Fn:       redactContext,
		Config:   map[string]interface{}{"keys": set},
		Defaults: defaults,
	}
}

func redactContext(rec *Record, cfg map[string]interface{}) (Record, error) {
	keys, _ := cfg["keys"].(map[string]struct{})
	if len(keys) == 0 || len(rec.Context) == 0 {
		return *rec, nil
	}
	out := *rec
	next := make(map[string]interface{}, len(rec.Context))
	for k, v := range rec.Context {
		if _, redact := keys[k]; redact {
			next[k] = redactedPlaceholder
		} else {
			next[k] = v
		}
	}
	out.Context = next
	return out, nil
}
