package arbor

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var transformValidate = validator.New()

// NewValidateTransformer builds a transformer that checks selected
// Context values against go-playground/validator tags, e.g.
// {"user_id": "required", "email": "omitempty,email"}. A violation
// fails the transformer step (spec.md §4.B): the presenter is skipped
// for that pipeline, rec.TransformerError is set, and the outputs still
// receive the record so the failure is observable.
func NewValidateTransformer(rules map[string]string, defaults map[string]interface{}) TransformerSpec {
	return TransformerSpec{
		Name:     "validate",
		Fn:       validateContext,
		Config:   map[string]interface{}{"rules": rules},
		Defaults: defaults,
	}
}

func validateContext(rec *Record, cfg map[string]interface{}) (Record, error) {
	rules, _ := cfg["rules"].(map[string]string)
	for key, tag := range rules {
		val := rec.Context[key]
		if err := transformValidate.Var(val, tag); err != nil {
			return *rec, fmt.Errorf("context key %q failed validation %q: %w", key, tag, err)
		}
	}
	return *rec, nil
}
