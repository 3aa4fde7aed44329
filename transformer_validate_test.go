package arbor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateContextPassesWhenRulesSatisfied(t *testing.T) {
	spec := NewValidateTransformer(map[string]string{"user_id": "required"}, nil)
	rec := &Record{Context: map[string]interface{}{"user_id": "u-1"}}
	_, err := spec.Fn(rec, spec.Config)
	assert.NoError(t, err)
}

func TestValidateContextFailsOnMissingRequiredKey(t *testing.T) {
	spec := NewValidateTransformer(map[string]string{"user_id": "required"}, nil)
	rec := &Record{Context: map[string]interface{}{}}
	_, err := spec.Fn(rec, spec.Config)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user_id")
}

func TestValidateContextFailsOnInvalidEmail(t *testing.T) {
	spec := NewValidateTransformer(map[string]string{"email": "omitempty,email"}, nil)
	rec := &Record{Context: map[string]interface{}{"email": "not-an-email"}}
	_, err := spec.Fn(rec, spec.Config)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email")
}

// TestValidateTransformerIntegratesWithRunTransformers exercises the
// integration point in step.go: runTransformers must report a failing
// validation transformer as failed (which makes runPipelineStages skip the
// presenter, spec.md §4.B) and set rec.TransformerError.
func TestValidateTransformerIntegratesWithRunTransformers(t *testing.T) {
	rec := &Record{Context: map[string]interface{}{}}
	specs := []TransformerSpec{NewValidateTransformer(map[string]string{"user_id": "required"}, nil)}
	failed := runTransformers(rec, specs, "svc")
	assert.True(t, failed)
	assert.Contains(t, rec.TransformerError, "user_id")
}
