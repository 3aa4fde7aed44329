package arbor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresentJSONBasicFields(t *testing.T) {
	spec := NewJSONPresenter(nil)
	rec := &Record{
		LevelName:       "INFO",
		OwnerLoggerName: "app.json",
		Message:         "hello",
		Timestamp:       time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	out, err := spec.Fn(rec, spec.Defaults)
	require.NoError(t, err)
	assert.Contains(t, out, `"level":"INFO"`)
	assert.Contains(t, out, `"logger":"app.json"`)
	assert.Contains(t, out, `"msg":"hello"`)
	assert.Contains(t, out, `"time":"2026-01-02T03:04:05`)
	assert.True(t, out[0] == '{' && out[len(out)-1] == '}')
}

func TestPresentJSONEscapesControlCharsAndQuotes(t *testing.T) {
	spec := NewJSONPresenter(nil)
	rec := &Record{Message: "line\nwith \"quotes\"\tand tabs"}
	out, err := spec.Fn(rec, spec.Defaults)
	require.NoError(t, err)
	assert.Contains(t, out, `\n`)
	assert.Contains(t, out, `\"quotes\"`)
	assert.Contains(t, out, `\t`)
}

func TestPresentJSONIncludesStepErrorsAndContext(t *testing.T) {
	spec := NewJSONPresenter(nil)
	rec := &Record{
		Message:          "m",
		TransformerError: "boom",
		PresenterError:   "",
		Context:          map[string]interface{}{"count": 3, "ok": true},
	}
	out, err := spec.Fn(rec, spec.Defaults)
	require.NoError(t, err)
	assert.Contains(t, out, `"transformer_error":"boom"`)
	assert.NotContains(t, out, `"presenter_error"`, "an empty PresenterError must be omitted")
	assert.Contains(t, out, `"count":3`)
	assert.Contains(t, out, `"ok":true`)
}

func TestPresentJSONOmitsCallerWhenFilenameEmpty(t *testing.T) {
	spec := NewJSONPresenter(nil)
	rec := &Record{Message: "m"}
	out, err := spec.Fn(rec, spec.Defaults)
	require.NoError(t, err)
	assert.NotContains(t, out, `"caller"`)
}
