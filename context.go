package arbor

import "context"

type ctxValuesKey struct{}

// ContextWithValues attaches caller-supplied key/value pairs to a Go
// context.Context. Loggers obtained via Logger.WithGoContext merge these
// into the Context map of every event record they construct.
func ContextWithValues(ctx context.Context, kv map[string]interface{}) context.Context {
	existing := valuesFromContext(ctx)
	merged := make(map[string]interface{}, len(existing)+len(kv))
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range kv {
		merged[k] = v
	}
	return context.WithValue(ctx, ctxValuesKey{}, merged)
}

// valuesFromContext extracts logging key/values from a context, if any.
func valuesFromContext(ctx context.Context) map[string]interface{} {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxValuesKey{}).(map[string]interface{}); ok {
		return v
	}
	return nil
}
