package arbor

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// fieldType identifies the type stored in a field. Presenters switch on
// this instead of using reflection, matching the zero-allocation encoding
// technique used for the Context map's values.
type fieldType uint8

const (
	fieldString fieldType = iota
	fieldInt64
	fieldFloat64
	fieldBool
	fieldError
	fieldDuration
	fieldTime
	fieldAny
)

// field is a typed key-value pair derived from one entry of an event's
// Context map.
type field struct {
	Key   string
	Type  fieldType
	Ival  int64
	Str   string
	Iface interface{}
}

// FieldEncoder receives typed field values during presentation. Each
// presenter format (JSON, console, logfmt) implements this once; field
// dispatch happens through Encode, so there is a single place where
// fieldType is switched regardless of how many presenters exist.
type FieldEncoder interface {
	EncodeString(key, val string)
	EncodeInt64(key string, val int64)
	EncodeFloat64(key string, val float64)
	EncodeBool(key string, val bool)
	EncodeDuration(key string, val time.Duration)
	EncodeTime(key string, val time.Time)
	EncodeError(key string, msg string)
	EncodeAny(key string, val interface{})
}

// toField converts a single context key/value pair to a typed field.
func toField(key string, val interface{}) field {
	switch v := val.(type) {
	case string:
		return field{Key: key, Type: fieldString, Str: v}
	case int:
		return field{Key: key, Type: fieldInt64, Ival: int64(v)}
	case int64:
		return field{Key: key, Type: fieldInt64, Ival: v}
	case int32:
		return field{Key: key, Type: fieldInt64, Ival: int64(v)}
	case int16:
		return field{Key: key, Type: fieldInt64, Ival: int64(v)}
	case int8:
		return field{Key: key, Type: fieldInt64, Ival: int64(v)}
	case uint:
		return field{Key: key, Type: fieldInt64, Ival: int64(v)}
	case uint64:
		return field{Key: key, Type: fieldInt64, Ival: int64(v)}
	case uint32:
		return field{Key: key, Type: fieldInt64, Ival: int64(v)}
	case uint16:
		return field{Key: key, Type: fieldInt64, Ival: int64(v)}
	case uint8:
		return field{Key: key, Type: fieldInt64, Ival: int64(v)}
	case float64:
		return field{Key: key, Type: fieldFloat64, Ival: int64(math.Float64bits(v))}
	case float32:
		return field{Key: key, Type: fieldFloat64, Ival: int64(math.Float64bits(float64(v)))}
	case bool:
		var iv int64
		if v {
			iv = 1
		}
		return field{Key: key, Type: fieldBool, Ival: iv}
	case error:
		if v == nil {
			return field{Key: key, Type: fieldString, Str: "<nil>"}
		}
		return field{Key: key, Type: fieldError, Str: v.Error()}
	case time.Duration:
		return field{Key: key, Type: fieldDuration, Ival: int64(v)}
	case time.Time:
		return field{Key: key, Type: fieldTime, Iface: v}
	default:
		return field{Key: key, Type: fieldAny, Iface: v}
	}
}

// Encode dispatches this field's value to the matching FieldEncoder method.
func (f *field) Encode(enc FieldEncoder) {
	switch f.Type {
	case fieldString:
		enc.EncodeString(f.Key, f.Str)
	case fieldInt64:
		enc.EncodeInt64(f.Key, f.Ival)
	case fieldFloat64:
		enc.EncodeFloat64(f.Key, math.Float64frombits(uint64(f.Ival)))
	case fieldBool:
		enc.EncodeBool(f.Key, f.Ival == 1)
	case fieldDuration:
		enc.EncodeDuration(f.Key, time.Duration(f.Ival))
	case fieldTime:
		if t, ok := f.Iface.(time.Time); ok {
			enc.EncodeTime(f.Key, t)
		}
	case fieldError:
		enc.EncodeError(f.Key, f.Str)
	case fieldAny:
		enc.EncodeAny(f.Key, f.Iface)
	}
}

// sortedFields converts a Context map into a slice of typed fields in
// deterministic (key-sorted) order, so repeated presentation of the same
// record is byte-for-byte stable.
func sortedFields(ctx map[string]interface{}) []field {
	if len(ctx) == 0 {
		return nil
	}
	keys := make([]string, 0, len(ctx))
	for k := range ctx {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fields := make([]field, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, toField(k, ctx[k]))
	}
	return fields
}

// formatAny formats an arbitrary value as a string, preferring its own
// String() method when available.
func formatAny(v interface{}) string {
	if v == nil {
		return "<nil>"
	}
	if s, ok := v.(interface{ String() string }); ok {
		return s.String()
	}
	return fmt.Sprint(v)
}
