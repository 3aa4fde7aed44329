package arbor

import "time"

// NewJSONPresenter builds a JSON presenter, one object per line.
func NewJSONPresenter(defaults map[string]interface{}) PresenterSpec {
	return PresenterSpec{
		Name:     "json",
		Fn:       presentJSON,
		Defaults: mergedConfig(map[string]interface{}{"time_layout": time.RFC3339Nano}, defaults),
	}
}

func presentJSON(rec *Record, cfg map[string]interface{}) (string, error) {
	layout := stringOpt(cfg, "time_layout", time.RFC3339Nano)

	buf := getBuffer()
	defer putBuffer(buf)

	buf.AppendByte('{')
	buf.AppendString(`"time":"`)
	buf.AppendTime(rec.Timestamp, layout)
	buf.AppendByte('"')

	buf.AppendString(`,"level":"`)
	buf.AppendString(rec.LevelName)
	buf.AppendByte('"')

	buf.AppendString(`,"logger":`)
	appendJSONString(buf, rec.OwnerLoggerName)

	buf.AppendString(`,"msg":`)
	appendJSONString(buf, rec.Message)

	if rec.Filename != "" {
		buf.AppendString(`,"caller":`)
		appendJSONString(buf, formatCallerLocation(rec.Filename, rec.Lineno))
	}

	if rec.TransformerError != "" {
		buf.AppendString(`,"transformer_error":`)
		appendJSONString(buf, rec.TransformerError)
	}
	if rec.PresenterError != "" {
		buf.AppendString(`,"presenter_error":`)
		appendJSONString(buf, rec.PresenterError)
	}

	fe := jsonFieldEnc{buf: buf}
	for _, f := range sortedFields(rec.Context) {
		buf.AppendByte(',')
		buf.AppendByte('"')
		buf.AppendString(f.Key)
		buf.AppendString(`":`)
		f.Encode(&fe)
	}

	buf.AppendByte('}')
	return buf.String(), nil
}

type jsonFieldEnc struct {
	buf *Buffer
}

func (e *jsonFieldEnc) EncodeString(_, val string)          { appendJSONString(e.buf, val) }
func (e *jsonFieldEnc) EncodeInt64(_ string, val int64)     { e.buf.AppendInt(val) }
func (e *jsonFieldEnc) EncodeFloat64(_ string, val float64) { e.buf.AppendFloat(val) }
func (e *jsonFieldEnc) EncodeBool(_ string, val bool)       { e.buf.AppendBool(val) }
func (e *jsonFieldEnc) EncodeDuration(_ string, val time.Duration) {
	appendJSONString(e.buf, val.String())
}
func (e *jsonFieldEnc) EncodeTime(_ string, val time.Time) {
	e.buf.AppendByte('"')
	e.buf.AppendTime(val, time.RFC3339Nano)
	e.buf.AppendByte('"')
}
func (e *jsonFieldEnc) EncodeError(_, msg string) { appendJSONString(e.buf, msg) }
func (e *jsonFieldEnc) EncodeAny(_ string, val interface{}) {
	appendJSONString(e.buf, formatAny(val))
}

func appendJSONString(buf *Buffer, s string) {
	buf.AppendByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"':
			buf.AppendString(`\"`)
		case '\\':
			buf.AppendString(`\\`)
		case '\n':
			buf.AppendString(`\n`)
		case '\r':
			buf.AppendString(`\r`)
		case '\t':
			buf.AppendString(`\t`)
		default:
			if c < 0x20 {
				buf.AppendString(`\u00`)
				buf.AppendByte(hexChar(c >> 4))
				buf.AppendByte(hexChar(c & 0x0f))
			} else {
				buf.AppendByte(c)
			}
		}
	}
	buf.AppendByte('"')
}

func hexChar(c byte) byte {
	if c < 10 {
		return '0' + c
	}
	return 'a' + c - 10
}

func formatCallerLocation(file string, line int) string {
	if file == "" {
		return ""
	}
	buf := getBuffer()
	defer putBuffer(buf)
	buf.AppendString(file)
	buf.AppendByte(':')
	buf.AppendInt(int64(line))
	return buf.String()
}
