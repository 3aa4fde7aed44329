package arbor

import "time"

const defaultTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// NewLogfmtPresenter builds a logfmt ("key=value ...") presenter.
func NewLogfmtPresenter(defaults map[string]interface{}) PresenterSpec {
	return PresenterSpec{
		Name:     "logfmt",
		Fn:       presentLogfmt,
		Defaults: mergedConfig(map[string]interface{}{"time_layout": time.RFC3339}, defaults),
	}
}

func presentLogfmt(rec *Record, cfg map[string]interface{}) (string, error) {
	layout := stringOpt(cfg, "time_layout", time.RFC3339)

	buf := getBuffer()
	defer putBuffer(buf)

	buf.AppendString("time=")
	buf.AppendTime(rec.Timestamp, layout)
	buf.AppendString(" level=")
	buf.AppendString(rec.LevelName)
	buf.AppendString(" logger=")
	appendLogfmtValue(buf, rec.OwnerLoggerName)
	buf.AppendString(" msg=")
	appendLogfmtValue(buf, rec.Message)

	fe := logfmtFieldEnc{buf: buf}
	for _, f := range sortedFields(rec.Context) {
		buf.AppendByte(' ')
		buf.AppendString(f.Key)
		buf.AppendByte('=')
		f.Encode(&fe)
	}

	return buf.String(), nil
}

// logfmtFieldEnc is a stack-local FieldEncoder for logfmt-style output;
// it writes only the value, since the caller has already written "key=".
type logfmtFieldEnc struct {
	buf *Buffer
}

func (e *logfmtFieldEnc) EncodeString(_, val string)          { appendLogfmtValue(e.buf, val) }
func (e *logfmtFieldEnc) EncodeInt64(_ string, val int64)     { e.buf.AppendInt(val) }
func (e *logfmtFieldEnc) EncodeFloat64(_ string, val float64) { e.buf.AppendFloat(val) }
func (e *logfmtFieldEnc) EncodeBool(_ string, val bool)       { e.buf.AppendBool(val) }
func (e *logfmtFieldEnc) EncodeDuration(_ string, val time.Duration) {
	e.buf.AppendString(val.String())
}
func (e *logfmtFieldEnc) EncodeTime(_ string, val time.Time) { e.buf.AppendTime(val, time.RFC3339) }
func (e *logfmtFieldEnc) EncodeError(_, msg string)          { appendLogfmtValue(e.buf, msg) }
func (e *logfmtFieldEnc) EncodeAny(_ string, val interface{}) {
	appendLogfmtValue(e.buf, formatAny(val))
}

func appendLogfmtValue(buf *Buffer, s string) {
	if s == "" {
		buf.AppendString(`""`)
		return
	}
	needsQuote := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == ' ' || c == '"' || c == '\\' || c == '=' || c < 0x20 {
			needsQuote = true
			break
		}
	}
	if !needsQuote {
		buf.AppendString(s)
		return
	}
	buf.AppendByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '"' || c == '\\' {
			buf.AppendByte('\\')
		}
		buf.AppendByte(c)
	}
	buf.AppendByte('"')
}
