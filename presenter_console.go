package arbor

import "time"

const (
	colorReset  = "\033[0m"
	colorDim    = "\033[2m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBoldRed = "\033[1;31m"
)

// NewConsolePresenter builds the colored, icon-prefixed presenter meant
// for interactive terminals. cfg recognizes "time_layout" and "no_color".
func NewConsolePresenter(defaults map[string]interface{}) PresenterSpec {
	return PresenterSpec{
		Name:     "console",
		Fn:       presentConsole,
		Defaults: mergedConfig(map[string]interface{}{"time_layout": defaultTimeLayout, "no_color": false}, defaults),
	}
}

func levelIconAndColor(lvl Level) (icon, color string) {
	switch {
	case lvl < Debug:
		return "◦", colorGray
	case lvl < Info:
		return "◇", colorCyan
	case lvl < Warning:
		return "●", colorGreen
	case lvl < Error:
		return "▲", colorYellow
	case lvl < Critical:
		return "✗", colorRed
	default:
		return "✗", colorBoldRed
	}
}

func presentConsole(rec *Record, cfg map[string]interface{}) (string, error) {
	layout := stringOpt(cfg, "time_layout", defaultTimeLayout)
	noColor := boolOpt(cfg, "no_color", false)

	buf := getBuffer()
	defer putBuffer(buf)

	if noColor {
		buf.AppendByte(' ')
	} else {
		buf.AppendString(colorDim + " ")
	}
	buf.AppendTime(rec.Timestamp, layout)
	if !noColor {
		buf.AppendString(colorReset)
	}
	buf.AppendByte(' ')

	icon, color := levelIconAndColor(rec.LevelNo)
	if noColor {
		buf.AppendString(icon)
		buf.AppendByte(' ')
		buf.AppendString(rec.LevelName)
	} else {
		buf.AppendString(color)
		buf.AppendString(icon)
		buf.AppendByte(' ')
		buf.AppendString(rec.LevelName)
		buf.AppendString(colorReset)
	}

	buf.AppendByte(' ')
	if noColor {
		buf.AppendString(rec.OwnerLoggerName)
	} else {
		buf.AppendString(colorDim + rec.OwnerLoggerName + colorReset)
	}
	buf.AppendString(": ")
	buf.AppendString(rec.Message)

	if len(rec.Context) > 0 {
		buf.AppendString("  ")
		fe := consoleFieldEnc{buf: buf, noColor: noColor}
		for i, f := range sortedFields(rec.Context) {
			if i > 0 {
				buf.AppendByte(' ')
			}
			fe.appendKey(f.Key)
			f.Encode(&fe)
		}
	}

	if rec.Filename != "" {
		buf.AppendString("  ")
		if noColor {
			buf.AppendString("caller=")
		} else {
			buf.AppendString(colorDim + "caller=" + colorReset)
		}
		buf.AppendString(formatCallerLocation(rec.Filename, rec.Lineno))
	}

	return buf.String(), nil
}

// consoleFieldEnc is a stack-local FieldEncoder for console output.
type consoleFieldEnc struct {
	buf     *Buffer
	noColor bool
}

func (e *consoleFieldEnc) appendKey(key string) {
	if e.noColor {
		e.buf.AppendString(key)
		e.buf.AppendByte('=')
	} else {
		e.buf.AppendString(colorDim)
		e.buf.AppendString(key)
		e.buf.AppendString("=" + colorReset)
	}
}

func (e *consoleFieldEnc) EncodeString(_, val string)          { e.buf.AppendString(val) }
func (e *consoleFieldEnc) EncodeInt64(_ string, val int64)     { e.buf.AppendInt(val) }
func (e *consoleFieldEnc) EncodeFloat64(_ string, val float64) { e.buf.AppendFloat(val) }
func (e *consoleFieldEnc) EncodeBool(_ string, val bool)       { e.buf.AppendBool(val) }
func (e *consoleFieldEnc) EncodeDuration(_ string, val time.Duration) {
	e.buf.AppendString(val.String())
}
func (e *consoleFieldEnc) EncodeTime(_ string, val time.Time) { e.buf.AppendTime(val, time.RFC3339) }
func (e *consoleFieldEnc) EncodeError(_, msg string)          { e.buf.AppendString(msg) }
func (e *consoleFieldEnc) EncodeAny(_ string, val interface{}) {
	e.buf.AppendString(formatAny(val))
}
