package arbor

import "time"

// NewTextPresenter builds the plain-text presenter: "time level logger:
// message  key=val key=val". It is the default presenter used by the
// root logger's default pipeline. cfg recognizes "time_layout".
func NewTextPresenter(defaults map[string]interface{}) PresenterSpec {
	return PresenterSpec{
		Name:     "text",
		Fn:       presentText,
		Defaults: mergedConfig(map[string]interface{}{"time_layout": defaultTimeLayout}, defaults),
	}
}

func presentText(rec *Record, cfg map[string]interface{}) (string, error) {
	layout := stringOpt(cfg, "time_layout", defaultTimeLayout)

	buf := getBuffer()
	defer putBuffer(buf)

	buf.AppendTime(rec.Timestamp, layout)
	buf.AppendByte(' ')
	buf.AppendString(rec.LevelName)
	buf.AppendByte(' ')
	buf.AppendString(rec.OwnerLoggerName)
	buf.AppendString(": ")
	buf.AppendString(rec.Message)

	if len(rec.Context) > 0 {
		buf.AppendString("  ")
		fe := logfmtFieldEnc{buf: buf}
		for i, f := range sortedFields(rec.Context) {
			if i > 0 {
				buf.AppendByte(' ')
			}
			buf.AppendString(f.Key)
			buf.AppendByte('=')
			f.Encode(&fe)
		}
	}

	return buf.String(), nil
}

func stringOpt(cfg map[string]interface{}, key, fallback string) string {
	if v, ok := cfg[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return fallback
}

func boolOpt(cfg map[string]interface{}, key string, fallback bool) bool {
	if v, ok := cfg[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return fallback
}

func intOpt(cfg map[string]interface{}, key string, fallback int) int {
	if v, ok := cfg[key]; ok {
		if n, ok := v.(int); ok {
			return n
		}
	}
	return fallback
}

func int64Opt(cfg map[string]interface{}, key string, fallback int64) int64 {
	if v, ok := cfg[key]; ok {
		if n, ok := v.(int64); ok {
			return n
		}
	}
	return fallback
}

func durationOpt(cfg map[string]interface{}, key string, fallback time.Duration) time.Duration {
	if v, ok := cfg[key]; ok {
		if d, ok := v.(time.Duration); ok {
			return d
		}
	}
	return fallback
}
