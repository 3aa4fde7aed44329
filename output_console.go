package arbor

// NewConsoleOutput writes the already-presented message to a
// WriteSyncer, stderr by default. cfg recognizes "writer" (a
// WriteSyncer) and "stdout" (bool, writes to os.Stdout instead).
func NewConsoleOutput(defaults map[string]interface{}) OutputSpec {
	return OutputSpec{
		Name:     "console",
		Fn:       writeConsole,
		Defaults: mergedConfig(map[string]interface{}{"writer": Stderr}, defaults),
	}
}

func writeConsole(rec *Record, cfg map[string]interface{}) error {
	w := writerOpt(cfg, "writer", Stderr)
	if boolOpt(cfg, "stdout", false) {
		w = Stdout
	}
	_, err := w.Write(lineBytes(rec.Message))
	return err
}

func writerOpt(cfg map[string]interface{}, key string, fallback WriteSyncer) WriteSyncer {
	if v, ok := cfg[key]; ok {
		if w, ok := v.(WriteSyncer); ok {
			return w
		}
	}
	return fallback
}

func lineBytes(msg string) []byte {
	buf := getBuffer()
	defer putBuffer(buf)
	buf.AppendString(msg)
	buf.AppendByte('\n')
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out
}
