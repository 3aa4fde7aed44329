package arbor

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// internalDebugEnabled reports whether LUAL_INTERNAL_DEBUG is set to a
// truthy value. Checked lazily (not cached) so tests can flip the
// environment variable between calls.
func internalDebugEnabled() bool {
	v := strings.ToLower(os.Getenv("LUAL_INTERNAL_DEBUG"))
	switch v {
	case "true", "1", "yes":
		return true
	default:
		return false
	}
}

// diagSink receives diagnostic lines for runtime/async failures that are
// never surfaced to the logging caller. The default sink writes to
// standard error; tests may swap it out via setDiagSink.
type diagSink interface {
	Write(line string)
}

type stderrDiagSink struct{ mu sync.Mutex }

func (s *stderrDiagSink) Write(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(os.Stderr, line)
}

var diagMu sync.Mutex
var diag diagSink = &stderrDiagSink{}

func setDiagSink(s diagSink) diagSink {
	diagMu.Lock()
	defer diagMu.Unlock()
	prev := diag
	diag = s
	return prev
}

// reportDiagnostic writes a diagnostic line unconditionally — used for
// errors the spec requires to "never be silent" (overflow, restart,
// step failures). It additionally prefixes with [LUAL_DEBUG] detail
// when LUAL_INTERNAL_DEBUG is enabled.
func reportDiagnostic(format string, args ...interface{}) {
	line := fmt.Sprintf(format, args...)
	if internalDebugEnabled() {
		line = "[LUAL_DEBUG] " + line
	}
	diagMu.Lock()
	sink := diag
	diagMu.Unlock()
	sink.Write(line)
}

// debugDiagnostic writes only when LUAL_INTERNAL_DEBUG is truthy.
func debugDiagnostic(format string, args ...interface{}) {
	if !internalDebugEnabled() {
		return
	}
	diagMu.Lock()
	sink := diag
	diagMu.Unlock()
	sink.Write("[LUAL_DEBUG] " + fmt.Sprintf(format, args...))
}
