package arbor

import (
	"fmt"
	"strings"
)

// effectiveLevel walks from l up through its ancestors, returning the
// first non-NOTSET level encountered. The root's level is never NOTSET,
// so the walk always terminates (spec.md §4.A).
func effectiveLevel(l *Logger) Level {
	for cur := l; cur != nil; cur = cur.Parent() {
		if lvl := cur.Level(); lvl != NotSet {
			return lvl
		}
	}
	return Warning
}

// parseArgs implements the four-way call-signature dispatch from
// spec.md §4.D, tested in this order:
//
//  1. No arguments -> empty message.
//  2. args[0] is a mapping -> interpreted as context; the next arg is
//     (fmt, ...) if it's a string, else context["msg"] is the message.
//  3. args[0] is a string -> fmt; remaining args are positional.
//  4. Otherwise -> tostring(args[0]) is the message.
func parseArgs(args []interface{}) (fmtStr string, ctxMap map[string]interface{}, fmtArgs []interface{}) {
	if len(args) == 0 {
		return "", nil, nil
	}
	if m, ok := args[0].(map[string]interface{}); ok {
		rest := args[1:]
		if len(rest) > 0 {
			if s, ok := rest[0].(string); ok {
				return s, m, rest[1:]
			}
		}
		if msg, ok := m["msg"].(string); ok {
			fmtStr = msg
		}
		return fmtStr, m, rest
	}
	if s, ok := args[0].(string); ok {
		return s, nil, args[1:]
	}
	return tostring(args[0]), nil, args[1:]
}

// tostring renders an arbitrary first argument as a message when neither
// spec.md §4.D case 2 nor case 3 applies.
func tostring(v interface{}) string {
	return fmt.Sprint(v)
}

// formatMessage renders fmtStr against fmtArgs. A formatting mismatch
// (too few args, bad verb) never panics: the raw fmtStr is emitted with
// the error appended, per spec.md §7.
func formatMessage(fmtStr string, fmtArgs []interface{}) string {
	if len(fmtArgs) == 0 {
		return fmtStr
	}
	msg := fmt.Sprintf(fmtStr, fmtArgs...)
	if strings.Contains(msg, "%!") {
		return fmt.Sprintf("%s [FORMAT ERROR: %s]", fmtStr, extractFormatError(msg))
	}
	return msg
}

func extractFormatError(rendered string) string {
	idx := strings.Index(rendered, "%!")
	if idx < 0 {
		return rendered
	}
	end := strings.IndexByte(rendered[idx:], ' ')
	if end < 0 {
		return rendered[idx:]
	}
	return rendered[idx : idx+end]
}

// dispatchLog builds the Record for one logging call and walks it up the
// hierarchy per spec.md §4.D "emit": run owner's pipelines (gated by
// owner's effective level, so a pipeline attached to a NOTSET logger
// evaluates against the level it inherits), then continue to the parent
// iff propagate is true, for as long as a parent exists.
func dispatchLog(l *Logger, lvl Level, fmtStr string, args []interface{}, ctxMap map[string]interface{}, callerSkip int) {
	tickLiveLevel()
	ci := captureCaller(callerSkip)

	rec := acquireRecord()
	rec.LevelNo = lvl
	rec.LevelName = NameOf(lvl)
	rec.MessageFmt = fmtStr
	rec.Args = args
	rec.Message = formatMessage(fmtStr, args)
	rec.Context = ctxMap
	rec.Timestamp = now()
	rec.LoggerName = l.Name()
	rec.SourceLoggerName = l.Name()
	rec.Filename = ci.File
	rec.Lineno = ci.Line
	rec.Module = ci.Module

	emit(l, rec)
	releaseRecord(rec)
}

// emit walks the hierarchy starting at owner, running every pipeline
// attached to each logger that accepts this event, then moving to the
// parent while propagate holds.
func emit(owner *Logger, rec *Record) {
	cur := owner
	for cur != nil {
		runLoggerPipelines(cur, rec)
		if !cur.Propagate() {
			return
		}
		cur = cur.Parent()
	}
}

func runLoggerPipelines(owner *Logger, rec *Record) {
	pipelines := owner.Pipelines()
	if len(pipelines) == 0 {
		return
	}
	// The logger-level gate always applies: a pipeline's own Level can
	// only filter further, never let an event through that the owning
	// logger's effective level already excludes (spec.md §8 invariant 3).
	if !IsEnabled(rec.LevelNo, effectiveLevel(owner)) {
		return
	}
	perOwner := rec.copyForPipeline(owner)

	for _, p := range pipelines {
		if p.Level != NotSet && !IsEnabled(rec.LevelNo, p.Level) {
			continue
		}
		runPipeline(p, &perOwner, owner.Name())
	}
}

// runPipeline hands one pipeline, and a record copy already annotated
// with its owner, off for transformer→presenter→output processing —
// either deferred to the process-wide async writer, or run immediately
// on the calling goroutine when async delivery is disabled (spec.md
// §4.E: "Decouple expensive pipeline work from the calling thread").
// Each pipeline gets its own copy of base so that one pipeline's
// transformer chain never leaks mutations into a sibling pipeline on
// the same logger.
func runPipeline(p *Pipeline, base *Record, ownerName string) {
	rec := *base
	if tryEnqueueAsync(&rec, p, ownerName) {
		return
	}
	runPipelineStages(&rec, p, ownerName)
}
