package arbor

import (
	"context"
	"sync/atomic"
	"time"
)

// RootName is the reserved name of the unique root logger. It is the only
// name allowed to begin with "_".
const RootName = "_root"

// Logger is a named node in the hierarchy. It is safe for concurrent use.
// Instances are never constructed directly by callers — obtain one through
// GetLogger/AutoLogger, which guarantee identity-stable caching.
type Logger struct {
	name   string
	parent *Logger

	level     atomic.Int32
	propagate atomic.Bool

	pipelines atomic.Pointer[[]*Pipeline]

	goCtx context.Context
}

func newLogger(name string, parent *Logger) *Logger {
	l := &Logger{name: name, parent: parent}
	l.propagate.Store(true)
	empty := []*Pipeline{}
	l.pipelines.Store(&empty)
	return l
}

// Name returns the logger's dotted name.
func (l *Logger) Name() string { return l.name }

// Parent returns the logger's parent, or nil for the root.
func (l *Logger) Parent() *Logger { return l.parent }

// Level returns the logger's own configured level (NotSet means "inherit
// from parent"). For the root this is always explicit.
func (l *Logger) Level() Level { return Level(l.level.Load()) }

// SetLevel changes the logger's own level. Takes effect on the next event.
func (l *Logger) SetLevel(lvl Level) { l.level.Store(int32(lvl)) }

// Propagate reports whether events continue walking to the parent after
// this logger's pipelines run.
func (l *Logger) Propagate() bool { return l.propagate.Load() }

// SetPropagate changes the propagate flag. Takes effect on the next event.
func (l *Logger) SetPropagate(v bool) { l.propagate.Store(v) }

// Pipelines returns the logger's current pipelines in emit order. The
// returned slice must be treated as read-only; use AddPipeline/
// SetPipelines to mutate.
func (l *Logger) Pipelines() []*Pipeline {
	return *l.pipelines.Load()
}

// SetPipelines replaces the logger's pipeline list wholesale. Per the
// Open Question in spec.md §9, a walk already iterating the previous
// slice finishes against it — only the next event observes the change,
// because atomic.Pointer swaps the whole backing slice rather than
// mutating it in place.
func (l *Logger) SetPipelines(p []*Pipeline) {
	cp := make([]*Pipeline, len(p))
	copy(cp, p)
	l.pipelines.Store(&cp)
}

// AddPipeline appends one pipeline to the logger's list, copy-on-write.
func (l *Logger) AddPipeline(p *Pipeline) {
	for {
		curp := l.pipelines.Load()
		cur := *curp
		next := make([]*Pipeline, len(cur)+1)
		copy(next, cur)
		next[len(cur)] = p
		if l.pipelines.CompareAndSwap(curp, &next) {
			return
		}
	}
}

// WithGoContext returns a Logger-scoped view whose event records pick up
// key/values attached via ContextWithValues. This does not create a new
// hierarchy entry; it returns a lightweight wrapper bound to this logger.
func (l *Logger) WithGoContext(ctx context.Context) *ContextLogger {
	return &ContextLogger{logger: l, ctx: ctx}
}

// ContextLogger binds a Logger to a Go context.Context so that values
// attached via ContextWithValues are merged into every event's Context map.
type ContextLogger struct {
	logger *Logger
	ctx    context.Context
}

func (c *ContextLogger) Debug(msg string, args ...interface{})    { c.logWith(Debug, msg, nil, args) }
func (c *ContextLogger) Info(msg string, args ...interface{})     { c.logWith(Info, msg, nil, args) }
func (c *ContextLogger) Warn(msg string, args ...interface{})     { c.logWith(Warning, msg, nil, args) }
func (c *ContextLogger) Error(msg string, args ...interface{})    { c.logWith(Error, msg, nil, args) }
func (c *ContextLogger) Critical(msg string, args ...interface{}) { c.logWith(Critical, msg, nil, args) }

func (c *ContextLogger) logWith(lvl Level, fmtStr string, ctxMap map[string]interface{}, args []interface{}) {
	merged := valuesFromContext(c.ctx)
	if len(ctxMap) > 0 {
		merged = mergeStringMaps(merged, ctxMap)
	}
	dispatchLog(c.logger, lvl, fmtStr, args, merged, 3)
}

func mergeStringMaps(base, extra map[string]interface{}) map[string]interface{} {
	if len(base) == 0 {
		return extra
	}
	out := make(map[string]interface{}, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// --- Level-specific public logging methods ---
//
// Each method performs the early-exit optimization from spec.md §4.D:
// effective_level(self) is checked before any argument parsing or record
// construction happens, so disabled calls cost one atomic load plus a
// short parent walk.

func (l *Logger) Debug(args ...interface{})    { l.logCall(Debug, args) }
func (l *Logger) Info(args ...interface{})     { l.logCall(Info, args) }
func (l *Logger) Warn(args ...interface{})     { l.logCall(Warning, args) }
func (l *Logger) Error(args ...interface{})    { l.logCall(Error, args) }
func (l *Logger) Critical(args ...interface{}) { l.logCall(Critical, args) }

// Log emits at an arbitrary level, including custom registered levels.
func (l *Logger) Log(lvl Level, args ...interface{}) { l.logCall(lvl, args) }

func (l *Logger) logCall(lvl Level, args []interface{}) {
	if !IsEnabled(lvl, effectiveLevel(l)) {
		return
	}
	fmtStr, ctxMap, fmtArgs := parseArgs(args)
	dispatchLog(l, lvl, fmtStr, fmtArgs, ctxMap, 4)
}

// now is overridable in tests that need deterministic timestamps.
var now = time.Now
