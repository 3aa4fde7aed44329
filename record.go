package arbor

import (
	"sync"
	"time"
)

// Record is the structured payload of one log call. It is constructed once
// per call and is immutable from the caller's perspective; the dispatch
// engine shallow-copies it once per pipeline before running transformers
// (see runLoggerPipelines and runPipeline in dispatch.go).
type Record struct {
	LevelNo   Level
	LevelName string

	MessageFmt string
	Args       []interface{}
	Message    string

	Context map[string]interface{}

	Timestamp time.Time

	LoggerName       string
	SourceLoggerName string
	OwnerLoggerName  string

	OwnerLoggerLevel     Level
	OwnerLoggerPropagate bool

	Filename string
	Lineno   int
	Module   string

	// TransformerError/PresenterError are set per §4.B when a pipeline
	// stage fails; they annotate the copy handed to outputs so operators
	// can observe the failure without the dispatch walk being aborted.
	TransformerError string
	PresenterError   string
}

var recordPool = sync.Pool{
	New: func() interface{} { return &Record{} },
}

func acquireRecord() *Record {
	r := recordPool.Get().(*Record)
	r.reset()
	return r
}

// releaseRecord returns r to the pool. dispatchLog releases a record as
// soon as the walk returns, even when pipelines were queued for the async
// worker: every per-pipeline copy taken during the walk, including the one
// stored in a queuedEvent, is a plain value, never a pointer back into the
// pool, so this is safe.
func releaseRecord(r *Record) {
	recordPool.Put(r)
}

func (r *Record) reset() {
	r.LevelNo = NotSet
	r.LevelName = ""
	r.MessageFmt = ""
	r.Args = nil
	r.Message = ""
	r.Context = nil
	r.Timestamp = time.Time{}
	r.LoggerName = ""
	r.SourceLoggerName = ""
	r.OwnerLoggerName = ""
	r.OwnerLoggerLevel = NotSet
	r.OwnerLoggerPropagate = false
	r.Filename = ""
	r.Lineno = 0
	r.Module = ""
	r.TransformerError = ""
	r.PresenterError = ""
}

// copyForPipeline returns a shallow copy of r, annotated with the owning
// logger's identity per §4.D step 2. Context is shared by reference (the
// spec calls for a shallow copy); a transformer that wants to mutate
// individual keys must allocate its own map.
func (r *Record) copyForPipeline(owner *Logger) Record {
	cp := *r
	cp.OwnerLoggerName = owner.name
	cp.OwnerLoggerLevel = owner.Level()
	cp.OwnerLoggerPropagate = owner.Propagate()
	return cp
}
