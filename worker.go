package arbor

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// asyncWriter is the process-wide async log writer described in
// spec.md §4.E: a bounded FIFO queue drained by a single cooperative
// worker goroutine, with three overflow strategies and a restart/backoff
// policy protecting against a misbehaving output panicking the worker.
type asyncWriter struct {
	mu      sync.Mutex
	notFull *sync.Cond
	empty   *sync.Cond

	queue   *boundedQueue
	cfg     AsyncConfig
	running bool
	gen     uint64 // bumped on every (re)start/stop so a stale worker exits cleanly

	enqueued  atomic.Uint64
	dropped   atomic.Uint64
	flushed   atomic.Uint64
	restarts  atomic.Uint64
}

func newAsyncWriter() *asyncWriter {
	w := &asyncWriter{queue: newBoundedQueue(1)}
	w.notFull = sync.NewCond(&w.mu)
	w.empty = sync.NewCond(&w.mu)
	return w
}

var asyncW = newAsyncWriter()

// notifyAsyncConfigChanged applies a new AsyncConfig, starting or
// stopping the worker goroutine as needed. Called from Configure and
// ResetConfig while holding no arbor locks other than rootCfgMu, which
// asyncWriter never acquires, so there is no lock-ordering hazard.
func notifyAsyncConfigChanged(cfg AsyncConfig) {
	asyncW.reconfigure(cfg)
}

func (w *asyncWriter) reconfigure(cfg AsyncConfig) {
	w.mu.Lock()
	wasEnabled := w.running
	if cfg.MaxQueueSize != w.queue.cap() {
		// Resizing drops whatever was queued under the old capacity; a
		// live resize preserving in-flight events is not worth the
		// complexity for a logging writer.
		w.queue = newBoundedQueue(cfg.MaxQueueSize)
	}
	w.cfg = cfg
	shouldRun := cfg.Enabled
	if !(shouldRun && wasEnabled) {
		// Only a start or a stop supersedes the current worker; a
		// reconfigure that leaves the writer enabled keeps it running.
		w.gen++
	}
	myGen := w.gen
	w.running = shouldRun
	w.notFull.Broadcast()
	w.empty.Broadcast()
	w.mu.Unlock()

	if shouldRun && !wasEnabled {
		go w.run(myGen)
	}
}

// tryEnqueueAsync enqueues ev for async delivery if the writer is
// enabled, applying the configured overflow strategy. Returns false if
// the writer is disabled, meaning the caller must run the pipeline's
// stages synchronously instead. The record is enqueued before any
// transformer, presenter, or output has run — that work happens later,
// on the worker goroutine, not the caller's.
func tryEnqueueAsync(rec *Record, p *Pipeline, ownerName string) bool {
	return asyncW.enqueue(queuedEvent{rec: *rec, pipeline: p, ownerName: ownerName})
}

func (w *asyncWriter) enqueue(ev queuedEvent) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return false
	}

	strategy := w.cfg.OverflowStrategy
	for strategy == OverflowBlock && w.queue.full() && w.running {
		w.notFull.Wait()
	}
	if !w.running {
		return false
	}

	var dropped bool
	switch strategy {
	case OverflowDropNewest:
		dropped = w.queue.pushDropNewest(ev)
	default: // OverflowDropOldest and OverflowBlock (queue has space by now)
		dropped = w.queue.pushDropOldest(ev)
	}

	if dropped {
		w.dropped.Add(1)
		asyncDroppedTotal.WithLabelValues(overflowStrategyName(strategy)).Inc()
		reportDiagnostic("arbor: async queue overflow (%s), dropping a record for logger %q", overflowStrategyName(strategy), ev.ownerName)
	} else {
		w.enqueued.Add(1)
		asyncEnqueuedTotal.Inc()
	}
	asyncQueueDepth.Set(float64(w.queue.len()))
	w.notFull.Signal()
	w.empty.Signal()
	return true
}

func overflowStrategyName(s OverflowStrategy) string {
	switch s {
	case OverflowDropOldest:
		return "drop_oldest"
	case OverflowDropNewest:
		return "drop_newest"
	case OverflowBlock:
		return "block"
	default:
		return "unknown"
	}
}

// run is the cooperative worker loop. It restarts itself on panic, up to
// cfg.MaxRestarts times, waiting cfg.RestartBackoff between restarts. gen
// lets a stale goroutine from a prior reconfigure notice it has been
// superseded and exit instead of fighting the new one.
func (w *asyncWriter) run(gen uint64) {
	restarts := 0
	for {
		stopped := w.drainLoop(gen)
		if stopped {
			return
		}
		restarts++
		w.restarts.Add(1)
		asyncWorkerRestartsTotal.Inc()
		w.mu.Lock()
		backoff := w.cfg.RestartBackoff
		maxRestarts := w.cfg.MaxRestarts
		stillCurrent := w.gen == gen && w.running
		w.mu.Unlock()
		if !stillCurrent {
			return
		}
		if restarts > maxRestarts {
			// Restart budget exhausted: disable the writer so future
			// enqueues report "not running" and runPipeline falls back to
			// synchronous dispatch, per spec.md §4.E/§7.
			w.mu.Lock()
			if w.gen == gen {
				w.running = false
				w.notFull.Broadcast()
				w.empty.Broadcast()
			}
			w.mu.Unlock()
			reportDiagnostic("arbor: async writer exhausted restarts (%d/%d), falling back to synchronous dispatch: %v",
				restarts, maxRestarts, &AsyncError{Kind: RestartLimit, Detail: "max_restarts exceeded"})
			return
		}
		time.Sleep(backoff)
	}
}

// drainLoop pops and flushes batches until told to stop (gen changed or
// running turned false). It recovers from a panic in one batch, logging
// a diagnostic and returning false (signalling run to restart); it
// returns true when the writer has been cleanly stopped.
func (w *asyncWriter) drainLoop(gen uint64) (stopped bool) {
	defer func() {
		if r := recover(); r != nil {
			reportDiagnostic("arbor: async writer worker panic: %v\n%s", r, captureStack(3))
			stopped = false
		}
	}()

	for {
		batch, shouldStop := w.popLocked(gen)
		if shouldStop {
			return true
		}

		for _, ev := range batch {
			// The worker replays the full transform→present→output chain
			// here — not just the output stage — since enqueue happens
			// before any pipeline stage runs (spec.md §4.E: the worker
			// "invoke[s] the dispatch walk" for each popped item).
			if panicked := runPipelineStages(&ev.rec, ev.pipeline, ev.ownerName); panicked {
				// Each step's own recover() already isolated the panic so the
				// worker goroutine never actually dies; spec.md §8 invariant 10
				// still counts this as a restart since the record itself was
				// lost mid-flight, the same externally observable contract a
				// real goroutine restart would produce.
				w.restarts.Add(1)
				asyncWorkerRestartsTotal.Inc()
			}
			w.flushed.Add(1)
			asyncFlushedTotal.Inc()
		}

		w.mu.Lock()
		current := w.gen == gen && w.running
		w.mu.Unlock()
		if !current {
			return true
		}
	}
}

// popLocked waits for work and pops the next batch under w.mu. The lock
// acquisition is scoped to this call (via defer) rather than released by
// hand, so a panic anywhere in here — a future bug in queue bookkeeping,
// say — still unlocks w.mu instead of deadlocking every later caller.
func (w *asyncWriter) popLocked(gen uint64) (batch []queuedEvent, shouldStop bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for w.queue.len() == 0 {
		if w.gen != gen || !w.running {
			return nil, true
		}
		w.empty.Wait()
	}
	batch = w.queue.popBatch(w.cfg.BatchSize)
	w.notFull.Broadcast()
	// Broadcast on every batch, not just when the queue empties, so a
	// Flush() caller waiting on progress (not just emptiness) wakes up
	// and can tell real drains from a stall.
	w.empty.Broadcast()
	asyncQueueDepth.Set(float64(w.queue.len()))
	return batch, false
}

// maxFlushStallResumes is the number of successive worker resumes with no
// change in queue depth before Flush gives up and reports FlushStall,
// per spec.md §4.E's flush contract.
const maxFlushStallResumes = 10

// Flush requests a drain and blocks until the async writer's queue is
// empty, an overall timeout elapses (FlushTimeout), or ten successive
// resumes pass with no change in queue depth (FlushStall). If the async
// writer is disabled it returns immediately. Any events left queued when
// Flush gives up are not dropped; their count is reported by the error
// and remains observable via Stats().
func Flush(timeout time.Duration) error {
	asyncW.mu.Lock()
	defer asyncW.mu.Unlock()
	if !asyncW.running {
		return nil
	}
	if asyncW.queue.len() == 0 {
		return nil
	}

	timedOut := make(chan struct{})
	stopTimer := make(chan struct{})
	defer close(stopTimer)
	go func() {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case <-timer.C:
			asyncW.mu.Lock()
			close(timedOut)
			asyncW.empty.Broadcast()
			asyncW.mu.Unlock()
		case <-stopTimer:
		}
	}()

	lastLen := asyncW.queue.len()
	stalls := 0
	for asyncW.queue.len() > 0 {
		select {
		case <-timedOut:
			return &AsyncError{Kind: FlushTimeout, Detail: fmt.Sprintf("queue still had %d records after %s", asyncW.queue.len(), timeout)}
		default:
		}
		asyncW.empty.Wait()
		curLen := asyncW.queue.len()
		if curLen == lastLen && curLen > 0 {
			stalls++
			if stalls >= maxFlushStallResumes {
				return &AsyncError{Kind: FlushStall, Detail: fmt.Sprintf("queue still had %d records after %d resumes without progress", curLen, stalls)}
			}
		} else {
			stalls = 0
		}
		lastLen = curLen
	}
	return nil
}

// Stats returns a point-in-time snapshot of the async writer's health.
func Stats() AsyncStats {
	asyncW.mu.Lock()
	defer asyncW.mu.Unlock()
	return AsyncStats{
		QueueDepth:     asyncW.queue.len(),
		QueueCapacity:  asyncW.queue.cap(),
		Enqueued:       asyncW.enqueued.Load(),
		Dropped:        asyncW.dropped.Load(),
		Flushed:        asyncW.flushed.Load(),
		WorkerRestarts: asyncW.restarts.Load(),
		Running:        asyncW.running,
	}
}
