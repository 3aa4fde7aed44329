package arbor

import "sync"

// captureSink records every record handed to it by a captureOutput, in
// call order, for assertion in tests. Safe for concurrent use since the
// async writer's worker goroutine runs outputs off the caller's thread.
type captureSink struct {
	mu   sync.Mutex
	msgs []string
	recs []Record
}

func (s *captureSink) add(rec *Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, rec.Message)
	s.recs = append(s.recs, *rec)
}

func (s *captureSink) messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.msgs))
	copy(out, s.msgs)
	return out
}

func (s *captureSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.msgs)
}

// captureOutput builds an OutputSpec that appends every record it
// receives to sink, instead of writing anywhere real.
func captureOutput(name string, sink *captureSink) OutputSpec {
	return OutputSpec{
		Name: name,
		Fn: func(rec *Record, _ map[string]interface{}) error {
			sink.add(rec)
			return nil
		},
	}
}

// failingOutput always returns an error, for exercising output-failure
// isolation without panicking the caller.
func failingOutput(name string, err error) OutputSpec {
	return OutputSpec{
		Name: name,
		Fn: func(*Record, map[string]interface{}) error {
			return err
		},
	}
}

// panickingOutput panics on every call, for exercising the async
// worker's recover/restart path.
func panickingOutput(name string) OutputSpec {
	return OutputSpec{
		Name: name,
		Fn: func(*Record, map[string]interface{}) error {
			panic("boom: " + name)
		},
	}
}

// passthroughPresenter returns the record's already-formatted message
// unchanged, for tests that only care about routing/gating, not text
// layout.
func passthroughPresenter() PresenterSpec {
	return PresenterSpec{
		Name: "passthrough",
		Fn: func(rec *Record, _ map[string]interface{}) (string, error) {
			return rec.Message, nil
		},
	}
}

// failingPresenter always returns an error, for exercising presenter
// failure isolation (spec.md §4.B, scenario 5).
func failingPresenter(err error) PresenterSpec {
	return PresenterSpec{
		Name: "failing",
		Fn: func(*Record, map[string]interface{}) (string, error) {
			return "", err
		},
	}
}

func simplePipeline(out OutputSpec) *Pipeline {
	return &Pipeline{
		Outputs:   []OutputSpec{out},
		Presenter: passthroughPresenter(),
	}
}

func boolPtr(b bool) *bool   { return &b }
func levelPtr(l Level) *Level { return &l }

// resetAll restores every process-wide singleton to its zero/default
// state, so tests don't leak loggers, config, or level registrations
// into one another. Call via t.Cleanup or at the top of a test.
func resetAll() {
	ResetCache()
	ResetConfig()
	resetLevelRegistry()
	asyncW.mu.Lock()
	asyncW.queue = newBoundedQueue(1)
	asyncW.running = false
	asyncW.gen++
	asyncW.enqueued.Store(0)
	asyncW.dropped.Store(0)
	asyncW.flushed.Store(0)
	asyncW.restarts.Store(0)
	asyncW.mu.Unlock()
}
