package arbor

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
)

// stepOutcome records which stages of one pipeline failed. No code in the
// package reads it: runPipelineStages reports only whether an output
// panicked, and the guarded* helpers below never let a panic or error
// escape to the dispatch engine's caller.
type stepOutcome struct {
	transformerFailed bool
	presenterFailed   bool
}

// runTransformers executes P.Transformers in order. On the first failure
// it marks rec.TransformerError, stops running further transformers *and*
// the presenter for this pipeline (per §4.B), and reports a diagnostic.
func runTransformers(rec *Record, specs []TransformerSpec, ownerName string) (failed bool) {
	for _, spec := range specs {
		merged := mergedConfig(spec.Defaults, spec.Config)
		next, err := guardedTransform(spec.Fn, rec, merged)
		if err != nil {
			rec.TransformerError = err.Error()
			reportDiagnostic("arbor: transformer %q failed for logger %q: %v", spec.Name, ownerName, err)
			return true
		}
		*rec = next
	}
	return false
}

func guardedTransform(fn TransformerFunc, rec *Record, cfg map[string]interface{}) (out Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &StepError{Kind: TransformerFailure, Detail: fmt.Sprintf("panic: %v\n%s", r, captureStack(3)), Panicked: true}
		}
	}()
	return fn(rec, cfg)
}

// runPresenter executes P.Presenter. On failure it sets rec.PresenterError
// and synthesizes a fallback message per §4.B containing timestamp,
// level, logger, source location, the raw message_fmt, and the error.
func runPresenter(rec *Record, spec PresenterSpec, ownerName string) (failed bool) {
	merged := mergedConfig(spec.Defaults, spec.Config)
	msg, err := guardedPresent(spec.Fn, rec, merged)
	if err != nil {
		rec.PresenterError = err.Error()
		rec.Message = fallbackMessage(rec, err)
		reportDiagnostic("arbor: presenter %q failed for logger %q: %v", spec.Name, ownerName, err)
		return true
	}
	rec.Message = msg
	return false
}

func guardedPresent(fn PresenterFunc, rec *Record, cfg map[string]interface{}) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &StepError{Kind: PresenterFailure, Detail: fmt.Sprintf("panic: %v\n%s", r, captureStack(3)), Panicked: true}
		}
	}()
	return fn(rec, cfg)
}

func fallbackMessage(rec *Record, err error) string {
	return fmt.Sprintf("%s %s %s %s:%d %s [PRESENTER ERROR: %v]",
		rec.Timestamp.Format(time.RFC3339), rec.LevelName, rec.OwnerLoggerName,
		rec.Filename, rec.Lineno, rec.MessageFmt, err)
}

// runOutputs executes P.Outputs in order. A single output failure never
// prevents the remaining outputs from running nor propagation to other
// loggers; all failures from one pipeline are joined via multierr before
// being reported once, so none are swallowed. panicked reports whether any
// output recovered from an actual panic (as opposed to a returned error),
// which the async worker uses to count a restart per spec.md §8 invariant
// 10 even though the goroutine itself never actually dies.
func runOutputs(rec *Record, specs []OutputSpec, ownerName string) (panicked bool) {
	var errs error
	for _, spec := range specs {
		merged := mergedConfig(spec.Defaults, spec.Config)
		if err := guardedOutput(spec.Fn, rec, merged); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("output %q: %w", spec.Name, err))
			var stepErr *StepError
			if errors.As(err, &stepErr) && stepErr.Panicked {
				panicked = true
			}
		}
	}
	if errs != nil {
		reportDiagnostic("arbor: output failure(s) for logger %q: %v", ownerName, errs)
	}
	return panicked
}

func guardedOutput(fn OutputFunc, rec *Record, cfg map[string]interface{}) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &StepError{Kind: OutputFailure, Detail: fmt.Sprintf("panic: %v\n%s", r, captureStack(3)), Panicked: true}
		}
	}()
	return fn(rec, cfg)
}

// runPipelineStages runs p's full transformer→presenter→output chain
// against rec. It is the single place both the synchronous dispatch path
// (dispatch.go runPipeline) and the async worker's drain loop (worker.go)
// call to replay a pipeline, so a queued event and a synchronously
// dispatched one go through exactly the same stages (spec.md §4.E: the
// worker "invoke[s] the dispatch walk" for each item it pops).
func runPipelineStages(rec *Record, p *Pipeline, ownerName string) (panicked bool) {
	if !runTransformers(rec, p.Transformers, ownerName) {
		runPresenter(rec, p.Presenter, ownerName)
	}
	return runOutputs(rec, p.Outputs, ownerName)
}
