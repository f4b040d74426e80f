package engine

import (
	"errors"
	"fmt"
	"time"
)

// EvalTimeout is the default limit for evaluating one manifest.
const EvalTimeout = 5 * time.Second

var (
	// ErrTimeout is returned when a manifest does not finish evaluating in
	// time, usually because it loops.
	ErrTimeout = errors.New("engine: manifest evaluation timed out")
	// ErrSuperseded is returned to a caller whose manifest finished after a
	// newer Evaluate call started. The editor only shows the newest result.
	ErrSuperseded = errors.New("engine: manifest superseded by a newer evaluation")
)

type evalResult struct {
	manifest *Manifest
	errors   []EvalError
	err      error
}

func (e *Engine) timeout() time.Duration {
	if e.Timeout > 0 {
		return e.Timeout
	}
	return EvalTimeout
}

func (e *Engine) current(gen uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return gen == e.generation
}

// await collects the result of evaluation gen from ch. A manifest that
// overruns the timeout is abandoned: its goroutine keeps running until the
// sandbox returns and its result is dropped, since ch is buffered.
func (e *Engine) await(ch <-chan evalResult, gen uint64) (*Manifest, []EvalError, error) {
	limit := e.timeout()
	timer := time.NewTimer(limit)
	defer timer.Stop()

	select {
	case res := <-ch:
		if !e.current(gen) {
			if res.manifest != nil {
				return nil, nil, fmt.Errorf("%w: job %q with %d part(s) discarded",
					ErrSuperseded, res.manifest.Name(), len(res.manifest.Parts))
			}
			return nil, nil, ErrSuperseded
		}
		return res.manifest, res.errors, res.err
	case <-timer.C:
		return nil, nil, fmt.Errorf("%w after %s", ErrTimeout, limit)
	}
}
