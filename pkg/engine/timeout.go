package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/quantrig/quantrig/pkg/strategy"
)

// EvalTimeout is the hard limit for a single evaluation.
const EvalTimeout = 5 * time.Second

// evalResult passes evaluation results through the worker channel.
type evalResult struct {
	snap   strategy.Snapshot
	errors []EvalError
	err    error
}

// waitWithTimeout waits for a result from ch, returning a timeout error if
// the evaluation exceeds EvalTimeout. A generation counter discards stale
// results: on timeout the goroutine may still be running, and whatever it
// eventually produces must not be attributed to a newer request.
func waitWithTimeout(
	ch <-chan evalResult,
	gen uint64,
	mu *sync.Mutex,
	currentGen *uint64,
) (strategy.Snapshot, []EvalError, error) {
	timer := time.NewTimer(EvalTimeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		mu.Lock()
		current := *currentGen
		mu.Unlock()

		if gen != current {
			return strategy.Snapshot{}, nil, fmt.Errorf("evaluation superseded by newer request")
		}
		return res.snap, res.errors, res.err

	case <-timer.C:
		return strategy.Snapshot{}, nil, fmt.Errorf("evaluation timed out after %s", EvalTimeout)
	}
}
