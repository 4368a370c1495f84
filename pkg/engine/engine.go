// Package engine is the bridge between the editor graph and the strategy
// DSL. Generate renders a snapshot as s-expression source; Evaluate parses
// DSL source back into a snapshot through a sandboxed zygomys environment.
// The editor core never depends on this package; it consumes snapshots
// through the plain-data boundary.
package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/quantrig/quantrig/pkg/strategy"
)

// EvalError represents a non-fatal error encountered while evaluating DSL
// source, such as a parse error or a bad builtin argument.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Engine wraps the zygomys interpreter. Each call to Evaluate creates a
// fresh sandboxed environment for determinism; the engine itself only
// tracks evaluation generations so stale results can be discarded.
type Engine struct {
	mu         sync.Mutex
	generation uint64
}

// New creates a new Engine.
func New() *Engine {
	return &Engine{}
}

// Evaluate parses strategy DSL source into a snapshot.
//
// Return semantics follow the three-way split used throughout the app:
//   - success: snapshot + nil errors + nil error
//   - parse/eval failure: zero snapshot + eval errors + nil error
//   - fatal failure (timeout, panic): zero snapshot + nil + error
func (e *Engine) Evaluate(source string) (strategy.Snapshot, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()
		snap, evalErrs, err := evaluate(source)
		ch <- evalResult{snap: snap, errors: evalErrs, err: err}
	}()

	return waitWithTimeout(ch, gen, &e.mu, &e.generation)
}

// evaluate runs the source in a fresh sandbox. Sandbox mode keeps user
// DSL away from the filesystem and syscalls.
func evaluate(source string) (strategy.Snapshot, []EvalError, error) {
	if strings.TrimSpace(source) == "" {
		return strategy.Snapshot{}, nil, nil
	}

	env := zygo.NewZlispSandbox()
	defer env.Stop()

	b := newBuilder()
	registerBuiltins(env, b)

	err := env.LoadString(preprocessSource(source))
	if err != nil {
		return strategy.Snapshot{}, parseZygoError(err), nil
	}

	_, err = env.Run()
	if err != nil {
		return strategy.Snapshot{}, parseZygoError(err), nil
	}

	return b.snapshot(), nil, nil
}

// linePattern matches zygomys messages of the form "Error on line N: ...".
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches plain "line N: ..." messages.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygoError converts a zygomys error into EvalError values, pulling
// line numbers out of the message where possible.
func parseZygoError(err error) []EvalError {
	msg := err.Error()

	if m := linePattern.FindStringSubmatch(msg); m != nil {
		line, _ := strconv.Atoi(m[1])
		return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
	}
	if m := linePatternShort.FindStringSubmatch(msg); m != nil {
		line, _ := strconv.Atoi(m[1])
		return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
	}
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
