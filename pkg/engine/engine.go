// Package engine provides the Lisp evaluation engine for board
// descriptions. It wraps zygomys in a sandboxed environment and produces a
// board.Board from user source code.
package engine

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/pcbsolid/pkg/board"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code.
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

// EvalWarning represents a non-fatal finding about the evaluated board.
type EvalWarning struct {
	Subject string
	Message string
}

// EvalResult bundles the full output of an evaluation and validation run.
type EvalResult struct {
	Board    *board.Board
	Errors   []EvalError
	Warnings []EvalWarning
}

// OK reports whether the board can be built.
func (r EvalResult) OK() bool { return r.Board != nil && len(r.Errors) == 0 }

// Defaults are the layer thicknesses used when a layer does not give one,
// and the plating of boards that do not set it.
type Defaults struct {
	Copper     float64
	Dielectric float64
	Mask       float64
	Silk       float64
	Plating    float64
}

// DefaultThicknesses holds common values in millimetres.
var DefaultThicknesses = Defaults{
	Copper:     0.035,
	Dielectric: 1.5,
	Mask:       0.015,
	Silk:       0.01,
	Plating:    board.DefaultPlating,
}

// thickness returns the default thickness of a layer kind.
func (d Defaults) thickness(k board.LayerKind) float64 {
	switch k {
	case board.Copper:
		return d.Copper
	case board.Dielectric:
		return d.Dielectric
	case board.Mask:
		return d.Mask
	default:
		return d.Silk
	}
}

// DefaultTimeout bounds the evaluation of one board description.
const DefaultTimeout = 5 * time.Second

var (
	// ErrTimeout is returned when a description runs past Engine.Timeout.
	ErrTimeout = errors.New("board evaluation timed out")
	// ErrSuperseded is returned to a caller whose evaluation finished after a
	// newer one had started.
	ErrSuperseded = errors.New("board evaluation superseded by a newer one")
)

// Engine wraps the zygomys interpreter for board evaluation.
// It is safe for concurrent use; each call to Evaluate creates a fresh
// sandboxed environment for determinism.
type Engine struct {
	Defaults Defaults
	Timeout  time.Duration

	mu         sync.Mutex
	generation uint64
}

// NewEngine creates a new Engine instance.
func NewEngine() *Engine {
	return &Engine{Defaults: DefaultThicknesses, Timeout: DefaultTimeout}
}

// evalResult carries one evaluation out of its goroutine.
type evalResult struct {
	board  *board.Board
	errors []EvalError
	err    error
}

// Evaluate takes Lisp source code and produces a new Board.
// Each call creates a fresh zygomys sandbox for deterministic evaluation.
//
// Return semantics:
//   - On success: returns board + nil errors + nil error
//   - On parse/eval failure: returns nil board + eval errors + nil error
//   - On fatal failure (timeout, panic): returns nil + nil + error
func (e *Engine) Evaluate(source string) (*board.Board, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	defaults := e.Defaults
	e.mu.Unlock()

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		b, evalErrs, err := evaluate(source, defaults)
		ch <- evalResult{board: b, errors: evalErrs, err: err}
	}()

	return e.await(ch, gen)
}

// await returns the board evaluation gen delivers on ch. A result that
// arrives after a newer evaluation started is dropped. On timeout the
// evaluating goroutine keeps running and its result is never read.
func (e *Engine) await(ch <-chan evalResult, gen uint64) (*board.Board, []EvalError, error) {
	limit := e.Timeout
	if limit <= 0 {
		limit = DefaultTimeout
	}
	timer := time.NewTimer(limit)
	defer timer.Stop()

	select {
	case res := <-ch:
		e.mu.Lock()
		current := e.generation
		e.mu.Unlock()
		if gen != current {
			return nil, nil, ErrSuperseded
		}
		return res.board, res.errors, res.err
	case <-timer.C:
		return nil, nil, fmt.Errorf("%w after %s", ErrTimeout, limit)
	}
}

// EvaluateFile reads and evaluates the description at path.
func (e *Engine) EvaluateFile(path string) (*board.Board, []EvalError, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("engine: %w", err)
	}
	return e.Evaluate(string(src))
}

// Check evaluates source and validates the resulting board. Validation
// errors are reported as EvalErrors without line information.
func (e *Engine) Check(source string) (EvalResult, error) {
	b, evalErrs, err := e.Evaluate(source)
	if err != nil {
		return EvalResult{}, err
	}
	res := EvalResult{Board: b, Errors: evalErrs}
	if b == nil {
		return res, nil
	}
	v := board.ValidateAll(b)
	for _, ve := range v.Errors {
		res.Errors = append(res.Errors, EvalError{Message: ve.Error()})
	}
	for _, w := range v.Warnings {
		res.Warnings = append(res.Warnings, EvalWarning{Subject: w.Subject, Message: w.Message})
	}
	return res, nil
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func evaluate(source string, defaults Defaults) (*board.Board, []EvalError, error) {
	b := board.New("")
	b.Plating = defaults.Plating

	// Empty source is a valid program that produces an empty board.
	if strings.TrimSpace(source) == "" {
		return b, nil, nil
	}

	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	registerBuiltins(env, &builder{board: b, defaults: defaults})

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}
	if _, err := env.Run(); err != nil {
		return nil, parseZygomysError(err), nil
	}
	return b, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	// zygomys formats parse errors as "Error on line N: <details>\n"
	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
		}
	}

	// Fallback: no line info available.
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
