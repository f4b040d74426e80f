// Package engine evaluates job manifests. A manifest is a small Lisp program
// run in a sandboxed zygomys interpreter; its job and part forms describe
// which drawings to convert, in what quantity and with which options.
package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/dxfnest/pkg/config"
	"github.com/chazu/dxfnest/pkg/convert"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in manifest code.
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

// EvalWarning is a finding that does not stop the manifest from being used.
type EvalWarning struct {
	Line    int
	Col     int
	Message string
}

// Part is one drawing listed in a manifest.
type Part struct {
	File     string
	Quantity int
}

// Manifest is the outcome of evaluating a manifest program.
type Manifest struct {
	Options  config.Options
	Parts    []Part
	Warnings []EvalWarning
}

// Name is the job name, which is also the problem name sent to the solver.
func (m *Manifest) Name() string { return m.Options.ProblemName }

// Inputs reads every part's drawing. Relative paths are resolved against
// dir, normally the directory holding the manifest.
func (m *Manifest) Inputs(dir string) ([]convert.FileInput, error) {
	files := make([]convert.FileInput, 0, len(m.Parts))
	for _, p := range m.Parts {
		path := p.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("engine: read part: %w", err)
		}
		files = append(files, convert.FileInput{Name: filepath.Base(p.File), Content: string(data), Quantity: p.Quantity})
	}
	return files, nil
}

// EvalResult bundles the full output of an evaluation for use by UI bindings.
type EvalResult struct {
	Manifest *Manifest
	Errors   []EvalError
	Warnings []EvalWarning
}

// Engine wraps the zygomys interpreter for manifest evaluation.
// It is safe for concurrent use; each call to Evaluate creates a fresh
// sandboxed environment for determinism.
type Engine struct {
	// Timeout bounds one evaluation; zero means EvalTimeout.
	Timeout time.Duration

	mu         sync.Mutex
	generation uint64
}

// NewEngine creates a new Engine instance.
func NewEngine() *Engine {
	return &Engine{}
}

// Evaluate runs a manifest program.
//
// Return semantics:
//   - On success: returns manifest + nil errors + nil error
//   - On parse/eval failure or an unusable manifest: returns nil manifest +
//     eval errors + nil error
//   - On fatal failure (timeout, panic): returns nil + nil + error
func (e *Engine) Evaluate(source string) (*Manifest, []EvalError, error) {
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

		m, evalErrs, err := e.evaluate(source)
		ch <- evalResult{manifest: m, errors: evalErrs, err: err}
	}()

	return e.await(ch, gen)
}

// EvaluateFile reads and evaluates a manifest file.
func (e *Engine) EvaluateFile(path string) (*Manifest, []EvalError, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("engine: %w", err)
	}
	return e.Evaluate(string(data))
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(source string) (*Manifest, []EvalError, error) {
	if strings.TrimSpace(source) == "" {
		return nil, []EvalError{{Message: "manifest is empty"}}, nil
	}

	// Sandbox mode keeps manifest code away from the filesystem and syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	b := newBuilder()
	registerBuiltins(env, b)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}
	if _, err := env.Run(); err != nil {
		return nil, parseZygomysError(err), nil
	}

	m, errs := b.finish()
	if len(errs) > 0 {
		return nil, errs, nil
	}
	return m, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into an EvalError, pulling out
// the line number when the message carries one.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()
	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
		}
	}
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
