// Package solver runs the external nesting solver on a job document and
// reads back its result.
package solver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultBinary is looked up on PATH when Runner.Binary is empty.
	DefaultBinary = "sparrow-cli"
	// DefaultTimeout is the solver's own optimization budget.
	DefaultTimeout = 60 * time.Second
	// grace is how long the process may overrun its budget before it is
	// killed.
	grace = 30 * time.Second
)

// ErrNotFound is returned when the solver executable cannot be located.
var ErrNotFound = errors.New("solver: executable not found")

// Runner invokes the solver. The zero value runs DefaultBinary with
// DefaultTimeout and one worker.
type Runner struct {
	Binary  string
	Timeout time.Duration
	Workers int
	// WorkDir holds per-run scratch directories; empty uses os.TempDir.
	WorkDir string
	// Keep leaves the scratch directory in place after the run.
	Keep   bool
	Logger *slog.Logger
}

// Result is a finished solver run.
type Result struct {
	RunID  string
	Output Output
	// SVG is the rendered layout with its viewBox expanded, or empty when
	// the solver produced none.
	SVG string
	// Dir is the scratch directory, set only when Keep is on.
	Dir string
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func (r *Runner) binary() (string, error) {
	bin := r.Binary
	if bin == "" {
		bin = DefaultBinary
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrNotFound, bin)
	}
	return path, nil
}

// Args returns the solver command line for the given file paths.
func (r *Runner) Args(input, output, svg string) []string {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	workers := r.Workers
	if workers < 1 {
		workers = 1
	}
	secs := int(timeout.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return []string{
		"--input", input,
		"--output", output,
		"--output-svg", svg,
		"--timeout", strconv.Itoa(secs),
		"--workers", strconv.Itoa(workers),
	}
}

// Run writes job to a scratch directory, runs the solver on it and parses
// the result. The process is killed when ctx ends or when it overruns its
// timeout by more than a grace period.
func (r *Runner) Run(ctx context.Context, job []byte) (*Result, error) {
	bin, err := r.binary()
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	log := r.logger().With("run", id)
	dir, err := os.MkdirTemp(r.WorkDir, "dxfnest-"+id+"-")
	if err != nil {
		return nil, fmt.Errorf("solver: scratch dir: %w", err)
	}
	if !r.Keep {
		defer os.RemoveAll(dir)
	}

	input := filepath.Join(dir, "input.json")
	output := filepath.Join(dir, "output.json")
	svgPath := filepath.Join(dir, "output.svg")
	if err := os.WriteFile(input, job, 0o644); err != nil {
		return nil, fmt.Errorf("solver: write job: %w", err)
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout+grace)
	defer cancel()

	cmd := exec.CommandContext(ctx, bin, r.Args(input, output, svgPath)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.Dir = dir

	log.Info("solver started", "binary", bin, "timeout", timeout, "workers", max(r.Workers, 1))
	start := time.Now()
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("solver: %w", ctxErr)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = "unknown error occurred during nesting"
		}
		return nil, fmt.Errorf("solver: %w: %s", err, msg)
	}
	log.Info("solver finished", "elapsed", time.Since(start).Round(time.Millisecond))

	data, err := os.ReadFile(output)
	if err != nil {
		return nil, fmt.Errorf("solver: read output: %w", err)
	}
	out, err := ParseOutput(data)
	if err != nil {
		return nil, err
	}

	res := &Result{RunID: id, Output: out}
	if svg, err := os.ReadFile(svgPath); err == nil {
		res.SVG = ExpandViewBox(string(svg), DefaultViewBoxMargin)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("solver: read svg: %w", err)
	}
	if r.Keep {
		res.Dir = dir
	}
	return res, nil
}
