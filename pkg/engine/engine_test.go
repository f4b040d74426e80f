package engine

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestEvaluateSyntaxError(t *testing.T) {
	eng := NewEngine()

	// Unmatched paren is a parse error.
	m, evalErrs, err := eng.Evaluate(`(part "a.dxf"`)
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if m != nil {
		t.Fatal("expected nil manifest on syntax error")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error for syntax error")
	}
	if evalErrs[0].Message == "" {
		t.Error("eval error message should not be empty")
	}
}

func TestEvaluateUndefinedSymbol(t *testing.T) {
	eng := NewEngine()

	m, evalErrs, err := eng.Evaluate(`(part "a.dxf" :qty undefined-count)`)
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if m != nil {
		t.Fatal("expected nil manifest on eval error")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error for undefined symbol")
	}
}

func TestEvalErrorImplementsError(t *testing.T) {
	e := EvalError{Line: 5, Message: "something went wrong"}
	s := e.Error()
	if !strings.Contains(s, "line 5") {
		t.Errorf("Error() should contain line info, got: %s", s)
	}
	if !strings.Contains(s, "something went wrong") {
		t.Errorf("Error() should contain message, got: %s", s)
	}

	e2 := EvalError{Message: "no location"}
	if strings.Contains(e2.Error(), "line") {
		t.Errorf("Error() with no line should not contain 'line', got: %s", e2.Error())
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	eng := NewEngine()

	// Every evaluation starts from a fresh sandbox, so state never leaks.
	for i := 0; i < 5; i++ {
		m, evalErrs, err := eng.Evaluate(`(part "a.dxf" :qty 2)`)
		if err != nil {
			t.Fatalf("iteration %d: unexpected fatal error: %v", i, err)
		}
		if len(evalErrs) > 0 {
			t.Fatalf("iteration %d: unexpected eval errors: %v", i, evalErrs)
		}
		if len(m.Parts) != 1 || m.Parts[0].Quantity != 2 {
			t.Errorf("iteration %d: parts = %v", i, m.Parts)
		}
	}
}

func TestEvaluateFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "job.zy")
	if err := os.WriteFile(path, []byte(`(job "from-file") (part "a.dxf")`), 0o644); err != nil {
		t.Fatal(err)
	}
	m, evalErrs, err := NewEngine().EvaluateFile(path)
	if err != nil || len(evalErrs) > 0 {
		t.Fatalf("err=%v evalErrs=%v", err, evalErrs)
	}
	if m.Name() != "from-file" {
		t.Errorf("name = %q", m.Name())
	}

	if _, _, err := NewEngine().EvaluateFile(filepath.Join(dir, "missing.zy")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestManifestInputs(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.dxf"), []byte("0\nEOF\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	abs := filepath.Join(t.TempDir(), "b.dxf")
	if err := os.WriteFile(abs, []byte("B"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := &Manifest{Parts: []Part{{File: "a.dxf", Quantity: 3}, {File: abs, Quantity: 1}}}
	files, err := m.Inputs(dir)
	if err != nil {
		t.Fatalf("Inputs: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(files))
	}
	if files[0].Name != "a.dxf" || files[0].Quantity != 3 || files[0].Content != "0\nEOF\n" {
		t.Errorf("file 0 = %+v", files[0])
	}
	if files[1].Name != "b.dxf" || files[1].Content != "B" {
		t.Errorf("file 1 = %+v", files[1])
	}

	m.Parts = append(m.Parts, Part{File: "nope.dxf", Quantity: 1})
	if _, err := m.Inputs(dir); err == nil {
		t.Error("expected error for missing part file")
	}
}

func TestEvaluateTimeout(t *testing.T) {
	// Drive await directly with a channel that never sends; an endless
	// manifest would keep a zygomys goroutine spinning after the test.
	e := &Engine{Timeout: 50 * time.Millisecond, generation: 1}
	ch := make(chan evalResult)

	done := make(chan error, 1)
	go func() {
		_, _, err := e.await(ch, 1)
		done <- err
	}()

	select {
	case err := <-done:
		if !errors.Is(err, ErrTimeout) {
			t.Fatalf("expected ErrTimeout, got: %v", err)
		}
		if !strings.Contains(err.Error(), "50ms") {
			t.Errorf("timeout error should name the limit, got: %v", err)
		}
	case <-time.After(EvalTimeout):
		t.Fatal("test itself timed out waiting for evaluation timeout")
	}
}

func TestEvaluateDefaultTimeout(t *testing.T) {
	if got := NewEngine().timeout(); got != EvalTimeout {
		t.Errorf("timeout() = %s, want %s", got, EvalTimeout)
	}
}

func TestEvaluateGenerationDiscardsStale(t *testing.T) {
	e := &Engine{generation: 2}
	m := &Manifest{Parts: []Part{{File: "a.dxf", Quantity: 1}, {File: "b.dxf", Quantity: 3}}}
	m.Options.ProblemName = "old-job"

	ch := make(chan evalResult, 1)
	ch <- evalResult{manifest: m}

	_, _, err := e.await(ch, 1)
	if !errors.Is(err, ErrSuperseded) {
		t.Fatalf("expected ErrSuperseded, got: %v", err)
	}
	if !strings.Contains(err.Error(), `"old-job" with 2 part(s)`) {
		t.Errorf("error should name the discarded manifest, got: %v", err)
	}

	// a failed stale evaluation has no manifest to name
	ch <- evalResult{errors: []EvalError{{Message: "boom"}}}
	if _, _, err := e.await(ch, 1); err != ErrSuperseded {
		t.Errorf("expected bare ErrSuperseded, got: %v", err)
	}
}

func TestEvaluateCurrentGenerationPassesThrough(t *testing.T) {
	e := &Engine{generation: 3}
	ch := make(chan evalResult, 1)
	ch <- evalResult{errors: []EvalError{{Line: 2, Message: "bad"}}}

	m, errs, err := e.await(ch, 3)
	if err != nil || m != nil {
		t.Fatalf("unexpected result: %v %v", m, err)
	}
	if len(errs) != 1 || errs[0].Line != 2 {
		t.Errorf("eval errors = %+v", errs)
	}
}

func TestParseZygomysError(t *testing.T) {
	tests := []struct {
		name     string
		msg      string
		wantLine int
		wantMsg  string
	}{
		{"error on line format", "Error on line 5: unexpected token\n", 5, "unexpected token"},
		{"no line info", "some generic error", 0, "some generic error"},
		{"line format lowercase", "error on line 12: missing paren", 12, "missing paren"},
		{"short format", "line 3: bad part", 3, "bad part"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := parseZygomysError(errString(tt.msg))
			if len(errs) == 0 {
				t.Fatal("expected at least one error")
			}
			e := errs[0]
			if e.Line != tt.wantLine {
				t.Errorf("line = %d, want %d", e.Line, tt.wantLine)
			}
			if !strings.Contains(e.Message, tt.wantMsg) {
				t.Errorf("message = %q, want containing %q", e.Message, tt.wantMsg)
			}
		})
	}
}

type errString string

func (e errString) Error() string { return string(e) }
