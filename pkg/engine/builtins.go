package engine

import (
	"fmt"
	"math"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/dxfnest/pkg/config"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// preprocessSource rewrites manifest source before zygomys sees it:
//
//  1. :keyword becomes the string literal "__kw_keyword", so option names
//     never collide with variables the manifest defines.
//  2. kebab-case identifiers become snake_case (group-size -> group_size);
//     zygomys reads a hyphen as subtraction.
//  3. ; line comments become // comments.
//
// String literals are copied untouched.
func preprocessSource(source string) string {
	b := []byte(source)
	out := make([]byte, 0, len(b)+len(b)/4)
	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c == '"' || c == '`':
			j := skipString(b, i)
			out = append(out, b[i:j]...)
			i = j

		case c == ';':
			for i < len(b) && b[i] == ';' {
				i++
			}
			out = append(out, '/', '/')
			for i < len(b) && b[i] != '\n' {
				out = append(out, b[i])
				i++
			}

		case c == ':' && i+1 < len(b) && b[i+1] == '=':
			out = append(out, ':', '=')
			i += 2

		case c == ':' && i+1 < len(b) && isLetter(b[i+1]):
			j := i + 1
			for j < len(b) && isKWChar(b[j]) {
				j++
			}
			out = append(out, '"')
			out = append(out, kwPrefix...)
			out = append(out, b[i+1:j]...)
			out = append(out, '"')
			i = j

		case c == '-' && i > 0 && i+1 < len(b) && isIdentChar(b[i-1]) && isLetter(b[i+1]):
			out = append(out, '_')
			i++

		default:
			out = append(out, c)
			i++
		}
	}
	return string(out)
}

// skipString returns the index just past the string literal opening at i.
// Backslash escapes apply only to double-quoted strings.
func skipString(b []byte, i int) int {
	quote := b[i]
	j := i + 1
	for j < len(b) && b[j] != quote {
		if quote == '"' && b[j] == '\\' {
			j++
		}
		j++
	}
	if j < len(b) {
		j++
	}
	if j > len(b) {
		j = len(b)
	}
	return j
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok || !strings.HasPrefix(str.S, kwPrefix) {
		return "", false
	}
	return str.S[len(kwPrefix):], true
}

// kwArgs holds a call's arguments split into keywords and positionals.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	order      []string
	positional []zygo.Sexp
}

// parseArgs separates keyword and positional arguments. A keyword in last
// position with no value is a flag and maps to SexpNull.
func parseArgs(args []zygo.Sexp) kwArgs {
	pa := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			pa.positional = append(pa.positional, args[i])
			continue
		}
		pa.order = append(pa.order, name)
		if i+1 < len(args) {
			pa.kw[name] = args[i+1]
			i++
		} else {
			pa.kw[name] = zygo.SexpNull
		}
	}
	return pa
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %s", s.SexpString(nil))
}

func toInt(s zygo.Sexp) (int, error) {
	f, err := toFloat64(s)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("expected whole number, got %v", f)
	}
	return int(f), nil
}

func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %s", s.SexpString(nil))
}

// toKeywordString accepts :name or "name".
func toKeywordString(s zygo.Sexp) (string, error) {
	str, err := toString(s)
	if err != nil {
		return "", fmt.Errorf("expected keyword or string: %w", err)
	}
	return strings.TrimPrefix(str, kwPrefix), nil
}

// toBool accepts true/false; a bare flag keyword counts as true.
func toBool(s zygo.Sexp) (bool, error) {
	if s == zygo.SexpNull {
		return true, nil
	}
	if b, ok := s.(*zygo.SexpBool); ok {
		return b.Val, nil
	}
	return false, fmt.Errorf("expected true or false, got %s", s.SexpString(nil))
}

func toStrings(s zygo.Sexp) ([]string, error) {
	var items []zygo.Sexp
	switch v := s.(type) {
	case *zygo.SexpArray:
		items = v.Val
	case *zygo.SexpPair:
		var err error
		if items, err = zygo.ListToArray(v); err != nil {
			return nil, err
		}
	case *zygo.SexpStr:
		items = []zygo.Sexp{v}
	default:
		if s != zygo.SexpNull {
			return nil, fmt.Errorf("expected list of strings, got %s", s.SexpString(nil))
		}
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		str, err := toString(it)
		if err != nil {
			return nil, err
		}
		out = append(out, str)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Manifest builder
// ---------------------------------------------------------------------------

// builder collects what the job and part forms declare.
type builder struct {
	opts    config.Options
	sawJob  bool
	parts   []Part
	index   map[string]int
	warning []EvalWarning
}

func newBuilder() *builder {
	return &builder{opts: config.Default(), index: make(map[string]int)}
}

func (b *builder) warn(format string, args ...any) {
	b.warning = append(b.warning, EvalWarning{Message: fmt.Sprintf(format, args...)})
}

// finish validates the collected declarations.
func (b *builder) finish() (*Manifest, []EvalError) {
	var errs []EvalError
	if len(b.parts) == 0 {
		errs = append(errs, EvalError{Message: "manifest declares no parts"})
	}
	if err := b.opts.Validate(); err != nil {
		errs = append(errs, EvalError{Message: err.Error()})
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return &Manifest{Options: b.opts, Parts: b.parts, Warnings: b.warning}, nil
}

// jobOption applies one keyword of the job form.
type jobOption func(o *config.Options, v zygo.Sexp) error

func floatOpt(set func(*config.Options, float64)) jobOption {
	return func(o *config.Options, v zygo.Sexp) error {
		f, err := toFloat64(v)
		if err == nil {
			set(o, f)
		}
		return err
	}
}

func intOpt(set func(*config.Options, int)) jobOption {
	return func(o *config.Options, v zygo.Sexp) error {
		n, err := toInt(v)
		if err == nil {
			set(o, n)
		}
		return err
	}
}

func boolOpt(set func(*config.Options, bool)) jobOption {
	return func(o *config.Options, v zygo.Sexp) error {
		f, err := toBool(v)
		if err == nil {
			set(o, f)
		}
		return err
	}
}

var jobOptions = map[string]jobOption{
	"strip-height":       floatOpt(func(o *config.Options, f float64) { o.StripHeight = f }),
	"spacing":            floatOpt(func(o *config.Options, f float64) { o.Spacing = f }),
	"tolerance":          floatOpt(func(o *config.Options, f float64) { o.Tolerance = f }),
	"max-edge-length":    floatOpt(func(o *config.Options, f float64) { o.MaxEdgeLength = f }),
	"min-contour-length": floatOpt(func(o *config.Options, f float64) { o.MinContourLength = f }),
	"group-distance":     floatOpt(func(o *config.Options, f float64) { o.GroupDistance = f }),
	"arc-segments":       intOpt(func(o *config.Options, n int) { o.ArcSegments = n }),
	"spline-segments":    intOpt(func(o *config.Options, n int) { o.SplineSegments = n }),
	"auto-close":         boolOpt(func(o *config.Options, v bool) { o.AutoClose = v }),
	"rotations":          boolOpt(func(o *config.Options, v bool) { o.AllowRotations = v }),
	"split-parts":        boolOpt(func(o *config.Options, v bool) { o.SplitParts = v }),
	"normalize-units":    boolOpt(func(o *config.Options, v bool) { o.NormalizeUnits = v }),
	"classifier": func(o *config.Options, v zygo.Sexp) error {
		s, err := toKeywordString(v)
		if err == nil {
			o.Classifier = config.Classifier(s)
		}
		return err
	},
	"layers": func(o *config.Options, v zygo.Sexp) error {
		ls, err := toStrings(v)
		if err == nil {
			o.Layers = ls
		}
		return err
	},
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the manifest forms into env. They record into b.
// Source must go through preprocessSource first so keywords are recognizable.
func registerBuiltins(env *zygo.Zlisp, b *builder) {

	// -----------------------------------------------------------------------
	// (job "brackets" :strip-height 3000 :spacing 2 :rotations false)
	// -----------------------------------------------------------------------
	env.AddFunction("job", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("job: expected a name, got %d positional arguments", len(pa.positional))
		}
		jobName, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("job: name: %w", err)
		}
		if b.sawJob {
			b.warn("job redefined as %q", jobName)
		}
		b.sawJob = true
		b.opts.ProblemName = jobName

		for _, kw := range pa.order {
			apply, ok := jobOptions[kw]
			if !ok {
				return zygo.SexpNull, fmt.Errorf("job: unknown option :%s", kw)
			}
			if err := apply(&b.opts, pa.kw[kw]); err != nil {
				return zygo.SexpNull, fmt.Errorf("job: %s: %w", kw, err)
			}
		}
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (part "bracket.dxf" :qty 4)
	// -----------------------------------------------------------------------
	env.AddFunction("part", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("part: expected a file name, got %d positional arguments", len(pa.positional))
		}
		file, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("part: file: %w", err)
		}
		if strings.TrimSpace(file) == "" {
			return zygo.SexpNull, fmt.Errorf("part: file name is empty")
		}
		qty := 1
		for _, kw := range pa.order {
			switch kw {
			case "qty", "quantity":
				if qty, err = toInt(pa.kw[kw]); err != nil {
					return zygo.SexpNull, fmt.Errorf("part %s: qty: %w", file, err)
				}
			default:
				return zygo.SexpNull, fmt.Errorf("part %s: unknown option :%s", file, kw)
			}
		}
		if qty < 1 {
			return zygo.SexpNull, fmt.Errorf("part %s: qty %d, must be at least 1", file, qty)
		}

		if i, ok := b.index[file]; ok {
			b.parts[i].Quantity += qty
			b.warn("part %s listed more than once, quantities combined", file)
		} else {
			b.index[file] = len(b.parts)
			b.parts = append(b.parts, Part{File: file, Quantity: qty})
		}
		return &zygo.SexpStr{S: file}, nil
	})
}
