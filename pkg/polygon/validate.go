package polygon

import (
	"fmt"
	"math"
	"strings"
)

// ValidationSeverity indicates whether a validation finding fails the
// polygon or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // fails the file
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	Index    int                // offending point index, -1 for polygon-level findings
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] point %d: %s", e.Severity, e.Index, e.Message)
}

// ValidationWarning describes a non-blocking advisory finding.
type ValidationWarning struct {
	Message string
}

// ValidationResult bundles errors (blocking) and warnings (advisory).
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// OK reports whether there are no blocking errors.
func (r ValidationResult) OK() bool { return len(r.Errors) == 0 }

// Err returns the blocking findings as an *Error, or nil.
func (r ValidationResult) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return &Error{Findings: r.Errors}
}

func (r *ValidationResult) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, ValidationWarning{Message: fmt.Sprintf(format, args...)})
}

// Error is returned when a polygon is unusable.
type Error struct {
	Findings []ValidationError
}

func (e *Error) Error() string {
	msgs := make([]string, len(e.Findings))
	for i, f := range e.Findings {
		msgs[i] = f.Message
	}
	return "polygon: " + strings.Join(msgs, "; ")
}

const (
	// MinBBoxSize is the extent under which a polygon is flagged as
	// degenerate.
	MinBBoxSize = 0.1
	// originEpsilon is the distance under which a point counts as sitting
	// on the origin.
	originEpsilon = 1e-6
)

// Validate checks p without modifying it. Errors: fewer than 3 distinct
// points, an open ring, non-finite coordinates. Warnings: duplicate
// consecutive points, several points on the origin, a bounding box thinner
// than MinBBoxSize.
func Validate(p Polygon) ValidationResult {
	var r ValidationResult

	for i, q := range p {
		if math.IsNaN(q[0]) || math.IsNaN(q[1]) || math.IsInf(q[0], 0) || math.IsInf(q[1], 0) {
			r.Errors = append(r.Errors, ValidationError{Index: i, Message: "non-finite coordinate", Severity: SeverityError})
		}
	}
	if n := p.DistinctPoints(); n < 3 {
		r.Errors = append(r.Errors, ValidationError{
			Index:    -1,
			Message:  fmt.Sprintf("polygon has %d distinct points, need at least 3", n),
			Severity: SeverityError,
		})
		return r
	}
	if !p.IsClosed() {
		r.Errors = append(r.Errors, ValidationError{Index: -1, Message: "polygon is not closed", Severity: SeverityError})
	}

	for i := 1; i < p.DistinctPoints(); i++ {
		if p[i-1].near(p[i], JoinTolerance) {
			r.warn("duplicate consecutive point at index %d", i)
		}
	}

	atOrigin := 0
	for _, q := range p[:p.DistinctPoints()] {
		if math.Abs(q[0]) < originEpsilon && math.Abs(q[1]) < originEpsilon {
			atOrigin++
		}
	}
	if atOrigin > 1 {
		r.warn("%d points near the origin, possible export artifact", atOrigin)
	}

	b := Bounds(p)
	if b.Width() < MinBBoxSize || b.Height() < MinBBoxSize {
		r.warn("bounding box %.4gx%.4g is smaller than %.4g, likely degenerate", b.Width(), b.Height(), MinBBoxSize)
	}
	return r
}

// Normalize runs the cleanup pipeline on an assembled ring: duplicate
// removal (reported as a warning), subdivision to maxEdgeLength, coordinate
// cleaning, counter-clockwise winding and validation. Dropping a duplicate
// merges two edges, so subdivision runs after it. The cleaned polygon is
// returned even when the result has errors.
func Normalize(p Polygon, maxEdgeLength float64) (Polygon, ValidationResult) {
	var r ValidationResult
	deduped, removed := RemoveDuplicates(p, JoinTolerance)
	if removed > 0 {
		r.warn("removed %d duplicate consecutive point(s)", removed)
	}
	out := EnsureCCW(CleanCoordinates(Subdivide(deduped, maxEdgeLength)))
	v := Validate(out)
	r.Errors = append(r.Errors, v.Errors...)
	r.Warnings = append(r.Warnings, v.Warnings...)
	return out, r
}
