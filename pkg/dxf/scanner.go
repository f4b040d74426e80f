// Package dxf reads ASCII DXF drawings into entity documents and writes
// converted rings back out as DXF previews.
//
// A DXF file is a flat list of group-code/value line pairs. The reader walks
// those pairs, tracks which SECTION it is in, and hands each entity's tags to
// a decoder registered for its type name.
package dxf

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var (
	ErrEmpty        = errors.New("empty input")
	ErrTruncated    = errors.New("group code without value")
	ErrBinary       = errors.New("binary DXF is not supported")
	ErrNoSections   = errors.New("no SECTION found")
	ErrUnterminated = errors.New("section not terminated by ENDSEC")
)

const binarySentinel = "AutoCAD Binary DXF"

// ParseError reports a structural problem in the DXF text. Line is the
// 1-based line of the offending group code, or 0 when the problem is not tied
// to a line.
type ParseError struct {
	Line  int
	Cause error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("dxf: parse error at line %d: %v", e.Line, e.Cause)
	}
	return fmt.Sprintf("dxf: parse error: %v", e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// Tag is one group-code/value pair.
type Tag struct {
	Code  int
	Value string
	Line  int
}

// Float parses the value as a float.
func (t Tag) Float() (float64, error) {
	f, err := strconv.ParseFloat(t.Value, 64)
	if err != nil {
		return 0, &ParseError{Line: t.Line, Cause: fmt.Errorf("group %d: bad number %q", t.Code, t.Value)}
	}
	return f, nil
}

// Int parses the value as an integer. Some exporters write integer groups
// with a decimal point, so a whole float is accepted too.
func (t Tag) Int() (int, error) {
	if n, err := strconv.Atoi(t.Value); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(t.Value, 64)
	if err != nil || f != float64(int(f)) {
		return 0, &ParseError{Line: t.Line, Cause: fmt.Errorf("group %d: bad integer %q", t.Code, t.Value)}
	}
	return int(f), nil
}

// is reports whether t is the given code/value pair. Values compare
// case-insensitively.
func (t Tag) is(code int, value string) bool {
	return t.Code == code && strings.EqualFold(t.Value, value)
}

// Scanner yields tags from DXF text.
type Scanner struct {
	sc      *bufio.Scanner
	line    int
	tag     Tag
	err     error
	pending bool
}

// NewScanner returns a Scanner reading from r.
func NewScanner(r io.Reader) *Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	return &Scanner{sc: sc}
}

// Next advances to the next tag. It returns false at end of input or on
// error; Err distinguishes the two.
func (s *Scanner) Next() bool {
	if s.err != nil {
		return false
	}
	if s.pending {
		s.pending = false
		return true
	}
	codeLine, ok := s.readLine()
	if !ok {
		return false
	}
	for strings.TrimSpace(codeLine) == "" {
		// tolerate blank lines between pairs
		if codeLine, ok = s.readLine(); !ok {
			return false
		}
	}
	lineNo := s.line
	if s.line == 1 && strings.HasPrefix(codeLine, binarySentinel) {
		s.err = &ParseError{Line: 1, Cause: ErrBinary}
		return false
	}
	code, err := strconv.Atoi(strings.TrimSpace(codeLine))
	if err != nil {
		s.err = &ParseError{Line: lineNo, Cause: fmt.Errorf("bad group code %q", strings.TrimSpace(codeLine))}
		return false
	}
	value, ok := s.readLine()
	if !ok {
		if s.err == nil {
			s.err = &ParseError{Line: lineNo, Cause: ErrTruncated}
		}
		return false
	}
	s.tag = Tag{Code: code, Value: strings.TrimSpace(value), Line: lineNo}
	return true
}

// Unread pushes the current tag back so the next call to Next returns it
// again.
func (s *Scanner) Unread() { s.pending = true }

// Tag returns the current tag.
func (s *Scanner) Tag() Tag { return s.tag }

// Err returns the first error encountered.
func (s *Scanner) Err() error { return s.err }

// Lines returns how many lines have been consumed.
func (s *Scanner) Lines() int { return s.line }

func (s *Scanner) readLine() (string, bool) {
	if !s.sc.Scan() {
		if err := s.sc.Err(); err != nil {
			s.err = &ParseError{Line: s.line + 1, Cause: err}
		}
		return "", false
	}
	s.line++
	return strings.TrimRight(s.sc.Text(), "\r"), true
}
