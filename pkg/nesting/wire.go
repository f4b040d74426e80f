package nesting

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
)

var (
	// floatArrayKey finds the arrays whose numbers must all be written as
	// floats.
	floatArrayKey = regexp.MustCompile(`"(?:data|allowed_orientations)"\s*:\s*\[`)
	stripHeight   = regexp.MustCompile(`("strip_height"\s*:\s*)(-?\d+)(\s*[,}])`)
	numberToken   = regexp.MustCompile(`-?\d+(?:\.\d+)?(?:[eE][+-]?\d+)?`)
)

// Marshal serializes a job. The solver's reader rejects bare integers where
// it expects floats, so every integral number in shape data, in
// allowed_orientations and in strip_height is written with a trailing ".0".
func Marshal(job Job, indent bool) ([]byte, error) {
	var raw []byte
	var err error
	if indent {
		raw, err = json.MarshalIndent(job, "", "  ")
	} else {
		raw, err = json.Marshal(job)
	}
	if err != nil {
		return nil, fmt.Errorf("nesting: marshal job: %w", err)
	}
	return ForceFloatLiterals(raw), nil
}

// ForceFloatLiterals rewrites integral literals in the float-typed fields
// of serialized job JSON.
func ForceFloatLiterals(raw []byte) []byte {
	out := stripHeight.ReplaceAll(raw, []byte("${1}${2}.0${3}"))

	var buf bytes.Buffer
	rest := out
	for {
		loc := floatArrayKey.FindIndex(rest)
		if loc == nil {
			buf.Write(rest)
			break
		}
		// loc[1]-1 is the opening bracket
		end := matchBracket(rest, loc[1]-1)
		if end < 0 {
			buf.Write(rest)
			break
		}
		buf.Write(rest[:loc[1]])
		buf.Write(numberToken.ReplaceAllFunc(rest[loc[1]:end], floatToken))
		rest = rest[end:]
	}
	return buf.Bytes()
}

func floatToken(tok []byte) []byte {
	if bytes.ContainsAny(tok, ".eE") {
		return tok
	}
	return append(append([]byte(nil), tok...), '.', '0')
}

// matchBracket returns the index of the ']' closing the '[' at open, or -1.
func matchBracket(b []byte, open int) int {
	depth := 0
	for i := open; i < len(b); i++ {
		switch b[i] {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// ---------------------------------------------------------------------------
// Structural validation
// ---------------------------------------------------------------------------

// SchemaError means the assembled job is not something the solver can
// read. It fails the whole batch.
type SchemaError struct {
	Problems []string
}

func (e *SchemaError) Error() string {
	return "nesting: invalid job: " + strings.Join(e.Problems, "; ")
}

type wireJob struct {
	Name        *string    `json:"name"`
	Items       []wireItem `json:"items"`
	StripHeight *float64   `json:"strip_height"`
}

type wireItem struct {
	ID                  *json.Number `json:"id"`
	Demand              *json.Number `json:"demand"`
	DXF                 *string      `json:"dxf"`
	AllowedOrientations []float64    `json:"allowed_orientations"`
	Shape               *struct {
		Type string      `json:"type"`
		Data [][]float64 `json:"data"`
	} `json:"shape"`
}

// ValidateJSON re-reads serialized job JSON and checks it structurally:
// required fields, dense zero-based ids, positive demands, orientations in
// [0, 360), simple_polygon shapes with at least 3 finite [x, y] points.
func ValidateJSON(data []byte) error {
	var job wireJob
	if err := json.Unmarshal(data, &job); err != nil {
		return &SchemaError{Problems: []string{fmt.Sprintf("not a job document: %v", err)}}
	}
	var problems []string
	add := func(format string, args ...any) { problems = append(problems, fmt.Sprintf(format, args...)) }

	if job.Name == nil || *job.Name == "" {
		add("missing name")
	}
	if job.StripHeight == nil {
		add("missing strip_height")
	} else if *job.StripHeight <= 0 {
		add("strip_height %v must be positive", *job.StripHeight)
	}
	if len(job.Items) == 0 {
		add("no items")
	}

	ids := make([]int, 0, len(job.Items))
	for i, it := range job.Items {
		if it.ID == nil {
			add("item %d: missing id", i)
		} else if id, err := it.ID.Int64(); err != nil || id < 0 {
			add("item %d: id %s is not a non-negative integer", i, it.ID.String())
		} else {
			ids = append(ids, int(id))
		}
		if it.Demand == nil {
			add("item %d: missing demand", i)
		} else if d, err := it.Demand.Int64(); err != nil || d < 1 {
			add("item %d: demand %s is not a positive integer", i, it.Demand.String())
		}
		if it.DXF == nil {
			add("item %d: missing dxf", i)
		}
		if len(it.AllowedOrientations) == 0 {
			add("item %d: no allowed_orientations", i)
		}
		for _, o := range it.AllowedOrientations {
			if o < 0 || o >= 360 {
				add("item %d: orientation %v outside [0, 360)", i, o)
			}
		}
		if it.Shape == nil {
			add("item %d: missing shape", i)
			continue
		}
		if it.Shape.Type != ShapeTypeSimplePolygon {
			add("item %d: shape type %q, want %q", i, it.Shape.Type, ShapeTypeSimplePolygon)
		}
		if len(it.Shape.Data) < 3 {
			add("item %d: shape has %d points, need at least 3", i, len(it.Shape.Data))
		}
		for j, p := range it.Shape.Data {
			if len(p) != 2 {
				add("item %d: point %d has %d coordinates", i, j, len(p))
				continue
			}
			if math.IsNaN(p[0]) || math.IsNaN(p[1]) || math.IsInf(p[0], 0) || math.IsInf(p[1], 0) {
				add("item %d: point %d is not finite", i, j)
			}
		}
	}

	sort.Ints(ids)
	for i, id := range ids {
		if id != i {
			add("ids are not dense from 0: found %v", ids)
			break
		}
	}

	if len(problems) > 0 {
		return &SchemaError{Problems: problems}
	}
	return nil
}
