package nesting

import (
	"fmt"
	"math"

	"github.com/chazu/dxfnest/pkg/polygon"
)

// ShapeTypeSimplePolygon is the only shape type the solver reads.
const ShapeTypeSimplePolygon = "simple_polygon"

// Job is the document the solver consumes.
type Job struct {
	Name        string    `json:"name"`
	Items       []JobItem `json:"items"`
	StripHeight float64   `json:"strip_height"`
}

// JobItem is one entry of Job.Items.
type JobItem struct {
	ID                  int       `json:"id"`
	Demand              int       `json:"demand"`
	DXF                 string    `json:"dxf"`
	AllowedOrientations []float64 `json:"allowed_orientations"`
	Shape               JobShape  `json:"shape"`
}

// JobShape wraps the exterior ring.
type JobShape struct {
	Type string          `json:"type"`
	Data polygon.Polygon `json:"data"`
}

// FormatJob converts items into a Job. IDs are reassigned densely from 0 in
// item order. Exteriors are cleaned and made counter-clockwise once more.
// Holes cannot be expressed as a simple polygon and are dropped; each drop
// is reported in the returned warnings.
func FormatJob(name string, stripHeight float64, items []InputItem) (Job, []string, error) {
	warnings := []string{}
	if math.IsNaN(stripHeight) || math.IsInf(stripHeight, 0) || stripHeight <= 0 {
		return Job{}, warnings, &SchemaError{Problems: []string{fmt.Sprintf("strip_height %v must be a positive number", stripHeight)}}
	}
	job := Job{Name: name, Items: make([]JobItem, 0, len(items)), StripHeight: stripHeight}
	for i, it := range items {
		if n := len(it.Shape.Interiors); n > 0 {
			warnings = append(warnings, fmt.Sprintf("%s: dropped %d hole(s), only %s is supported", it.Metadata.File, n, ShapeTypeSimplePolygon))
		}
		data := polygon.EnsureCCW(polygon.CleanCoordinates(it.Shape.Exterior))
		for _, p := range data {
			if math.IsNaN(p[0]) || math.IsNaN(p[1]) || math.IsInf(p[0], 0) || math.IsInf(p[1], 0) {
				return Job{}, warnings, &SchemaError{Problems: []string{fmt.Sprintf("item %d (%s): non-finite coordinate", i, it.Metadata.File)}}
			}
		}
		orientations := make([]float64, len(it.AllowedRotations))
		for j, r := range it.AllowedRotations {
			orientations[j] = float64(r)
		}
		job.Items = append(job.Items, JobItem{
			ID:                  i,
			Demand:              it.Quantity,
			DXF:                 it.Metadata.File,
			AllowedOrientations: orientations,
			Shape:               JobShape{Type: ShapeTypeSimplePolygon, Data: data},
		})
	}
	return job, warnings, nil
}
