// Package nesting builds the job description handed to the external
// nesting solver and serializes it in the exact wire format the solver's
// reader accepts.
package nesting

import (
	"fmt"

	"github.com/chazu/dxfnest/pkg/polygon"
)

// Shape is an exterior ring and the holes inside it.
type Shape struct {
	Exterior  polygon.Polygon   `json:"exterior"`
	Interiors []polygon.Polygon `json:"interiors"`
}

// Metadata describes where an item came from.
type Metadata struct {
	File     string   `json:"file"`
	Width    float64  `json:"width"`
	Height   float64  `json:"height"`
	Area     float64  `json:"area"`
	Spacing  float64  `json:"spacing"`
	Warnings []string `json:"warnings,omitempty"`
}

// InputItem is one converted part. It is created once per converted file
// (or per group of a multi-part file) and not modified afterwards.
type InputItem struct {
	ID               int      `json:"id"`
	Quantity         int      `json:"quantity"`
	Shape            Shape    `json:"shape"`
	AllowedRotations []int    `json:"allowed_rotations"`
	Metadata         Metadata `json:"metadata"`
}

// Rotations returns the allowed rotations in degrees.
func Rotations(allow bool) []int {
	if allow {
		return []int{0, 90, 180, 270}
	}
	return []int{0}
}

// NewItem builds an item. Quantity must be at least 1 and the exterior
// must have at least 3 distinct points. Size metadata is filled in from the
// exterior.
func NewItem(id, quantity int, shape Shape, rotations []int, meta Metadata) (InputItem, error) {
	if id < 0 {
		return InputItem{}, fmt.Errorf("nesting: item id %d is negative", id)
	}
	if quantity < 1 {
		return InputItem{}, fmt.Errorf("nesting: item %q: quantity %d, must be at least 1", meta.File, quantity)
	}
	if shape.Exterior.DistinctPoints() < 3 {
		return InputItem{}, fmt.Errorf("nesting: item %q: exterior has %d distinct points", meta.File, shape.Exterior.DistinctPoints())
	}
	for _, r := range rotations {
		if r < 0 || r >= 360 {
			return InputItem{}, fmt.Errorf("nesting: item %q: rotation %d outside [0, 360)", meta.File, r)
		}
	}
	if len(rotations) == 0 {
		rotations = Rotations(false)
	}
	if shape.Interiors == nil {
		shape.Interiors = []polygon.Polygon{}
	}
	b := polygon.Bounds(shape.Exterior)
	meta.Width, meta.Height = b.Width(), b.Height()
	meta.Area = polygon.Area(shape.Exterior)
	return InputItem{
		ID:               id,
		Quantity:         quantity,
		Shape:            shape,
		AllowedRotations: append([]int(nil), rotations...),
		Metadata:         meta,
	}, nil
}
