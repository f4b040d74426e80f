// Package sdfx implements the kernel.Kernel interface using the
// github.com/deadsy/sdfx SDF-based CAD library.
package sdfx

import (
	"fmt"
	"math"

	"github.com/chazu/dxfnest/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
)

// Compile-time interface check.
var _ kernel.Kernel = (*SdfxKernel)(nil)

// sdfxRegion wraps an sdf.SDF2 to implement kernel.Region.
type sdfxRegion struct {
	s sdf.SDF2
}

// BoundingBox returns the axis-aligned bounding box.
func (r *sdfxRegion) BoundingBox() (min, max [2]float64) {
	bb := r.s.BoundingBox()
	min = [2]float64{bb.Min.X, bb.Min.Y}
	max = [2]float64{bb.Max.X, bb.Max.Y}
	return min, max
}

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct{}

// New returns a new SdfxKernel.
func New() *SdfxKernel {
	return &SdfxKernel{}
}

// unwrap extracts the underlying sdf.SDF2 from a kernel.Region.
func unwrap(r kernel.Region) sdf.SDF2 {
	return r.(*sdfxRegion).s
}

// wrap creates a kernel.Region from an sdf.SDF2.
func wrap(s sdf.SDF2) kernel.Region {
	return &sdfxRegion{s: s}
}

// Polygon creates a region bounded by the ring. Winding order does not
// matter; a repeated closing vertex is dropped.
func (k *SdfxKernel) Polygon(r kernel.Ring) (kernel.Region, error) {
	if r.IsEmpty() {
		return nil, fmt.Errorf("sdfx: polygon needs at least 3 vertices, got %d", r.PointCount())
	}
	open := r.Open()
	verts := make([]v2.Vec, len(open))
	for i, p := range open {
		verts[i] = v2.Vec{X: p[0], Y: p[1]}
	}
	s, err := sdf.Polygon2D(verts)
	if err != nil {
		return nil, fmt.Errorf("sdfx: polygon: %w", err)
	}
	return wrap(s), nil
}

// Rotate rotates a region about the origin by deg degrees counter-clockwise.
func (k *SdfxKernel) Rotate(r kernel.Region, deg float64) kernel.Region {
	m := sdf.Rotate2d(deg * math.Pi / 180.0)
	return wrap(sdf.Transform2D(unwrap(r), m))
}

// Distance returns the signed distance from (x, y) to the region boundary,
// negative inside.
func (k *SdfxKernel) Distance(r kernel.Region, x, y float64) float64 {
	return unwrap(r).Evaluate(v2.Vec{X: x, Y: y})
}

// Contains reports whether (x, y) lies inside the region or within tol of
// its boundary.
func (k *SdfxKernel) Contains(r kernel.Region, x, y, tol float64) bool {
	return k.Distance(r, x, y) <= tol
}
