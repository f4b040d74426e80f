// Package kernel defines the abstract planar geometry kernel interface.
// Implementations provide region construction, transforms and point
// queries behind this interface, so the shape classifier can ask geometric
// questions without depending on a specific backend.
package kernel

// Region is an opaque handle to a closed planar region.
// Implementations wrap their internal representation.
type Region interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [2]float64)
}

// Kernel is the abstract 2D geometry kernel interface.
type Kernel interface {
	// Primitives
	Polygon(r Ring) (Region, error)

	// Transforms
	Rotate(r Region, deg float64) Region

	// Queries
	Distance(r Region, x, y float64) float64 // signed: negative inside
	Contains(r Region, x, y, tol float64) bool
}
