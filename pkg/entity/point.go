package entity

import "math"

// Point2D is an immutable 2D coordinate in drawing units. Z is carried through
// from the source file but ignored by everything downstream.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z,omitempty"`
}

// Pt is shorthand for a Point2D with Z = 0.
func Pt(x, y float64) Point2D {
	return Point2D{X: x, Y: y}
}

// Add returns p + q.
func (p Point2D) Add(q Point2D) Point2D {
	return Point2D{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns p - q.
func (p Point2D) Sub(q Point2D) Point2D {
	return Point2D{X: p.X - q.X, Y: p.Y - q.Y}
}

// Scale returns p multiplied by f.
func (p Point2D) Scale(f float64) Point2D {
	return Point2D{X: p.X * f, Y: p.Y * f, Z: p.Z * f}
}

// Dist returns the Euclidean distance between p and q in the XY plane.
func (p Point2D) Dist(q Point2D) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Near reports whether p and q are within tol of each other.
func (p Point2D) Near(q Point2D, tol float64) bool {
	return p.Dist(q) <= tol
}

// NearOrigin reports whether p sits within eps of (0,0). CAD exporters
// sometimes emit placeholder control points at the origin.
func (p Point2D) NearOrigin(eps float64) bool {
	return math.Abs(p.X) < eps && math.Abs(p.Y) < eps
}

// IsZero reports whether p is exactly the zero point.
func (p Point2D) IsZero() bool {
	return p.X == 0 && p.Y == 0
}

// polar returns the point at angle rad on a circle of radius r about c.
func polar(c Point2D, r, rad float64) Point2D {
	return Point2D{X: c.X + r*math.Cos(rad), Y: c.Y + r*math.Sin(rad)}
}

// ---------------------------------------------------------------------------
// Bounding box
// ---------------------------------------------------------------------------

// BBox is an axis-aligned bounding box. The zero value is empty; use
// EmptyBBox or Include to grow one from points.
type BBox struct {
	MinX  float64 `json:"min_x"`
	MinY  float64 `json:"min_y"`
	MaxX  float64 `json:"max_x"`
	MaxY  float64 `json:"max_y"`
	Valid bool    `json:"-"`
}

// EmptyBBox returns a box that contains nothing.
func EmptyBBox() BBox {
	return BBox{}
}

// BBoxOf returns the bounding box of pts.
func BBoxOf(pts ...Point2D) BBox {
	b := EmptyBBox()
	for _, p := range pts {
		b = b.Include(p)
	}
	return b
}

// Include returns b grown to contain p.
func (b BBox) Include(p Point2D) BBox {
	if !b.Valid {
		return BBox{MinX: p.X, MinY: p.Y, MaxX: p.X, MaxY: p.Y, Valid: true}
	}
	b.MinX = math.Min(b.MinX, p.X)
	b.MinY = math.Min(b.MinY, p.Y)
	b.MaxX = math.Max(b.MaxX, p.X)
	b.MaxY = math.Max(b.MaxY, p.Y)
	return b
}

// Union returns the smallest box containing both b and o.
func (b BBox) Union(o BBox) BBox {
	if !o.Valid {
		return b
	}
	if !b.Valid {
		return o
	}
	return BBox{
		MinX:  math.Min(b.MinX, o.MinX),
		MinY:  math.Min(b.MinY, o.MinY),
		MaxX:  math.Max(b.MaxX, o.MaxX),
		MaxY:  math.Max(b.MaxY, o.MaxY),
		Valid: true,
	}
}

// Width returns the X extent.
func (b BBox) Width() float64 {
	if !b.Valid {
		return 0
	}
	return b.MaxX - b.MinX
}

// Height returns the Y extent.
func (b BBox) Height() float64 {
	if !b.Valid {
		return 0
	}
	return b.MaxY - b.MinY
}

// Area returns Width*Height.
func (b BBox) Area() float64 {
	return b.Width() * b.Height()
}

// Contains reports whether o lies fully inside b (borders inclusive).
func (b BBox) Contains(o BBox) bool {
	if !b.Valid || !o.Valid {
		return false
	}
	return o.MinX >= b.MinX && o.MaxX <= b.MaxX &&
		o.MinY >= b.MinY && o.MaxY <= b.MaxY
}

// Distance returns 0 when b and o overlap, otherwise the Euclidean distance
// between their nearest edges.
func (b BBox) Distance(o BBox) float64 {
	if !b.Valid || !o.Valid {
		return math.Inf(1)
	}
	dx := math.Max(0, math.Max(b.MinX-o.MaxX, o.MinX-b.MaxX))
	dy := math.Max(0, math.Max(b.MinY-o.MaxY, o.MinY-b.MaxY))
	return math.Hypot(dx, dy)
}
