// Package polygon assembles discretized contour points into closed rings and
// normalizes them into the form the nesting solver expects: closed, free of
// duplicate points, counter-clockwise, with bounded edge length and rounded
// coordinates.
package polygon

import (
	"math"

	"github.com/chazu/dxfnest/pkg/entity"
)

const (
	// JoinTolerance is the distance under which two points are the same
	// vertex when joining segments, closing rings and removing duplicates.
	JoinTolerance = 0.01
	// DefaultMaxEdgeLength bounds edge length after subdivision.
	DefaultMaxEdgeLength = 20.0
	// Precision is the number of decimal places coordinates are rounded to.
	Precision = 6
	// ZeroClamp is the magnitude under which a coordinate becomes exactly 0.
	ZeroClamp = 1e-6

	// edgeSlack keeps subdivided pieces far enough under the bound that
	// rounding both endpoints to Precision cannot push them over it.
	edgeSlack = 4 * ZeroClamp
)

// Point is an [x, y] tuple.
type Point [2]float64

// P builds a Point.
func P(x, y float64) Point { return Point{x, y} }

// FromPoint2D drops Z.
func FromPoint2D(p entity.Point2D) Point { return Point{p.X, p.Y} }

func (p Point) dist(q Point) float64 { return math.Hypot(p[0]-q[0], p[1]-q[1]) }

func (p Point) near(q Point, tol float64) bool { return p.dist(q) <= tol }

// Polygon is a ring of points. A well-formed polygon repeats its first point
// at the end.
type Polygon []Point

// IsClosed reports whether the last point is within JoinTolerance of the
// first.
func (p Polygon) IsClosed() bool {
	return len(p) >= 2 && p[0].near(p[len(p)-1], JoinTolerance)
}

// DistinctPoints counts the vertices, not counting the closing repeat.
func (p Polygon) DistinctPoints() int {
	n := len(p)
	if p.IsClosed() {
		n--
	}
	return n
}

// Clone returns a copy of p.
func (p Polygon) Clone() Polygon {
	return append(Polygon(nil), p...)
}

// ---------------------------------------------------------------------------
// Assembly
// ---------------------------------------------------------------------------

// Join concatenates per-entity point runs. A run's first point is skipped
// when it repeats the previous run's last point, and the ring is closed if
// its ends are apart.
func Join(parts [][]entity.Point2D) Polygon {
	out := Polygon{}
	for _, run := range parts {
		for i, q := range run {
			pt := FromPoint2D(q)
			if i == 0 && len(out) > 0 && out[len(out)-1].near(pt, JoinTolerance) {
				continue
			}
			out = append(out, pt)
		}
	}
	if len(out) > 0 && !out.IsClosed() {
		out = append(out, out[0])
	}
	return out
}

// Assemble joins the runs into a closed ring and subdivides long edges.
func Assemble(parts [][]entity.Point2D, maxEdgeLength float64) Polygon {
	return Subdivide(Join(parts), maxEdgeLength)
}

// Subdivide splits every edge longer than maxEdge into equal pieces no longer
// than maxEdge. Pieces within rounding distance of the bound are split once
// more so the result stays in bounds after CleanCoordinates. A non-positive
// maxEdge returns a copy of p.
func Subdivide(p Polygon, maxEdge float64) Polygon {
	if maxEdge <= 0 || len(p) < 2 {
		return p.Clone()
	}
	out := Polygon{p[0]}
	for i := 1; i < len(p); i++ {
		a, b := p[i-1], p[i]
		d := a.dist(b)
		n := int(math.Ceil(d / maxEdge))
		if n >= 1 && maxEdge > edgeSlack && d/float64(n) > maxEdge-edgeSlack {
			n++
		}
		if n > 1 {
			for k := 1; k < n; k++ {
				t := float64(k) / float64(n)
				out = append(out, Point{a[0] + (b[0]-a[0])*t, a[1] + (b[1]-a[1])*t})
			}
		}
		out = append(out, b)
	}
	return out
}

// RemoveDuplicates drops points within tol of the point before them and
// reports how many were dropped. The closing repeat of a closed ring is kept.
func RemoveDuplicates(p Polygon, tol float64) (Polygon, int) {
	if len(p) == 0 {
		return Polygon{}, 0
	}
	closed := p.IsClosed()
	out := Polygon{p[0]}
	for i := 1; i < len(p); i++ {
		if out[len(out)-1].near(p[i], tol) {
			if closed && i == len(p)-1 && len(out) > 1 {
				// the run before the closing point collapsed onto the start;
				// keep the exact closing point instead
				out[len(out)-1] = p[i]
			}
			continue
		}
		out = append(out, p[i])
	}
	if closed && len(out) > 2 && out[len(out)-2].near(out[len(out)-1], tol) {
		out = append(out[:len(out)-2], out[len(out)-1])
	}
	return out, len(p) - len(out)
}

// ---------------------------------------------------------------------------
// Orientation and cleanup
// ---------------------------------------------------------------------------

// SignedArea returns the shoelace area: positive for counter-clockwise
// rings.
func SignedArea(p Polygon) float64 {
	var sum float64
	n := len(p)
	for i := 0; i < n; i++ {
		a, b := p[i], p[(i+1)%n]
		sum += a[0]*b[1] - b[0]*a[1]
	}
	return sum / 2
}

// Reverse returns p in the opposite order.
func Reverse(p Polygon) Polygon {
	out := make(Polygon, len(p))
	for i, q := range p {
		out[len(p)-1-i] = q
	}
	return out
}

// EnsureCCW returns p with counter-clockwise winding.
func EnsureCCW(p Polygon) Polygon {
	if SignedArea(p) < 0 {
		return Reverse(p)
	}
	return p.Clone()
}

// CleanCoordinates rounds every coordinate to Precision decimal places and
// clamps magnitudes below ZeroClamp to exactly zero.
func CleanCoordinates(p Polygon) Polygon {
	out := make(Polygon, len(p))
	for i, q := range p {
		out[i] = Point{cleanValue(q[0]), cleanValue(q[1])}
	}
	return out
}

func cleanValue(v float64) float64 {
	if math.Abs(v) < ZeroClamp {
		return 0
	}
	scale := math.Pow(10, Precision)
	r := math.Round(v*scale) / scale
	if r == 0 {
		// avoid -0 in the output
		return 0
	}
	return r
}

// Bounds returns the bounding box of p.
func Bounds(p Polygon) entity.BBox {
	b := entity.EmptyBBox()
	for _, q := range p {
		b = b.Include(entity.Pt(q[0], q[1]))
	}
	return b
}

// Area returns the absolute area of p.
func Area(p Polygon) float64 {
	return math.Abs(SignedArea(p))
}
