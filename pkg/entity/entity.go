// Package entity defines the CAD primitives a drawing is made of once it has
// been parsed: lines, circles, arcs, polylines, ellipses and splines. Entities
// are immutable values; operations that change geometry (reversal, scaling)
// return a new entity.
package entity

import (
	"log/slog"
	"math"
)

// Kind enumerates the supported entity types.
type Kind int

const (
	KindUnsupported Kind = iota // anything the reader does not model
	KindLine
	KindCircle
	KindArc
	KindPolyline
	KindEllipse
	KindSpline
)

func (k Kind) String() string {
	switch k {
	case KindLine:
		return "LINE"
	case KindCircle:
		return "CIRCLE"
	case KindArc:
		return "ARC"
	case KindPolyline:
		return "POLYLINE"
	case KindEllipse:
		return "ELLIPSE"
	case KindSpline:
		return "SPLINE"
	default:
		return "UNSUPPORTED"
	}
}

// Entity is the closed set of drawing primitives. The unexported marker
// method keeps implementations inside this package, so a new primitive has
// to satisfy every accessor below before anything can consume it.
type Entity interface {
	Kind() Kind
	LayerName() string
	StartPoint() Point2D
	EndPoint() Point2D
	// IsClosed reports whether the entity forms a loop on its own.
	IsClosed(tol float64) bool
	Reversed() Entity
	Bounds() BBox
	Length() float64
	Scaled(f float64) Entity
	entity()
}

// Base holds the fields shared by every entity.
type Base struct {
	Layer  string `json:"layer,omitempty"`
	Handle string `json:"handle,omitempty"`
}

// LayerName returns the entity's layer.
func (b Base) LayerName() string { return b.Layer }

// ---------------------------------------------------------------------------
// Line
// ---------------------------------------------------------------------------

// Line is a straight segment between two vertices.
type Line struct {
	Base
	Start Point2D `json:"start"`
	End   Point2D `json:"end"`
}

func (Line) entity()               {}
func (Line) Kind() Kind            { return KindLine }
func (l Line) StartPoint() Point2D { return l.Start }
func (l Line) EndPoint() Point2D   { return l.End }
func (Line) IsClosed(float64) bool { return false }
func (l Line) Reversed() Entity    { return Line{Base: l.Base, Start: l.End, End: l.Start} }
func (l Line) Bounds() BBox        { return BBoxOf(l.Start, l.End) }
func (l Line) Length() float64     { return l.Start.Dist(l.End) }
func (l Line) Scaled(f float64) Entity {
	return Line{Base: l.Base, Start: l.Start.Scale(f), End: l.End.Scale(f)}
}

// ---------------------------------------------------------------------------
// Circle
// ---------------------------------------------------------------------------

// Circle is a full circle. It has no natural endpoint; the top of the circle
// stands in for both start and end.
type Circle struct {
	Base
	Center Point2D `json:"center"`
	Radius float64 `json:"radius"`
}

func (Circle) entity()               {}
func (Circle) Kind() Kind            { return KindCircle }
func (c Circle) StartPoint() Point2D { return Point2D{X: c.Center.X, Y: c.Center.Y + c.Radius} }
func (c Circle) EndPoint() Point2D   { return c.StartPoint() }
func (Circle) IsClosed(float64) bool { return true }
func (c Circle) Reversed() Entity    { return c }
func (c Circle) Length() float64     { return 2 * math.Pi * c.Radius }

func (c Circle) Bounds() BBox {
	return BBoxOf(
		Point2D{X: c.Center.X - c.Radius, Y: c.Center.Y - c.Radius},
		Point2D{X: c.Center.X + c.Radius, Y: c.Center.Y + c.Radius},
	)
}

func (c Circle) Scaled(f float64) Entity {
	return Circle{Base: c.Base, Center: c.Center.Scale(f), Radius: c.Radius * f}
}

// ---------------------------------------------------------------------------
// Arc
// ---------------------------------------------------------------------------

// Arc is a circular arc. Angles are absolute, in degrees, measured
// counter-clockwise from +X about Center. A DXF arc always runs
// counter-clockwise from StartAngle to EndAngle; Clockwise is set on the
// reversed variant, which runs from StartAngle back to EndAngle.
type Arc struct {
	Base
	Center     Point2D `json:"center"`
	Radius     float64 `json:"radius"`
	StartAngle float64 `json:"start_angle"`
	EndAngle   float64 `json:"end_angle"`
	Clockwise  bool    `json:"clockwise,omitempty"`
}

func (Arc) entity()               {}
func (Arc) Kind() Kind            { return KindArc }
func (a Arc) StartPoint() Point2D { return polar(a.Center, a.Radius, a.StartAngle*math.Pi/180) }
func (a Arc) EndPoint() Point2D   { return polar(a.Center, a.Radius, a.EndAngle*math.Pi/180) }
func (Arc) IsClosed(float64) bool { return false }
func (a Arc) Length() float64     { return a.Radius * a.Sweep() * math.Pi / 180 }

// Sweep returns the angular extent in degrees, in [0, 360).
func (a Arc) Sweep() float64 {
	d := a.EndAngle - a.StartAngle
	if a.Clockwise {
		d = -d
	}
	if d < 0 {
		d += 360
	}
	return d
}

// Reversed swaps the start and end angles and flips the direction of
// travel, so the same points are covered from the other end.
func (a Arc) Reversed() Entity {
	return Arc{
		Base:       a.Base,
		Center:     a.Center,
		Radius:     a.Radius,
		StartAngle: a.EndAngle,
		EndAngle:   a.StartAngle,
		Clockwise:  !a.Clockwise,
	}
}

// Bounds includes both endpoints plus every axis extreme the arc passes.
func (a Arc) Bounds() BBox {
	b := BBoxOf(a.StartPoint(), a.EndPoint())
	from := a.StartAngle
	if a.Clockwise {
		from = a.EndAngle
	}
	sweep := a.Sweep()
	for _, q := range []float64{0, 90, 180, 270} {
		d := math.Mod(q-from+720, 360)
		if d <= sweep {
			b = b.Include(polar(a.Center, a.Radius, q*math.Pi/180))
		}
	}
	return b
}

func (a Arc) Scaled(f float64) Entity {
	s := a
	s.Center = a.Center.Scale(f)
	s.Radius = a.Radius * f
	return s
}

// ---------------------------------------------------------------------------
// Polyline
// ---------------------------------------------------------------------------

// Polyline is an ordered vertex list (LWPOLYLINE or POLYLINE). Bulges, when
// present, holds one bulge per vertex: the tangent of a quarter of the
// included angle of the arc from that vertex to the next.
type Polyline struct {
	Base
	Vertices []Point2D `json:"vertices"`
	Bulges   []float64 `json:"bulges,omitempty"`
	Closed   bool      `json:"closed"`
	Shape    bool      `json:"shape"`
}

func (Polyline) entity()    {}
func (Polyline) Kind() Kind { return KindPolyline }

func (p Polyline) StartPoint() Point2D {
	if len(p.Vertices) == 0 {
		return Point2D{}
	}
	return p.Vertices[0]
}

func (p Polyline) EndPoint() Point2D {
	if len(p.Vertices) == 0 {
		return Point2D{}
	}
	return p.Vertices[len(p.Vertices)-1]
}

// IsClosed reports true when the closed or shape flag is set, or when the
// first and last vertices coincide within tol.
func (p Polyline) IsClosed(tol float64) bool {
	if p.Closed || p.Shape {
		return true
	}
	if len(p.Vertices) < 3 {
		return false
	}
	return p.StartPoint().Near(p.EndPoint(), tol)
}

// Bulge returns the bulge of the segment starting at vertex i.
func (p Polyline) Bulge(i int) float64 {
	if i < 0 || i >= len(p.Bulges) {
		return 0
	}
	return p.Bulges[i]
}

// Reversed reverses the vertex order. Bulges move with their segments and
// change sign because the arc is traversed the other way.
func (p Polyline) Reversed() Entity {
	n := len(p.Vertices)
	r := Polyline{Base: p.Base, Closed: p.Closed, Shape: p.Shape}
	r.Vertices = make([]Point2D, n)
	for i, v := range p.Vertices {
		r.Vertices[n-1-i] = v
	}
	if len(p.Bulges) > 0 {
		r.Bulges = make([]float64, n)
		for i := 0; i < n-1; i++ {
			// segment i (v[i] -> v[i+1]) becomes segment n-2-i
			r.Bulges[n-2-i] = -p.Bulge(i)
		}
		if p.Closed || p.Shape {
			r.Bulges[n-1] = -p.Bulge(n - 1)
		}
	}
	return r
}

func (p Polyline) Bounds() BBox {
	b := BBoxOf(p.Vertices...)
	n := len(p.Vertices)
	for i := 0; i < n; i++ {
		if p.Bulge(i) == 0 || (i == n-1 && !p.Closed && !p.Shape) {
			continue
		}
		b = b.Union(BulgeArc(p.Vertices[i], p.Vertices[(i+1)%n], p.Bulge(i)).Bounds())
	}
	return b
}

func (p Polyline) Length() float64 {
	n := len(p.Vertices)
	var total float64
	for i := 0; i+1 < n; i++ {
		total += segmentLength(p.Vertices[i], p.Vertices[i+1], p.Bulge(i))
	}
	if (p.Closed || p.Shape) && n > 2 {
		total += segmentLength(p.Vertices[n-1], p.Vertices[0], p.Bulge(n-1))
	}
	return total
}

func (p Polyline) Scaled(f float64) Entity {
	r := Polyline{Base: p.Base, Closed: p.Closed, Shape: p.Shape, Bulges: append([]float64(nil), p.Bulges...)}
	r.Vertices = make([]Point2D, len(p.Vertices))
	for i, v := range p.Vertices {
		r.Vertices[i] = v.Scale(f)
	}
	return r
}

func segmentLength(a, b Point2D, bulge float64) float64 {
	c := a.Dist(b)
	if bulge == 0 || c == 0 {
		return c
	}
	theta := 4 * math.Atan(math.Abs(bulge))
	return c * theta / (2 * math.Sin(theta/2))
}

// BulgeArc converts a bulged polyline segment from a to b into the
// equivalent Arc. Positive bulge turns counter-clockwise.
func BulgeArc(a, b Point2D, bulge float64) Arc {
	theta := 4 * math.Atan(bulge)
	c := a.Dist(b)
	r := c / (2 * math.Sin(math.Abs(theta)/2))
	// distance from chord midpoint to centre, signed towards the arc's left
	h := r * math.Cos(theta/2)
	mid := Point2D{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
	ux, uy := (b.X-a.X)/c, (b.Y-a.Y)/c
	sign := 1.0
	if theta < 0 {
		sign = -1
	}
	center := Point2D{X: mid.X - sign*uy*h, Y: mid.Y + sign*ux*h}
	start := math.Atan2(a.Y-center.Y, a.X-center.X) * 180 / math.Pi
	end := math.Atan2(b.Y-center.Y, b.X-center.X) * 180 / math.Pi
	return Arc{Center: center, Radius: math.Abs(r), StartAngle: start, EndAngle: end, Clockwise: theta < 0}
}

// ---------------------------------------------------------------------------
// Ellipse
// ---------------------------------------------------------------------------

// Ellipse is a full or partial ellipse. MajorAxis is the endpoint of the major
// axis relative to Center; Ratio is minor/major. Parameters are in radians.
// Ellipses are treated as inherently closed.
type Ellipse struct {
	Base
	Center     Point2D `json:"center"`
	MajorAxis  Point2D `json:"major_axis"`
	Ratio      float64 `json:"ratio"`
	StartParam float64 `json:"start_param"`
	EndParam   float64 `json:"end_param"`
}

func (Ellipse) entity()               {}
func (Ellipse) Kind() Kind            { return KindEllipse }
func (e Ellipse) StartPoint() Point2D { return e.PointAt(e.StartParam) }
func (e Ellipse) EndPoint() Point2D   { return e.PointAt(e.EndParam) }
func (Ellipse) IsClosed(float64) bool { return true }
func (e Ellipse) Reversed() Entity    { return e }

// Span returns the parameter range covered, in (0, 2π].
func (e Ellipse) Span() float64 {
	d := e.EndParam - e.StartParam
	for d <= 0 {
		d += 2 * math.Pi
	}
	if d > 2*math.Pi {
		d = 2 * math.Pi
	}
	return d
}

// PointAt evaluates the ellipse at parameter t.
func (e Ellipse) PointAt(t float64) Point2D {
	a := math.Hypot(e.MajorAxis.X, e.MajorAxis.Y)
	b := a * e.Ratio
	rot := math.Atan2(e.MajorAxis.Y, e.MajorAxis.X)
	x, y := a*math.Cos(t), b*math.Sin(t)
	return Point2D{
		X: e.Center.X + x*math.Cos(rot) - y*math.Sin(rot),
		Y: e.Center.Y + x*math.Sin(rot) + y*math.Cos(rot),
	}
}

// Bounds returns the box of the full ellipse.
func (e Ellipse) Bounds() BBox {
	a := math.Hypot(e.MajorAxis.X, e.MajorAxis.Y)
	b := a * e.Ratio
	rot := math.Atan2(e.MajorAxis.Y, e.MajorAxis.X)
	hw := math.Sqrt(a*a*math.Cos(rot)*math.Cos(rot) + b*b*math.Sin(rot)*math.Sin(rot))
	hh := math.Sqrt(a*a*math.Sin(rot)*math.Sin(rot) + b*b*math.Cos(rot)*math.Cos(rot))
	return BBoxOf(
		Point2D{X: e.Center.X - hw, Y: e.Center.Y - hh},
		Point2D{X: e.Center.X + hw, Y: e.Center.Y + hh},
	)
}

// Length uses Ramanujan's perimeter approximation scaled by the span.
func (e Ellipse) Length() float64 {
	a := math.Hypot(e.MajorAxis.X, e.MajorAxis.Y)
	b := a * e.Ratio
	h := (a - b) * (a - b) / ((a + b) * (a + b))
	full := math.Pi * (a + b) * (1 + 3*h/(10+math.Sqrt(4-3*h)))
	return full * e.Span() / (2 * math.Pi)
}

func (e Ellipse) Scaled(f float64) Entity {
	s := e
	s.Center = e.Center.Scale(f)
	s.MajorAxis = e.MajorAxis.Scale(f)
	return s
}

// ---------------------------------------------------------------------------
// Spline
// ---------------------------------------------------------------------------

// OriginEpsilon is the absolute distance under which a spline control or fit
// point is treated as an exporter artifact sitting on the origin.
const OriginEpsilon = 1e-6

// Spline is a B-spline given by control points and optionally fit points.
type Spline struct {
	Base
	ControlPoints []Point2D `json:"control_points"`
	FitPoints     []Point2D `json:"fit_points,omitempty"`
	Knots         []float64 `json:"knots,omitempty"`
	Degree        int       `json:"degree"`
	Closed        bool      `json:"closed"`
}

func (Spline) entity()    {}
func (Spline) Kind() Kind { return KindSpline }

// anchor returns the point set used for endpoints: control points when
// present, fit points otherwise.
func (s Spline) anchor() []Point2D {
	if len(s.ControlPoints) > 0 {
		return s.ControlPoints
	}
	return s.FitPoints
}

// StartPoint scans forward from the first point that is not sitting on the
// origin.
func (s Spline) StartPoint() Point2D {
	pts := s.anchor()
	for _, p := range pts {
		if !p.NearOrigin(OriginEpsilon) {
			return p
		}
	}
	if len(pts) > 0 {
		return pts[0]
	}
	return Point2D{}
}

// EndPoint scans backward from the last point that is not on the origin.
func (s Spline) EndPoint() Point2D {
	pts := s.anchor()
	for i := len(pts) - 1; i >= 0; i-- {
		if !pts[i].NearOrigin(OriginEpsilon) {
			return pts[i]
		}
	}
	if len(pts) > 0 {
		return pts[len(pts)-1]
	}
	return Point2D{}
}

func (s Spline) IsClosed(tol float64) bool {
	if s.Closed {
		return true
	}
	if len(s.anchor()) < 3 {
		return false
	}
	return s.StartPoint().Near(s.EndPoint(), tol)
}

func (s Spline) Reversed() Entity {
	r := Spline{Base: s.Base, Degree: s.Degree, Closed: s.Closed}
	r.ControlPoints = reversePoints(s.ControlPoints)
	r.FitPoints = reversePoints(s.FitPoints)
	if len(s.Knots) > 0 {
		// reflect the knot vector so it stays non-decreasing
		n := len(s.Knots)
		lo, hi := s.Knots[0], s.Knots[n-1]
		r.Knots = make([]float64, n)
		for i, k := range s.Knots {
			r.Knots[n-1-i] = lo + hi - k
		}
	}
	return r
}

func (s Spline) Bounds() BBox {
	b := EmptyBBox()
	for _, p := range s.ControlPoints {
		if !p.NearOrigin(OriginEpsilon) {
			b = b.Include(p)
		}
	}
	for _, p := range s.FitPoints {
		if !p.NearOrigin(OriginEpsilon) {
			b = b.Include(p)
		}
	}
	return b
}

// Length is the length of the control (or fit) polygon, an upper bound of
// the curve length.
func (s Spline) Length() float64 {
	pts := s.anchor()
	var total float64
	for i := 1; i < len(pts); i++ {
		total += pts[i-1].Dist(pts[i])
	}
	return total
}

func (s Spline) Scaled(f float64) Entity {
	r := Spline{Base: s.Base, Degree: s.Degree, Closed: s.Closed, Knots: append([]float64(nil), s.Knots...)}
	r.ControlPoints = scalePoints(s.ControlPoints, f)
	r.FitPoints = scalePoints(s.FitPoints, f)
	return r
}

func reversePoints(pts []Point2D) []Point2D {
	if pts == nil {
		return nil
	}
	out := make([]Point2D, len(pts))
	for i, p := range pts {
		out[len(pts)-1-i] = p
	}
	return out
}

func scalePoints(pts []Point2D, f float64) []Point2D {
	if pts == nil {
		return nil
	}
	out := make([]Point2D, len(pts))
	for i, p := range pts {
		out[i] = p.Scale(f)
	}
	return out
}

// ---------------------------------------------------------------------------
// Unsupported
// ---------------------------------------------------------------------------

// Unsupported stands in for any entity type the reader does not model
// (TEXT, INSERT, HATCH, ...). It is kept so it can be reported. Every
// accessor logs and returns a zero value.
type Unsupported struct {
	Base
	Type string `json:"type"`
}

func (Unsupported) entity()    {}
func (Unsupported) Kind() Kind { return KindUnsupported }

func (u Unsupported) StartPoint() Point2D {
	u.warn("StartPoint")
	return Point2D{}
}

func (u Unsupported) EndPoint() Point2D {
	u.warn("EndPoint")
	return Point2D{}
}

func (u Unsupported) IsClosed(float64) bool {
	u.warn("IsClosed")
	return false
}

func (u Unsupported) Reversed() Entity      { return u }
func (u Unsupported) Bounds() BBox          { return EmptyBBox() }
func (u Unsupported) Length() float64       { return 0 }
func (u Unsupported) Scaled(float64) Entity { return u }

func (u Unsupported) warn(op string) {
	slog.Default().Warn("entity: unsupported entity in traversal", "op", op, "type", u.Type, "handle", u.Handle)
}
