// Package discretize turns curved entities into point sequences. Every
// function is pure: it takes an entity and a segment count and returns new
// points, never touching the entity.
package discretize

import (
	"math"

	"github.com/chazu/dxfnest/pkg/contour"
	"github.com/chazu/dxfnest/pkg/entity"
)

const (
	DefaultArcSegments    = 32
	DefaultSplineSegments = 64

	// minBulgeSegments is the fewest segments a polyline bulge is split into.
	minBulgeSegments = 4
	// dupEpsilon is the distance under which consecutive spline control
	// points are considered the same point.
	dupEpsilon = 1e-9
)

// Options carries the segment counts used for curves.
type Options struct {
	ArcSegments    int
	SplineSegments int
}

func (o Options) withDefaults() Options {
	if o.ArcSegments <= 0 {
		o.ArcSegments = DefaultArcSegments
	}
	if o.SplineSegments <= 0 {
		o.SplineSegments = DefaultSplineSegments
	}
	return o
}

// Line returns the two endpoints.
func Line(l entity.Line) []entity.Point2D {
	return []entity.Point2D{l.Start, l.End}
}

// Arc samples the arc into segments equal angular steps, returning
// segments+1 points including both endpoints. A clockwise arc is sampled
// clockwise.
func Arc(a entity.Arc, segments int) []entity.Point2D {
	if segments < 1 {
		segments = 1
	}
	sweep := a.Sweep()
	if a.Clockwise {
		sweep = -sweep
	}
	start := a.StartAngle * math.Pi / 180
	step := sweep * math.Pi / 180 / float64(segments)
	pts := make([]entity.Point2D, segments+1)
	for i := 0; i <= segments; i++ {
		pts[i] = onCircle(a.Center, a.Radius, start+step*float64(i))
	}
	return pts
}

// Circle samples segments points around the circle, starting at the top,
// and repeats the first point to close the ring.
func Circle(c entity.Circle, segments int) []entity.Point2D {
	if segments < 3 {
		segments = 3
	}
	pts := make([]entity.Point2D, 0, segments+1)
	for i := 0; i < segments; i++ {
		pts = append(pts, onCircle(c.Center, c.Radius, math.Pi/2+2*math.Pi*float64(i)/float64(segments)))
	}
	return append(pts, pts[0])
}

// Ellipse samples the parameter span. A full ellipse is closed like a
// circle; a partial one returns segments+1 points.
func Ellipse(e entity.Ellipse, segments int) []entity.Point2D {
	if segments < 3 {
		segments = 3
	}
	span := e.Span()
	full := span >= 2*math.Pi-1e-9
	pts := make([]entity.Point2D, 0, segments+1)
	for i := 0; i <= segments; i++ {
		if full && i == segments {
			break
		}
		pts = append(pts, e.PointAt(e.StartParam+span*float64(i)/float64(segments)))
	}
	if full {
		pts = append(pts, pts[0])
	}
	return pts
}

// Polyline returns the vertices with every bulged segment replaced by arc
// samples. A closed polyline ends on its first vertex.
func Polyline(p entity.Polyline, arcSegments int) []entity.Point2D {
	n := len(p.Vertices)
	if n == 0 {
		return []entity.Point2D{}
	}
	closed := p.Closed || p.Shape
	pts := []entity.Point2D{p.Vertices[0]}
	last := n - 1
	if closed {
		last = n
	}
	for i := 0; i < last; i++ {
		a, b := p.Vertices[i], p.Vertices[(i+1)%n]
		bulge := p.Bulge(i)
		if bulge == 0 || a.Near(b, dupEpsilon) {
			pts = append(pts, b)
			continue
		}
		arc := entity.BulgeArc(a, b, bulge)
		segs := int(math.Ceil(float64(arcSegments)*arc.Sweep()/360 - 1e-9))
		if segs < minBulgeSegments {
			segs = minBulgeSegments
		}
		samples := Arc(arc, segs)
		// the arc's endpoints are recomputed from angles; pin them to the
		// exact vertices
		samples[0], samples[len(samples)-1] = a, b
		pts = append(pts, samples[1:]...)
	}
	return pts
}

// Spline approximates a spline. Fit points, when present, are used as-is
// after dropping exporter artifacts at the origin. Otherwise control points
// are cleaned and, for degree 2 and up, interpolated with a Catmull-Rom
// curve through them.
func Spline(s entity.Spline, segments int) []entity.Point2D {
	if fit := stripOrigin(s.FitPoints); len(fit) > 0 {
		return closeIfNeeded(fit, s.Closed)
	}
	ctrl := dedupe(stripOrigin(s.ControlPoints))
	if len(ctrl) == 0 {
		return []entity.Point2D{}
	}
	ctrl = closeIfNeeded(ctrl, s.Closed)
	if s.Degree <= 1 || len(ctrl) <= 2 {
		return ctrl
	}
	return catmullRom(ctrl, segments)
}

// Entity dispatches on the entity kind. Unsupported entities yield no points.
func Entity(e entity.Entity, opts Options) []entity.Point2D {
	opts = opts.withDefaults()
	switch v := e.(type) {
	case entity.Line:
		return Line(v)
	case entity.Arc:
		return Arc(v, opts.ArcSegments)
	case entity.Circle:
		return Circle(v, opts.ArcSegments)
	case entity.Ellipse:
		return Ellipse(v, opts.ArcSegments)
	case entity.Polyline:
		return Polyline(v, opts.ArcSegments)
	case entity.Spline:
		return Spline(v, opts.SplineSegments)
	default:
		return []entity.Point2D{}
	}
}

// Contour discretizes every entity of c, in chain order.
func Contour(c contour.Contour, opts Options) [][]entity.Point2D {
	out := make([][]entity.Point2D, 0, len(c.Entities))
	for _, e := range c.Entities {
		out = append(out, Entity(e, opts))
	}
	return out
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func onCircle(c entity.Point2D, r, rad float64) entity.Point2D {
	return entity.Point2D{X: c.X + r*math.Cos(rad), Y: c.Y + r*math.Sin(rad)}
}

func stripOrigin(pts []entity.Point2D) []entity.Point2D {
	out := make([]entity.Point2D, 0, len(pts))
	for _, p := range pts {
		if !p.NearOrigin(entity.OriginEpsilon) {
			out = append(out, p)
		}
	}
	return out
}

func dedupe(pts []entity.Point2D) []entity.Point2D {
	out := make([]entity.Point2D, 0, len(pts))
	for _, p := range pts {
		if len(out) > 0 && out[len(out)-1].Near(p, dupEpsilon) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func closeIfNeeded(pts []entity.Point2D, closed bool) []entity.Point2D {
	if !closed || len(pts) < 3 || pts[0].Near(pts[len(pts)-1], dupEpsilon) {
		return pts
	}
	return append(pts, pts[0])
}

// catmullRom interpolates through pts, spreading segments evenly over the
// intervals. End neighbours are clamped to the end points.
func catmullRom(pts []entity.Point2D, segments int) []entity.Point2D {
	intervals := len(pts) - 1
	if segments < intervals {
		segments = intervals
	}
	per, extra := segments/intervals, segments%intervals
	out := make([]entity.Point2D, 0, segments+1)
	out = append(out, pts[0])
	for i := 0; i < intervals; i++ {
		p0 := pts[max(i-1, 0)]
		p1, p2 := pts[i], pts[i+1]
		p3 := pts[min(i+2, len(pts)-1)]
		k := per
		if i < extra {
			k++
		}
		for j := 1; j <= k; j++ {
			if j == k {
				out = append(out, p2)
				continue
			}
			out = append(out, crPoint(p0, p1, p2, p3, float64(j)/float64(k)))
		}
	}
	return out
}

func crPoint(p0, p1, p2, p3 entity.Point2D, t float64) entity.Point2D {
	t2, t3 := t*t, t*t*t
	f := func(a, b, c, d float64) float64 {
		return 0.5 * (2*b + (-a+c)*t + (2*a-5*b+4*c-d)*t2 + (-a+3*b-3*c+d)*t3)
	}
	return entity.Point2D{X: f(p0.X, p1.X, p2.X, p3.X), Y: f(p0.Y, p1.Y, p2.Y, p3.Y)}
}
