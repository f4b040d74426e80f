package dxf

import (
	"math"
	"strings"
	"sync"

	"github.com/chazu/dxfnest/pkg/entity"
)

// Decoder builds an entity from the tags between its "0/<TYPE>" marker and
// the next code-0 tag. The marker itself is not included.
type Decoder func(tags []Tag) (entity.Entity, error)

var (
	decodersMu sync.RWMutex
	decoders   = map[string]Decoder{}
)

// Register installs the decoder for a DXF entity type name. Registering the
// same name twice replaces the earlier decoder.
func Register(typeName string, d Decoder) {
	decodersMu.Lock()
	defer decodersMu.Unlock()
	decoders[strings.ToUpper(typeName)] = d
}

func lookup(typeName string) (Decoder, bool) {
	decodersMu.RLock()
	defer decodersMu.RUnlock()
	d, ok := decoders[strings.ToUpper(typeName)]
	return d, ok
}

func init() {
	Register("LINE", decodeLine)
	Register("CIRCLE", decodeCircle)
	Register("ARC", decodeArc)
	Register("LWPOLYLINE", decodeLWPolyline)
	Register("ELLIPSE", decodeEllipse)
	Register("SPLINE", decodeSpline)
}

// base reads the handle and layer groups shared by every entity.
func base(tags []Tag) entity.Base {
	var b entity.Base
	for _, t := range tags {
		switch t.Code {
		case 5:
			b.Handle = t.Value
		case 8:
			b.Layer = t.Value
		}
	}
	return b
}

// floats collects the float value of every tag whose code is in codes. It
// is used for the fixed-layout entities where each code appears once.
func floats(tags []Tag, codes ...int) (map[int]float64, error) {
	out := make(map[int]float64, len(codes))
	for _, t := range tags {
		for _, c := range codes {
			if t.Code != c {
				continue
			}
			f, err := t.Float()
			if err != nil {
				return nil, err
			}
			out[c] = f
		}
	}
	return out, nil
}

func decodeLine(tags []Tag) (entity.Entity, error) {
	v, err := floats(tags, 10, 20, 30, 11, 21, 31)
	if err != nil {
		return nil, err
	}
	return entity.Line{
		Base:  base(tags),
		Start: entity.Point2D{X: v[10], Y: v[20], Z: v[30]},
		End:   entity.Point2D{X: v[11], Y: v[21], Z: v[31]},
	}, nil
}

func decodeCircle(tags []Tag) (entity.Entity, error) {
	v, err := floats(tags, 10, 20, 30, 40)
	if err != nil {
		return nil, err
	}
	return entity.Circle{
		Base:   base(tags),
		Center: entity.Point2D{X: v[10], Y: v[20], Z: v[30]},
		Radius: v[40],
	}, nil
}

func decodeArc(tags []Tag) (entity.Entity, error) {
	v, err := floats(tags, 10, 20, 30, 40, 50, 51)
	if err != nil {
		return nil, err
	}
	return entity.Arc{
		Base:       base(tags),
		Center:     entity.Point2D{X: v[10], Y: v[20], Z: v[30]},
		Radius:     v[40],
		StartAngle: v[50],
		EndAngle:   v[51],
	}, nil
}

func decodeEllipse(tags []Tag) (entity.Entity, error) {
	v, err := floats(tags, 10, 20, 30, 11, 21, 40, 41, 42)
	if err != nil {
		return nil, err
	}
	e := entity.Ellipse{
		Base:       base(tags),
		Center:     entity.Point2D{X: v[10], Y: v[20], Z: v[30]},
		MajorAxis:  entity.Point2D{X: v[11], Y: v[21]},
		Ratio:      v[40],
		StartParam: v[41],
		EndParam:   v[42],
	}
	if _, ok := v[42]; !ok {
		e.EndParam = 2 * math.Pi
	}
	return e, nil
}

// decodeLWPolyline reads repeated 10/20 vertex pairs. A 42 bulge belongs to
// the most recent vertex.
func decodeLWPolyline(tags []Tag) (entity.Entity, error) {
	p := entity.Polyline{Base: base(tags)}
	var hasBulge bool
	for _, t := range tags {
		switch t.Code {
		case 70:
			flags, err := t.Int()
			if err != nil {
				return nil, err
			}
			p.Closed = flags&1 != 0
		case 10:
			x, err := t.Float()
			if err != nil {
				return nil, err
			}
			p.Vertices = append(p.Vertices, entity.Point2D{X: x})
			p.Bulges = append(p.Bulges, 0)
		case 20:
			y, err := t.Float()
			if err != nil {
				return nil, err
			}
			if n := len(p.Vertices); n > 0 {
				p.Vertices[n-1].Y = y
			}
		case 42:
			b, err := t.Float()
			if err != nil {
				return nil, err
			}
			if n := len(p.Bulges); n > 0 {
				p.Bulges[n-1] = b
				hasBulge = hasBulge || b != 0
			}
		}
	}
	if !hasBulge {
		p.Bulges = nil
	}
	return p, nil
}

// decodeSpline reads control points (10/20/30), fit points (11/21/31) and
// the knot vector (40).
func decodeSpline(tags []Tag) (entity.Entity, error) {
	s := entity.Spline{Base: base(tags)}
	for _, t := range tags {
		switch t.Code {
		case 70:
			flags, err := t.Int()
			if err != nil {
				return nil, err
			}
			s.Closed = flags&1 != 0
		case 71:
			d, err := t.Int()
			if err != nil {
				return nil, err
			}
			s.Degree = d
		case 40:
			k, err := t.Float()
			if err != nil {
				return nil, err
			}
			s.Knots = append(s.Knots, k)
		case 10, 11:
			x, err := t.Float()
			if err != nil {
				return nil, err
			}
			if t.Code == 10 {
				s.ControlPoints = append(s.ControlPoints, entity.Point2D{X: x})
			} else {
				s.FitPoints = append(s.FitPoints, entity.Point2D{X: x})
			}
		case 20, 21:
			y, err := t.Float()
			if err != nil {
				return nil, err
			}
			pts := s.ControlPoints
			if t.Code == 21 {
				pts = s.FitPoints
			}
			if n := len(pts); n > 0 {
				pts[n-1].Y = y
			}
		}
	}
	return s, nil
}

// polylineBuilder accumulates an old-style POLYLINE and its VERTEX records
// until SEQEND.
type polylineBuilder struct {
	poly     entity.Polyline
	hasBulge bool
	skip     bool
}

func newPolylineBuilder(tags []Tag) (*polylineBuilder, error) {
	b := &polylineBuilder{poly: entity.Polyline{Base: base(tags)}}
	for _, t := range tags {
		if t.Code != 70 {
			continue
		}
		flags, err := t.Int()
		if err != nil {
			return nil, err
		}
		b.poly.Closed = flags&1 != 0
		// 16 = polygon mesh, 64 = polyface mesh: 3D surfaces, not outlines
		b.skip = flags&(16|64) != 0
	}
	return b, nil
}

func (b *polylineBuilder) addVertex(tags []Tag) error {
	v, err := floats(tags, 10, 20, 30, 42)
	if err != nil {
		return err
	}
	for _, t := range tags {
		if t.Code != 70 {
			continue
		}
		flags, err := t.Int()
		if err != nil {
			return err
		}
		if flags&16 != 0 {
			// spline frame control point, not on the curve
			return nil
		}
	}
	b.poly.Vertices = append(b.poly.Vertices, entity.Point2D{X: v[10], Y: v[20], Z: v[30]})
	b.poly.Bulges = append(b.poly.Bulges, v[42])
	b.hasBulge = b.hasBulge || v[42] != 0
	return nil
}

func (b *polylineBuilder) build() entity.Entity {
	if b.skip {
		return entity.Unsupported{Base: b.poly.Base, Type: "POLYLINE"}
	}
	if !b.hasBulge {
		b.poly.Bulges = nil
	}
	return b.poly
}
