package entity

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eps = 1e-9

func assertPoint(t *testing.T, want, got Point2D) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, 1e-9, "x")
	assert.InDelta(t, want.Y, got.Y, 1e-9, "y")
}

// ---------------------------------------------------------------------------
// Start / end points
// ---------------------------------------------------------------------------

func TestStartEndPoints(t *testing.T) {
	tests := []struct {
		name       string
		e          Entity
		start, end Point2D
	}{
		{"line", Line{Start: Pt(1, 2), End: Pt(3, 4)}, Pt(1, 2), Pt(3, 4)},
		{"circle top", Circle{Center: Pt(5, 5), Radius: 2}, Pt(5, 7), Pt(5, 7)},
		{"arc quarter", Arc{Center: Pt(0, 0), Radius: 10, StartAngle: 0, EndAngle: 90}, Pt(10, 0), Pt(0, 10)},
		{"polyline", Polyline{Vertices: []Point2D{Pt(0, 0), Pt(1, 0), Pt(1, 1)}}, Pt(0, 0), Pt(1, 1)},
		{"empty polyline", Polyline{}, Pt(0, 0), Pt(0, 0)},
		{"spline skips origin", Spline{Degree: 3, ControlPoints: []Point2D{Pt(0, 0), Pt(2, 2), Pt(4, 0), Pt(0, 0)}}, Pt(2, 2), Pt(4, 0)},
		{"spline fit points", Spline{Degree: 3, FitPoints: []Point2D{Pt(1, 1), Pt(2, 3)}}, Pt(1, 1), Pt(2, 3)},
		{"unsupported", Unsupported{Type: "TEXT"}, Pt(0, 0), Pt(0, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertPoint(t, tt.start, StartPoint(tt.e))
			assertPoint(t, tt.end, EndPoint(tt.e))
		})
	}
}

func TestNilEntityIsTotal(t *testing.T) {
	assert.Equal(t, Point2D{}, StartPoint(nil))
	assert.Equal(t, Point2D{}, EndPoint(nil))
	assert.False(t, IsClosed(nil, 0.1))
	assert.Nil(t, Reverse(nil))
}

func TestIsClosed(t *testing.T) {
	tests := []struct {
		name string
		e    Entity
		want bool
	}{
		{"line", Line{Start: Pt(0, 0), End: Pt(0, 0)}, false},
		{"circle", Circle{Radius: 1}, true},
		{"ellipse", Ellipse{MajorAxis: Pt(2, 0), Ratio: 0.5}, true},
		{"arc", Arc{Radius: 1, StartAngle: 0, EndAngle: 359}, false},
		{"polyline flag", Polyline{Vertices: []Point2D{Pt(0, 0), Pt(1, 0), Pt(1, 1)}, Closed: true}, true},
		{"polyline shape flag", Polyline{Vertices: []Point2D{Pt(0, 0), Pt(1, 0), Pt(1, 1)}, Shape: true}, true},
		{"polyline coincident ends", Polyline{Vertices: []Point2D{Pt(0, 0), Pt(1, 0), Pt(1, 1), Pt(0.05, 0)}}, true},
		{"polyline open", Polyline{Vertices: []Point2D{Pt(0, 0), Pt(1, 0), Pt(1, 1)}}, false},
		{"spline flag", Spline{Closed: true}, true},
		{"unsupported", Unsupported{Type: "HATCH"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsClosed(tt.e, 0.1))
		})
	}
}

// ---------------------------------------------------------------------------
// Reversal
// ---------------------------------------------------------------------------

func TestReverseSwapsEndpoints(t *testing.T) {
	ents := []Entity{
		Line{Start: Pt(1, 2), End: Pt(3, 4)},
		Arc{Center: Pt(1, 1), Radius: 5, StartAngle: 30, EndAngle: 200},
		Polyline{Vertices: []Point2D{Pt(0, 0), Pt(5, 0), Pt(5, 5)}, Bulges: []float64{0.5, 0, 0}},
		Spline{Degree: 3, ControlPoints: []Point2D{Pt(1, 1), Pt(2, 5), Pt(6, 5), Pt(7, 1)}, Knots: []float64{0, 0, 0, 0, 1, 1, 1, 1}},
	}
	for _, e := range ents {
		t.Run(e.Kind().String(), func(t *testing.T) {
			r := Reverse(e)
			assertPoint(t, e.StartPoint(), r.EndPoint())
			assertPoint(t, e.EndPoint(), r.StartPoint())
			assert.InDelta(t, e.Length(), r.Length(), 1e-9)
		})
	}
}

func TestReverseDoesNotMutate(t *testing.T) {
	p := Polyline{Vertices: []Point2D{Pt(0, 0), Pt(1, 0), Pt(2, 0)}}
	_ = p.Reversed()
	assert.Equal(t, Pt(0, 0), p.Vertices[0])
}

func TestArcReversalKeepsSweep(t *testing.T) {
	a := Arc{Center: Pt(0, 0), Radius: 1, StartAngle: 350, EndAngle: 10}
	r := a.Reversed().(Arc)
	assert.InDelta(t, 20, a.Sweep(), eps)
	assert.InDelta(t, 20, r.Sweep(), eps)
	assert.True(t, r.Clockwise)
	back := r.Reversed().(Arc)
	assert.Equal(t, a, back)
}

func TestPolylineReverseNegatesBulges(t *testing.T) {
	p := Polyline{Vertices: []Point2D{Pt(0, 0), Pt(10, 0), Pt(10, 10)}, Bulges: []float64{1, 0, 0}}
	r := p.Reversed().(Polyline)
	// first segment becomes the last one, traversed the other way
	assert.Equal(t, []float64{0, -1, 0}, r.Bulges)
}

// ---------------------------------------------------------------------------
// Geometry
// ---------------------------------------------------------------------------

func TestArcBounds(t *testing.T) {
	a := Arc{Center: Pt(0, 0), Radius: 10, StartAngle: 45, EndAngle: 135}
	b := a.Bounds()
	assert.InDelta(t, 10, b.MaxY, eps, "passes through 90 degrees")
	assert.InDelta(t, -10*math.Sqrt2/2, b.MinX, 1e-9)

	full := Arc{Center: Pt(0, 0), Radius: 10, StartAngle: 270, EndAngle: 180}
	fb := full.Bounds()
	assert.InDelta(t, 20, fb.Width(), 1e-9)
	assert.InDelta(t, 20, fb.Height(), 1e-9)
}

func TestBulgeArcSemicircle(t *testing.T) {
	a := BulgeArc(Pt(0, 0), Pt(10, 0), 1)
	assert.InDelta(t, 5, a.Radius, 1e-9)
	assertPoint(t, Pt(5, 0), a.Center)
	assert.InDelta(t, 180, a.Sweep(), 1e-9)
	assert.False(t, a.Clockwise)
	// counter-clockwise from (0,0) to (10,0) about (5,0) passes below the chord
	assert.InDelta(t, -5, a.Bounds().MinY, 1e-9)
}

func TestPolylineLengthWithBulge(t *testing.T) {
	p := Polyline{Vertices: []Point2D{Pt(0, 0), Pt(10, 0)}, Bulges: []float64{1, 0}}
	assert.InDelta(t, 5*math.Pi, p.Length(), 1e-9)

	sq := Polyline{Vertices: []Point2D{Pt(0, 0), Pt(1, 0), Pt(1, 1), Pt(0, 1)}, Closed: true}
	assert.InDelta(t, 4, sq.Length(), eps)
}

func TestEllipse(t *testing.T) {
	e := Ellipse{Center: Pt(0, 0), MajorAxis: Pt(10, 0), Ratio: 0.5, StartParam: 0, EndParam: 2 * math.Pi}
	assertPoint(t, Pt(10, 0), e.StartPoint())
	assertPoint(t, Pt(0, 5), e.PointAt(math.Pi/2))
	b := e.Bounds()
	assert.InDelta(t, 20, b.Width(), 1e-9)
	assert.InDelta(t, 10, b.Height(), 1e-9)

	circle := Ellipse{MajorAxis: Pt(1, 0), Ratio: 1, EndParam: 2 * math.Pi}
	assert.InDelta(t, 2*math.Pi, circle.Length(), 1e-9)
}

func TestScaled(t *testing.T) {
	c := Circle{Center: Pt(1, 1), Radius: 1}.Scaled(25.4).(Circle)
	assert.InDelta(t, 25.4, c.Radius, eps)
	assertPoint(t, Pt(25.4, 25.4), c.Center)
}

func TestUnsupportedIsInert(t *testing.T) {
	u := Unsupported{Type: "MTEXT"}
	assert.Equal(t, KindUnsupported, u.Kind())
	assert.False(t, u.Bounds().Valid)
	assert.Zero(t, u.Length())
	assert.Equal(t, u, u.Reversed())
}

// ---------------------------------------------------------------------------
// Document queries
// ---------------------------------------------------------------------------

func sampleDocument() *Document {
	return &Document{
		Units: UnitsMillimeters,
		Entities: []Entity{
			Line{Base: Base{Layer: "CUT"}, Start: Pt(0, 0), End: Pt(1, 0)},
			Circle{Base: Base{Layer: "cut"}, Radius: 2},
			Unsupported{Base: Base{Layer: "TEXT"}, Type: "TEXT"},
			Arc{Base: Base{Layer: "ENGRAVE"}, Radius: 1, EndAngle: 90},
			Unsupported{Type: "TEXT"},
			Unsupported{Type: "INSERT"},
		},
	}
}

func TestExtractEntities(t *testing.T) {
	doc := sampleDocument()
	ents := ExtractEntities(doc)
	require.Len(t, ents, 6)
	ents[0] = nil
	assert.NotNil(t, doc.Entities[0], "extraction returns a copy")

	assert.NotNil(t, ExtractEntities(nil))
	assert.Empty(t, ExtractEntities(nil))
}

func TestFilterByType(t *testing.T) {
	ents := ExtractEntities(sampleDocument())
	assert.Len(t, FilterByType(ents, KindLine, KindArc), 2)
	assert.Len(t, FilterByType(ents), 3, "no kinds keeps supported entities")
	assert.Empty(t, FilterByType(ents, KindSpline))
}

func TestFilterByLayer(t *testing.T) {
	ents := ExtractEntities(sampleDocument())
	assert.Len(t, FilterByLayer(ents, "cut"), 2)
	assert.Len(t, FilterByLayer(ents), 6)
	assert.Empty(t, FilterByLayer(ents, "nope"))
}

func TestSplitSupported(t *testing.T) {
	supported, skipped := SplitSupported(ExtractEntities(sampleDocument()))
	assert.Len(t, supported, 3)
	assert.Equal(t, map[string]int{"TEXT": 2, "INSERT": 1}, skipped)
	assert.Equal(t, []string{"INSERT", "TEXT"}, SkippedTypes(skipped))
}

func TestDocumentBoundsAndScale(t *testing.T) {
	ents := []Entity{
		Line{Start: Pt(0, 0), End: Pt(1, 0)},
		Circle{Center: Pt(5, 5), Radius: 1},
	}
	b := Bounds(Scale(ents, 2))
	assert.InDelta(t, 0, b.MinX, eps)
	assert.InDelta(t, 12, b.MaxX, eps)
	assert.InDelta(t, 12, b.MaxY, eps)
}

func TestUnitsToMillimeters(t *testing.T) {
	assert.Equal(t, 25.4, UnitsInches.ToMillimeters())
	assert.Equal(t, 1.0, UnitsUnitless.ToMillimeters())
	assert.Equal(t, 1000.0, UnitsMeters.ToMillimeters())
	assert.Equal(t, "mm", UnitsMillimeters.String())
}

// ---------------------------------------------------------------------------
// BBox
// ---------------------------------------------------------------------------

func TestBBoxDistance(t *testing.T) {
	a := BBoxOf(Pt(0, 0), Pt(10, 10))
	tests := []struct {
		name string
		b    BBox
		want float64
	}{
		{"overlap", BBoxOf(Pt(5, 5), Pt(15, 15)), 0},
		{"touching", BBoxOf(Pt(10, 0), Pt(20, 10)), 0},
		{"right gap", BBoxOf(Pt(13, 0), Pt(20, 10)), 3},
		{"diagonal", BBoxOf(Pt(13, 14), Pt(20, 20)), 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, a.Distance(tt.b), eps)
			assert.InDelta(t, tt.want, tt.b.Distance(a), eps)
		})
	}
}

func TestBBoxContains(t *testing.T) {
	outer := BBoxOf(Pt(0, 0), Pt(100, 100))
	assert.True(t, outer.Contains(BBoxOf(Pt(40, 40), Pt(60, 60))))
	assert.True(t, outer.Contains(outer))
	assert.False(t, outer.Contains(BBoxOf(Pt(90, 90), Pt(110, 110))))
	assert.False(t, outer.Contains(EmptyBBox()))
}
