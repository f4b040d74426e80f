package convert

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/dxfnest/pkg/config"
	"github.com/chazu/dxfnest/pkg/dxf"
	"github.com/chazu/dxfnest/pkg/polygon"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

func fixture(t *testing.T, name string, qty int) FileInput {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return FileInput{Name: name, Content: string(data), Quantity: qty}
}

// linesDXF renders a minimal drawing holding one LINE per segment
// {x1, y1, x2, y2}.
func linesDXF(segs ...[4]float64) string {
	var b strings.Builder
	b.WriteString("0\nSECTION\n2\nENTITIES\n")
	for _, s := range segs {
		fmt.Fprintf(&b, "0\nLINE\n8\n0\n10\n%g\n20\n%g\n11\n%g\n21\n%g\n", s[0], s[1], s[2], s[3])
	}
	b.WriteString("0\nENDSEC\n0\nEOF\n")
	return b.String()
}

func squareSegs(x, y, size float64) [][4]float64 {
	return [][4]float64{
		{x, y, x + size, y},
		{x + size, y, x + size, y + size},
		{x + size, y + size, x, y + size},
		{x, y + size, x, y},
	}
}

func hasWarning(ws []FileWarning, substr string) bool {
	for _, w := range ws {
		if strings.Contains(w.Message, substr) {
			return true
		}
	}
	return false
}

func containsSub(list []string, substr string) bool {
	for _, s := range list {
		if strings.Contains(s, substr) {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Batch
// ---------------------------------------------------------------------------

func TestConvert_SkipsFileWithoutSupportedEntities(t *testing.T) {
	res := Convert([]FileInput{fixture(t, "square.dxf", 2), fixture(t, "text_only.dxf", 1)}, DefaultOptions())
	require.True(t, res.Success, "errors: %v", res.Errors)
	require.Len(t, res.Items, 1)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "text_only.dxf", res.Errors[0].File)
	assert.Equal(t, StageExtraction, res.Errors[0].Stage)
	assert.True(t, hasWarning(res.Warnings, "unsupported TEXT"))

	require.NotNil(t, res.Job)
	assert.Equal(t, "nesting_job", res.Job.Name)
	assert.Equal(t, 2, res.Job.Items[0].Demand)
	assert.Contains(t, res.JSON, `"strip_height":6000.0`)
	assert.NoError(t, validateJSON(res.JSON))
}

func TestConvert_IDsStayDenseAcrossFailures(t *testing.T) {
	files := []FileInput{
		fixture(t, "truncated.dxf", 1),
		fixture(t, "square.dxf", 1),
		fixture(t, "text_only.dxf", 1),
		fixture(t, "circle.dxf", 3),
		{Name: "open.dxf", Content: linesDXF([4]float64{0, 0, 10, 0}), Quantity: 1},
		fixture(t, "slot.dxf", 1),
	}
	res := Convert(files, DefaultOptions())
	require.True(t, res.Success)
	require.Len(t, res.Items, 3)
	for i, it := range res.Job.Items {
		assert.Equal(t, i, it.ID)
		assert.Equal(t, i, res.Items[i].ID)
	}
	assert.Equal(t, []string{"square.dxf", "circle.dxf", "slot.dxf"},
		[]string{res.Job.Items[0].DXF, res.Job.Items[1].DXF, res.Job.Items[2].DXF})

	stages := map[string]Stage{}
	for _, e := range res.Errors {
		stages[e.File] = e.Stage
	}
	assert.Equal(t, map[string]Stage{
		"truncated.dxf": StageParsing,
		"text_only.dxf": StageExtraction,
		"open.dxf":      StageContour,
	}, stages)
}

func TestConvert_HoleIsClassifiedThenDropped(t *testing.T) {
	res := Convert([]FileInput{fixture(t, "plate_with_hole.dxf", 1)}, DefaultOptions())
	require.True(t, res.Success)
	it := res.Items[0]
	require.Len(t, it.Shape.Interiors, 1)
	assert.InDelta(t, 400, polygon.Area(it.Shape.Interiors[0]), 1e-6)
	assert.InDelta(t, 10000, polygon.Area(it.Shape.Exterior), 1e-6)

	require.True(t, hasWarning(res.Warnings, "dropped 1 hole"))
	for _, w := range res.Warnings {
		if strings.Contains(w.Message, "dropped 1 hole") {
			assert.Equal(t, "plate_with_hole.dxf", w.File)
		}
	}
	assert.InDelta(t, 10000, polygon.Area(res.Job.Items[0].Shape.Data), 1e-6)
}

func TestConvert_AllFilesFail(t *testing.T) {
	res := Convert([]FileInput{fixture(t, "text_only.dxf", 1), fixture(t, "truncated.dxf", 1)}, DefaultOptions())
	assert.False(t, res.Success)
	assert.Empty(t, res.JSON)
	assert.Nil(t, res.Job)
	assert.Nil(t, res.Items)
	assert.Len(t, res.Errors, 2)
}

func TestConvert_InvalidOptions(t *testing.T) {
	opts := DefaultOptions()
	opts.StripHeight = -1
	res := Convert([]FileInput{fixture(t, "square.dxf", 1)}, opts)
	assert.False(t, res.Success)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, StageInput, res.Errors[0].Stage)
}

func TestConvert_RotationsAndIndent(t *testing.T) {
	opts := DefaultOptions()
	opts.AllowRotations = false
	opts.Indent = true
	opts.ProblemName = "fixed"
	res := Convert([]FileInput{fixture(t, "square.dxf", 1)}, opts)
	require.True(t, res.Success)
	assert.Equal(t, []float64{0}, res.Job.Items[0].AllowedOrientations)
	assert.Contains(t, res.JSON, "\"allowed_orientations\": [\n")
	assert.Contains(t, res.JSON, `"name": "fixed"`)
}

// ---------------------------------------------------------------------------
// Single file
// ---------------------------------------------------------------------------

func TestConvertFile_AutoClosedTriangle(t *testing.T) {
	opts := DefaultOptions()
	opts.Tolerance = 1
	opts.AutoClose = true
	opts.MaxEdgeLength = 0
	f := FileInput{Name: "tri.dxf", Content: linesDXF([4]float64{0, 0, 10, 0}, [4]float64{10, 0, 5, 8}), Quantity: 1}

	fr, err := ConvertFile(f, 0, opts)
	require.NoError(t, err)
	require.Len(t, fr.Items, 1)
	ext := fr.Items[0].Shape.Exterior
	assert.Len(t, ext, 4)
	assert.Equal(t, ext[0], ext[3])
	assert.Greater(t, polygon.SignedArea(ext), 0.0)
	assert.True(t, containsSub(fr.Warnings, "auto-closed"))
}

func TestConvertFile_Circle(t *testing.T) {
	fr, err := ConvertFile(fixture(t, "circle.dxf", 1), 5, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, fr.Items, 1)
	assert.Equal(t, 5, fr.Items[0].ID)
	assert.Len(t, fr.Items[0].Shape.Exterior, 33)
}

func TestConvertFile_Errors(t *testing.T) {
	tests := []struct {
		name   string
		file   FileInput
		mutate func(*Options)
		stage  Stage
		target error
	}{
		{"zero quantity", FileInput{Name: "q.dxf", Content: linesDXF(squareSegs(0, 0, 10)...)}, nil, StageInput, nil},
		{"garbage", FileInput{Name: "g.dxf", Content: "hello", Quantity: 1}, nil, StageParsing, nil},
		{"no entities", FileInput{Name: "e.dxf", Content: linesDXF(), Quantity: 1}, nil, StageExtraction, ErrNoEntities},
		{"text only", fixture(t, "text_only.dxf", 1), nil, StageExtraction, ErrNoSupportedEntities},
		{"wrong layer", fixture(t, "plate_with_hole.dxf", 1), func(o *Options) { o.Layers = []string{"ENGRAVE"} }, StageExtraction, ErrNoEntities},
		{"open chain", FileInput{Name: "o.dxf", Content: linesDXF([4]float64{0, 0, 10, 0}, [4]float64{10, 0, 10, 10}), Quantity: 1}, nil, StageContour, ErrNoContours},
		{"sliver", FileInput{Name: "s.dxf", Content: linesDXF(
			[4]float64{0, 0, 10, 0}, [4]float64{10, 0, 10, 0.001}, [4]float64{10, 0.001, 0, 0},
		), Quantity: 1}, nil, StagePolygon, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			opts.Tolerance = 0.01
			if tt.mutate != nil {
				tt.mutate(&opts)
			}
			_, err := ConvertFile(tt.file, 0, opts)
			require.Error(t, err)
			assert.Equal(t, tt.stage, StageOf(err))
			if tt.target != nil {
				assert.True(t, errors.Is(err, tt.target), "want %v in chain, got %v", tt.target, err)
			}
		})
	}
}

func TestConvertFile_LayerFilterIsCaseInsensitive(t *testing.T) {
	opts := DefaultOptions()
	opts.Layers = []string{"cut"}
	fr, err := ConvertFile(fixture(t, "plate_with_hole.dxf", 1), 0, opts)
	require.NoError(t, err)
	assert.Len(t, fr.Items[0].Shape.Interiors, 1)
}

func TestConvertFile_SplitParts(t *testing.T) {
	segs := append(squareSegs(0, 0, 100), squareSegs(300, 0, 50)...)
	segs = append(segs, squareSegs(20, 20, 10)...)
	f := FileInput{Name: "two.dxf", Content: linesDXF(segs...), Quantity: 2}

	opts := DefaultOptions()
	fr, err := ConvertFile(f, 0, opts)
	require.NoError(t, err)
	require.Len(t, fr.Items, 1, "without splitting the far square is dropped")
	assert.True(t, containsSub(fr.Warnings, "outside the exterior"))

	opts.SplitParts = true
	opts.GroupDistance = 10
	fr, err = ConvertFile(f, 4, opts)
	require.NoError(t, err)
	require.Len(t, fr.Items, 2)
	assert.Equal(t, "two.dxf#0", fr.Items[0].Metadata.File)
	assert.Equal(t, "two.dxf#1", fr.Items[1].Metadata.File)
	assert.Equal(t, 4, fr.Items[0].ID)
	assert.Equal(t, 5, fr.Items[1].ID)
	assert.Len(t, fr.Items[0].Shape.Interiors, 1)
	assert.Equal(t, 2, fr.Items[1].Quantity)
}

func TestConvertFile_WindingClassifier(t *testing.T) {
	opts := DefaultOptions()
	opts.Classifier = config.ClassifierWinding
	fr, err := ConvertFile(fixture(t, "plate_with_hole.dxf", 1), 0, opts)
	require.NoError(t, err)
	// both rings are drawn counter-clockwise, so the smaller one is not a hole
	assert.Empty(t, fr.Items[0].Shape.Interiors)
	assert.True(t, containsSub(fr.Warnings, "discarded 1 additional exterior"))
	assert.InDelta(t, 10000, polygon.Area(fr.Items[0].Shape.Exterior), 1e-6)
}

func TestConvertFile_EdgeLengthBound(t *testing.T) {
	fr, err := ConvertFile(fixture(t, "slot.dxf", 1), 0, DefaultOptions())
	require.NoError(t, err)
	ext := fr.Items[0].Shape.Exterior
	for i := 1; i < len(ext); i++ {
		d := polygon.Polygon{ext[i-1], ext[i]}
		b := polygon.Bounds(d)
		assert.LessOrEqual(t, b.Width()*b.Width()+b.Height()*b.Height(), 20.0*20.0+1e-6)
	}
}

func TestConvertFile_EdgeLengthBoundAfterDedup(t *testing.T) {
	content := "0\nSECTION\n2\nENTITIES\n0\nLWPOLYLINE\n8\n0\n90\n5\n70\n1\n" +
		"10\n0\n20\n0\n10\n0.005\n20\n0\n10\n20.004\n20\n0\n10\n20.004\n20\n20\n10\n0\n20\n20\n" +
		"0\nENDSEC\n0\nEOF\n"
	fr, err := ConvertFile(FileInput{Name: "sliver.dxf", Content: content, Quantity: 1}, 0, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, fr.Items, 1)
	assert.True(t, containsSub(fr.Warnings, "duplicate consecutive point"))

	ext := fr.Items[0].Shape.Exterior
	for i := 1; i < len(ext); i++ {
		dx, dy := ext[i][0]-ext[i-1][0], ext[i][1]-ext[i-1][1]
		assert.LessOrEqual(t, math.Hypot(dx, dy), 20.0, "edge %d %v->%v", i, ext[i-1], ext[i])
	}
}

func TestConvertFile_TallerThanStrip(t *testing.T) {
	bar := FileInput{Name: "bar.dxf", Content: linesDXF(
		[4]float64{0, 0, 30, 0}, [4]float64{30, 0, 30, 100},
		[4]float64{30, 100, 0, 100}, [4]float64{0, 100, 0, 0},
	), Quantity: 1}

	opts := DefaultOptions()
	opts.StripHeight = 50
	fr, err := ConvertFile(bar, 0, opts)
	require.NoError(t, err)
	assert.False(t, containsSub(fr.Warnings, "strip height"), "fits when rotated: %v", fr.Warnings)

	opts.AllowRotations = false
	fr, err = ConvertFile(bar, 0, opts)
	require.NoError(t, err)
	require.Len(t, fr.Items, 1, "a tall part is still emitted")
	assert.True(t, containsSub(fr.Warnings, "100 tall at its best rotation (0 deg), strip height is 50"))
}

// ---------------------------------------------------------------------------
// File specs and preview
// ---------------------------------------------------------------------------

func TestParseFileSpec(t *testing.T) {
	tests := []struct {
		spec    string
		path    string
		qty     int
		wantErr bool
	}{
		{"part.dxf", "part.dxf", 1, false},
		{"part.dxf:4", "part.dxf", 4, false},
		{`C:\parts\a.dxf`, `C:\parts\a.dxf`, 1, false},
		{`C:\parts\a.dxf:3`, `C:\parts\a.dxf`, 3, false},
		{"dir/part.dxf:12", "dir/part.dxf", 12, false},
		{"scans/v1:rev-b.dxf", "scans/v1:rev-b.dxf", 1, false},
		{"a.dxf:x", "a.dxf:x", 1, false},
		{`C:\scans\v1:rev-b.dxf:2`, `C:\scans\v1:rev-b.dxf`, 2, false},
		{"a.dxf:0", "", 0, true},
		{"a.dxf:-2", "", 0, true},
		{"", "", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			path, qty, err := ParseFileSpec(tt.spec)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.path, path)
			assert.Equal(t, tt.qty, qty)
		})
	}
}

func TestPreview(t *testing.T) {
	res := Convert([]FileInput{fixture(t, "plate_with_hole.dxf", 1), fixture(t, "circle.dxf", 1)}, DefaultOptions())
	require.True(t, res.Success)
	outlines := Preview(res.Items)
	require.Len(t, outlines, 2)
	assert.Len(t, outlines[0].Rings, 2)
	assert.Equal(t, "circle.dxf", outlines[1].Name)

	path := filepath.Join(t.TempDir(), "preview.dxf")
	require.NoError(t, dxf.WriteRings(path, outlines, 5))
	back, err := os.ReadFile(path)
	require.NoError(t, err)
	doc, err := dxf.ParseString(string(back), dxf.Options{})
	require.NoError(t, err)
	assert.NotEmpty(t, doc.Entities)
}

func TestStageError(t *testing.T) {
	err := fail(StageContour, ErrNoContours)
	assert.Equal(t, "contour: convert: no closed contours found", err.Error())
	assert.ErrorIs(t, err, ErrNoContours)
	assert.Equal(t, Stage(""), StageOf(errors.New("plain")))
}
