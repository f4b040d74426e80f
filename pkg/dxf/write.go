package dxf

import (
	"fmt"

	yofu "github.com/yofu/dxf"

	"github.com/chazu/dxfnest/pkg/entity"
)

// Outline is one converted part: its exterior ring first, then any holes.
type Outline struct {
	Name  string
	Rings [][]entity.Point2D
}

// WriteRings writes outlines to path as a DXF preview. Parts are laid out
// left to right, gap apart, each on its own layer, every ring edge as a LINE.
func WriteRings(path string, outlines []Outline, gap float64) error {
	d := yofu.NewDrawing()
	cursor := 0.0
	for i, o := range outlines {
		b := entity.EmptyBBox()
		for _, r := range o.Rings {
			b = b.Union(entity.BBoxOf(r...))
		}
		if !b.Valid {
			continue
		}
		if _, err := d.AddLayer(layerName(i, o.Name), yofu.DefaultColor, yofu.DefaultLineType, true); err != nil {
			return fmt.Errorf("dxf: add layer for %q: %w", o.Name, err)
		}
		dx, dy := cursor-b.MinX, -b.MinY
		for _, r := range o.Rings {
			for j := 1; j < len(r); j++ {
				a, c := r[j-1], r[j]
				if _, err := d.Line(a.X+dx, a.Y+dy, 0, c.X+dx, c.Y+dy, 0); err != nil {
					return fmt.Errorf("dxf: write edge of %q: %w", o.Name, err)
				}
			}
		}
		cursor += b.Width() + gap
	}
	if err := d.SaveAs(path); err != nil {
		return fmt.Errorf("dxf: save %s: %w", path, err)
	}
	return nil
}

// layerName builds a layer name DXF accepts: letters, digits, '_' and '-'.
func layerName(i int, name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return fmt.Sprintf("PART_%d_%s", i, string(out))
}
