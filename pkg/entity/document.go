package entity

import (
	"log/slog"
	"sort"
	"strings"
)

// Units is the drawing unit code stored in a DXF header ($INSUNITS).
type Units int

const (
	UnitsUnitless    Units = 0
	UnitsInches      Units = 1
	UnitsFeet        Units = 2
	UnitsMillimeters Units = 4
	UnitsCentimeters Units = 5
	UnitsMeters      Units = 6
)

func (u Units) String() string {
	switch u {
	case UnitsInches:
		return "in"
	case UnitsFeet:
		return "ft"
	case UnitsMillimeters:
		return "mm"
	case UnitsCentimeters:
		return "cm"
	case UnitsMeters:
		return "m"
	default:
		return "unitless"
	}
}

// ToMillimeters returns the factor converting one drawing unit to millimetres.
// Unitless and unknown codes are assumed to already be millimetres.
func (u Units) ToMillimeters() float64 {
	switch u {
	case UnitsInches:
		return 25.4
	case UnitsFeet:
		return 304.8
	case UnitsCentimeters:
		return 10
	case UnitsMeters:
		return 1000
	default:
		return 1
	}
}

// Document is a parsed drawing.
type Document struct {
	Units    Units    `json:"units"`
	Entities []Entity `json:"-"`
}

// ---------------------------------------------------------------------------
// Dispatch helpers
// ---------------------------------------------------------------------------

// StartPoint returns e's start point, or the zero point when e is nil.
func StartPoint(e Entity) Point2D {
	if e == nil {
		slog.Default().Warn("entity: nil entity in traversal", "op", "StartPoint")
		return Point2D{}
	}
	return e.StartPoint()
}

// EndPoint returns e's end point, or the zero point when e is nil.
func EndPoint(e Entity) Point2D {
	if e == nil {
		slog.Default().Warn("entity: nil entity in traversal", "op", "EndPoint")
		return Point2D{}
	}
	return e.EndPoint()
}

// IsClosed reports whether e is closed on its own within tol.
func IsClosed(e Entity, tol float64) bool {
	if e == nil {
		slog.Default().Warn("entity: nil entity in traversal", "op", "IsClosed")
		return false
	}
	return e.IsClosed(tol)
}

// Reverse returns e traversed in the opposite direction.
func Reverse(e Entity) Entity {
	if e == nil {
		return nil
	}
	return e.Reversed()
}

// IsSupported reports whether e is one of the modelled primitives.
func IsSupported(e Entity) bool {
	return e != nil && e.Kind() != KindUnsupported
}

// ---------------------------------------------------------------------------
// Document queries
// ---------------------------------------------------------------------------

// ExtractEntities returns a copy of the document's entity list. A nil
// document yields an empty, non-nil slice.
func ExtractEntities(doc *Document) []Entity {
	if doc == nil {
		return []Entity{}
	}
	out := make([]Entity, len(doc.Entities))
	copy(out, doc.Entities)
	return out
}

// FilterByType keeps entities whose kind is one of kinds. With no kinds,
// every supported entity is kept.
func FilterByType(ents []Entity, kinds ...Kind) []Entity {
	out := []Entity{}
	for _, e := range ents {
		if e == nil {
			continue
		}
		if len(kinds) == 0 {
			if IsSupported(e) {
				out = append(out, e)
			}
			continue
		}
		for _, k := range kinds {
			if e.Kind() == k {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

// FilterByLayer keeps entities on one of layers. Layer names compare
// case-insensitively, as CAD programs treat them. With no layers every entity
// is kept.
func FilterByLayer(ents []Entity, layers ...string) []Entity {
	out := []Entity{}
	for _, e := range ents {
		if e == nil {
			continue
		}
		if len(layers) == 0 {
			out = append(out, e)
			continue
		}
		for _, l := range layers {
			if strings.EqualFold(e.LayerName(), l) {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

// SplitSupported separates modelled entities from unsupported ones. The
// second result counts unsupported entities per DXF type name.
func SplitSupported(ents []Entity) ([]Entity, map[string]int) {
	supported := []Entity{}
	skipped := map[string]int{}
	for _, e := range ents {
		if e == nil {
			continue
		}
		if u, ok := e.(Unsupported); ok {
			skipped[u.Type]++
			continue
		}
		supported = append(supported, e)
	}
	return supported, skipped
}

// SkippedTypes returns the keys of a SplitSupported count map in sorted order.
func SkippedTypes(skipped map[string]int) []string {
	names := make([]string, 0, len(skipped))
	for n := range skipped {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Scale returns every entity scaled by f about the origin.
func Scale(ents []Entity, f float64) []Entity {
	out := make([]Entity, 0, len(ents))
	for _, e := range ents {
		if e == nil {
			continue
		}
		out = append(out, e.Scaled(f))
	}
	return out
}

// Bounds returns the combined bounding box of ents.
func Bounds(ents []Entity) BBox {
	b := EmptyBBox()
	for _, e := range ents {
		if e == nil {
			continue
		}
		b = b.Union(e.Bounds())
	}
	return b
}
