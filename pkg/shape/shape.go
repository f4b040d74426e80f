// Package shape decides which contours bound a part and which are holes in
// it, and splits multi-part drawings into groups of nearby contours.
package shape

import (
	"fmt"
	"sort"

	"github.com/samber/lo"

	"github.com/chazu/dxfnest/pkg/contour"
	"github.com/chazu/dxfnest/pkg/entity"
)

// WithHoles is one part: an exterior contour and the contours cut out of it.
type WithHoles struct {
	Exterior contour.Contour
	Holes    []contour.Contour
}

// SeparateExteriorAndHoles picks the contour with the largest bounding box
// as the exterior. Every other contour whose box lies inside the exterior's
// box is a hole. Contours outside it are dropped and reported in the
// returned warnings; a drawing with several disjoint parts should be split
// with GroupContoursByProximity first.
func SeparateExteriorAndHoles(contours []contour.Contour) (WithHoles, []string, error) {
	warnings := []string{}
	switch len(contours) {
	case 0:
		return WithHoles{}, warnings, fmt.Errorf("shape: no contours to classify")
	case 1:
		return WithHoles{Exterior: contours[0], Holes: []contour.Contour{}}, warnings, nil
	}

	sorted := append([]contour.Contour(nil), contours...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Bounds.Area() > sorted[j].Bounds.Area()
	})

	s := WithHoles{Exterior: sorted[0], Holes: []contour.Contour{}}
	for _, c := range sorted[1:] {
		if s.Exterior.Bounds.Contains(c.Bounds) {
			s.Holes = append(s.Holes, c)
			continue
		}
		warnings = append(warnings, fmt.Sprintf("dropped contour at (%.4g, %.4g) outside the exterior boundary", c.Bounds.MinX, c.Bounds.MinY))
	}
	return s, warnings, nil
}

// BBoxDistance is 0 when the boxes overlap, otherwise the distance between
// their nearest edges.
func BBoxDistance(a, b entity.BBox) float64 {
	return a.Distance(b)
}

// GroupContoursByProximity clusters contours greedily. Each contour not yet
// grouped seeds a group, and every other ungrouped contour whose box is
// closer than maxDistance to the seed's box joins it. Groups keep input
// order.
func GroupContoursByProximity(contours []contour.Contour, maxDistance float64) [][]contour.Contour {
	grouped := make([]bool, len(contours))
	groups := [][]contour.Contour{}
	for i, seed := range contours {
		if grouped[i] {
			continue
		}
		grouped[i] = true
		group := []contour.Contour{seed}
		for j := i + 1; j < len(contours); j++ {
			if grouped[j] {
				continue
			}
			if BBoxDistance(seed.Bounds, contours[j].Bounds) < maxDistance {
				grouped[j] = true
				group = append(group, contours[j])
			}
		}
		groups = append(groups, group)
	}
	return groups
}

// TotalLength sums the lengths of the contours in a group.
func TotalLength(contours []contour.Contour) float64 {
	return lo.SumBy(contours, func(c contour.Contour) float64 { return c.Length() })
}

// ClosedOnly filters out open contours.
func ClosedOnly(contours []contour.Contour) []contour.Contour {
	return lo.Filter(contours, func(c contour.Contour, _ int) bool { return c.Closed })
}
