package shape

import (
	"fmt"
	"math"

	"github.com/samber/lo"

	"github.com/chazu/dxfnest/pkg/kernel"
	"github.com/chazu/dxfnest/pkg/polygon"
)

// Rings is a classified set of discretized rings, all counter-clockwise.
type Rings struct {
	Exterior polygon.Polygon
	Holes    []polygon.Polygon
}

// DetectShape classifies closed rings by winding. Counter-clockwise rings
// are exterior candidates and the one with the largest area wins; the other
// candidates are discarded with a warning. Clockwise rings are holes and
// are reversed so every returned ring is counter-clockwise.
func DetectShape(rings []polygon.Polygon) (Rings, []string, error) {
	warnings := []string{}
	var candidates []polygon.Polygon
	holes := []polygon.Polygon{}
	for _, r := range rings {
		area := polygon.SignedArea(r)
		switch {
		case area > 0:
			candidates = append(candidates, r.Clone())
		case area < 0:
			holes = append(holes, polygon.Reverse(r))
		default:
			warnings = append(warnings, "skipped ring with zero area")
		}
	}
	if len(candidates) == 0 {
		return Rings{}, warnings, fmt.Errorf("shape: no counter-clockwise ring to use as exterior")
	}
	ext := lo.MaxBy(candidates, func(a, b polygon.Polygon) bool {
		return polygon.Area(a) > polygon.Area(b)
	})
	if n := len(candidates) - 1; n > 0 {
		warnings = append(warnings, fmt.Sprintf("discarded %d additional exterior ring(s)", n))
	}
	return Rings{Exterior: ext, Holes: holes}, warnings, nil
}

// CheckHoles verifies with the geometry kernel that every hole vertex lies
// inside the exterior ring. Bounding-box containment alone lets a hole poke
// out of a non-rectangular exterior; each such hole yields a warning.
func CheckHoles(k kernel.Kernel, exterior polygon.Polygon, holes []polygon.Polygon, tol float64) []string {
	warnings := []string{}
	if len(holes) == 0 {
		return warnings
	}
	region, err := k.Polygon(toRing(exterior))
	if err != nil {
		return append(warnings, fmt.Sprintf("could not check holes: %v", err))
	}
	for i, h := range holes {
		inside := lo.EveryBy(h, func(p polygon.Point) bool { return k.Contains(region, p[0], p[1], tol) })
		if inside {
			continue
		}
		worst := lo.Max(lo.Map(h, func(p polygon.Point, _ int) float64 { return k.Distance(region, p[0], p[1]) }))
		warnings = append(warnings, fmt.Sprintf("hole %d extends %.4g outside the exterior", i, worst))
	}
	return warnings
}

// StripFit returns the smallest height the exterior occupies across the
// given rotations, in degrees, and the first rotation that achieves it.
func StripFit(k kernel.Kernel, exterior polygon.Polygon, rotations []int) (float64, int, error) {
	if len(rotations) == 0 {
		rotations = []int{0}
	}
	region, err := k.Polygon(toRing(exterior))
	if err != nil {
		return 0, 0, fmt.Errorf("shape: strip fit: %w", err)
	}
	best, bestRot := math.Inf(1), rotations[0]
	for _, deg := range rotations {
		min, max := k.Rotate(region, float64(deg)).BoundingBox()
		if h := max[1] - min[1]; h < best-fitEpsilon {
			best, bestRot = h, deg
		}
	}
	return best, bestRot, nil
}

// fitEpsilon absorbs rotation round-off when comparing heights.
const fitEpsilon = 1e-9

func toRing(p polygon.Polygon) kernel.Ring {
	return lo.Map(p, func(q polygon.Point, _ int) [2]float64 { return [2]float64(q) })
}
