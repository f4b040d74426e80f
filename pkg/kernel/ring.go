package kernel

import "math"

// Ring is a closed polyline handed to a kernel, one [x, y] per vertex.
// The closing vertex may be repeated or omitted.
type Ring [][2]float64

// PointCount returns the number of distinct vertices, ignoring a repeated
// closing vertex.
func (r Ring) PointCount() int {
	n := len(r)
	if n > 1 && r[0] == r[n-1] {
		n--
	}
	return n
}

// IsEmpty returns true if the ring cannot bound an area.
func (r Ring) IsEmpty() bool {
	return r.PointCount() < 3
}

// Open returns the ring without a repeated closing vertex.
func (r Ring) Open() Ring {
	return r[:r.PointCount()]
}

// Bounds returns the min and max corners of the ring.
func (r Ring) Bounds() (min, max [2]float64) {
	min = [2]float64{math.Inf(1), math.Inf(1)}
	max = [2]float64{math.Inf(-1), math.Inf(-1)}
	for _, p := range r {
		min[0], min[1] = math.Min(min[0], p[0]), math.Min(min[1], p[1])
		max[0], max[1] = math.Max(max[0], p[0]), math.Max(max[1], p[1])
	}
	return min, max
}
