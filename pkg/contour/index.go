package contour

import (
	"github.com/dhconnelly/rtreego"

	"github.com/chazu/dxfnest/pkg/entity"
)

// endpoint is one end of an open entity, stored in the R-tree.
type endpoint struct {
	entity int
	atEnd  bool
	p      entity.Point2D
}

// pointExtent is the half-size of the box an endpoint occupies in the tree.
const pointExtent = 1e-9

func (e *endpoint) Bounds() rtreego.Rect {
	return rtreego.Point{e.p.X, e.p.Y}.ToRect(pointExtent)
}

// endpointIndex answers "which unused endpoints lie within tolerance of p"
// without scanning every entity.
type endpointIndex struct {
	tree  *rtreego.Rtree
	tol   float64
	ends  [][2]*endpoint
	taken []bool
}

func newEndpointIndex(ents []entity.Entity, tol float64) *endpointIndex {
	idx := &endpointIndex{
		tree:  rtreego.NewTree(2, 25, 50),
		tol:   tol,
		ends:  make([][2]*endpoint, len(ents)),
		taken: make([]bool, len(ents)),
	}
	for i, e := range ents {
		s := &endpoint{entity: i, p: e.StartPoint()}
		t := &endpoint{entity: i, atEnd: true, p: e.EndPoint()}
		idx.ends[i] = [2]*endpoint{s, t}
		idx.tree.Insert(s)
		idx.tree.Insert(t)
	}
	return idx
}

func (idx *endpointIndex) used(i int) bool { return idx.taken[i] }

// take marks entity i as used and removes both its endpoints.
func (idx *endpointIndex) take(i int) {
	if idx.taken[i] {
		return
	}
	idx.taken[i] = true
	idx.tree.Delete(idx.ends[i][0])
	idx.tree.Delete(idx.ends[i][1])
}

// nearest returns the unused endpoint closest to p within tolerance. Ties go
// to the lower entity index, then to a start point.
func (idx *endpointIndex) nearest(p entity.Point2D) (*endpoint, bool) {
	query := rtreego.Point{p.X, p.Y}.ToRect(idx.tol)
	var best *endpoint
	bestDist := 0.0
	for _, s := range idx.tree.SearchIntersect(query) {
		ep := s.(*endpoint)
		d := ep.p.Dist(p)
		if d > idx.tol || idx.taken[ep.entity] {
			continue
		}
		if best == nil || better(ep, d, best, bestDist) {
			best, bestDist = ep, d
		}
	}
	return best, best != nil
}

func better(a *endpoint, da float64, b *endpoint, db float64) bool {
	if da != db {
		return da < db
	}
	if a.entity != b.entity {
		return a.entity < b.entity
	}
	return !a.atEnd && b.atEnd
}
