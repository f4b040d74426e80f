// Package contour chains drawing entities into ordered loops by matching
// endpoints under a numeric tolerance.
package contour

import (
	"fmt"
	"log/slog"

	"github.com/chazu/dxfnest/pkg/entity"
)

// DefaultTolerance is the endpoint matching distance in drawing units.
const DefaultTolerance = 0.1

// autoCloseFactor scales the tolerance to get the largest gap auto-close
// will bridge.
const autoCloseFactor = 10

// Contour is an ordered chain of endpoint-connected entities. For a chain,
// entity i's end point meets entity i+1's start point within tolerance.
type Contour struct {
	Entities []entity.Entity `json:"-"`
	// Closed is true when the chain's ends meet, or were auto-closed.
	Closed bool `json:"closed"`
	// Single marks a contour made of one inherently closed primitive.
	Single bool `json:"single"`
	// AutoClosed marks a contour accepted as closed although its ends are
	// apart by more than the tolerance.
	AutoClosed bool        `json:"auto_closed,omitempty"`
	Bounds     entity.BBox `json:"bounds"`
}

// StartPoint returns the first entity's start point.
func (c Contour) StartPoint() entity.Point2D {
	if len(c.Entities) == 0 {
		return entity.Point2D{}
	}
	return entity.StartPoint(c.Entities[0])
}

// EndPoint returns the last entity's end point.
func (c Contour) EndPoint() entity.Point2D {
	if len(c.Entities) == 0 {
		return entity.Point2D{}
	}
	return entity.EndPoint(c.Entities[len(c.Entities)-1])
}

// Gap returns the distance between the chain's end and its start. It is
// zero for single contours.
func (c Contour) Gap() float64 {
	if c.Single {
		return 0
	}
	return c.StartPoint().Dist(c.EndPoint())
}

// Length returns the summed length of the entities.
func (c Contour) Length() float64 {
	var total float64
	for _, e := range c.Entities {
		total += e.Length()
	}
	return total
}

func newContour(ents []entity.Entity) Contour {
	return Contour{Entities: ents, Bounds: entity.Bounds(ents)}
}

// Options controls Build.
type Options struct {
	Tolerance float64
	// MinLength discards chains whose total length is below it. Zero
	// defaults to Tolerance.
	MinLength float64
	// AutoClose accepts chains whose gap is within ten times Tolerance.
	AutoClose bool
	Logger    *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Tolerance <= 0 {
		o.Tolerance = DefaultTolerance
	}
	if o.MinLength <= 0 {
		o.MinLength = o.Tolerance
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Result is the outcome of Build. Contours holds closed and open contours in
// discovery order: single contours first, then chains.
type Result struct {
	Contours []Contour
	Warnings []string
}

// Closed returns only the closed contours.
func (r Result) Closed() []Contour {
	out := []Contour{}
	for _, c := range r.Contours {
		if c.Closed {
			out = append(out, c)
		}
	}
	return out
}

// Open returns only the open contours.
func (r Result) Open() []Contour {
	out := []Contour{}
	for _, c := range r.Contours {
		if !c.Closed {
			out = append(out, c)
		}
	}
	return out
}

// Build groups ents into contours. Inherently closed entities (circles,
// ellipses, closed polylines and splines) each become a single contour. The
// remaining entities are chained greedily: from the current chain end, the
// nearest unused endpoint within tolerance wins, then the lowest entity
// index, then a start point over an end point. An entity matched on its end
// point is reversed before it is appended.
func Build(ents []entity.Entity, opts Options) Result {
	opts = opts.withDefaults()
	log := opts.Logger
	res := Result{Contours: []Contour{}, Warnings: []string{}}

	var open []entity.Entity
	for _, e := range ents {
		if !entity.IsSupported(e) {
			continue
		}
		if e.IsClosed(opts.Tolerance) {
			c := newContour([]entity.Entity{e})
			c.Closed, c.Single = true, true
			res.Contours = append(res.Contours, c)
			continue
		}
		open = append(open, e)
	}

	idx := newEndpointIndex(open, opts.Tolerance)
	for seed := range open {
		if idx.used(seed) {
			continue
		}
		idx.take(seed)
		chain := []entity.Entity{open[seed]}
		end := open[seed].EndPoint()
		for {
			m, ok := idx.nearest(end)
			if !ok {
				break
			}
			idx.take(m.entity)
			next := open[m.entity]
			if m.atEnd {
				next = next.Reversed()
			}
			chain = append(chain, next)
			end = next.EndPoint()
		}

		c := newContour(chain)
		if l := c.Length(); l < opts.MinLength {
			msg := fmt.Sprintf("discarded chain of %d entities: length %.4g below minimum %.4g", len(chain), l, opts.MinLength)
			log.Debug("contour: " + msg)
			res.Warnings = append(res.Warnings, msg)
			continue
		}
		gap := c.Gap()
		switch {
		case gap <= opts.Tolerance:
			c.Closed = true
		case opts.AutoClose && gap <= autoCloseFactor*opts.Tolerance:
			c.Closed, c.AutoClosed = true, true
			msg := fmt.Sprintf("auto-closed contour with gap %.4g", gap)
			log.Debug("contour: " + msg)
			res.Warnings = append(res.Warnings, msg)
		default:
			msg := fmt.Sprintf("open contour of %d entities with gap %.4g", len(chain), gap)
			log.Debug("contour: " + msg)
			res.Warnings = append(res.Warnings, msg)
		}
		res.Contours = append(res.Contours, c)
	}
	return res
}
