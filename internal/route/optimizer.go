package route

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidWaypoint reports a malformed input record. The computation is
// pure, so retrying the same input cannot succeed; callers should fix the
// record instead.
var ErrInvalidWaypoint = errors.New("invalid waypoint")

// Optimizer turns raw waypoint sets into visiting routes. It holds only the
// immutable region catalog, so a single instance is safe for concurrent use.
type Optimizer struct {
	catalog *Catalog
}

// New builds an optimizer around the given catalog. A nil catalog is
// allowed; every map then counts as ungrouped.
func New(catalog *Catalog) *Optimizer {
	return &Optimizer{catalog: catalog}
}

// Catalog exposes the injected catalog for callers that report regions.
func (o *Optimizer) Catalog() *Catalog {
	return o.catalog
}

// Optimize orders wps per opts: group by map, order the maps, walk each
// map's waypoints nearest-neighbor chained on the previous map's last stop,
// then optionally 2-opt the whole thing. The result is a permutation of wps
// in fresh backing storage; wps and its elements are never mutated. Identical
// input and options give identical output.
func (o *Optimizer) Optimize(wps []Waypoint, opts Options) ([]Waypoint, error) {
	for i := range wps {
		if err := checkWaypoint(wps[i]); err != nil {
			return nil, err
		}
	}
	if opts.Start != nil {
		if err := checkWaypoint(*opts.Start); err != nil {
			return nil, fmt.Errorf("start waypoint: %w", err)
		}
	}
	if len(wps) <= 1 {
		return append([]Waypoint(nil), wps...), nil
	}

	var anchor *Point
	if opts.Start != nil {
		p := opts.Start.Pos
		anchor = &p
	}

	var out []Waypoint
	if opts.GroupByMap {
		b := GroupByMap(wps)
		var order []int
		switch opts.MapOrder {
		case MapOrderCentroids:
			order = OrderMapsByCentroid(b)
		default:
			// MapOrderRegions, also the zero value.
			order = OrderMapsByRegion(b, o.catalog, opts.Start)
		}
		out = make([]Waypoint, 0, len(wps))
		for _, id := range order {
			seq := NearestNeighbor(b.ByID[id], anchor)
			out = append(out, seq...)
			last := seq[len(seq)-1].Pos
			anchor = &last
		}
	} else {
		out = NearestNeighbor(wps, anchor)
	}

	if opts.TwoOpt {
		out = TwoOpt(out, opts.MaxIterations)
	}
	return out, nil
}

func checkWaypoint(w Waypoint) error {
	if !finite(w.Pos.X) || !finite(w.Pos.Y) {
		return fmt.Errorf("%w: %q has non-finite coordinates", ErrInvalidWaypoint, w.ID)
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
