package route

// Point is a position on a single game map.
type Point struct {
	X float64
	Y float64
}

// Waypoint is one treasure location. The ID is opaque to the engine;
// waypoint identity is the ID, never the coordinate value.
type Waypoint struct {
	ID    string
	MapID int
	Pos   Point
}

// MapOrderPolicy selects how distinct maps are ordered when map grouping
// is on. The two policies are intentionally separate modes; callers pick
// one explicitly instead of the engine mixing them.
type MapOrderPolicy string

const (
	// MapOrderRegions visits maps region by region, honoring the start
	// waypoint's region and map. Anchor-sensitive.
	MapOrderRegions MapOrderPolicy = "regions"
	// MapOrderCentroids hops greedily between map centroids, starting at
	// the densest map. Ignores the start waypoint's map.
	MapOrderCentroids MapOrderPolicy = "centroids"
)

// Options control a single Optimize call. The zero value means no grouping,
// no refinement and no anchor; most callers want DefaultOptions.
type Options struct {
	GroupByMap bool
	TwoOpt     bool
	MapOrder   MapOrderPolicy
	// MaxIterations bounds 2-opt passes; <=0 falls back to
	// DefaultTwoOptIterations.
	MaxIterations int
	// Start seeds the route near a caller-supplied location. It does not
	// have to be a member of the input list.
	Start *Waypoint
}

// DefaultOptions groups by map with the region policy and leaves 2-opt off.
func DefaultOptions() Options {
	return Options{GroupByMap: true, MapOrder: MapOrderRegions}
}
