package route

// Buckets holds per-map waypoint groups. IDs lists the map ids in first
// encounter order; iterating it instead of the Go map keeps every
// downstream decision deterministic.
type Buckets struct {
	IDs  []int
	ByID map[int][]Waypoint
}

// GroupByMap splits waypoints into per-map buckets. Each waypoint lands in
// exactly one bucket and keeps its relative order there.
func GroupByMap(wps []Waypoint) Buckets {
	b := Buckets{ByID: make(map[int][]Waypoint)}
	for _, w := range wps {
		if _, seen := b.ByID[w.MapID]; !seen {
			b.IDs = append(b.IDs, w.MapID)
		}
		b.ByID[w.MapID] = append(b.ByID[w.MapID], w)
	}
	return b
}
