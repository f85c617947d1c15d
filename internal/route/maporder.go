package route

import (
	"math"
	"sort"
)

// emptyCentroid stands in for maps whose bucket holds no waypoints, so a
// hand-built Buckets value still orders cleanly.
var emptyCentroid = Point{X: 20, Y: 20}

// OrderMapsByRegion decides map visiting order region by region: the start
// waypoint's region comes first (then the others by total waypoint count,
// biggest first), inside a region the start map comes first (then by
// per-map count), and maps outside any region trail the regions unless the
// start map itself has no region, in which case they lead. All sorts are
// stable over first-encounter order, so equal counts keep input order.
func OrderMapsByRegion(b Buckets, cat *Catalog, start *Waypoint) []int {
	type regionGroup struct {
		name  string
		maps  []int
		count int
	}

	var regions []*regionGroup
	byName := make(map[string]*regionGroup)
	var ungrouped []int
	for _, id := range b.IDs {
		name, ok := cat.Region(id)
		if !ok {
			ungrouped = append(ungrouped, id)
			continue
		}
		g := byName[name]
		if g == nil {
			g = &regionGroup{name: name}
			byName[name] = g
			regions = append(regions, g)
		}
		g.maps = append(g.maps, id)
		g.count += len(b.ByID[id])
	}

	hasStart := start != nil
	startMap := 0
	startRegion := ""
	if hasStart {
		startMap = start.MapID
		startRegion, _ = cat.Region(startMap)
	}

	sort.SliceStable(regions, func(i, j int) bool {
		if startRegion != "" {
			if regions[i].name == startRegion && regions[j].name != startRegion {
				return true
			}
			if regions[j].name == startRegion && regions[i].name != startRegion {
				return false
			}
		}
		return regions[i].count > regions[j].count
	})

	mapLess := func(ids []int) func(i, j int) bool {
		return func(i, j int) bool {
			if hasStart {
				if ids[i] == startMap && ids[j] != startMap {
					return true
				}
				if ids[j] == startMap && ids[i] != startMap {
					return false
				}
			}
			return len(b.ByID[ids[i]]) > len(b.ByID[ids[j]])
		}
	}
	for _, g := range regions {
		sort.SliceStable(g.maps, mapLess(g.maps))
	}
	sort.SliceStable(ungrouped, mapLess(ungrouped))

	out := make([]int, 0, len(b.IDs))
	if hasStart && startRegion == "" {
		out = append(out, ungrouped...)
		for _, g := range regions {
			out = append(out, g.maps...)
		}
		return out
	}
	for _, g := range regions {
		out = append(out, g.maps...)
	}
	return append(out, ungrouped...)
}

// OrderMapsByCentroid decides map visiting order by centroid hops: start at
// the map with the most waypoints (earliest wins ties), then repeatedly
// move to the unvisited map whose centroid is nearest the current one.
func OrderMapsByCentroid(b Buckets) []int {
	n := len(b.IDs)
	if n == 0 {
		return nil
	}

	cents := make([]Point, n)
	for i, id := range b.IDs {
		cents[i] = centroid(b.ByID[id])
	}

	start := 0
	for i, id := range b.IDs {
		if len(b.ByID[id]) > len(b.ByID[b.IDs[start]]) {
			start = i
		}
	}

	visited := make([]bool, n)
	out := make([]int, 0, n)
	visited[start] = true
	out = append(out, b.IDs[start])
	cur := cents[start]

	for len(out) < n {
		next := -1
		best := math.Inf(1)
		for i := range b.IDs {
			if visited[i] {
				continue
			}
			if d := Distance(cur, cents[i]); d < best {
				best = d
				next = i
			}
		}
		visited[next] = true
		out = append(out, b.IDs[next])
		cur = cents[next]
	}
	return out
}

func centroid(wps []Waypoint) Point {
	if len(wps) == 0 {
		return emptyCentroid
	}
	var x, y float64
	for _, w := range wps {
		x += w.Pos.X
		y += w.Pos.Y
	}
	n := float64(len(wps))
	return Point{X: x / n, Y: y / n}
}
