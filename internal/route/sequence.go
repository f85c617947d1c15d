package route

import "math"

// NearestNeighbor orders waypoints as a greedy path: start at the waypoint
// nearest the anchor (or at index 0 when anchor is nil), then always step
// to the closest unvisited one. Ties go to the earliest candidate, so the
// result is fixed by the input order. O(n^2) over a visited bitset.
func NearestNeighbor(wps []Waypoint, anchor *Point) []Waypoint {
	if len(wps) <= 1 {
		return append([]Waypoint(nil), wps...)
	}

	start := 0
	if anchor != nil {
		best := math.Inf(1)
		for i, w := range wps {
			if d := Distance(*anchor, w.Pos); d < best {
				best = d
				start = i
			}
		}
	}

	visited := make([]bool, len(wps))
	out := make([]Waypoint, 0, len(wps))
	visited[start] = true
	out = append(out, wps[start])

	for len(out) < len(wps) {
		last := out[len(out)-1].Pos
		next := -1
		best := math.Inf(1)
		for i, w := range wps {
			if visited[i] {
				continue
			}
			if d := Distance(last, w.Pos); d < best {
				best = d
				next = i
			}
		}
		visited[next] = true
		out = append(out, wps[next])
	}
	return out
}
