package route

// DefaultTwoOptIterations bounds full improvement passes when the caller
// does not say otherwise.
const DefaultTwoOptIterations = 50

// TwoOpt shortens a route by reversing sub-segments whenever that strictly
// improves the replaced edge pair (first-improvement; the scan keeps going
// over the mutated route instead of restarting). Routes of length <= 3 come
// back as an unchanged copy. The candidate edge at the last position wraps
// to index 0, scoring the route as a closed loop even though analysis
// treats it as an open path; that boundary is kept as-is.
func TwoOpt(rt []Waypoint, maxIterations int) []Waypoint {
	out := append([]Waypoint(nil), rt...)
	n := len(out)
	if n <= 3 {
		return out
	}
	if maxIterations <= 0 {
		maxIterations = DefaultTwoOptIterations
	}

	for it := 0; it < maxIterations; it++ {
		improved := false
		for i := 0; i+2 <= n-1; i++ {
			for k := i + 2; k <= n-1; k++ {
				d1 := Distance(out[i].Pos, out[i+1].Pos)
				d2 := Distance(out[k].Pos, out[(k+1)%n].Pos)
				d3 := Distance(out[i].Pos, out[k].Pos)
				d4 := Distance(out[i+1].Pos, out[(k+1)%n].Pos)
				if d3+d4 < d1+d2 {
					reverse(out, i+1, k)
					improved = true
				}
			}
		}
		if !improved {
			break
		}
	}
	return out
}

// reverse flips wps[i..k] in place.
func reverse(wps []Waypoint, i, k int) {
	for a, b := i, k; a < b; a, b = a+1, b-1 {
		wps[a], wps[b] = wps[b], wps[a]
	}
}
