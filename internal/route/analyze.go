package route

// Summary holds the metrics reported for a finished route.
type Summary struct {
	TotalDistance float64
	MapCount      int
	MapJumps      int
}

// Analyze computes open-path metrics: total distance over consecutive pairs
// (no wrap back to the start), the number of distinct maps, and the number
// of adjacent pairs that change maps. An empty route yields the zero value.
func Analyze(rt []Waypoint) Summary {
	var s Summary
	if len(rt) == 0 {
		return s
	}
	maps := make(map[int]struct{}, len(rt))
	for i := range rt {
		maps[rt[i].MapID] = struct{}{}
		if i == 0 {
			continue
		}
		s.TotalDistance += Distance(rt[i-1].Pos, rt[i].Pos)
		if rt[i].MapID != rt[i-1].MapID {
			s.MapJumps++
		}
	}
	s.MapCount = len(maps)
	return s
}
