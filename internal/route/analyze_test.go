package route

import "testing"

func TestAnalyzeEmptyRoute(t *testing.T) {
	if s := Analyze(nil); s != (Summary{}) {
		t.Fatalf("analyze(nil) = %+v, want zeros", s)
	}
}

func TestAnalyzeSingleWaypoint(t *testing.T) {
	s := Analyze([]Waypoint{wp("a", 4, 1, 1)})
	if s.TotalDistance != 0 || s.MapCount != 1 || s.MapJumps != 0 {
		t.Fatalf("got %+v, want {0 1 0}", s)
	}
}

func TestAnalyzeMetrics(t *testing.T) {
	rt := []Waypoint{
		wp("a", 1, 0, 0),
		wp("b", 1, 3, 4),
		wp("c", 2, 6, 8),
		wp("d", 2, 6, 9),
	}
	s := Analyze(rt)
	if s.TotalDistance != 11 {
		t.Fatalf("total distance = %v, want 11", s.TotalDistance)
	}
	if s.MapCount != 2 {
		t.Fatalf("map count = %d, want 2", s.MapCount)
	}
	if s.MapJumps != 1 {
		t.Fatalf("map jumps = %d, want 1", s.MapJumps)
	}
}

func TestAnalyzeJumpsBoundedByLength(t *testing.T) {
	rt := []Waypoint{wp("a", 1, 0, 0), wp("b", 2, 0, 0), wp("c", 1, 0, 0)}
	s := Analyze(rt)
	if s.MapJumps != 2 {
		t.Fatalf("map jumps = %d, want 2", s.MapJumps)
	}
	if s.MapJumps > len(rt)-1 {
		t.Fatalf("map jumps %d exceeds len-1 %d", s.MapJumps, len(rt)-1)
	}
	if s.MapCount != 2 {
		t.Fatalf("map count = %d, want 2", s.MapCount)
	}
}

func TestAnalyzeOpenPathNoWrap(t *testing.T) {
	// Three corners of a unit square: 1 + 1, not the closed-loop 2+sqrt(2).
	rt := []Waypoint{wp("a", 1, 0, 0), wp("b", 1, 1, 0), wp("c", 1, 1, 1)}
	if s := Analyze(rt); s.TotalDistance != 2 {
		t.Fatalf("total distance = %v, want 2", s.TotalDistance)
	}
}
