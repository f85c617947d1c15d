package route

import "testing"

func TestGroupByMapKeepsRelativeOrder(t *testing.T) {
	b := GroupByMap([]Waypoint{
		wp("a", 1, 0, 0), wp("b", 2, 0, 0), wp("c", 1, 0, 0),
		wp("d", 3, 0, 0), wp("e", 2, 0, 0),
	})

	if got, want := len(b.IDs), 3; got != want {
		t.Fatalf("map count = %d, want %d", got, want)
	}
	for i, want := range []int{1, 2, 3} {
		if b.IDs[i] != want {
			t.Fatalf("encounter order = %v, want [1 2 3]", b.IDs)
		}
	}
	if got := idsOf(b.ByID[1]); got != "a,c" {
		t.Fatalf("map 1 bucket = %s, want a,c", got)
	}
	if got := idsOf(b.ByID[2]); got != "b,e" {
		t.Fatalf("map 2 bucket = %s, want b,e", got)
	}
}

func TestGroupByMapCoversEveryWaypoint(t *testing.T) {
	in := []Waypoint{
		wp("a", 5, 0, 0), wp("b", 5, 1, 1), wp("c", 7, 2, 2), wp("d", 5, 3, 3),
	}
	b := GroupByMap(in)
	total := 0
	for _, id := range b.IDs {
		total += len(b.ByID[id])
	}
	if total != len(in) {
		t.Fatalf("buckets hold %d waypoints, want %d", total, len(in))
	}
}

func TestGroupByMapEmpty(t *testing.T) {
	b := GroupByMap(nil)
	if len(b.IDs) != 0 || len(b.ByID) != 0 {
		t.Fatalf("expected empty buckets, got %+v", b)
	}
}
