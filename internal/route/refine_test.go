package route

import "testing"

func TestTwoOptIdentityForShortRoutes(t *testing.T) {
	routes := [][]Waypoint{
		nil,
		{wp("a", 1, 0, 0)},
		{wp("a", 1, 0, 0), wp("b", 1, 9, 9)},
		{wp("a", 1, 0, 0), wp("b", 1, 9, 9), wp("c", 1, 1, 1)},
	}
	for i, rt := range routes {
		out := TwoOpt(rt, 50)
		if idsOf(out) != idsOf(rt) {
			t.Fatalf("case %d: order changed to %s", i, idsOf(out))
		}
	}
}

func TestTwoOptUncrossesSquare(t *testing.T) {
	// a -> c -> b -> d crosses itself; the refined walk goes around the
	// square instead.
	in := []Waypoint{
		wp("a", 1, 0, 0), wp("c", 1, 10, 10), wp("b", 1, 10, 0), wp("d", 1, 0, 10),
	}
	out := TwoOpt(in, 0)
	if got := idsOf(out); got != "a,b,c,d" {
		t.Fatalf("order = %s, want a,b,c,d", got)
	}
	checkPermutation(t, in, out)
	if before, after := Analyze(in).TotalDistance, Analyze(out).TotalDistance; after >= before {
		t.Fatalf("distance %v did not improve on %v", after, before)
	}
}

func TestTwoOptDoesNotIncreaseDistance(t *testing.T) {
	routes := [][]Waypoint{
		// already optimal line
		{wp("a", 1, 0, 0), wp("b", 1, 1, 0), wp("c", 1, 2, 0), wp("d", 1, 3, 0)},
		// shuffled line
		{wp("a", 1, 0, 0), wp("c", 1, 2, 0), wp("b", 1, 1, 0), wp("d", 1, 3, 0)},
		// crossed square
		{wp("a", 1, 0, 0), wp("c", 1, 10, 10), wp("b", 1, 10, 0), wp("d", 1, 0, 10)},
		// coincident points, nothing strictly improvable
		{wp("a", 1, 3, 3), wp("b", 1, 3, 3), wp("c", 1, 3, 3), wp("d", 1, 3, 3)},
	}
	for i, rt := range routes {
		out := TwoOpt(rt, 0)
		checkPermutation(t, rt, out)
		if before, after := Analyze(rt).TotalDistance, Analyze(out).TotalDistance; after > before {
			t.Fatalf("case %d: distance grew from %v to %v", i, before, after)
		}
	}
}

func TestTwoOptZeroIterationsMeansDefault(t *testing.T) {
	in := []Waypoint{
		wp("a", 1, 0, 0), wp("c", 1, 10, 10), wp("b", 1, 10, 0), wp("d", 1, 0, 10),
	}
	if idsOf(TwoOpt(in, 0)) != idsOf(TwoOpt(in, DefaultTwoOptIterations)) {
		t.Fatal("iteration default disagrees with explicit value")
	}
}

func TestTwoOptLeavesInputAlone(t *testing.T) {
	in := []Waypoint{
		wp("a", 1, 0, 0), wp("c", 1, 10, 10), wp("b", 1, 10, 0), wp("d", 1, 0, 10),
	}
	TwoOpt(in, 0)
	if got := idsOf(in); got != "a,c,b,d" {
		t.Fatalf("input reordered to %s", got)
	}
}
