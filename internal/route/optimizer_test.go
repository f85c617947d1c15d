package route

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func wp(id string, mapID int, x, y float64) Waypoint {
	return Waypoint{ID: id, MapID: mapID, Pos: Point{X: x, Y: y}}
}

func idsOf(rt []Waypoint) string {
	parts := make([]string, len(rt))
	for i, w := range rt {
		parts[i] = w.ID
	}
	return strings.Join(parts, ",")
}

func checkPermutation(t *testing.T, in, out []Waypoint) {
	t.Helper()
	if len(in) != len(out) {
		t.Fatalf("length changed: in=%d out=%d", len(in), len(out))
	}
	count := make(map[string]int)
	for _, w := range in {
		count[w.ID]++
	}
	for _, w := range out {
		count[w.ID]--
	}
	for id, n := range count {
		if n != 0 {
			t.Fatalf("waypoint %s count off by %d", id, n)
		}
	}
}

func TestOptimizeSingleMapNearestNeighbor(t *testing.T) {
	in := []Waypoint{wp("a", 1, 0, 0), wp("b", 1, 10, 0), wp("c", 1, 5, 0)}
	out, err := New(nil).Optimize(in, DefaultOptions())
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if got := idsOf(out); got != "a,c,b" {
		t.Fatalf("order = %s, want a,c,b", got)
	}
	if d := Analyze(out).TotalDistance; d != 10 {
		t.Fatalf("total distance = %v, want 10", d)
	}
}

func TestOptimizeRegionWithMoreWaypointsGoesFirst(t *testing.T) {
	cat := NewCatalog(map[string][]int{"X": {1}, "Y": {2}})
	in := []Waypoint{
		wp("a", 1, 0, 0),
		wp("b1", 2, 50, 0), wp("b2", 2, 51, 0), wp("b3", 2, 52, 0),
	}
	out, err := New(cat).Optimize(in, DefaultOptions())
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	for i := 0; i < 3; i++ {
		if out[i].MapID != 2 {
			t.Fatalf("position %d on map %d, want map 2 (route %s)", i, out[i].MapID, idsOf(out))
		}
	}
	if out[3].ID != "a" {
		t.Fatalf("last = %s, want a", out[3].ID)
	}
}

func TestOptimizeEmptyInput(t *testing.T) {
	out, err := New(nil).Optimize(nil, DefaultOptions())
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected empty route, got %d elements", len(out))
	}
	if s := Analyze(out); s != (Summary{}) {
		t.Fatalf("analyze(empty) = %+v, want zeros", s)
	}
}

func TestOptimizeSingleInput(t *testing.T) {
	in := []Waypoint{wp("only", 7, 3, 4)}
	out, err := New(nil).Optimize(in, DefaultOptions())
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if len(out) != 1 || out[0].ID != "only" {
		t.Fatalf("got %s, want the single input element", idsOf(out))
	}
	out[0].Pos.X = 99
	if in[0].Pos.X != 3 {
		t.Fatal("output shares backing storage with input")
	}
}

func TestOptimizeChainsAnchorAcrossMaps(t *testing.T) {
	// No catalog: both maps are ungrouped, so the bigger one leads. The
	// second map's walk must start nearest the first map's final stop.
	in := []Waypoint{
		wp("a1", 1, 100, 0), wp("a2", 1, 11, 0),
		wp("b1", 2, 0, 0), wp("b2", 2, 10, 0), wp("b3", 2, 5, 0),
	}
	out, err := New(nil).Optimize(in, DefaultOptions())
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if got := idsOf(out); got != "b1,b3,b2,a2,a1" {
		t.Fatalf("order = %s, want b1,b3,b2,a2,a1", got)
	}
}

func TestOptimizeStartWaypointAnchorsFirstMap(t *testing.T) {
	in := []Waypoint{wp("a", 1, 0, 0), wp("b", 1, 10, 0), wp("c", 1, 5, 0)}
	start := wp("start", 1, 9, 0)
	opts := DefaultOptions()
	opts.Start = &start
	out, err := New(nil).Optimize(in, opts)
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if got := idsOf(out); got != "b,c,a" {
		t.Fatalf("order = %s, want b,c,a", got)
	}
}

func TestOptimizeWithoutGrouping(t *testing.T) {
	in := []Waypoint{wp("a", 1, 0, 0), wp("b", 2, 1, 0), wp("c", 1, 2, 0)}
	start := wp("start", 3, 2.1, 0)
	out, err := New(nil).Optimize(in, Options{Start: &start})
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	// One plain nearest-neighbor pass over everything, maps ignored.
	if got := idsOf(out); got != "c,b,a" {
		t.Fatalf("order = %s, want c,b,a", got)
	}
}

func TestOptimizePermutationUnderAllOptions(t *testing.T) {
	cat := NewCatalog(map[string][]int{"north": {1, 2}, "south": {3}})
	in := []Waypoint{
		wp("w1", 1, 0, 0), wp("w2", 3, -5, 2), wp("w3", 2, 7, 7),
		wp("w4", 1, 3, -1), wp("w5", 9, 100, 100), wp("w6", 3, -5.5, 2.5),
		wp("w7", 2, 8, 6), wp("w8", 1, 0.5, 0.5),
	}
	start := wp("s", 2, 7.5, 6.5)
	cases := []Options{
		{},
		{GroupByMap: true},
		{GroupByMap: true, MapOrder: MapOrderCentroids},
		{GroupByMap: true, TwoOpt: true},
		{GroupByMap: true, MapOrder: MapOrderCentroids, TwoOpt: true, Start: &start},
		{GroupByMap: true, Start: &start},
		{TwoOpt: true},
		{Start: &start},
	}
	o := New(cat)
	for i, opts := range cases {
		out, err := o.Optimize(in, opts)
		if err != nil {
			t.Fatalf("case %d: %v", i, err)
		}
		checkPermutation(t, in, out)
	}
}

func TestOptimizeDeterministic(t *testing.T) {
	cat := NewCatalog(map[string][]int{"north": {1, 2}})
	in := []Waypoint{
		wp("w1", 2, 4, 4), wp("w2", 1, 0, 0), wp("w3", 2, 5, 5),
		wp("w4", 5, 9, 9), wp("w5", 1, 1, 1),
	}
	opts := DefaultOptions()
	opts.TwoOpt = true
	o := New(cat)
	first, err := o.Optimize(in, opts)
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	second, err := o.Optimize(in, opts)
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if idsOf(first) != idsOf(second) {
		t.Fatalf("two identical calls disagreed: %s vs %s", idsOf(first), idsOf(second))
	}
}

func TestOptimizeLeavesInputAlone(t *testing.T) {
	in := []Waypoint{wp("a", 1, 5, 0), wp("b", 1, 0, 0), wp("c", 1, 9, 0)}
	want := idsOf(in)
	if _, err := New(nil).Optimize(in, DefaultOptions()); err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if got := idsOf(in); got != want {
		t.Fatalf("input reordered: %s, want %s", got, want)
	}
}

func TestOptimizeRejectsNonFiniteCoords(t *testing.T) {
	cases := [][]Waypoint{
		{wp("ok", 1, 0, 0), wp("nan", 1, math.NaN(), 0)},
		{wp("inf", 1, 0, math.Inf(1))},
		{wp("neginf", 1, math.Inf(-1), 0)},
	}
	o := New(nil)
	for i, in := range cases {
		out, err := o.Optimize(in, DefaultOptions())
		if !errors.Is(err, ErrInvalidWaypoint) {
			t.Fatalf("case %d: err = %v, want ErrInvalidWaypoint", i, err)
		}
		if out != nil {
			t.Fatalf("case %d: got partial result %s", i, idsOf(out))
		}
	}
}

func TestOptimizeRejectsBadStartWaypoint(t *testing.T) {
	in := []Waypoint{wp("a", 1, 0, 0), wp("b", 1, 1, 1)}
	start := wp("s", 1, math.NaN(), 0)
	opts := DefaultOptions()
	opts.Start = &start
	if _, err := New(nil).Optimize(in, opts); !errors.Is(err, ErrInvalidWaypoint) {
		t.Fatalf("err = %v, want ErrInvalidWaypoint", err)
	}
}
