package route

import "sort"

// Catalog maps game map ids to named regions. It is built once, injected
// into the engine, and only ever read after that, so it needs no locking.
type Catalog struct {
	byMap map[int]string
}

// NewCatalog builds a catalog from region name -> member map ids. Regions
// are assumed pairwise disjoint; if a map id appears under two names the
// winner is unspecified.
func NewCatalog(regions map[string][]int) *Catalog {
	byMap := make(map[int]string)
	for name, ids := range regions {
		for _, id := range ids {
			byMap[id] = name
		}
	}
	return &Catalog{byMap: byMap}
}

// Region returns the region name for a map id. An unknown id reports
// ok=false, which is a normal outcome, not an error.
func (c *Catalog) Region(mapID int) (string, bool) {
	if c == nil {
		return "", false
	}
	name, ok := c.byMap[mapID]
	return name, ok
}

// Regions returns a fresh name -> sorted map ids snapshot, for callers that
// expose the catalog (mutating the result does not touch the catalog).
func (c *Catalog) Regions() map[string][]int {
	out := make(map[string][]int)
	if c == nil {
		return out
	}
	for id, name := range c.byMap {
		out[name] = append(out[name], id)
	}
	for _, ids := range out {
		sort.Ints(ids)
	}
	return out
}
