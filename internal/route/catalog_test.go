package route

import "testing"

func TestCatalogLookup(t *testing.T) {
	cat := NewCatalog(map[string][]int{"la noscea": {13, 14, 15}, "thanalan": {20}})

	if name, ok := cat.Region(14); !ok || name != "la noscea" {
		t.Fatalf("Region(14) = %q, %v", name, ok)
	}
	if name, ok := cat.Region(999); ok || name != "" {
		t.Fatalf("unknown map returned %q, %v; want no region", name, ok)
	}
}

func TestCatalogNilIsEmpty(t *testing.T) {
	var cat *Catalog
	if _, ok := cat.Region(1); ok {
		t.Fatal("nil catalog resolved a region")
	}
	if got := cat.Regions(); len(got) != 0 {
		t.Fatalf("nil catalog listed regions: %v", got)
	}
}

func TestCatalogRegionsSnapshot(t *testing.T) {
	cat := NewCatalog(map[string][]int{"alpha": {3, 1, 2}})

	got := cat.Regions()
	ids := got["alpha"]
	if len(ids) != 3 || ids[0] != 1 || ids[1] != 2 || ids[2] != 3 {
		t.Fatalf("alpha = %v, want sorted [1 2 3]", ids)
	}

	// The snapshot is the caller's to mangle.
	ids[0] = 99
	if name, ok := cat.Region(1); !ok || name != "alpha" {
		t.Fatal("mutating the snapshot leaked into the catalog")
	}
}
