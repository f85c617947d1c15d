package store

import "testing"

func TestNullIfEmpty(t *testing.T) {
	if v := nullIfEmpty(""); v != nil {
		t.Fatalf("empty string -> nil expected, got %v", v)
	}
	if v := nullIfEmpty("h1"); v != "h1" {
		t.Fatalf("non-empty -> value expected, got %v", v)
	}
}
