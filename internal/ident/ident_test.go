package ident

import "testing"

func TestFreshIsUnique(t *testing.T) {
	seen := make(map[ID]bool)
	for i := 0; i < 1000; i++ {
		id := Fresh()
		if seen[id] {
			t.Fatalf("Fresh() returned duplicate id %d", id)
		}
		seen[id] = true
	}
}

func TestFreshIsMonotonic(t *testing.T) {
	a := Fresh()
	b := Fresh()
	if !(b > a) {
		t.Fatalf("expected %d > %d", b, a)
	}
}

func TestFreshNamedString(t *testing.T) {
	n := FreshNamed("t")
	if n.String() == "" {
		t.Fatal("expected non-empty rendering")
	}
}
