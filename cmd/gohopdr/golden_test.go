package main

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

// clauseShape is what a loaded clause should look like once its
// identifiers (inherently process-counter-assigned, never stable
// across runs) are stripped away — the comparable projection of a
// problem.Clause for structural assertions.
type clauseShape struct {
	Name  string
	Arity int
}

func shapesOf(t *testing.T, src string) []clauseShape {
	t.Helper()
	p, err := Load(src)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	shapes := make([]clauseShape, len(p.Clauses))
	for i, c := range p.Clauses {
		shapes[i] = clauseShape{Name: c.HeadHint, Arity: len(c.Params)}
	}
	return shapes
}

func TestLoadProducesTheExpectedClauseShapes(t *testing.T) {
	got := shapesOf(t, `
		(clause F (x y) (or (G x) (>= x 0)))
		(clause G (x) false)
		(top (F 0 1))
	`)
	want := []clauseShape{
		{Name: "F", Arity: 2},
		{Name: "G", Arity: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("clause shapes mismatch (-want +got):\n%s", diff)
	}
}
