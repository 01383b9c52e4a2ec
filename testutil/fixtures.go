// Package testutil provides shared fixture builders for constructing
// small problem.Problem values directly from Go, without going
// through any surface-syntax front end — the counterpart to the
// teacher's golden-file test helpers (testutil.CompareWithGolden), but
// building inputs rather than comparing outputs, since this engine's
// tests need hand-built clause sets far more often than golden
// snapshots.
package testutil

import (
	"github.com/hopv/gohopdr/internal/goal"
	"github.com/hopv/gohopdr/internal/ident"
	"github.com/hopv/gohopdr/internal/problem"
	"github.com/hopv/gohopdr/internal/stype"
)

// NullaryClause builds one Prop-sorted, zero-parameter clause head :=
// body, the shape of spec.md's "Immediate falsity" scenario.
func NullaryClause(hint string, body goal.Goal) (problem.Clause, ident.ID) {
	id := ident.Fresh()
	return problem.Clause{Head: id, HeadHint: hint, Sigma: stype.Prop{}, Body: body}, id
}

// IntClause builds a clause of arity len(paramHints), every parameter
// int-sorted, the common νHFLZ shape (e.g. `F n k = ...`).
func IntClause(hint string, paramHints []string, build func(params []ident.ID) goal.Goal) problem.Clause {
	params := make([]ident.ID, len(paramHints))
	for i := range params {
		params[i] = ident.Fresh()
	}
	args := make([]stype.Type, len(params))
	for i := range args {
		args[i] = stype.Int{}
	}
	return problem.Clause{
		Head:     ident.Fresh(),
		HeadHint: hint,
		Sigma:    stype.Build(args, stype.Prop{}),
		Params:   params,
		Body:     build(params),
	}
}

// SingleClauseProblem builds the smallest possible Problem: one
// nullary clause and a top goal that is just a reference to it.
func SingleClauseProblem(hint string, body goal.Goal) problem.Problem {
	c, id := NullaryClause(hint, body)
	return problem.Problem{Clauses: []problem.Clause{c}, Top: goal.NewVar(id, hint)}
}
