package pdr_test

import (
	"context"
	"testing"
	"time"

	"github.com/hopv/gohopdr/internal/constraint"
	"github.com/hopv/gohopdr/internal/goal"
	"github.com/hopv/gohopdr/internal/ident"
	"github.com/hopv/gohopdr/internal/pdr"
	"github.com/hopv/gohopdr/internal/problem"
	"github.com/hopv/gohopdr/internal/solver"
	"github.com/hopv/gohopdr/internal/stype"
	"github.com/hopv/gohopdr/testutil"
	"github.com/stretchr/testify/assert"
)

// These reproduce the shape of the end-to-end scenarios this
// lightweight orchestrator can exercise without a real
// arithmetic-capable solver behind it: a solver.Fake answers every
// query identically, so a scenario whose verdict hinges on actual
// arithmetic content (the polymorphic/inductive scenarios) isn't
// reproducible here, but the scenarios that hinge only on
// propositional structure pin down their literal spec verdict.
func TestRunAlwaysTerminatesWithOneOfTheThreeVerdicts(t *testing.T) {
	twoClauseLoop := func() problem.Problem {
		f, g := ident.Fresh(), ident.Fresh()
		return problem.Problem{
			Clauses: []problem.Clause{
				{Head: f, HeadHint: "F", Sigma: stype.Prop{}, Body: goal.NewVar(g, "G")},
				{Head: g, HeadHint: "G", Sigma: stype.Prop{}, Body: goal.NewVar(f, "F")},
			},
			Top: goal.NewVar(f, "F"),
		}
	}

	tests := []struct {
		name    string
		p       problem.Problem
		opts    pdr.Options
		verdict pdr.Verdict
	}{
		{
			name:    "single always-false clause",
			p:       testutil.SingleClauseProblem("F", goal.NewConstr(constraint.False{})),
			opts:    pdr.Options{CHCSolver: &solver.Fake{}, MaxLevels: 8},
			verdict: pdr.Invalid,
		},
		{
			name:    "a solver that always reports Unsat",
			p:       testutil.SingleClauseProblem("F", goal.NewConstr(constraint.False{})),
			opts:    pdr.Options{CHCSolver: &solver.Fake{Default: solver.Result{Status: solver.Unsat}}, MaxLevels: 8},
			verdict: pdr.Invalid,
		},
		{
			name:    "two clauses unfolding into each other forever, bounded by MaxLevels",
			p:       twoClauseLoop(),
			opts:    pdr.Options{CHCSolver: &solver.Fake{}, MaxLevels: 3},
			verdict: pdr.Unknown,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			engine := pdr.New(tc.p, tc.opts)
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			res := engine.Run(ctx)
			assert.Equal(t, tc.verdict, res.Verdict, "reason: %s", res.Reason)
		})
	}
}
