package pdr

import (
	"context"
	"testing"

	"github.com/hopv/gohopdr/internal/constraint"
	"github.com/hopv/gohopdr/internal/goal"
	"github.com/hopv/gohopdr/internal/ident"
	"github.com/hopv/gohopdr/internal/problem"
	"github.com/hopv/gohopdr/internal/rtype"
	"github.com/hopv/gohopdr/internal/solver"
	"github.com/hopv/gohopdr/internal/stype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBottomEnvSeedsOneTemplatePerClauseHead(t *testing.T) {
	f := ident.Fresh()
	p := problem.Problem{Clauses: []problem.Clause{
		{Head: f, Sigma: stype.Prop{}, Body: goal.NewConstr(constraint.False{})},
	}}

	env := bottomEnv(p)
	candidates := env.Lookup(f)
	require.Len(t, candidates, 1)
	_, ok := candidates[0].(rtype.Prop)
	assert.True(t, ok, "a Prop-sorted clause head should template to an rtype.Prop skeleton")
}

func TestFlattenDisjunctsWalksNestedDisjunctsLeftToRight(t *testing.T) {
	a := goal.NewConstr(constraint.True{})
	b := goal.NewConstr(constraint.False{})
	c := goal.NewConstr(constraint.True{})
	nested := goal.NewDisj(goal.NewDisj(a, b), c)

	flat := flattenDisjuncts(nested)
	require.Len(t, flat, 3)
	assert.Same(t, goal.Goal(a), flat[0])
	assert.Same(t, goal.Goal(b), flat[1])
	assert.Same(t, goal.Goal(c), flat[2])
}

func TestFlattenDisjunctsOnANonDisjunctReturnsItself(t *testing.T) {
	leaf := goal.NewConstr(constraint.True{})
	flat := flattenDisjuncts(leaf)
	require.Len(t, flat, 1)
	assert.Same(t, goal.Goal(leaf), flat[0])
}

func TestDecideUnfoldInlinesClauseBodyWithArgsSubstituted(t *testing.T) {
	x := ident.Fresh()
	f := ident.Fresh()
	body := goal.NewVar(x, "x")
	p := problem.Problem{Clauses: []problem.Clause{
		{Head: f, Sigma: stype.Arrow{Dom: stype.Int{}, Cod: stype.Prop{}}, Params: []ident.ID{x}, Body: body},
	}}
	e := &Engine{p: p}

	arg := goal.NewConstr(constraint.True{})
	cex := goal.NewApp(goal.NewVar(f, "f"), arg)

	unfolded, ok := e.decideUnfold(cex)
	require.True(t, ok)
	v, isConstr := unfolded.(*goal.Constr)
	require.True(t, isConstr, "substituting x with arg should leave the clause body's Var replaced by arg's own shape")
	_, isTrue := v.C.(constraint.True)
	assert.True(t, isTrue)
}

func TestDecideUnfoldFailsWhenHeadIsNotAClause(t *testing.T) {
	e := &Engine{p: problem.Problem{}}
	cex := goal.NewVar(ident.Fresh(), "unbound")
	_, ok := e.decideUnfold(cex)
	assert.False(t, ok)
}

func TestIntersectRetainingKeepsOnlyCandidatesStillPresentInKeep(t *testing.T) {
	id := ident.Fresh()
	kept := rtype.Prop{Refinement: constraint.True{}}
	dropped := rtype.Prop{Refinement: constraint.False{}}

	base := rtype.NewEnv().Extend(id, []rtype.Type{kept, dropped})
	keep := rtype.NewEnv().Extend(id, []rtype.Type{kept})

	out := intersectRetaining(base, keep)
	got := out.Lookup(id)
	require.Len(t, got, 1)
	assert.Equal(t, kept.String(), got[0].String())
}

func TestIntersectRetainingFallsBackToBaseWhenNothingSurvives(t *testing.T) {
	id := ident.Fresh()
	base := rtype.NewEnv().Extend(id, []rtype.Type{rtype.Prop{Refinement: constraint.False{}}})
	keep := rtype.NewEnv().Extend(id, []rtype.Type{rtype.Prop{Refinement: constraint.True{}}})

	out := intersectRetaining(base, keep)
	got := out.Lookup(id)
	require.Len(t, got, 1, "an empty surviving set must fall back to the original candidates rather than erase the predicate entirely")
}

func TestTypeChecksAcceptsATriviallyTrueGoal(t *testing.T) {
	e := New(problem.Problem{}, Options{CHCSolver: &solver.Fake{}})
	env := rtype.NewEnv()
	ok, err := e.typeChecks(context.Background(), env, goal.NewConstr(constraint.True{}))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRunReturnsInvalidWhenAnImmediateFalsityCexReachesLevelZero(t *testing.T) {
	f := ident.Fresh()
	p := problem.Problem{
		Clauses: []problem.Clause{
			{Head: f, HeadHint: "F", Sigma: stype.Prop{}, Body: goal.NewConstr(constraint.False{})},
		},
		Top: goal.NewVar(f, "F"),
	}
	e := New(p, Options{CHCSolver: &solver.Fake{}, MaxLevels: 8})
	res := e.Run(context.Background())
	assert.Equal(t, Invalid, res.Verdict, "reason: %s", res.Reason)
}

func TestRunRespectsMaxLevelsBound(t *testing.T) {
	f := ident.Fresh()
	g := ident.Fresh()
	// Two clauses unfolding into one another forever with no
	// constraint ever closing the loop: a stand-in for a problem
	// whose environment stack would otherwise grow without bound.
	p := problem.Problem{
		Clauses: []problem.Clause{
			{Head: f, HeadHint: "F", Sigma: stype.Prop{}, Body: goal.NewVar(g, "G")},
			{Head: g, HeadHint: "G", Sigma: stype.Prop{}, Body: goal.NewVar(f, "F")},
		},
		Top: goal.NewVar(f, "F"),
	}
	e := New(p, Options{CHCSolver: &solver.Fake{}, MaxLevels: 2})
	res := e.Run(context.Background())
	if res.Verdict == Unknown {
		assert.Contains(t, res.Reason, "level bound")
	}
}
