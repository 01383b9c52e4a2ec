package expansion

import (
	"testing"

	"github.com/hopv/gohopdr/internal/constraint"
	"github.com/hopv/gohopdr/internal/derivation"
	"github.com/hopv/gohopdr/internal/goal"
	"github.com/hopv/gohopdr/internal/ident"
	"github.com/hopv/gohopdr/internal/operation"
	"github.com/hopv/gohopdr/internal/reduction"
	"github.com/hopv/gohopdr/internal/rtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandRewrapsIntStep(t *testing.T) {
	x := ident.Fresh()
	fresh := ident.Fresh()
	before := goal.NewApp(goal.NewAbs(x, "x", nil, goal.NewVar(x, "x")), goal.NewOpLeaf(operation.Const{Value: 5}))
	after := goal.NewVar(fresh, "x")
	red := reduction.Reduction{
		Before: before,
		After:  after,
		Steps: []reduction.ArgStep{
			{Arg: goal.NewOpLeaf(operation.Const{Value: 5}), ArgVar: fresh, OriginalVarID: x, Kind: reduction.Int},
		},
	}
	finalType := rtype.Prop{Refinement: constraint.Atom{Rel: constraint.Eq, Left: operation.Var{ID: fresh}, Right: operation.Const{Value: 5}}}

	exp := New(&derivation.Derivation{Index: map[ident.ID][]*derivation.Node{}})
	out := exp.Expand(reduction.Log{red}, finalType)

	got, ok := out[before.Aux().SubtermID]
	require.True(t, ok)
	arrow, ok := got.(rtype.IntArrow)
	require.True(t, ok)
	assert.Equal(t, x, arrow.Param)
}

func TestExpandWrapsPredStepAsIntersectionDomain(t *testing.T) {
	p := ident.Fresh()
	arg := goal.NewConstr(constraint.True{})
	before := goal.NewApp(goal.NewAbs(p, "p", nil, goal.NewVar(p, "p")), arg)
	red := reduction.Reduction{
		Before: before,
		After:  arg,
		Steps: []reduction.ArgStep{
			{Arg: arg, OriginalVarID: p, Kind: reduction.Pred},
		},
	}
	argNode := &derivation.Node{Type: rtype.Prop{Refinement: constraint.True{}}}
	idx := map[ident.ID][]*derivation.Node{arg.Aux().SubtermID: {argNode}}
	exp := New(&derivation.Derivation{Index: idx})

	finalType := rtype.Prop{Refinement: constraint.True{}}
	out := exp.Expand(reduction.Log{red}, finalType)

	got, ok := out[before.Aux().SubtermID]
	require.True(t, ok)
	ia, ok := got.(rtype.IntersectionArrow)
	require.True(t, ok)
	require.Len(t, ia.Domains, 1)
}

func TestParamCandidatesAccumulatesAcrossReductions(t *testing.T) {
	p := ident.Fresh()
	arg1 := goal.NewConstr(constraint.True{})
	arg2 := goal.NewConstr(constraint.False{})
	idx := map[ident.ID][]*derivation.Node{
		arg1.Aux().SubtermID: {{Type: rtype.Prop{Refinement: constraint.True{}}}},
		arg2.Aux().SubtermID: {{Type: rtype.Prop{Refinement: constraint.False{}}}},
	}
	exp := New(&derivation.Derivation{Index: idx})
	log := reduction.Log{
		{Steps: []reduction.ArgStep{{Arg: arg1, OriginalVarID: p, Kind: reduction.Pred}}},
		{Steps: []reduction.ArgStep{{Arg: arg2, OriginalVarID: p, Kind: reduction.Pred}}},
	}
	candidates := exp.ParamCandidates(log)
	assert.Len(t, candidates[p], 2)
}

func TestInstallCandidatesExtendsEnv(t *testing.T) {
	p := ident.Fresh()
	env := rtype.NewEnv()
	env2 := InstallCandidates(env, map[ident.ID][]rtype.Type{p: {rtype.Prop{Refinement: constraint.True{}}}})
	assert.Len(t, env2.Lookup(p), 1)
	assert.Nil(t, env.Lookup(p), "original env must stay untouched (copy-on-write)")
}
