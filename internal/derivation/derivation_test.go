package derivation

import (
	"testing"

	"github.com/hopv/gohopdr/internal/constraint"
	"github.com/hopv/gohopdr/internal/goal"
	"github.com/hopv/gohopdr/internal/ident"
	"github.com/hopv/gohopdr/internal/operation"
	"github.com/hopv/gohopdr/internal/rtype"
	"github.com/hopv/gohopdr/internal/stype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildAllTypesBareConstraint(t *testing.T) {
	g := goal.NewConstr(constraint.Atom{Rel: constraint.Ge, Left: operation.Const{Value: 1}, Right: operation.Const{Value: 0}})
	ds := NewBuilder().BuildAll(g, rtype.NewEnv())
	require.Len(t, ds, 1)
	// *[1 >= 0] differs from the expected *[true], so the Atom node is
	// wrapped in a Subsume node concluding the expected type.
	assert.Equal(t, Subsume, ds[0].Root.Rule)
	require.Len(t, ds[0].Root.Premises, 1)
	assert.Equal(t, Atom, ds[0].Root.Premises[0].Rule)
}

func TestBuildAllCombinesConjunctionRefinements(t *testing.T) {
	left := goal.NewConstr(constraint.True{})
	right := goal.NewConstr(constraint.False{})
	g := goal.NewConj(left, right)
	ds := NewBuilder().BuildAll(g, rtype.NewEnv())
	require.Len(t, ds, 1)
	prop, ok := ds[0].Root.Type.(rtype.Prop)
	require.True(t, ok)
	// Each conjunct is checked against *[true]: the false one is wrapped
	// in a Subsume node concluding *[true], so the conjunction of the two
	// premise refinements is true and the falsity sits in that node's
	// obligation.
	assert.Equal(t, constraint.True{}, prop.Refinement)
	obligations := Obligations(ds[0])
	require.Len(t, obligations, 1)
	assert.Equal(t, constraint.False{}, obligations[0])
}

func TestBuildAllVarProducesOneDerivationPerCandidate(t *testing.T) {
	x := ident.Fresh()
	env := rtype.NewEnv().Extend(x, []rtype.Type{
		rtype.Prop{Refinement: constraint.True{}},
		rtype.Prop{Refinement: constraint.False{}},
	})
	g := goal.NewVar(x, "x")
	ds := NewBuilder().BuildAll(g, env)
	assert.Len(t, ds, 2)
}

func TestBuildAllAppConsumesIntArrow(t *testing.T) {
	f := ident.Fresh()
	param := ident.Fresh()
	arrowType := rtype.IntArrow{
		Param: param,
		Body:  rtype.Prop{Refinement: constraint.Atom{Rel: constraint.Ge, Left: operation.Var{ID: param}, Right: operation.Const{Value: 0}}},
	}
	env := rtype.NewEnv().Extend(f, []rtype.Type{arrowType})
	app := goal.NewApp(goal.NewVar(f, "f"), goal.NewOpLeaf(operation.Const{Value: 5}))
	ds := NewBuilder().BuildAll(app, env)
	require.Len(t, ds, 1)
	// top-level expected type is *[true]; natural type differs (x>=0 with x substituted by 5)
	// so a Subsume node should wrap the IApp conclusion.
	assert.Equal(t, Subsume, ds[0].Root.Rule)
	require.Len(t, ds[0].Root.Premises, 1)
	assert.Equal(t, IApp, ds[0].Root.Premises[0].Rule)
}

func TestObligationsCollectsEverySubsumeNode(t *testing.T) {
	x := ident.Fresh()
	env := rtype.NewEnv().Extend(x, []rtype.Type{rtype.Prop{Refinement: constraint.False{}}})
	g := goal.NewVar(x, "x")
	ds := NewBuilder().BuildAll(g, env)
	require.Len(t, ds, 1)
	obls := Obligations(ds[0])
	require.Len(t, obls, 1)
}

func TestBuildIndexCoversEveryPremise(t *testing.T) {
	left := goal.NewConstr(constraint.True{})
	right := goal.NewConstr(constraint.False{})
	g := goal.NewConj(left, right)
	ds := NewBuilder().BuildAll(g, rtype.NewEnv())
	require.Len(t, ds, 1)
	assert.Contains(t, ds[0].Index, left.Aux().SubtermID)
	assert.Contains(t, ds[0].Index, right.Aux().SubtermID)
}

func TestAbsChecksAgainstIntersectionArrowDomain(t *testing.T) {
	param := ident.Fresh()
	body := goal.NewVar(param, "p")
	abs := goal.NewAbs(param, "p", stype.Prop{}, body)
	expected := rtype.IntersectionArrow{
		Domains: []rtype.Type{rtype.Prop{Refinement: constraint.True{}}},
		Body:    rtype.Prop{Refinement: constraint.True{}},
	}
	nodes := NewBuilder().derive(abs, expected, rtype.NewEnv(), nil, nil)
	require.Len(t, nodes, 1)
	assert.Equal(t, Abs, nodes[0].Rule)
}
