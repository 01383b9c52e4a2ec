package rtype

import (
	"testing"

	"github.com/hopv/gohopdr/internal/constraint"
	"github.com/hopv/gohopdr/internal/ident"
	"github.com/hopv/gohopdr/internal/operation"
	"github.com/hopv/gohopdr/internal/stype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateSkeletonMatchesSigma(t *testing.T) {
	sigma := stype.Arrow{Dom: stype.Int{}, Cod: stype.Arrow{Dom: stype.Arrow{Dom: stype.Int{}, Cod: stype.Prop{}}, Cod: stype.Prop{}}}
	tmpl := Template(sigma, nil)
	assert.True(t, tmpl.Skeleton().Equals(sigma))
}

func TestEnvExtendIsCopyOnWrite(t *testing.T) {
	base := NewEnv()
	x := ident.Fresh()
	child := base.Extend(x, []Type{Prop{Refinement: constraint.True{}}})
	assert.Nil(t, base.Lookup(x), "parent must not see child's binding")
	assert.NotNil(t, child.Lookup(x))
}

func TestInstantiateWithLinearTemplateProducesCoefficients(t *testing.T) {
	x := ident.Fresh()
	body := Prop{Refinement: constraint.UPredicate{Pred: ident.Fresh(), Args: []operation.Operation{operation.Var{ID: x}}}}
	poly := Poly{Var: x, Body: body}
	inst, coeffs, log := InstantiateWithLinearTemplate(poly, []ident.ID{x})
	require.NotEmpty(t, coeffs)
	assert.NotContains(t, inst.String(), "forall")
	assert.Contains(t, log.Renamed, x)
}

func TestConjoinConstraintOnProp(t *testing.T) {
	p := Prop{Refinement: constraint.True{}}
	c := constraint.Atom{Rel: constraint.Lt, Left: operation.Const{Value: 1}, Right: operation.Const{Value: 2}}
	conj := ConjoinConstraint(p, c).(Prop)
	assert.Equal(t, constraint.True{}, constraint.Simplify(conj.Refinement))
}

func TestGeneralizeBindsFreeVars(t *testing.T) {
	x := ident.Fresh()
	p := Prop{Refinement: constraint.Atom{Rel: constraint.Ge, Left: operation.Var{ID: x}, Right: operation.Const{Value: 0}}}
	generalized := Generalize(p, map[ident.ID]bool{})
	poly, ok := generalized.(Poly)
	require.True(t, ok)
	assert.Equal(t, x, poly.Var)
}

func TestAssignSubstitutesModel(t *testing.T) {
	predID := ident.Fresh()
	param := ident.Fresh()
	p := Prop{Refinement: constraint.UPredicate{Pred: predID, Args: []operation.Operation{operation.Const{Value: 5}}}}
	model := Model{
		predID: ModelEntry{
			Params: []ident.ID{param},
			Body:   constraint.Atom{Rel: constraint.Ge, Left: operation.Var{ID: param}, Right: operation.Const{Value: 0}},
		},
	}
	assigned := Assign(p, model).(Prop)
	simplified := constraint.Simplify(assigned.Refinement)
	assert.Equal(t, constraint.True{}, simplified)
}

func TestSubsumePropImplication(t *testing.T) {
	// have: *[x >= 0], want: *[x >= -1] -- have <= want needs x>=-1 => x>=0
	// (want's refinement implies have's); the obligation is built either way
	x := ident.Fresh()
	have := Prop{Refinement: constraint.Atom{Rel: constraint.Ge, Left: operation.Var{ID: x}, Right: operation.Const{Value: 0}}}
	want := Prop{Refinement: constraint.Atom{Rel: constraint.Ge, Left: operation.Var{ID: x}, Right: operation.Const{Value: -1}}}
	obligation := Subsume(have, want)
	assert.NotNil(t, obligation)
}

func TestSubsumeIntArrowRenamesBinder(t *testing.T) {
	x := ident.Fresh()
	y := ident.Fresh()
	have := IntArrow{Param: x, Body: Prop{Refinement: constraint.True{}}}
	want := IntArrow{Param: y, Body: Prop{Refinement: constraint.True{}}}
	obligation := Subsume(have, want)
	forall, ok := obligation.(constraint.Forall)
	require.True(t, ok)
	assert.Equal(t, x, forall.Var, "subsumption should quantify using have's bound name")
}
