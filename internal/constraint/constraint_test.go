package constraint

import (
	"testing"

	"github.com/hopv/gohopdr/internal/ident"
	"github.com/hopv/gohopdr/internal/operation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func atom(rel Rel, l, r int64) Constraint {
	return Atom{Rel: rel, Left: operation.Const{Value: l}, Right: operation.Const{Value: r}}
}

func TestSimplifyFusesTrivialConjuncts(t *testing.T) {
	c := MkAnd(True{}, atom(Lt, 1, 2))
	assert.Equal(t, True{}, Simplify(c))

	c2 := MkOr(False{}, atom(Lt, 1, 2))
	assert.Equal(t, True{}, Simplify(c2))
}

func TestSimplifyEvaluatesConstantAtoms(t *testing.T) {
	assert.Equal(t, True{}, Simplify(atom(Lt, 1, 2)))
	assert.Equal(t, False{}, Simplify(atom(Gt, 1, 2)))
}

func TestNegateQuantifierFree(t *testing.T) {
	c := MkAnd(atom(Lt, 1, 2), atom(Eq, 3, 3))
	neg, ok := Negate(c)
	require.True(t, ok)
	// De Morgan: not(a and b) = (not a) or (not b)
	or, isOr := neg.(Or)
	require.True(t, isOr)
	_ = or
}

func TestNegateMixedQuantifiersReportsFalse(t *testing.T) {
	x := ident.Fresh()
	y := ident.Fresh()
	c := Forall{Var: x, Body: Exists{Var: y, Body: atom(Lt, 1, 2)}}
	_, ok := Negate(c)
	assert.False(t, ok, "mixed forall/exists should report the capability limit")
}

func TestNegateTwiceIsIdentity(t *testing.T) {
	c := MkOr(atom(Lt, 1, 2), atom(Ge, 4, 3))
	once, ok1 := Negate(c)
	require.True(t, ok1)
	twice, ok2 := Negate(once)
	require.True(t, ok2)
	assert.Equal(t, Simplify(c), Simplify(twice))
}

func TestSubstCaptureAvoidance(t *testing.T) {
	x := ident.Fresh()
	y := ident.Fresh()
	// forall y. x < y ; substituting y for x must rename the binder
	f := Forall{Var: y, Body: Atom{Rel: Lt, Left: operation.Var{ID: x}, Right: operation.Var{ID: y}}}
	result := f.Subst(x, operation.Var{ID: y})
	renamed, ok := result.(Forall)
	require.True(t, ok)
	assert.NotEqual(t, y, renamed.Var, "binder must be refreshed to avoid capture")
}

func TestPrenexHoistsQuantifiers(t *testing.T) {
	x := ident.Fresh()
	y := ident.Fresh()
	c := MkAnd(
		Forall{Var: x, Body: atom(Lt, 1, 2)},
		Exists{Var: y, Body: atom(Eq, 1, 1)},
	)
	prefix, matrix := Prenex(c)
	assert.Len(t, prefix, 2)
	// matrix should contain no quantifiers left
	assert.False(t, containsForall(matrix) || containsExists(matrix))
	rebuilt := Rebuild(prefix, matrix)
	assert.NotNil(t, rebuilt)
}

func TestCNFIdempotent(t *testing.T) {
	a := atom(Lt, 1, 2)
	b := atom(Eq, 1, 1)
	c := atom(Gt, 2, 1)
	f := MkOr(a, MkAnd(b, c))
	once := CNF(f)
	twice := CNF(once)
	assert.Equal(t, SplitConjuncts(once), SplitConjuncts(twice))
}

func TestDNFOfCNFRoundTrip(t *testing.T) {
	a := atom(Lt, 1, 2)
	b := atom(Eq, 1, 1)
	f := MkAnd(a, b)
	cnf := CNF(f)
	dnf := DNF(cnf)
	// Structurally both should reduce the same constant literals
	assert.Equal(t, True{}, Simplify(dnf))
}

func TestSplitJoinRoundTrip(t *testing.T) {
	a := atom(Lt, 1, 2)
	b := atom(Eq, 1, 1)
	c := atom(Gt, 3, 2)
	conj := JoinAnd([]Constraint{a, b, c})
	assert.Equal(t, []Constraint{a, b, c}, SplitConjuncts(conj))
}

func TestNegateUPredicateWrapsInNot(t *testing.T) {
	u := UPredicate{Pred: ident.Fresh(), Args: []operation.Operation{operation.Const{Value: 1}}}
	neg, ok := Negate(u)
	require.True(t, ok)
	n, isNot := neg.(Not)
	require.True(t, isNot)
	assert.Equal(t, u, n.Body)

	back, ok := Negate(neg)
	require.True(t, ok)
	assert.Equal(t, u, back)
}

func TestMapUPredicatesRewritesUnderNot(t *testing.T) {
	u := UPredicate{Pred: ident.Fresh(), Args: nil}
	neg, _ := Negate(u)
	rewritten := MapUPredicates(neg, func(UPredicate) Constraint { return True{} })
	assert.Equal(t, Not{Body: True{}}, rewritten)
}
