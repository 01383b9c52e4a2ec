package chc

import (
	"context"
	"strconv"
	"testing"

	"github.com/hopv/gohopdr/internal/constraint"
	"github.com/hopv/gohopdr/internal/ident"
	"github.com/hopv/gohopdr/internal/operation"
	"github.com/hopv/gohopdr/internal/solver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func upred(pred ident.ID, args ...operation.Operation) constraint.UPredicate {
	return constraint.UPredicate{Pred: pred, Args: args}
}

func TestExtractClausesSplitsNegatedBodyFromHead(t *testing.T) {
	p := ident.Fresh()
	x := ident.Fresh()
	negP, _ := constraint.Negate(upred(p, operation.Var{ID: x}))
	obligation := constraint.MkOr(negP, constraint.Atom{Rel: constraint.Ge, Left: operation.Var{ID: x}, Right: operation.Const{Value: 0}})

	clauses := ExtractClauses([]constraint.Constraint{obligation})
	require.Len(t, clauses, 1)
	require.Len(t, clauses[0].BodyPreds, 1)
	assert.Equal(t, p, clauses[0].BodyPreds[0].Pred)
}

func TestDefinedPredRecognisesSingleHeadLiteral(t *testing.T) {
	p := ident.Fresh()
	x := ident.Fresh()
	c := Clause{Head: upred(p, operation.Var{ID: x})}
	lit, ok := c.DefinedPred()
	require.True(t, ok)
	assert.Equal(t, p, lit.Pred)
}

func TestDefinedPredRejectsMultiDisjunctHead(t *testing.T) {
	p, q := ident.Fresh(), ident.Fresh()
	c := Clause{Head: constraint.MkOr(upred(p), upred(q))}
	_, ok := c.DefinedPred()
	assert.False(t, ok)
}

func TestStratifyOrdersDependenciesFirst(t *testing.T) {
	p, q := ident.Fresh(), ident.Fresh()
	graph := map[ident.ID][]ident.ID{p: {q}, q: nil}
	order, cyclic := Stratify(graph)
	require.False(t, cyclic)
	require.Len(t, order, 2)
	assert.Equal(t, q, order[0])
	assert.Equal(t, p, order[1])
}

func TestStratifyDetectsCycle(t *testing.T) {
	p, q := ident.Fresh(), ident.Fresh()
	graph := map[ident.ID][]ident.ID{p: {q}, q: {p}}
	_, cyclic := Stratify(graph)
	assert.True(t, cyclic)
}

func TestSolveAcyclicComputesLeastModel(t *testing.T) {
	p := ident.Fresh()
	x := ident.Fresh()
	// obligation: P(x) \/ (x >= 0)  ==  (x < 0) => P(x): P's model is "x < 0".
	obligation := constraint.MkOr(upred(p, operation.Var{ID: x}), constraint.Atom{Rel: constraint.Ge, Left: operation.Var{ID: x}, Right: operation.Const{Value: 0}})
	clauses := ExtractClauses([]constraint.Constraint{obligation})
	require.Len(t, clauses, 1)
	require.True(t, clauses[0].BodyConstraint != nil)

	model, err := Solve(context.Background(), clauses, &solver.Fake{})
	require.NoError(t, err)
	entry, ok := model[p]
	require.True(t, ok)
	assert.NotNil(t, entry.Body)
}

func TestSolveCyclicDelegatesToCHCSolver(t *testing.T) {
	p, q := ident.Fresh(), ident.Fresh()
	c1 := Clause{BodyPreds: []Literal{{Pred: q}}, BodyConstraint: constraint.True{}, Head: upred(p)}
	c2 := Clause{BodyPreds: []Literal{{Pred: p}}, BodyConstraint: constraint.True{}, Head: upred(q)}
	fake := &solver.Fake{Default: solver.Result{Status: solver.Sat, Model: "P" + strconv.FormatUint(uint64(p), 10) + " := true\n"}}
	model, err := Solve(context.Background(), []Clause{c1, c2}, fake)
	require.NoError(t, err)
	require.Len(t, fake.Calls, 1, "cyclic predicates must be solved in a single delegated call")
	_, ok := model[p]
	assert.True(t, ok)
}
