// Package constraint implements the quantifier-bearing first-order
// constraint sort c and its formula-core operations:
// substitution, α-renaming, free-variable collection, negation,
// simplification, prenex normal form, and CNF/DNF decomposition. The
// closed-sum-type-over-an-interface shape follows a Type/TVar/TCon
// style family (internal/types/types.go) and a reference predicate
// algebra (RefinementPredicate's
// String/Evaluate/Variables/Substitute/Simplify capability set).
package constraint

import (
	"fmt"
	"strings"

	"github.com/hopv/gohopdr/internal/ident"
	"github.com/hopv/gohopdr/internal/operation"
)

// Rel is a first-order comparison predicate symbol.
type Rel int

const (
	Eq Rel = iota
	Neq
	Lt
	Le
	Gt
	Ge
)

func (r Rel) String() string {
	switch r {
	case Eq:
		return "="
	case Neq:
		return "!="
	case Lt:
		return "<"
	case Le:
		return "<="
	case Gt:
		return ">"
	case Ge:
		return ">="
	default:
		return "?"
	}
}

// negate returns the relation whose truth value is the logical
// negation of r applied pointwise, e.g. ¬(x < y) ≡ x >= y.
func (r Rel) negate() Rel {
	switch r {
	case Eq:
		return Neq
	case Neq:
		return Eq
	case Lt:
		return Ge
	case Le:
		return Gt
	case Gt:
		return Le
	case Ge:
		return Lt
	default:
		return r
	}
}

// Constraint is the first-order constraint sort c.
type Constraint interface {
	String() string
	Subst(v ident.ID, replacement operation.Operation) Constraint
	FreeVars() map[ident.ID]bool
	constraintNode()
}

// True is the always-satisfied constraint.
type True struct{}

func (True) constraintNode()                                           {}
func (True) String() string                                            { return "true" }
func (True) Subst(ident.ID, operation.Operation) Constraint             { return True{} }
func (True) FreeVars() map[ident.ID]bool                                { return map[ident.ID]bool{} }

// False is the never-satisfied constraint.
type False struct{}

func (False) constraintNode()                                          {}
func (False) String() string                                           { return "false" }
func (False) Subst(ident.ID, operation.Operation) Constraint            { return False{} }
func (False) FreeVars() map[ident.ID]bool                               { return map[ident.ID]bool{} }

// Atom is a comparison predicate applied to two integer expressions,
// P(o1, o2) for P ∈ {=, ≠, <, ≤, >, ≥}.
type Atom struct {
	Rel   Rel
	Left  operation.Operation
	Right operation.Operation
}

func (a Atom) constraintNode() {}

func (a Atom) String() string {
	return fmt.Sprintf("%s %s %s", a.Left, a.Rel, a.Right)
}

func (a Atom) Subst(v ident.ID, replacement operation.Operation) Constraint {
	return Atom{Rel: a.Rel, Left: a.Left.Subst(v, replacement), Right: a.Right.Subst(v, replacement)}
}

func (a Atom) FreeVars() map[ident.ID]bool {
	out := a.Left.FreeVars()
	for id := range a.Right.FreeVars() {
		out[id] = true
	}
	return out
}

// And is conjunction.
type And struct {
	Left, Right Constraint
}

func (a And) constraintNode() {}
func (a And) String() string  { return fmt.Sprintf("(%s /\\ %s)", a.Left, a.Right) }

func (a And) Subst(v ident.ID, replacement operation.Operation) Constraint {
	return And{Left: a.Left.Subst(v, replacement), Right: a.Right.Subst(v, replacement)}
}

func (a And) FreeVars() map[ident.ID]bool {
	out := a.Left.FreeVars()
	for id := range a.Right.FreeVars() {
		out[id] = true
	}
	return out
}

// Or is disjunction.
type Or struct {
	Left, Right Constraint
}

func (o Or) constraintNode() {}
func (o Or) String() string  { return fmt.Sprintf("(%s \\/ %s)", o.Left, o.Right) }

func (o Or) Subst(v ident.ID, replacement operation.Operation) Constraint {
	return Or{Left: o.Left.Subst(v, replacement), Right: o.Right.Subst(v, replacement)}
}

func (o Or) FreeVars() map[ident.ID]bool {
	out := o.Left.FreeVars()
	for id := range o.Right.FreeVars() {
		out[id] = true
	}
	return out
}

// Forall is universal quantification ∀x. c.
type Forall struct {
	Var  ident.ID
	Hint string
	Body Constraint
}

func (f Forall) constraintNode() {}
func (f Forall) String() string  { return fmt.Sprintf("(forall %s. %s)", varName(f.Var, f.Hint), f.Body) }

// Subst refreshes the binder whenever replacement's free variables
// would be captured, preserving capture-avoidance.
func (f Forall) Subst(v ident.ID, replacement operation.Operation) Constraint {
	if v == f.Var {
		return f
	}
	if replacement.FreeVars()[f.Var] {
		fresh := ident.Fresh()
		renamedBody := f.Body.Subst(f.Var, operation.Var{ID: fresh, Hint: f.Hint})
		return Forall{Var: fresh, Hint: f.Hint, Body: renamedBody.Subst(v, replacement)}
	}
	return Forall{Var: f.Var, Hint: f.Hint, Body: f.Body.Subst(v, replacement)}
}

func (f Forall) FreeVars() map[ident.ID]bool {
	out := f.Body.FreeVars()
	delete(out, f.Var)
	return out
}

// Exists is existential quantification ∃x. c.
type Exists struct {
	Var  ident.ID
	Hint string
	Body Constraint
}

func (e Exists) constraintNode() {}
func (e Exists) String() string  { return fmt.Sprintf("(exists %s. %s)", varName(e.Var, e.Hint), e.Body) }

func (e Exists) Subst(v ident.ID, replacement operation.Operation) Constraint {
	if v == e.Var {
		return e
	}
	if replacement.FreeVars()[e.Var] {
		fresh := ident.Fresh()
		renamedBody := e.Body.Subst(e.Var, operation.Var{ID: fresh, Hint: e.Hint})
		return Exists{Var: fresh, Hint: e.Hint, Body: renamedBody.Subst(v, replacement)}
	}
	return Exists{Var: e.Var, Hint: e.Hint, Body: e.Body.Subst(v, replacement)}
}

func (e Exists) FreeVars() map[ident.ID]bool {
	out := e.Body.FreeVars()
	delete(out, e.Var)
	return out
}

func varName(id ident.ID, hint string) string {
	if hint != "" {
		return hint
	}
	return fmt.Sprintf("x%d", id)
}

// UPredicate is a reference to an uninterpreted refinement-type
// template predicate, P(o1,...,on) — a formula with uninterpreted
// predicates: the same grammar as Constraint plus this one extra leaf,
// referring to a template minted by internal/rtype.Template. It is
// folded into the Constraint sum
// type rather than kept as a separate A type, since every operation
// the derivation builder needs (Subst, FreeVars, CNF/DNF, negation)
// is identical across both sorts and A values only ever appear nested
// inside an otherwise-ordinary Constraint tree.
type UPredicate struct {
	// Pred is the uninterpreted predicate symbol's fresh id.
	Pred ident.ID
	Args []operation.Operation
}

func (u UPredicate) constraintNode() {}

func (u UPredicate) String() string {
	parts := make([]string, len(u.Args))
	for i, a := range u.Args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("P%d(%s)", u.Pred, strings.Join(parts, ", "))
}

func (u UPredicate) Subst(v ident.ID, replacement operation.Operation) Constraint {
	args := make([]operation.Operation, len(u.Args))
	for i, a := range u.Args {
		args[i] = a.Subst(v, replacement)
	}
	return UPredicate{Pred: u.Pred, Args: args}
}

func (u UPredicate) FreeVars() map[ident.ID]bool {
	out := map[ident.ID]bool{}
	for _, a := range u.Args {
		for v := range a.FreeVars() {
			out[v] = true
		}
	}
	return out
}

// Not is the negation of an opaque leaf — specifically a UPredicate,
// which carries no relation to invert pointwise the way Atom does.
// negate() produces Not only around UPredicate (and cancels a Not
// around a Not); every other constructor already knows how to push
// its own negation inward.
type Not struct {
	Body Constraint
}

func (n Not) constraintNode() {}
func (n Not) String() string  { return fmt.Sprintf("!(%s)", n.Body) }
func (n Not) Subst(v ident.ID, replacement operation.Operation) Constraint {
	return Not{Body: n.Body.Subst(v, replacement)}
}
func (n Not) FreeVars() map[ident.ID]bool { return n.Body.FreeVars() }

// MkAnd/MkOr are smart constructors that fuse trivial true/false
// operands immediately — fusing trivially-true/false conjuncts and
// disjuncts eagerly at construction time rather than as a later pass.
func MkAnd(l, r Constraint) Constraint {
	if isTrue(l) {
		return r
	}
	if isTrue(r) {
		return l
	}
	if isFalse(l) || isFalse(r) {
		return False{}
	}
	return And{Left: l, Right: r}
}

func MkOr(l, r Constraint) Constraint {
	if isFalse(l) {
		return r
	}
	if isFalse(r) {
		return l
	}
	if isTrue(l) || isTrue(r) {
		return True{}
	}
	return Or{Left: l, Right: r}
}

func isTrue(c Constraint) bool  { _, ok := c.(True); return ok }
func isFalse(c Constraint) bool { _, ok := c.(False); return ok }

// Simplify recursively fuses trivial conjuncts/disjuncts bottom-up.
func Simplify(c Constraint) Constraint {
	switch n := c.(type) {
	case And:
		return MkAnd(Simplify(n.Left), Simplify(n.Right))
	case Or:
		return MkOr(Simplify(n.Left), Simplify(n.Right))
	case Forall:
		return Forall{Var: n.Var, Hint: n.Hint, Body: Simplify(n.Body)}
	case Exists:
		return Exists{Var: n.Var, Hint: n.Hint, Body: Simplify(n.Body)}
	case Atom:
		if lc, lok := n.Left.(operation.Const); lok {
			if rc, rok := n.Right.(operation.Const); rok {
				if evalRel(n.Rel, lc.Value, rc.Value) {
					return True{}
				}
				return False{}
			}
		}
		return Atom{Rel: n.Rel, Left: operation.Simplify(n.Left), Right: operation.Simplify(n.Right)}
	case Not:
		switch inner := Simplify(n.Body).(type) {
		case True:
			return False{}
		case False:
			return True{}
		case Not:
			return inner.Body
		default:
			return Not{Body: inner}
		}
	default:
		return c
	}
}

func evalRel(r Rel, l, v int64) bool {
	switch r {
	case Eq:
		return l == v
	case Neq:
		return l != v
	case Lt:
		return l < v
	case Le:
		return l <= v
	case Gt:
		return l > v
	case Ge:
		return l >= v
	default:
		return false
	}
}

// Negate returns ¬c pushed inward via De Morgan, with quantifiers
// dualized (¬∀x.c ≡ ∃x.¬c, ¬∃x.c ≡ ∀x.¬c). Negation is total on the
// quantifier-free fragment. On formulas that already mix Forall and
// Exists, negation is still structurally well-defined but the result
// may alternate quantifiers in a shape the CHC/QE bridge in
// internal/chc cannot currently discharge — that capability limit
// (negation may fail under mixed quantifiers) is reported via the
// boolean return rather than silently producing an unusable formula.
func Negate(c Constraint) (Constraint, bool) {
	hadMix := hasQuantifierAlternation(c)
	return negate(c), !hadMix
}

func negate(c Constraint) Constraint {
	switch n := c.(type) {
	case True:
		return False{}
	case False:
		return True{}
	case Atom:
		return Atom{Rel: n.Rel.negate(), Left: n.Left, Right: n.Right}
	case And:
		return MkOr(negate(n.Left), negate(n.Right))
	case Or:
		return MkAnd(negate(n.Left), negate(n.Right))
	case Forall:
		return Exists{Var: n.Var, Hint: n.Hint, Body: negate(n.Body)}
	case Exists:
		return Forall{Var: n.Var, Hint: n.Hint, Body: negate(n.Body)}
	case Not:
		return n.Body
	default:
		return Not{Body: c}
	}
}

func hasQuantifierAlternation(c Constraint) bool {
	return containsForall(c) && containsExists(c)
}

func containsForall(c Constraint) bool {
	switch n := c.(type) {
	case Forall:
		return true
	case Exists:
		return containsForall(n.Body)
	case And:
		return containsForall(n.Left) || containsForall(n.Right)
	case Or:
		return containsForall(n.Left) || containsForall(n.Right)
	case Not:
		return containsForall(n.Body)
	default:
		return false
	}
}

func containsExists(c Constraint) bool {
	switch n := c.(type) {
	case Exists:
		return true
	case Forall:
		return containsExists(n.Body)
	case And:
		return containsExists(n.Left) || containsExists(n.Right)
	case Or:
		return containsExists(n.Left) || containsExists(n.Right)
	case Not:
		return containsExists(n.Body)
	default:
		return false
	}
}

// quantifierPrefix is one entry of a prenex quantifier prefix.
type quantifierPrefix struct {
	universal bool
	v         ident.ID
	hint      string
}

// Prenex pulls every quantifier in c outward, α-renaming bound
// variables that would otherwise be captured by an outer binder of
// the same name, and returns the quantifier prefix plus the
// quantifier-free matrix.
func Prenex(c Constraint) (prefix []Constraint, matrix Constraint) {
	var pfx []quantifierPrefix
	m := prenexRec(c, &pfx)
	for _, p := range pfx {
		if p.universal {
			prefix = append(prefix, Forall{Var: p.v, Hint: p.hint})
		} else {
			prefix = append(prefix, Exists{Var: p.v, Hint: p.hint})
		}
	}
	return prefix, m
}

func prenexRec(c Constraint, pfx *[]quantifierPrefix) Constraint {
	switch n := c.(type) {
	case Forall:
		fresh := ident.Fresh()
		renamed := n.Body.Subst(n.Var, operation.Var{ID: fresh, Hint: n.Hint})
		*pfx = append(*pfx, quantifierPrefix{universal: true, v: fresh, hint: n.Hint})
		return prenexRec(renamed, pfx)
	case Exists:
		fresh := ident.Fresh()
		renamed := n.Body.Subst(n.Var, operation.Var{ID: fresh, Hint: n.Hint})
		*pfx = append(*pfx, quantifierPrefix{universal: false, v: fresh, hint: n.Hint})
		return prenexRec(renamed, pfx)
	case And:
		return And{Left: prenexRec(n.Left, pfx), Right: prenexRec(n.Right, pfx)}
	case Or:
		return Or{Left: prenexRec(n.Left, pfx), Right: prenexRec(n.Right, pfx)}
	default:
		return c
	}
}

// Rebuild reattaches a prenex prefix (as produced by Prenex) to a
// matrix, restoring a single Constraint.
func Rebuild(prefix []Constraint, matrix Constraint) Constraint {
	result := matrix
	for i := len(prefix) - 1; i >= 0; i-- {
		switch p := prefix[i].(type) {
		case Forall:
			result = Forall{Var: p.Var, Hint: p.Hint, Body: result}
		case Exists:
			result = Exists{Var: p.Var, Hint: p.Hint, Body: result}
		}
	}
	return result
}

// SplitConjuncts flattens a right- or left-leaning And tree into its
// leaves, the constraint-core analogue of a typical SQL expression
// engine's SplitConjunction helper over AND trees.
func SplitConjuncts(c Constraint) []Constraint {
	if a, ok := c.(And); ok {
		return append(SplitConjuncts(a.Left), SplitConjuncts(a.Right)...)
	}
	return []Constraint{c}
}

// SplitDisjuncts is the Or-tree analogue of SplitConjuncts.
func SplitDisjuncts(c Constraint) []Constraint {
	if o, ok := c.(Or); ok {
		return append(SplitDisjuncts(o.Left), SplitDisjuncts(o.Right)...)
	}
	return []Constraint{c}
}

// JoinAnd folds a slice of constraints into a conjunction, collapsing
// the empty slice to True.
func JoinAnd(cs []Constraint) Constraint {
	if len(cs) == 0 {
		return True{}
	}
	result := cs[0]
	for _, c := range cs[1:] {
		result = MkAnd(result, c)
	}
	return result
}

// JoinOr folds a slice of constraints into a disjunction, collapsing
// the empty slice to False.
func JoinOr(cs []Constraint) Constraint {
	if len(cs) == 0 {
		return False{}
	}
	result := cs[0]
	for _, c := range cs[1:] {
		result = MkOr(result, c)
	}
	return result
}

// CNF converts the quantifier-free matrix of c into conjunctive
// normal form: an And-of-Ors over atoms. Quantified subformulas
// encountered while distributing are left in place as opaque leaves;
// CNF does not call Prenex, and neither does its caller
// internal/chc.ExtractClauses.
func CNF(c Constraint) Constraint {
	clauses := cnfClauses(c)
	ors := make([]Constraint, len(clauses))
	for i, clause := range clauses {
		ors[i] = JoinOr(clause)
	}
	return JoinAnd(ors)
}

// cnfClauses returns c's CNF representation as a slice of clauses,
// each clause a slice of literals.
func cnfClauses(c Constraint) [][]Constraint {
	switch n := c.(type) {
	case And:
		return append(cnfClauses(n.Left), cnfClauses(n.Right)...)
	case Or:
		left := cnfClauses(n.Left)
		right := cnfClauses(n.Right)
		var out [][]Constraint
		for _, lc := range left {
			for _, rc := range right {
				combined := make([]Constraint, 0, len(lc)+len(rc))
				combined = append(combined, lc...)
				combined = append(combined, rc...)
				out = append(out, combined)
			}
		}
		return out
	default:
		return [][]Constraint{{c}}
	}
}

// DNF is the dual of CNF: an Or-of-Ands over atoms.
func DNF(c Constraint) Constraint {
	terms := dnfTerms(c)
	ands := make([]Constraint, len(terms))
	for i, term := range terms {
		ands[i] = JoinAnd(term)
	}
	return JoinOr(ands)
}

func dnfTerms(c Constraint) [][]Constraint {
	switch n := c.(type) {
	case Or:
		return append(dnfTerms(n.Left), dnfTerms(n.Right)...)
	case And:
		left := dnfTerms(n.Left)
		right := dnfTerms(n.Right)
		var out [][]Constraint
		for _, lt := range left {
			for _, rt := range right {
				combined := make([]Constraint, 0, len(lt)+len(rt))
				combined = append(combined, lt...)
				combined = append(combined, rt...)
				out = append(out, combined)
			}
		}
		return out
	default:
		return [][]Constraint{{c}}
	}
}

// MapUPredicates rewrites every UPredicate leaf in c via f, leaving
// every other node shape unchanged. Used by internal/rtype.Assign to
// substitute a solved CHC model's
// formulas for the uninterpreted template predicates left behind by
// derivation and subject expansion.
func MapUPredicates(c Constraint, f func(UPredicate) Constraint) Constraint {
	switch n := c.(type) {
	case UPredicate:
		return f(n)
	case And:
		return And{Left: MapUPredicates(n.Left, f), Right: MapUPredicates(n.Right, f)}
	case Or:
		return Or{Left: MapUPredicates(n.Left, f), Right: MapUPredicates(n.Right, f)}
	case Forall:
		return Forall{Var: n.Var, Hint: n.Hint, Body: MapUPredicates(n.Body, f)}
	case Exists:
		return Exists{Var: n.Var, Hint: n.Hint, Body: MapUPredicates(n.Body, f)}
	case Not:
		return Not{Body: MapUPredicates(n.Body, f)}
	default:
		return c
	}
}

// Pretty renders a constraint with fully-resolved hints where
// available, falling back to x<id> otherwise; used by diagnostics.
func Pretty(c Constraint) string {
	return strings.TrimSpace(c.String())
}
