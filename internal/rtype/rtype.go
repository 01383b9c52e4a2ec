// Package rtype implements the intersection-refinement type sort τ
// and its operations: template generation, linear
// template instantiation, constraint conjoining, model assignment,
// polymorphic generalisation, and subsumption-formula generation. The
// polymorphic-scheme shape (Poly wrapping a body, Instantiate minting
// fresh variables) follows a TypeScheme/Instantiate
// pair style (internal/types/types.go); the refined-leaf shape borrows
// a reference predicate-refinement algebra.
package rtype

import (
	"fmt"
	"strings"

	"github.com/hopv/gohopdr/internal/constraint"
	"github.com/hopv/gohopdr/internal/ident"
	"github.com/hopv/gohopdr/internal/operation"
	"github.com/hopv/gohopdr/internal/stype"
)

// Type is the refinement-type sort τ.
type Type interface {
	String() string
	// Skeleton erases refinements, returning the underlying simple
	// type σ — used to check well-shapedness: a type is
	// well-shaped iff its skeleton matches a simple type.
	Skeleton() stype.Type
	rtypeNode()
}

// Prop is *[c]: a proposition refined by a formula c.
type Prop struct {
	Refinement constraint.Constraint
}

func (t Prop) rtypeNode()          {}
func (t Prop) Skeleton() stype.Type { return stype.Prop{} }
func (t Prop) String() string      { return fmt.Sprintf("*[%s]", t.Refinement) }

// IntArrow is x:int → τ, a dependent integer arrow binding x.
type IntArrow struct {
	Param ident.ID
	Hint  string
	Body  Type
}

func (t IntArrow) rtypeNode() {}

func (t IntArrow) Skeleton() stype.Type {
	return stype.Arrow{Dom: stype.Int{}, Cod: t.Body.Skeleton()}
}

func (t IntArrow) String() string {
	return fmt.Sprintf("(%s:int -> %s)", varName(t.Param, t.Hint), t.Body)
}

// IntersectionArrow is ⋀ᵢτᵢ → τ: a function whose argument can be
// supplied at any member of Domains and which then returns Body.
// Domains is non-empty for a derivable arrow;
// an empty slice denotes ⊤ and is only used as an intermediate value
// while constructing one.
type IntersectionArrow struct {
	Domains []Type
	Body    Type
}

func (t IntersectionArrow) rtypeNode() {}

func (t IntersectionArrow) Skeleton() stype.Type {
	if len(t.Domains) == 0 {
		// ⊤ has no canonical simple-type skeleton; callers constructing
		// a derivable arrow must never leave Domains empty.
		return t.Body.Skeleton()
	}
	return stype.Arrow{Dom: t.Domains[0].Skeleton(), Cod: t.Body.Skeleton()}
}

func (t IntersectionArrow) String() string {
	parts := make([]string, len(t.Domains))
	for i, d := range t.Domains {
		parts[i] = d.String()
	}
	return fmt.Sprintf("(%s -> %s)", strings.Join(parts, " /\\ "), t.Body)
}

// Poly is ∀x. τ': polymorphic quantification over an integer variable
// used in the refinements of τ'. Var must occur
// free in Body.
type Poly struct {
	Var  ident.ID
	Hint string
	Body Type
}

func (t Poly) rtypeNode()          {}
func (t Poly) Skeleton() stype.Type { return t.Body.Skeleton() }

func (t Poly) String() string {
	return fmt.Sprintf("(forall %s. %s)", varName(t.Var, t.Hint), t.Body)
}

func varName(id ident.ID, hint string) string {
	if hint != "" {
		return hint
	}
	return fmt.Sprintf("x%d", id)
}

// Env is the multi-map Γ from identifier to a set of alternative
// refinement types: the Type environment Γ. Copy-on-write:
// every mutator returns a new Env sharing unmodified entries with its
// parent, giving it a copy-on-write layered lifecycle.
type Env struct {
	parent *Env
	bind   map[ident.ID][]Type
}

// NewEnv returns an empty top-level environment.
func NewEnv() *Env { return &Env{bind: map[ident.ID][]Type{}} }

// Extend returns a child environment with id bound to types, without
// mutating the receiver.
func (e *Env) Extend(id ident.ID, types []Type) *Env {
	return &Env{parent: e, bind: map[ident.ID][]Type{id: append([]Type{}, types...)}}
}

// Lookup returns the set of candidate types for id, searching this
// layer then its parents, or nil if unbound anywhere.
func (e *Env) Lookup(id ident.ID) []Type {
	for layer := e; layer != nil; layer = layer.parent {
		if ts, ok := layer.bind[id]; ok {
			return ts
		}
	}
	return nil
}

// WithPredicate returns a child environment replacing (not merging)
// the candidate set for a fixpoint predicate id — the shape the PDR
// orchestrator uses each time it commits a freshly synthesised type
// for a predicate into the environment at some stratification level.
func (e *Env) WithPredicate(id ident.ID, types []Type) *Env {
	return e.Extend(id, types)
}

// Snapshot copies every binding reachable from e into one flat layer,
// used when a PDR level needs an immutable frame it can keep forever.
func (e *Env) Snapshot() *Env {
	flat := map[ident.ID][]Type{}
	seen := map[ident.ID]bool{}
	for layer := e; layer != nil; layer = layer.parent {
		for id, ts := range layer.bind {
			if !seen[id] {
				flat[id] = ts
				seen[id] = true
			}
		}
	}
	return &Env{bind: flat}
}

// Bindings returns every id's flattened candidate set as a plain map,
// for callers that need to iterate the whole environment rather than
// look up one id at a time (the PDR loop's induction-propagation pass).
func (e *Env) Bindings() map[ident.ID][]Type {
	return e.Snapshot().bind
}

// Template yields a fresh refinement type whose skeleton matches
// sigma and whose propositions are uninterpreted predicate atoms over
// the in-scope integer variables ienv, each carrying a fresh id —
// this is template(σ).
func Template(sigma stype.Type, ienv []ident.ID) Type {
	switch s := sigma.(type) {
	case stype.Prop:
		return Prop{Refinement: freshPredicateAtom(ienv)}
	case stype.Int:
		// Bare int arguments never appear as a template's top-level
		// shape (they are always the domain of an IntArrow); treat a
		// direct request for one defensively as its own dependent arrow
		// of arity zero by falling back to Prop-shaped refinement.
		return Prop{Refinement: freshPredicateAtom(ienv)}
	case stype.Arrow:
		if _, isIntDom := s.Dom.(stype.Int); isIntDom {
			param := ident.Fresh()
			return IntArrow{Param: param, Body: Template(s.Cod, append(append([]ident.ID{}, ienv...), param))}
		}
		dom := Template(s.Dom, ienv)
		return IntersectionArrow{Domains: []Type{dom}, Body: Template(s.Cod, ienv)}
	default:
		return Prop{Refinement: freshPredicateAtom(ienv)}
	}
}

// freshPredicateAtom mints P(x1,...,xn) for a fresh uninterpreted
// predicate symbol P applied to the in-scope integer variables. A
// constraint.Atom comparing a fresh "predicate marker" operation to
// zero is not expressive enough for n-ary uninterpreted predicates, so
// templates use the dedicated constraint.UPredicate leaf instead.
func freshPredicateAtom(ienv []ident.ID) constraint.Constraint {
	args := make([]operation.Operation, len(ienv))
	for i, v := range ienv {
		args[i] = operation.Var{ID: v}
	}
	return constraint.UPredicate{Pred: ident.Fresh(), Args: args}
}

// Coefficient is one fresh linear-template coefficient a_i introduced
// by InstantiateWithLinearTemplate.
type Coefficient struct {
	ID ident.ID
}

// InstantiationLog records the substitutions InstantiateWithLinearTemplate
// applied to bound variables, sufficient to replay the instantiation
// later.
type InstantiationLog struct {
	// Renamed maps each polymorphic binder's original variable id to
	// a fresh id minted for that instantiation. The binder itself is
	// replaced by the linear template, so the fresh id does not occur
	// in the instantiated type.
	Renamed map[ident.ID]ident.ID
}

// InstantiateWithLinearTemplate replaces each polymorphic binder
// ∀x.τ' in an outermost prefix of t by a fresh linear template
// a0 + Σ ai*xi where xi ranges over ienv, returning the instantiated
// type, the fresh coefficients minted, and a binding log.
func InstantiateWithLinearTemplate(t Type, ienv []ident.ID) (Type, []Coefficient, InstantiationLog) {
	log := InstantiationLog{Renamed: map[ident.ID]ident.ID{}}
	var coeffs []Coefficient
	cur := t
	for {
		p, ok := cur.(Poly)
		if !ok {
			break
		}
		fresh := ident.Fresh()
		log.Renamed[p.Var] = fresh
		a0 := ident.Fresh()
		coeffs = append(coeffs, Coefficient{ID: a0})
		linear := operation.Operation(operation.Var{ID: a0})
		for _, xi := range ienv {
			ai := ident.Fresh()
			coeffs = append(coeffs, Coefficient{ID: ai})
			linear = operation.Bin{Op: operation.Add, Left: linear, Right: operation.Bin{Op: operation.Mul, Left: operation.Var{ID: ai}, Right: operation.Var{ID: xi}}}
		}
		cur = substituteVar(p.Body, p.Var, linear)
		cur = substituteVar(cur, fresh, linear)
	}
	return cur, coeffs, log
}

// substituteVar substitutes replacement for every free occurrence of
// v inside a refinement type's proposition leaves and dependent-arrow
// domains/bodies.
func substituteVar(t Type, v ident.ID, replacement operation.Operation) Type {
	switch n := t.(type) {
	case Prop:
		return Prop{Refinement: n.Refinement.Subst(v, replacement)}
	case IntArrow:
		if n.Param == v {
			return n
		}
		return IntArrow{Param: n.Param, Hint: n.Hint, Body: substituteVar(n.Body, v, replacement)}
	case IntersectionArrow:
		doms := make([]Type, len(n.Domains))
		for i, d := range n.Domains {
			doms[i] = substituteVar(d, v, replacement)
		}
		return IntersectionArrow{Domains: doms, Body: substituteVar(n.Body, v, replacement)}
	case Poly:
		if n.Var == v {
			return n
		}
		return Poly{Var: n.Var, Hint: n.Hint, Body: substituteVar(n.Body, v, replacement)}
	default:
		return t
	}
}

// SubstVar substitutes replacement for every free occurrence of v in
// t's refinements and dependent-arrow domains/bodies. Exported wrapper
// around substituteVar for callers outside this package (derivation's
// IApp rule, which substitutes an applied integer argument into an
// IntArrow's body).
func SubstVar(t Type, v ident.ID, replacement operation.Operation) Type {
	return substituteVar(t, v, replacement)
}

// SubstVarInBody renames the bound variable of an IntArrow's body from
// oldParam to newParam, i.e. SubstVar(body, oldParam, Var{newParam}) —
// used when checking a lambda against an IntArrow target type so the
// lambda's own parameter id, not the target's, ends up free in the
// body being checked.
func SubstVarInBody(body Type, oldParam, newParam ident.ID) Type {
	return substituteVar(body, oldParam, operation.Var{ID: newParam})
}

// ConjoinConstraint conjoins c into every refinement-occurring
// position of t: proposition leaves and nothing else, since only
// Prop carries a refinement directly — IntArrow/IntersectionArrow/Poly
// recurse into their bodies; IntersectionArrow domains are left
// unchanged.
func ConjoinConstraint(t Type, c constraint.Constraint) Type {
	switch n := t.(type) {
	case Prop:
		return Prop{Refinement: constraint.MkAnd(n.Refinement, c)}
	case IntArrow:
		return IntArrow{Param: n.Param, Hint: n.Hint, Body: ConjoinConstraint(n.Body, c)}
	case IntersectionArrow:
		doms := make([]Type, len(n.Domains))
		for i, d := range n.Domains {
			doms[i] = d
		}
		return IntersectionArrow{Domains: doms, Body: ConjoinConstraint(n.Body, c)}
	case Poly:
		return Poly{Var: n.Var, Hint: n.Hint, Body: ConjoinConstraint(n.Body, c)}
	default:
		return t
	}
}

// FreeIntVars collects the free integer variables occurring in t's
// refinements, skipping variables bound by t's own IntArrow/Poly
// binders.
func FreeIntVars(t Type) map[ident.ID]bool {
	out := map[ident.ID]bool{}
	collectFree(t, out)
	return out
}

func collectFree(t Type, out map[ident.ID]bool) {
	switch n := t.(type) {
	case Prop:
		for v := range n.Refinement.FreeVars() {
			out[v] = true
		}
	case IntArrow:
		inner := map[ident.ID]bool{}
		collectFree(n.Body, inner)
		delete(inner, n.Param)
		for v := range inner {
			out[v] = true
		}
	case IntersectionArrow:
		for _, d := range n.Domains {
			collectFree(d, out)
		}
		collectFree(n.Body, out)
	case Poly:
		inner := map[ident.ID]bool{}
		collectFree(n.Body, inner)
		delete(inner, n.Var)
		for v := range inner {
			out[v] = true
		}
	}
}

// ModelEntry is one uninterpreted predicate's solved definition: a
// formula over named formal parameters, ready to be instantiated
// against a call's actual arguments.
type ModelEntry struct {
	Params []ident.ID
	Body   constraint.Constraint
}

// Model is a solved CHC model, as returned by internal/chc after
// consulting the CHC solver — a map from uninterpreted predicate id
// (minted by Template/freshPredicateAtom) to its solved definition.
type Model map[ident.ID]ModelEntry

// Assign projects a solved CHC model into t's uninterpreted
// predicates, producing a pure refinement type over concrete
// constraints — this is assign(τ, model).
func Assign(t Type, model Model) Type {
	switch n := t.(type) {
	case Prop:
		return Prop{Refinement: assignConstraint(n.Refinement, model)}
	case IntArrow:
		return IntArrow{Param: n.Param, Hint: n.Hint, Body: Assign(n.Body, model)}
	case IntersectionArrow:
		doms := make([]Type, len(n.Domains))
		for i, d := range n.Domains {
			doms[i] = Assign(d, model)
		}
		return IntersectionArrow{Domains: doms, Body: Assign(n.Body, model)}
	case Poly:
		return Poly{Var: n.Var, Hint: n.Hint, Body: Assign(n.Body, model)}
	default:
		return t
	}
}

func assignConstraint(c constraint.Constraint, model Model) constraint.Constraint {
	return constraint.MapUPredicates(c, func(u constraint.UPredicate) constraint.Constraint {
		entry, ok := model[u.Pred]
		if !ok {
			// No model entry: the predicate was never constrained,
			// which under a least-model reading means it is simply
			// true everywhere it's reached.
			return constraint.True{}
		}
		body := entry.Body
		for i, p := range entry.Params {
			if i < len(u.Args) {
				body = body.Subst(p, u.Args[i])
			}
		}
		return body
	})
}

// Subsume produces the formula whose validity is necessary and
// sufficient for have <= want under standard higher-order refinement
// subtyping: covariant on the result, contravariant on
// argument intersections, implication on proposition refinements, and
// universal quantification over integer arrows after renaming the
// bound name.
func Subsume(have, want Type) constraint.Constraint {
	switch w := want.(type) {
	case Prop:
		h, ok := have.(Prop)
		if !ok {
			return constraint.False{}
		}
		// have <= want iff want.Refinement => have.Refinement: checking
		// have against *[true] must force have.Refinement itself to be
		// proved, not vacuously discharge regardless of it.
		neg, ok := constraint.Negate(w.Refinement)
		if !ok {
			neg = constraint.Or{Left: constraint.False{}, Right: w.Refinement}
		}
		return constraint.MkOr(neg, h.Refinement)

	case IntArrow:
		h, ok := have.(IntArrow)
		if !ok {
			return constraint.False{}
		}
		// Rename want's bound name to have's before recursing so both
		// sides talk about the same variable.
		renamedWantBody := substituteVar(w.Body, w.Param, operation.Var{ID: h.Param})
		body := Subsume(h.Body, renamedWantBody)
		return constraint.Forall{Var: h.Param, Hint: h.Hint, Body: body}

	case IntersectionArrow:
		h, ok := have.(IntersectionArrow)
		if !ok {
			return constraint.False{}
		}
		// Covariant on result, contravariant+intersection-complete on
		// args: have <= ⋀wi -> wbody iff ⋀wi <= ⋀hj, i.e. for every hj
		// in have.Domains there's some wi with wi <= hj, and
		// have.Body <= want.Body.
		var obligations []constraint.Constraint
		for _, hj := range h.Domains {
			var perHj []constraint.Constraint
			for _, wi := range w.Domains {
				// contravariant: need wi <= hj (args flow the opposite way)
				perHj = append(perHj, Subsume(wi, hj))
			}
			obligations = append(obligations, constraint.JoinOr(perHj))
		}
		obligations = append(obligations, Subsume(h.Body, w.Body))
		return constraint.JoinAnd(obligations)

	case Poly:
		// have <= forall x. w' : instantiate the binder with a fresh
		// variable and recurse; the fresh variable is then implicitly
		// universally quantified by virtue of being unconstrained.
		fresh := ident.Fresh()
		renamed := substituteVar(w.Body, w.Var, operation.Var{ID: fresh})
		return Subsume(have, renamed)

	default:
		return constraint.False{}
	}
}

// Generalize universally generalises t over every free integer variable
// not already bound elsewhere, i.e. poly(τ).
func Generalize(t Type, alreadyBound map[ident.ID]bool) Type {
	free := FreeIntVars(t)
	result := t
	for v := range free {
		if alreadyBound[v] {
			continue
		}
		result = Poly{Var: v, Body: result}
	}
	return result
}
