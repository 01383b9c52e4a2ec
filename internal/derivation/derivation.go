// Package derivation implements the bottom-up (and, for abstractions,
// top-down) intersection-refinement typing judgement
// Γ; V; Φ ⊢ g : τ. The builder keeps every viable candidate derivation
// as a sibling in a "possible-derivations" set instead of committing
// early, the same way an instance-resolution pass over type-class
// candidates (internal/types/instances.go) keeps every candidate
// instance alive until a later pass disambiguates. Node shape
// follows a Core-IR style (internal/core/core.go): a small
// closed set of rule-tagged node constructors, each carrying pointers
// to its premises rather than a generic children slice.
package derivation

import (
	"github.com/hopv/gohopdr/internal/constraint"
	"github.com/hopv/gohopdr/internal/goal"
	"github.com/hopv/gohopdr/internal/ident"
	"github.com/hopv/gohopdr/internal/operation"
	"github.com/hopv/gohopdr/internal/rtype"
	"github.com/hopv/gohopdr/internal/stype"
)

// Rule names every typing rule the judgement distinguishes.
type Rule int

const (
	Atom Rule = iota
	Var
	App
	IApp
	Conj
	Disj
	Univ
	Abs
	IAbs
	Subsume
	PolyIntro
	PolyElim
)

func (r Rule) String() string {
	names := [...]string{"Atom", "Var", "App", "IApp", "Conj", "Disj", "Univ", "Abs", "IAbs", "Subsume", "PolyIntro", "PolyElim"}
	if int(r) < len(names) {
		return names[r]
	}
	return "?"
}

// Node is one conclusion (Γ; ienv ⊢ g : τ | Θ) in a derivation tree.
type Node struct {
	Rule       Rule
	Goal       goal.Goal
	GoalID     ident.ID
	Type       rtype.Type
	Premises   []*Node
	Obligation constraint.Constraint // non-nil only for Rule == Subsume
	// Coefficients lists the fresh linear-template coefficients
	// introduced by this node's Var-rule instantiation (empty for
	// every other rule), threaded up so constraint extraction can
	// partition the final constraint's free variables into existential
	// coefficients vs universal program variables.
	Coefficients []rtype.Coefficient
}

// Derivation is one full, self-consistent typing of a goal.
type Derivation struct {
	Root *Node
	// Index maps a goal subterm id to every node position that types
	// it, for fast lookup during subject expansion. Several
	// positions can share a subterm id when intersection-typing
	// duplicates re-derivation of the same argument.
	Index map[ident.ID][]*Node
}

func buildIndex(root *Node) map[ident.ID][]*Node {
	idx := map[ident.ID][]*Node{}
	var walk func(n *Node)
	walk = func(n *Node) {
		if n == nil {
			return
		}
		idx[n.GoalID] = append(idx[n.GoalID], n)
		for _, p := range n.Premises {
			walk(p)
		}
	}
	walk(root)
	return idx
}

// Builder constructs candidate derivations for a β-normal goal.
type Builder struct{}

// NewBuilder returns a fresh Builder. Builder carries no state of its
// own; it exists so the typing entry points read the way the
// teacher's typechecker methods do (receiver-qualified, even though
// today's implementation needs no per-call state).
func NewBuilder() *Builder { return &Builder{} }

// BuildAll constructs every possible derivation of g against the
// top-level judgement ε; true; Γ ⊢ g : *[true].
func (b *Builder) BuildAll(g goal.Goal, gamma *rtype.Env) []*Derivation {
	return b.BuildAgainst(g, rtype.Prop{Refinement: constraint.True{}}, gamma)
}

// BuildAgainst constructs every possible derivation of g checked
// against an arbitrary expected type, rather than the trivial *[true]
// BuildAll uses — the HoPDR loop's inductiveness check needs this to
// ask whether a clause's body derives under the clause head's own
// previously-assigned refinement, not under *[true].
func (b *Builder) BuildAgainst(g goal.Goal, expected rtype.Type, gamma *rtype.Env) []*Derivation {
	nodes := b.derive(g, expected, gamma, nil, nil)
	out := make([]*Derivation, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, &Derivation{Root: n, Index: buildIndex(n)})
	}
	return out
}

// derive is the combined synthesis/checking judgement. When expected
// is nil the node's natural type is returned uncompared; otherwise a
// Subsume node is spliced in whenever the natural type differs from
// expected.
func (b *Builder) derive(g goal.Goal, expected rtype.Type, gamma *rtype.Env, v []ident.ID, phi []constraint.Constraint) []*Node {
	switch n := g.(type) {
	case *goal.Constr:
		natural := rtype.Prop{Refinement: n.C}
		return []*Node{b.finish(Atom, g, natural, nil, expected, phi)}

	case *goal.Var:
		candidates := gamma.Lookup(n.ID)
		if len(candidates) == 0 {
			return nil
		}
		var out []*Node
		for _, cand := range candidates {
			inst, coeffs, _ := rtype.InstantiateWithLinearTemplate(cand, v)
			node := b.finish(Var, g, inst, nil, expected, phi)
			node.Coefficients = coeffs
			out = append(out, node)
		}
		return out

	case *goal.Conj:
		leftNodes := b.derive(n.Left, rtype.Prop{Refinement: constraint.True{}}, gamma, v, phi)
		rightNodes := b.derive(n.Right, rtype.Prop{Refinement: constraint.True{}}, gamma, v, phi)
		var out []*Node
		for _, ln := range leftNodes {
			for _, rn := range rightNodes {
				lp, lok := ln.Type.(rtype.Prop)
				rp, rok := rn.Type.(rtype.Prop)
				if !lok || !rok {
					continue
				}
				natural := rtype.Prop{Refinement: constraint.MkAnd(lp.Refinement, rp.Refinement)}
				node := b.finish(Conj, g, natural, []*Node{ln, rn}, expected, phi)
				out = append(out, node)
			}
		}
		return out

	case *goal.Disj:
		leftNodes := b.derive(n.Left, rtype.Prop{Refinement: constraint.True{}}, gamma, v, phi)
		var rightPhi []constraint.Constraint
		if lc, ok := n.Left.(*goal.Constr); ok {
			if neg, negOk := constraint.Negate(lc.C); negOk {
				rightPhi = append(append([]constraint.Constraint{}, phi...), neg)
			} else {
				rightPhi = phi
			}
		} else {
			rightPhi = phi
		}
		rightNodes := b.derive(n.Right, rtype.Prop{Refinement: constraint.True{}}, gamma, v, rightPhi)
		var out []*Node
		for _, ln := range leftNodes {
			for _, rn := range rightNodes {
				lp, lok := ln.Type.(rtype.Prop)
				rp, rok := rn.Type.(rtype.Prop)
				if !lok || !rok {
					continue
				}
				natural := rtype.Prop{Refinement: constraint.MkOr(lp.Refinement, rp.Refinement)}
				node := b.finish(Disj, g, natural, []*Node{ln, rn}, expected, phi)
				out = append(out, node)
			}
		}
		return out

	case *goal.Univ:
		v2 := append(append([]ident.ID{}, v...), n.Param)
		bodyNodes := b.derive(n.Body, rtype.Prop{Refinement: constraint.True{}}, gamma, v2, phi)
		var out []*Node
		for _, bn := range bodyNodes {
			bp, ok := bn.Type.(rtype.Prop)
			if !ok {
				continue
			}
			natural := rtype.Prop{Refinement: constraint.Forall{Var: n.Param, Hint: n.Hint, Body: bp.Refinement}}
			node := b.finish(Univ, g, natural, []*Node{bn}, expected, phi)
			out = append(out, node)
		}
		return out

	case *goal.ITE:
		neg, negOk := constraint.Negate(n.Cond)
		thenPhi := append(append([]constraint.Constraint{}, phi...), n.Cond)
		elsePhi := phi
		if negOk {
			elsePhi = append(append([]constraint.Constraint{}, phi...), neg)
		}
		thenNodes := b.derive(n.Then, rtype.Prop{Refinement: constraint.True{}}, gamma, v, thenPhi)
		elseNodes := b.derive(n.Else, rtype.Prop{Refinement: constraint.True{}}, gamma, v, elsePhi)
		var out []*Node
		for _, tn := range thenNodes {
			for _, en := range elseNodes {
				tp, tok := tn.Type.(rtype.Prop)
				ep, eok := en.Type.(rtype.Prop)
				if !tok || !eok {
					continue
				}
				natural := rtype.Prop{Refinement: constraint.MkOr(constraint.MkAnd(n.Cond, tp.Refinement), constraint.MkAnd(neg, ep.Refinement))}
				node := b.finish(Disj, g, natural, []*Node{tn, en}, expected, phi)
				out = append(out, node)
			}
		}
		return out

	case *goal.App:
		fNodes := b.derive(n.Func, nil, gamma, v, phi)
		var out []*Node
		for _, fn := range fNodes {
			switch ft := fn.Type.(type) {
			case rtype.IntArrow:
				argOp := goalToOperation(n.Arg)
				natural := rtype.SubstVar(ft.Body, ft.Param, argOp)
				node := b.finish(IApp, g, natural, []*Node{fn}, expected, phi)
				out = append(out, node)
			case rtype.IntersectionArrow:
				for _, dom := range ft.Domains {
					argNodes := b.derive(n.Arg, dom, gamma, v, phi)
					for _, an := range argNodes {
						node := b.finish(App, g, ft.Body, []*Node{fn, an}, expected, phi)
						out = append(out, node)
					}
				}
			default:
				// f did not synthesize an arrow: this branch is untypable.
			}
		}
		return out

	case *goal.Abs:
		target := expected
		if target == nil {
			// Abs reached with no context type (can only happen if a
			// lambda is the whole top-level goal, never produced by a
			// well-formed νHFLZ candidate): mint a template from its
			// simple type so the builder stays total.
			target = rtype.Template(stype.Build([]stype.Type{n.Sigma}, stype.Prop{}), v)
		}
		switch et := target.(type) {
		case rtype.IntArrow:
			v2 := append(append([]ident.ID{}, v...), n.Param)
			renamedBody := rtype.SubstVarInBody(et.Body, et.Param, n.Param)
			bodyNodes := b.derive(n.Body, renamedBody, gamma, v2, phi)
			var out []*Node
			for _, bn := range bodyNodes {
				out = append(out, &Node{Rule: IAbs, Goal: g, GoalID: g.Aux().SubtermID, Type: et, Premises: []*Node{bn}})
			}
			return out
		case rtype.IntersectionArrow:
			gamma2 := gamma.Extend(n.Param, et.Domains)
			bodyNodes := b.derive(n.Body, et.Body, gamma2, v, phi)
			var out []*Node
			for _, bn := range bodyNodes {
				out = append(out, &Node{Rule: Abs, Goal: g, GoalID: g.Aux().SubtermID, Type: et, Premises: []*Node{bn}})
			}
			return out
		default:
			return nil
		}

	default:
		return nil
	}
}

// finish wraps inner's natural type in a Subsume node against expected
// when the two differ, conjoining phi as antecedent: whenever a
// conclusion type differs from the expected context type, a
// subsumption node is pushed whose obligation is the formula returned
// by subsume(τ_have, τ_expected), conjoined with Φ as antecedent.
func (b *Builder) finish(rule Rule, g goal.Goal, natural rtype.Type, premises []*Node, expected rtype.Type, phi []constraint.Constraint) *Node {
	node := &Node{Rule: rule, Goal: g, GoalID: g.Aux().SubtermID, Type: natural, Premises: premises}
	if expected == nil || natural.String() == expected.String() {
		return node
	}
	obligation := rtype.Subsume(natural, expected)
	if len(phi) > 0 {
		antecedent := constraint.JoinAnd(phi)
		if neg, ok := constraint.Negate(antecedent); ok {
			obligation = constraint.MkOr(neg, obligation)
		}
	}
	return &Node{
		Rule:       Subsume,
		Goal:       g,
		GoalID:     g.Aux().SubtermID,
		Type:       expected,
		Premises:   []*Node{node},
		Obligation: obligation,
	}
}

// Obligations walks d collecting every Subsume node's obligation.
func Obligations(d *Derivation) []constraint.Constraint {
	var out []constraint.Constraint
	var walk func(n *Node)
	walk = func(n *Node) {
		if n == nil {
			return
		}
		if n.Rule == Subsume && n.Obligation != nil {
			out = append(out, n.Obligation)
		}
		for _, p := range n.Premises {
			walk(p)
		}
	}
	walk(d.Root)
	return out
}

// CoefficientIDs collects every fresh coefficient id minted anywhere
// in d, used to tell existential coefficients apart from
// universally-quantified program variables when discharging the
// commit-time SMT query.
func CoefficientIDs(d *Derivation) map[ident.ID]bool {
	out := map[ident.ID]bool{}
	var walk func(n *Node)
	walk = func(n *Node) {
		if n == nil {
			return
		}
		for _, c := range n.Coefficients {
			out[c.ID] = true
		}
		for _, p := range n.Premises {
			walk(p)
		}
	}
	walk(d.Root)
	return out
}

func goalToOperation(g goal.Goal) operation.Operation {
	switch n := g.(type) {
	case *goal.OpLeaf:
		return n.O
	case *goal.Var:
		return operation.Var{ID: n.ID, Hint: n.Hint}
	default:
		return operation.Const{Value: 0}
	}
}
