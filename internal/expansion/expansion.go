// Package expansion implements subject expansion: a reverse
// replay of the reduction log over a committed derivation. Given the
// refinement type the derivation assigned to a reduced goal, and the
// log of reductions that produced it, expansion reconstructs a
// refinement type for the pre-reduction (un-reduced) redex by
// re-wrapping each consumed parameter back into an arrow, innermost
// parameter first. This is literally subject reduction run backwards,
// the way a build-planning package replays a build plan's
// topological order in reverse to unwind a cycle-detection failure
// (internal/planning's cycle-unwinding helper) — same "walk the
// recorded steps back-to-front, rebuilding structure as you go" shape,
// applied here to types instead of build graphs.
package expansion

import (
	"github.com/hopv/gohopdr/internal/constraint"
	"github.com/hopv/gohopdr/internal/derivation"
	"github.com/hopv/gohopdr/internal/goal"
	"github.com/hopv/gohopdr/internal/ident"
	"github.com/hopv/gohopdr/internal/operation"
	"github.com/hopv/gohopdr/internal/reduction"
	"github.com/hopv/gohopdr/internal/rtype"
)

// Expander replays a reduction log against one committed derivation.
type Expander struct {
	d *derivation.Derivation
}

// New returns an Expander reading argument types out of d.
func New(d *derivation.Derivation) *Expander { return &Expander{d: d} }

// Expand walks log from its last entry to its first, reconstructing
// the refinement type of each reduction's pre-image (Before) from the
// type of its post-image (After, initially finalType — the type the
// derivation committed to the fully-reduced goal). It returns every
// reconstructed type keyed by the Before goal's root subterm id, so a
// caller can look up the type for any intermediate redex the engine
// passed through, not only the very first one.
func (e *Expander) Expand(log reduction.Log, finalType rtype.Type) map[ident.ID]rtype.Type {
	out := map[ident.ID]rtype.Type{}
	cur := finalType
	for i := len(log) - 1; i >= 0; i-- {
		r := log[i]
		t := e.expandOne(r, cur)
		out[r.Before.Aux().SubtermID] = t
		cur = t
	}
	return out
}

// expandOne rebuilds the type of one reduction's Before term from
// afterType, re-wrapping its argument steps in reverse (the last
// argument consumed was bound by the innermost lambda, so it must be
// the outermost arrow reconstructed).
func (e *Expander) expandOne(r reduction.Reduction, afterType rtype.Type) rtype.Type {
	t := afterType
	for i := len(r.Steps) - 1; i >= 0; i-- {
		step := r.Steps[i]
		switch step.Kind {
		case reduction.Int:
			// The reduction engine replaced every occurrence of the
			// original parameter with a fresh universally-quantified
			// variable; undo that renaming while re-introducing the
			// binder, so the expanded type once again speaks in terms
			// of the original parameter id.
			renamed := rtype.SubstVar(t, step.ArgVar, operation.Var{ID: step.OriginalVarID})
			t = rtype.IntArrow{Param: step.OriginalVarID, Body: renamed}
		case reduction.Pred:
			argType := e.argType(step.Arg)
			t = rtype.IntersectionArrow{Domains: []rtype.Type{argType}, Body: t}
		}
	}
	return t
}

// argType returns the refinement type the derivation assigned at
// arg's occurrence, or an unconstrained Prop if arg was never typed
// directly (e.g. it denotes a further compound predicate value rather
// than a leaf the builder visited on its own).
func (e *Expander) argType(arg goal.Goal) rtype.Type {
	nodes := e.d.Index[arg.Aux().SubtermID]
	if len(nodes) == 0 {
		return rtype.Prop{Refinement: constraint.True{}}
	}
	return nodes[0].Type
}

// ParamCandidates collects, for every clause-head parameter consumed
// by a predicate-kind (Pred) argument step anywhere in log, every
// distinct type that parameter's actual argument was derived at. Each
// reduction of the same clause head contributes one more candidate;
// together they form exactly the intersection-arrow domain list a
// polymorphic fixpoint predicate's re-derived type is expected to carry.
func (e *Expander) ParamCandidates(log reduction.Log) map[ident.ID][]rtype.Type {
	out := map[ident.ID][]rtype.Type{}
	for _, r := range log {
		for _, step := range r.Steps {
			if step.Kind != reduction.Pred {
				continue
			}
			out[step.OriginalVarID] = append(out[step.OriginalVarID], e.argType(step.Arg))
		}
	}
	return out
}

// InstallCandidates extends env with every collected candidate set
// from ParamCandidates, producing the Γ a caller re-runs the
// derivation builder against for the original, un-reduced top-level
// goal.
func InstallCandidates(env *rtype.Env, candidates map[ident.ID][]rtype.Type) *rtype.Env {
	out := env
	for id, types := range candidates {
		out = out.Extend(id, types)
	}
	return out
}
