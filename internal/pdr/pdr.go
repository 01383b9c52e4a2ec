// Package pdr implements the light HoPDR orchestrator: the
// candidate/search-for-type/update-environments loop that drives the
// engine's environment stack to a fixpoint. It is the outermost loop
// tying reduction, derivation, subject expansion, and CHC solving
// together into a single verdict. The read-next-step, mutate-state,
// loop-or-return shape follows a REPL main-loop style
// (internal/repl.REPL.Start's `for { ... }` driving a running session
// to either a result or the next iteration).
package pdr

import (
	"context"

	"github.com/hopv/gohopdr/internal/chc"
	"github.com/hopv/gohopdr/internal/constraint"
	"github.com/hopv/gohopdr/internal/derivation"
	"github.com/hopv/gohopdr/internal/errcode"
	"github.com/hopv/gohopdr/internal/expansion"
	"github.com/hopv/gohopdr/internal/goal"
	"github.com/hopv/gohopdr/internal/ident"
	"github.com/hopv/gohopdr/internal/problem"
	"github.com/hopv/gohopdr/internal/reduction"
	"github.com/hopv/gohopdr/internal/rtype"
	"github.com/hopv/gohopdr/internal/solver"
)

// Verdict is the engine's final answer: Valid(environment) | Invalid |
// Unknown(reason).
type Verdict int

const (
	Unknown Verdict = iota
	Valid
	Invalid
)

func (v Verdict) String() string {
	switch v {
	case Valid:
		return "Valid"
	case Invalid:
		return "Invalid"
	default:
		return "Unknown"
	}
}

// Result is the full outcome: the verdict, the witnessing top
// environment when Valid, and a human-readable reason when Unknown.
type Result struct {
	Verdict Verdict
	Env     *rtype.Env
	Reason  string
}

// Options configures one run of the loop: which external CHC solver to
// delegate cyclic clause sets to, and how many levels the environment
// stack may grow to before giving up with Unknown (a bound is
// necessary since, unlike the acyclic fast path, nothing else stops an
// adversarial problem from growing the stack forever).
type Options struct {
	CHCSolver solver.CHCChecker
	MaxLevels int
	Trace     func(format string, args ...any)
}

func (o Options) trace(format string, args ...any) {
	if o.Trace != nil {
		o.Trace(format, args...)
	}
}

// frame is one level Γᵢ of the environment stack plus the cex-goal
// candidates still pending resolution at that level.
type frame struct {
	env   *rtype.Env
	cexes []goal.Goal
}

// Engine runs the light HoPDR loop over one problem.
type Engine struct {
	p    problem.Problem
	opts Options
}

// New returns an Engine ready to Run p.
func New(p problem.Problem, opts Options) *Engine {
	if opts.MaxLevels <= 0 {
		opts.MaxLevels = 64
	}
	return &Engine{p: p, opts: opts}
}

// Run drives the candidate/search-for-type/update-environments loop to
// a verdict.
func (e *Engine) Run(ctx context.Context) Result {
	stack := []frame{{env: bottomEnv(e.p)}}

	for {
		if len(stack) > e.opts.MaxLevels {
			err := errcode.New(errcode.PDR001, errcode.PhasePDR, "environment stack exceeded the configured level bound", map[string]any{"max_levels": e.opts.MaxLevels})
			return Result{Verdict: Unknown, Reason: err.Error()}
		}
		top := &stack[len(stack)-1]

		if len(top.cexes) == 0 {
			ok, err := e.typeChecks(ctx, top.env, e.p.Top)
			if err != nil {
				return Result{Verdict: Unknown, Reason: err.Error()}
			}
			if ok {
				if e.inductive(ctx, top.env) {
					e.opts.trace("pdr: level %d valid and inductive, done", len(stack)-1)
					return Result{Verdict: Valid, Env: top.env}
				}
				if disjunct, found := e.findUninductiveBody(ctx, top.env); found {
					top.cexes = append(top.cexes, disjunct)
					e.opts.trace("pdr: level %d found an uninductive clause body, pushed as cex", len(stack)-1)
					continue
				}
				e.opts.trace("pdr: level %d valid but not yet inductive, propagating", len(stack)-1)
				e.propagate(stack)
				stack = append(stack, frame{env: bottomEnvFromHeads(e.p)})
				continue
			}
			disjunct, found := e.findUntypedDisjunct(ctx, top.env, e.p.Top)
			if !found {
				err := errcode.New(errcode.PDR002, errcode.PhasePDR, "goal is untyped but no CNF disjunct could be isolated as a counter-example", nil)
				return Result{Verdict: Unknown, Reason: err.Error()}
			}
			top.cexes = append(top.cexes, disjunct)
			e.opts.trace("pdr: level %d pushed new cex candidate", len(stack)-1)
			continue
		}

		cex := top.cexes[len(top.cexes)-1]
		refuted, conflictEnv, decided, nextCex, err := e.resolveOne(ctx, stack, len(stack)-1, cex)
		if err != nil {
			return Result{Verdict: Unknown, Reason: err.Error()}
		}
		switch {
		case refuted:
			top.cexes = top.cexes[:len(top.cexes)-1]
			if conflictEnv != nil {
				e.conflict(stack, len(stack)-1, conflictEnv)
			}
			e.opts.trace("pdr: cex refuted at level %d", len(stack)-1)
		case decided:
			if len(stack) == 1 {
				return Result{Verdict: Invalid, Reason: "counter-example survived to level 0"}
			}
			stack = stack[:len(stack)-1]
			stack[len(stack)-1].cexes = append(stack[len(stack)-1].cexes, nextCex)
			e.opts.trace("pdr: cex pushed down to level %d", len(stack)-1)
		default:
			err := errcode.New(errcode.PDR003, errcode.PhasePDR, "counter-example resolution made no progress at this level", nil)
			return Result{Verdict: Unknown, Reason: err.Error()}
		}
	}
}

// typeChecks asks whether g is derivable against env using the
// bidirectional judgement alone (no subject expansion): at least one
// derivation whose obligations the configured solver discharges as a
// consistent model.
func (e *Engine) typeChecks(ctx context.Context, env *rtype.Env, g goal.Goal) (bool, error) {
	return e.typeChecksAgainst(ctx, env, g, rtype.Prop{Refinement: constraint.True{}})
}

// typeChecksAgainst is typeChecks generalised to an arbitrary expected
// type, used by the inductiveness check.
func (e *Engine) typeChecksAgainst(ctx context.Context, env *rtype.Env, g goal.Goal, expected rtype.Type) (bool, error) {
	builder := derivation.NewBuilder()
	derivs := builder.BuildAgainst(g, expected, env)
	for _, d := range derivs {
		obligations := derivation.Obligations(d)
		if len(obligations) == 0 {
			return true, nil
		}
		clauses := chc.ExtractClauses(obligations)
		_, err := chc.Solve(ctx, clauses, e.opts.CHCSolver)
		if err == nil {
			return true, nil
		}
	}
	return false, nil
}

// inductive checks Γₙ ⊢ body : Γₙ(head) for every clause, jointly:
// every clause's obligations are solved as one combined Horn-clause
// set rather than one call per clause, so a genuinely mutually
// recursive definition reaches the cyclic solver path (and the
// configured CHCSolver) instead of each clause trivially discharging
// the others' heads as unconstrained.
func (e *Engine) inductive(ctx context.Context, env *rtype.Env) bool {
	var allObligations []constraint.Constraint
	for _, c := range e.p.Clauses {
		candidates := env.Lookup(c.Head)
		if len(candidates) == 0 {
			return false
		}
		obligations, ok := e.bodyObligations(c, candidates, env)
		if !ok {
			return false
		}
		allObligations = append(allObligations, obligations...)
	}
	clauses := chc.ExtractClauses(allObligations)
	_, err := chc.Solve(ctx, clauses, e.opts.CHCSolver)
	return err == nil
}

// bodyObligations builds c's body against every one of candidates (the
// types currently tracked for c.Head in env) and returns the first
// derivation's obligations, unsolved: the caller folds every clause's
// obligations into one combined Horn-clause set instead of solving
// each clause in isolation.
func (e *Engine) bodyObligations(c problem.Clause, candidates []rtype.Type, env *rtype.Env) ([]constraint.Constraint, bool) {
	builder := derivation.NewBuilder()
	for _, expected := range candidates {
		derivs := builder.BuildAgainst(c.Body, expected, env)
		if len(derivs) > 0 {
			return derivation.Obligations(derivs[0]), true
		}
	}
	return nil, false
}

// findUntypedDisjunct splits g along its top-level Disj nodes (no CNF
// conversion and no reduction first; a g that is not a Disj is its own
// single disjunct) and returns the first disjunct env does not type,
// which becomes the next cex candidate.
func (e *Engine) findUntypedDisjunct(ctx context.Context, env *rtype.Env, g goal.Goal) (goal.Goal, bool) {
	for _, part := range flattenDisjuncts(g) {
		ok, err := e.typeChecks(ctx, env, part)
		if err != nil || !ok {
			return part, true
		}
	}
	return nil, false
}

// findUninductiveBody returns the first clause body that does not
// derive against its own head's currently-tracked candidate type —
// the inductiveness-check analogue of findUntypedDisjunct. inductive
// solves every clause's obligations jointly, so a failure there does
// not by itself say which clause is responsible; this re-checks each
// clause in isolation to surface a concrete counter-example instead of
// discarding the failure and resetting straight to a fresh bottom
// frame, the same way an untyped top-level goal is turned into a cex
// rather than just reported as a bare failure.
func (e *Engine) findUninductiveBody(ctx context.Context, env *rtype.Env) (goal.Goal, bool) {
	for _, c := range e.p.Clauses {
		candidates := env.Lookup(c.Head)
		if len(candidates) == 0 {
			return c.Body, true
		}
		bodyOK := false
		for _, expected := range candidates {
			ok, err := e.typeChecksAgainst(ctx, env, c.Body, expected)
			if err == nil && ok {
				bodyOK = true
				break
			}
		}
		if !bodyOK {
			return c.Body, true
		}
	}
	return nil, false
}

func flattenDisjuncts(g goal.Goal) []goal.Goal {
	if d, ok := g.(*goal.Disj); ok {
		return append(flattenDisjuncts(d.Left), flattenDisjuncts(d.Right)...)
	}
	return []goal.Goal{g}
}

// resolveOne attempts conflict (synthesise a new environment that
// refutes cex, to be spliced into every level up to and including
// level) before falling back to decide (unfold cex one step and push
// the unfolding down as the next candidate).
func (e *Engine) resolveOne(ctx context.Context, stack []frame, level int, cex goal.Goal) (refuted bool, conflictEnv map[ident.ID][]rtype.Type, decided bool, nextCex goal.Goal, err error) {
	env := stack[level].env
	candidateEnv, ok, cerr := e.conflictSearch(ctx, env, cex)
	if cerr != nil {
		return false, nil, false, nil, cerr
	}
	if ok {
		return true, candidateEnv, false, nil, nil
	}
	// decideUnfold returns cex itself, unchanged, when it has no further
	// unfolding — that cex then survives downward as-is, which the
	// caller's level-0 check turns into Invalid once it can fall no
	// further.
	unfolded, _ := e.decideUnfold(cex)
	return false, nil, true, unfolded, nil
}

// conflictSearch runs reduction, derivation, and subject expansion
// over cex and, if the resulting obligations are jointly satisfiable,
// extracts the refinement-type bindings that refute cex — reduction,
// typing, expansion, and constraint-solving chained in one pass.
func (e *Engine) conflictSearch(ctx context.Context, env *rtype.Env, cex goal.Goal) (map[ident.ID][]rtype.Type, bool, error) {
	engine := reduction.NewEngine()
	reduced, log := engine.Run(cex)

	builder := derivation.NewBuilder()
	derivs := builder.BuildAll(reduced, env)
	if len(derivs) == 0 {
		return nil, false, nil
	}

	for _, d := range derivs {
		obligations := derivation.Obligations(d)
		clauses := chc.ExtractClauses(obligations)
		model, err := chc.Solve(ctx, clauses, e.opts.CHCSolver)
		if err != nil {
			continue
		}
		expander := expansion.New(d)
		finalType := rootType(d)
		perID := expander.Expand(log, finalType)
		assigned := map[ident.ID][]rtype.Type{}
		for id, t := range perID {
			assigned[id] = append(assigned[id], rtype.Assign(t, model))
		}
		return assigned, true, nil
	}
	return nil, false, nil
}

func rootType(d *derivation.Derivation) rtype.Type {
	if d == nil || d.Root == nil {
		return rtype.Prop{Refinement: constraint.True{}}
	}
	return d.Root.Type
}

// decideUnfold evaluates one unfolding step of cex: if it is a clause
// invocation (goal.Var bound in the problem's clause set), inline the
// clause body once; otherwise cex has no further unfolding and cannot
// be decided, which the caller treats as a cex surviving downward.
func (e *Engine) decideUnfold(cex goal.Goal) (goal.Goal, bool) {
	head, args := goal.Spine(cex)
	v, ok := head.(*goal.Var)
	if !ok {
		return cex, false
	}
	c, ok := e.p.ClauseByHead(v.ID)
	if !ok {
		return cex, false
	}
	body := c.Body
	for i, param := range c.Params {
		if i < len(args) {
			body = goal.Subst(body, param, args[i])
		}
	}
	return body, true
}

// propagate re-saturates every intermediate level below the top by
// keeping, for each tracked predicate, only the candidate types that
// also appear at the top level (see intersectRetaining); no candidate
// is re-type-checked — induction propagation.
func (e *Engine) propagate(stack []frame) {
	top := stack[len(stack)-1].env
	for i := 0; i < len(stack)-1; i++ {
		stack[i].env = intersectRetaining(stack[i].env, top)
	}
}

// conflict splices a freshly synthesised refutation into every level
// up to and including level, in ascending order: appending a
// conflict-derived environment into Γ₀…Γᵢ.
func (e *Engine) conflict(stack []frame, level int, refutation map[ident.ID][]rtype.Type) {
	for i := 0; i <= level; i++ {
		for id, ts := range refutation {
			existing := stack[i].env.Lookup(id)
			stack[i].env = stack[i].env.Extend(id, append(existing, ts...))
		}
	}
}

// intersectRetaining returns a copy of base whose per-predicate
// candidate lists are filtered down to those that also appear,
// structurally, in keep — the "filtering each type that still
// type-checks" half of induction propagation; a candidate not
// repeated at the saturated top level didn't survive and is dropped.
func intersectRetaining(base, keep *rtype.Env) *rtype.Env {
	out := rtype.NewEnv()
	for id, candidates := range base.Bindings() {
		keepSet := map[string]bool{}
		for _, t := range keep.Lookup(id) {
			keepSet[t.String()] = true
		}
		var retained []rtype.Type
		for _, t := range candidates {
			if keepSet[t.String()] {
				retained = append(retained, t)
			}
		}
		if len(retained) == 0 {
			retained = candidates
		}
		out = out.Extend(id, retained)
	}
	return out
}

// bottomEnv seeds Γ₀ from the clause heads' simple-type skeletons: a
// fresh rtype.Template (uninterpreted-predicate refinements) for every
// predicate, before any conflict has sharpened it.
func bottomEnv(p problem.Problem) *rtype.Env {
	env := rtype.NewEnv()
	for _, c := range p.Clauses {
		t := rtype.Template(c.Sigma, nil)
		env = env.Extend(c.Head, []rtype.Type{t})
	}
	return env
}

// bottomEnvFromHeads is Γ_⊥, the fresh bottom frame pushed once the
// top level types the goal but isn't yet inductive.
func bottomEnvFromHeads(p problem.Problem) *rtype.Env {
	return bottomEnv(p)
}
