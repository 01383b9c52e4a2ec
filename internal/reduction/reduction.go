// Package reduction implements the reduction engine:
// it beta-normalises a candidate goal while recording every step as a
// reversible reduction, producing a reduction log the subject
// expansion engine (internal/expansion) replays in reverse. The
// leftmost-outermost redex selection discipline follows an
// evaluator-package style (internal/eval/eval_evaluator.go),
// adapted from a value-producing reducer into a provenance-recording
// one.
package reduction

import (
	"github.com/hopv/gohopdr/internal/constraint"
	"github.com/hopv/gohopdr/internal/goal"
	"github.com/hopv/gohopdr/internal/ident"
	"github.com/hopv/gohopdr/internal/operation"
	"github.com/hopv/gohopdr/internal/problem"
	"github.com/hopv/gohopdr/internal/stype"
)

// ArgKind distinguishes the two substitution disciplines a reduction
// step can use for its argument.
type ArgKind int

const (
	Int ArgKind = iota
	Pred
)

func (k ArgKind) String() string {
	if k == Int {
		return "int"
	}
	return "pred"
}

// ArgStep is one argument's contribution to a (possibly
// multi-argument) reduction.
type ArgStep struct {
	Level         int
	Arg           goal.Goal
	ArgVar        ident.ID // the fresh variable introduced in the post-reduction form (Int steps only)
	OriginalVarID ident.ID // the abstraction's parameter id this argument replaced
	Kind          ArgKind
}

// Reduction bundles one redex's before/after snapshots with its
// per-argument steps — one entry of the reduction log R.
type Reduction struct {
	Level  int
	Before goal.Goal
	After  goal.Goal
	// HeadParams are the parameter ids of the reduced abstraction
	// chain λx1...λxn, in order.
	HeadParams []ident.ID
	Steps      []ArgStep
}

// Log is the write-once, reverse-consumed sequence of reductions.
type Log []Reduction

// InlineResult is the output of inlining the problem's clauses once
// into a candidate.
type InlineResult struct {
	Goal goal.Goal
	// Introduced maps each inlined clause head to the list of fresh
	// subterm ids created while splicing it in, for constraint
	// extraction's predicate tracking.
	Introduced map[ident.ID][]ident.ID
}

// Inline replaces every free reference to a clause head inside top
// with a freshly α-renamed copy of `λparams. body`, once per
// occurrence, never recursing into the freshly-spliced copy: the
// engine first inlines each fixpoint predicate's body once into the
// candidate. This bounds the result's size and guarantees
// the subsequent reduction terminates (no recursion survives after a
// single inlining pass).
func Inline(p problem.Problem) InlineResult {
	introduced := map[ident.ID][]ident.ID{}
	result := inlineRec(p.Top, p, introduced, true)
	return InlineResult{Goal: result, Introduced: introduced}
}

func inlineRec(g goal.Goal, p problem.Problem, introduced map[ident.ID][]ident.ID, topLevel bool) goal.Goal {
	switch n := g.(type) {
	case *goal.Var:
		clause, ok := p.ClauseByHead(n.ID)
		if !ok || !topLevel {
			return g
		}
		var body goal.Goal = clause.Body
		for i := len(clause.Params) - 1; i >= 0; i-- {
			argSigma, _ := stype.Args(clause.Sigma)
			var paramSigma stype.Type = stype.Prop{}
			if i < len(argSigma) {
				paramSigma = argSigma[i]
			}
			body = goal.NewAbs(clause.Params[i], "", paramSigma, body)
		}
		fresh := goal.AlphaRename(body)
		introduced[n.ID] = append(introduced[n.ID], fresh.Aux().SubtermID)
		return fresh
	case *goal.App:
		return goal.NewApp(inlineRec(n.Func, p, introduced, topLevel), inlineRec(n.Arg, p, introduced, false))
	case *goal.Conj:
		return goal.NewConj(inlineRec(n.Left, p, introduced, topLevel), inlineRec(n.Right, p, introduced, topLevel))
	case *goal.Disj:
		return goal.NewDisj(inlineRec(n.Left, p, introduced, topLevel), inlineRec(n.Right, p, introduced, topLevel))
	case *goal.Univ:
		return goal.NewUniv(n.Param, n.Hint, n.Sigma, inlineRec(n.Body, p, introduced, topLevel))
	case *goal.ITE:
		return goal.NewITE(n.Cond, inlineRec(n.Then, p, introduced, topLevel), inlineRec(n.Else, p, introduced, topLevel))
	case *goal.Abs:
		return goal.NewAbs(n.Param, n.Hint, n.Sigma, inlineRec(n.Body, p, introduced, topLevel))
	default:
		return g
	}
}

// StampTypes computes and stamps the simple type σ at every node,
// given the simple type of each free variable (typically the clause
// signatures). Nodes whose type cannot be determined locally
// (constraints, operations) are left with their fixed sort.
func StampTypes(g goal.Goal, env map[ident.ID]stype.Type) goal.Goal {
	sigma, rewritten := stampRec(g, env)
	_ = sigma
	return rewritten
}

func stampRec(g goal.Goal, env map[ident.ID]stype.Type) (stype.Type, goal.Goal) {
	switch n := g.(type) {
	case *goal.Constr:
		aux := n.A
		aux.Sigma = stype.Prop{}
		return stype.Prop{}, n.WithAux(aux)
	case *goal.OpLeaf:
		aux := n.A
		aux.Sigma = stype.Int{}
		return stype.Int{}, n.WithAux(aux)
	case *goal.Var:
		sigma := env[n.ID]
		if sigma == nil {
			sigma = stype.Prop{}
		}
		aux := n.A
		aux.Sigma = sigma
		return sigma, n.WithAux(aux)
	case *goal.Abs:
		childEnv := extend(env, n.Param, n.Sigma)
		bodySigma, newBody := stampRec(n.Body, childEnv)
		sigma := stype.Arrow{Dom: n.Sigma, Cod: bodySigma}
		out := goal.NewAbs(n.Param, n.Hint, n.Sigma, newBody)
		aux := out.Aux()
		aux.Sigma = sigma
		return sigma, out.WithAux(aux)
	case *goal.App:
		fSigma, newFunc := stampRec(n.Func, env)
		_, newArg := stampRec(n.Arg, env)
		var result stype.Type = stype.Prop{}
		if arrow, ok := fSigma.(stype.Arrow); ok {
			result = arrow.Cod
		}
		out := goal.NewApp(newFunc, newArg)
		aux := out.Aux()
		aux.Sigma = result
		return result, out.WithAux(aux)
	case *goal.Conj:
		_, l := stampRec(n.Left, env)
		_, r := stampRec(n.Right, env)
		out := goal.NewConj(l, r)
		aux := out.Aux()
		aux.Sigma = stype.Prop{}
		return stype.Prop{}, out.WithAux(aux)
	case *goal.Disj:
		_, l := stampRec(n.Left, env)
		_, r := stampRec(n.Right, env)
		out := goal.NewDisj(l, r)
		aux := out.Aux()
		aux.Sigma = stype.Prop{}
		return stype.Prop{}, out.WithAux(aux)
	case *goal.Univ:
		childEnv := extend(env, n.Param, n.Sigma)
		_, body := stampRec(n.Body, childEnv)
		out := goal.NewUniv(n.Param, n.Hint, n.Sigma, body)
		aux := out.Aux()
		aux.Sigma = stype.Prop{}
		return stype.Prop{}, out.WithAux(aux)
	case *goal.ITE:
		_, then := stampRec(n.Then, env)
		_, els := stampRec(n.Else, env)
		out := goal.NewITE(n.Cond, then, els)
		aux := out.Aux()
		aux.Sigma = stype.Prop{}
		return stype.Prop{}, out.WithAux(aux)
	default:
		return stype.Prop{}, g
	}
}

func extend(env map[ident.ID]stype.Type, id ident.ID, t stype.Type) map[ident.ID]stype.Type {
	out := make(map[ident.ID]stype.Type, len(env)+1)
	for k, v := range env {
		out[k] = v
	}
	out[id] = t
	return out
}

// EtaExpand eta-expands every subterm whose computed simple type is a
// non-saturated arrow (not yet prop), so that every place a predicate
// value is consumed, it is consumed via a fully-applied chain of
// App nodes under an explicit chain of Abs binders — the uniform
// shape the derivation builder (internal/derivation) and subject
// expansion (internal/expansion) rely on.
func EtaExpand(g goal.Goal, env map[ident.ID]stype.Type) goal.Goal {
	return etaRec(g, env)
}

func etaRec(g goal.Goal, env map[ident.ID]stype.Type) goal.Goal {
	switch n := g.(type) {
	case *goal.Constr, *goal.OpLeaf:
		return g
	case *goal.Var:
		return etaWrap(g, env[n.ID])
	case *goal.Abs:
		childEnv := extend(env, n.Param, n.Sigma)
		return goal.NewAbs(n.Param, n.Hint, n.Sigma, etaRec(n.Body, childEnv))
	case *goal.App:
		f2 := etaRec(n.Func, env)
		a2 := etaRec(n.Arg, env)
		applied := goal.NewApp(f2, a2)
		return etaWrap(applied, sigmaOfApp(f2, env))
	case *goal.Conj:
		return goal.NewConj(etaRec(n.Left, env), etaRec(n.Right, env))
	case *goal.Disj:
		return goal.NewDisj(etaRec(n.Left, env), etaRec(n.Right, env))
	case *goal.Univ:
		childEnv := extend(env, n.Param, n.Sigma)
		return goal.NewUniv(n.Param, n.Hint, n.Sigma, etaRec(n.Body, childEnv))
	case *goal.ITE:
		return goal.NewITE(n.Cond, etaRec(n.Then, env), etaRec(n.Else, env))
	default:
		return g
	}
}

// sigmaOfApp returns the simple type of (f arg) given f's sigma.
func sigmaOfApp(f goal.Goal, env map[ident.ID]stype.Type) stype.Type {
	sigma := sigmaOf(f, env)
	if arrow, ok := sigma.(stype.Arrow); ok {
		return arrow.Cod
	}
	return stype.Prop{}
}

func sigmaOf(g goal.Goal, env map[ident.ID]stype.Type) stype.Type {
	if aux := g.Aux(); aux.Sigma != nil {
		return aux.Sigma
	}
	switch n := g.(type) {
	case *goal.Var:
		if s, ok := env[n.ID]; ok {
			return s
		}
	case *goal.App:
		return sigmaOfApp(n.Func, env)
	}
	return stype.Prop{}
}

// etaWrap wraps g in λx1...λxn applied back to itself if sigma is a
// not-yet-saturated arrow, producing g's eta-long form.
func etaWrap(g goal.Goal, sigma stype.Type) goal.Goal {
	if sigma == nil {
		return g
	}
	args, _ := stype.Args(sigma)
	if len(args) == 0 {
		return g
	}
	params := make([]ident.ID, len(args))
	for i := range args {
		params[i] = ident.Fresh()
	}
	var body goal.Goal = g
	for _, p := range params {
		body = goal.NewApp(body, goal.NewVar(p, ""))
	}
	for i := len(params) - 1; i >= 0; i-- {
		body = goal.NewAbs(params[i], "", args[i], body)
	}
	return body
}

// Engine drives the iterative leftmost-outermost reduction to a
// normal form.
type Engine struct {
	level int
}

// NewEngine returns a reduction engine with a fresh level counter.
func NewEngine() *Engine { return &Engine{} }

func (e *Engine) nextLevel() int {
	l := e.level
	e.level++
	return l
}

// Run iteratively reduces g to normal form, returning the normal form
// and the log of every reduction performed.
func (e *Engine) Run(g goal.Goal) (goal.Goal, Log) {
	var log Log
	cur := g
	for {
		next, red, ok := e.stepOutermost(cur)
		if !ok {
			return cur, log
		}
		log = append(log, red)
		cur = next
	}
}

// stepOutermost finds the leftmost-outermost redex in g and reduces
// it, returning the rewritten goal, the Reduction record, and whether
// a redex was found at all.
func (e *Engine) stepOutermost(g goal.Goal) (goal.Goal, Reduction, bool) {
	switch n := g.(type) {
	case *goal.App:
		if red, ok := e.tryReduceSpine(g); ok {
			return red.After, red, true
		}
		if next, red, ok := e.stepOutermost(n.Func); ok {
			return goal.NewApp(next, n.Arg), red, true
		}
		if next, red, ok := e.stepOutermost(n.Arg); ok {
			return goal.NewApp(n.Func, next), red, true
		}
		return g, Reduction{}, false
	case *goal.Conj:
		if next, red, ok := e.stepOutermost(n.Left); ok {
			return goal.NewConj(next, n.Right), red, true
		}
		if next, red, ok := e.stepOutermost(n.Right); ok {
			return goal.NewConj(n.Left, next), red, true
		}
		return g, Reduction{}, false
	case *goal.Disj:
		if next, red, ok := e.stepOutermost(n.Left); ok {
			return goal.NewDisj(next, n.Right), red, true
		}
		if next, red, ok := e.stepOutermost(n.Right); ok {
			return goal.NewDisj(n.Left, next), red, true
		}
		return g, Reduction{}, false
	case *goal.Univ:
		if next, red, ok := e.stepOutermost(n.Body); ok {
			return goal.NewUniv(n.Param, n.Hint, n.Sigma, next), red, true
		}
		return g, Reduction{}, false
	case *goal.Abs:
		if next, red, ok := e.stepOutermost(n.Body); ok {
			return goal.NewAbs(n.Param, n.Hint, n.Sigma, next), red, true
		}
		return g, Reduction{}, false
	case *goal.ITE:
		if next, red, ok := e.stepOutermost(n.Then); ok {
			return goal.NewITE(n.Cond, next, n.Else), red, true
		}
		if next, red, ok := e.stepOutermost(n.Else); ok {
			return goal.NewITE(n.Cond, n.Then, next), red, true
		}
		return g, Reduction{}, false
	default:
		return g, Reduction{}, false
	}
}

// tryReduceSpine attempts to reduce an entire multi-argument
// application chain against a matching abstraction chain as a single
// bookkeeping reduction.
func (e *Engine) tryReduceSpine(g goal.Goal) (Reduction, bool) {
	head, args := goal.Spine(g)
	abs, ok := head.(*goal.Abs)
	if !ok || len(args) == 0 {
		return Reduction{}, false
	}

	level := e.nextLevel()
	before := g

	var params []ident.ID
	var steps []ArgStep
	body := goal.Goal(abs)
	consumed := 0
	for consumed < len(args) {
		curAbs, ok := body.(*goal.Abs)
		if !ok {
			break
		}
		arg := args[consumed]
		params = append(params, curAbs.Param)
		if _, isInt := curAbs.Sigma.(stype.Int); isInt {
			fresh := ident.Fresh()
			opArg := goalToOperation(arg)
			guard := constraint.Atom{Rel: constraint.Eq, Left: operation.Var{ID: fresh}, Right: opArg}
			newBody := goal.Subst(curAbs.Body, curAbs.Param, goal.NewVar(fresh, curAbs.Hint))
			wrapped := goal.NewUniv(fresh, curAbs.Hint, stype.Int{}, wrapImplication(guard, newBody))
			steps = append(steps, ArgStep{Level: level, Arg: arg, ArgVar: fresh, OriginalVarID: curAbs.Param, Kind: Int})
			body = wrapped
		} else {
			newBody := goal.Subst(curAbs.Body, curAbs.Param, arg)
			steps = append(steps, ArgStep{Level: level, Arg: arg, OriginalVarID: curAbs.Param, Kind: Pred})
			body = newBody
		}
		consumed++
	}
	// Re-attach any remaining, unconsumed arguments (a partially
	// saturated abstraction chain against an over-long spine).
	after := body
	for i := consumed; i < len(args); i++ {
		after = goal.NewApp(after, args[i])
	}

	return Reduction{Level: level, Before: before, After: after, HeadParams: params, Steps: steps}, true
}

// wrapImplication builds `guard => body` using the goal-level
// encoding: the goal grammar has no native implication connective and
// keeps constraints and predicate goals as distinct sorts, so the
// implication is realized as a Disj between a negated-guard Constr and
// body — matching the "(x = o) ⇒ ψ" shape.
func wrapImplication(guard constraint.Constraint, body goal.Goal) goal.Goal {
	neg, ok := constraint.Negate(guard)
	if !ok {
		neg = constraint.False{}
	}
	return goal.NewDisj(goal.NewConstr(neg), body)
}

// goalToOperation extracts the integer expression carried by an
// integer-sorted argument goal — always an OpLeaf or Var by the time
// the reduction engine reaches it, since the typing/eta-expansion
// passes already establish that an Int-sigma argument can only be one
// of those two leaf shapes.
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
