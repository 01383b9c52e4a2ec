// Package goal implements the candidate AST g: the term
// language the reduction engine beta-reduces and the derivation
// builder types. Every node embeds an Aux record carrying the
// bookkeeping it needs (subterm id, renaming history,
// stamped simple type, captured free integer variables, and an
// optional shared-type assignment vector). The shape mirrors a
// Core-IR style (internal/core/core.go): a CoreNode base struct
// embedded into every case, plus a small closed interface.
package goal

import (
	"fmt"

	"github.com/hopv/gohopdr/internal/constraint"
	"github.com/hopv/gohopdr/internal/ident"
	"github.com/hopv/gohopdr/internal/operation"
	"github.com/hopv/gohopdr/internal/rtype"
	"github.com/hopv/gohopdr/internal/stype"
)

// Aux is the auxiliary record every Goal node carries: a fresh
// subterm id, a stack of prior ids from renaming, the stamped simple
// type σ, the captured set of free integer variables at that
// position, and an optional vector of assigned refinement types.
type Aux struct {
	// SubtermID is this node's current stable identity, used by the
	// reduction log and subject expansion to find it again.
	SubtermID ident.ID
	// PriorIDs records the renaming history: every SubtermID this
	// node has held before the current one, oldest first.
	PriorIDs []ident.ID
	// Sigma is the stamped simple type, nil until the reduction
	// engine's typing pass has run.
	Sigma stype.Type
	// FreeIntVars is the captured stack of in-scope integer
	// variables at this position, stamped by the reduction engine.
	FreeIntVars []ident.ID
	// SharedTypes is an optional vector of refinement types for this
	// occurrence. It is carried along with the rest of Aux; no
	// component populates or reads it.
	SharedTypes []rtype.Type
}

// Retag replaces SubtermID with a fresh one, pushing the old id onto
// PriorIDs. Used whenever a node is rewritten in place (subject
// expansion splices in replacement subtrees this way).
func (a Aux) Retag() Aux {
	fresh := ident.Fresh()
	return Aux{
		SubtermID:   fresh,
		PriorIDs:    append(append([]ident.ID{}, a.PriorIDs...), a.SubtermID),
		Sigma:       a.Sigma,
		FreeIntVars: a.FreeIntVars,
		SharedTypes: a.SharedTypes,
	}
}

func newAux() Aux {
	return Aux{SubtermID: ident.Fresh()}
}

// Goal is the base interface for candidate-AST nodes.
type Goal interface {
	String() string
	Aux() Aux
	WithAux(Aux) Goal
	goalNode()
}

// Constr wraps a pure first-order constraint as a goal leaf.
type Constr struct {
	A Aux
	C constraint.Constraint
}

func NewConstr(c constraint.Constraint) *Constr { return &Constr{A: newAux(), C: c} }

func (g *Constr) goalNode()         {}
func (g *Constr) Aux() Aux          { return g.A }
func (g *Constr) WithAux(a Aux) Goal { n := *g; n.A = a; return &n }
func (g *Constr) String() string    { return g.C.String() }

// OpLeaf wraps a pure integer operation as a goal leaf (used only in
// positions where the surrounding type context expects int — e.g. as
// an App argument).
type OpLeaf struct {
	A Aux
	O operation.Operation
}

func NewOpLeaf(o operation.Operation) *OpLeaf { return &OpLeaf{A: newAux(), O: o} }

func (g *OpLeaf) goalNode()         {}
func (g *OpLeaf) Aux() Aux          { return g.A }
func (g *OpLeaf) WithAux(a Aux) Goal { n := *g; n.A = a; return &n }
func (g *OpLeaf) String() string    { return g.O.String() }

// Var is a reference to a bound predicate or integer variable.
type Var struct {
	A    Aux
	ID   ident.ID
	Hint string
}

func NewVar(id ident.ID, hint string) *Var { return &Var{A: newAux(), ID: id, Hint: hint} }

func (g *Var) goalNode()         {}
func (g *Var) Aux() Aux          { return g.A }
func (g *Var) WithAux(a Aux) Goal { n := *g; n.A = a; return &n }

func (g *Var) String() string {
	if g.Hint != "" {
		return g.Hint
	}
	return fmt.Sprintf("x%d", g.ID)
}

// Abs is λx:σ. g.
type Abs struct {
	A     Aux
	Param ident.ID
	Hint  string
	Sigma stype.Type
	Body  Goal
}

func NewAbs(param ident.ID, hint string, sigma stype.Type, body Goal) *Abs {
	return &Abs{A: newAux(), Param: param, Hint: hint, Sigma: sigma, Body: body}
}

func (g *Abs) goalNode()         {}
func (g *Abs) Aux() Aux          { return g.A }
func (g *Abs) WithAux(a Aux) Goal { n := *g; n.A = a; return &n }

func (g *Abs) String() string {
	return fmt.Sprintf("(\\%s:%s. %s)", varName(g.Param, g.Hint), g.Sigma, g.Body)
}

// App is function application g g.
type App struct {
	A    Aux
	Func Goal
	Arg  Goal
}

func NewApp(f, arg Goal) *App { return &App{A: newAux(), Func: f, Arg: arg} }

func (g *App) goalNode()         {}
func (g *App) Aux() Aux          { return g.A }
func (g *App) WithAux(a Aux) Goal { n := *g; n.A = a; return &n }
func (g *App) String() string    { return fmt.Sprintf("(%s %s)", g.Func, g.Arg) }

// Conj is goal conjunction g ∧ g.
type Conj struct {
	A           Aux
	Left, Right Goal
}

func NewConj(l, r Goal) *Conj { return &Conj{A: newAux(), Left: l, Right: r} }

func (g *Conj) goalNode()         {}
func (g *Conj) Aux() Aux          { return g.A }
func (g *Conj) WithAux(a Aux) Goal { n := *g; n.A = a; return &n }
func (g *Conj) String() string    { return fmt.Sprintf("(%s /\\ %s)", g.Left, g.Right) }

// Disj is goal disjunction g ∨ g.
type Disj struct {
	A           Aux
	Left, Right Goal
}

func NewDisj(l, r Goal) *Disj { return &Disj{A: newAux(), Left: l, Right: r} }

func (g *Disj) goalNode()         {}
func (g *Disj) Aux() Aux          { return g.A }
func (g *Disj) WithAux(a Aux) Goal { n := *g; n.A = a; return &n }
func (g *Disj) String() string    { return fmt.Sprintf("(%s \\/ %s)", g.Left, g.Right) }

// Univ is ∀x:σ. g.
type Univ struct {
	A     Aux
	Param ident.ID
	Hint  string
	Sigma stype.Type
	Body  Goal
}

func NewUniv(param ident.ID, hint string, sigma stype.Type, body Goal) *Univ {
	return &Univ{A: newAux(), Param: param, Hint: hint, Sigma: sigma, Body: body}
}

func (g *Univ) goalNode()         {}
func (g *Univ) Aux() Aux          { return g.A }
func (g *Univ) WithAux(a Aux) Goal { n := *g; n.A = a; return &n }

func (g *Univ) String() string {
	return fmt.Sprintf("(forall %s:%s. %s)", varName(g.Param, g.Hint), g.Sigma, g.Body)
}

// ITE is ite(c, g, g).
type ITE struct {
	A          Aux
	Cond       constraint.Constraint
	Then, Else Goal
}

func NewITE(c constraint.Constraint, then, els Goal) *ITE {
	return &ITE{A: newAux(), Cond: c, Then: then, Else: els}
}

func (g *ITE) goalNode()         {}
func (g *ITE) Aux() Aux          { return g.A }
func (g *ITE) WithAux(a Aux) Goal { n := *g; n.A = a; return &n }

func (g *ITE) String() string {
	return fmt.Sprintf("(ite %s then %s else %s)", g.Cond, g.Then, g.Else)
}

func varName(id ident.ID, hint string) string {
	if hint != "" {
		return hint
	}
	return fmt.Sprintf("x%d", id)
}

// FindByID searches g's subtree for the (unique, in a non-sharing
// interpretation) node whose current SubtermID equals target,
// returning nil if absent. The derivation builder and subject
// expansion keep a dedicated id->node index instead (see
// internal/derivation) because a linear search like this one is too
// slow to use on the hot path — FindByID exists for tests and for the
// one-shot lookups the reduction engine's audit trail needs.
func FindByID(g Goal, target ident.ID) Goal {
	if g.Aux().SubtermID == target {
		return g
	}
	switch n := g.(type) {
	case *Abs:
		return FindByID(n.Body, target)
	case *App:
		if r := FindByID(n.Func, target); r != nil {
			return r
		}
		return FindByID(n.Arg, target)
	case *Conj:
		if r := FindByID(n.Left, target); r != nil {
			return r
		}
		return FindByID(n.Right, target)
	case *Disj:
		if r := FindByID(n.Left, target); r != nil {
			return r
		}
		return FindByID(n.Right, target)
	case *Univ:
		return FindByID(n.Body, target)
	case *ITE:
		if r := FindByID(n.Then, target); r != nil {
			return r
		}
		return FindByID(n.Else, target)
	default:
		return nil
	}
}

// Children returns g's immediate subgoals, in evaluation order.
func Children(g Goal) []Goal {
	switch n := g.(type) {
	case *Abs:
		return []Goal{n.Body}
	case *App:
		return []Goal{n.Func, n.Arg}
	case *Conj:
		return []Goal{n.Left, n.Right}
	case *Disj:
		return []Goal{n.Left, n.Right}
	case *Univ:
		return []Goal{n.Body}
	case *ITE:
		return []Goal{n.Then, n.Else}
	default:
		return nil
	}
}

// Spine decomposes an application chain f a1 a2 ... an into
// its head and argument list, outermost-last (a1 is the first
// argument applied to f). Used throughout reduction and derivation
// to process multi-argument applications as a unit.
func Spine(g Goal) (head Goal, args []Goal) {
	for {
		app, ok := g.(*App)
		if !ok {
			reverse(args)
			return g, args
		}
		args = append(args, app.Arg)
		g = app.Func
	}
}

func reverse(gs []Goal) {
	for i, j := 0, len(gs)-1; i < j; i, j = i+1, j-1 {
		gs[i], gs[j] = gs[j], gs[i]
	}
}

// Subst performs syntactic substitution of replacement for every free
// occurrence of target inside g. Every occurrence gets its own
// AlphaRename'd copy of replacement, so a variable used twice never
// ends up sharing SubtermIDs across the two insertion sites — the
// per-position uniqueness subject expansion's node index relies on.
// Binders never need renaming here (unlike constraint.Subst) because
// every bound Goal variable already carries a globally unique
// ident.ID; shadowing by construction cannot capture a different
// binder's variable.
func Subst(g Goal, target ident.ID, replacement Goal) Goal {
	switch n := g.(type) {
	case *Constr, *OpLeaf:
		return g
	case *Var:
		if n.ID == target {
			return AlphaRename(replacement)
		}
		return g
	case *Abs:
		if n.Param == target {
			return g
		}
		return &Abs{A: n.A.Retag(), Param: n.Param, Hint: n.Hint, Sigma: n.Sigma, Body: Subst(n.Body, target, replacement)}
	case *App:
		return &App{A: n.A.Retag(), Func: Subst(n.Func, target, replacement), Arg: Subst(n.Arg, target, replacement)}
	case *Conj:
		return &Conj{A: n.A.Retag(), Left: Subst(n.Left, target, replacement), Right: Subst(n.Right, target, replacement)}
	case *Disj:
		return &Disj{A: n.A.Retag(), Left: Subst(n.Left, target, replacement), Right: Subst(n.Right, target, replacement)}
	case *Univ:
		if n.Param == target {
			return g
		}
		return &Univ{A: n.A.Retag(), Param: n.Param, Hint: n.Hint, Sigma: n.Sigma, Body: Subst(n.Body, target, replacement)}
	case *ITE:
		return &ITE{A: n.A.Retag(), Cond: n.Cond, Then: Subst(n.Then, target, replacement), Else: Subst(n.Else, target, replacement)}
	default:
		return g
	}
}

// AlphaRename deep-copies g, assigning a fresh SubtermID to every node
// and a fresh bound-variable id to every Abs/Univ binder (refreshing
// all occurrences in the binder's body). Used whenever a subtree is
// about to be duplicated — inlining a clause body at more than one
// call site, or Subst plugging a replacement into more than one
// occurrence — so that no two positions in the resulting tree ever
// share an identity.
func AlphaRename(g Goal) Goal {
	switch n := g.(type) {
	case *Constr:
		return &Constr{A: n.A.Retag(), C: n.C}
	case *OpLeaf:
		return &OpLeaf{A: n.A.Retag(), O: n.O}
	case *Var:
		return &Var{A: n.A.Retag(), ID: n.ID, Hint: n.Hint}
	case *Abs:
		fresh := ident.Fresh()
		renamedBody := Subst(n.Body, n.Param, &Var{A: newAux(), ID: fresh, Hint: n.Hint})
		return &Abs{A: n.A.Retag(), Param: fresh, Hint: n.Hint, Sigma: n.Sigma, Body: AlphaRename(renamedBody)}
	case *App:
		return &App{A: n.A.Retag(), Func: AlphaRename(n.Func), Arg: AlphaRename(n.Arg)}
	case *Conj:
		return &Conj{A: n.A.Retag(), Left: AlphaRename(n.Left), Right: AlphaRename(n.Right)}
	case *Disj:
		return &Disj{A: n.A.Retag(), Left: AlphaRename(n.Left), Right: AlphaRename(n.Right)}
	case *Univ:
		fresh := ident.Fresh()
		renamedBody := Subst(n.Body, n.Param, &Var{A: newAux(), ID: fresh, Hint: n.Hint})
		return &Univ{A: n.A.Retag(), Param: fresh, Hint: n.Hint, Sigma: n.Sigma, Body: AlphaRename(renamedBody)}
	case *ITE:
		return &ITE{A: n.A.Retag(), Cond: n.Cond, Then: AlphaRename(n.Then), Else: AlphaRename(n.Else)}
	default:
		return g
	}
}

// Equal reports whether two goals have the same shape and the same
// bound/free variable ids at every position (it ignores SubtermID,
// PriorIDs, Sigma and FreeIntVars bookkeeping). Two results of
// independently α-renaming the same source term are only Equal if
// the renamings happened to pick identical fresh ids; a round-trip
// α-renaming check instead composes the renaming maps
// and asserts on those, using Equal just to compare leaf shapes.
func Equal(a, b Goal) bool {
	switch x := a.(type) {
	case *Constr:
		y, ok := b.(*Constr)
		return ok && x.C.String() == y.C.String()
	case *OpLeaf:
		y, ok := b.(*OpLeaf)
		return ok && x.O.String() == y.O.String()
	case *Var:
		y, ok := b.(*Var)
		return ok && x.ID == y.ID
	case *Abs:
		y, ok := b.(*Abs)
		return ok && x.Param == y.Param && Equal(x.Body, y.Body)
	case *App:
		y, ok := b.(*App)
		return ok && Equal(x.Func, y.Func) && Equal(x.Arg, y.Arg)
	case *Conj:
		y, ok := b.(*Conj)
		return ok && Equal(x.Left, y.Left) && Equal(x.Right, y.Right)
	case *Disj:
		y, ok := b.(*Disj)
		return ok && Equal(x.Left, y.Left) && Equal(x.Right, y.Right)
	case *Univ:
		y, ok := b.(*Univ)
		return ok && x.Param == y.Param && Equal(x.Body, y.Body)
	case *ITE:
		y, ok := b.(*ITE)
		return ok && x.Cond.String() == y.Cond.String() && Equal(x.Then, y.Then) && Equal(x.Else, y.Else)
	default:
		return false
	}
}
