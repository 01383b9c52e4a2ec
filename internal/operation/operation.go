// Package operation implements the linear integer expression tree o:
// constants, variables, and binary arithmetic, plus an
// optional ite node for non-linear fragments. The shape follows a
// Core-IR style of expression node (internal/core.BinOp/UnOp): one
// small struct per case, each implementing a shared closed interface
// rather than a single tagged struct.
package operation

import (
	"fmt"

	"github.com/hopv/gohopdr/internal/ident"
)

// Op is the binary arithmetic operator set.
type Op int

const (
	Add Op = iota
	Sub
	Mul
	Div
	Mod
)

func (o Op) String() string {
	switch o {
	case Add:
		return "+"
	case Sub:
		return "-"
	case Mul:
		return "*"
	case Div:
		return "/"
	case Mod:
		return "mod"
	default:
		return "?"
	}
}

// Operation is the integer expression sort o.
type Operation interface {
	String() string
	// Subst returns o with every free occurrence of v replaced by
	// replacement. Capture cannot occur: Operation has no binders.
	Subst(v ident.ID, replacement Operation) Operation
	// FreeVars returns the set of variable ids occurring in o.
	FreeVars() map[ident.ID]bool
	opNode()
}

// Const is an integer literal.
type Const struct {
	Value int64
}

func (c Const) opNode() {}
func (c Const) String() string { return fmt.Sprintf("%d", c.Value) }
func (c Const) Subst(ident.ID, Operation) Operation { return c }
func (c Const) FreeVars() map[ident.ID]bool          { return map[ident.ID]bool{} }

// Var is a reference to an integer-sorted variable.
type Var struct {
	ID   ident.ID
	Hint string
}

func (v Var) opNode() {}

func (v Var) String() string {
	if v.Hint != "" {
		return v.Hint
	}
	return fmt.Sprintf("x%d", v.ID)
}

func (v Var) Subst(target ident.ID, replacement Operation) Operation {
	if v.ID == target {
		return replacement
	}
	return v
}

func (v Var) FreeVars() map[ident.ID]bool {
	return map[ident.ID]bool{v.ID: true}
}

// Bin is a binary arithmetic node o₁ op o₂.
type Bin struct {
	Op    Op
	Left  Operation
	Right Operation
}

func (b Bin) opNode() {}

func (b Bin) String() string {
	return fmt.Sprintf("(%s %s %s)", b.Left, b.Op, b.Right)
}

func (b Bin) Subst(v ident.ID, replacement Operation) Operation {
	return Bin{Op: b.Op, Left: b.Left.Subst(v, replacement), Right: b.Right.Subst(v, replacement)}
}

func (b Bin) FreeVars() map[ident.ID]bool {
	out := b.Left.FreeVars()
	for id := range b.Right.FreeVars() {
		out[id] = true
	}
	return out
}

// Neg is unary negation, represented as 0 - o at the Bin level but
// exposed as its own node for readable pretty-printing.
type Neg struct {
	Operand Operation
}

func (n Neg) opNode() {}
func (n Neg) String() string { return fmt.Sprintf("-%s", n.Operand) }
func (n Neg) Subst(v ident.ID, replacement Operation) Operation {
	return Neg{Operand: n.Operand.Subst(v, replacement)}
}
func (n Neg) FreeVars() map[ident.ID]bool { return n.Operand.FreeVars() }

// Cond is the optional `if c then o else o` node. It depends on a
// predicate-carrying condition supplied by the caller (typically a
// constraint.Constraint rendered to a string, or — in the fragment
// that actually uses Cond — a constraint.Constraint value); it is
// modeled here as an opaque string guard because operation must not
// import constraint (constraint already depends on operation for its
// atom arguments, and a two-way import would cycle). Callers that
// need a typed guard keep it in the enclosing goal.ITE instead and
// only ever construct Cond for display/debug purposes.
type Cond struct {
	GuardDisplay string
	Then         Operation
	Else         Operation
}

func (c Cond) opNode() {}

func (c Cond) String() string {
	return fmt.Sprintf("(if %s then %s else %s)", c.GuardDisplay, c.Then, c.Else)
}

func (c Cond) Subst(v ident.ID, replacement Operation) Operation {
	return Cond{GuardDisplay: c.GuardDisplay, Then: c.Then.Subst(v, replacement), Else: c.Else.Subst(v, replacement)}
}

func (c Cond) FreeVars() map[ident.ID]bool {
	out := c.Then.FreeVars()
	for id := range c.Else.FreeVars() {
		out[id] = true
	}
	return out
}

// Simplify performs constant folding and trivial arithmetic
// simplification (x+0, x*1, 0*x, ...), the numeric analogue of the
// constraint package's boolean Simplify.
func Simplify(o Operation) Operation {
	switch n := o.(type) {
	case Bin:
		l := Simplify(n.Left)
		r := Simplify(n.Right)
		lc, lok := l.(Const)
		rc, rok := r.(Const)
		if lok && rok {
			switch n.Op {
			case Add:
				return Const{Value: lc.Value + rc.Value}
			case Sub:
				return Const{Value: lc.Value - rc.Value}
			case Mul:
				return Const{Value: lc.Value * rc.Value}
			case Div:
				if rc.Value != 0 {
					return Const{Value: lc.Value / rc.Value}
				}
			case Mod:
				if rc.Value != 0 {
					return Const{Value: lc.Value % rc.Value}
				}
			}
		}
		if n.Op == Add && lok && lc.Value == 0 {
			return r
		}
		if n.Op == Add && rok && rc.Value == 0 {
			return l
		}
		if n.Op == Mul && lok && lc.Value == 1 {
			return r
		}
		if n.Op == Mul && rok && rc.Value == 1 {
			return l
		}
		if n.Op == Mul && ((lok && lc.Value == 0) || (rok && rc.Value == 0)) {
			return Const{Value: 0}
		}
		return Bin{Op: n.Op, Left: l, Right: r}
	case Neg:
		inner := Simplify(n.Operand)
		if c, ok := inner.(Const); ok {
			return Const{Value: -c.Value}
		}
		return Neg{Operand: inner}
	case Cond:
		return Cond{GuardDisplay: n.GuardDisplay, Then: Simplify(n.Then), Else: Simplify(n.Else)}
	default:
		return o
	}
}
