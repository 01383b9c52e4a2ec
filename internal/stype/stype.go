// Package stype implements the simple type sort σ used to guide
// eta-expansion and to distinguish integer arguments from predicate
// arguments. It deliberately mirrors a closed-sum-type-over-an-interface
// shape (internal/types.Type) rather than a single enum, since σ's
// recursive arrow case needs child types.
package stype

import "fmt"

// Type is the simple-type sort σ ::= prop | int | σ → σ.
type Type interface {
	String() string
	Equals(Type) bool
	// IsProp reports whether this type fully saturates to prop, i.e.
	// it is exactly Prop (used by the reduction engine's eta-expansion
	// pass to know when an application chain is done expanding).
	IsProp() bool
}

// Prop is the type of formulas / goals.
type Prop struct{}

func (Prop) String() string   { return "prop" }
func (Prop) IsProp() bool     { return true }
func (Prop) Equals(o Type) bool {
	_, ok := o.(Prop)
	return ok
}

// Int is the type of integer-valued expressions.
type Int struct{}

func (Int) String() string   { return "int" }
func (Int) IsProp() bool     { return false }
func (Int) Equals(o Type) bool {
	_, ok := o.(Int)
	return ok
}

// Arrow is σ₁ → σ₂.
type Arrow struct {
	Dom Type
	Cod Type
}

func (a Arrow) String() string {
	return fmt.Sprintf("(%s -> %s)", a.Dom.String(), a.Cod.String())
}

func (a Arrow) IsProp() bool { return false }

func (a Arrow) Equals(o Type) bool {
	other, ok := o.(Arrow)
	if !ok {
		return false
	}
	return a.Dom.Equals(other.Dom) && a.Cod.Equals(other.Cod)
}

// Args decomposes an arrow chain σ₁ → σ₂ → ... → prop into its
// argument types and final result type, the way the reduction engine
// needs to know how many arguments a predicate head still expects.
func Args(t Type) (args []Type, result Type) {
	for {
		arr, ok := t.(Arrow)
		if !ok {
			return args, t
		}
		args = append(args, arr.Dom)
		t = arr.Cod
	}
}

// Build reconstructs an arrow chain from argument types and a result.
func Build(args []Type, result Type) Type {
	t := result
	for i := len(args) - 1; i >= 0; i-- {
		t = Arrow{Dom: args[i], Cod: t}
	}
	return t
}

// Arity returns the number of arguments σ still expects before it
// becomes prop.
func Arity(t Type) int {
	args, _ := Args(t)
	return len(args)
}
