package operation

import (
	"testing"

	"github.com/hopv/gohopdr/internal/ident"
)

func TestSubst(t *testing.T) {
	x := ident.Fresh()
	o := Bin{Op: Add, Left: Var{ID: x}, Right: Const{Value: 1}}
	replaced := o.Subst(x, Const{Value: 41})
	if got := Simplify(replaced); got.String() != "42" {
		t.Fatalf("expected 42, got %s", got)
	}
}

func TestFreeVars(t *testing.T) {
	x := ident.Fresh()
	y := ident.Fresh()
	o := Bin{Op: Mul, Left: Var{ID: x}, Right: Var{ID: y}}
	fv := o.FreeVars()
	if !fv[x] || !fv[y] {
		t.Fatalf("expected both vars free, got %v", fv)
	}
}

func TestSimplifyIdentities(t *testing.T) {
	x := Var{ID: ident.Fresh(), Hint: "x"}
	cases := []struct {
		in   Operation
		want string
	}{
		{Bin{Op: Add, Left: x, Right: Const{Value: 0}}, "x"},
		{Bin{Op: Mul, Left: x, Right: Const{Value: 1}}, "x"},
		{Bin{Op: Mul, Left: x, Right: Const{Value: 0}}, "0"},
		{Bin{Op: Add, Left: Const{Value: 2}, Right: Const{Value: 3}}, "5"},
	}
	for _, c := range cases {
		if got := Simplify(c.in).String(); got != c.want {
			t.Errorf("Simplify(%s) = %s, want %s", c.in, got, c.want)
		}
	}
}

func TestNegSubstAndFreeVars(t *testing.T) {
	x := ident.Fresh()
	n := Neg{Operand: Var{ID: x}}
	if got := Simplify(n.Subst(x, Const{Value: 5})).String(); got != "-5" {
		t.Fatalf("expected -5, got %s", got)
	}
	if !n.FreeVars()[x] {
		t.Fatal("expected x free in Neg")
	}
}
