package main

// A minimal, self-contained loader for a tiny S-expression surface
// syntax: parsing the real νHFLZ surface syntax is out of scope, but
// the CLI and its end-to-end tests need *some* concrete front end, so
// this package reads a small Lisp-like problem file shape directly
// into a problem.Problem:
//
//	(clause F (x y) (or (G x) (>= x 0)))
//	(clause G (x) false)
//	(top (F 0 1))
//
// Every clause parameter is integer-sorted; predicate-sorted
// parameters are out of this loader's scope (the core engine handles
// them once a Problem names one in its Sigma — this front end simply
// never produces one).

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/hopv/gohopdr/internal/constraint"
	"github.com/hopv/gohopdr/internal/goal"
	"github.com/hopv/gohopdr/internal/ident"
	"github.com/hopv/gohopdr/internal/operation"
	"github.com/hopv/gohopdr/internal/problem"
	"github.com/hopv/gohopdr/internal/stype"
)

// bomUTF8 is the byte-order mark some editors still prepend to UTF-8
// problem files.
const bomUTF8 = "﻿"

// sexpr is one parsed S-expression: either an atom (Sym) or a list.
type sexpr struct {
	Sym  string
	List []sexpr
}

func (s sexpr) isAtom() bool { return s.List == nil }

// tokenize splits src into parens and bare symbols. src is expected to
// already be BOM-stripped and NFC-normalized by Load.
func tokenize(src string) []string {
	src = strings.ReplaceAll(src, "(", " ( ")
	src = strings.ReplaceAll(src, ")", " ) ")
	return strings.Fields(src)
}

// normalizeSource strips a leading UTF-8 BOM, if present, and folds the
// source to Unicode Normalized Form C so that two problem files differing
// only in how an identifier's accents are composed parse to the same
// symbol.
func normalizeSource(src string) string {
	src = strings.TrimPrefix(src, bomUTF8)
	return norm.NFC.String(src)
}

// parseAll reads every top-level form in src.
func parseAll(src string) ([]sexpr, error) {
	toks := tokenize(src)
	var forms []sexpr
	for len(toks) > 0 {
		var form sexpr
		var err error
		form, toks, err = parseOne(toks)
		if err != nil {
			return nil, err
		}
		forms = append(forms, form)
	}
	return forms, nil
}

func parseOne(toks []string) (sexpr, []string, error) {
	if len(toks) == 0 {
		return sexpr{}, nil, fmt.Errorf("loader: unexpected end of input")
	}
	head, rest := toks[0], toks[1:]
	if head == "(" {
		var list []sexpr
		for {
			if len(rest) == 0 {
				return sexpr{}, nil, fmt.Errorf("loader: unterminated list")
			}
			if rest[0] == ")" {
				return sexpr{List: list}, rest[1:], nil
			}
			var item sexpr
			var err error
			item, rest, err = parseOne(rest)
			if err != nil {
				return sexpr{}, nil, err
			}
			list = append(list, item)
		}
	}
	if head == ")" {
		return sexpr{}, nil, fmt.Errorf("loader: unexpected ')'")
	}
	return sexpr{Sym: head}, rest, nil
}

// loadContext tracks the parameter-name scope while a clause body is
// parsed, so a bare symbol resolves to the right ident.ID, and the
// clause-head name table so a predicate application resolves to the
// right clause.
type loadContext struct {
	params map[string]ident.ID
	heads  map[string]ident.ID
}

// Load parses src into a problem.Problem. Every "clause" form declares
// one predicate equation; exactly one "top" form names the closed goal
// checked against it.
func Load(src string) (problem.Problem, error) {
	forms, err := parseAll(normalizeSource(src))
	if err != nil {
		return problem.Problem{}, err
	}

	heads := map[string]ident.ID{}
	for _, f := range forms {
		if f.isAtom() || len(f.List) == 0 || f.List[0].Sym != "clause" {
			continue
		}
		if len(f.List) < 2 || !f.List[1].isAtom() {
			return problem.Problem{}, fmt.Errorf("loader: malformed clause form")
		}
		heads[f.List[1].Sym] = ident.Fresh()
	}

	var p problem.Problem
	var top goal.Goal
	for _, f := range forms {
		if f.isAtom() || len(f.List) == 0 {
			continue
		}
		switch f.List[0].Sym {
		case "clause":
			c, err := parseClause(f.List, heads)
			if err != nil {
				return problem.Problem{}, err
			}
			p.Clauses = append(p.Clauses, c)
		case "top":
			if len(f.List) != 2 {
				return problem.Problem{}, fmt.Errorf("loader: (top GOAL) takes exactly one goal")
			}
			if top != nil {
				return problem.Problem{}, fmt.Errorf("loader: more than one (top GOAL) form")
			}
			top, err = parseGoal(f.List[1], &loadContext{params: map[string]ident.ID{}, heads: heads})
			if err != nil {
				return problem.Problem{}, err
			}
		default:
			return problem.Problem{}, fmt.Errorf("loader: unknown form %q", f.List[0].Sym)
		}
	}
	if top == nil {
		return problem.Problem{}, fmt.Errorf("loader: missing (top GOAL) form")
	}
	p.Top = top
	return p, nil
}

func parseClause(list []sexpr, heads map[string]ident.ID) (problem.Clause, error) {
	if len(list) != 4 || !list[1].isAtom() || list[2].isAtom() {
		return problem.Clause{}, fmt.Errorf("loader: expected (clause NAME (PARAMS...) BODY)")
	}
	name := list[1].Sym
	var params []ident.ID
	ctx := &loadContext{params: map[string]ident.ID{}, heads: heads}
	for _, p := range list[2].List {
		if !p.isAtom() {
			return problem.Clause{}, fmt.Errorf("loader: clause parameter must be a symbol")
		}
		id := ident.Fresh()
		params = append(params, id)
		ctx.params[p.Sym] = id
	}
	body, err := parseGoal(list[3], ctx)
	if err != nil {
		return problem.Clause{}, err
	}
	args := make([]stype.Type, len(params))
	for i := range args {
		args[i] = stype.Int{}
	}
	return problem.Clause{
		Head:     heads[name],
		HeadHint: name,
		Sigma:    stype.Build(args, stype.Prop{}),
		Params:   params,
		Body:     body,
	}, nil
}

func parseGoal(s sexpr, ctx *loadContext) (goal.Goal, error) {
	if s.isAtom() {
		switch s.Sym {
		case "true":
			return goal.NewConstr(constraint.True{}), nil
		case "false":
			return goal.NewConstr(constraint.False{}), nil
		}
		if id, ok := ctx.heads[s.Sym]; ok {
			return goal.NewVar(id, s.Sym), nil
		}
		return nil, fmt.Errorf("loader: unbound predicate %q", s.Sym)
	}
	if len(s.List) == 0 {
		return nil, fmt.Errorf("loader: empty goal form")
	}
	head := s.List[0]
	if !head.isAtom() {
		return nil, fmt.Errorf("loader: goal head must be a symbol")
	}
	switch head.Sym {
	case "and":
		if len(s.List) != 3 {
			return nil, fmt.Errorf("loader: (and A B) takes exactly two goals")
		}
		l, err := parseGoal(s.List[1], ctx)
		if err != nil {
			return nil, err
		}
		r, err := parseGoal(s.List[2], ctx)
		if err != nil {
			return nil, err
		}
		return goal.NewConj(l, r), nil
	case "or":
		if len(s.List) != 3 {
			return nil, fmt.Errorf("loader: (or A B) takes exactly two goals")
		}
		l, err := parseGoal(s.List[1], ctx)
		if err != nil {
			return nil, err
		}
		r, err := parseGoal(s.List[2], ctx)
		if err != nil {
			return nil, err
		}
		return goal.NewDisj(l, r), nil
	case "=", "!=", "<", "<=", ">", ">=":
		if len(s.List) != 3 {
			return nil, fmt.Errorf("loader: (%s A B) takes exactly two operands", head.Sym)
		}
		l, err := parseOp(s.List[1], ctx)
		if err != nil {
			return nil, err
		}
		r, err := parseOp(s.List[2], ctx)
		if err != nil {
			return nil, err
		}
		return goal.NewConstr(constraint.Atom{Rel: relOf(head.Sym), Left: l, Right: r}), nil
	default:
		// Predicate application: (NAME arg1 arg2 ...).
		id, ok := ctx.heads[head.Sym]
		if !ok {
			return nil, fmt.Errorf("loader: unbound predicate %q", head.Sym)
		}
		var g goal.Goal = goal.NewVar(id, head.Sym)
		for _, a := range s.List[1:] {
			op, err := parseOp(a, ctx)
			if err != nil {
				return nil, err
			}
			g = goal.NewApp(g, goal.NewOpLeaf(op))
		}
		return g, nil
	}
}

func relOf(sym string) constraint.Rel {
	switch sym {
	case "=":
		return constraint.Eq
	case "!=":
		return constraint.Neq
	case "<":
		return constraint.Lt
	case "<=":
		return constraint.Le
	case ">":
		return constraint.Gt
	default:
		return constraint.Ge
	}
}

func parseOp(s sexpr, ctx *loadContext) (operation.Operation, error) {
	if s.isAtom() {
		if n, err := strconv.ParseInt(s.Sym, 10, 64); err == nil {
			return operation.Const{Value: n}, nil
		}
		if id, ok := ctx.params[s.Sym]; ok {
			return operation.Var{ID: id, Hint: s.Sym}, nil
		}
		return nil, fmt.Errorf("loader: unbound variable %q", s.Sym)
	}
	if len(s.List) != 3 || !s.List[0].isAtom() {
		return nil, fmt.Errorf("loader: expected (OP A B)")
	}
	l, err := parseOp(s.List[1], ctx)
	if err != nil {
		return nil, err
	}
	r, err := parseOp(s.List[2], ctx)
	if err != nil {
		return nil, err
	}
	switch s.List[0].Sym {
	case "+":
		return operation.Bin{Op: operation.Add, Left: l, Right: r}, nil
	case "-":
		return operation.Bin{Op: operation.Sub, Left: l, Right: r}, nil
	case "*":
		return operation.Bin{Op: operation.Mul, Left: l, Right: r}, nil
	case "/":
		return operation.Bin{Op: operation.Div, Left: l, Right: r}, nil
	case "mod":
		return operation.Bin{Op: operation.Mod, Left: l, Right: r}, nil
	default:
		return nil, fmt.Errorf("loader: unknown operator %q", s.List[0].Sym)
	}
}
