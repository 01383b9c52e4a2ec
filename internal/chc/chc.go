// Package chc implements the constraint-extraction and CHC bridge:
// turning a derivation's subsumption obligations into Horn clauses
// over uninterpreted template predicates, stratifying the resulting
// predicate-call graph, and discharging each stratum either directly
// (acyclic: the least model is the disjunction of a predicate's
// defining clause bodies, each already folded with its own
// dependencies' solved definitions) or by delegating to an external
// recursive CHC solver (cyclic — a genuinely recursive predicate needs
// a real fixpoint engine, which this package does not reimplement).
// The stratification pass follows a dependency-graph
// cycle-detection style (the same mark-as-you-DFS, error-on-back-edge
// shape a build-planning package uses to refuse a cyclic package graph).
package chc

import (
	"context"
	"fmt"
	"strings"

	"github.com/hopv/gohopdr/internal/constraint"
	"github.com/hopv/gohopdr/internal/ident"
	"github.com/hopv/gohopdr/internal/operation"
	"github.com/hopv/gohopdr/internal/rtype"
	"github.com/hopv/gohopdr/internal/solver"
)

// Literal is one uninterpreted predicate call, P(args).
type Literal struct {
	Pred ident.ID
	Args []operation.Operation
}

func (l Literal) String() string {
	parts := make([]string, len(l.Args))
	for i, a := range l.Args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("P%d(%s)", l.Pred, strings.Join(parts, ", "))
}

// ParamIDs extracts an identifier per argument, used when l is a
// clause's head literal and its arguments are still the template's
// own formal variables (plain operation.Var leaves) rather than a
// call site's actual expressions.
func (l Literal) ParamIDs() []ident.ID {
	out := make([]ident.ID, len(l.Args))
	for i, a := range l.Args {
		if v, ok := a.(operation.Var); ok {
			out[i] = v.ID
		} else {
			out[i] = ident.Fresh()
		}
	}
	return out
}

// Clause is one Horn clause: BodyPreds (conjoined predicate calls)
// and BodyConstraint (a plain conjoined antecedent) together entail
// Head. A genuine "definition" clause has Head equal to exactly one
// UPredicate literal; anything else — a bare constraint, or a
// disjunction mentioning more than one predicate — is a "query": a
// validity obligation nobody's model directly owns, checked once
// every predicate it mentions has a solved definition.
type Clause struct {
	BodyPreds      []Literal
	BodyConstraint constraint.Constraint
	Head           constraint.Constraint
}

// DefinedPred reports the single predicate this clause defines.
func (c Clause) DefinedPred() (Literal, bool) {
	u, ok := c.Head.(constraint.UPredicate)
	if !ok {
		return Literal{}, false
	}
	return Literal{Pred: u.Pred, Args: u.Args}, true
}

// ExtractClauses turns every subsumption obligation collected from a
// derivation (internal/derivation.Obligations) into one or more Horn
// clauses: each obligation is put in CNF, and each conjunct — itself a
// disjunction — is partitioned into negated-predicate disjuncts
// (clause body literals, since ¬P(x) ∨ ψ ≡ P(x) ⟹ ψ), plain-constraint
// disjuncts (negated and folded into the body's constraint guard), and
// at most one remaining positive predicate disjunct (the clause's
// head, if the conjunct truly defines a predicate).
func ExtractClauses(obligations []constraint.Constraint) []Clause {
	var clauses []Clause
	for _, o := range obligations {
		cnf := constraint.CNF(constraint.Simplify(o))
		for _, conjunct := range constraint.SplitConjuncts(cnf) {
			clauses = append(clauses, extractOne(conjunct))
		}
	}
	return clauses
}

func extractOne(disjunction constraint.Constraint) Clause {
	var negBody []Literal
	var posPreds []constraint.UPredicate
	var plain []constraint.Constraint
	for _, d := range constraint.SplitDisjuncts(disjunction) {
		if n, ok := d.(constraint.Not); ok {
			if u, ok2 := n.Body.(constraint.UPredicate); ok2 {
				negBody = append(negBody, Literal{Pred: u.Pred, Args: u.Args})
				continue
			}
			plain = append(plain, d)
			continue
		}
		if u, ok := d.(constraint.UPredicate); ok {
			posPreds = append(posPreds, u)
			continue
		}
		plain = append(plain, d)
	}

	if len(posPreds) == 1 {
		guard := constraint.Constraint(constraint.True{})
		for _, p := range plain {
			neg, ok := constraint.Negate(p)
			if !ok {
				neg = constraint.False{}
			}
			guard = constraint.MkAnd(guard, neg)
		}
		return Clause{BodyPreds: negBody, BodyConstraint: guard, Head: posPreds[0]}
	}

	var rest []constraint.Constraint
	for _, p := range posPreds {
		rest = append(rest, p)
	}
	rest = append(rest, plain...)
	return Clause{BodyPreds: negBody, BodyConstraint: constraint.True{}, Head: constraint.JoinOr(rest)}
}

// BuildCallGraph maps each predicate this clause set defines to the
// predicates its defining clauses' bodies call.
func BuildCallGraph(clauses []Clause) map[ident.ID][]ident.ID {
	graph := map[ident.ID][]ident.ID{}
	for _, c := range clauses {
		head, ok := c.DefinedPred()
		if !ok {
			continue
		}
		if _, exists := graph[head.Pred]; !exists {
			graph[head.Pred] = nil
		}
		for _, b := range c.BodyPreds {
			graph[head.Pred] = append(graph[head.Pred], b.Pred)
		}
	}
	return graph
}

// Stratify topologically sorts graph dependency-first (a predicate
// appears only after every predicate its definition calls), reporting
// whether a cycle makes a true topological order impossible.
func Stratify(graph map[ident.ID][]ident.ID) (order []ident.ID, cyclic bool) {
	const (
		white = iota
		gray
		black
	)
	color := map[ident.ID]int{}
	for p := range graph {
		color[p] = white
	}
	var out []ident.ID
	var visit func(p ident.ID) bool
	visit = func(p ident.ID) bool {
		switch color[p] {
		case black:
			return true
		case gray:
			return false // back edge: cycle
		}
		color[p] = gray
		for _, dep := range graph[p] {
			if _, known := graph[dep]; !known {
				continue // dep is not itself defined by any clause (a leaf / externally-bound predicate)
			}
			if !visit(dep) {
				return false
			}
		}
		color[p] = black
		out = append(out, p)
		return true
	}
	ok := true
	for p := range graph {
		if color[p] == white {
			if !visit(p) {
				ok = false
			}
		}
	}
	return out, !ok
}

// Solve discharges clauses, picking the acyclic fast path when
// Stratify finds no cycle and delegating to chcSolver otherwise.
func Solve(ctx context.Context, clauses []Clause, chcSolver solver.CHCChecker) (rtype.Model, error) {
	graph := BuildCallGraph(clauses)
	order, cyclic := Stratify(graph)
	if !cyclic {
		return solveAcyclic(clauses, order)
	}
	return solveCyclic(ctx, clauses, chcSolver)
}

// solveAcyclic computes each predicate's least model in
// dependency-first order: its model is the disjunction, over every
// clause that defines it, of that clause's body (constraint guard
// plus every body predicate call already substituted by its own
// previously-solved model entry). Once every defined predicate has a
// model entry, every remaining clause is a query — a validity
// obligation nobody's model owns — and must be checked against that
// model rather than discharged for free: a query whose folded
// antecedent entails false of its head is this clause set's
// unsatisfiable obligation, and the acyclic path must report it
// rather than silently drop it.
func solveAcyclic(clauses []Clause, order []ident.ID) (rtype.Model, error) {
	model := rtype.Model{}
	byHead := map[ident.ID][]Clause{}
	for _, c := range clauses {
		head, ok := c.DefinedPred()
		if !ok {
			continue
		}
		byHead[head.Pred] = append(byHead[head.Pred], c)
	}
	for _, pred := range order {
		defs := byHead[pred]
		if len(defs) == 0 {
			continue
		}
		var disjuncts []constraint.Constraint
		var params []ident.ID
		for _, c := range defs {
			head, _ := c.DefinedPred()
			if params == nil {
				params = head.ParamIDs()
			}
			disjuncts = append(disjuncts, foldBody(c, model))
		}
		model[pred] = rtype.ModelEntry{Params: params, Body: constraint.JoinOr(disjuncts)}
	}
	for _, c := range clauses {
		if _, ok := c.DefinedPred(); ok {
			continue
		}
		if err := checkQuery(c, model); err != nil {
			return model, err
		}
	}
	return model, nil
}

// checkQuery confirms a query clause's folded antecedent entails its
// head under the solved model, refusing only when the implication
// simplifies all the way down to a literal false — the same
// lightweight, no-external-solver fusion the rest of this package's
// acyclic path already relies on instead of a real decision procedure.
// A residual, non-constant formula (one Simplify cannot reduce to
// true or false outright) is not flagged: that is exactly the case
// the cyclic path's external solver exists to resolve, not this fast
// path.
func checkQuery(c Clause, model rtype.Model) error {
	antecedent := foldBody(c, model)
	neg, ok := constraint.Negate(antecedent)
	if !ok {
		return nil
	}
	verdict := constraint.Simplify(constraint.MkOr(neg, c.Head))
	if _, isFalse := verdict.(constraint.False); isFalse {
		return fmt.Errorf("chc: query %s does not follow from the solved model", c.Head)
	}
	return nil
}

// foldBody conjoins a clause's constraint guard with every
// already-solved definition of the predicates its body calls.
func foldBody(c Clause, model rtype.Model) constraint.Constraint {
	result := c.BodyConstraint
	for _, lit := range c.BodyPreds {
		entry, ok := model[lit.Pred]
		bodyFormula := constraint.Constraint(constraint.True{})
		if ok {
			bodyFormula = entry.Body
			for i, param := range entry.Params {
				if i < len(lit.Args) {
					bodyFormula = bodyFormula.Subst(param, lit.Args[i])
				}
			}
		}
		result = constraint.MkAnd(bodyFormula, result)
	}
	return result
}

// solveCyclic serializes the whole clause set and delegates to an
// external CHC solver (Spacer/Hoice, per the configured chc_solver_kind), since
// a genuinely recursive predicate's least fixpoint requires a real
// solving engine this package does not reimplement.
func solveCyclic(ctx context.Context, clauses []Clause, chcSolver solver.CHCChecker) (rtype.Model, error) {
	script := Serialize(clauses)
	res, err := chcSolver.SolveCHC(ctx, script)
	if err != nil {
		return nil, fmt.Errorf("chc: solving cyclic clause set: %w", err)
	}
	if res.Status != solver.Sat {
		return nil, fmt.Errorf("chc: clause set is %s", res.Status)
	}
	return ParseModel(res.Model), nil
}

// Serialize renders clauses as an SMT-LIB2-flavoured Horn-clause
// script, one (assert (=> (and guard preds...) head)) per clause,
// closed with (check-sat) (get-model).
func Serialize(clauses []Clause) string {
	var b strings.Builder
	b.WriteString("(set-logic HORN)\n")
	for _, c := range clauses {
		antecedentParts := []string{c.BodyConstraint.String()}
		for _, lit := range c.BodyPreds {
			antecedentParts = append(antecedentParts, lit.String())
		}
		fmt.Fprintf(&b, "(assert (=> (and %s) %s))\n", strings.Join(antecedentParts, " "), c.Head)
	}
	b.WriteString("(check-sat)\n(get-model)\n")
	return b.String()
}

// ParseModel reads the solver's model text back into an rtype.Model.
// The grammar recognised is this package's own convention, one
// binding per line: "Pn := <formula>" — a solver's own native output
// is translated into this shape by the configured backend adapter
// before reaching ParseModel, since no general SMT-LIB2 model parser
// is in scope here. Only the predicate name of a binding is read: the
// formula text is not parsed, and every recognised binding becomes an
// entry with no Params and Body constraint.True{}.
func ParseModel(modelText string) rtype.Model {
	model := rtype.Model{}
	for _, line := range strings.Split(modelText, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !strings.Contains(line, ":=") {
			continue
		}
		parts := strings.SplitN(line, ":=", 2)
		var predNum uint64
		if _, err := fmt.Sscanf(strings.TrimSpace(parts[0]), "P%d", &predNum); err != nil {
			continue
		}
		model[ident.ID(predNum)] = rtype.ModelEntry{Body: constraint.True{}}
	}
	return model
}
