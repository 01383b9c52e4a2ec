// Package problem defines the Problem input value: the
// parsed, simply-typed, α-renamed representation the engine consumes.
// Parsing itself is out of scope; this package only
// states the shape a front end must produce.
package problem

import (
	"fmt"

	"github.com/hopv/gohopdr/internal/goal"
	"github.com/hopv/gohopdr/internal/ident"
	"github.com/hopv/gohopdr/internal/stype"
)

// Clause is one equation head := body of the mutually-recursive
// predicate definitions D.
type Clause struct {
	Head     ident.ID
	HeadHint string
	Sigma    stype.Type // the predicate's declared simple type
	Params   []ident.ID // bound parameter ids, outermost first
	Body     goal.Goal
}

// Problem is the fully preprocessed input to the core pipeline: the
// clause set D plus the closed top-level goal ψ.
type Problem struct {
	Clauses []Clause
	Top     goal.Goal
}

// ClauseByHead finds the clause defining id, or (Clause{}, false).
func (p Problem) ClauseByHead(id ident.ID) (Clause, bool) {
	for _, c := range p.Clauses {
		if c.Head == id {
			return c, true
		}
	}
	return Clause{}, false
}

func (p Problem) String() string {
	s := ""
	for _, c := range p.Clauses {
		s += fmt.Sprintf("%s %v = %s\n", headName(c), c.Params, c.Body)
	}
	s += fmt.Sprintf(":: %s\n", p.Top)
	return s
}

func headName(c Clause) string {
	if c.HeadHint != "" {
		return c.HeadHint
	}
	return fmt.Sprintf("P%d", c.Head)
}
