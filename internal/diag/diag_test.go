package diag

import (
	"bytes"
	"strings"
	"testing"

	"github.com/hopv/gohopdr/internal/constraint"
	"github.com/hopv/gohopdr/internal/derivation"
	"github.com/hopv/gohopdr/internal/goal"
	"github.com/hopv/gohopdr/internal/rtype"
	"github.com/stretchr/testify/assert"
)

type fakeVerdict string

func (f fakeVerdict) String() string { return string(f) }

func TestTracefWritesOneLine(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, false)
	l.Tracef("level %d pushed", 3)
	assert.Contains(t, buf.String(), "level 3 pushed")
}

func TestVerdictReportsEachOutcome(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, false)

	l.Verdict(fakeVerdict("Valid"), "")
	assert.Contains(t, strings.ToUpper(buf.String()), "VALID")

	buf.Reset()
	l.Verdict(fakeVerdict("Invalid"), "")
	assert.Contains(t, strings.ToUpper(buf.String()), "INVALID")

	buf.Reset()
	l.Verdict(fakeVerdict("Unknown"), "level bound exceeded")
	assert.Contains(t, buf.String(), "level bound exceeded")
}

func TestDerivationSkipsDumpWhenDisabled(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, false)
	root := &derivation.Node{Rule: derivation.Atom, Goal: goal.NewConstr(constraint.True{}), Type: rtype.Prop{Refinement: constraint.True{}}}
	l.Derivation(&derivation.Derivation{Root: root})
	assert.Empty(t, buf.String())
}

func TestDerivationDumpsNodesWhenEnabled(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, true)
	root := &derivation.Node{Rule: derivation.Atom, Goal: goal.NewConstr(constraint.True{}), Type: rtype.Prop{Refinement: constraint.True{}}}
	l.Derivation(&derivation.Derivation{Root: root})
	assert.NotEmpty(t, buf.String())
}
