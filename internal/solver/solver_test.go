package solver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResultRecognisesSat(t *testing.T) {
	r := parseResult("sat\n((define-fun x () Int 5))\n")
	assert.Equal(t, Sat, r.Status)
	assert.Contains(t, r.Model, "define-fun")
}

func TestParseResultRecognisesUnsat(t *testing.T) {
	r := parseResult("unsat\n")
	assert.Equal(t, Unsat, r.Status)
}

func TestParseResultDefaultsToUnknown(t *testing.T) {
	r := parseResult("some garbage\n")
	assert.Equal(t, Unknown, r.Status)
}

func TestProcessCheckSatRunsBackend(t *testing.T) {
	p := NewProcess("/bin/echo", time.Second, "sat")
	res, err := p.CheckSat(context.Background(), "(check-sat)")
	require.NoError(t, err)
	assert.Equal(t, Sat, res.Status)
}

func TestProcessCheckSatTimesOut(t *testing.T) {
	p := NewProcess("/bin/sleep", 20*time.Millisecond, "5")
	res, err := p.CheckSat(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, Timeout, res.Status)
}

func TestNewResolvesPathOverride(t *testing.T) {
	p := New(KindZ3, Paths{KindZ3: "/custom/z3"}, time.Second)
	assert.Equal(t, "/custom/z3", p.Path)
}

func TestNewFallsBackToLowercasedKind(t *testing.T) {
	p := New(KindHoice, Paths{}, time.Second)
	assert.Equal(t, "hoice", p.Path)
}
