// Package diag provides the engine's colourized progress output:
// level-tagged trace lines for the PDR loop and, when dump_progress
// is on, a dump of a committed derivation — the same colour-coded
// status-line style cmd/ailang/main.go uses (green/red/yellow/cyan
// SprintFuncs wrapping otherwise-plain fmt.Printf calls).
package diag

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/hopv/gohopdr/internal/derivation"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

// Logger writes trace and verdict output to one stream.
type Logger struct {
	out          io.Writer
	dumpProgress bool
}

// New returns a Logger writing to out. dumpProgress mirrors the
// dump_progress configuration flag: when false, Derivation is a no-op.
func New(out io.Writer, dumpProgress bool) *Logger {
	return &Logger{out: out, dumpProgress: dumpProgress}
}

// Tracef prints one PDR-loop progress line, matching the
// Options.Trace callback signature the engine calls on every loop
// iteration.
func (l *Logger) Tracef(format string, args ...any) {
	fmt.Fprintf(l.out, "%s %s\n", cyan("pdr"), fmt.Sprintf(format, args...))
}

// Verdict prints the engine's final answer, colour-coded the way the
// teacher's CLI reports pass/fail: green for Valid, red for Invalid,
// yellow for Unknown.
func (l *Logger) Verdict(verdict fmt.Stringer, reason string) {
	switch verdict.String() {
	case "Valid":
		fmt.Fprintf(l.out, "%s %s\n", bold(green("VALID")), "the goal holds on every unfolding")
	case "Invalid":
		fmt.Fprintf(l.out, "%s %s\n", bold(red("INVALID")), "a counter-example survived to level 0")
	default:
		fmt.Fprintf(l.out, "%s %s: %s\n", bold(yellow("UNKNOWN")), "could not decide", reason)
	}
}

// Derivation dumps one committed derivation's rule tree, indented by
// premise depth, when dump_progress is enabled.
func (l *Logger) Derivation(d *derivation.Derivation) {
	if !l.dumpProgress || d == nil {
		return
	}
	l.dumpNode(d.Root, 0)
}

func (l *Logger) dumpNode(n *derivation.Node, depth int) {
	if n == nil {
		return
	}
	fmt.Fprintf(l.out, "%s%s %s : %s\n", strings.Repeat("  ", depth), yellow(n.Rule.String()), n.Goal, n.Type)
	for _, premise := range n.Premises {
		l.dumpNode(premise, depth+1)
	}
}
