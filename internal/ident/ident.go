// Package ident provides the globally unique identifier tags used
// throughout the engine: goal subterm ids, type variable ids, and
// fresh template predicate ids all come from the same counter so that
// "fresh" always means "never seen before in this process".
package ident

import (
	"fmt"
	"sync/atomic"
)

// ID is an opaque, globally unique tag. Equality is by tag, never by
// the name a caller happens to attach for debugging.
type ID uint64

// counter is the only process-wide mutable state in this package: it
// is monotonically incremented and never reused within a process.
var counter uint64

// Fresh returns a new, never-before-issued ID.
func Fresh() ID {
	return ID(atomic.AddUint64(&counter, 1))
}

// Named pairs a fresh ID with a human-readable hint, used only for
// pretty-printing and diagnostics — never for equality.
type Named struct {
	ID   ID
	Hint string
}

// FreshNamed mints a fresh ID carrying a display hint.
func FreshNamed(hint string) Named {
	return Named{ID: Fresh(), Hint: hint}
}

func (n Named) String() string {
	if n.Hint == "" {
		return fmt.Sprintf("x%d", n.ID)
	}
	return fmt.Sprintf("%s%d", n.Hint, n.ID)
}

// Reset rewinds the counter. Exposed only for deterministic golden
// tests that assert on rendered identifier names; never call this
// from engine code.
func Reset() {
	atomic.StoreUint64(&counter, 0)
}
