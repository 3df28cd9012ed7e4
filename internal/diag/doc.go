// Package diag accumulates pipeline diagnostics and resolves their severity.
//
// Every stage records what it finds and keeps going; nothing aborts mid-run.
// Severity for mode-sensitive kinds is resolved once, against the active
// mode, when the collector is consulted after graph building. This way a
// single run reports every problem in the input set instead of only the
// first one.
//
// Producers running in parallel each fill their own diagnostic slice;
// accumulation is append-only and associative, so lists merge by
// concatenation followed by a deterministic sort (path, action index).
package diag
