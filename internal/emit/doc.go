// Package emit serializes flow graphs into the downstream DSL text format
// and merges the result into files that may contain hand-authored content.
//
// The generated region of a file is modeled as an explicit three-part split:
// the bytes before the begin marker, the region between the markers, and the
// bytes after the end marker. The split is computed from a fresh read of the
// file immediately before writing; surrounding bytes are copied verbatim.
// Markers are matched by exact line equality, never by heuristic pattern,
// and a file whose markers are malformed or duplicated is refused outright.
package emit
