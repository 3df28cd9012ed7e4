// Package graph builds the per-flow routing graph from resolved cards.
//
// Construction is strictly two-phase: every real node is created before any
// edge is resolved. The ordering guarantees that every edge's target exists
// as a node (real or stub) by the time the edge is added, with no
// forward-reference placeholders.
package graph
