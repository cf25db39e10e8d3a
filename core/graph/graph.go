package graph

import (
	"context"

	"github.com/voicegraph/voicegraph/observability"
)

// NodeFunc is a single processing step. It receives the current state
// read-only and returns only the fields it intends to change as a partial
// update. A NodeFunc must not fail by panicking or by out-of-band errors:
// internal failures are reported inside the returned update so the engine
// can surface them as terminal state.
type NodeFunc[S, U any] func(ctx context.Context, state S) U

// Reducer merges a node's partial update into the current state and returns
// the new state. It must be a pure, total function: every field present in
// the update replaces the current value, fields absent from the update are
// left untouched.
type Reducer[S, U any] func(current S, update U) S

// RouterFunc inspects the merged state after a conditional node and returns
// a route label. The label is resolved to a target node through the mapping
// given to [Builder.AddConditionalEdge].
type RouterFunc[S any] func(state S) string

// HaltFunc reports whether the merged state is terminal and the run must
// short-circuit, skipping all remaining nodes.
type HaltFunc[S any] func(state S) bool

// conditionalEdge is a runtime branch: route picks a label, targets maps the
// label to the successor node.
type conditionalEdge[S any] struct {
	route   RouterFunc[S]
	targets map[string]string
}

// Graph is a validated, executable workflow graph. It is immutable after
// Build; concurrent Invoke calls with independent state values are safe.
type Graph[S, U any] struct {
	name        string
	entryPoint  string
	nodes       map[string]NodeFunc[S, U]
	successors  map[string]string
	conditional map[string]conditionalEdge[S]
	reducer     Reducer[S, U]
	halt        HaltFunc[S]
	observer    observability.Provider
}

// Name returns the graph's name as given to NewBuilder.
func (g *Graph[S, U]) Name() string {
	return g.name
}
