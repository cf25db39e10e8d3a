// Package graph implements a small directed-graph workflow engine that
// threads a single mutable state value through an ordered sequence of
// processing nodes. Each node returns a partial update; a caller-supplied
// reducer merges the update into the state before the next node runs.
//
// The engine is generic over S (the state type) and U (the partial-update
// type). Nodes never return errors: a node that fails internally reports the
// failure inside its update, and the graph short-circuits when the merged
// state satisfies the configured halt predicate. This keeps failures as data
// that the caller inspects in the terminal state, rather than as unwound
// call stacks.
//
// Nodes execute strictly sequentially. Transitions are fixed by a static
// successor table, except where a conditional edge installs a router that
// picks the next node by inspecting the merged state. A node with no
// outgoing transition is terminal.
//
// The main entry points are [NewBuilder] to construct a graph and
// [Graph.Invoke] to run it to its terminal state. A Graph is immutable after
// Build and safe for concurrent Invoke calls with independent states.
package graph
