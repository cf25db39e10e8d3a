package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/voicegraph/voicegraph/observability"
)

// Span and metric names emitted during execution.
const (
	spanInvoke      = "graph.invoke"
	spanNodeExecute = "graph.node.execute"

	attrGraphName    = "graph.name"
	attrNodeName     = "graph.node.name"
	attrNodeIndex    = "graph.node.index"
	attrRouteLabel   = "graph.route.label"
	attrShortCircuit = "graph.short_circuit"

	metricNodeCount    = "voicegraph.graph.node.count"
	metricNodeDuration = "voicegraph.graph.node.duration_ms"
)

// Invoke runs the graph from its entry point to a terminal state and returns
// the final merged state.
//
// The loop per step: invoke the current node with the current state, merge
// its partial update through the reducer, stop immediately when the halt
// predicate reports the merged state terminal, otherwise resolve the next
// node from the successor table or the node's conditional router. A node
// with no outgoing transition ends the run.
//
// Invoke returns an error only for engine-level conditions: context
// cancellation between nodes, a router producing an unmapped label, or a
// suspected cycle. Node-level failures never surface here; they are data in
// the returned state.
func (g *Graph[S, U]) Invoke(ctx context.Context, initial S) (S, error) {
	ctx, span := g.observer.StartSpan(ctx, spanInvoke,
		observability.String(attrGraphName, g.name),
	)
	defer span.End()

	state := initial
	current := g.entryPoint

	// Each node has a single outgoing transition, so a valid run visits a
	// node at most once. More steps than nodes means a wiring cycle.
	for step := 0; current != ""; step++ {
		if err := ctx.Err(); err != nil {
			span.SetStatus(observability.StatusError, "context canceled")
			return state, fmt.Errorf("graph %q canceled before node %q: %w", g.name, current, err)
		}
		if step >= len(g.nodes) {
			span.SetStatus(observability.StatusError, "cycle suspected")
			return state, fmt.Errorf("graph %q exceeded %d steps at node %q: cycle suspected", g.name, len(g.nodes), current)
		}

		state = g.executeNode(ctx, current, step, state)

		if g.halt != nil && g.halt(state) {
			span.SetAttributes(observability.Bool(attrShortCircuit, true))
			break
		}

		next, err := g.nextNode(current, state)
		if err != nil {
			span.SetStatus(observability.StatusError, err.Error())
			return state, err
		}
		current = next
	}

	return state, nil
}

// executeNode runs one node and merges its update, emitting a span and
// metrics around the invocation. The merge is atomic with respect to the
// run: the next node only ever observes the fully merged state.
func (g *Graph[S, U]) executeNode(ctx context.Context, name string, index int, state S) S {
	nodeCtx, nodeSpan := g.observer.StartSpan(ctx, spanNodeExecute,
		observability.String(attrGraphName, g.name),
		observability.String(attrNodeName, name),
		observability.Int(attrNodeIndex, index),
	)
	defer nodeSpan.End()

	nodeStart := time.Now()
	update := g.nodes[name](nodeCtx, state)
	merged := g.reducer(state, update)
	nodeDuration := time.Since(nodeStart)

	g.observer.Counter(metricNodeCount).Add(ctx, 1,
		observability.String(attrNodeName, name),
	)
	g.observer.Histogram(metricNodeDuration).Record(ctx, float64(nodeDuration.Milliseconds()),
		observability.String(attrNodeName, name),
	)

	return merged
}

// nextNode resolves the transition out of the given node against the merged
// state. An empty result marks the node terminal.
func (g *Graph[S, U]) nextNode(current string, state S) (string, error) {
	if branch, ok := g.conditional[current]; ok {
		label := branch.route(state)
		target, ok := branch.targets[label]
		if !ok {
			return "", fmt.Errorf("graph %q: router at node %q returned unmapped label %q", g.name, current, label)
		}
		return target, nil
	}
	if next, ok := g.successors[current]; ok {
		return next, nil
	}
	return "", nil
}
