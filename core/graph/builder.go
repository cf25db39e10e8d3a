package graph

import (
	"errors"
	"fmt"

	"github.com/voicegraph/voicegraph/observability"
)

// Builder constructs a validated Graph[S, U] using a fluent API.
// Nodes and edges are added incrementally; Build() performs structural
// validation.
//
// The builder enforces the following constraints:
//   - Node names must be unique and non-empty
//   - Edge endpoints must reference existing nodes
//   - Every node has at most one outgoing transition (static or conditional)
//   - An entry point is set and every node is reachable from it
//
// Example:
//
//	g, err := graph.NewBuilder[State, Update]("voice-agent", state.Apply).
//	    AddNode("transcribe", transcribeNode).
//	    AddNode("summarize", summarizeNode).
//	    AddEdge("transcribe", "summarize").
//	    SetEntryPoint("transcribe").
//	    Build()
type Builder[S, U any] struct {
	name        string
	reducer     Reducer[S, U]
	halt        HaltFunc[S]
	observer    observability.Provider
	entryPoint  string
	nodes       map[string]NodeFunc[S, U]
	nodeOrder   []string
	successors  map[string]string
	conditional map[string]conditionalEdge[S]

	// buildErrors accumulates validation errors from the Add methods and is
	// reported when Build() is called.
	buildErrors []error
}

// Option configures graph-level behavior, applied in NewBuilder.
type Option[S any] func(*builderConfig[S])

type builderConfig[S any] struct {
	halt     HaltFunc[S]
	observer observability.Provider
}

// WithHalt installs the short-circuit predicate. After every merge the engine
// evaluates it against the new state; when it reports true, no further node
// runs and the merged state is returned as terminal.
func WithHalt[S any](halt HaltFunc[S]) Option[S] {
	return func(cfg *builderConfig[S]) {
		cfg.halt = halt
	}
}

// WithObserver sets the observability provider used for per-node spans and
// metrics. Defaults to a no-op provider.
func WithObserver[S any](observer observability.Provider) Option[S] {
	return func(cfg *builderConfig[S]) {
		cfg.observer = observer
	}
}

// NewBuilder creates a Builder for a graph with the given name and reducer.
// The reducer is the channel-store merge policy applied after every node.
func NewBuilder[S, U any](name string, reducer Reducer[S, U], opts ...Option[S]) *Builder[S, U] {
	cfg := &builderConfig[S]{}
	for _, opt := range opts {
		opt(cfg)
	}

	observer := cfg.observer
	if observer == nil {
		observer = observability.NewNoop()
	}

	return &Builder[S, U]{
		name:        name,
		reducer:     reducer,
		halt:        cfg.halt,
		observer:    observer,
		nodes:       make(map[string]NodeFunc[S, U]),
		successors:  make(map[string]string),
		conditional: make(map[string]conditionalEdge[S]),
	}
}

// AddNode registers a processing node under a unique name.
func (b *Builder[S, U]) AddNode(name string, fn NodeFunc[S, U]) *Builder[S, U] {
	if name == "" {
		b.buildErrors = append(b.buildErrors, errors.New("node name must not be empty"))
		return b
	}
	if fn == nil {
		b.buildErrors = append(b.buildErrors, fmt.Errorf("node %q has a nil function", name))
		return b
	}
	if _, exists := b.nodes[name]; exists {
		b.buildErrors = append(b.buildErrors, fmt.Errorf("duplicate node name %q", name))
		return b
	}

	b.nodes[name] = fn
	b.nodeOrder = append(b.nodeOrder, name)
	return b
}

// AddEdge creates the static transition from one node to its successor.
func (b *Builder[S, U]) AddEdge(from, to string) *Builder[S, U] {
	if from == "" || to == "" {
		b.buildErrors = append(b.buildErrors, fmt.Errorf("edge endpoints must not be empty (from=%q, to=%q)", from, to))
		return b
	}
	if from == to {
		b.buildErrors = append(b.buildErrors, fmt.Errorf("self-loop detected on node %q", from))
		return b
	}
	if _, exists := b.successors[from]; exists {
		b.buildErrors = append(b.buildErrors, fmt.Errorf("node %q already has an outgoing edge", from))
		return b
	}

	b.successors[from] = to
	return b
}

// AddConditionalEdge installs a runtime branch after the given node.
// The router inspects the merged state and returns a route label, which the
// targets mapping resolves to the successor node. This is the only way to
// branch: all other transitions are fixed at build time.
func (b *Builder[S, U]) AddConditionalEdge(from string, route RouterFunc[S], targets map[string]string) *Builder[S, U] {
	if from == "" {
		b.buildErrors = append(b.buildErrors, errors.New("conditional edge source must not be empty"))
		return b
	}
	if route == nil {
		b.buildErrors = append(b.buildErrors, fmt.Errorf("conditional edge from %q has a nil router", from))
		return b
	}
	if len(targets) == 0 {
		b.buildErrors = append(b.buildErrors, fmt.Errorf("conditional edge from %q has no targets", from))
		return b
	}
	if _, exists := b.conditional[from]; exists {
		b.buildErrors = append(b.buildErrors, fmt.Errorf("node %q already has a conditional edge", from))
		return b
	}

	copied := make(map[string]string, len(targets))
	for label, target := range targets {
		copied[label] = target
	}
	b.conditional[from] = conditionalEdge[S]{route: route, targets: copied}
	return b
}

// SetEntryPoint designates the node the run starts from.
func (b *Builder[S, U]) SetEntryPoint(name string) *Builder[S, U] {
	b.entryPoint = name
	return b
}

// Build validates the graph structure and produces an executable Graph.
func (b *Builder[S, U]) Build() (*Graph[S, U], error) {
	if len(b.buildErrors) > 0 {
		return nil, fmt.Errorf("graph build errors: %w", errors.Join(b.buildErrors...))
	}
	if b.reducer == nil {
		return nil, errors.New("graph requires a reducer")
	}
	if len(b.nodes) == 0 {
		return nil, errors.New("graph must contain at least one node")
	}
	if b.entryPoint == "" {
		return nil, errors.New("graph requires an entry point")
	}
	if _, ok := b.nodes[b.entryPoint]; !ok {
		return nil, fmt.Errorf("entry point %q is not a registered node", b.entryPoint)
	}

	if err := b.validateTransitions(); err != nil {
		return nil, err
	}
	if err := b.validateReachability(); err != nil {
		return nil, err
	}

	return &Graph[S, U]{
		name:        b.name,
		entryPoint:  b.entryPoint,
		nodes:       b.nodes,
		successors:  b.successors,
		conditional: b.conditional,
		reducer:     b.reducer,
		halt:        b.halt,
		observer:    b.observer,
	}, nil
}

// validateTransitions checks that every transition endpoint references a
// registered node and that no node carries both a static and a conditional
// outgoing edge.
func (b *Builder[S, U]) validateTransitions() error {
	for from, to := range b.successors {
		if _, ok := b.nodes[from]; !ok {
			return fmt.Errorf("edge source %q is not a registered node", from)
		}
		if _, ok := b.nodes[to]; !ok {
			return fmt.Errorf("edge target %q is not a registered node", to)
		}
		if _, ok := b.conditional[from]; ok {
			return fmt.Errorf("node %q has both a static and a conditional edge", from)
		}
	}

	for from, branch := range b.conditional {
		if _, ok := b.nodes[from]; !ok {
			return fmt.Errorf("conditional edge source %q is not a registered node", from)
		}
		for label, target := range branch.targets {
			if _, ok := b.nodes[target]; !ok {
				return fmt.Errorf("conditional target %q (route %q from %q) is not a registered node", target, label, from)
			}
		}
	}

	return nil
}

// validateReachability walks every transition from the entry point and
// reports nodes the run can never reach.
func (b *Builder[S, U]) validateReachability() error {
	reached := make(map[string]bool, len(b.nodes))
	frontier := []string{b.entryPoint}

	for len(frontier) > 0 {
		current := frontier[len(frontier)-1]
		frontier = frontier[:len(frontier)-1]
		if reached[current] {
			continue
		}
		reached[current] = true

		if next, ok := b.successors[current]; ok {
			frontier = append(frontier, next)
		}
		if branch, ok := b.conditional[current]; ok {
			for _, target := range branch.targets {
				frontier = append(frontier, target)
			}
		}
	}

	for _, name := range b.nodeOrder {
		if !reached[name] {
			return fmt.Errorf("node %q is unreachable from entry point %q", name, b.entryPoint)
		}
	}
	return nil
}
