package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/voicegraph/voicegraph/core/graph"
	"github.com/voicegraph/voicegraph/internal/utils"
	"github.com/voicegraph/voicegraph/observability"
)

// graphName identifies the workflow in spans and logs.
const graphName = "voice-agent"

// Config carries the collaborators and policies the workflow needs.
// Transcriber, Summarizer, Sender, and Scheduler are required; Audio and
// Observer fall back to AudioPolicyFromEnv and a no-op provider.
type Config struct {
	Transcriber Transcriber
	Summarizer  Summarizer
	Sender      Sender
	Scheduler   Scheduler

	Audio    *AudioPolicy
	Observer observability.Provider
}

// Agent owns the compiled workflow graph. It is immutable after New and safe
// for concurrent Run calls: each run threads its own State and shares nothing
// with other runs.
type Agent struct {
	graph    *graph.Graph[State, Update]
	observer observability.Provider
}

// New compiles the voice-memo workflow graph from the given collaborators.
func New(cfg Config) (*Agent, error) {
	if cfg.Transcriber == nil {
		return nil, errors.New("agent: Transcriber is required")
	}
	if cfg.Summarizer == nil {
		return nil, errors.New("agent: Summarizer is required")
	}
	if cfg.Sender == nil {
		return nil, errors.New("agent: Sender is required")
	}
	if cfg.Scheduler == nil {
		return nil, errors.New("agent: Scheduler is required")
	}

	observer := cfg.Observer
	if observer == nil {
		observer = observability.NewNoop()
	}

	policy := AudioPolicyFromEnv()
	if cfg.Audio != nil {
		policy = *cfg.Audio
	}

	g, err := graph.NewBuilder[State, Update](graphName, Apply,
		graph.WithHalt[State](func(state State) bool {
			return state.Status == StatusFailed
		}),
		graph.WithObserver[State](observer),
	).
		AddNode(NodeProcessAudio, processAudioNode(policy)).
		AddNode(NodeTranscribeAudio, transcribeNode(cfg.Transcriber)).
		AddNode(NodeGenerateSummary, summarizeNode(cfg.Summarizer)).
		AddNode(NodeDecideEmailMode, decideEmailModeNode()).
		AddNode(NodeSendEmail, sendEmailNode(cfg.Sender)).
		AddNode(NodeScheduleEmail, scheduleEmailNode(cfg.Scheduler)).
		SetEntryPoint(NodeProcessAudio).
		AddEdge(NodeProcessAudio, NodeTranscribeAudio).
		AddEdge(NodeTranscribeAudio, NodeGenerateSummary).
		AddEdge(NodeGenerateSummary, NodeDecideEmailMode).
		AddConditionalEdge(NodeDecideEmailMode, routeEmailDecision, map[string]string{
			routeEmail:      NodeSendEmail,
			routeScheduling: NodeScheduleEmail,
		}).
		Build()
	if err != nil {
		return nil, fmt.Errorf("agent: building workflow graph: %w", err)
	}

	return &Agent{graph: g, observer: observer}, nil
}

// Run executes the workflow to a terminal state and returns the final
// snapshot. The run starts by marking the state processing; from there each
// node contributes its partial update, and a failed merge short-circuits the
// remaining nodes. The returned error covers engine-level conditions only
// (context cancellation); node failures are reported in the state itself.
func (a *Agent) Run(ctx context.Context, initial State) (State, error) {
	seeded := Apply(initial, Update{
		Status:      utils.Ptr(StatusProcessing),
		CurrentStep: utils.Ptr("started"),
	})

	final, err := a.graph.Invoke(ctx, seeded)
	if err != nil {
		return final, err
	}

	if final.Status == StatusFailed && final.Err != nil {
		a.observer.Warn(ctx, "workflow failed",
			observability.String("code", final.Err.Code),
			observability.String("step", final.CurrentStep),
		)
	}
	return final, nil
}
