// Package agent wires the voice-memo workflow: it defines the shared
// workflow state with its per-field merge policy, the six processing nodes,
// and the graph that threads one state value through them.
//
// The pipeline is: process audio → transcribe → summarize → decide routing,
// then either send the summary email immediately or register a deferred send
// with the scheduler. Every node reports failure as data (status plus error
// info inside its partial update), and the graph short-circuits as soon as
// the merged state turns failed, so callers always receive a terminal
// snapshot rather than a raised fault.
//
// External collaborators (transcription, summarization, email send,
// deferred scheduling) are consumed through the small interfaces declared in
// services.go; the services and scheduler packages provide the production
// implementations.
package agent
