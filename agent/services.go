package agent

import (
	"context"
	"time"

	"github.com/voicegraph/voicegraph/services/email"
	"github.com/voicegraph/voicegraph/services/summarization"
	"github.com/voicegraph/voicegraph/services/transcription"
)

// The workflow consumes its external collaborators through these interfaces.
// The contract is request in, result or failure out: no partial results, no
// streaming. Timeout and retry policy belong to the implementations, not to
// the graph.

// Transcriber converts an audio clip into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (*transcription.Result, error)
}

// Summarizer produces a structured summary from transcript text.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (*summarization.Result, error)
}

// Sender delivers the summary email immediately.
type Sender interface {
	Send(ctx context.Context, params email.Params) (*email.Result, error)
}

// Scheduler registers a deferred email send to fire at runAt.
type Scheduler interface {
	Schedule(ctx context.Context, jobID string, params email.Params, runAt time.Time) error
}
