package agent

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a workflow run. It only moves forward:
// idle → processing → completed or failed.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// SendMode selects how the summary email is delivered.
type SendMode string

const (
	// SendInstant sends the email as the final workflow step.
	SendInstant SendMode = "instant"
	// SendScheduled registers a deferred send with the scheduler instead.
	SendScheduled SendMode = "scheduled"
)

// ParseSendMode converts the wire representation of a send mode.
func ParseSendMode(value string) (SendMode, error) {
	switch SendMode(value) {
	case SendInstant:
		return SendInstant, nil
	case SendScheduled:
		return SendScheduled, nil
	default:
		return "", fmt.Errorf("unknown send mode %q", value)
	}
}

// AudioInput is the raw uploaded clip.
type AudioInput struct {
	Data     []byte
	MIMEType string
}

// Summary is the structured output of the summarization step.
type Summary struct {
	Bullets  []string `json:"bullets"`
	NextStep string   `json:"nextStep"`
}

// ErrorInfo records a node-local failure as terminal state data.
type ErrorInfo struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// State is the single mutable record threaded through the graph. It is
// created once per run, merged into by each node's partial update, and
// discarded after the caller receives the terminal snapshot.
type State struct {
	// Input, populated by the caller before the run starts.
	Audio          *AudioInput
	RecipientEmail string
	SendMode       SendMode
	ScheduledTime  *time.Time

	// Processing, populated by nodes.
	AudioBuffer   []byte
	Transcription string
	Summary       *Summary

	// Tracking.
	Status      Status
	CurrentStep string
	Err         *ErrorInfo

	// Results. Exactly one of EmailID and JobID is set on a completed run,
	// matching the send mode.
	EmailSent bool
	EmailID   string
	JobID     string
}

// Update is a partial state update: a node returns only the fields it
// intends to change. Nil (or, for AudioBuffer, empty) fields leave the
// current value untouched.
type Update struct {
	AudioBuffer   []byte
	Transcription *string
	Summary       *Summary
	Status        *Status
	CurrentStep   *string
	Err           *ErrorInfo
	EmailSent     *bool
	EmailID       *string
	JobID         *string
}

// Apply merges a partial update into the current state: every field present
// in the update replaces the current value, absent fields are kept. It is a
// pure, total function; nodes rely on it being uniform so they can each
// contribute their own fields without clobbering unrelated ones.
func Apply(current State, update Update) State {
	next := current

	if update.AudioBuffer != nil {
		next.AudioBuffer = update.AudioBuffer
	}
	if update.Transcription != nil {
		next.Transcription = *update.Transcription
	}
	if update.Summary != nil {
		next.Summary = update.Summary
	}
	if update.Status != nil {
		next.Status = *update.Status
	}
	if update.CurrentStep != nil {
		next.CurrentStep = *update.CurrentStep
	}
	if update.Err != nil {
		next.Err = update.Err
	}
	if update.EmailSent != nil {
		next.EmailSent = *update.EmailSent
	}
	if update.EmailID != nil {
		next.EmailID = *update.EmailID
	}
	if update.JobID != nil {
		next.JobID = *update.JobID
	}

	return next
}
