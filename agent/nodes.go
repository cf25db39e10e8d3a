package agent

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/voicegraph/voicegraph/core/graph"
	"github.com/voicegraph/voicegraph/internal/utils"
	"github.com/voicegraph/voicegraph/services/email"
)

// Node names. They double as the graph's successor-table keys.
const (
	NodeProcessAudio    = "processAudio"
	NodeTranscribeAudio = "transcribeAudio"
	NodeGenerateSummary = "generateSummary"
	NodeDecideEmailMode = "decideEmailMode"
	NodeSendEmail       = "sendEmail"
	NodeScheduleEmail   = "scheduleEmail"
)

// Route labels returned by the decision router.
const (
	routeEmail      = "email"
	routeScheduling = "scheduling"
)

// emailSubject is the fixed subject line for every summary email.
const emailSubject = "Voice Agent Summary - Your Voice Note"

// processAudioNode validates the uploaded clip against the policy and
// promotes its bytes into the processing buffer.
func processAudioNode(policy AudioPolicy) graph.NodeFunc[State, Update] {
	return func(_ context.Context, state State) Update {
		if state.Audio == nil || len(state.Audio.Data) == 0 {
			return failure(CodeMissingAudio, "No audio file provided")
		}
		if err := policy.Validate(state.Audio); err != nil {
			return failure(CodeAudioValidationFailed, err.Error())
		}

		return Update{
			AudioBuffer: state.Audio.Data,
			CurrentStep: utils.Ptr("audio_processed"),
		}
	}
}

// transcribeNode calls the transcription collaborator on the audio buffer.
func transcribeNode(transcriber Transcriber) graph.NodeFunc[State, Update] {
	return func(ctx context.Context, state State) Update {
		if len(state.AudioBuffer) == 0 {
			return failure(CodeMissingAudioBuffer, "No audio buffer available")
		}

		mimeType := "audio/mp3"
		if state.Audio != nil && state.Audio.MIMEType != "" {
			mimeType = state.Audio.MIMEType
		}

		result, err := transcriber.Transcribe(ctx, state.AudioBuffer, mimeType)
		if err != nil {
			return failure(CodeTranscriptionError, fmt.Sprintf("Transcription failed: %v", err))
		}

		return Update{
			Transcription: utils.Ptr(result.Text),
			CurrentStep:   utils.Ptr("transcription_completed"),
		}
	}
}

// summarizeNode calls the summarization collaborator on the transcript.
func summarizeNode(summarizer Summarizer) graph.NodeFunc[State, Update] {
	return func(ctx context.Context, state State) Update {
		if state.Transcription == "" {
			return failure(CodeMissingTranscription, "No transcription available")
		}

		result, err := summarizer.Summarize(ctx, state.Transcription)
		if err != nil {
			return failure(CodeSummarizationError, fmt.Sprintf("Summarization failed: %v", err))
		}

		return Update{
			Summary: &Summary{
				Bullets:  result.Bullets,
				NextStep: result.NextStep,
			},
			CurrentStep: utils.Ptr("summarization_completed"),
		}
	}
}

// decideEmailModeNode is the branch point. It mutates nothing but the step
// label; the actual routing is done by routeEmailDecision on the graph's
// conditional edge.
func decideEmailModeNode() graph.NodeFunc[State, Update] {
	return func(_ context.Context, state State) Update {
		step := "sending_immediately"
		if state.SendMode == SendScheduled {
			step = "scheduling_email"
		}
		return Update{CurrentStep: utils.Ptr(step)}
	}
}

// routeEmailDecision is the pure routing function for the conditional edge.
// Scheduled mode routes to the scheduling node; everything else (including
// the zero value, whose default is instant) routes to the send node.
func routeEmailDecision(state State) string {
	switch state.SendMode {
	case SendScheduled:
		return routeScheduling
	default:
		return routeEmail
	}
}

// sendEmailNode delivers the summary immediately through the send
// collaborator. Terminal on success.
func sendEmailNode(sender Sender) graph.NodeFunc[State, Update] {
	return func(ctx context.Context, state State) Update {
		if state.Summary == nil || state.RecipientEmail == "" {
			return failure(CodeMissingEmailData, "Missing summary or email address")
		}

		result, err := sender.Send(ctx, email.Params{
			To:            state.RecipientEmail,
			Subject:       emailSubject,
			Bullets:       state.Summary.Bullets,
			NextStep:      state.Summary.NextStep,
			Transcription: state.Transcription,
		})
		if err != nil {
			return failure(CodeEmailError, fmt.Sprintf("Email sending failed: %v", err))
		}

		return Update{
			EmailSent:   utils.Ptr(true),
			EmailID:     utils.Ptr(result.ID),
			Status:      utils.Ptr(StatusCompleted),
			CurrentStep: utils.Ptr("email_sent"),
		}
	}
}

// scheduleEmailNode registers a deferred send with the scheduler instead of
// sending now. Terminal on success.
func scheduleEmailNode(scheduler Scheduler) graph.NodeFunc[State, Update] {
	return func(ctx context.Context, state State) Update {
		if state.Summary == nil || state.RecipientEmail == "" || state.ScheduledTime == nil {
			return failure(CodeMissingSchedulingData, "Missing data for scheduling")
		}

		jobID := "email-" + uuid.NewString()

		err := scheduler.Schedule(ctx, jobID, email.Params{
			To:            state.RecipientEmail,
			Subject:       emailSubject,
			Bullets:       state.Summary.Bullets,
			NextStep:      state.Summary.NextStep,
			Transcription: state.Transcription,
		}, *state.ScheduledTime)
		if err != nil {
			return failure(CodeSchedulingError, fmt.Sprintf("Scheduling failed: %v", err))
		}

		return Update{
			JobID:       utils.Ptr(jobID),
			Status:      utils.Ptr(StatusCompleted),
			CurrentStep: utils.Ptr("email_scheduled"),
		}
	}
}
