package agent

import (
	"time"

	"github.com/voicegraph/voicegraph/internal/utils"
)

// Node failure codes. Each node reports its own domain-specific failures
// under one of these codes; the engine never sees them as errors, only as
// terminal state data.
const (
	CodeMissingAudio          = "MISSING_AUDIO"
	CodeAudioValidationFailed = "AUDIO_VALIDATION_FAILED"
	CodeMissingAudioBuffer    = "MISSING_AUDIO_BUFFER"
	CodeTranscriptionError    = "TRANSCRIPTION_ERROR"
	CodeMissingTranscription  = "MISSING_TRANSCRIPTION"
	CodeSummarizationError    = "SUMMARIZATION_ERROR"
	CodeMissingEmailData      = "MISSING_EMAIL_DATA"
	CodeEmailError            = "EMAIL_ERROR"
	CodeMissingSchedulingData = "MISSING_SCHEDULING_DATA"
	CodeSchedulingError       = "SCHEDULING_ERROR"
)

// failure builds the terminal partial update for a node-local failure.
func failure(code, message string) Update {
	return Update{
		Status: utils.Ptr(StatusFailed),
		Err: &ErrorInfo{
			Code:      code,
			Message:   message,
			Timestamp: time.Now(),
		},
	}
}
