package agent

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/voicegraph/voicegraph/services/email"
	"github.com/voicegraph/voicegraph/services/summarization"
	"github.com/voicegraph/voicegraph/services/transcription"
)

// --- Mock Collaborators ---

type mockTranscriber struct {
	calls  int
	result *transcription.Result
	err    error
}

func (m *mockTranscriber) Transcribe(_ context.Context, _ []byte, _ string) (*transcription.Result, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

type mockSummarizer struct {
	calls  int
	result *summarization.Result
	err    error
}

func (m *mockSummarizer) Summarize(_ context.Context, _ string) (*summarization.Result, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

type mockSender struct {
	calls  int
	params email.Params
	result *email.Result
	err    error
}

func (m *mockSender) Send(_ context.Context, params email.Params) (*email.Result, error) {
	m.calls++
	m.params = params
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

type mockScheduler struct {
	calls  int
	jobID  string
	params email.Params
	runAt  time.Time
	err    error
}

func (m *mockScheduler) Schedule(_ context.Context, jobID string, params email.Params, runAt time.Time) error {
	m.calls++
	m.jobID = jobID
	m.params = params
	m.runAt = runAt
	return m.err
}

// --- Helpers ---

type testCollaborators struct {
	transcriber *mockTranscriber
	summarizer  *mockSummarizer
	sender      *mockSender
	scheduler   *mockScheduler
}

func newTestCollaborators() testCollaborators {
	return testCollaborators{
		transcriber: &mockTranscriber{result: &transcription.Result{Text: "remember to call the plumber tomorrow"}},
		summarizer: &mockSummarizer{result: &summarization.Result{
			Bullets:  []string{"Call the plumber"},
			NextStep: "Call the plumber tomorrow morning",
		}},
		sender:    &mockSender{result: &email.Result{ID: "re_abc123", Status: "sent"}},
		scheduler: &mockScheduler{},
	}
}

func newTestAgent(testCase *testing.T, deps testCollaborators) *Agent {
	testCase.Helper()
	voiceAgent, err := New(Config{
		Transcriber: deps.transcriber,
		Summarizer:  deps.summarizer,
		Sender:      deps.sender,
		Scheduler:   deps.scheduler,
		Audio: &AudioPolicy{
			MaxSizeBytes: 1 << 20,
			AllowedTypes: []string{"audio/wav", "audio/mp3"},
		},
	})
	if err != nil {
		testCase.Fatalf("failed to create agent: %v", err)
	}
	return voiceAgent
}

func instantState() State {
	return State{
		Audio:          &AudioInput{Data: []byte("fake-wav-bytes"), MIMEType: "audio/wav"},
		RecipientEmail: "user@example.com",
		SendMode:       SendInstant,
		Status:         StatusIdle,
	}
}

func scheduledState(runAt time.Time) State {
	state := instantState()
	state.SendMode = SendScheduled
	state.ScheduledTime = &runAt
	return state
}

// --- Construction Tests ---

func TestNew_RequiresAllCollaborators(testCase *testing.T) {
	deps := newTestCollaborators()

	cases := []struct {
		name string
		cfg  Config
	}{
		{"missing transcriber", Config{Summarizer: deps.summarizer, Sender: deps.sender, Scheduler: deps.scheduler}},
		{"missing summarizer", Config{Transcriber: deps.transcriber, Sender: deps.sender, Scheduler: deps.scheduler}},
		{"missing sender", Config{Transcriber: deps.transcriber, Summarizer: deps.summarizer, Scheduler: deps.scheduler}},
		{"missing scheduler", Config{Transcriber: deps.transcriber, Summarizer: deps.summarizer, Sender: deps.sender}},
	}
	for _, current := range cases {
		if _, err := New(current.cfg); err == nil {
			testCase.Errorf("%s: expected error, got nil", current.name)
		}
	}
}

// --- Happy Path Tests ---

func TestRun_InstantMode_SendsEmail(testCase *testing.T) {
	deps := newTestCollaborators()
	voiceAgent := newTestAgent(testCase, deps)

	final, err := voiceAgent.Run(context.Background(), instantState())
	if err != nil {
		testCase.Fatalf("unexpected run error: %v", err)
	}

	if final.Status != StatusCompleted {
		testCase.Fatalf("expected completed status, got %q (err=%+v)", final.Status, final.Err)
	}
	if final.Transcription != "remember to call the plumber tomorrow" {
		testCase.Errorf("unexpected transcription %q", final.Transcription)
	}
	if final.Summary == nil || len(final.Summary.Bullets) != 1 {
		testCase.Fatalf("expected one-bullet summary, got %+v", final.Summary)
	}
	if !final.EmailSent || final.EmailID != "re_abc123" {
		testCase.Errorf("expected email sent with id re_abc123, got sent=%v id=%q", final.EmailSent, final.EmailID)
	}
	if final.JobID != "" {
		testCase.Errorf("expected no job id on instant run, got %q", final.JobID)
	}
	if final.CurrentStep != "email_sent" {
		testCase.Errorf("expected step email_sent, got %q", final.CurrentStep)
	}
	if deps.scheduler.calls != 0 {
		testCase.Errorf("expected scheduler untouched, got %d calls", deps.scheduler.calls)
	}
	if deps.sender.params.To != "user@example.com" {
		testCase.Errorf("expected recipient forwarded to sender, got %q", deps.sender.params.To)
	}
	if deps.sender.params.Transcription != final.Transcription {
		testCase.Error("expected transcription forwarded to sender")
	}
}

func TestRun_ScheduledMode_RegistersJob(testCase *testing.T) {
	deps := newTestCollaborators()
	voiceAgent := newTestAgent(testCase, deps)
	runAt := time.Now().Add(2 * time.Hour).UTC()

	final, err := voiceAgent.Run(context.Background(), scheduledState(runAt))
	if err != nil {
		testCase.Fatalf("unexpected run error: %v", err)
	}

	if final.Status != StatusCompleted {
		testCase.Fatalf("expected completed status, got %q (err=%+v)", final.Status, final.Err)
	}
	if final.JobID == "" || !strings.HasPrefix(final.JobID, "email-") {
		testCase.Errorf("expected job id with email- prefix, got %q", final.JobID)
	}
	if final.EmailSent || final.EmailID != "" {
		testCase.Errorf("expected no immediate send on scheduled run, got sent=%v id=%q", final.EmailSent, final.EmailID)
	}
	if final.CurrentStep != "email_scheduled" {
		testCase.Errorf("expected step email_scheduled, got %q", final.CurrentStep)
	}
	if deps.sender.calls != 0 {
		testCase.Errorf("expected sender untouched, got %d calls", deps.sender.calls)
	}
	if deps.scheduler.calls != 1 {
		testCase.Fatalf("expected one schedule call, got %d", deps.scheduler.calls)
	}
	if !deps.scheduler.runAt.Equal(runAt) {
		testCase.Errorf("expected run time %v forwarded, got %v", runAt, deps.scheduler.runAt)
	}
	if deps.scheduler.jobID != final.JobID {
		testCase.Errorf("expected state job id to match scheduled id: %q vs %q", final.JobID, deps.scheduler.jobID)
	}
}

// --- Failure Path Tests ---

func TestRun_MissingAudio_FailsBeforeTranscription(testCase *testing.T) {
	deps := newTestCollaborators()
	voiceAgent := newTestAgent(testCase, deps)

	state := instantState()
	state.Audio = nil

	final, err := voiceAgent.Run(context.Background(), state)
	if err != nil {
		testCase.Fatalf("unexpected run error: %v", err)
	}
	if final.Status != StatusFailed {
		testCase.Fatalf("expected failed status, got %q", final.Status)
	}
	if final.Err == nil || final.Err.Code != CodeMissingAudio {
		testCase.Errorf("expected code %s, got %+v", CodeMissingAudio, final.Err)
	}
	if deps.transcriber.calls != 0 || deps.summarizer.calls != 0 || deps.sender.calls != 0 {
		testCase.Error("expected no downstream collaborator calls after missing audio")
	}
}

func TestRun_AudioPolicyRejection(testCase *testing.T) {
	deps := newTestCollaborators()
	voiceAgent := newTestAgent(testCase, deps)

	state := instantState()
	state.Audio.MIMEType = "video/mp4"

	final, err := voiceAgent.Run(context.Background(), state)
	if err != nil {
		testCase.Fatalf("unexpected run error: %v", err)
	}
	if final.Err == nil || final.Err.Code != CodeAudioValidationFailed {
		testCase.Errorf("expected code %s, got %+v", CodeAudioValidationFailed, final.Err)
	}
	if deps.transcriber.calls != 0 {
		testCase.Errorf("expected transcriber untouched, got %d calls", deps.transcriber.calls)
	}
}

func TestRun_TranscriptionFailure_ShortCircuits(testCase *testing.T) {
	deps := newTestCollaborators()
	deps.transcriber.err = errors.New("whisper is down")
	voiceAgent := newTestAgent(testCase, deps)

	final, err := voiceAgent.Run(context.Background(), instantState())
	if err != nil {
		testCase.Fatalf("unexpected run error: %v", err)
	}
	if final.Status != StatusFailed {
		testCase.Fatalf("expected failed status, got %q", final.Status)
	}
	if final.Err == nil || final.Err.Code != CodeTranscriptionError {
		testCase.Errorf("expected code %s, got %+v", CodeTranscriptionError, final.Err)
	}
	if !strings.Contains(final.Err.Message, "whisper is down") {
		testCase.Errorf("expected original error in message, got %q", final.Err.Message)
	}
	if deps.summarizer.calls != 0 || deps.sender.calls != 0 || deps.scheduler.calls != 0 {
		testCase.Error("expected no collaborator calls after transcription failure")
	}
}

func TestRun_SummarizationFailure_ShortCircuits(testCase *testing.T) {
	deps := newTestCollaborators()
	deps.summarizer.err = errors.New("model overloaded")
	voiceAgent := newTestAgent(testCase, deps)

	final, err := voiceAgent.Run(context.Background(), instantState())
	if err != nil {
		testCase.Fatalf("unexpected run error: %v", err)
	}
	if final.Err == nil || final.Err.Code != CodeSummarizationError {
		testCase.Errorf("expected code %s, got %+v", CodeSummarizationError, final.Err)
	}
	if final.Transcription == "" {
		testCase.Error("expected transcription preserved in failed state")
	}
	if deps.sender.calls != 0 {
		testCase.Errorf("expected sender untouched, got %d calls", deps.sender.calls)
	}
}

func TestRun_EmailFailure(testCase *testing.T) {
	deps := newTestCollaborators()
	deps.sender.err = errors.New("resend rejected the request")
	voiceAgent := newTestAgent(testCase, deps)

	final, err := voiceAgent.Run(context.Background(), instantState())
	if err != nil {
		testCase.Fatalf("unexpected run error: %v", err)
	}
	if final.Err == nil || final.Err.Code != CodeEmailError {
		testCase.Errorf("expected code %s, got %+v", CodeEmailError, final.Err)
	}
	if final.EmailSent {
		testCase.Error("expected EmailSent false after send failure")
	}
}

func TestRun_SchedulingFailure(testCase *testing.T) {
	deps := newTestCollaborators()
	deps.scheduler.err = errors.New("duplicate job id")
	voiceAgent := newTestAgent(testCase, deps)

	final, err := voiceAgent.Run(context.Background(), scheduledState(time.Now().Add(time.Hour)))
	if err != nil {
		testCase.Fatalf("unexpected run error: %v", err)
	}
	if final.Err == nil || final.Err.Code != CodeSchedulingError {
		testCase.Errorf("expected code %s, got %+v", CodeSchedulingError, final.Err)
	}
	if final.JobID != "" {
		testCase.Errorf("expected no job id after scheduling failure, got %q", final.JobID)
	}
}

func TestRun_ScheduledMode_MissingTime(testCase *testing.T) {
	deps := newTestCollaborators()
	voiceAgent := newTestAgent(testCase, deps)

	state := instantState()
	state.SendMode = SendScheduled

	final, err := voiceAgent.Run(context.Background(), state)
	if err != nil {
		testCase.Fatalf("unexpected run error: %v", err)
	}
	if final.Err == nil || final.Err.Code != CodeMissingSchedulingData {
		testCase.Errorf("expected code %s, got %+v", CodeMissingSchedulingData, final.Err)
	}
	if deps.scheduler.calls != 0 {
		testCase.Errorf("expected scheduler untouched, got %d calls", deps.scheduler.calls)
	}
}

// --- Node Precondition Tests ---

func TestTranscribeNode_MissingBuffer(testCase *testing.T) {
	transcriber := &mockTranscriber{result: &transcription.Result{Text: "never used"}}

	update := transcribeNode(transcriber)(context.Background(), State{})

	if update.Status == nil || *update.Status != StatusFailed {
		testCase.Fatalf("expected failed status, got %+v", update.Status)
	}
	if update.Err == nil || update.Err.Code != CodeMissingAudioBuffer {
		testCase.Errorf("expected code %s, got %+v", CodeMissingAudioBuffer, update.Err)
	}
	if transcriber.calls != 0 {
		testCase.Errorf("expected transcriber untouched, got %d calls", transcriber.calls)
	}
}

func TestSummarizeNode_MissingTranscription(testCase *testing.T) {
	summarizer := &mockSummarizer{result: &summarization.Result{Bullets: []string{"never used"}}}

	update := summarizeNode(summarizer)(context.Background(), State{AudioBuffer: []byte("audio")})

	if update.Status == nil || *update.Status != StatusFailed {
		testCase.Fatalf("expected failed status, got %+v", update.Status)
	}
	if update.Err == nil || update.Err.Code != CodeMissingTranscription {
		testCase.Errorf("expected code %s, got %+v", CodeMissingTranscription, update.Err)
	}
	if summarizer.calls != 0 {
		testCase.Errorf("expected summarizer untouched, got %d calls", summarizer.calls)
	}
}

// --- Routing Tests ---

func TestRouteEmailDecision_IsExhaustive(testCase *testing.T) {
	cases := []struct {
		mode SendMode
		want string
	}{
		{SendInstant, routeEmail},
		{SendScheduled, routeScheduling},
		{SendMode(""), routeEmail},
		{SendMode("garbage"), routeEmail},
	}
	for _, current := range cases {
		got := routeEmailDecision(State{SendMode: current.mode})
		if got != current.want {
			testCase.Errorf("mode %q: expected route %q, got %q", current.mode, current.want, got)
		}
	}
}
