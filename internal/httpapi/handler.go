package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/voicegraph/voicegraph/agent"
	"github.com/voicegraph/voicegraph/observability"
	"github.com/voicegraph/voicegraph/scheduler"
)

// maxUploadBytes caps the multipart request body. The workflow applies its
// own, tighter audio size policy; this is only the transport backstop.
const maxUploadBytes = 64 << 20

const (
	codeMissingFields        = "MISSING_FIELDS"
	codeMissingScheduledTime = "MISSING_SCHEDULED_TIME"
	codeInvalidScheduledTime = "INVALID_SCHEDULED_TIME"
	codeInvalidRequest       = "INVALID_REQUEST"
	codeJobNotFound          = "JOB_NOT_FOUND"
	codeExecutionError       = "EXECUTION_ERROR"
	codeUnknownError         = "UNKNOWN_ERROR"
)

// Runner executes the voice agent workflow to its terminal state.
type Runner interface {
	Run(ctx context.Context, initial agent.State) (agent.State, error)
}

// JobManager inspects and cancels deferred email jobs.
type JobManager interface {
	Status(ctx context.Context, jobID string) (scheduler.JobInfo, error)
	Cancel(ctx context.Context, jobID string) error
}

// Handler serves the voice agent HTTP API.
type Handler struct {
	runner   Runner
	jobs     JobManager
	observer observability.Provider
	now      func() time.Time
	mux      *http.ServeMux
}

// HandlerOption customizes a Handler.
type HandlerOption func(*Handler)

// WithObserver attaches an observability provider to the handler.
func WithObserver(observer observability.Provider) HandlerOption {
	return func(h *Handler) {
		h.observer = observer
	}
}

// WithClock overrides the handler's time source.
func WithClock(now func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.now = now
	}
}

// NewHandler creates the API handler.
//
//	POST   /api/voice-agent   run the workflow on an uploaded clip
//	GET    /api/jobs/{id}     snapshot of a scheduled job
//	DELETE /api/jobs/{id}     cancel a scheduled job
func NewHandler(runner Runner, jobs JobManager, opts ...HandlerOption) *Handler {
	h := &Handler{
		runner:   runner,
		jobs:     jobs,
		observer: observability.NewNoop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}

	h.mux = http.NewServeMux()
	h.mux.HandleFunc("POST /api/voice-agent", h.handleVoiceAgent)
	h.mux.HandleFunc("GET /api/jobs/{id}", h.handleJobStatus)
	h.mux.HandleFunc("DELETE /api/jobs/{id}", h.handleJobCancel)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// voiceAgentResponse is the envelope for a successful workflow run.
type voiceAgentResponse struct {
	Success       bool           `json:"success"`
	Status        agent.Status   `json:"status"`
	Transcription string         `json:"transcription,omitempty"`
	Summary       *agent.Summary `json:"summary,omitempty"`
	EmailSent     bool           `json:"emailSent,omitempty"`
	EmailID       string         `json:"emailId,omitempty"`
	JobID         string         `json:"jobId,omitempty"`
	CurrentStep   string         `json:"currentStep,omitempty"`
}

func (h *Handler) handleVoiceAgent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.writeValidationError(w, http.StatusBadRequest, "Invalid multipart form data", codeInvalidRequest)
		return
	}

	recipientEmail := r.FormValue("email")
	audioFile, audioHeader, err := r.FormFile("audio")
	if err != nil || recipientEmail == "" {
		if audioFile != nil {
			_ = audioFile.Close()
		}
		h.writeValidationError(w, http.StatusBadRequest, "Missing required fields: audio and email", codeMissingFields)
		return
	}
	defer func() { _ = audioFile.Close() }()

	audioData, err := io.ReadAll(audioFile)
	if err != nil {
		h.writeValidationError(w, http.StatusBadRequest, "Failed to read audio upload", codeInvalidRequest)
		return
	}

	// Anything other than an explicit "scheduled" falls back to an
	// immediate send.
	sendMode := agent.SendInstant
	if parsed, parseErr := agent.ParseSendMode(r.FormValue("sendMode")); parseErr == nil {
		sendMode = parsed
	}

	var scheduledTime *time.Time
	if raw := r.FormValue("scheduledTime"); raw != "" {
		parsed, parseErr := time.Parse(time.RFC3339, raw)
		if parseErr != nil {
			h.writeValidationError(w, http.StatusBadRequest, "Scheduled time must be a valid RFC 3339 timestamp", codeInvalidScheduledTime)
			return
		}
		scheduledTime = &parsed
	}
	if sendMode == agent.SendScheduled && scheduledTime == nil {
		h.writeValidationError(w, http.StatusBadRequest, "Scheduled time is required for scheduled mode", codeMissingScheduledTime)
		return
	}
	if scheduledTime != nil && !scheduledTime.After(h.now()) {
		h.writeValidationError(w, http.StatusBadRequest, "Scheduled time must be in the future", codeInvalidScheduledTime)
		return
	}

	initial := agent.State{
		Audio: &agent.AudioInput{
			Data:     audioData,
			MIMEType: audioHeader.Header.Get("Content-Type"),
		},
		RecipientEmail: recipientEmail,
		SendMode:       sendMode,
		ScheduledTime:  scheduledTime,
		Status:         agent.StatusIdle,
	}

	final, err := h.runner.Run(ctx, initial)
	if err != nil {
		h.observer.Error(ctx, "voice agent run aborted", observability.Error(err))
		h.writeWorkflowError(w, "Workflow execution aborted", codeExecutionError)
		return
	}

	if final.Status == agent.StatusFailed {
		message, code := "Unknown error", codeUnknownError
		if final.Err != nil {
			message, code = final.Err.Message, final.Err.Code
		}
		h.writeWorkflowError(w, message, code)
		return
	}

	h.writeJSON(w, http.StatusOK, voiceAgentResponse{
		Success:       true,
		Status:        final.Status,
		Transcription: final.Transcription,
		Summary:       final.Summary,
		EmailSent:     final.EmailSent,
		EmailID:       final.EmailID,
		JobID:         final.JobID,
		CurrentStep:   final.CurrentStep,
	})
}

func (h *Handler) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	info, err := h.jobs.Status(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, scheduler.ErrJobNotFound) {
			h.writeValidationError(w, http.StatusNotFound, "Job not found", codeJobNotFound)
			return
		}
		h.observer.Error(r.Context(), "job status lookup failed", observability.Error(err))
		h.writeValidationError(w, http.StatusInternalServerError, "Failed to look up job", codeUnknownError)
		return
	}
	h.writeJSON(w, http.StatusOK, info)
}

func (h *Handler) handleJobCancel(w http.ResponseWriter, r *http.Request) {
	if err := h.jobs.Cancel(r.Context(), r.PathValue("id")); err != nil {
		h.observer.Error(r.Context(), "job cancel failed", observability.Error(err))
		h.writeValidationError(w, http.StatusInternalServerError, "Failed to cancel job", codeUnknownError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type validationError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type workflowError struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

func (h *Handler) writeValidationError(w http.ResponseWriter, status int, message, code string) {
	h.writeJSON(w, status, validationError{Error: message, Code: code})
}

func (h *Handler) writeWorkflowError(w http.ResponseWriter, message, code string) {
	h.writeJSON(w, http.StatusInternalServerError, workflowError{Success: false, Error: message, Code: code})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.observer.Error(context.Background(), "failed to encode response", observability.Error(err))
	}
}
