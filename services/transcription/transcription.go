// Package transcription converts audio clips to text through a
// Whisper-compatible HTTP API. The clip is uploaded as a multipart form with
// a filename extension derived from its MIME type; the verbose response
// carries text, duration, and detected language.
package transcription

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/voicegraph/voicegraph/internal/utils"
)

const (
	defaultBaseURL     = "https://api.openai.com/v1"
	transcriptionsPath = "/audio/transcriptions"
	transcriptionModel = "whisper-1"
	verboseJSONFormat  = "verbose_json"
	fallbackExtension  = "mp3"
)

// Result is the transcription at the collaborator boundary.
type Result struct {
	Text     string  `json:"text"`
	Duration float64 `json:"duration"`
	Language string  `json:"language,omitempty"`
}

// Client implements the Transcriber boundary against a Whisper-compatible
// endpoint.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewClient creates a client configured from the environment:
// OPENAI_API_KEY and OPENAI_API_BASE_URL.
func NewClient() *Client {
	baseURL := os.Getenv("OPENAI_API_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		apiKey:  os.Getenv("OPENAI_API_KEY"),
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

// WithAPIKey sets the API key for the client.
func (c *Client) WithAPIKey(apiKey string) *Client {
	c.apiKey = apiKey
	return c
}

// WithBaseURL overrides the default API base URL.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = baseURL
	return c
}

// WithHTTPClient sets a custom HTTP client.
func (c *Client) WithHTTPClient(httpClient *http.Client) *Client {
	c.client = httpClient
	return c
}

// Transcribe uploads the clip and returns the transcription. Any provider
// failure is reported as a generic transcription error.
func (c *Client) Transcribe(ctx context.Context, audio []byte, mimeType string) (*Result, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("transcription: API key is not set")
	}

	fileName := "audio." + extensionForMIMEType(mimeType)

	httpResponse, resp, err := utils.DoPostMultipart[Result](ctx, c.client, c.baseURL+transcriptionsPath, c.apiKey,
		map[string]string{
			"model":           transcriptionModel,
			"response_format": verboseJSONFormat,
		},
		"file", fileName, audio,
	)
	if err != nil {
		return nil, fmt.Errorf("transcription failed: %w", err)
	}
	if resp == nil || resp.Text == "" {
		return nil, fmt.Errorf("transcription failed: empty response from provider: %s", httpResponse.Status)
	}

	return resp, nil
}

// extensionForMIMEType maps the audio MIME type to the filename extension
// the upload endpoint expects.
func extensionForMIMEType(mimeType string) string {
	switch mimeType {
	case "audio/wav":
		return "wav"
	case "audio/mp3", "audio/mpeg":
		return "mp3"
	case "audio/webm":
		return "webm"
	case "audio/ogg":
		return "ogg"
	case "audio/m4a":
		return "m4a"
	default:
		return fallbackExtension
	}
}
