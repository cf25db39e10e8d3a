// Package summarization turns transcript text into a structured summary
// (three to five bullets plus one next-step action) through a
// chat-completions HTTP API.
//
// The model is prompted to answer in strict JSON. Real model output is not
// always strict: parsing first tries the raw content, then a repaired
// version of it, and finally falls back to a single truncated-text bullet so
// that malformed provider output degrades the summary instead of failing
// the workflow.
package summarization

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/voicegraph/voicegraph/internal/utils"
)

const (
	defaultBaseURL      = "https://api.openai.com/v1"
	chatCompletionsPath = "/chat/completions"
	defaultModel        = "gpt-4o-mini"

	fallbackBulletLength = 200
	fallbackNextStep     = "Review the full transcription"
)

const summaryPrompt = `You are an AI assistant that creates structured summaries of transcribed audio.

Transcription:
%s

Create a summary with:
1. 3-5 key bullet points
2. One clear "next step" action item

Respond ONLY in this exact JSON format:
{
  "bullets": ["point 1", "point 2", "point 3"],
  "nextStep": "specific action to take"
}`

// Result is the structured summary at the collaborator boundary.
type Result struct {
	Bullets    []string `json:"bullets"`
	NextStep   string   `json:"nextStep"`
	Model      string   `json:"model"`
	TokensUsed int      `json:"tokensUsed"`
}

// Client implements the Summarizer boundary against a chat-completions
// endpoint.
type Client struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// NewClient creates a client configured from the environment:
// OPENAI_API_KEY, OPENAI_API_BASE_URL, and SUMMARY_MODEL.
func NewClient() *Client {
	baseURL := os.Getenv("OPENAI_API_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := os.Getenv("SUMMARY_MODEL")
	if model == "" {
		model = defaultModel
	}

	return &Client{
		apiKey:  os.Getenv("OPENAI_API_KEY"),
		baseURL: baseURL,
		model:   model,
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

// WithModel overrides the model used for summarization.
func (c *Client) WithModel(model string) *Client {
	c.model = model
	return c
}

// WithHTTPClient sets a custom HTTP client.
func (c *Client) WithHTTPClient(httpClient *http.Client) *Client {
	c.client = httpClient
	return c
}

// Wire types for the chat-completions API.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// Summarize produces the structured summary for the given transcript.
func (c *Client) Summarize(ctx context.Context, text string) (*Result, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("summarization: API key is not set")
	}

	httpResponse, resp, err := utils.DoPostSync[chatResponse](ctx, c.client, c.baseURL+chatCompletionsPath, c.apiKey, chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "user", Content: fmt.Sprintf(summaryPrompt, text)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("summarization failed: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, fmt.Errorf("summarization failed: no choices in response: %s", httpResponse.Status)
	}

	content := resp.Choices[0].Message.Content
	result := parseSummary(content)
	result.Model = c.model
	result.TokensUsed = resp.Usage.TotalTokens
	return result, nil
}

// jsonObjectPattern extracts the outermost JSON object from model output
// that wraps it in prose or code fences.
var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// parseSummary decodes the model's answer. It is total: any content that
// resists decoding (even after repair) yields the truncated-text fallback
// rather than an error.
func parseSummary(content string) *Result {
	raw := jsonObjectPattern.FindString(content)
	if raw == "" {
		return fallbackSummary(content)
	}

	var parsed struct {
		Bullets  []string `json:"bullets"`
		NextStep string   `json:"nextStep"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(raw)
		if repairErr != nil {
			return fallbackSummary(content)
		}
		if err := json.Unmarshal([]byte(repaired), &parsed); err != nil {
			return fallbackSummary(content)
		}
	}

	if len(parsed.Bullets) == 0 {
		return fallbackSummary(content)
	}
	if parsed.NextStep == "" {
		parsed.NextStep = "Review the transcription"
	}

	return &Result{Bullets: parsed.Bullets, NextStep: parsed.NextStep}
}

// fallbackSummary turns unusable model output into a single truncated
// bullet so the workflow can still deliver something readable.
func fallbackSummary(content string) *Result {
	bullet := utils.Truncate(strings.TrimSpace(content), fallbackBulletLength)
	return &Result{
		Bullets:  []string{bullet},
		NextStep: fallbackNextStep,
	}
}
