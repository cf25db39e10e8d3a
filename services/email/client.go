package email

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/voicegraph/voicegraph/internal/utils"
)

const (
	defaultBaseURL = "https://api.resend.com"
	sendEndpoint   = "/emails"

	defaultFrom = "Voice Agent <onboarding@resend.dev>"
)

// Client implements the Sender boundary against the Resend HTTP API.
type Client struct {
	apiKey  string
	baseURL string
	from    string
	client  *http.Client
}

// NewClient creates a client configured from the environment:
// RESEND_API_KEY, RESEND_API_BASE_URL, and EMAIL_FROM.
func NewClient() *Client {
	baseURL := os.Getenv("RESEND_API_BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	from := os.Getenv("EMAIL_FROM")
	if from == "" {
		from = defaultFrom
	}

	return &Client{
		apiKey:  os.Getenv("RESEND_API_KEY"),
		baseURL: baseURL,
		from:    from,
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

// WithFrom sets the sender address.
func (c *Client) WithFrom(from string) *Client {
	c.from = from
	return c
}

// WithHTTPClient sets a custom HTTP client.
func (c *Client) WithHTTPClient(httpClient *http.Client) *Client {
	c.client = httpClient
	return c
}

// sendRequest is the provider wire format.
type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Text    string   `json:"text,omitempty"`
}

// sendResponse is the provider acknowledgement.
type sendResponse struct {
	ID string `json:"id"`
}

// Send renders the summary email and delivers it. Any provider failure is
// reported as a generic send error.
func (c *Client) Send(ctx context.Context, params Params) (*Result, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("email: API key is not set")
	}

	html, text, err := renderBody(params)
	if err != nil {
		return nil, fmt.Errorf("email sending failed: %w", err)
	}

	httpResponse, resp, err := utils.DoPostSync[sendResponse](ctx, c.client, c.baseURL+sendEndpoint, c.apiKey, sendRequest{
		From:    c.from,
		To:      []string{params.To},
		Subject: params.Subject,
		HTML:    html,
		Text:    text,
	})
	if err != nil {
		return nil, fmt.Errorf("email sending failed: %w", err)
	}
	if resp == nil || resp.ID == "" {
		return nil, fmt.Errorf("email sending failed: empty response from provider: %s", httpResponse.Status)
	}

	return &Result{ID: resp.ID, Status: "sent"}, nil
}
