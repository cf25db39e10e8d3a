package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func sampleParams() Params {
	return Params{
		To:            "user@example.com",
		Subject:       "Voice Agent Summary - Your Voice Note",
		Bullets:       []string{"Call the plumber", "Book the venue"},
		NextStep:      "Call the plumber tomorrow",
		Transcription: "remember to call the plumber and book the venue",
	}
}

func TestRenderBody_ContainsSummaryContent(testCase *testing.T) {
	html, text, err := renderBody(sampleParams())
	if err != nil {
		testCase.Fatalf("unexpected render error: %v", err)
	}

	for _, want := range []string{"Call the plumber", "Book the venue", "Call the plumber tomorrow"} {
		if !strings.Contains(html, want) {
			testCase.Errorf("expected HTML body to contain %q", want)
		}
		if !strings.Contains(text, want) {
			testCase.Errorf("expected text body to contain %q", want)
		}
	}
	if !strings.Contains(html, "Full Transcription") {
		testCase.Error("expected transcription section in HTML body")
	}
}

func TestRenderBody_OmitsEmptyTranscription(testCase *testing.T) {
	params := sampleParams()
	params.Transcription = ""

	html, _, err := renderBody(params)
	if err != nil {
		testCase.Fatalf("unexpected render error: %v", err)
	}
	if strings.Contains(html, "Full Transcription") {
		testCase.Error("expected no transcription section for empty transcription")
	}
}

func TestRenderBody_EscapesHTMLInContent(testCase *testing.T) {
	params := sampleParams()
	params.Bullets = []string{"<script>alert(1)</script>"}

	html, _, err := renderBody(params)
	if err != nil {
		testCase.Fatalf("unexpected render error: %v", err)
	}
	if strings.Contains(html, "<script>alert(1)</script>") {
		testCase.Error("expected bullet content to be escaped")
	}
}

func TestSend_RoundTrip(testCase *testing.T) {
	var got sendRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != sendEndpoint {
			testCase.Errorf("expected path %s, got %s", sendEndpoint, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			testCase.Errorf("expected bearer auth, got %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			testCase.Errorf("failed to decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"id": "re_abc123"}`))
	}))
	defer server.Close()

	client := NewClient().
		WithAPIKey("test-key").
		WithBaseURL(server.URL).
		WithFrom("Tester <test@example.com>")

	result, err := client.Send(context.Background(), sampleParams())
	if err != nil {
		testCase.Fatalf("unexpected send error: %v", err)
	}
	if result.ID != "re_abc123" || result.Status != "sent" {
		testCase.Errorf("unexpected result %+v", result)
	}
	if got.From != "Tester <test@example.com>" {
		testCase.Errorf("expected configured from address, got %q", got.From)
	}
	if len(got.To) != 1 || got.To[0] != "user@example.com" {
		testCase.Errorf("expected single recipient, got %v", got.To)
	}
	if got.HTML == "" || got.Text == "" {
		testCase.Error("expected both HTML and text bodies in request")
	}
}

func TestSend_RequiresAPIKey(testCase *testing.T) {
	client := NewClient().WithAPIKey("")
	if _, err := client.Send(context.Background(), sampleParams()); err == nil {
		testCase.Fatal("expected error without API key, got nil")
	}
}

func TestSend_EmptyProviderResponse(testCase *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient().WithAPIKey("test-key").WithBaseURL(server.URL)
	if _, err := client.Send(context.Background(), sampleParams()); err == nil {
		testCase.Fatal("expected error for empty provider response, got nil")
	}
}

func TestSend_ProviderError(testCase *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message": "invalid to address"}`))
	}))
	defer server.Close()

	client := NewClient().WithAPIKey("test-key").WithBaseURL(server.URL)
	_, err := client.Send(context.Background(), sampleParams())
	if err == nil {
		testCase.Fatal("expected error for provider rejection, got nil")
	}
	if !strings.Contains(err.Error(), "422") {
		testCase.Errorf("expected status code in error, got: %v", err)
	}
}
