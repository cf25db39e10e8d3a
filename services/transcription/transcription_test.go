package transcription

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestExtensionForMIMEType(testCase *testing.T) {
	cases := []struct {
		mimeType string
		want     string
	}{
		{"audio/wav", "wav"},
		{"audio/mp3", "mp3"},
		{"audio/mpeg", "mp3"},
		{"audio/webm", "webm"},
		{"audio/ogg", "ogg"},
		{"audio/m4a", "m4a"},
		{"application/octet-stream", "mp3"},
		{"", "mp3"},
	}
	for _, current := range cases {
		if got := extensionForMIMEType(current.mimeType); got != current.want {
			testCase.Errorf("%q: expected %q, got %q", current.mimeType, current.want, got)
		}
	}
}

func TestTranscribe_RoundTrip(testCase *testing.T) {
	audio := []byte("fake-wav-bytes")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != transcriptionsPath {
			testCase.Errorf("expected path %s, got %s", transcriptionsPath, r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			testCase.Fatalf("failed to parse multipart form: %v", err)
		}
		if got := r.FormValue("model"); got != transcriptionModel {
			testCase.Errorf("expected model %q, got %q", transcriptionModel, got)
		}
		if got := r.FormValue("response_format"); got != verboseJSONFormat {
			testCase.Errorf("expected response format %q, got %q", verboseJSONFormat, got)
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			testCase.Fatalf("missing file part: %v", err)
		}
		defer func() { _ = file.Close() }()
		if header.Filename != "audio.wav" {
			testCase.Errorf("expected filename audio.wav, got %q", header.Filename)
		}
		uploaded, _ := io.ReadAll(file)
		if !bytes.Equal(uploaded, audio) {
			testCase.Error("expected uploaded bytes to match input")
		}

		_, _ = w.Write([]byte(`{"text": "hello world", "duration": 2.5, "language": "english"}`))
	}))
	defer server.Close()

	client := NewClient().WithAPIKey("test-key").WithBaseURL(server.URL)

	result, err := client.Transcribe(context.Background(), audio, "audio/wav")
	if err != nil {
		testCase.Fatalf("unexpected transcribe error: %v", err)
	}
	if result.Text != "hello world" {
		testCase.Errorf("expected text %q, got %q", "hello world", result.Text)
	}
	if result.Duration != 2.5 || result.Language != "english" {
		testCase.Errorf("unexpected metadata %+v", result)
	}
}

func TestTranscribe_RequiresAPIKey(testCase *testing.T) {
	client := NewClient().WithAPIKey("")
	if _, err := client.Transcribe(context.Background(), []byte("audio"), "audio/wav"); err == nil {
		testCase.Fatal("expected error without API key, got nil")
	}
}

func TestTranscribe_EmptyText(testCase *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"text": ""}`))
	}))
	defer server.Close()

	client := NewClient().WithAPIKey("test-key").WithBaseURL(server.URL)
	if _, err := client.Transcribe(context.Background(), []byte("audio"), "audio/wav"); err == nil {
		testCase.Fatal("expected error for empty transcription, got nil")
	}
}
