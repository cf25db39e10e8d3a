package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/voicegraph/voicegraph/observability"
)

// DoPostSync performs a synchronous HTTP POST with a JSON body and parses the
// response into OutputStruct.
//
// Error handling strategy:
//   - Context errors (timeout, cancellation) are propagated immediately
//   - HTTP errors (connection failures, non-2xx status) return the error
//   - Response body close errors are logged but don't override primary errors
//   - JSON parsing errors include a response preview for debugging
//
// If a span is present in ctx, request and response events are attached to it.
func DoPostSync[OutputStruct any](ctx context.Context, client *http.Client, url string, apiKey string, body any) (*http.Response, *OutputStruct, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, nil, fmt.Errorf("error marshaling body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return doRequest[OutputStruct](ctx, client, req, apiKey, len(jsonBody))
}

// DoPostMultipart performs a synchronous HTTP POST with a multipart/form-data
// body containing one file part plus ordinary string fields, and parses the
// response into OutputStruct. It is used for audio upload endpoints.
func DoPostMultipart[OutputStruct any](ctx context.Context, client *http.Client, url string, apiKey string, fields map[string]string, fileField, fileName string, file []byte) (*http.Response, *OutputStruct, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, nil, fmt.Errorf("error writing form field %q: %w", key, err)
		}
	}

	part, err := writer.CreateFormFile(fileField, fileName)
	if err != nil {
		return nil, nil, fmt.Errorf("error creating file part: %w", err)
	}
	if _, err := part.Write(file); err != nil {
		return nil, nil, fmt.Errorf("error writing file part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, nil, fmt.Errorf("error finalizing multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return doRequest[OutputStruct](ctx, client, req, apiKey, buf.Len())
}

func doRequest[OutputStruct any](ctx context.Context, client *http.Client, req *http.Request, apiKey string, bodySize int) (*http.Response, *OutputStruct, error) {
	span := observability.SpanFromContext(ctx)

	httpClient := client
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	if span != nil {
		span.AddEvent("http.request.prepared",
			observability.String("http.method", req.Method),
			observability.String("http.url", req.URL.String()),
			observability.Int("http.request_body_size", bodySize),
		)
	}

	requestStart := time.Now()
	res, err := httpClient.Do(req)
	requestDuration := time.Since(requestStart)

	if err != nil {
		if span != nil {
			span.AddEvent("http.request.error",
				observability.Error(err),
				observability.Duration("http.request.duration", requestDuration),
			)
		}
		return res, nil, fmt.Errorf("error sending request: %w", err)
	}
	defer func(body io.ReadCloser) {
		if closeErr := body.Close(); closeErr != nil {
			// The primary error, if any, takes precedence.
			slog.Warn("failed to close response body", "error", closeErr.Error(), "url", req.URL.String())
		}
	}(res.Body)

	respBody, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("error reading response body: %w", err)
	}

	if span != nil {
		span.AddEvent("http.response.received",
			observability.Int("http.status_code", res.StatusCode),
			observability.Int("http.response_body_size", len(respBody)),
			observability.Duration("http.request.duration", requestDuration),
		)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return res, nil, fmt.Errorf("non-2xx status %d: %s", res.StatusCode, TruncateString(string(respBody), DefaultMaxStringLength))
	}

	var resStruct OutputStruct
	if err = json.Unmarshal(respBody, &resStruct); err != nil {
		return res, nil, fmt.Errorf("error unmarshaling response body (status %d): %w\nResponse preview: %s", res.StatusCode, err, TruncateString(string(respBody), DefaultMaxStringLength))
	}

	return res, &resStruct, nil
}
