package onboarding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const maxLoggedBody = 2048

// httpResult is a completed round trip. Body is truncated for logging.
type httpResult struct {
	Status int
	Body   string
}

// postJSON sends body as JSON and reads at most maxLoggedBody bytes of the reply.
// A non-nil error means no response was received.
func postJSON(ctx context.Context, client *http.Client, url string, body any, decorate func(*http.Request)) (*httpResult, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if decorate != nil {
		decorate(req)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxLoggedBody))
	// drain so the connection can be reused
	_, _ = io.Copy(io.Discard, resp.Body)
	return &httpResult{Status: resp.StatusCode, Body: string(b)}, nil
}
