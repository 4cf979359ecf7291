package tool

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dshills/recovery-go/recovery"
)

// IdempotencyHeader is set on requests made inside a recovery step.
const IdempotencyHeader = "Idempotency-Key"

// HTTPTool performs HTTP requests.
//
// Input keys: "url" (required), "method" (GET or POST, default GET),
// "body" (string) and "headers" (map of strings). Output keys:
// "status_code", "headers", "body" and, when the call ran inside a step,
// "idempotency_key".
//
// Inside a step the request carries an Idempotency-Key header derived from
// the step's recovery location, computation and index, unless the input
// already sets one. If a run crashes after the server accepted a POST but
// before the step was recorded, the retried request carries the same key.
type HTTPTool struct {
	client *http.Client
}

// NewHTTPTool creates an HTTPTool with a 30 second timeout.
func NewHTTPTool() *HTTPTool {
	return &HTTPTool{client: &http.Client{Timeout: 30 * time.Second}}
}

// Name returns "http_request".
func (h *HTTPTool) Name() string { return "http_request" }

type httpRequest struct {
	method  string
	url     string
	body    string
	headers map[string]string
}

func parseHTTPRequest(input map[string]interface{}) (httpRequest, error) {
	req := httpRequest{method: http.MethodGet, headers: map[string]string{}}

	u, ok := input["url"].(string)
	if !ok || u == "" {
		return req, fmt.Errorf("url parameter required (string)")
	}
	req.url = u

	if m, ok := input["method"].(string); ok && m != "" {
		req.method = strings.ToUpper(m)
	}
	if req.method != http.MethodGet && req.method != http.MethodPost {
		return req, fmt.Errorf("unsupported HTTP method: %s (supported: GET, POST)", req.method)
	}

	req.body, _ = input["body"].(string)

	switch hs := input["headers"].(type) {
	case map[string]interface{}:
		for k, v := range hs {
			if s, ok := v.(string); ok {
				req.headers[http.CanonicalHeaderKey(k)] = s
			}
		}
	case map[string]string:
		for k, v := range hs {
			req.headers[http.CanonicalHeaderKey(k)] = v
		}
	}
	return req, nil
}

// Call performs the request described by input.
func (h *HTTPTool) Call(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	spec, err := parseHTTPRequest(input)
	if err != nil {
		return nil, err
	}

	step, inStep := recovery.StepFromContext(ctx)
	if _, set := spec.headers[IdempotencyHeader]; inStep && !set {
		spec.headers[IdempotencyHeader] = step.Key()
	}

	var body io.Reader
	if spec.body != "" {
		body = strings.NewReader(spec.body)
	}
	req, err := http.NewRequestWithContext(ctx, spec.method, spec.url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range spec.headers {
		req.Header.Set(k, v)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	respHeaders := make(map[string]interface{}, len(resp.Header))
	for key, values := range resp.Header {
		if len(values) == 1 {
			respHeaders[key] = values[0]
		} else {
			respHeaders[key] = values
		}
	}

	out := map[string]interface{}{
		"status_code": resp.StatusCode,
		"headers":     respHeaders,
		"body":        string(respBody),
	}
	if key, ok := spec.headers[IdempotencyHeader]; ok {
		out["idempotency_key"] = key
	}
	return out, nil
}
