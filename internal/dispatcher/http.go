// http.go runs Call: http tasks and wraps the round trip in a
// github.com/sony/gobreaker circuit breaker per endpoint, so a flapping
// downstream stops being hammered by every in-flight instance retrying
// concurrently — the engine-wide analogue of the teacher's per-host
// connection reuse in internal/tasks/ssh.
package dispatcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/danrygg/wovenflow/internal/wferrors"
)

// HTTPExecutor invokes Call: http tasks.
type HTTPExecutor struct {
	client *http.Client

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

func NewHTTPExecutor(client *http.Client) *HTTPExecutor {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPExecutor{client: client, breakers: make(map[string]*gobreaker.CircuitBreaker)}
}

func (e *HTTPExecutor) breakerFor(endpoint string) *gobreaker.CircuitBreaker {
	e.mu.Lock()
	defer e.mu.Unlock()
	if cb, ok := e.breakers[endpoint]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        endpoint,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	e.breakers[endpoint] = cb
	return cb
}

func (e *HTTPExecutor) Call(ctx context.Context, args map[string]interface{}, dctx DispatchContext) (interface{}, error) {
	method, _ := args["method"].(string)
	if method == "" {
		method = "GET"
	}
	endpoint, _ := args["endpoint"].(string)
	if endpoint == "" {
		return nil, fmt.Errorf("http: with.endpoint is required")
	}

	var body io.Reader
	if b, ok := args["body"]; ok {
		encoded, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("http: encode body: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	cb := e.breakerFor(endpoint)
	result, err := cb.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, strings.ToUpper(method), endpoint, body)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if headers, ok := args["headers"].(map[string]interface{}); ok {
			for k, v := range headers {
				req.Header.Set(k, fmt.Sprintf("%v", v))
			}
		}
		if dctx.Authorization != nil {
			if token, ok := dctx.Authorization["token"].(string); ok && token != "" {
				req.Header.Set("Authorization", "Bearer "+token)
			}
		}

		resp, err := e.client.Do(req)
		if err != nil {
			return nil, wferrors.NewRetryableError(err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
		if err != nil {
			return nil, wferrors.NewRetryableError(err)
		}

		if resp.StatusCode >= 500 {
			return nil, wferrors.NewRetryableError(fmt.Errorf("http: %s returned %d: %s", endpoint, resp.StatusCode, respBody))
		}
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("http: %s returned %d: %s", endpoint, resp.StatusCode, respBody)
		}

		var decoded interface{}
		if len(respBody) > 0 {
			if err := json.Unmarshal(respBody, &decoded); err != nil {
				decoded = string(respBody)
			}
		}
		return map[string]interface{}{
			"statusCode": resp.StatusCode,
			"headers":    resp.Header,
			"body":       decoded,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
