package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"approval-bridge/internal/modal"
)

const maxErrorDetail = 500

var errorKeys = []string{"message", "Message", "error"}

// TokenSource yields a bearer token for a single call.
type TokenSource interface {
	Acquire(ctx context.Context) (string, error)
}

// RESTClient calls the engine's decision endpoint over HTTP.
type RESTClient struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
}

func NewRESTClient(baseURL string, tokens TokenSource, timeout time.Duration) *RESTClient {
	return &RESTClient{
		baseURL:    baseURL,
		tokens:     tokens,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SubmitDecision acquires a fresh token and sends all five decision fields
// as query parameters. Token failures are returned unchanged.
func (c *RESTClient) SubmitDecision(ctx context.Context, req modal.DecisionRequest) (modal.Outcome, error) {
	token, err := c.tokens.Acquire(ctx)
	if err != nil {
		return modal.Outcome{}, err
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return modal.Outcome{}, &CallError{Message: fmt.Sprintf("invalid engine url: %v", err)}
	}
	q := u.Query()
	q.Set("taskid", req.TaskID)
	q.Set("action", string(req.Action))
	q.Set("npr", req.Requester)
	q.Set("comment", req.Comment)
	q.Set("requestedBy", req.RequestedBy)
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return modal.Outcome{}, &CallError{Message: err.Error()}
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return modal.Outcome{}, &CallError{Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return modal.Outcome{}, &CallError{HTTPStatus: resp.StatusCode, Message: fmt.Sprintf("read response: %v", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return modal.Outcome{}, &CallError{HTTPStatus: resp.StatusCode, Message: errorDetail(resp.StatusCode, body)}
	}

	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		return modal.Outcome{}, &CallError{HTTPStatus: resp.StatusCode, Message: "engine returned a non-JSON response"}
	}
	return NormalizeOutcome(parsed), nil
}

// errorDetail prefers a message field from a JSON error body, then the raw
// body text, then a generic fallback.
func errorDetail(status int, body []byte) string {
	var parsed map[string]any
	if json.Unmarshal(body, &parsed) == nil {
		if msg := firstString(parsed, errorKeys); msg != "" {
			return msg
		}
	}
	text := strings.TrimSpace(string(body))
	if text != "" && !strings.HasPrefix(text, "{") {
		if len(text) > maxErrorDetail {
			text = text[:maxErrorDetail]
		}
		return text
	}
	return fmt.Sprintf("workflow engine returned HTTP %d", status)
}

// IsCallError reports whether err came from the engine call itself.
func IsCallError(err error) bool {
	var ce *CallError
	return errors.As(err, &ce)
}
