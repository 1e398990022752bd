// Package engine submits approval decisions to the workflow engine and
// normalizes its answer into a modal.Outcome.
package engine

import (
	"context"
	"fmt"
	"strings"

	"approval-bridge/internal/modal"
)

// Engine records a decision and reports the resulting task status.
type Engine interface {
	SubmitDecision(ctx context.Context, req modal.DecisionRequest) (modal.Outcome, error)
}

// CallError is returned when the engine rejects the call or cannot be reached.
// HTTPStatus is 0 for transport failures.
type CallError struct {
	HTTPStatus int
	Message    string
}

func (e *CallError) Error() string {
	if e.HTTPStatus == 0 {
		return fmt.Sprintf("workflow call failed: %s", e.Message)
	}
	return fmt.Sprintf("workflow call failed (HTTP %d): %s", e.HTTPStatus, e.Message)
}

var (
	statusKeys  = []string{"status", "Status", "approvalOutcome"}
	messageKeys = []string{"message", "Message"}
)

// NormalizeOutcome is the one place that knows which keys the engine uses.
// The backend is inconsistent about casing, so status is read from "status",
// "Status" or the legacy "approvalOutcome", and message from "message" or
// "Message". The first non-empty string wins.
func NormalizeOutcome(body map[string]any) modal.Outcome {
	return modal.NewOutcome(firstString(body, statusKeys), firstString(body, messageKeys))
}

func firstString(body map[string]any, keys []string) string {
	for _, k := range keys {
		v, ok := body[k]
		if !ok || v == nil {
			continue
		}
		var s string
		switch t := v.(type) {
		case string:
			s = t
		default:
			s = fmt.Sprint(t)
		}
		if strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}
