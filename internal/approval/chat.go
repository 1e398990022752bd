package approval

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"approval-bridge/internal/interaction"
	"approval-bridge/internal/modal"
)

// CommentField identifies the dialog's comment input in field errors.
const CommentField = "comment"

// Chat is the part of the chat platform the orchestrator drives.
type Chat interface {
	OpenDialog(ctx context.Context, triggerID string, d Dialog) error
	PostThreadReply(ctx context.Context, channel, threadTS, text string) (string, error)
	UpdateText(ctx context.Context, channel, ts, text string) error
	UpdateBlocks(ctx context.Context, channel, ts string, blocks []interaction.Block, text string) error
}

// Dialog describes the confirmation dialog. Metadata is returned verbatim on
// submission.
type Dialog struct {
	Title           string
	SubmitLabel     string
	CancelLabel     string
	Summary         string
	CommentLabel    string
	CommentRequired bool
	Metadata        string
}

// Trigger is a click on one of the decision buttons.
type Trigger struct {
	TriggerID string
	ActionID  string
	Value     string
	ActorID   string
	Channel   string
	MessageTS string
	Blocks    []interaction.Block
}

// Submission is a submitted confirmation dialog.
type Submission struct {
	Metadata string
	Comment  string
	ActorID  string
}

// SubmissionResult carries field errors that keep the dialog open. A result
// without errors closes it.
type SubmissionResult struct {
	Errors map[string]string
}

func (r SubmissionResult) OK() bool { return len(r.Errors) == 0 }

// ButtonPayload is the JSON value attached to each decision button.
type ButtonPayload struct {
	TaskID    string `json:"taskId"`
	Action    string `json:"action"`
	Requester string `json:"npr"`
}

// ParseButtonPayload decodes a button value. When the payload has no action,
// the button's action id decides.
func ParseButtonPayload(value, actionID string) (ButtonPayload, modal.Decision, error) {
	var p ButtonPayload
	if err := json.Unmarshal([]byte(value), &p); err != nil {
		return p, "", fmt.Errorf("decode button payload: %w", err)
	}
	if strings.TrimSpace(p.TaskID) == "" {
		return p, "", fmt.Errorf("button payload has no task id")
	}
	action := p.Action
	if action == "" {
		action = actionID
	}
	d, ok := modal.ParseDecision(action)
	if !ok {
		return p, "", fmt.Errorf("unknown decision %q", action)
	}
	return p, d, nil
}
