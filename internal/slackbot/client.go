// Package slackbot connects the approval orchestrator to Slack.
package slackbot

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/slack-go/slack"

	"approval-bridge/internal/approval"
	"approval-bridge/internal/interaction"
	"approval-bridge/internal/modal"
)

const (
	DialogCallbackID = "approval_dialog"
	CommentActionID  = "comment_input"
)

// Client implements approval.Chat on top of the Slack Web API.
type Client struct {
	api *slack.Client
}

func NewClient(api *slack.Client) *Client {
	return &Client{api: api}
}

func plain(text string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.PlainTextType, text, false, false)
}

func (c *Client) OpenDialog(ctx context.Context, triggerID string, d approval.Dialog) error {
	input := slack.NewPlainTextInputBlockElement(nil, CommentActionID).WithMultiline(true)
	view := slack.ModalViewRequest{
		Type:            slack.VTModal,
		CallbackID:      DialogCallbackID,
		Title:           plain(d.Title),
		Submit:          plain(d.SubmitLabel),
		Close:           plain(d.CancelLabel),
		PrivateMetadata: d.Metadata,
		Blocks: slack.Blocks{BlockSet: []slack.Block{
			slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, d.Summary, false, false), nil, nil),
			slack.NewInputBlock(approval.CommentField, plain(d.CommentLabel), nil, input).WithOptional(!d.CommentRequired),
		}},
	}
	if _, err := c.api.OpenViewContext(ctx, triggerID, view); err != nil {
		return fmt.Errorf("views.open: %w", err)
	}
	return nil
}

func (c *Client) PostThreadReply(ctx context.Context, channel, threadTS, text string) (string, error) {
	_, ts, err := c.api.PostMessageContext(ctx, channel,
		slack.MsgOptionText(text, false),
		slack.MsgOptionTS(threadTS),
	)
	if err != nil {
		return "", fmt.Errorf("chat.postMessage: %w", err)
	}
	return ts, nil
}

func (c *Client) UpdateText(ctx context.Context, channel, ts, text string) error {
	if _, _, _, err := c.api.UpdateMessageContext(ctx, channel, ts, slack.MsgOptionText(text, false)); err != nil {
		return fmt.Errorf("chat.update: %w", err)
	}
	return nil
}

func (c *Client) UpdateBlocks(ctx context.Context, channel, ts string, blocks []interaction.Block, text string) error {
	_, _, _, err := c.api.UpdateMessageContext(ctx, channel, ts,
		slack.MsgOptionText(text, false),
		slack.MsgOptionBlocks(rawBlocks(blocks)...),
	)
	if err != nil {
		return fmt.Errorf("chat.update: %w", err)
	}
	return nil
}

// PostApprovalRequest posts the message holding the decision buttons and
// returns its coordinates.
func (c *Client) PostApprovalRequest(ctx context.Context, req modal.ApprovalRequest) (string, string, error) {
	blocks, err := ApprovalRequestBlocks(req)
	if err != nil {
		return "", "", err
	}
	channel, ts, err := c.api.PostMessageContext(ctx, req.ChannelID,
		slack.MsgOptionText(fmt.Sprintf("Approval needed: %s (%s)", req.Title, req.TaskID), false),
		slack.MsgOptionBlocks(blocks...),
	)
	if err != nil {
		return "", "", fmt.Errorf("chat.postMessage: %w", err)
	}
	return channel, ts, nil
}

// ApprovalRequestBlocks renders the origin message: a summary and one button
// per decision.
func ApprovalRequestBlocks(req modal.ApprovalRequest) ([]slack.Block, error) {
	summary := fmt.Sprintf("*%s*\nTask `%s` for %s", req.Title, req.TaskID, req.Requester)
	if req.Details != "" {
		summary += "\n" + req.Details
	}

	buttons := make([]slack.BlockElement, 0, 3)
	for _, b := range []struct {
		decision modal.Decision
		label    string
		style    slack.Style
	}{
		{modal.DecisionApprove, "Approve", slack.StylePrimary},
		{modal.DecisionReject, "Reject", slack.StyleDanger},
		{modal.DecisionInfoRequest, "Request info", ""},
	} {
		value, err := json.Marshal(approval.ButtonPayload{
			TaskID:    req.TaskID,
			Action:    string(b.decision),
			Requester: req.Requester,
		})
		if err != nil {
			return nil, err
		}
		btn := slack.NewButtonBlockElement(string(b.decision), string(value), plain(b.label))
		if b.style != "" {
			btn = btn.WithStyle(b.style)
		}
		buttons = append(buttons, btn)
	}

	return []slack.Block{
		slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, summary, false, false), nil, nil),
		slack.NewActionBlock("decision_"+req.TaskID, buttons...),
	}, nil
}

// rawBlock passes a block to slack-go as-is. Converting to the library's
// typed blocks would drop fields it does not model.
type rawBlock struct {
	b interaction.Block
}

func (r rawBlock) BlockType() slack.MessageBlockType {
	return slack.MessageBlockType(r.b.Type())
}

func (r rawBlock) ID() string {
	var head struct {
		BlockID string `json:"block_id"`
	}
	_ = json.Unmarshal(r.b, &head)
	return head.BlockID
}

func (r rawBlock) MarshalJSON() ([]byte, error) {
	return r.b.MarshalJSON()
}

func rawBlocks(blocks []interaction.Block) []slack.Block {
	out := make([]slack.Block, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, rawBlock{b: b})
	}
	return out
}
