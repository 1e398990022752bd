package slackbot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/slack-go/slack"

	"approval-bridge/internal/approval"
	"approval-bridge/internal/interaction"
	"approval-bridge/internal/modal"
)

// Handler is the orchestrator as seen by the Slack transports.
type Handler interface {
	HandleTrigger(ctx context.Context, t approval.Trigger) error
	HandleSubmission(ctx context.Context, s approval.Submission) approval.SubmissionResult
}

// Dispatcher turns raw interaction payloads into orchestrator calls.
type Dispatcher struct {
	h      Handler
	logger *slog.Logger
}

func NewDispatcher(h Handler, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{h: h, logger: logger}
}

// Reply is the outcome of one interaction. Ack is sent back to Slack as the
// acknowledgement body (nil for an empty ack). FollowUp, if set, must run
// after the ack has been sent.
type Reply struct {
	Ack      any
	FollowUp func(ctx context.Context)
}

// rawMessage pulls the origin message blocks out of the payload verbatim.
type rawMessage struct {
	Message struct {
		Blocks []interaction.Block `json:"blocks"`
	} `json:"message"`
}

func (d *Dispatcher) Dispatch(ctx context.Context, payload []byte) (Reply, error) {
	var cb slack.InteractionCallback
	if err := json.Unmarshal(payload, &cb); err != nil {
		return Reply{}, fmt.Errorf("decode interaction: %w", err)
	}

	switch cb.Type {
	case slack.InteractionTypeBlockActions:
		return d.blockActions(cb, payload)
	case slack.InteractionTypeViewSubmission:
		return d.viewSubmission(ctx, cb), nil
	}
	return Reply{}, nil
}

func (d *Dispatcher) blockActions(cb slack.InteractionCallback, payload []byte) (Reply, error) {
	var action *slack.BlockAction
	for _, a := range cb.ActionCallback.BlockActions {
		if _, ok := modal.ParseDecision(a.ActionID); ok {
			action = a
			break
		}
	}
	if action == nil {
		return Reply{}, nil
	}

	var msg rawMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Reply{}, fmt.Errorf("decode origin message: %w", err)
	}

	channel := cb.Channel.ID
	if channel == "" {
		channel = cb.Container.ChannelID
	}
	ts := cb.Container.MessageTs
	if ts == "" {
		ts = cb.Message.Timestamp
	}

	t := approval.Trigger{
		TriggerID: cb.TriggerID,
		ActionID:  action.ActionID,
		Value:     action.Value,
		ActorID:   cb.User.ID,
		Channel:   channel,
		MessageTS: ts,
		Blocks:    msg.Message.Blocks,
	}
	return Reply{FollowUp: func(ctx context.Context) {
		if err := d.h.HandleTrigger(ctx, t); err != nil {
			d.logger.Error("decision trigger failed",
				"action", t.ActionID,
				"actor", t.ActorID,
				"channel", t.Channel,
				"error", err,
			)
		}
	}}, nil
}

func (d *Dispatcher) viewSubmission(ctx context.Context, cb slack.InteractionCallback) Reply {
	if cb.View.CallbackID != DialogCallbackID {
		return Reply{}
	}

	var comment string
	if cb.View.State != nil {
		if field, ok := cb.View.State.Values[approval.CommentField][CommentActionID]; ok {
			comment = field.Value
		}
	}

	res := d.h.HandleSubmission(ctx, approval.Submission{
		Metadata: cb.View.PrivateMetadata,
		Comment:  comment,
		ActorID:  cb.User.ID,
	})
	if res.OK() {
		return Reply{}
	}
	return Reply{Ack: slack.NewErrorsViewSubmissionResponse(res.Errors)}
}
