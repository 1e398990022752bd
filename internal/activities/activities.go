package activities

import (
	"context"

	"go.temporal.io/sdk/activity"

	"approval-bridge/internal/modal"
)

// Poster posts the approval request message with its decision buttons.
type Poster interface {
	PostApprovalRequest(ctx context.Context, req modal.ApprovalRequest) (channel, ts string, err error)
}

type Activities struct {
	Chat Poster
}

func (a *Activities) PostApprovalRequest(ctx context.Context, req modal.ApprovalRequest) (modal.HumanTask, error) {
	channel, ts, err := a.Chat.PostApprovalRequest(ctx, req)
	if err != nil {
		return modal.HumanTask{}, err
	}
	activity.GetLogger(ctx).Info("approval request posted", "taskID", req.TaskID, "channel", channel, "ts", ts)
	return modal.HumanTask{
		ID:        req.TaskID,
		Title:     req.Title,
		Requester: req.Requester,
		ChannelID: channel,
		MessageTS: ts,
	}, nil
}
