package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/client"

	"approval-bridge/internal/modal"
	"approval-bridge/internal/workflows"
)

// TemporalClient delivers decisions to an ApprovalTask workflow as an update
// and waits for the workflow's reply.
type TemporalClient struct {
	tc client.Client
}

func NewTemporalClient(tc client.Client) *TemporalClient {
	return &TemporalClient{tc: tc}
}

func (c *TemporalClient) SubmitDecision(ctx context.Context, req modal.DecisionRequest) (modal.Outcome, error) {
	d := modal.TaskDecision{
		TaskID:      req.TaskID,
		Action:      req.Action,
		Requester:   req.Requester,
		Comment:     req.Comment,
		RequestedBy: req.RequestedBy,
		DecidedAt:   time.Now().UTC(),
	}

	handle, err := c.tc.UpdateWorkflow(ctx, client.UpdateWorkflowOptions{
		UpdateID:     uuid.NewString(),
		WorkflowID:   workflows.WorkflowID(req.TaskID),
		UpdateName:   workflows.DecisionUpdate,
		Args:         []interface{}{d},
		WaitForStage: client.WorkflowUpdateStageCompleted,
	})
	if err != nil {
		return modal.Outcome{}, &CallError{Message: err.Error()}
	}

	var reply modal.DecisionReply
	if err := handle.Get(ctx, &reply); err != nil {
		return modal.Outcome{}, &CallError{Message: err.Error()}
	}

	return NormalizeOutcome(map[string]any{
		"status":  reply.Status,
		"message": reply.Message,
	}), nil
}
