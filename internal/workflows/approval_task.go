package workflows

import (
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"approval-bridge/internal/modal"
)

const TaskQueue = "APPROVAL_TASK_QUEUE"
const DecisionUpdate = "decision"

const (
	PendingTaskQuery = "pending_task"
	AuditLogQuery    = "audit_log"
)

const defaultDecisionTimeout = 7 * 24 * time.Hour

// WithdrawnGrace is how long a withdrawn task keeps answering late decisions
// before the workflow completes.
const WithdrawnGrace = 72 * time.Hour

// Result values of ApprovalTask.
const (
	ResultApproved  = "APPROVED"
	ResultRejected  = "REJECTED"
	ResultMoreInfo  = "MORE_INFO"
	ResultWithdrawn = "WITHDRAWN"
)

// WorkflowID is the id an approval task runs under, so decisions can be
// routed by task id alone.
func WorkflowID(taskID string) string {
	return "approval-" + taskID
}

type workflowState struct {
	PendingTask *modal.HumanTask    `json:"pendingTask,omitempty"`
	Decision    *modal.TaskDecision `json:"decision,omitempty"`
	Withdrawn   bool                `json:"withdrawn,omitempty"`
	Audit       []modal.AuditEvent  `json:"audit,omitempty"`
}

// ApprovalTask posts an approval request to chat and waits for one decision,
// delivered as the "decision" update. The update's reply has the same shape as
// the REST engine's response body.
func ApprovalTask(ctx workflow.Context, req modal.ApprovalRequest) (string, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("approval task started", "taskID", req.TaskID)

	state := &workflowState{
		Audit: make([]modal.AuditEvent, 0),
	}

	appendAudit := func(kind, message string, data map[string]any) {
		state.Audit = append(state.Audit, modal.AuditEvent{
			At:      workflow.Now(ctx),
			Kind:    kind,
			Message: message,
			Data:    data,
		})
	}

	_ = workflow.SetQueryHandler(ctx, PendingTaskQuery, func() (modal.HumanTask, error) {
		if state.PendingTask == nil {
			return modal.HumanTask{}, nil
		}
		return *state.PendingTask, nil
	})

	_ = workflow.SetQueryHandler(ctx, AuditLogQuery, func() ([]modal.AuditEvent, error) {
		return state.Audit, nil
	})

	err := workflow.SetUpdateHandlerWithOptions(ctx, DecisionUpdate,
		func(ctx workflow.Context, d modal.TaskDecision) (modal.DecisionReply, error) {
			if state.Withdrawn {
				appendAudit("LATE_DECISION", "decision after withdrawal", map[string]any{
					"action":      d.Action,
					"requestedBy": d.RequestedBy,
				})
				return withdrawnReply(req.TaskID), nil
			}
			state.Decision = &d
			state.PendingTask = nil
			appendAudit("DECISION", "decision recorded", map[string]any{
				"action":      d.Action,
				"requestedBy": d.RequestedBy,
				"comment":     d.Comment,
			})
			return replyFor(d), nil
		},
		workflow.UpdateHandlerOptions{
			Validator: func(ctx workflow.Context, d modal.TaskDecision) error {
				return validateDecision(state, req.TaskID, d)
			},
		},
	)
	if err != nil {
		return "", err
	}

	// Posting to chat is retried; the request is useless if nobody can see it.
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    1 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumAttempts:    3,
		},
	}
	actx := workflow.WithActivityOptions(ctx, ao)

	var task modal.HumanTask
	if err := workflow.ExecuteActivity(actx, "PostApprovalRequest", req).Get(actx, &task); err != nil {
		logger.Error("failed to post approval request", "error", err)
		return "", err
	}
	task.CreatedAt = workflow.Now(ctx)
	state.PendingTask = &task
	appendAudit("HUMAN_TASK_CREATED", "approval request posted", map[string]any{
		"channel": task.ChannelID,
		"ts":      task.MessageTS,
	})

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = defaultDecisionTimeout
	}
	decided, err := workflow.AwaitWithTimeout(ctx, timeout, func() bool {
		return state.Decision != nil
	})
	if err != nil {
		return "", err
	}
	if !decided {
		state.PendingTask = nil
		state.Withdrawn = true
		appendAudit("WITHDRAWN", "no decision before timeout", map[string]any{"timeout": timeout.String()})

		// Buttons on the posted message stay clickable; late clicks are told
		// the task was withdrawn until the grace period ends.
		if err := workflow.Sleep(ctx, WithdrawnGrace); err != nil {
			return "", err
		}
		if err := workflow.Await(ctx, func() bool { return workflow.AllHandlersFinished(ctx) }); err != nil {
			return "", err
		}
		return ResultWithdrawn, nil
	}

	if err := workflow.Await(ctx, func() bool { return workflow.AllHandlersFinished(ctx) }); err != nil {
		return "", err
	}

	result := resultFor(state.Decision.Action)
	appendAudit("DONE", "approval task completed", map[string]any{"result": result})
	logger.Info("approval task completed", "taskID", req.TaskID, "result", result)
	return result, nil
}

func validateDecision(state *workflowState, taskID string, d modal.TaskDecision) error {
	if d.TaskID != taskID {
		return fmt.Errorf("decision for %s sent to task %s", d.TaskID, taskID)
	}
	if state.Withdrawn {
		return nil
	}
	if state.PendingTask == nil {
		return fmt.Errorf("task %s is not awaiting a decision", taskID)
	}
	if !d.Action.Valid() {
		return fmt.Errorf("unknown action %q", d.Action)
	}
	if d.Action.RequiresComment() && strings.TrimSpace(d.Comment) == "" {
		return fmt.Errorf("a comment is required to %s", d.Action.Verb())
	}
	return nil
}

func replyFor(d modal.TaskDecision) modal.DecisionReply {
	switch d.Action {
	case modal.DecisionApprove:
		return modal.DecisionReply{Status: "Approved", Message: fmt.Sprintf("Task %s approved for %s.", d.TaskID, d.Requester)}
	case modal.DecisionReject:
		return modal.DecisionReply{Status: "reject", Message: fmt.Sprintf("Task %s rejected: %s", d.TaskID, d.Comment)}
	default:
		return modal.DecisionReply{Status: "moreinfo", Message: fmt.Sprintf("More information requested on task %s: %s", d.TaskID, d.Comment)}
	}
}

func withdrawnReply(taskID string) modal.DecisionReply {
	return modal.DecisionReply{Status: "withdrawn", Message: fmt.Sprintf("Task %s was withdrawn before a decision was made.", taskID)}
}

func resultFor(a modal.Decision) string {
	switch a {
	case modal.DecisionApprove:
		return ResultApproved
	case modal.DecisionReject:
		return ResultRejected
	}
	return ResultMoreInfo
}
