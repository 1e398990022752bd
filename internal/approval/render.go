package approval

import (
	"errors"
	"fmt"

	"approval-bridge/internal/credential"
	"approval-bridge/internal/engine"
	"approval-bridge/internal/interaction"
	"approval-bridge/internal/modal"
)

const approverGroup = "someone from the approver group"

type rendering struct {
	thread string
	status string
}

func mention(userID string) string {
	if userID == "" {
		return "unknown user"
	}
	return "<@" + userID + ">"
}

func processingText(st interaction.State) string {
	return fmt.Sprintf(":hourglass_flowing_sand: Processing *%s* for task *%s* requested by %s...",
		st.Decision.Label(), st.TaskID, mention(st.ActorID))
}

// renderOutcome produces the thread reply and the origin message status line.
// Withdrawn tasks are attributed to the approver group because the
// withdrawal happened before this click.
func renderOutcome(out modal.Outcome, st interaction.State) rendering {
	actor := mention(st.ActorID)
	var r rendering
	switch out.Status {
	case modal.StatusApproved:
		r = rendering{
			thread: fmt.Sprintf(":white_check_mark: Task *%s* approved.", st.TaskID),
			status: ":white_check_mark: Approved by " + actor,
		}
	case modal.StatusRejected:
		r = rendering{
			thread: fmt.Sprintf(":x: Task *%s* rejected.", st.TaskID),
			status: ":x: Rejected by " + actor,
		}
	case modal.StatusWithdrawn:
		r = rendering{
			thread: fmt.Sprintf(":leftwards_arrow_with_hook: Task *%s* was withdrawn.", st.TaskID),
			status: ":leftwards_arrow_with_hook: Withdrawn by " + approverGroup,
		}
	case modal.StatusMoreInfo:
		r = rendering{
			thread: fmt.Sprintf(":question: More information requested for task *%s*.", st.TaskID),
			status: ":question: More info requested by " + actor,
		}
	default:
		r = rendering{
			thread: fmt.Sprintf("Result: %s", out.StatusRaw),
			status: fmt.Sprintf("Result: %s (%s)", out.StatusRaw, actor),
		}
	}
	if out.Message != "" {
		r.thread += "\n" + out.Message
	}
	return r
}

func failureText(st interaction.State, err error) string {
	return fmt.Sprintf(":warning: %s failed for %s: %s", st.Decision, st.TaskID, failureDetail(err))
}

// failureDetail prefers the engine's own error text.
func failureDetail(err error) string {
	var ce *engine.CallError
	if errors.As(err, &ce) {
		if ce.Message != "" {
			return ce.Message
		}
		return "the workflow engine could not be reached"
	}
	var ae *credential.AuthError
	if errors.As(err, &ae) {
		return "could not authenticate with the workflow engine"
	}
	if err != nil && err.Error() != "" {
		return err.Error()
	}
	return "unexpected error"
}

// resultLabel is the metrics label for a failed call.
func resultLabel(err error) string {
	var ae *credential.AuthError
	switch {
	case errors.As(err, &ae):
		return "auth_error"
	case engine.IsCallError(err):
		return "call_error"
	}
	return "error"
}
