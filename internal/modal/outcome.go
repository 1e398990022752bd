package modal

import "strings"

// DecisionRequest is everything the workflow engine needs to record a decision.
type DecisionRequest struct {
	TaskID      string   `json:"taskId"`
	Action      Decision `json:"action"`
	Requester   string   `json:"npr"`
	Comment     string   `json:"comment"`
	RequestedBy string   `json:"requestedBy"`
}

// Outcome is the workflow engine's answer, independent of its wire shape.
type Outcome struct {
	StatusRaw string        `json:"statusRaw"`
	Status    OutcomeStatus `json:"status"`
	Message   string        `json:"message"`
}

// NormalizeStatus maps the engine's status string onto the closed vocabulary.
// Matching is case-insensitive; unrecognised values map to StatusUnknown and
// keep their raw text in the Outcome.
func NormalizeStatus(raw string) OutcomeStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "approved":
		return StatusApproved
	case "reject":
		return StatusRejected
	case "withdrawn":
		return StatusWithdrawn
	case "moreinfo":
		return StatusMoreInfo
	}
	return StatusUnknown
}

func NewOutcome(statusRaw, message string) Outcome {
	return Outcome{
		StatusRaw: statusRaw,
		Status:    NormalizeStatus(statusRaw),
		Message:   message,
	}
}
