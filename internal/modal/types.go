package modal

import "strings"

type Decision string

const (
	DecisionApprove     Decision = "approve"
	DecisionReject      Decision = "reject"
	DecisionInfoRequest Decision = "moreinfo"
)

// ParseDecision accepts the button labels used by the approval message plus a
// few aliases older senders still emit.
func ParseDecision(s string) (Decision, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "approve", "approved":
		return DecisionApprove, true
	case "reject", "rejected":
		return DecisionReject, true
	case "moreinfo", "more_info", "info_request":
		return DecisionInfoRequest, true
	}
	return "", false
}

func (d Decision) Valid() bool {
	switch d {
	case DecisionApprove, DecisionReject, DecisionInfoRequest:
		return true
	}
	return false
}

// RequiresComment reports whether a submission for d must carry a comment.
func (d Decision) RequiresComment() bool {
	return d == DecisionReject || d == DecisionInfoRequest
}

// Verb is the phrase used in "You are about to <verb> task X".
func (d Decision) Verb() string {
	switch d {
	case DecisionApprove:
		return "approve"
	case DecisionReject:
		return "reject"
	case DecisionInfoRequest:
		return "request more info for"
	}
	return string(d)
}

// Label is the capitalised name used in progress and failure messages.
func (d Decision) Label() string {
	switch d {
	case DecisionApprove:
		return "Approve"
	case DecisionReject:
		return "Reject"
	case DecisionInfoRequest:
		return "More info request"
	}
	return string(d)
}

type OutcomeStatus string

const (
	StatusApproved  OutcomeStatus = "APPROVED"
	StatusRejected  OutcomeStatus = "REJECTED"
	StatusWithdrawn OutcomeStatus = "WITHDRAWN"
	StatusMoreInfo  OutcomeStatus = "MORE_INFO"
	StatusUnknown   OutcomeStatus = "UNKNOWN"
)
