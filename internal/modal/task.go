package modal

import "time"

// ApprovalRequest starts an approval task workflow and describes the chat
// message that carries the decision buttons.
type ApprovalRequest struct {
	TaskID    string        `json:"taskId"`
	Title     string        `json:"title"`
	Details   string        `json:"details"`
	Requester string        `json:"npr"`
	ChannelID string        `json:"channelId"`
	Timeout   time.Duration `json:"timeout"`
}

type HumanTask struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Requester string    `json:"npr"`
	ChannelID string    `json:"channelId"`
	MessageTS string    `json:"messageTs"`
	CreatedAt time.Time `json:"createdAt"`
}

type TaskDecision struct {
	TaskID      string    `json:"taskId"`
	Action      Decision  `json:"action"`
	Requester   string    `json:"npr"`
	Comment     string    `json:"comment"`
	RequestedBy string    `json:"requestedBy"`
	DecidedAt   time.Time `json:"decidedAt"`
}

// DecisionReply mirrors the JSON body the REST engine answers with.
type DecisionReply struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type AuditEvent struct {
	At      time.Time      `json:"at"`
	Kind    string         `json:"kind"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}
