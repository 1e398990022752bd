// Package interaction carries the state of one approval interaction through
// the chat dialog's private metadata.
package interaction

import (
	"encoding/json"
	"errors"
	"fmt"

	"approval-bridge/internal/modal"
)

// MaxEncodedSize is the platform's limit on dialog metadata.
const MaxEncodedSize = 3000

// ErrTooLarge is returned by Encode when the state does not fit in
// MaxEncodedSize.
var ErrTooLarge = errors.New("encoded interaction state too large")

// State is everything needed to finish an interaction after the dialog is
// submitted. It is never stored server-side.
type State struct {
	InteractionID string         `json:"iid,omitempty"`
	TaskID        string         `json:"taskId"`
	Decision      modal.Decision `json:"decision"`
	Requester     string         `json:"npr"`
	Channel       string         `json:"channel"`
	MessageTS     string         `json:"ts"`
	ActorID       string         `json:"actor"`
	Blocks        []Block        `json:"blocks,omitempty"`
}

type MalformedStateError struct {
	Reason string
}

func (e *MalformedStateError) Error() string {
	return "malformed interaction state: " + e.Reason
}

func Encode(s State) (string, error) {
	raw, err := marshal(s)
	if err != nil {
		return "", fmt.Errorf("encode interaction state: %w", err)
	}
	if len(raw) > MaxEncodedSize {
		return "", fmt.Errorf("%w: %d bytes, limit is %d", ErrTooLarge, len(raw), MaxEncodedSize)
	}
	return string(raw), nil
}

func Decode(s string) (State, error) {
	var st State
	if s == "" {
		return st, &MalformedStateError{Reason: "empty"}
	}
	if err := json.Unmarshal([]byte(s), &st); err != nil {
		return State{}, &MalformedStateError{Reason: err.Error()}
	}
	switch {
	case st.TaskID == "":
		return State{}, &MalformedStateError{Reason: "missing task id"}
	case !st.Decision.Valid():
		return State{}, &MalformedStateError{Reason: fmt.Sprintf("unknown decision %q", st.Decision)}
	case st.Channel == "" || st.MessageTS == "":
		return State{}, &MalformedStateError{Reason: "missing origin message"}
	}
	return st, nil
}
