// Package types holds the JSON wire types of the A2A task protocol as
// spoken over the JSON-RPC HTTP binding.
package types

import (
	"encoding/json"
	"errors"
)

// TaskState enumerates the lifecycle states a remote task can report.
type TaskState string

const (
	TaskStateSubmitted     TaskState = "submitted"
	TaskStateWorking       TaskState = "working"
	TaskStateCompleted     TaskState = "completed"
	TaskStateFailed        TaskState = "failed"
	TaskStateInputRequired TaskState = "input-required"
)

// Terminal reports whether the state ends the polling loop.
func (s TaskState) Terminal() bool {
	return s == TaskStateCompleted || s == TaskStateFailed || s == TaskStateInputRequired
}

// Part is one content fragment of a message or artifact. The protocol is
// not consistent about the discriminator key: message parts carry "type"
// while artifact and status-message parts carry "kind". Both are kept so
// a Part round-trips either shape.
type Part struct {
	Type string `json:"type,omitempty"`
	Kind string `json:"kind,omitempty"`
	Text string `json:"text,omitempty"`
}

// TextPart builds an outgoing text part for message/send.
func TextPart(text string) Part {
	return Part{Type: "text", Text: text}
}

// IsText reports whether the part is a text part under either key.
func (p Part) IsText() bool {
	return p.Type == "text" || p.Kind == "text"
}

// Message is a protocol message exchanged with an agent.
type Message struct {
	Role      string `json:"role,omitempty"`
	MessageID string `json:"messageId,omitempty"`
	ContextID string `json:"contextId,omitempty"`
	TaskID    string `json:"taskId,omitempty"`
	Parts     []Part `json:"parts,omitempty"`
}

// Text returns the first text part of the message, or "".
func (m *Message) Text() (string, bool) {
	if m == nil {
		return "", false
	}
	for _, part := range m.Parts {
		if part.IsText() {
			return part.Text, true
		}
	}
	return "", false
}

// Artifact is an ordered group of output parts attached to a task.
type Artifact struct {
	ArtifactID string `json:"artifactId,omitempty"`
	Name       string `json:"name,omitempty"`
	Parts      []Part `json:"parts,omitempty"`
}

// TaskStatus reports the current state of a task, optionally with the
// agent message that produced it (used by input-required).
type TaskStatus struct {
	State   TaskState `json:"state"`
	Message *Message  `json:"message,omitempty"`
}

// Task is a unit of work tracked by the remote agent.
type Task struct {
	ID        string     `json:"id"`
	ContextID string     `json:"contextId,omitempty"`
	Status    TaskStatus `json:"status"`
	Artifacts []Artifact `json:"artifacts,omitempty"`
}

// State returns the task's current state.
func (t *Task) State() TaskState {
	if t == nil {
		return ""
	}
	return t.Status.State
}

// ArtifactText returns the first text part found across all artifacts,
// in artifact order then part order.
func (t *Task) ArtifactText() (string, bool) {
	if t == nil {
		return "", false
	}
	for _, artifact := range t.Artifacts {
		for _, part := range artifact.Parts {
			if part.IsText() {
				return part.Text, true
			}
		}
	}
	return "", false
}

// SendConfiguration carries message/send delivery options.
type SendConfiguration struct {
	AcceptedOutputModes []string `json:"acceptedOutputModes,omitempty"`
}

// SendParams is the params object of a message/send call.
type SendParams struct {
	ID            string             `json:"id,omitempty"`
	Message       *Message           `json:"message"`
	Configuration *SendConfiguration `json:"configuration,omitempty"`
}

// GetTaskParams is the params object of a tasks/get call.
type GetTaskParams struct {
	ID string `json:"id"`
}

// ResultKind tags the variant of a decoded message/send result.
type ResultKind int

const (
	// ResultTask means the agent created a task to be polled.
	ResultTask ResultKind = iota
	// ResultMessage means the agent answered with a terminal message.
	ResultMessage
)

// SendResult is the tagged variant returned by message/send: exactly one
// of Task or Message is set, decided once at parse time.
type SendResult struct {
	Kind    ResultKind
	Task    *Task
	Message *Message
}

// ErrUnrecognizedResult is returned when a result object is neither a
// task nor a message.
var ErrUnrecognizedResult = errors.New("unrecognized result shape")

// DecodeSendResult classifies a raw message/send result. A task carries
// both an id and a status; a message carries parts.
func DecodeSendResult(raw json.RawMessage) (*SendResult, error) {
	var probe struct {
		ID     string          `json:"id"`
		Status json.RawMessage `json:"status"`
		Parts  json.RawMessage `json:"parts"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, err
	}
	switch {
	case probe.ID != "" && len(probe.Status) > 0:
		var task Task
		if err := json.Unmarshal(raw, &task); err != nil {
			return nil, err
		}
		return &SendResult{Kind: ResultTask, Task: &task}, nil
	case len(probe.Parts) > 0:
		var message Message
		if err := json.Unmarshal(raw, &message); err != nil {
			return nil, err
		}
		return &SendResult{Kind: ResultMessage, Message: &message}, nil
	default:
		return nil, ErrUnrecognizedResult
	}
}
