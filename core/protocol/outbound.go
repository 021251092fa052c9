package protocol

import "encoding/json"

const (
	TypeSessionStart   = "session.start"
	TypeToolResult     = "tool.result"
	TypeResponseCreate = "response.create"
	TypeResponseCancel = "response.cancel"
)

// ToolSpec advertises one tool to the remote service.
type ToolSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

type AudioFormat struct {
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sample_rate"`
}

// SessionStart is the first message on a new channel. It carries the
// ephemeral credential that authorizes the handshake.
type SessionStart struct {
	Type       string      `json:"type"`
	SessionID  string      `json:"session_id"`
	Credential string      `json:"credential"`
	Context    string      `json:"context,omitempty"`
	Identity   string      `json:"identity,omitempty"`
	Tools      []ToolSpec  `json:"tools,omitempty"`
	Audio      AudioFormat `json:"audio"`
}

func NewSessionStart(sessionID, credential, contextTag, identity string, tools []ToolSpec, audio AudioFormat) SessionStart {
	return SessionStart{
		Type:       TypeSessionStart,
		SessionID:  sessionID,
		Credential: credential,
		Context:    contextTag,
		Identity:   identity,
		Tools:      tools,
		Audio:      audio,
	}
}

// ToolResult answers a ToolCallRequest with the same call id.
type ToolResult struct {
	Type      string          `json:"type"`
	CallID    string          `json:"call_id"`
	Succeeded bool            `json:"succeeded"`
	Output    json.RawMessage `json:"output"`
}

func NewToolResult(callID string, succeeded bool, output json.RawMessage) ToolResult {
	if len(output) == 0 {
		output = json.RawMessage("null")
	}
	return ToolResult{Type: TypeToolResult, CallID: callID, Succeeded: succeeded, Output: output}
}

// FailureOutput is the payload of an unsuccessful ToolResult.
type FailureOutput struct {
	Error string `json:"error"`
}

// NewFailedToolResult builds an unsuccessful result with a human readable
// message the remote service can narrate.
func NewFailedToolResult(callID, message string) ToolResult {
	output, _ := json.Marshal(FailureOutput{Error: message})
	return NewToolResult(callID, false, output)
}

// ResponseCreate asks the remote service to resume speaking.
type ResponseCreate struct {
	Type string `json:"type"`
}

func NewResponseCreate() ResponseCreate {
	return ResponseCreate{Type: TypeResponseCreate}
}

// ResponseCancel cancels the response in flight.
type ResponseCancel struct {
	Type       string `json:"type"`
	ResponseID string `json:"response_id,omitempty"`
}

func NewResponseCancel(responseID string) ResponseCancel {
	return ResponseCancel{Type: TypeResponseCancel, ResponseID: responseID}
}
