package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

type Kind string

const (
	KindTranscriptDelta Kind = "transcript.delta"
	KindTranscriptFinal Kind = "transcript.final"
	KindResponseDelta   Kind = "response.delta"
	KindResponseDone    Kind = "response.done"
	KindAudioDelta      Kind = "audio.delta"
	KindToolCall        Kind = "tool_call"
	KindTurnComplete    Kind = "turn.complete"
	KindError           Kind = "error"
	KindSessionCreated  Kind = "session.created"
	KindUnknown         Kind = "unknown"
)

var (
	ErrMalformedMessage = errors.New("malformed control message")
	ErrMissingType      = errors.New("control message has no type")
	ErrMissingCallID    = errors.New("tool call has no call id")
)

// ControlEvent is one decoded inbound control message. Only the fields
// relevant to Kind are populated.
type ControlEvent struct {
	Kind Kind
	// Type is the raw type tag, kept for logging unknown events.
	Type string

	ItemID     string
	ResponseID string
	// Text holds the delta for transcript.delta and response.delta, and the
	// full transcript for transcript.final.
	Text string

	SessionID string
	ToolCall  *ToolCallRequest
	Error     *RemoteError
}

// ToolCallRequest asks the local side to run a tool. Arguments is always a
// JSON document, even when the remote side sent it as an encoded string.
type ToolCallRequest struct {
	CallID    string
	Name      string
	Arguments json.RawMessage
}

// RemoteError is an error reported by the remote service.
type RemoteError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *RemoteError) Error() string {
	if e == nil {
		return ""
	}
	if e.Code == "" {
		return "remote error: " + e.Message
	}
	return fmt.Sprintf("remote error %s: %s", e.Code, e.Message)
}

type envelope struct {
	Type       string          `json:"type"`
	ItemID     string          `json:"item_id"`
	ResponseID string          `json:"response_id"`
	Delta      string          `json:"delta"`
	Transcript string          `json:"transcript"`
	CallID     string          `json:"call_id"`
	Name       string          `json:"name"`
	Arguments  json.RawMessage `json:"arguments"`
	Error      *RemoteError    `json:"error"`
	Session    *struct {
		ID string `json:"id"`
	} `json:"session"`
}

// Decode parses one inbound text frame.
func Decode(data []byte) (ControlEvent, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return ControlEvent{}, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}
	if env.Type == "" {
		return ControlEvent{}, ErrMissingType
	}

	event := ControlEvent{
		Kind:       Kind(env.Type),
		Type:       env.Type,
		ItemID:     env.ItemID,
		ResponseID: env.ResponseID,
	}

	switch event.Kind {
	case KindTranscriptDelta, KindResponseDelta:
		event.Text = env.Delta
	case KindTranscriptFinal:
		event.Text = env.Transcript
	case KindResponseDone, KindAudioDelta, KindTurnComplete:
	case KindToolCall:
		if env.CallID == "" {
			return ControlEvent{}, ErrMissingCallID
		}
		arguments, err := normalizeArguments(env.Arguments)
		if err != nil {
			return ControlEvent{}, fmt.Errorf("failed to decode arguments for call %s: %w", env.CallID, err)
		}
		event.ToolCall = &ToolCallRequest{CallID: env.CallID, Name: env.Name, Arguments: arguments}
	case KindError:
		event.Error = env.Error
		if event.Error == nil {
			event.Error = &RemoteError{Message: "unspecified remote error"}
		}
	case KindSessionCreated:
		if env.Session != nil {
			event.SessionID = env.Session.ID
		}
	default:
		event.Kind = KindUnknown
	}

	return event, nil
}

// AudioActivity is the event produced for an inbound binary audio frame.
func AudioActivity() ControlEvent {
	return ControlEvent{Kind: KindAudioDelta, Type: string(KindAudioDelta)}
}

// normalizeArguments accepts either a JSON value or a JSON string holding an
// encoded document. Missing arguments become an empty object.
func normalizeArguments(raw json.RawMessage) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return json.RawMessage("{}"), nil
	}
	if trimmed[0] != '"' {
		return json.RawMessage(trimmed), nil
	}

	var encoded string
	if err := json.Unmarshal(trimmed, &encoded); err != nil {
		return nil, err
	}
	encoded = string(bytes.TrimSpace([]byte(encoded)))
	if encoded == "" {
		return json.RawMessage("{}"), nil
	}
	// Validity of the inner document is checked when the tool parses it so a
	// malformed payload still reaches the dispatcher and gets a failed result.
	return json.RawMessage(encoded), nil
}
