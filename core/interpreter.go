package orchestration

import (
	"strings"

	"github.com/chukwumela909/voice-agent-market/core/events"
	"github.com/chukwumela909/voice-agent-market/core/protocol"
)

// reduction is what applying one control event produced.
type reduction struct {
	Signals []events.Event
	// ToolCall is set when the event asks for a tool to run. The caller
	// dispatches it without waiting.
	ToolCall *protocol.ToolCallRequest
	// TransportError is set when the remote service reported a fatal error.
	TransportError error
	// Suppressed is set when the event belongs to a cancelled response and
	// was dropped.
	Suppressed bool
	// Dropped is set for events the interpreter does not understand.
	Dropped bool
}

// interpreter reduces the ordered control event stream into signals. It is
// not safe for concurrent use; the orchestrator serializes access.
type interpreter struct {
	itemID     string
	transcript strings.Builder

	vocalizing bool
	fetching   bool

	responseID     string
	responseActive bool

	// muted drops response output after a barge-in until the cancelled
	// response is over, a different response starts, or a new response is
	// requested.
	muted     bool
	cancelled map[string]struct{}
}

func newInterpreter() *interpreter {
	return &interpreter{cancelled: make(map[string]struct{})}
}

func (in *interpreter) Vocalizing() bool { return in.vocalizing }
func (in *interpreter) Fetching() bool   { return in.fetching }

func (in *interpreter) Apply(event protocol.ControlEvent) reduction {
	var r reduction

	switch event.Kind {
	case protocol.KindTranscriptDelta:
		if in.itemID != "" && event.ItemID != "" && event.ItemID != in.itemID {
			in.transcript.Reset()
		}
		if event.ItemID != "" {
			in.itemID = event.ItemID
		}
		in.transcript.WriteString(event.Text)
		r.Signals = append(r.Signals, events.NewUserTranscriptUpdated(in.itemID, in.transcript.String()))

	case protocol.KindTranscriptFinal:
		text := event.Text
		if text == "" {
			text = in.transcript.String()
		}
		itemID := event.ItemID
		if itemID == "" {
			itemID = in.itemID
		}
		r.Signals = append(r.Signals, events.NewUserTranscriptFinal(itemID, strings.TrimSpace(text)))
		in.resetTranscript()
		// Untagged output from here on answers the new utterance.
		in.muted = false

	case protocol.KindResponseDelta:
		if in.suppress(event.ResponseID) {
			r.Suppressed = true
			break
		}
		in.trackResponse(event.ResponseID)
		r.Signals = append(r.Signals, events.NewAssistantResponseSegment(in.responseID, event.Text))

	case protocol.KindAudioDelta:
		if in.suppress(event.ResponseID) {
			r.Suppressed = true
			break
		}
		in.trackResponse(event.ResponseID)
		r.Signals = in.setVocalizing(true, r.Signals)

	case protocol.KindResponseDone:
		if _, ok := in.cancelled[event.ResponseID]; ok || (in.muted && event.ResponseID == "") {
			delete(in.cancelled, event.ResponseID)
			in.muted = false
			r.Suppressed = true
			break
		}
		in.muted = false
		responseID := event.ResponseID
		if responseID == "" {
			responseID = in.responseID
		}
		r.Signals = append(r.Signals, events.NewAssistantResponseFinal(responseID))
		r.Signals = in.setVocalizing(false, r.Signals)
		r.Signals = in.setFetching(false, "", r.Signals)
		in.responseID = ""
		in.responseActive = false

	case protocol.KindToolCall:
		if event.ToolCall == nil {
			r.Dropped = true
			break
		}
		call := *event.ToolCall
		r.ToolCall = &call
		in.fetching = true
		r.Signals = append(r.Signals, events.NewFetchingChanged(true, call.Name))

	case protocol.KindTurnComplete:
		in.resetTranscript()
		in.muted = false
		r.Signals = append(r.Signals, events.NewTurnCompleted())

	case protocol.KindError:
		if event.Error != nil {
			r.TransportError = event.Error
		} else {
			r.TransportError = &protocol.RemoteError{Message: "unspecified remote error"}
		}

	case protocol.KindSessionCreated:
		// Already consumed by the handshake.

	default:
		r.Dropped = true
	}

	return r
}

// Cancel stops the response in flight. It returns false when nothing is in
// flight, in which case no state changes.
func (in *interpreter) Cancel() (string, []events.Event, bool) {
	if !in.responseActive && !in.vocalizing {
		return "", nil, false
	}

	responseID := in.responseID
	if responseID != "" {
		in.cancelled[responseID] = struct{}{}
	}
	in.muted = true
	in.responseID = ""
	in.responseActive = false
	in.resetTranscript()

	signals := in.setVocalizing(false, nil)
	signals = append(signals, events.NewTurnCancelled(responseID))
	return responseID, signals, true
}

// Resume ends muting when the orchestrator asks the remote service for a new
// response. Cancelled ids stay suppressed.
func (in *interpreter) Resume() {
	in.muted = false
}

// ClearFetching lowers the fetching flag once no tool call is outstanding.
func (in *interpreter) ClearFetching() []events.Event {
	return in.setFetching(false, "", nil)
}

// Reset lowers every flag when the session ends.
func (in *interpreter) Reset() []events.Event {
	signals := in.setVocalizing(false, nil)
	signals = in.setFetching(false, "", signals)
	in.resetTranscript()
	in.responseID = ""
	in.responseActive = false
	in.muted = false
	clear(in.cancelled)
	return signals
}

func (in *interpreter) suppress(responseID string) bool {
	if responseID != "" {
		if _, ok := in.cancelled[responseID]; ok {
			return true
		}
		// A response we never cancelled has started.
		in.muted = false
		return false
	}
	return in.muted
}

func (in *interpreter) trackResponse(responseID string) {
	in.responseActive = true
	if responseID != "" {
		in.responseID = responseID
	}
}

func (in *interpreter) setVocalizing(vocalizing bool, signals []events.Event) []events.Event {
	if in.vocalizing == vocalizing {
		return signals
	}
	in.vocalizing = vocalizing
	return append(signals, events.NewSpeakingChanged(vocalizing))
}

func (in *interpreter) setFetching(fetching bool, toolName string, signals []events.Event) []events.Event {
	if in.fetching == fetching {
		return signals
	}
	in.fetching = fetching
	return append(signals, events.NewFetchingChanged(fetching, toolName))
}

func (in *interpreter) resetTranscript() {
	in.transcript.Reset()
	in.itemID = ""
}
