package events

const (
	// KindConnectionStateChanged identifies connection state transitions.
	KindConnectionStateChanged Kind = "session.state_changed"
	// KindConnectivityChanged identifies entering or leaving a usable session.
	KindConnectivityChanged Kind = "session.connectivity_changed"
	// KindDisconnected identifies session teardown.
	KindDisconnected Kind = "session.disconnected"
	// KindErrorOccurred identifies an error surfaced to the user.
	KindErrorOccurred Kind = "session.error"
)

// ConnectionState is the reported state of the session lifecycle.
type ConnectionState string

const (
	StateIdle          ConnectionState = "idle"
	StateRequesting    ConnectionState = "requesting"
	StateNegotiating   ConnectionState = "negotiating"
	StateConnected     ConnectionState = "connected"
	StateListening     ConnectionState = "listening"
	StateAgentSpeaking ConnectionState = "agent_speaking"
	StateFetching      ConnectionState = "fetching"
	StateClosed        ConnectionState = "closed"
	StateError         ConnectionState = "error"
)

// IsConnected reports whether the state belongs to an open session.
func (s ConnectionState) IsConnected() bool {
	switch s {
	case StateConnected, StateListening, StateAgentSpeaking, StateFetching:
		return true
	}
	return false
}

func (s ConnectionState) String() string { return string(s) }

// ConnectionStateChanged carries a state transition.
type ConnectionStateChanged struct {
	Base
	Previous ConnectionState
	Current  ConnectionState
}

// NewConnectionStateChanged creates a connection state changed event.
func NewConnectionStateChanged(previous, current ConnectionState) ConnectionStateChanged {
	return ConnectionStateChanged{Base: NewBase(KindConnectionStateChanged), Previous: previous, Current: current}
}

// ConnectivityChanged reports whether a session is usable.
type ConnectivityChanged struct {
	Base
	Connected bool
	SessionID string
}

// NewConnectivityChanged creates a connectivity changed event.
func NewConnectivityChanged(connected bool, sessionID string) ConnectivityChanged {
	return ConnectivityChanged{Base: NewBase(KindConnectivityChanged), Connected: connected, SessionID: sessionID}
}

// Disconnected marks session teardown. Unexpected is set when the transport
// failed rather than the caller asking for disconnect.
type Disconnected struct {
	Base
	SessionID  string
	Unexpected bool
	Err        error
}

// NewDisconnected creates a disconnected event.
func NewDisconnected(sessionID string, unexpected bool, err error) Disconnected {
	return Disconnected{Base: NewBase(KindDisconnected), SessionID: sessionID, Unexpected: unexpected, Err: err}
}

// ErrorOccurred carries a user facing error message.
type ErrorOccurred struct {
	Base
	Err     error
	Message string
}

// NewErrorOccurred creates an error event.
func NewErrorOccurred(err error) ErrorOccurred {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return ErrorOccurred{Base: NewBase(KindErrorOccurred), Err: err, Message: message}
}
