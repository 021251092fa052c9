package protocol

import (
	"context"
	"errors"
)

var (
	ErrChannelClosed    = errors.New("control channel closed")
	ErrClosedByRemote   = errors.New("control channel closed by remote")
	ErrHandshakeRefused = errors.New("handshake refused by remote")
)

type MessageType int

const (
	TextMessage MessageType = iota + 1
	BinaryMessage
)

// Message is one inbound frame. Text frames carry JSON control events, binary
// frames carry remote audio.
type Message struct {
	Type MessageType
	Data []byte
}

// Channel is an established session with the remote service carrying both
// control events and audio.
type Channel interface {
	// SessionID is the id acknowledged by the remote side.
	SessionID() string
	// Messages delivers inbound frames in arrival order. It is closed when
	// the channel ends.
	Messages() <-chan Message
	// Err reports why Messages was closed. It is nil when the channel was
	// closed locally.
	Err() error
	// SendJSON writes one control event.
	SendJSON(v any) error
	// SendAudio writes one microphone audio frame.
	SendAudio(frame []byte) error
	Close() error
}

// Transport opens channels. Open performs the handshake and returns only once
// the remote side has acknowledged the session.
type Transport interface {
	Open(ctx context.Context, start SessionStart) (Channel, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, start SessionStart) (Channel, error)

func (f TransportFunc) Open(ctx context.Context, start SessionStart) (Channel, error) {
	return f(ctx, start)
}
