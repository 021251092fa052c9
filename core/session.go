package orchestration

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/chukwumela909/voice-agent-market/core/events"
	"github.com/chukwumela909/voice-agent-market/core/presence"
	"github.com/chukwumela909/voice-agent-market/core/protocol"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// session is one live conversation. It is never reused: a new connect
// creates a new session.
type session struct {
	id         string
	contextTag string
	identity   string

	channel protocol.Channel
	ctx     context.Context
	cancel  context.CancelFunc

	// interpreter and inFlight are guarded by Orchestrator.mu.
	interpreter *interpreter
	inFlight    map[string]string

	monitor *presence.Monitor

	// sendMu keeps a tool result and its resume event adjacent on the wire.
	sendMu  sync.Mutex
	workers sync.WaitGroup

	readDone    chan struct{}
	releaseOnce sync.Once
	released    atomic.Bool
}

func (s *session) send(v any) {
	if err := s.channel.SendJSON(v); err != nil {
		if errors.Is(err, protocol.ErrChannelClosed) {
			logger.Debug("dropping control event on closed channel", "session", s.id)
			return
		}
		logger.Warn("failed to send control event", "session", s.id, "error", err)
	}
}

// forwardMicrophone is the capture callback. Audio captured before a session
// is installed or after it is released is dropped.
func (o *Orchestrator) forwardMicrophone(frame []byte) {
	s := o.live.Load()
	if s == nil {
		return
	}
	if s.monitor != nil && o.presenceSource == PresenceMicrophone {
		s.monitor.Write(frame)
	}
	if err := s.channel.SendAudio(frame); err != nil && !errors.Is(err, protocol.ErrChannelClosed) {
		logger.Debug("failed to send microphone audio", "session", s.id, "error", err)
	}
}

func (o *Orchestrator) readLoop(s *session) {
	defer close(s.readDone)

	for message := range s.channel.Messages() {
		if !o.handleMessage(s, message) {
			return
		}
	}

	if s.released.Load() {
		return
	}
	cause := s.channel.Err()
	if cause == nil {
		cause = protocol.ErrClosedByRemote
	}
	o.failSession(s, cause)
}

// handleMessage applies one inbound frame. It returns false once the session
// has been torn down.
func (o *Orchestrator) handleMessage(s *session, message protocol.Message) bool {
	var event protocol.ControlEvent
	switch message.Type {
	case protocol.BinaryMessage:
		event = protocol.AudioActivity()
	default:
		decoded, err := protocol.Decode(message.Data)
		if err != nil {
			o.droppedControl.Add(s.ctx, 1, metric.WithAttributes(attribute.String("reason", "decode")))
			logger.Warn("dropping undecodable control event", "session", s.id, "error", err)
			return true
		}
		event = decoded
	}

	o.mu.Lock()
	if o.session != s {
		o.mu.Unlock()
		return false
	}
	wasVocalizing := s.interpreter.Vocalizing()
	result := s.interpreter.Apply(event)
	vocalizing := s.interpreter.Vocalizing()
	o.publish(result.Signals...)
	o.refreshStateLocked(s)
	o.mu.Unlock()

	if result.Dropped {
		o.droppedControl.Add(s.ctx, 1, metric.WithAttributes(attribute.String("reason", "unknown")))
		logger.Info("dropping unknown control event", "session", s.id, "type", event.Type)
	}

	if vocalizing != wasVocalizing && s.monitor != nil {
		s.monitor.SetRemoteVocalizing(vocalizing)
	}

	if message.Type == protocol.BinaryMessage && !result.Suppressed {
		o.audioOutput.SendAudio(message.Data)
		if s.monitor != nil && o.presenceSource == PresenceRemote {
			s.monitor.Write(message.Data)
		}
	}

	if result.ToolCall != nil {
		o.dispatchToolCall(s, *result.ToolCall)
	}

	if result.TransportError != nil {
		o.failSession(s, result.TransportError)
		return false
	}

	return true
}

// failSession tears down a session after a transport failure.
func (o *Orchestrator) failSession(s *session, cause error) {
	o.mu.Lock()
	if o.session != s {
		o.mu.Unlock()
		return
	}
	o.session = nil
	o.mu.Unlock()

	o.release(s, cause)
}

// release frees everything the session holds and walks the lifecycle back to
// Idle. A nil cause means the caller asked for the disconnect.
func (o *Orchestrator) release(s *session, cause error) {
	s.releaseOnce.Do(func() {
		s.released.Store(true)
		o.live.CompareAndSwap(s, nil)

		s.cancel()
		if s.monitor != nil {
			s.monitor.Stop()
		}
		if err := o.audioInput.Stop(); err != nil {
			logger.Warn("failed to stop audio input", "session", s.id, "error", err)
		}
		if err := s.channel.Close(); err != nil {
			logger.Warn("failed to close control channel", "session", s.id, "error", err)
		}
		o.audioOutput.Clear()

		var disconnectErr error
		if cause != nil {
			disconnectErr = newConnectError(ErrorKindTransport, ErrDisconnectedUnexpectedly, cause)
			logger.Warn("session lost", "session", s.id, "error", cause)
		}

		o.mu.Lock()
		o.publish(s.interpreter.Reset()...)
		clear(s.inFlight)
		if cause != nil {
			o.setStateLocked(StateError)
		}
		o.setStateLocked(StateClosed)
		o.setStateLocked(StateIdle)
		o.mu.Unlock()

		o.publish(events.NewConnectivityChanged(false, s.id))
		if disconnectErr != nil {
			o.publish(events.NewErrorOccurred(disconnectErr))
		}
		o.publish(events.NewDisconnected(s.id, cause != nil, disconnectErr))
	})
}
