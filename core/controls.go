package orchestration

import "github.com/chukwumela909/voice-agent-market/core/protocol"

// Interrupt cancels the response the remote service is delivering: playback
// is cleared locally and a single response.cancel is sent. The session stays
// open and a new utterance can start right away. It returns false, doing
// nothing, when no response is in flight.
func (o *Orchestrator) Interrupt() bool {
	o.mu.Lock()
	s := o.session
	if s == nil {
		o.mu.Unlock()
		return false
	}
	responseID, signals, ok := s.interpreter.Cancel()
	if !ok {
		o.mu.Unlock()
		return false
	}
	o.publish(signals...)
	o.refreshStateLocked(s)
	o.mu.Unlock()

	o.audioOutput.Clear()
	if s.monitor != nil {
		s.monitor.SetRemoteVocalizing(false)
	}

	s.sendMu.Lock()
	s.send(protocol.NewResponseCancel(responseID))
	s.sendMu.Unlock()

	logger.Info("response interrupted", "session", s.id, "response", responseID)
	return true
}
