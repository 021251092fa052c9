package orchestration

import (
	"sync"

	"github.com/chukwumela909/voice-agent-market/core/audio"
)

// audioOutput forwards remote audio to the playback client. Without a client
// configured every call is a no-op so sessions can run headless.
//
// Playback errors are logged and otherwise ignored; losing a chunk of remote
// audio never affects the protocol.
type audioOutput struct {
	mu   sync.RWMutex
	base AudioOutput
}

func newAudioOutput(client AudioOutput) *audioOutput {
	a := &audioOutput{}
	a.Set(client)
	return a
}

func (a *audioOutput) Set(client AudioOutput) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.base = nil
	if isNilClient(client) {
		return
	}
	a.base = client
}

func (a *audioOutput) client() AudioOutput {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.base
}

func (a *audioOutput) SendAudio(chunk []byte) {
	if client := a.client(); client != nil {
		if err := client.SendAudio(chunk); err != nil {
			logger.Debug("failed to play remote audio", "error", err)
		}
	}
}

// Clear drops buffered playback immediately.
func (a *audioOutput) Clear() {
	if client := a.client(); client != nil {
		client.ClearBuffer()
	}
}

func (a *audioOutput) EncodingInfo() audio.EncodingInfo {
	if client := a.client(); client != nil {
		return client.EncodingInfo()
	}
	return audio.GetDefaultEncodingInfo()
}
