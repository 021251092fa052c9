package orchestration

import (
	"context"
	"time"

	"github.com/chukwumela909/voice-agent-market/core/audio"
	"github.com/chukwumela909/voice-agent-market/core/credentials"
	"github.com/chukwumela909/voice-agent-market/core/events"
	"github.com/chukwumela909/voice-agent-market/core/presence"
	"github.com/chukwumela909/voice-agent-market/core/protocol"
	"github.com/chukwumela909/voice-agent-market/core/tools"
)

type OrchestratorOption func(*Orchestrator)

// AudioInput is the local capture device. StartCapture may fail when the
// platform or user denies access.
type AudioInput interface {
	EncodingInfo() audio.EncodingInfo
	StartCapture(ctx context.Context, onAudio func(audio []byte)) error
	StopCapture() error
}

// AudioOutput plays remote audio.
type AudioOutput interface {
	EncodingInfo() audio.EncodingInfo
	SendAudio(audio []byte) error
	ClearBuffer()
}

func WithCredentialAcquirer(acquirer credentials.Acquirer) OrchestratorOption {
	return func(o *Orchestrator) { o.acquirer = acquirer }
}

func WithTransport(transport protocol.Transport) OrchestratorOption {
	return func(o *Orchestrator) { o.transport = transport }
}

func WithAudioInput(client AudioInput) OrchestratorOption {
	return func(o *Orchestrator) { o.audioInput.Set(client) }
}

func WithAudioOutput(client AudioOutput) OrchestratorOption {
	return func(o *Orchestrator) { o.audioOutput.Set(client) }
}

// WithTools registers tool definitions offered to the remote service.
func WithTools(definitions ...tools.Definition) OrchestratorOption {
	return func(o *Orchestrator) {
		for _, definition := range definitions {
			o.registry.Register(definition)
		}
	}
}

// WithToolRegistry replaces the tool registry.
func WithToolRegistry(registry *tools.Registry) OrchestratorOption {
	return func(o *Orchestrator) {
		if registry != nil {
			o.registry = registry
		}
	}
}

func WithToolExecutor(executor tools.Executor) OrchestratorOption {
	return func(o *Orchestrator) { o.executor = executor }
}

// WithToolTimeout bounds each tool call. A call that runs out of time
// resolves as a failed result.
func WithToolTimeout(timeout time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if timeout > 0 {
			o.toolTimeout = timeout
		}
	}
}

// PresenceSource selects which audio stream drives the presence level.
type PresenceSource string

const (
	PresenceDisabled   PresenceSource = "disabled"
	PresenceMicrophone PresenceSource = "microphone"
	PresenceRemote     PresenceSource = "remote"
)

func WithPresence(source PresenceSource, opts ...presence.Option) OrchestratorOption {
	return func(o *Orchestrator) {
		o.presenceSource = source
		o.presenceOptions = opts
	}
}

// WithEventBus publishes signals on a caller owned bus.
func WithEventBus(bus *events.Bus) OrchestratorOption {
	return func(o *Orchestrator) {
		if bus != nil {
			o.bus = bus
		}
	}
}

// WithBaseContext sets the parent of every session context. Cancelling it
// tears down the open session.
func WithBaseContext(ctx context.Context) OrchestratorOption {
	return func(o *Orchestrator) {
		if ctx != nil {
			o.baseContext = ctx
		}
	}
}
