package orchestration

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chukwumela909/voice-agent-market/core/credentials"
	"github.com/chukwumela909/voice-agent-market/core/events"
	"github.com/chukwumela909/voice-agent-market/core/presence"
	"github.com/chukwumela909/voice-agent-market/core/protocol"
	"github.com/chukwumela909/voice-agent-market/core/tools"
	"go.opentelemetry.io/otel/metric"
)

const defaultToolTimeout = 30 * time.Second

// Orchestrator runs at most one realtime voice session at a time. It owns the
// connection lifecycle, interprets the inbound control stream, fulfills tool
// calls and handles barge-in. Everything observable is published on the
// signal bus returned by Events.
type Orchestrator struct {
	acquirer    credentials.Acquirer
	transport   protocol.Transport
	registry    *tools.Registry
	executor    tools.Executor
	toolTimeout time.Duration

	// audioInput is the capture facade owned by the open session.
	audioInput *audioInput
	// audioOutput is the playback facade for remote audio.
	audioOutput *audioOutput

	presenceSource  PresenceSource
	presenceOptions []presence.Option

	bus         *events.Bus
	baseContext context.Context

	// mu guards state, attempt, session and the session interpreter.
	mu      sync.Mutex
	state   ConnectionState
	attempt *connectAttempt
	session *session
	// live is the session microphone audio is forwarded to.
	live atomic.Pointer[session]

	closed    atomic.Bool
	closeOnce sync.Once

	toolCalls      metric.Int64Counter
	droppedControl metric.Int64Counter
}

func NewOrchestrator(opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		registry:       tools.NewRegistry(),
		toolTimeout:    defaultToolTimeout,
		audioInput:     newAudioInput(nil),
		audioOutput:    newAudioOutput(nil),
		presenceSource: PresenceMicrophone,
		bus:            events.NewBus(),
		baseContext:    context.Background(),
		state:          StateIdle,
	}

	for _, opt := range opts {
		opt(o)
	}

	o.toolCalls, _ = meter.Int64Counter("orchestration.tool_calls",
		metric.WithDescription("Tool calls resolved, by outcome"))
	o.droppedControl, _ = meter.Int64Counter("orchestration.control_events.dropped",
		metric.WithDescription("Inbound control events dropped as unknown or malformed"))

	return o
}

// Events subscribes to the signal surface.
func (o *Orchestrator) Events(opts ...events.SubscriptionOption) *events.Subscription {
	return o.bus.Subscribe(opts...)
}

// State returns the current connection state.
func (o *Orchestrator) State() ConnectionState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Close tears down any session and shuts the signal bus down. The
// orchestrator cannot connect again afterwards.
func (o *Orchestrator) Close() {
	o.closeOnce.Do(func() {
		o.closed.Store(true)
		o.Disconnect()
		o.bus.Shutdown()
	})
}

func (o *Orchestrator) publish(signals ...events.Event) {
	for _, signal := range signals {
		o.bus.Publish(signal)
	}
}

// setStateLocked moves the lifecycle to next. It must be called with mu held.
func (o *Orchestrator) setStateLocked(next ConnectionState) {
	previous := o.state
	if previous == next {
		return
	}
	if err := transition(previous, next); err != nil {
		logger.Error("rejecting state change", "error", err)
		return
	}

	o.state = next
	o.publish(events.NewConnectionStateChanged(previous, next))

	if wasListening, isListening := previous == StateListening, next == StateListening; wasListening != isListening {
		o.publish(events.NewListeningChanged(isListening))
	}
}

// refreshStateLocked reports the state derived from the session flags. It
// must be called with mu held.
func (o *Orchestrator) refreshStateLocked(s *session) {
	if o.session != s || !o.state.IsConnected() {
		return
	}
	o.setStateLocked(derivedState(s.interpreter.Fetching(), s.interpreter.Vocalizing()))
}
