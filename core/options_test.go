package orchestration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chukwumela909/voice-agent-market/core/events"
	"github.com/chukwumela909/voice-agent-market/core/presence"
	"github.com/chukwumela909/voice-agent-market/core/tools"
)

func TestNewOrchestratorDefaults(t *testing.T) {
	o := NewOrchestrator()

	if o.State() != StateIdle {
		t.Fatalf("expected idle, got %q", o.State())
	}
	if o.toolTimeout != defaultToolTimeout {
		t.Fatalf("expected default tool timeout, got %s", o.toolTimeout)
	}
	if o.presenceSource != PresenceMicrophone {
		t.Fatalf("expected microphone presence by default, got %q", o.presenceSource)
	}
	if len(o.registry.Specs()) != 0 {
		t.Fatalf("expected no tools by default")
	}
}

func TestWithToolTimeoutIgnoresNonPositive(t *testing.T) {
	o := NewOrchestrator(WithToolTimeout(5*time.Second), WithToolTimeout(0), WithToolTimeout(-time.Second))

	if o.toolTimeout != 5*time.Second {
		t.Fatalf("expected the last positive timeout, got %s", o.toolTimeout)
	}
}

func TestWithToolsRegistersDefinitions(t *testing.T) {
	o := NewOrchestrator(WithTools(tools.MarketTools()...))

	for _, name := range []string{tools.NameGetMarketPrice, tools.NameGetTechnicalIndicators, tools.NameGetPortfolio, tools.NameUpdateWatchlist} {
		if !o.registry.Has(name) {
			t.Fatalf("expected %s to be registered", name)
		}
	}
}

func TestWithEventBusSharesSignals(t *testing.T) {
	bus := events.NewBus()
	subscription := bus.Subscribe()
	o := NewOrchestrator(
		WithEventBus(bus),
		WithCredentialAcquirer(staticAcquirer("ek_test")),
		WithTransport(newFakeTransport()),
		WithAudioInput(&fakeAudioInput{}),
		WithPresence(PresenceDisabled),
	)
	t.Cleanup(o.Close)

	if err := o.Connect(context.Background(), "markets", ""); err != nil {
		t.Fatalf("expected connect to succeed, got %v", err)
	}

	select {
	case event := <-subscription.Events():
		if event.Kind() != events.KindConnectionStateChanged {
			t.Fatalf("expected a state change first, got %s", event.Kind())
		}
	case <-time.After(testTimeout):
		t.Fatalf("expected signals on the shared bus")
	}
}

func TestPresenceMonitorPublishesLevels(t *testing.T) {
	h := newHarness(t, WithPresence(PresenceMicrophone, presence.WithInterval(time.Millisecond)))
	h.connect(t)

	loud := make([]byte, 320)
	for i := 0; i < len(loud); i += 2 {
		loud[i+1] = 0x40
	}
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		for {
			select {
			case <-stop:
				return
			case <-time.After(time.Millisecond):
				h.input.emit(loud)
			}
		}
	}()

	h.waitFor(t, "presence level", func(event events.Event) bool {
		updated, ok := event.(events.PresenceUpdated)
		return ok && updated.Level > 0
	})
}

func TestBaseContextCancellationTearsDownSession(t *testing.T) {
	ctx, cancel := context.WithCancelCause(context.Background())
	h := newHarness(t, WithBaseContext(ctx))
	channel := h.connect(t)

	shutdown := errors.New("shutting down")
	cancel(shutdown)

	disconnected := h.waitFor(t, "disconnected", func(event events.Event) bool {
		_, ok := event.(events.Disconnected)
		return ok
	}).(events.Disconnected)
	if !errors.Is(disconnected.Err, shutdown) {
		t.Fatalf("expected the cancellation cause, got %v", disconnected.Err)
	}
	waitUntil(t, "idle", func() bool { return h.orchestrator.State() == StateIdle })
	if !channel.isClosed() || h.input.isCapturing() {
		t.Fatalf("expected resources to be released")
	}
}
