package events

import (
	"errors"
	"testing"
	"time"
)

func TestConstructorsEmitExpectedKinds(t *testing.T) {
	testCases := []struct {
		name     string
		event    Event
		expected Kind
	}{
		{name: "state changed", event: NewConnectionStateChanged(StateIdle, StateRequesting), expected: KindConnectionStateChanged},
		{name: "connectivity changed", event: NewConnectivityChanged(true, "s"), expected: KindConnectivityChanged},
		{name: "disconnected", event: NewDisconnected("s", true, errors.New("boom")), expected: KindDisconnected},
		{name: "error", event: NewErrorOccurred(errors.New("boom")), expected: KindErrorOccurred},
		{name: "listening changed", event: NewListeningChanged(true), expected: KindListeningChanged},
		{name: "speaking changed", event: NewSpeakingChanged(true), expected: KindSpeakingChanged},
		{name: "fetching changed", event: NewFetchingChanged(true, "get_market_price"), expected: KindFetchingChanged},
		{name: "presence updated", event: NewPresenceUpdated(0.5, false), expected: KindPresenceUpdated},
		{name: "user transcript updated", event: NewUserTranscriptUpdated("i", "text"), expected: KindUserTranscriptUpdated},
		{name: "user transcript final", event: NewUserTranscriptFinal("i", "text"), expected: KindUserTranscriptFinal},
		{name: "assistant response segment", event: NewAssistantResponseSegment("r", "seg"), expected: KindAssistantResponseSegment},
		{name: "assistant response final", event: NewAssistantResponseFinal("r"), expected: KindAssistantResponseFinal},
		{name: "tool call started", event: NewToolCallStarted("a", "t", "{}"), expected: KindToolCallStarted},
		{name: "tool call completed", event: NewToolCallCompleted("a", "t", "{}"), expected: KindToolCallCompleted},
		{name: "tool call failed", event: NewToolCallFailed("a", "t", "bad"), expected: KindToolCallFailed},
		{name: "turn completed", event: NewTurnCompleted(), expected: KindTurnCompleted},
		{name: "turn cancelled", event: NewTurnCancelled("r"), expected: KindTurnCancelled},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if got := testCase.event.Kind(); got != testCase.expected {
				t.Fatalf("expected kind %q, got %q", testCase.expected, got)
			}
			if testCase.event.Timestamp().IsZero() {
				t.Fatalf("expected timestamp to be set")
			}
		})
	}
}

func TestErrorOccurredWithNilErrorHasEmptyMessage(t *testing.T) {
	if got := NewErrorOccurred(nil).Message; got != "" {
		t.Fatalf("expected empty message, got %q", got)
	}
}

func TestConnectedStates(t *testing.T) {
	connected := []ConnectionState{StateConnected, StateListening, StateAgentSpeaking, StateFetching}
	for _, state := range connected {
		if !state.IsConnected() {
			t.Fatalf("expected %q to be connected", state)
		}
	}

	notConnected := []ConnectionState{StateIdle, StateRequesting, StateNegotiating, StateClosed, StateError}
	for _, state := range notConnected {
		if state.IsConnected() {
			t.Fatalf("expected %q to not be connected", state)
		}
	}
}

func TestBusDeliversToAllSubscribers(t *testing.T) {
	bus := NewBus()
	first := bus.Subscribe()
	second := bus.Subscribe()
	defer first.Close()
	defer second.Close()

	bus.Publish(NewTurnCompleted())

	for _, sub := range []*Subscription{first, second} {
		select {
		case event := <-sub.Events():
			if event.Kind() != KindTurnCompleted {
				t.Fatalf("expected %q, got %q", KindTurnCompleted, event.Kind())
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for event")
		}
	}
}

func TestBusFiltersByKind(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(WithKinds(KindFetchingChanged))
	defer sub.Close()

	bus.Publish(NewTurnCompleted())
	bus.Publish(NewFetchingChanged(true, "get_portfolio"))

	select {
	case event := <-sub.Events():
		if event.Kind() != KindFetchingChanged {
			t.Fatalf("expected only fetching events, got %q", event.Kind())
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for event")
	}
}

func TestBusDropsPresenceWhenSubscriberIsFull(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(WithBuffer(1))
	defer sub.Close()

	bus.Publish(NewPresenceUpdated(0.1, false))
	bus.Publish(NewPresenceUpdated(0.2, false))

	if got := len(sub.Events()); got != 1 {
		t.Fatalf("expected one buffered event, got %d", got)
	}
	if event := <-sub.Events(); event.(PresenceUpdated).Level != 0.1 {
		t.Fatalf("expected first sample to be kept, got %+v", event)
	}
	select {
	case event := <-sub.Events():
		t.Fatalf("expected the second sample to be dropped, got %+v", event)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestBusQueuesStateEventsForSlowSubscriber(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(WithBuffer(1))
	defer sub.Close()

	bus.Publish(NewFetchingChanged(true, "get_market_price"))
	bus.Publish(NewPresenceUpdated(0.5, false))
	bus.Publish(NewFetchingChanged(false, ""))
	bus.Publish(NewConnectionStateChanged(StateFetching, StateListening))

	want := []Kind{KindFetchingChanged, KindFetchingChanged, KindConnectionStateChanged}
	for i, kind := range want {
		select {
		case event := <-sub.Events():
			if event.Kind() != kind {
				t.Fatalf("event %d: expected %q, got %q", i, kind, event.Kind())
			}
			if i == 1 && event.(FetchingChanged).Fetching {
				t.Fatalf("expected fetching to be lowered")
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for event %d", i)
		}
	}
}

func TestBusShutdownClosesSubscriptions(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe()

	bus.Shutdown()
	bus.Publish(NewTurnCompleted())
	sub.Close()

	if _, ok := <-sub.Events(); ok {
		t.Fatalf("expected subscription channel to be closed")
	}

	late := bus.Subscribe()
	if _, ok := <-late.Events(); ok {
		t.Fatalf("expected late subscription channel to be closed")
	}
}
