package orchestration

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/chukwumela909/voice-agent-market/core/audio"
	"github.com/chukwumela909/voice-agent-market/core/credentials"
	"github.com/chukwumela909/voice-agent-market/core/events"
	"github.com/chukwumela909/voice-agent-market/core/protocol"
	"github.com/chukwumela909/voice-agent-market/core/tools"
)

const testTimeout = 2 * time.Second

type sentMessage map[string]any

func (m sentMessage) Type() string {
	value, _ := m["type"].(string)
	return value
}

type fakeChannel struct {
	id       string
	inbound  chan protocol.Message
	sent     chan sentMessage
	endOnce  sync.Once
	mu       sync.Mutex
	closed   bool
	err      error
	audioOut [][]byte
}

func newFakeChannel(id string) *fakeChannel {
	return &fakeChannel{
		id:      id,
		inbound: make(chan protocol.Message, 64),
		sent:    make(chan sentMessage, 64),
	}
}

func (c *fakeChannel) SessionID() string                { return c.id }
func (c *fakeChannel) Messages() <-chan protocol.Message { return c.inbound }

func (c *fakeChannel) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *fakeChannel) SendJSON(v any) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return protocol.ErrChannelClosed
	}

	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var message sentMessage
	if err := json.Unmarshal(data, &message); err != nil {
		return err
	}
	c.sent <- message
	return nil
}

func (c *fakeChannel) SendAudio(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return protocol.ErrChannelClosed
	}
	c.audioOut = append(c.audioOut, frame)
	return nil
}

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.endOnce.Do(func() { close(c.inbound) })
	return nil
}

func (c *fakeChannel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeChannel) pushJSON(t *testing.T, event string) {
	t.Helper()
	c.inbound <- protocol.Message{Type: protocol.TextMessage, Data: []byte(event)}
}

func (c *fakeChannel) pushAudio(frame []byte) {
	c.inbound <- protocol.Message{Type: protocol.BinaryMessage, Data: frame}
}

// fail ends the channel the way a dropped connection would.
func (c *fakeChannel) fail(err error) {
	c.mu.Lock()
	c.err = err
	c.closed = true
	c.mu.Unlock()
	c.endOnce.Do(func() { close(c.inbound) })
}

func (c *fakeChannel) nextSent(t *testing.T) sentMessage {
	t.Helper()
	select {
	case message := <-c.sent:
		return message
	case <-time.After(testTimeout):
		t.Fatalf("timed out waiting for an outbound control event")
		return nil
	}
}

func (c *fakeChannel) expectNothingSent(t *testing.T, within time.Duration) {
	t.Helper()
	select {
	case message := <-c.sent:
		t.Fatalf("expected no outbound control event, got %v", message)
	case <-time.After(within):
	}
}

type fakeTransport struct {
	mu      sync.Mutex
	channel *fakeChannel
	err     error
	// block makes Open wait until ctx is done.
	block   bool
	started chan protocol.SessionStart
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{channel: newFakeChannel("srv-session"), started: make(chan protocol.SessionStart, 4)}
}

func (f *fakeTransport) Open(ctx context.Context, start protocol.SessionStart) (protocol.Channel, error) {
	f.started <- start

	f.mu.Lock()
	block, err, channel := f.block, f.err, f.channel
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	return channel, nil
}

type fakeAudioInput struct {
	mu        sync.Mutex
	startErr  error
	capturing bool
	starts    int
	stops     int
	onAudio   func([]byte)
}

func (f *fakeAudioInput) EncodingInfo() audio.EncodingInfo { return audio.GetDefaultEncodingInfo() }

func (f *fakeAudioInput) StartCapture(_ context.Context, onAudio func([]byte)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	if f.startErr != nil {
		return f.startErr
	}
	f.capturing = true
	f.onAudio = onAudio
	return nil
}

func (f *fakeAudioInput) StopCapture() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	f.capturing = false
	f.onAudio = nil
	return nil
}

func (f *fakeAudioInput) isCapturing() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.capturing
}

func (f *fakeAudioInput) emit(frame []byte) {
	f.mu.Lock()
	onAudio := f.onAudio
	f.mu.Unlock()
	if onAudio != nil {
		onAudio(frame)
	}
}

type fakeAudioOutput struct {
	mu     sync.Mutex
	chunks [][]byte
	clears int
}

func (f *fakeAudioOutput) EncodingInfo() audio.EncodingInfo { return audio.GetDefaultEncodingInfo() }

func (f *fakeAudioOutput) SendAudio(chunk []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chunks = append(f.chunks, chunk)
	return nil
}

func (f *fakeAudioOutput) ClearBuffer() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clears++
}

func (f *fakeAudioOutput) counts() (chunks int, clears int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.chunks), f.clears
}

func staticAcquirer(value string) credentials.Acquirer {
	return credentials.AcquirerFunc(func(context.Context, string, string) (credentials.Credential, error) {
		return credentials.Credential{Value: value, ExpiresAt: time.Now().Add(time.Minute)}, nil
	})
}

type harness struct {
	orchestrator *Orchestrator
	transport    *fakeTransport
	input        *fakeAudioInput
	output       *fakeAudioOutput
	events       *events.Subscription
}

func newHarness(t *testing.T, opts ...OrchestratorOption) *harness {
	t.Helper()

	h := &harness{
		transport: newFakeTransport(),
		input:     &fakeAudioInput{},
		output:    &fakeAudioOutput{},
	}
	base := []OrchestratorOption{
		WithCredentialAcquirer(staticAcquirer("ek_test")),
		WithTransport(h.transport),
		WithAudioInput(h.input),
		WithAudioOutput(h.output),
		WithTools(tools.MarketTools()...),
		WithPresence(PresenceDisabled),
	}
	h.orchestrator = NewOrchestrator(append(base, opts...)...)
	h.events = h.orchestrator.Events(events.WithBuffer(1024))
	t.Cleanup(h.orchestrator.Close)
	return h
}

func (h *harness) connect(t *testing.T) *fakeChannel {
	t.Helper()
	if err := h.orchestrator.Connect(context.Background(), "markets", "user-1"); err != nil {
		t.Fatalf("expected connect to succeed, got %v", err)
	}
	return h.transport.channel
}

// waitFor consumes signals until match returns true.
func (h *harness) waitFor(t *testing.T, description string, match func(events.Event) bool) events.Event {
	t.Helper()
	deadline := time.After(testTimeout)
	for {
		select {
		case event, ok := <-h.events.Events():
			if !ok {
				t.Fatalf("signal subscription closed while waiting for %s", description)
			}
			if match(event) {
				return event
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", description)
			return nil
		}
	}
}

func (h *harness) waitForState(t *testing.T, state ConnectionState) {
	t.Helper()
	h.waitFor(t, "state "+string(state), func(event events.Event) bool {
		changed, ok := event.(events.ConnectionStateChanged)
		return ok && changed.Current == state
	})
}

func waitUntil(t *testing.T, description string, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(testTimeout)
	for !condition() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting until %s", description)
		}
		time.Sleep(time.Millisecond)
	}
}

var errCollaborator = errors.New("market data provider unavailable")
