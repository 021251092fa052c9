package events

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	defaultSubscriptionBuffer = 256
	maxPendingEvents          = 1024
)

// Bus fans published events out to subscribers. Publishing never blocks. When
// a subscriber's buffer is full, presence samples are dropped for it and
// every other event is queued behind the buffer, up to maxPendingEvents.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[uint64]*Subscription
	nextID      uint64
	closed      bool

	dropped metric.Int64Counter
}

func NewBus() *Bus {
	dropped, _ := meter.Int64Counter("events.dropped",
		metric.WithDescription("Events dropped because a subscriber buffer was full"))

	return &Bus{
		subscribers: make(map[uint64]*Subscription),
		dropped:     dropped,
	}
}

type SubscriptionOption func(*subscriptionConfig)

type subscriptionConfig struct {
	buffer int
	kinds  map[Kind]struct{}
}

// WithBuffer sets the subscription channel capacity.
func WithBuffer(size int) SubscriptionOption {
	return func(c *subscriptionConfig) {
		if size > 0 {
			c.buffer = size
		}
	}
}

// WithKinds restricts delivery to the given kinds.
func WithKinds(kinds ...Kind) SubscriptionOption {
	return func(c *subscriptionConfig) {
		if c.kinds == nil {
			c.kinds = make(map[Kind]struct{}, len(kinds))
		}
		for _, kind := range kinds {
			c.kinds[kind] = struct{}{}
		}
	}
}

// Subscription receives events from a Bus until closed.
type Subscription struct {
	id    uint64
	bus   *Bus
	ch    chan Event
	kinds map[Kind]struct{}

	mu      sync.Mutex
	pending []Event
	wake    chan struct{}
	done    chan struct{}
	drained chan struct{}

	closeOnce sync.Once
}

// Subscribe registers a new subscriber. Subscribing to a shut down bus
// returns a subscription whose channel is already closed.
func (b *Bus) Subscribe(opts ...SubscriptionOption) *Subscription {
	cfg := subscriptionConfig{buffer: defaultSubscriptionBuffer}
	for _, opt := range opts {
		opt(&cfg)
	}

	sub := &Subscription{
		bus:     b,
		ch:      make(chan Event, cfg.buffer),
		kinds:   cfg.kinds,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		drained: make(chan struct{}),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(sub.drained)
		sub.shutdown()
		return sub
	}
	b.nextID++
	sub.id = b.nextID
	b.subscribers[sub.id] = sub
	go sub.drain()
	return sub
}

// Events returns the delivery channel. It is closed when the subscription or
// the bus is closed.
func (s *Subscription) Events() <-chan Event { return s.ch }

// Close unregisters the subscription.
func (s *Subscription) Close() {
	if s == nil || s.bus == nil {
		return
	}

	s.bus.mu.Lock()
	delete(s.bus.subscribers, s.id)
	s.bus.mu.Unlock()

	s.shutdown()
}

// shutdown stops the drain loop before closing the channel so nothing is
// sent on a closed channel.
func (s *Subscription) shutdown() {
	s.closeOnce.Do(func() {
		close(s.done)
		<-s.drained
		close(s.ch)
	})
}

// deliver hands the event over without blocking. It reports false when the
// event was dropped.
func (s *Subscription) deliver(event Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pending) == 0 {
		select {
		case s.ch <- event:
			return true
		default:
		}
	}
	if event.Kind() == KindPresenceUpdated || len(s.pending) >= maxPendingEvents {
		return false
	}
	s.pending = append(s.pending, event)
	select {
	case s.wake <- struct{}{}:
	default:
	}
	return true
}

// drain moves queued events into the channel in order. An event leaves the
// queue only once sent, so deliver never overtakes it.
func (s *Subscription) drain() {
	defer close(s.drained)
	for {
		s.mu.Lock()
		var next Event
		if len(s.pending) > 0 {
			next = s.pending[0]
		}
		s.mu.Unlock()

		if next == nil {
			select {
			case <-s.wake:
				continue
			case <-s.done:
				return
			}
		}

		select {
		case s.ch <- next:
			s.mu.Lock()
			s.pending[0] = nil
			s.pending = s.pending[1:]
			s.mu.Unlock()
		case <-s.done:
			return
		}
	}
}

func (s *Subscription) wants(kind Kind) bool {
	if len(s.kinds) == 0 {
		return true
	}
	_, ok := s.kinds[kind]
	return ok
}

// Publish delivers the event to every interested subscriber.
func (b *Bus) Publish(event Event) {
	if b == nil || event == nil {
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subscribers {
		if !sub.wants(event.Kind()) {
			continue
		}

		if !sub.deliver(event) {
			b.dropped.Add(context.Background(), 1, metric.WithAttributes(attribute.String("kind", string(event.Kind()))))
			logger.Debug("dropping event for slow subscriber", "kind", event.Kind(), "subscriber", sub.id)
		}
	}
}

// Shutdown closes all subscriptions. Later publishes are ignored.
func (b *Bus) Shutdown() {
	if b == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for id, sub := range b.subscribers {
		sub.shutdown()
		delete(b.subscribers, id)
	}
}
