// Package presence derives a smoothed activity level from an audio stream for
// UI feedback. It never influences the conversation protocol.
package presence

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chukwumela909/voice-agent-market/core/audio"
)

const (
	DefaultInterval = 16 * time.Millisecond
	DefaultAttack   = 0.6
	DefaultRelease  = 0.08
	DefaultGain     = 4.0

	minimumChange = 0.005
)

// Sample is one smoothed presence reading.
type Sample struct {
	Level            float64
	RemoteVocalizing bool
}

type Option func(*Monitor)

func WithInterval(interval time.Duration) Option {
	return func(m *Monitor) {
		if interval > 0 {
			m.interval = interval
		}
	}
}

// WithSmoothing sets the attack (rise) and release (decay) coefficients, both
// in (0,1].
func WithSmoothing(attack, release float64) Option {
	return func(m *Monitor) {
		if attack > 0 && attack <= 1 {
			m.attack = attack
		}
		if release > 0 && release <= 1 {
			m.release = release
		}
	}
}

// WithGain scales raw energy before clamping so ordinary speech reaches the
// upper half of the range.
func WithGain(gain float64) Option {
	return func(m *Monitor) {
		if gain > 0 {
			m.gain = gain
		}
	}
}

// Monitor samples fed audio at a fixed cadence.
type Monitor struct {
	encoding audio.EncodingInfo
	onSample func(Sample)

	interval time.Duration
	attack   float64
	release  float64
	gain     float64

	mu    sync.Mutex
	peak  float64
	level float64
	last  Sample

	remoteVocalizing atomic.Bool
	running          atomic.Bool

	lifecycle sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewMonitor(encoding audio.EncodingInfo, onSample func(Sample), opts ...Option) *Monitor {
	if encoding.IsZero() {
		encoding = audio.GetDefaultEncodingInfo()
	}
	if onSample == nil {
		onSample = func(Sample) {}
	}

	m := &Monitor{
		encoding: encoding,
		onSample: onSample,
		interval: DefaultInterval,
		attack:   DefaultAttack,
		release:  DefaultRelease,
		gain:     DefaultGain,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Write feeds one audio frame. Frames written while the monitor is stopped are
// ignored.
func (m *Monitor) Write(frame []byte) {
	if !m.running.Load() {
		return
	}

	energy := clamp(Energy(frame, m.encoding) * m.gain)
	m.mu.Lock()
	m.peak = math.Max(m.peak, energy)
	m.mu.Unlock()
}

func (m *Monitor) SetRemoteVocalizing(vocalizing bool) {
	m.remoteVocalizing.Store(vocalizing)
}

// Level returns the latest smoothed level.
func (m *Monitor) Level() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.level
}

// Start begins periodic sampling. Calling Start on a running monitor is a
// no-op.
func (m *Monitor) Start(ctx context.Context) {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	if m.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	m.running.Store(true)

	go m.run(ctx, m.done)
}

// Stop halts sampling and returns once no further samples can be delivered.
func (m *Monitor) Stop() {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	if m.cancel == nil {
		return
	}

	m.running.Store(false)
	m.cancel()
	<-m.done
	m.cancel = nil
	m.done = nil

	m.mu.Lock()
	m.peak = 0
	m.level = 0
	m.last = Sample{}
	m.mu.Unlock()
}

func (m *Monitor) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		sample, changed := m.tick()
		if !changed {
			continue
		}
		// Stop may have been requested while this tick was computed.
		if ctx.Err() != nil {
			return
		}
		m.onSample(sample)
	}
}

func (m *Monitor) tick() (Sample, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.level = Smooth(m.level, m.peak, m.attack, m.release)
	if m.level < minimumChange {
		m.level = 0
	}
	m.peak = 0

	sample := Sample{Level: m.level, RemoteVocalizing: m.remoteVocalizing.Load()}
	changed := math.Abs(sample.Level-m.last.Level) >= minimumChange ||
		sample.RemoteVocalizing != m.last.RemoteVocalizing ||
		(sample.Level == 0 && m.last.Level != 0)
	if changed {
		m.last = sample
	}
	return sample, changed
}
