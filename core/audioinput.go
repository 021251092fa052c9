package orchestration

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/chukwumela909/voice-agent-market/core/audio"
)

// audioInput owns the capture device for the duration of one connection
// attempt and the session it produces.
type audioInput struct {
	// base stores the configured capture client.
	base AudioInput

	// isCapturing reports whether the device is currently delivering audio.
	isCapturing atomic.Bool

	mu sync.Mutex
}

func newAudioInput(client AudioInput) *audioInput {
	a := &audioInput{}
	a.Set(client)
	return a
}

// Set replaces the capture client. Nil and typed-nil clients are treated as
// unconfigured.
func (a *audioInput) Set(client AudioInput) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.base = nil
	if isNilClient(client) {
		return
	}
	a.base = client
}

func (a *audioInput) IsConfigured() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.base != nil
}

func (a *audioInput) IsCapturing() bool { return a.isCapturing.Load() }

// Start acquires the device. Failure means the device is denied or missing.
func (a *audioInput) Start(ctx context.Context, onAudio func(audio []byte)) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.base == nil {
		return fmt.Errorf("no audio input configured")
	}
	if !a.isCapturing.CompareAndSwap(false, true) {
		return nil
	}

	if err := a.base.StartCapture(ctx, onAudio); err != nil {
		a.isCapturing.Store(false)
		return fmt.Errorf("failed to start capture: %w", err)
	}
	return nil
}

// Stop releases the device. It is safe to call when not capturing.
func (a *audioInput) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.base == nil || !a.isCapturing.CompareAndSwap(true, false) {
		return nil
	}
	if err := a.base.StopCapture(); err != nil {
		return fmt.Errorf("failed to stop capture: %w", err)
	}
	return nil
}

func (a *audioInput) EncodingInfo() audio.EncodingInfo {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.base == nil {
		return audio.GetDefaultEncodingInfo()
	}
	return a.base.EncodingInfo()
}

// isNilClient detects nil and typed-nil interface values so facades never
// store unusable wrappers as configured clients.
func isNilClient(client any) bool {
	if client == nil {
		return true
	}

	v := reflect.ValueOf(client)
	switch v.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		return v.IsNil()
	default:
		return false
	}
}
