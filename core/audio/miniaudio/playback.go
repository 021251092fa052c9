package miniaudio

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
)

type playbackDevice struct {
	mu     sync.Mutex
	device *malgo.Device
	buffer playbackBuffer
}

func (p *playbackDevice) init(audioContext *malgo.AllocatedContext, sampleRate int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.SampleRate = uint32(sampleRate)
	config.Playback.Format = malgo.FormatS16
	config.Playback.Channels = 1
	config.Alsa.NoMMap = 1
	config.PeriodSizeInFrames = uint32(sampleRate / 10)
	config.Periods = 4

	device, err := malgo.InitDevice(audioContext.Context, config, malgo.DeviceCallbacks{
		Data: func(output, _ []byte, _ uint32) {
			p.buffer.fill(output)
		},
	})
	if err != nil {
		return err
	}
	p.device = device
	return nil
}

func (p *playbackDevice) start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.device == nil {
		return errDeviceNotInitialized
	}
	if err := p.device.Start(); err != nil {
		return fmt.Errorf("failed to start playback device: %w", err)
	}
	return nil
}

func (p *playbackDevice) write(audio []byte) error {
	p.mu.Lock()
	started := p.device != nil && p.device.IsStarted()
	p.mu.Unlock()
	if !started {
		return fmt.Errorf("playback device not started")
	}

	p.buffer.write(audio)
	return nil
}

func (p *playbackDevice) uninit() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.buffer.clear()
	if p.device != nil {
		p.device.Uninit()
		p.device = nil
	}
	return nil
}

// playbackBuffer queues remote audio until the device asks for it.
type playbackBuffer struct {
	mu      sync.Mutex
	pending []byte
}

func (b *playbackBuffer) write(audio []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = append(b.pending, audio...)
}

// fill copies queued audio into output and pads the rest with silence. It
// returns the number of queued bytes consumed.
func (b *playbackBuffer) fill(output []byte) int {
	b.mu.Lock()
	n := copy(output, b.pending)
	b.pending = b.pending[n:]
	if len(b.pending) == 0 {
		b.pending = nil
	}
	b.mu.Unlock()

	clear(output[n:])
	return n
}

func (b *playbackBuffer) clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = nil
}

func (b *playbackBuffer) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}
