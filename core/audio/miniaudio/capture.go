package miniaudio

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

var errDeviceNotInitialized = errors.New("device not initialized")

type captureDevice struct {
	mu     sync.Mutex
	device *malgo.Device

	// onAudio is read from the device thread.
	onAudio atomic.Pointer[func([]byte)]
}

func (c *captureDevice) init(audioContext *malgo.AllocatedContext, sampleRate int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	format := malgo.FormatS16
	bytesPerFrame := malgo.SampleSizeInBytes(format)

	config := malgo.DefaultDeviceConfig(malgo.Capture)
	config.SampleRate = uint32(sampleRate)
	config.Capture.Format = format
	config.Capture.Channels = 1
	config.Alsa.NoMMap = 1
	config.PerformanceProfile = malgo.LowLatency
	// 30ms periods keep barge-in responsive.
	config.PeriodSizeInFrames = uint32(sampleRate * 30 / 1000)
	config.Periods = 3

	device, err := malgo.InitDevice(audioContext.Context, config, malgo.DeviceCallbacks{
		Data: func(_, input []byte, frameCount uint32) {
			frame := capturedFrame(input, frameCount, bytesPerFrame)
			if frame == nil {
				return
			}
			if onAudio := c.onAudio.Load(); onAudio != nil {
				(*onAudio)(frame)
			}
		},
	})
	if err != nil {
		return err
	}
	c.device = device
	return nil
}

// capturedFrame copies the valid part of the device buffer. miniaudio reuses
// the buffer after the callback returns.
func capturedFrame(input []byte, frameCount uint32, bytesPerFrame int) []byte {
	n := int(frameCount) * bytesPerFrame
	if n == 0 || len(input) < n {
		return nil
	}
	frame := make([]byte, n)
	copy(frame, input[:n])
	return frame
}

func (c *captureDevice) start(onAudio func([]byte)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device == nil {
		return errDeviceNotInitialized
	}
	c.onAudio.Store(&onAudio)
	if c.device.IsStarted() {
		return nil
	}
	if err := c.device.Start(); err != nil {
		c.onAudio.Store(nil)
		return fmt.Errorf("failed to start capture device: %w", err)
	}
	return nil
}

func (c *captureDevice) stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.onAudio.Store(nil)
	if c.device == nil || !c.device.IsStarted() {
		return nil
	}
	if err := c.device.Stop(); err != nil {
		return fmt.Errorf("failed to stop capture device: %w", err)
	}
	return nil
}

func (c *captureDevice) uninit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.onAudio.Store(nil)
	if c.device != nil {
		c.device.Uninit()
		c.device = nil
	}
	return nil
}
