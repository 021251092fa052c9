package miniaudio

import (
	"context"
	"errors"
	"fmt"

	"github.com/chukwumela909/voice-agent-market/core/audio"
	"github.com/gen2brain/malgo"
)

// Client drives the default capture and playback devices. Both run mono
// linear16 at the configured sample rate.
type Client struct {
	// audioContext is only kept so Close can release it.
	audioContext *malgo.AllocatedContext
	sampleRate   int

	playback playbackDevice
	capture  captureDevice
}

type Option func(*Client)

// WithSampleRate sets the device sample rate. It has to match the rate the
// remote service streams at.
func WithSampleRate(sampleRate int) Option {
	return func(c *Client) {
		if sampleRate > 0 {
			c.sampleRate = sampleRate
		}
	}
}

func NewClient(opts ...Option) (*Client, error) {
	client := &Client{sampleRate: audio.DefaultSampleRate}
	for _, opt := range opts {
		opt(client)
	}

	audioCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		logger.Debug("malgo", "message", message)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}
	client.audioContext = audioCtx

	if err := client.playback.init(audioCtx, client.sampleRate); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize playback device: %w", err)
	}
	if err := client.playback.start(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to start playback device: %w", err)
	}
	if err := client.capture.init(audioCtx, client.sampleRate); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize capture device: %w", err)
	}

	return client, nil
}

func (c *Client) StartCapture(_ context.Context, onAudio func(audio []byte)) error {
	return c.capture.start(onAudio)
}

func (c *Client) StopCapture() error {
	return c.capture.stop()
}

func (c *Client) SendAudio(audio []byte) error {
	return c.playback.write(audio)
}

// ClearBuffer drops audio queued for playback.
func (c *Client) ClearBuffer() {
	c.playback.buffer.clear()
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return audio.EncodingInfo{SampleRate: c.sampleRate, Format: audio.EncodingLinear16}
}

func (c *Client) Close() error {
	err := errors.Join(c.capture.uninit(), c.playback.uninit())
	if c.audioContext != nil {
		err = errors.Join(err, c.audioContext.Uninit())
		c.audioContext.Free()
		c.audioContext = nil
	}
	return err
}
