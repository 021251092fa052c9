package portaudio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/chukwumela909/voice-agent-market/core/audio"
	"github.com/gordonklaus/portaudio"
)

// Client runs a blocking full duplex PortAudio stream on the default devices.
type Client struct {
	frameSize int
	stream    *portaudio.Stream

	in  []int16
	out []int16

	captureMu   sync.Mutex
	stopCapture context.CancelFunc
	captureDone chan struct{}

	playbackMu sync.Mutex
	pending    []byte
}

func NewClient(frameSize int) (*Client, error) {
	if frameSize <= 0 {
		return nil, fmt.Errorf("invalid frame size %d", frameSize)
	}
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	in := make([]int16, frameSize)
	out := make([]int16, frameSize)
	stream, err := portaudio.OpenDefaultStream(1, 1, audio.DefaultSampleRate, frameSize, in, out)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("failed to open portaudio stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("failed to start portaudio stream: %w", err)
	}

	return &Client{frameSize: frameSize, stream: stream, in: in, out: out}, nil
}

// StartCapture reads the microphone on a background goroutine until
// StopCapture is called or ctx ends.
func (c *Client) StartCapture(ctx context.Context, onAudio func(audio []byte)) error {
	c.captureMu.Lock()
	defer c.captureMu.Unlock()

	if c.stopCapture != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.stopCapture, c.captureDone = cancel, done

	go func() {
		defer close(done)
		for ctx.Err() == nil {
			if err := c.stream.Read(); err != nil && !errors.Is(err, portaudio.InputOverflowed) {
				logger.Warn("failed to read from portaudio stream", "error", err)
				continue
			}
			onAudio(encodeSamples(c.in))
		}
	}()
	return nil
}

func (c *Client) StopCapture() error {
	c.captureMu.Lock()
	cancel, done := c.stopCapture, c.captureDone
	c.stopCapture, c.captureDone = nil, nil
	c.captureMu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

// SendAudio writes whole frames to the stream and keeps the remainder for the
// next call.
func (c *Client) SendAudio(audio []byte) error {
	c.playbackMu.Lock()
	defer c.playbackMu.Unlock()

	c.pending = append(c.pending, audio...)
	frameBytes := c.frameSize * 2
	for len(c.pending) >= frameBytes {
		decodeSamples(c.pending[:frameBytes], c.out)
		c.pending = c.pending[frameBytes:]
		if err := c.stream.Write(); err != nil && !errors.Is(err, portaudio.OutputUnderflowed) {
			return fmt.Errorf("failed to write to portaudio stream: %w", err)
		}
	}
	return nil
}

func (c *Client) ClearBuffer() {
	c.playbackMu.Lock()
	defer c.playbackMu.Unlock()
	c.pending = nil
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return audio.EncodingInfo{
		SampleRate: audio.DefaultSampleRate,
		Format:     audio.EncodingLinear16,
	}
}

func (c *Client) Close() error {
	_ = c.StopCapture()
	err := errors.Join(c.stream.Stop(), c.stream.Close())
	return errors.Join(err, portaudio.Terminate())
}

func encodeSamples(samples []int16) []byte {
	frame := make([]byte, len(samples)*2)
	for i, sample := range samples {
		binary.LittleEndian.PutUint16(frame[i*2:], uint16(sample))
	}
	return frame
}

func decodeSamples(frame []byte, samples []int16) {
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(frame[i*2:]))
	}
}
