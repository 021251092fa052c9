package miniaudio

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPlaybackBufferFillPadsWithSilence(t *testing.T) {
	var buffer playbackBuffer
	buffer.write([]byte{1, 2, 3})

	output := []byte{9, 9, 9, 9, 9, 9}
	require.Equal(t, 3, buffer.fill(output))
	require.Equal(t, []byte{1, 2, 3, 0, 0, 0}, output)
	require.Zero(t, buffer.len())
}

func TestPlaybackBufferFillKeepsRemainder(t *testing.T) {
	var buffer playbackBuffer
	buffer.write([]byte{1, 2})
	buffer.write([]byte{3, 4, 5})

	output := make([]byte, 4)
	require.Equal(t, 4, buffer.fill(output))
	require.Equal(t, []byte{1, 2, 3, 4}, output)
	require.Equal(t, 1, buffer.len())

	buffer.clear()
	require.Zero(t, buffer.fill(output))
	require.Equal(t, make([]byte, 4), output)
}

func TestCapturedFrameCopiesValidBytes(t *testing.T) {
	input := []byte{1, 2, 3, 4, 5, 6}

	frame := capturedFrame(input, 2, 2)
	require.Equal(t, []byte{1, 2, 3, 4}, frame)

	input[0] = 7
	require.True(t, bytes.Equal(frame, []byte{1, 2, 3, 4}), "frame must not alias the device buffer")

	require.Nil(t, capturedFrame(input, 0, 2))
	require.Nil(t, capturedFrame(input, 4, 2))
}
