package presence

import (
	"encoding/binary"
	"math"

	"github.com/chukwumela909/voice-agent-market/core/audio"
)

// Energy returns the RMS energy of a PCM frame normalized to [0,1].
func Energy(frame []byte, encoding audio.EncodingInfo) float64 {
	if len(frame) == 0 {
		return 0
	}

	switch encoding.Format {
	case audio.EncodingLinear16:
		samples := len(frame) / 2
		if samples == 0 {
			return 0
		}
		var sum float64
		for i := 0; i < samples; i++ {
			sample := float64(int16(binary.LittleEndian.Uint16(frame[2*i:]))) / math.MaxInt16
			sum += sample * sample
		}
		return clamp(math.Sqrt(sum / float64(samples)))
	default:
		// Companded formats: distance from the silence byte is monotonic
		// enough in amplitude for presence feedback.
		silence := float64(encoding.SilenceValue())
		var sum float64
		for _, b := range frame {
			d := math.Abs(float64(b)-silence) / 128
			sum += d * d
		}
		return clamp(math.Sqrt(sum / float64(len(frame))))
	}
}

// Smooth moves previous towards target, using attack when rising and release
// when falling.
func Smooth(previous, target, attack, release float64) float64 {
	coefficient := release
	if target > previous {
		coefficient = attack
	}
	return clamp(previous + coefficient*(target-previous))
}

func clamp(v float64) float64 {
	switch {
	case v < 0 || math.IsNaN(v):
		return 0
	case v > 1:
		return 1
	}
	return v
}
