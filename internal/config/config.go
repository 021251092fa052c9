package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type AudioBackend string

const (
	AudioBackendMiniaudio AudioBackend = "miniaudio"
	AudioBackendPortaudio AudioBackend = "portaudio"
	// AudioBackendNone runs without devices. Connect then fails with a
	// capability error, which is useful for exercising the error path.
	AudioBackendNone AudioBackend = "none"
)

type Config struct {
	// Credential endpoint that mints short-lived session credentials.
	CredentialURL string
	// Realtime endpoint the websocket transport dials.
	RealtimeURL string
	// Tool backend. Without it every tool call resolves as failed.
	ToolURL string
	// APIKey is sent to the credential and tool backends.
	APIKey string

	ContextTag string
	Identity   string

	ToolTimeout      time.Duration
	HandshakeTimeout time.Duration

	// PresenceSource is one of microphone, remote or disabled.
	PresenceSource string
	PresenceGain   float64

	AudioBackend AudioBackend
	SampleRate   int
	// PortaudioFrameSize is the number of samples per stream read/write.
	PortaudioFrameSize int

	// RedisURL selects the Redis rate limit store. Empty keeps counters in
	// memory.
	RedisURL string
	// CredentialRateLimit caps credential requests per identity per
	// CredentialRateWindow. Zero disables the limit.
	CredentialRateLimit  int
	CredentialRateWindow time.Duration
}

func LoadFromEnv() (Config, error) {
	cfg := Config{
		CredentialURL:        envOr("VOICE_AGENT_CREDENTIAL_URL", ""),
		RealtimeURL:          envOr("VOICE_AGENT_REALTIME_URL", ""),
		ToolURL:              envOr("VOICE_AGENT_TOOL_URL", ""),
		APIKey:               envOr("VOICE_AGENT_API_KEY", ""),
		ContextTag:           envOr("VOICE_AGENT_CONTEXT", "markets"),
		Identity:             envOr("VOICE_AGENT_IDENTITY", ""),
		ToolTimeout:          envDurationOr("VOICE_AGENT_TOOL_TIMEOUT", 30*time.Second),
		HandshakeTimeout:     envDurationOr("VOICE_AGENT_HANDSHAKE_TIMEOUT", 15*time.Second),
		PresenceSource:       strings.ToLower(envOr("VOICE_AGENT_PRESENCE_SOURCE", "microphone")),
		PresenceGain:         envFloat64Or("VOICE_AGENT_PRESENCE_GAIN", 4),
		AudioBackend:         AudioBackend(strings.ToLower(envOr("VOICE_AGENT_AUDIO_BACKEND", string(AudioBackendMiniaudio)))),
		SampleRate:           envIntOr("VOICE_AGENT_SAMPLE_RATE", 16000),
		PortaudioFrameSize:   envIntOr("VOICE_AGENT_PORTAUDIO_FRAME_SIZE", 320),
		RedisURL:             envOr("VOICE_AGENT_REDIS_URL", ""),
		CredentialRateLimit:  envIntOr("VOICE_AGENT_CREDENTIAL_RATE_LIMIT", 0),
		CredentialRateWindow: envDurationOr("VOICE_AGENT_CREDENTIAL_RATE_WINDOW", time.Minute),
	}

	if err := cfg.validateValues(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings that have no usable default. It runs after
// command line overrides are applied.
func (c Config) Validate() error {
	var errs []error
	if c.CredentialURL == "" {
		errs = append(errs, errors.New("VOICE_AGENT_CREDENTIAL_URL must be set"))
	}
	if c.RealtimeURL == "" {
		errs = append(errs, errors.New("VOICE_AGENT_REALTIME_URL must be set"))
	}
	return errors.Join(append(errs, c.validateValues())...)
}

func (c Config) validateValues() error {
	switch c.PresenceSource {
	case "microphone", "remote", "disabled":
	default:
		return fmt.Errorf("VOICE_AGENT_PRESENCE_SOURCE must be one of microphone|remote|disabled")
	}
	switch c.AudioBackend {
	case AudioBackendMiniaudio, AudioBackendPortaudio, AudioBackendNone:
	default:
		return fmt.Errorf("VOICE_AGENT_AUDIO_BACKEND must be one of miniaudio|portaudio|none")
	}
	if c.ToolTimeout <= 0 {
		return fmt.Errorf("VOICE_AGENT_TOOL_TIMEOUT must be > 0")
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("VOICE_AGENT_SAMPLE_RATE must be > 0")
	}
	if c.PortaudioFrameSize <= 0 {
		return fmt.Errorf("VOICE_AGENT_PORTAUDIO_FRAME_SIZE must be > 0")
	}
	if c.CredentialRateLimit < 0 {
		return fmt.Errorf("VOICE_AGENT_CREDENTIAL_RATE_LIMIT must be >= 0")
	}
	if c.CredentialRateLimit > 0 && c.CredentialRateWindow <= 0 {
		return fmt.Errorf("VOICE_AGENT_CREDENTIAL_RATE_WINDOW must be > 0 when a rate limit is set")
	}
	return nil
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envIntOr(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func envFloat64Or(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return n
}

func envDurationOr(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}
