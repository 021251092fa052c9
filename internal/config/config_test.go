package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"VOICE_AGENT_CREDENTIAL_URL",
	"VOICE_AGENT_REALTIME_URL",
	"VOICE_AGENT_TOOL_URL",
	"VOICE_AGENT_API_KEY",
	"VOICE_AGENT_CONTEXT",
	"VOICE_AGENT_IDENTITY",
	"VOICE_AGENT_TOOL_TIMEOUT",
	"VOICE_AGENT_HANDSHAKE_TIMEOUT",
	"VOICE_AGENT_PRESENCE_SOURCE",
	"VOICE_AGENT_PRESENCE_GAIN",
	"VOICE_AGENT_AUDIO_BACKEND",
	"VOICE_AGENT_SAMPLE_RATE",
	"VOICE_AGENT_PORTAUDIO_FRAME_SIZE",
	"VOICE_AGENT_REDIS_URL",
	"VOICE_AGENT_CREDENTIAL_RATE_LIMIT",
	"VOICE_AGENT_CREDENTIAL_RATE_WINDOW",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func TestLoadFromEnvDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	require.Equal(t, "markets", cfg.ContextTag)
	require.Equal(t, 30*time.Second, cfg.ToolTimeout)
	require.Equal(t, 15*time.Second, cfg.HandshakeTimeout)
	require.Equal(t, "microphone", cfg.PresenceSource)
	require.Equal(t, AudioBackendMiniaudio, cfg.AudioBackend)
	require.Equal(t, 16000, cfg.SampleRate)
	require.Zero(t, cfg.CredentialRateLimit)
	require.Empty(t, cfg.RedisURL)

	require.ErrorContains(t, cfg.Validate(), "VOICE_AGENT_CREDENTIAL_URL must be set")
	require.ErrorContains(t, cfg.Validate(), "VOICE_AGENT_REALTIME_URL must be set")
}

func TestLoadFromEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("VOICE_AGENT_CREDENTIAL_URL", "https://api.example.com/session")
	t.Setenv("VOICE_AGENT_REALTIME_URL", "wss://realtime.example.com/v1")
	t.Setenv("VOICE_AGENT_TOOL_TIMEOUT", "5s")
	t.Setenv("VOICE_AGENT_PRESENCE_SOURCE", "Remote")
	t.Setenv("VOICE_AGENT_AUDIO_BACKEND", "portaudio")
	t.Setenv("VOICE_AGENT_PRESENCE_GAIN", "2.5")
	t.Setenv("VOICE_AGENT_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("VOICE_AGENT_CREDENTIAL_RATE_LIMIT", "3")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	require.Equal(t, 5*time.Second, cfg.ToolTimeout)
	require.Equal(t, "remote", cfg.PresenceSource)
	require.Equal(t, AudioBackendPortaudio, cfg.AudioBackend)
	require.Equal(t, 2.5, cfg.PresenceGain)
	require.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	require.Equal(t, 3, cfg.CredentialRateLimit)
	require.Equal(t, time.Minute, cfg.CredentialRateWindow)
}

func TestLoadFromEnvInvalidNumbersFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("VOICE_AGENT_TOOL_TIMEOUT", "soon")
	t.Setenv("VOICE_AGENT_SAMPLE_RATE", "fast")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	require.Equal(t, 30*time.Second, cfg.ToolTimeout)
	require.Equal(t, 16000, cfg.SampleRate)
}

func TestLoadFromEnvRejectsInvalidValues(t *testing.T) {
	testCases := map[string]struct {
		key, value string
		expected   string
	}{
		"presence source":  {"VOICE_AGENT_PRESENCE_SOURCE", "speaker", "VOICE_AGENT_PRESENCE_SOURCE"},
		"audio backend":    {"VOICE_AGENT_AUDIO_BACKEND", "pulse", "VOICE_AGENT_AUDIO_BACKEND"},
		"tool timeout":     {"VOICE_AGENT_TOOL_TIMEOUT", "-1s", "VOICE_AGENT_TOOL_TIMEOUT"},
		"rate limit":       {"VOICE_AGENT_CREDENTIAL_RATE_LIMIT", "-2", "VOICE_AGENT_CREDENTIAL_RATE_LIMIT"},
		"portaudio frames": {"VOICE_AGENT_PORTAUDIO_FRAME_SIZE", "0", "VOICE_AGENT_PORTAUDIO_FRAME_SIZE"},
	}

	for name, testCase := range testCases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(testCase.key, testCase.value)

			_, err := LoadFromEnv()
			require.ErrorContains(t, err, testCase.expected)
		})
	}
}
