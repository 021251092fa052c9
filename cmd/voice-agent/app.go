package main

import (
	"context"
	"errors"
	"fmt"

	orchestration "github.com/chukwumela909/voice-agent-market/core"
	"github.com/chukwumela909/voice-agent-market/core/audio/miniaudio"
	"github.com/chukwumela909/voice-agent-market/core/audio/portaudio"
	"github.com/chukwumela909/voice-agent-market/core/credentials"
	"github.com/chukwumela909/voice-agent-market/core/presence"
	"github.com/chukwumela909/voice-agent-market/core/ratelimit"
	"github.com/chukwumela909/voice-agent-market/core/tools"
	"github.com/chukwumela909/voice-agent-market/core/transport/websocket"
	"github.com/chukwumela909/voice-agent-market/internal/config"
)

type app struct {
	orchestrator *orchestration.Orchestrator
	closers      []func() error
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	a := &app{}

	acquirerOpts := []credentials.Option{credentials.WithAPIKey(cfg.APIKey)}
	if cfg.CredentialRateLimit > 0 {
		store, err := a.rateLimitStore(cfg)
		if err != nil {
			return nil, err
		}
		limiter := ratelimit.NewLimiter(store, int64(cfg.CredentialRateLimit), cfg.CredentialRateWindow)
		acquirerOpts = append(acquirerOpts, credentials.WithRateLimiter(limiter))
	}

	opts := []orchestration.OrchestratorOption{
		orchestration.WithBaseContext(ctx),
		orchestration.WithCredentialAcquirer(credentials.NewHTTPAcquirer(cfg.CredentialURL, acquirerOpts...)),
		orchestration.WithTransport(websocket.New(cfg.RealtimeURL, websocket.WithHandshakeTimeout(cfg.HandshakeTimeout))),
		orchestration.WithTools(tools.MarketTools()...),
		orchestration.WithToolTimeout(cfg.ToolTimeout),
		orchestration.WithPresence(orchestration.PresenceSource(cfg.PresenceSource), presence.WithGain(cfg.PresenceGain)),
	}
	if cfg.ToolURL != "" {
		opts = append(opts, orchestration.WithToolExecutor(tools.NewHTTPExecutor(cfg.ToolURL, tools.WithAPIKey(cfg.APIKey))))
	}

	devices, err := openDevices(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	if devices != nil {
		a.closers = append(a.closers, devices.Close)
		opts = append(opts,
			orchestration.WithAudioInput(devices),
			orchestration.WithAudioOutput(devices),
		)
	}

	a.orchestrator = orchestration.NewOrchestrator(opts...)
	return a, nil
}

func (a *app) rateLimitStore(cfg config.Config) (ratelimit.Store, error) {
	if cfg.RedisURL == "" {
		return ratelimit.NewMemoryStore(), nil
	}
	store, err := ratelimit.NewRedisStoreFromURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to configure rate limit store: %w", err)
	}
	a.closers = append(a.closers, store.Close)
	return store, nil
}

// Close tears the session down before the devices it uses are released.
func (a *app) Close() error {
	if a.orchestrator != nil {
		a.orchestrator.Close()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// devices is a capture and playback backend.
type devices interface {
	orchestration.AudioInput
	orchestration.AudioOutput
	Close() error
}

func openDevices(cfg config.Config) (devices, error) {
	switch cfg.AudioBackend {
	case config.AudioBackendMiniaudio:
		client, err := miniaudio.NewClient(miniaudio.WithSampleRate(cfg.SampleRate))
		if err != nil {
			return nil, fmt.Errorf("failed to open miniaudio devices: %w", err)
		}
		return client, nil
	case config.AudioBackendPortaudio:
		client, err := portaudio.NewClient(cfg.PortaudioFrameSize)
		if err != nil {
			return nil, fmt.Errorf("failed to open portaudio devices: %w", err)
		}
		return client, nil
	case config.AudioBackendNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown audio backend %q", cfg.AudioBackend)
	}
}
