package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	orchestration "github.com/chukwumela909/voice-agent-market/core"
	"github.com/chukwumela909/voice-agent-market/core/events"
	"github.com/chukwumela909/voice-agent-market/internal/config"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "voice-agent",
		Short: "Talk to the market assistant from the terminal",
		Long: `voice-agent opens a realtime voice session with the market assistant.

Settings are read from VOICE_AGENT_* environment variables; flags override
them. Press c to connect, i to interrupt the assistant, d to disconnect and
q to quit.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}

	flags := cmd.Flags()
	flags.String("credential-url", "", "Credential endpoint (VOICE_AGENT_CREDENTIAL_URL)")
	flags.String("realtime-url", "", "Realtime websocket endpoint (VOICE_AGENT_REALTIME_URL)")
	flags.String("tool-url", "", "Tool backend endpoint (VOICE_AGENT_TOOL_URL)")
	flags.String("context", "", "Conversation context tag (VOICE_AGENT_CONTEXT)")
	flags.String("identity", "", "User identity sent with the credential request (VOICE_AGENT_IDENTITY)")
	flags.String("audio-backend", "", "miniaudio, portaudio or none (VOICE_AGENT_AUDIO_BACKEND)")
	flags.String("presence", "", "Presence source: microphone, remote or disabled (VOICE_AGENT_PRESENCE_SOURCE)")
	flags.String("redis-url", "", "Redis URL for the credential rate limit store (VOICE_AGENT_REDIS_URL)")
	flags.Duration("tool-timeout", 0, "Per tool call timeout (VOICE_AGENT_TOOL_TIMEOUT)")
	flags.Bool("connect", false, "Connect right after start")

	return cmd
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, &cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	subscription := app.orchestrator.Events(events.WithBuffer(1024))
	defer subscription.Close()

	autoConnect, _ := cmd.Flags().GetBool("connect")
	m := newModel(ctx, app.orchestrator, subscription.Events(), cfg.ContextTag, cfg.Identity)
	m.autoConnect = autoConnect
	m.presenceSource = orchestration.PresenceSource(cfg.PresenceSource)

	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("failed to run terminal ui: %w", err)
	}
	return nil
}

// applyFlags overrides environment settings with explicitly set flags.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	stringFlags := map[string]*string{
		"credential-url": &cfg.CredentialURL,
		"realtime-url":   &cfg.RealtimeURL,
		"tool-url":       &cfg.ToolURL,
		"context":        &cfg.ContextTag,
		"identity":       &cfg.Identity,
		"presence":       &cfg.PresenceSource,
		"redis-url":      &cfg.RedisURL,
	}
	for name, target := range stringFlags {
		if !flags.Changed(name) {
			continue
		}
		value, err := flags.GetString(name)
		if err != nil {
			return err
		}
		*target = value
	}

	if flags.Changed("audio-backend") {
		value, err := flags.GetString("audio-backend")
		if err != nil {
			return err
		}
		cfg.AudioBackend = config.AudioBackend(value)
	}
	if flags.Changed("tool-timeout") {
		value, err := flags.GetDuration("tool-timeout")
		if err != nil {
			return err
		}
		cfg.ToolTimeout = value
	}
	return nil
}
