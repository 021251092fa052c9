package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	orchestration "github.com/chukwumela909/voice-agent-market/core"
	"github.com/chukwumela909/voice-agent-market/core/events"
	"github.com/muesli/reflow/wordwrap"
)

const (
	maxTranscriptLines = 50
	meterWidth         = 24
	defaultWidth       = 80
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	speakerStyle   = lipgloss.NewStyle().Bold(true)
	userStyle      = speakerStyle.Foreground(lipgloss.Color("39"))
	agentStyle     = speakerStyle.Foreground(lipgloss.Color("78"))
	pendingStyle   = lipgloss.NewStyle().Faint(true).Italic(true)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	helpStyle      = lipgloss.NewStyle().Faint(true)
	meterFullStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
)

var stateColors = map[events.ConnectionState]lipgloss.Color{
	events.StateIdle:          "245",
	events.StateRequesting:    "220",
	events.StateNegotiating:   "220",
	events.StateConnected:     "78",
	events.StateListening:     "39",
	events.StateAgentSpeaking: "78",
	events.StateFetching:      "212",
	events.StateClosed:        "245",
	events.StateError:         "203",
}

// controller is the part of the orchestrator the terminal ui drives.
type controller interface {
	Connect(ctx context.Context, contextTag, identity string) error
	Disconnect()
	Interrupt() bool
}

type signalMsg struct{ event events.Event }

type signalsClosedMsg struct{}

type connectResultMsg struct{ err error }

type transcriptLine struct {
	speaker string
	text    string
}

type model struct {
	ctx        context.Context
	controller controller
	signals    <-chan events.Event
	contextTag string
	identity   string

	autoConnect bool
	// presenceSource decides whose voice the meter shows.
	presenceSource orchestration.PresenceSource

	state        events.ConnectionState
	fetching     bool
	fetchingTool string
	level        float64

	partial string
	reply   string
	lines   []transcriptLine
	lastErr string

	width   int
	spinner spinner.Model
}

func newModel(ctx context.Context, controller controller, signals <-chan events.Event, contextTag, identity string) model {
	return model{
		ctx:        ctx,
		controller: controller,
		signals:    signals,
		contextTag: contextTag,
		identity:   identity,
		state:      events.StateIdle,
		width:      defaultWidth,
		spinner:    spinner.New(spinner.WithSpinner(spinner.Dot)),

		presenceSource: orchestration.PresenceMicrophone,
	}
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, waitForSignal(m.signals)}
	if m.autoConnect {
		cmds = append(cmds, m.connect())
	}
	return tea.Batch(cmds...)
}

func waitForSignal(signals <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-signals
		if !ok {
			return signalsClosedMsg{}
		}
		return signalMsg{event: event}
	}
}

func (m model) connect() tea.Cmd {
	return func() tea.Msg {
		return connectResultMsg{err: m.controller.Connect(m.ctx, m.contextTag, m.identity)}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "c":
			m.lastErr = ""
			return m, m.connect()
		case "d":
			return m, func() tea.Msg {
				m.controller.Disconnect()
				return nil
			}
		case "i", " ":
			return m, func() tea.Msg {
				m.controller.Interrupt()
				return nil
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case connectResultMsg:
		if msg.err != nil && !errors.Is(msg.err, orchestration.ErrConnectCancelled) {
			m.lastErr = describeConnectError(msg.err)
		}

	case signalMsg:
		m.apply(msg.event)
		return m, waitForSignal(m.signals)

	case signalsClosedMsg:
		return m, tea.Quit
	}

	return m, nil
}

func describeConnectError(err error) string {
	kind, _ := orchestration.KindOf(err)
	switch kind {
	case orchestration.ErrorKindCapability:
		return "microphone unavailable: " + err.Error()
	case orchestration.ErrorKindHandshake:
		return "could not start session: " + err.Error()
	default:
		return err.Error()
	}
}

func (m *model) apply(event events.Event) {
	switch e := event.(type) {
	case events.ConnectionStateChanged:
		m.state = e.Current
	case events.FetchingChanged:
		m.fetching = e.Fetching
		m.fetchingTool = e.ToolName
	case events.PresenceUpdated:
		m.level = e.Level
	case events.UserTranscriptUpdated:
		m.partial = e.Transcript
	case events.UserTranscriptFinal:
		m.partial = ""
		m.appendLine("you", e.Transcript)
	case events.AssistantResponseSegment:
		m.reply += e.Segment
	case events.AssistantResponseFinal:
		m.appendLine("agent", m.reply)
		m.reply = ""
	case events.TurnCancelled:
		if m.reply != "" {
			m.appendLine("agent", m.reply+" (interrupted)")
		}
		m.reply = ""
	case events.ToolCallFailed:
		m.lastErr = fmt.Sprintf("%s failed: %s", e.Name, e.Error)
	case events.ErrorOccurred:
		m.lastErr = e.Message
	case events.Disconnected:
		m.partial, m.reply = "", ""
		if e.Unexpected && e.Err != nil {
			m.lastErr = "connection lost: " + e.Err.Error()
		}
	}
}

func (m *model) appendLine(speaker, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	m.lines = append(m.lines, transcriptLine{speaker: speaker, text: text})
	if overflow := len(m.lines) - maxTranscriptLines; overflow > 0 {
		m.lines = m.lines[overflow:]
	}
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("market assistant"))
	b.WriteString("  ")
	b.WriteString(lipgloss.NewStyle().Foreground(stateColors[m.state]).Render("● " + m.state.String()))
	if m.fetching {
		b.WriteString("  " + m.spinner.View() + " fetching " + m.fetchingTool)
	}
	b.WriteString("\n")
	if m.presenceSource != orchestration.PresenceDisabled {
		b.WriteString(m.meter())
		b.WriteString("\n")
	}
	b.WriteString("\n")

	wrap := max(m.width-8, 20)
	for _, line := range m.lines {
		style := userStyle
		if line.speaker == "agent" {
			style = agentStyle
		}
		b.WriteString(style.Render(fmt.Sprintf("%-6s", line.speaker)))
		b.WriteString(indentContinuation(wordwrap.String(line.text, wrap)))
		b.WriteString("\n")
	}
	if m.reply != "" {
		b.WriteString(agentStyle.Render(fmt.Sprintf("%-6s", "agent")))
		b.WriteString(indentContinuation(wordwrap.String(m.reply, wrap)))
		b.WriteString("\n")
	}
	if m.partial != "" {
		b.WriteString(pendingStyle.Render(wordwrap.String(m.partial+" …", wrap)))
		b.WriteString("\n")
	}

	if m.lastErr != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(wordwrap.String(m.lastErr, wrap)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("c connect • i interrupt • d disconnect • q quit"))
	return b.String()
}

func (m model) meter() string {
	filled := int(m.level*meterWidth + 0.5)
	filled = min(max(filled, 0), meterWidth)
	label := "mic   "
	if m.presenceSource == orchestration.PresenceRemote {
		label = "agent "
	}
	return helpStyle.Render(label) +
		meterFullStyle.Render(strings.Repeat("█", filled)) +
		helpStyle.Render(strings.Repeat("░", meterWidth-filled))
}

func indentContinuation(text string) string {
	return strings.ReplaceAll(text, "\n", "\n      ")
}
