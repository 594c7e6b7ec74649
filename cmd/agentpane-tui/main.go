// agentpane-tui is the full-screen chat surface: a viewport transcript above
// a composer, streaming assistant text and inline mutation diffs from a
// locally spawned agent.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/darthmolen/agentpane/internal/agentrt"
	"github.com/darthmolen/agentpane/internal/bridge"
	cliconfig "github.com/darthmolen/agentpane/internal/cli/config"
	"github.com/darthmolen/agentpane/internal/linediff"
	"github.com/darthmolen/agentpane/internal/snapshot"
	"github.com/darthmolen/agentpane/internal/toolspec"
)

var (
	addStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	removeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	contextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	headerStyle  = lipgloss.NewStyle().Bold(true)
)

// uiEvent is one presentation event crossing from the bridge goroutine into
// the tea program.
type uiEvent struct {
	kind   string // "delta", "done", "status", "change", "error", "closed"
	text   string
	phase  string
	change bridge.FileChange
}

type uiEventMsg struct {
	ev uiEvent
}

// chanSink adapts the bridge.Sink interface onto the tea message channel.
type chanSink chan uiEvent

func (c chanSink) AssistantDelta(text string)  { c <- uiEvent{kind: "delta", text: text} }
func (c chanSink) AssistantDone(text string)   { c <- uiEvent{kind: "done", text: text} }
func (c chanSink) Status(phase, detail string) { c <- uiEvent{kind: "status", phase: phase, text: detail} }
func (c chanSink) FileChanged(fc bridge.FileChange) {
	c <- uiEvent{kind: "change", change: fc}
}
func (c chanSink) AgentError(text string) { c <- uiEvent{kind: "error", text: text} }

type model struct {
	ctx    context.Context
	cancel context.CancelFunc

	proc   *agentrt.Process
	events chan uiEvent

	viewport viewport.Model
	composer textarea.Model
	status   string

	content       string
	assistantOpen bool
}

func (m *model) appendLine(s string) {
	m.appendRaw(s + "\n")
}

func (m *model) appendRaw(s string) {
	m.content += s
	m.viewport.SetContent(m.content)
	m.viewport.GotoBottom()
}

func (m *model) endAssistant() {
	if m.assistantOpen {
		m.appendRaw("\n")
		m.assistantOpen = false
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.recvEventCmd(), tea.EnterAltScreen)
}

func (m model) recvEventCmd() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return uiEventMsg{ev: uiEvent{kind: "closed"}}
		}
		return uiEventMsg{ev: ev}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch t := msg.(type) {
	case tea.WindowSizeMsg:
		m.viewport.Width = t.Width
		m.composer.SetWidth(t.Width - 2)
		m.viewport.Height = t.Height - 1 - m.composer.Height()
		if m.viewport.Height < 1 {
			m.viewport.Height = 1
		}
		return m, nil
	case tea.KeyMsg:
		switch t.String() {
		case "ctrl+c", "esc":
			m.cancel()
			m.proc.Close()
			return m, tea.Quit
		case "ctrl+s", "alt+enter":
			line := strings.TrimSpace(m.composer.Value())
			m.composer.SetValue("")
			if line == "" {
				return m, nil
			}
			m.endAssistant()
			m.appendLine(headerStyle.Render("you: ") + line)
			if err := m.proc.Send(line); err != nil {
				m.status = "send failed: " + err.Error()
			}
			return m, nil
		}
	case uiEventMsg:
		return m.handleUIEvent(t.ev)
	}

	var cmd tea.Cmd
	m.composer, cmd = m.composer.Update(msg)
	return m, cmd
}

func (m model) handleUIEvent(ev uiEvent) (tea.Model, tea.Cmd) {
	switch ev.kind {
	case "delta":
		if !m.assistantOpen {
			m.appendRaw(headerStyle.Render("assistant: "))
			m.assistantOpen = true
		}
		m.appendRaw(ev.text)
	case "done":
		if m.assistantOpen {
			m.endAssistant()
		} else if strings.TrimSpace(ev.text) != "" {
			m.appendLine(headerStyle.Render("assistant: ") + ev.text)
		}
	case "status":
		if ev.phase != "" && ev.phase != "idle" {
			m.status = ev.phase
			if ev.text != "" {
				m.status += ": " + ev.text
			}
		} else {
			m.status = "ready"
		}
	case "change":
		m.endAssistant()
		m.renderChange(ev.change)
	case "error":
		m.endAssistant()
		m.appendLine(removeStyle.Render("agent error: " + ev.text))
	case "closed":
		m.endAssistant()
		m.status = "agent exited"
		m.appendLine("[agent exited]")
		return m, nil
	}
	return m, m.recvEventCmd()
}

func (m *model) renderChange(fc bridge.FileChange) {
	verb := "edited"
	if fc.Created {
		verb = "created"
	}
	m.appendLine(headerStyle.Render(fmt.Sprintf("%s %s", verb, fc.Path)))
	if fc.Diff == nil {
		m.appendLine(contextStyle.Render("  (no before/after view available)"))
		return
	}
	for _, line := range fc.Diff.Lines {
		switch line.Kind {
		case linediff.KindAdd:
			m.appendLine(addStyle.Render("  + " + line.Text))
		case linediff.KindRemove:
			m.appendLine(removeStyle.Render("  - " + line.Text))
		default:
			m.appendLine(contextStyle.Render("    " + line.Text))
		}
	}
	if fc.Diff.Truncated {
		m.appendLine(contextStyle.Render(fmt.Sprintf("  ... showing %d of %d changed lines", len(fc.Diff.Lines), fc.Diff.TotalLines)))
	}
}

func (m model) View() string {
	header := fmt.Sprintf("agentpane | %s\n", m.status)
	return header + m.viewport.View() + "\n" + m.composer.View()
}

func main() {
	var configPath string
	var agentCommand string
	var workspace string
	var maxDiffLines int
	var usePTY bool

	flag.StringVar(&configPath, "config", cliconfig.DefaultConfigPath(), "path to agentpane config file")
	flag.StringVar(&agentCommand, "agent", "", "agent executable (overrides config)")
	flag.StringVar(&workspace, "workspace", "", "workspace root the agent mutates (default cwd)")
	flag.IntVar(&maxDiffLines, "max-diff-lines", 0, "inline diff line budget per mutation (default 10)")
	flag.BoolVar(&usePTY, "pty", false, "run the agent under a pseudo-terminal")
	flag.Parse()

	cfg, err := cliconfig.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if cfg == nil {
		cfg = &cliconfig.Config{}
	}
	if agentCommand == "" {
		agentCommand = cfg.Agent.Command
	}
	if strings.TrimSpace(agentCommand) == "" {
		fmt.Fprintln(os.Stderr, cliconfig.ErrAgentCommandMissing)
		os.Exit(1)
	}
	if workspace == "" {
		workspace = cfg.WorkspaceRoot
	}
	if workspace == "" {
		workspace, _ = os.Getwd()
	}
	if maxDiffLines <= 0 {
		maxDiffLines = cfg.MaxDiffLines
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snapshots, err := snapshot.New(logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "snapshot store:", err)
		os.Exit(1)
	}
	defer snapshots.Close()

	bridgeOpts := bridge.Options{MaxDiffLines: maxDiffLines}
	if cfg.Agent.ToolSpec != "" {
		bundle, err := toolspec.LoadBundle(cfg.Agent.ToolSpec)
		if err != nil {
			fmt.Fprintln(os.Stderr, "tool spec:", err)
			os.Exit(1)
		}
		bridgeOpts.NormalizeTool = bundle.KindFor
	}

	events := make(chan uiEvent, 64)
	br := bridge.New(snapshots, chanSink(events), bridgeOpts, logger)

	runner := agentrt.Runner{
		Command: agentCommand,
		Args:    cfg.Agent.Args,
		Dir:     workspace,
		Env:     cfg.Agent.Env,
		UsePTY:  usePTY || cfg.Agent.UsePTY,
		Logger:  logger,
	}
	proc, err := runner.Start(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "start agent:", err)
		os.Exit(1)
	}
	defer proc.Close()

	// Single bridge goroutine: the event stream must be handled in order.
	go func() {
		defer close(events)
		for ev := range proc.Events() {
			br.HandleEvent(ev)
		}
	}()

	ta := textarea.New()
	ta.Placeholder = "Type a message… (Ctrl+S send, Esc quit)"
	ta.Focus()
	ta.CharLimit = 0
	ta.ShowLineNumbers = false
	ta.Prompt = "> "
	ta.SetHeight(3)
	ta.SetWidth(80)

	vp := viewport.New(0, 0)
	vp.SetContent("")

	m := model{
		ctx:      ctx,
		cancel:   cancel,
		proc:     proc,
		events:   events,
		viewport: vp,
		composer: ta,
		status:   "ready",
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
