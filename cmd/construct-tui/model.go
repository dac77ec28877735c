package main

import (
	"context"
	"fmt"
	"hash/fnv"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"construct-chat/internal/models"
	"construct-chat/internal/orchestrator"
)

// chatRunner is the part of the orchestrator the terminal drives
type chatRunner interface {
	HandleMessage(ctx context.Context, surface orchestrator.Surface, in orchestrator.InboundMessage) orchestrator.Outcome
	Continue(ctx context.Context, surface orchestrator.Surface, surfaceID, authorID, authorName string) orchestrator.Outcome
}

type handledMsg struct {
	outcome orchestrator.Outcome
}

type line struct {
	id      string
	persona string
	text    string
}

var personaPalette = []lipgloss.Color{"#ff71ce", "#01cdfe", "#05ffa1", "#ffd166", "#b967ff", "#fffb96"}

type theme struct {
	header lipgloss.Style
	user   lipgloss.Style
	system lipgloss.Style
	status lipgloss.Style
	panel  lipgloss.Style
}

func newTheme() theme {
	muted := lipgloss.Color("#9ca3d8")
	return theme{
		header: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#f3f3ff")).
			BorderStyle(lipgloss.RoundedBorder()).BorderBottom(true).Padding(0, 1),
		user:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#f3f3ff")),
		system: lipgloss.NewStyle().Italic(true).Foreground(muted),
		status: lipgloss.NewStyle().Foreground(muted),
		panel:  lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).Padding(0, 1),
	}
}

// personaStyle picks a stable colour for a persona name
func personaStyle(name string) lipgloss.Style {
	h := fnv.New32a()
	h.Write([]byte(name))
	return lipgloss.NewStyle().Bold(true).Foreground(personaPalette[h.Sum32()%uint32(len(personaPalette))])
}

type model struct {
	ctx      context.Context
	runner   chatRunner
	surface  orchestrator.Surface
	userID   string
	userName string

	input    textinput.Model
	timeline viewport.Model
	spinner  spinner.Model
	theme    theme

	lines   []line
	busy    bool
	typing  bool
	status  string
	width   int
	height  int
	counter int
}

func newModel(ctx context.Context, runner chatRunner, surface orchestrator.Surface, userName string) model {
	input := textinput.New()
	input.Prompt = "❯ "
	input.CharLimit = 4000
	input.Placeholder = "Say something. /continue asks the personas to go on, /quit leaves."
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Points
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#05ffa1"))

	return model{
		ctx:      ctx,
		runner:   runner,
		surface:  surface,
		userID:   "local-user",
		userName: userName,
		input:    input,
		timeline: viewport.New(0, 0),
		spinner:  sp,
		theme:    newTheme(),
		status:   "ready",
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	case replyMsg:
		m.typing = false
		m.lines = append(m.lines, line{id: msg.id, persona: msg.persona, text: msg.text})
	case editMsg:
		if i := m.indexOf(msg.id); i >= 0 {
			m.lines[i].text = msg.text
		}
	case deleteMsg:
		m.lines = slices.DeleteFunc(m.lines, func(l line) bool { return l.id == msg.id })
	case typingMsg:
		m.typing = true
	case handledMsg:
		m.busy = false
		m.typing = false
		m.status = string(msg.outcome)
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			if cmd := m.submit(); cmd != nil {
				cmds = append(cmds, cmd)
			}
		default:
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			cmds = append(cmds, cmd)
		}
	default:
		var cmd tea.Cmd
		m.timeline, cmd = m.timeline.Update(msg)
		cmds = append(cmds, cmd)
	}
	m.render()
	return m, tea.Batch(cmds...)
}

// submit turns the input line into an orchestrator call
func (m *model) submit() tea.Cmd {
	text := strings.TrimSpace(m.input.Value())
	if text == "" || m.busy {
		return nil
	}
	m.input.SetValue("")

	switch text {
	case "/quit":
		return tea.Quit
	case "/continue":
		m.busy = true
		m.status = "continuing"
		ctx, runner, surface := m.ctx, m.runner, m.surface
		userID, userName := m.userID, m.userName
		return func() tea.Msg {
			return handledMsg{outcome: runner.Continue(ctx, surface, localSurfaceID, userID, userName)}
		}
	}

	m.counter++
	id := fmt.Sprintf("local-%d", m.counter)
	m.lines = append(m.lines, line{id: id, text: text})
	m.busy = true
	m.status = "thinking"

	in := orchestrator.InboundMessage{
		ID:         id,
		SurfaceID:  localSurfaceID,
		AuthorID:   m.userID,
		AuthorName: m.userName,
		Text:       text,
		Origin:     models.ChatTypeLocal,
	}
	ctx, runner, surface := m.ctx, m.runner, m.surface
	return func() tea.Msg {
		return handledMsg{outcome: runner.HandleMessage(ctx, surface, in)}
	}
}

func (m model) indexOf(id string) int {
	return slices.IndexFunc(m.lines, func(l line) bool { return l.id == id })
}

func (m *model) resize() {
	m.input.Width = max(m.width-6, 10)
	m.timeline.Width = max(m.width-4, 10)
	m.timeline.Height = max(m.height-8, 3)
}

func (m *model) render() {
	var b strings.Builder
	for _, l := range m.lines {
		switch {
		case l.persona != "":
			b.WriteString(personaStyle(l.persona).Render(l.persona + ": "))
		case strings.HasPrefix(l.id, "local-"):
			b.WriteString(m.theme.user.Render(m.userName + ": "))
		default:
			b.WriteString(m.theme.system.Render("* "))
		}
		b.WriteString(l.text)
		b.WriteString("\n")
	}
	m.timeline.SetContent(b.String())
	m.timeline.GotoBottom()
}

func (m model) View() string {
	status := m.theme.status.Render(m.status)
	if m.busy || m.typing {
		status = m.spinner.View() + " " + status
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.theme.header.Render("construct chat"),
		m.theme.panel.Render(m.timeline.View()),
		m.theme.panel.Render(m.input.View()),
		status,
	)
}
