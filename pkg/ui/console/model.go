package console

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"litegram/pkg/bot"
	"litegram/pkg/bus"
)

const wheelStep = 3

type entryKind int

const (
	entryUser entryKind = iota
	entryBot
	entryAction
	entryError
)

type entry struct {
	kind entryKind
	text string
}

type dispatchResultMsg struct {
	report bot.Report
	err    error
}

type replyMsg struct {
	reply bus.Reply
}

type repliesClosedMsg struct{}

type model struct {
	ctx      context.Context
	dispatch DispatchFunc
	replies  *bus.MessageBus
	updates  *Updates

	theme      theme
	spinner    spinner.Model
	input      textinput.Model
	viewport   viewport.Model
	entries    []entry
	width      int
	height     int
	isReady    bool
	isLoading  bool
	lastErr    string
	followLog  bool
	lastReport *bot.Report
	cycles     int
}

func newModel(ctx context.Context, dispatch DispatchFunc, mb *bus.MessageBus, updates *Updates) *model {
	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))

	in := textinput.New()
	in.Prompt = ""
	in.Placeholder = "Type a message, /command, :cb <data> or :inline <query>"
	in.Focus()
	in.CharLimit = 4096

	if updates == nil {
		updates = NewUpdates(1)
	}

	return &model{
		ctx:       ctx,
		dispatch:  dispatch,
		replies:   mb,
		updates:   updates,
		theme:     defaultTheme(),
		spinner:   spin,
		input:     in,
		viewport:  viewport.New(80, 12),
		width:     100,
		height:    28,
		followLog: true,
	}
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForReplyCmd(m.ctx, m.replies))
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = typed.Width
		m.height = typed.Height
		m.resizeComponents()
		m.refreshViewport(false)
		m.isReady = true
		return m, nil
	case tea.MouseMsg:
		m.handleViewportMouse(typed)
		return m, nil
	case tea.KeyMsg:
		switch typed.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		}

		if m.handleViewportKey(typed) {
			return m, nil
		}

		if typed.String() == "enter" {
			return m, m.submit()
		}
	case spinner.TickMsg:
		if !m.isLoading {
			return m, nil
		}
		m.spinner, cmd = m.spinner.Update(typed)
		return m, cmd
	case replyMsg:
		m.entries = append(m.entries, replyEntry(typed.reply))
		m.refreshViewport(false)
		return m, waitForReplyCmd(m.ctx, m.replies)
	case repliesClosedMsg:
		return m, nil
	case dispatchResultMsg:
		m.isLoading = false
		m.cycles++
		report := typed.report
		m.lastReport = &report
		if typed.err != nil {
			m.lastErr = typed.err.Error()
			m.entries = append(m.entries, entry{kind: entryError, text: typed.err.Error()})
		} else {
			m.lastErr = ""
			if !report.Fired && !report.Fallback && !report.Skipped {
				m.entries = append(m.entries, entry{kind: entryAction, text: "no rule matched"})
			}
		}
		m.refreshViewport(false)
		return m, nil
	}

	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *model) submit() tea.Cmd {
	if m.isLoading {
		return nil
	}

	line := strings.TrimSpace(m.input.Value())
	if line == "" {
		return nil
	}
	if isExitCommand(line) {
		return tea.Quit
	}

	raw, err := m.updates.Build(line)
	m.input.SetValue("")
	if err != nil {
		m.lastErr = err.Error()
		m.entries = append(m.entries, entry{kind: entryError, text: err.Error()})
		m.refreshViewport(true)
		return nil
	}

	m.lastErr = ""
	m.entries = append(m.entries, entry{kind: entryUser, text: line})
	m.isLoading = true
	m.followLog = true
	m.refreshViewport(true)
	return tea.Batch(m.spinner.Tick, dispatchCmd(m.ctx, m.dispatch, raw))
}

func (m *model) View() string {
	if !m.isReady {
		m.resizeComponents()
		m.refreshViewport(false)
	}

	header := m.theme.header.Width(m.width - 2).Render("litegram console")
	meta := m.theme.headerMeta.Render(fmt.Sprintf("user:%d · cycles:%d · %s",
		m.updates.UserID,
		m.cycles,
		reportLine(m.lastReport),
	))
	line := m.theme.divider.Width(m.width - 2).Render(strings.Repeat("─", max(8, m.width-2)))

	status := m.theme.status.Render("Enter send · PgUp/PgDn scroll · End jump latest · Ctrl+C/Esc quit")
	if m.isLoading {
		status = m.theme.statusBusy.Render(fmt.Sprintf("%s dispatching update...", m.spinner.View()))
	}
	if m.lastErr != "" {
		status = m.theme.statusErr.Render("last update failed: " + m.lastErr)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		meta,
		line,
		m.theme.viewport.Width(m.width-2).Render(m.viewport.View()),
		status,
		m.theme.inputLabel.Render("You")+" "+m.theme.hint.Render("(type /exit, quit, or :q)"),
		m.theme.input.Width(m.width-2).Render(m.input.View()),
	)
}

func (m *model) resizeComponents() {
	w := max(40, m.width-6)
	h := max(6, m.height-10)

	m.viewport.Width = w
	m.viewport.Height = h
	m.input.Width = w - 2
}

func (m *model) refreshViewport(forceBottom bool) {
	previousOffset := m.viewport.YOffset
	sections := make([]string, 0, len(m.entries))
	for _, item := range m.entries {
		text := strings.TrimSpace(item.text)
		switch item.kind {
		case entryUser:
			sections = append(sections, lipgloss.JoinVertical(lipgloss.Left,
				m.theme.userTitle.Render("you"),
				m.theme.userBox.Width(m.viewport.Width).Render(text),
			))
		case entryBot:
			sections = append(sections, lipgloss.JoinVertical(lipgloss.Left,
				m.theme.botTitle.Render("bot"),
				m.theme.botBox.Width(m.viewport.Width).Render(text),
			))
		case entryAction:
			sections = append(sections, m.theme.action.Render("· "+text))
		case entryError:
			sections = append(sections, lipgloss.JoinVertical(lipgloss.Left,
				m.theme.errorTitle.Render("error"),
				m.theme.errorBox.Width(m.viewport.Width).Render(text),
			))
		}
	}

	m.viewport.SetContent(strings.Join(sections, "\n"))
	if m.followLog || forceBottom {
		m.viewport.GotoBottom()
		m.followLog = true
		return
	}

	maxOffset := max(0, m.viewport.TotalLineCount()-m.viewport.Height)
	m.viewport.SetYOffset(min(previousOffset, maxOffset))
}

func (m *model) handleViewportKey(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "pgup", "ctrl+b":
		m.viewport.PageUp()
		m.followLog = false
		return true
	case "pgdown", "ctrl+f":
		m.viewport.PageDown()
		if m.viewport.AtBottom() {
			m.followLog = true
		}
		return true
	case "home":
		m.viewport.GotoTop()
		m.followLog = false
		return true
	case "end":
		m.viewport.GotoBottom()
		m.followLog = true
		return true
	default:
		return false
	}
}

func (m *model) handleViewportMouse(msg tea.MouseMsg) bool {
	if msg.Action != tea.MouseActionPress {
		return false
	}

	switch msg.Button {
	case tea.MouseButtonWheelUp:
		m.viewport.SetYOffset(m.viewport.YOffset - wheelStep)
		m.followLog = false
		return true
	case tea.MouseButtonWheelDown:
		m.viewport.SetYOffset(m.viewport.YOffset + wheelStep)
		if m.viewport.AtBottom() {
			m.followLog = true
		}
		return true
	default:
		return false
	}
}

func replyEntry(reply bus.Reply) entry {
	switch reply.Kind {
	case bus.ReplyChatAction:
		return entry{kind: entryAction, text: "bot is " + reply.Text}
	case bus.ReplyCallbackAnswer:
		text := "callback answered"
		if reply.Text != "" {
			text += ": " + reply.Text
		}
		return entry{kind: entryAction, text: text}
	default:
		return entry{kind: entryBot, text: reply.Text}
	}
}

func reportLine(report *bot.Report) string {
	if report == nil {
		return "no updates yet"
	}

	outcome := "unhandled"
	switch {
	case report.Fired:
		outcome = "fired"
	case report.Skipped:
		outcome = "skipped"
	case report.Fallback:
		outcome = "fallback"
	}

	return fmt.Sprintf("rules:%d · %s · %s", report.Rules, outcome, report.Duration.Round(time.Microsecond))
}

func dispatchCmd(ctx context.Context, dispatch DispatchFunc, raw []byte) tea.Cmd {
	return func() tea.Msg {
		report, err := dispatch(ctx, raw)
		return dispatchResultMsg{report: report, err: err}
	}
}

func waitForReplyCmd(ctx context.Context, mb *bus.MessageBus) tea.Cmd {
	return func() tea.Msg {
		reply, ok := mb.ConsumeReply(ctx)
		if !ok {
			return repliesClosedMsg{}
		}
		return replyMsg{reply: reply}
	}
}

func isExitCommand(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "exit", "/exit", "quit", ":q":
		return true
	default:
		return false
	}
}
