package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"streamshell/internal/download"
	"streamshell/internal/model"
	"streamshell/internal/orientation"
	"streamshell/internal/shell"
)

const sessionTickInterval = 200 * time.Millisecond

type sessionTickMsg time.Time

// rotator turns the emulated handset.
type rotator interface {
	Rotate(o orientation.Orientation) error
}

type sessionKeyMap struct {
	Back   key.Binding
	Menu   key.Binding
	Edge   key.Binding
	Rotate key.Binding
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Remove key.Binding
	Clear  key.Binding
	Quit   key.Binding
}

func defaultSessionKeys() sessionKeyMap {
	return sessionKeyMap{
		Back:   key.NewBinding(key.WithKeys("esc", "backspace"), key.WithHelp("esc", "back")),
		Menu:   key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "menu")),
		Edge:   key.NewBinding(key.WithKeys("e", "tab"), key.WithHelp("e", "edge swipe")),
		Rotate: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rotate")),
		Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Select: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		Remove: key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "cancel/delete")),
		Clear:  key.NewBinding(key.WithKeys("C"), key.WithHelp("C", "clear all")),
		Quit:   key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "quit")),
	}
}

type sessionModel struct {
	session *shell.Session
	alerts  *alertQueue
	router  *configRouter
	rotator rotator
	now     func() time.Time

	keys sessionKeyMap
	help help.Model
	bar  progress.Model

	pending     []model.Alert
	alertCursor int
	menuCursor  int
	panelCursor int
	device      orientation.Orientation

	width         int
	height        int
	statusMessage string
	redirect      string
	quitting      bool
}

type panelRow struct {
	task   model.DownloadTask
	active bool
}

var (
	sessionTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	sessionMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	sessionErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	sessionOKStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	sessionPanelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	sessionAlertStyle = lipgloss.NewStyle().Border(lipgloss.DoubleBorder()).BorderForeground(lipgloss.Color("203")).Padding(0, 1)
	sessionSelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62")).Bold(true)
	sessionFabStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("57")).Bold(true).Padding(0, 1)
)

func newSessionModel(s *shell.Session, alerts *alertQueue, router *configRouter, rot rotator) sessionModel {
	return sessionModel{
		session: s,
		alerts:  alerts,
		router:  router,
		rotator: rot,
		now:     time.Now,
		keys:    defaultSessionKeys(),
		help:    help.New(),
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage(), progress.WithWidth(24)),
		device:  orientation.Portrait,
	}
}

func sessionTick() tea.Cmd {
	return tea.Tick(sessionTickInterval, func(t time.Time) tea.Msg {
		return sessionTickMsg(t)
	})
}

func (m sessionModel) Init() tea.Cmd {
	return sessionTick()
}

func (m sessionModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = clampInt(m.width-48, 10, 40)
	case sessionTickMsg:
		m.session.Tick(time.Time(msg))
		cmd = sessionTick()
	case bridgeMsg:
		m.session.HandleBridge(msg.raw)
	case navigationMsg:
		m.session.NavigationChanged(msg.canGoBack)
	case interceptMsg:
		if !m.session.DivertNavigation(msg.url) {
			m.statusMessage = "download not started: " + msg.url
		}
	case downloadEventMsg:
		m = m.onDownloadEvent(msg.ev)
	case tea.KeyMsg:
		m, cmd = m.updateKey(msg)
	}
	return m.settle(cmd)
}

// settle picks up alerts and routing requested while the message was
// handled.
func (m sessionModel) settle(cmd tea.Cmd) (tea.Model, tea.Cmd) {
	if m.alerts != nil {
		m.pending = append(m.pending, m.alerts.Drain()...)
	}
	if m.router != nil {
		if reason, ok := m.router.Requested(); ok {
			m.redirect = reason
			m.quitting = true
			return m, tea.Quit
		}
	}
	return m, cmd
}

func (m sessionModel) onDownloadEvent(ev download.Event) sessionModel {
	switch ev.Kind {
	case download.EventStarted:
		m.statusMessage = "downloading " + ev.Task.Filename
	case download.EventCompleted:
		m.statusMessage = "saved " + ev.Task.Filename
	case download.EventFailed:
		if ev.Task.Reason == model.ReasonCancelled {
			m.statusMessage = "cancelled " + ev.Task.Filename
		}
	}
	m.panelCursor = clampInt(m.panelCursor, 0, maxInt(len(m.panelRows())-1, 0))
	return m
}

func (m sessionModel) updateKey(msg tea.KeyMsg) (sessionModel, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.quitting = true
		return m, tea.Quit
	}
	if len(m.pending) > 0 {
		return m.updateAlert(msg), nil
	}

	switch {
	case key.Matches(msg, m.keys.Edge):
		m.session.EdgeSwipe(m.now())
		return m, nil
	case key.Matches(msg, m.keys.Rotate):
		return m.rotate(), nil
	}

	st := m.session.State()
	switch {
	case st.DownloadsOpen:
		return m.updatePanel(msg)
	case st.MenuOpen:
		return m.updateMenu(msg)
	default:
		return m.updateBrowse(msg, st)
	}
}

func (m sessionModel) updateBrowse(msg tea.KeyMsg, st shell.UIState) (sessionModel, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		return m.back()
	case key.Matches(msg, m.keys.Menu), key.Matches(msg, m.keys.Select):
		if !st.ControlVisible {
			m.statusMessage = "press e to show the control"
			return m, nil
		}
		m.menuCursor = 0
		m.session.ToggleMenu()
	}
	return m, nil
}

func (m sessionModel) updateMenu(msg tea.KeyMsg) (sessionModel, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		return m.back()
	case key.Matches(msg, m.keys.Menu):
		m.session.ToggleMenu()
	case key.Matches(msg, m.keys.Up):
		if m.menuCursor > 0 {
			m.menuCursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.menuCursor < len(shell.MenuActions)-1 {
			m.menuCursor++
		}
	case key.Matches(msg, m.keys.Select):
		action := shell.MenuActions[clampInt(m.menuCursor, 0, len(shell.MenuActions)-1)]
		m.menuCursor = 0
		if action == shell.MenuDownloads {
			m.panelCursor = 0
		}
		m.session.MenuAction(action)
	}
	return m, nil
}

func (m sessionModel) updatePanel(msg tea.KeyMsg) (sessionModel, tea.Cmd) {
	rows := m.panelRows()
	downloads := m.session.Downloads()
	switch {
	case key.Matches(msg, m.keys.Back):
		return m.back()
	case key.Matches(msg, m.keys.Up):
		if m.panelCursor > 0 {
			m.panelCursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.panelCursor < len(rows)-1 {
			m.panelCursor++
		}
	case key.Matches(msg, m.keys.Select):
		if m.panelCursor >= len(rows) || rows[m.panelCursor].active || downloads == nil {
			return m, nil
		}
		if err := downloads.OpenCompletedFile(rows[m.panelCursor].task.ID); err != nil {
			m.statusMessage = "error: " + err.Error()
		}
	case key.Matches(msg, m.keys.Remove):
		if m.panelCursor >= len(rows) || downloads == nil {
			return m, nil
		}
		row := rows[m.panelCursor]
		var err error
		if row.active {
			err = downloads.Cancel(row.task.ID)
		} else {
			err = downloads.DeleteHistoryEntry(context.Background(), row.task.ID)
		}
		if err != nil {
			m.statusMessage = "error: " + err.Error()
		}
		m.panelCursor = clampInt(m.panelCursor, 0, maxInt(len(m.panelRows())-1, 0))
	case key.Matches(msg, m.keys.Clear):
		if downloads == nil {
			return m, nil
		}
		if err := downloads.ClearHistory(context.Background()); err != nil {
			m.statusMessage = "error: " + err.Error()
		}
		m.panelCursor = 0
	}
	return m, nil
}

func (m sessionModel) updateAlert(msg tea.KeyMsg) sessionModel {
	a := m.pending[0]
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.alertCursor > 0 {
			m.alertCursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.alertCursor < len(a.Actions)-1 {
			m.alertCursor++
		}
	case key.Matches(msg, m.keys.Select):
		if m.alertCursor < len(a.Actions) {
			m.session.HandleAlertAction(a.Actions[m.alertCursor])
		}
		m = m.popAlert()
	case key.Matches(msg, m.keys.Back):
		m = m.popAlert()
	}
	return m
}

func (m sessionModel) popAlert() sessionModel {
	m.pending = m.pending[1:]
	m.alertCursor = 0
	return m
}

// back applies the session back priority; an unhandled press leaves the
// screen.
func (m sessionModel) back() (sessionModel, tea.Cmd) {
	if m.session.HandleBack() {
		return m, nil
	}
	m.quitting = true
	return m, tea.Quit
}

func (m sessionModel) rotate() sessionModel {
	next := orientation.Landscape
	if m.device == orientation.Landscape {
		next = orientation.Portrait
	}
	m.device = next
	if m.rotator != nil {
		if err := m.rotator.Rotate(next); err != nil {
			m.statusMessage = "rotate: " + err.Error()
		}
	}
	m.session.Rotated(next)
	return m
}

func (m sessionModel) panelRows() []panelRow {
	downloads := m.session.Downloads()
	if downloads == nil {
		return nil
	}
	active := downloads.Active()
	history := downloads.History()
	rows := make([]panelRow, 0, len(active)+len(history))
	for _, t := range active {
		rows = append(rows, panelRow{task: t, active: true})
	}
	for _, t := range history {
		rows = append(rows, panelRow{task: t})
	}
	return rows
}

func (m sessionModel) View() string {
	if m.quitting {
		return ""
	}
	if m.width <= 0 {
		m.width = 100
	}
	if m.height <= 0 {
		m.height = 30
	}

	st := m.session.State()
	sections := []string{m.renderHeader(st)}
	switch {
	case len(m.pending) > 0:
		sections = append(sections, m.renderAlert(m.pending[0]))
	case st.DownloadsOpen:
		sections = append(sections, m.renderPanel())
	case st.MenuOpen:
		sections = append(sections, m.renderMenu())
	}
	if st.ControlVisible && !st.DownloadsOpen {
		sections = append(sections, m.renderControl())
	}
	sections = append(sections, m.renderStatusLine(), m.help.ShortHelpView(m.helpKeys(st)))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m sessionModel) renderHeader(st shell.UIState) string {
	title := sessionTitleStyle.Render("streamshell") + "  " + sessionMutedStyle.Render(truncateRunes(st.ServerURL, m.width-14))
	flags := []string{
		kv("device", m.device.String()),
		kv("fullscreen", yesNo(st.Fullscreen)),
		kv("page back", yesNo(st.CanGoBack)),
		kv("notifications", yesNo(st.Notifications)),
	}
	return title + "\n" + sessionMutedStyle.Render(strings.Join(flags, " | "))
}

func (m sessionModel) renderControl() string {
	line := sessionFabStyle.Render("≡")
	if hideAt := m.session.HideAt(); !hideAt.IsZero() {
		remaining := hideAt.Sub(m.now()).Round(time.Second)
		if remaining < 0 {
			remaining = 0
		}
		line += " " + sessionMutedStyle.Render(fmt.Sprintf("hides in %s", remaining))
	}
	return line
}

func (m sessionModel) renderMenu() string {
	lines := []string{sessionTitleStyle.Render("Menu")}
	for i, action := range shell.MenuActions {
		row := "  " + action.Label()
		if i == m.menuCursor {
			row = sessionSelStyle.Render("> " + action.Label())
		}
		lines = append(lines, row)
	}
	return sessionPanelStyle.Render(strings.Join(lines, "\n"))
}

func (m sessionModel) renderPanel() string {
	rows := m.panelRows()
	width := clampInt(m.width-4, 40, 120)
	lines := []string{sessionTitleStyle.Render("Downloads")}
	if len(rows) == 0 {
		lines = append(lines, sessionMutedStyle.Render("No downloads yet."))
		return sessionPanelStyle.Width(width).Render(strings.Join(lines, "\n"))
	}

	maxRows := clampInt(m.height-10, 3, 20)
	start, end := listWindow(len(rows), m.panelCursor, maxRows)
	if start > 0 {
		lines = append(lines, sessionMutedStyle.Render("..."))
	}
	for i := start; i < end; i++ {
		lines = append(lines, m.renderPanelRow(rows[i], i == m.panelCursor, width-4))
	}
	if end < len(rows) {
		lines = append(lines, sessionMutedStyle.Render("..."))
	}
	return sessionPanelStyle.Width(width).Render(strings.Join(lines, "\n"))
}

func (m sessionModel) renderPanelRow(row panelRow, selected bool, width int) string {
	t := row.task
	prefix := "  "
	if selected {
		prefix = "> "
	}
	var line string
	if row.active {
		line = fmt.Sprintf("%s%s %s %3d%% %s", prefix, truncateRunes(t.Filename, 28), m.bar.ViewAs(t.Progress), t.Percent(), formatRate(t.Speed))
	} else {
		label := statusLabel(t)
		switch t.Status {
		case model.StatusCompleted:
			label = sessionOKStyle.Render(label)
		case model.StatusFailed:
			label = sessionErrorStyle.Render(label)
		}
		line = fmt.Sprintf("%s%s  %s  %s", prefix, truncateRunes(t.Filename, width-30), label, formatBytesIEC(t.Size))
	}
	if selected {
		return sessionSelStyle.Render(line)
	}
	return line
}

func (m sessionModel) renderAlert(a model.Alert) string {
	lines := []string{sessionErrorStyle.Render(a.Title), wrapOrTrim(a.Message, clampInt(m.width-6, 20, 100)), ""}
	for i, action := range a.Actions {
		if i == m.alertCursor {
			lines = append(lines, sessionSelStyle.Render("> "+action.Label))
			continue
		}
		lines = append(lines, "  "+action.Label)
	}
	return sessionAlertStyle.Render(strings.Join(lines, "\n"))
}

func (m sessionModel) renderStatusLine() string {
	if m.statusMessage == "" {
		return ""
	}
	if strings.HasPrefix(m.statusMessage, "error:") {
		return sessionErrorStyle.Render(m.statusMessage)
	}
	return sessionMutedStyle.Render(m.statusMessage)
}

func (m sessionModel) helpKeys(st shell.UIState) []key.Binding {
	switch {
	case len(m.pending) > 0:
		return []key.Binding{m.keys.Up, m.keys.Down, m.keys.Select, m.keys.Back}
	case st.DownloadsOpen:
		return []key.Binding{m.keys.Up, m.keys.Down, m.keys.Select, m.keys.Remove, m.keys.Clear, m.keys.Back}
	case st.MenuOpen:
		return []key.Binding{m.keys.Up, m.keys.Down, m.keys.Select, m.keys.Back}
	default:
		return []key.Binding{m.keys.Edge, m.keys.Menu, m.keys.Rotate, m.keys.Back, m.keys.Quit}
	}
}
