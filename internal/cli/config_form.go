package cli

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"streamshell/internal/settings"
)

const (
	configFieldServer = iota
	configFieldPort
)

type configSavedMsg struct {
	err error
}

// configFormModel is the configuration entry point: a server URL and a
// streaming port, validated and persisted on save.
type configFormModel struct {
	store  settings.Store
	reason string
	inputs []textinput.Model
	focus  int
	width  int

	err       string
	saving    bool
	saved     bool
	cancelled bool
}

func newConfigForm(ctx context.Context, store settings.Store, reason string) configFormModel {
	current, err := settings.LoadConfig(ctx, store)
	if err != nil {
		current = settings.PersistedConfig{StreamingPort: settings.DefaultStreamingPort}
	}

	server := textinput.New()
	server.Prompt = ""
	server.Placeholder = "http://192.168.1.100"
	server.CharLimit = 512
	server.SetValue(current.ServerURL)
	server.Focus()

	port := textinput.New()
	port.Prompt = ""
	port.Placeholder = settings.DefaultStreamingPort
	port.CharLimit = 5
	port.SetValue(current.StreamingPort)

	return configFormModel{
		store:  store,
		reason: reason,
		inputs: []textinput.Model{server, port},
	}
}

func (m configFormModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m configFormModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		for i := range m.inputs {
			m.inputs[i].Width = clampInt(m.width-8, 20, 80)
		}
		return m, nil
	case configSavedMsg:
		m.saving = false
		if msg.err != nil {
			m.err = configErrorText(msg.err)
			return m, nil
		}
		m.saved = true
		return m, tea.Quit
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.cancelled = true
			return m, tea.Quit
		case "tab", "down":
			return m.focusField((m.focus + 1) % len(m.inputs)), nil
		case "shift+tab", "up":
			return m.focusField((m.focus + len(m.inputs) - 1) % len(m.inputs)), nil
		case "enter":
			if m.focus < len(m.inputs)-1 {
				return m.focusField(m.focus + 1), nil
			}
			if m.saving {
				return m, nil
			}
			m.saving = true
			m.err = ""
			return m, saveConfigCmd(m.store, m.values())
		}
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m configFormModel) focusField(i int) configFormModel {
	m.inputs[m.focus].Blur()
	m.focus = i
	m.inputs[m.focus].Focus()
	return m
}

func (m configFormModel) values() settings.PersistedConfig {
	return settings.PersistedConfig{
		ServerURL:     strings.TrimSpace(m.inputs[configFieldServer].Value()),
		StreamingPort: strings.TrimSpace(m.inputs[configFieldPort].Value()),
	}
}

func saveConfigCmd(store settings.Store, cfg settings.PersistedConfig) tea.Cmd {
	return func() tea.Msg {
		return configSavedMsg{err: settings.SaveConfig(context.Background(), store, cfg)}
	}
}

func configErrorText(err error) string {
	switch {
	case errors.Is(err, settings.ErrInvalidServerURL):
		return "Invalid URL: enter a valid URL (example: http://192.168.1.100)"
	case errors.Is(err, settings.ErrInvalidPort):
		return "Invalid port: enter a valid port (example: 3001)"
	default:
		return "Could not save the configuration: " + err.Error()
	}
}

func (m configFormModel) View() string {
	if m.saved || m.cancelled {
		return ""
	}
	labels := []string{"Server URL", "Streaming port"}
	hints := []string{
		"Address or domain where the streaming server is hosted",
		"Port of the video streaming service",
	}

	lines := []string{sessionTitleStyle.Render("streamshell configuration")}
	if m.reason != "" {
		lines = append(lines, sessionMutedStyle.Render(m.reason))
	}
	lines = append(lines, "")
	for i, in := range m.inputs {
		label := labels[i]
		if i == m.focus {
			label = sessionSelStyle.Render(label)
		}
		lines = append(lines, label, sessionPanelStyle.Render(in.View()), sessionMutedStyle.Render(hints[i]), "")
	}
	if m.err != "" {
		lines = append(lines, sessionErrorStyle.Render(m.err))
	}
	if m.saving {
		lines = append(lines, sessionMutedStyle.Render("saving..."))
	}
	lines = append(lines, sessionMutedStyle.Render("tab: next field | enter: save | esc: cancel"))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// runConfigForm shows the form and reports whether a valid configuration was
// saved.
func runConfigForm(ctx context.Context, store settings.Store, reason string) (bool, error) {
	p := tea.NewProgram(newConfigForm(ctx, store, reason), tea.WithAltScreen())
	finalModel, err := p.Run()
	if err != nil {
		return false, err
	}
	fm, ok := finalModel.(configFormModel)
	return ok && fm.saved, nil
}
