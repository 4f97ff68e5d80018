package main

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type statusMsg string

const statusHistory = 6

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	bindingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("222"))
)

type uiModel struct {
	status   string
	history  []string
	bindings []string
	width    int
}

func (m uiModel) Init() tea.Cmd { return nil }

func (m uiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		}
	case statusMsg:
		if m.status != "" {
			m.history = append(m.history, m.status)
			if len(m.history) > statusHistory {
				m.history = m.history[len(m.history)-statusHistory:]
			}
		}
		m.status = string(msg)
	}
	return m, nil
}

func (m uiModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("blurt") + dimStyle.Render("  push-to-talk voice chat") + "\n\n")
	b.WriteString(statusStyle.Render("» "+m.status) + "\n\n")

	b.WriteString(dimStyle.Render("bindings") + "\n")
	for _, line := range m.bindings {
		b.WriteString("  " + bindingStyle.Render(line) + "\n")
	}

	if len(m.history) > 0 {
		b.WriteString("\n" + dimStyle.Render("earlier") + "\n")
		for i := len(m.history) - 1; i >= 0; i-- {
			b.WriteString(dimStyle.Render("  "+m.history[i]) + "\n")
		}
	}

	b.WriteString("\n" + dimStyle.Render("q or ctrl+c to quit"))
	return b.String()
}

// statusUI wraps the bubbletea program so the service can push status
// lines without knowing about the terminal.
type statusUI struct {
	program *tea.Program
}

func newStatusUI(bindings map[string]string) *statusUI {
	keys := make([]string, 0, len(bindings))
	for k := range bindings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		prefix := bindings[k]
		if prefix == "" {
			prefix = "(no prefix)"
		}
		lines = append(lines, fmt.Sprintf("hold %s  →  %s", k, prefix))
	}

	m := uiModel{status: "Starting...", bindings: lines}
	return &statusUI{program: tea.NewProgram(m, tea.WithAltScreen())}
}

// SetStatus is safe from any goroutine.
func (u *statusUI) SetStatus(msg string) {
	u.program.Send(statusMsg(msg))
}

func (u *statusUI) Run() error {
	_, err := u.program.Run()
	return err
}
