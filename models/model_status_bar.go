package models

import (
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type keyMap struct {
	Scan   key.Binding
	Select key.Binding
	Pair   key.Binding
	Forget key.Binding
	Power  key.Binding
	Quit   key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Scan, k.Select, k.Pair, k.Forget, k.Power, k.Quit}
}

// FullHelp returns keybindings for the expanded help view. It's part of the
// key.Map interface.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Scan, k.Select, k.Pair, k.Forget, k.Power, k.Quit},
	}
}

var keys = keyMap{
	Scan: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r:", "scan"),
	),
	Select: key.NewBinding(
		key.WithKeys("enter", "space"),
		key.WithHelp("↵/space:", "select"),
	),
	Pair: key.NewBinding(
		key.WithKeys("p"),
		key.WithHelp("p:", "pair"),
	),
	Forget: key.NewBinding(
		key.WithKeys("delete"),
		key.WithHelp("del:", "forget/remove"),
	),
	Power: key.NewBinding(
		key.WithKeys("P"),
		key.WithHelp("P:", "power"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "esc", "ctrl+c"),
		key.WithHelp("q/esc:", "quit"),
	),
}

var noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#cda162"))

type StatusBarData struct {
	Input  textinput.Model
	Notice string
}

func ModelStatusBar() StatusBarData {
	ti := textinput.New()
	ti.CharLimit = 156
	ti.Width = 32

	return StatusBarData{
		Input: ti,
	}
}

func (m StatusBarData) Init() tea.Cmd {
	return textinput.Blink
}

func (m StatusBarData) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.Input, cmd = m.Input.Update(msg)
	return m, cmd
}

func (m StatusBarData) View() string {
	keyHelp := help.New().View(keys)

	left := m.Input.View()
	if !m.Input.Focused() && m.Notice != "" {
		left = noticeStyle.Render(m.Notice)
	}

	ansi := regexp.MustCompile(`\x1b\[[0-9;]*[A-Za-z]`)
	clean := ansi.ReplaceAllString(keyHelp, "")

	totalWidth := windowWidth()
	remainingWidth := totalWidth - (lipgloss.Width(left) + len(clean)) - 2

	return left + strings.Repeat(" ", max(remainingWidth, 0)) + keyHelp
}
