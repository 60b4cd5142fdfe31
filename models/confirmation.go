package models

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type Confirmation struct {
	Message string
	Value   bool
}

func ModelConfirmation() Confirmation {
	return Confirmation{
		Value: false,
	}
}

func (m Confirmation) Init() tea.Cmd {
	return nil
}

func (m Confirmation) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch key := msg.(type) {
	case tea.KeyMsg:
		switch key.String() {
		case "esc", "ctrl+c":
			return m, func() tea.Msg { return SubmitConfirmationMsg{Value: false} }
		case "enter":
			return m, func() tea.Msg { return SubmitConfirmationMsg{Value: m.Value} }
		case "tab", "right":
			m.Value = true
		case "shift+tab", "left":
			m.Value = false
		}
	}

	return m, cmd
}

func (m Confirmation) View() string {
	containerStyle := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#a7abca")).
		Foreground(lipgloss.Color("#a7abca")).
		Align(lipgloss.Center).
		Padding(0, 1).
		Width(50)

	inactiveButtonStyle := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#444a66")).
		Align(lipgloss.Center).
		Padding(0, 3).
		Width(18)

	activeButtonStyle := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#cda162")).
		Align(lipgloss.Center).
		Padding(0, 3).
		Width(18)

	confirmButton := inactiveButtonStyle.Render("Confirm")
	cancelButton := activeButtonStyle.Render("Cancel")

	if m.Value {
		confirmButton = activeButtonStyle.Render("Confirm")
		cancelButton = inactiveButtonStyle.Render("Cancel")
	}

	return containerStyle.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.Message,
			lipgloss.JoinHorizontal(lipgloss.Center,
				cancelButton, confirmButton,
			),
		),
	)
}
