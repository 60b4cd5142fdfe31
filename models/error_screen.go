package models

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type ModelErrorType struct {
	err error
}

func ModelError(err error) ModelErrorType {
	return ModelErrorType{err}
}

func (m ModelErrorType) Init() tea.Cmd {
	return nil
}

func (m ModelErrorType) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc", "q":
			return m, tea.Quit
		}
	}

	return m, nil
}

func (m ModelErrorType) View() string {
	width, height := windowDimensions()

	style := lipgloss.NewStyle().
		AlignHorizontal(lipgloss.Center).
		AlignVertical(lipgloss.Center).
		Border(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#ff0000")).
		Foreground(lipgloss.Color("#aa0000")).
		Width(width - 2).
		Height(height - 4).
		Padding(2, 4)

	return style.Render(m.err.Error())
}
