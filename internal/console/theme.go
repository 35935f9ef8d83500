package console

import (
	"github.com/charmbracelet/lipgloss"
	controller "github.com/koscakluka/foundry-core/core"
	"github.com/koscakluka/foundry-core/core/protocols"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	cursorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	selectedStyle = lipgloss.NewStyle().Underline(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	noticeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
	editedStyle   = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("214"))

	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)
)

func statusStyle(status protocols.Status) lipgloss.Style {
	style := lipgloss.NewStyle()
	switch status {
	case protocols.StatusRunning, protocols.StatusFinalizing:
		return style.Foreground(lipgloss.Color("39"))
	case protocols.StatusHaltedForHuman:
		return style.Foreground(lipgloss.Color("214"))
	case protocols.StatusCompleted:
		return style.Foreground(lipgloss.Color("78"))
	case protocols.StatusError:
		return style.Foreground(lipgloss.Color("196"))
	default:
		return style.Foreground(lipgloss.Color("244"))
	}
}

func runStateStyle(state controller.RunState) lipgloss.Style {
	switch state {
	case controller.StateStreaming:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	case controller.StateHaltedForHuman:
		return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	}
}
