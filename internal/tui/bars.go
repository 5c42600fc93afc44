package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 2)

	barStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("250")).
			Padding(0, 1)
)

// renderStatusBar renders the host connection status bar.
func renderStatusBar(connected bool, addons, shown, total int, width int) string {
	var status string
	if connected {
		dot := lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Render("●")
		status = fmt.Sprintf("%s host connected  addons:%d  shown:%d/%d", dot, addons, shown, total)
	} else {
		dot := lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("●")
		status = dot + " host not running"
	}
	return barStyle.Width(width).Render(status)
}

// renderHelpBar renders the bottom keybinding bar with an optional message.
func renderHelpBar(message string, width int) string {
	left := ""
	if message != "" {
		left = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Render(message)
	}

	right := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		Render("enter:show/hide  t:toggle all  r:refresh  q:quit")

	gap := width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}

	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		Render(left + strings.Repeat(" ", gap) + right)
}
