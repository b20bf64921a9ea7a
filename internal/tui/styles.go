package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	// Base styles, branchdesk neutral palette
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8890a0"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e4e4ec")).
			Bold(true)

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#c0c4d0"))

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#505868"))

	// Help bar
	helpKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8890a0"))

	helpLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#505868"))

	accentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#60a5fa")).
			Bold(true)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#60a5fa")).
			Bold(true)

	sectionHeaderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#8890a0")).
				Bold(true)

	// Amounts and completion
	amountStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ade80"))

	barStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#60a5fa"))

	barDoneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ade80"))

	// SOS
	alertStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f87171")).
			Bold(true)

	alertBadgeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ffffff")).
			Background(lipgloss.Color("#dc2626")).
			Bold(true).
			Padding(0, 1)

	// Banners
	errorBannerStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#fecaca")).
				Background(lipgloss.Color("#7f1d1d")).
				Padding(0, 1)

	infoBannerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#dbeafe")).
			Background(lipgloss.Color("#1e3a8a")).
			Padding(0, 1)

	// Form inputs
	inputPromptStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#60a5fa"))

	inputLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8890a0")).
			Width(10)
)

// helpEntry renders a single "key label" pair for help bars.
func helpEntry(key, label string) string {
	return helpKeyStyle.Render(key) + " " + helpLabelStyle.Render(label)
}

// helpBar joins help entries with the standard spacing.
func helpBar(entries ...string) string {
	return " " + strings.Join(entries, "  ")
}

// errorBanner renders a dismissible error line. Empty msg renders nothing.
func errorBanner(msg, dismissKey string) string {
	if msg == "" {
		return ""
	}
	return " " + errorBannerStyle.Render(msg) + " " + metaStyle.Render(dismissKey+" dismiss") + "\n"
}

// infoBanner renders a dismissible notice line.
func infoBanner(msg, dismissKey string) string {
	if msg == "" {
		return ""
	}
	return " " + infoBannerStyle.Render(msg) + " " + metaStyle.Render(dismissKey+" dismiss") + "\n"
}
