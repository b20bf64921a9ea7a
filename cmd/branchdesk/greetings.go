package main

import (
	"fmt"
	"io"
	"math/rand/v2"

	"github.com/charmbracelet/lipgloss"
)

var signedOutHints = [...]string{
	"Your branch's runs are waiting behind the login.",
	"Daily summaries, runs per date and live SOS alerts, one sign-in away.",
	"No session on this machine yet.",
	"Sessions end when the server says so. Sign in again to continue.",
	"The SOS watch needs a signed-in branch to poll for.",
}

// printSignedOutGreeting tells the user how to get a session.
func printSignedOutGreeting(out io.Writer) {
	msg := signedOutHints[rand.IntN(len(signedOutHints))]

	title := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#60a5fa")).
		Bold(true).
		Render("BRANCHDESK")

	quote := lipgloss.NewStyle().
		Foreground(lipgloss.Color("245")).
		Italic(true).
		Render(msg)

	cmdStyle := lipgloss.NewStyle().Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	commands := []struct{ cmd, desc string }{
		{"branchdesk login", "Sign in with username and password"},
		{"branchdesk", "Open the dashboard (signs in from the form)"},
	}

	fmt.Fprintf(out, "\n%s\n\n%s\n\n", title, quote)
	for _, c := range commands {
		fmt.Fprintf(out, "  %s  %s\n", cmdStyle.Render(fmt.Sprintf("%-18s", c.cmd)), descStyle.Render(c.desc))
	}
	fmt.Fprintln(out)
}
