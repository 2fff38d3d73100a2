// Package ui handles user-facing console output: the startup banner and a
// console that mirrors everything it prints into the structured log.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	bannerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#34A853")).
			Padding(0, 2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#34A853")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))
)

// Banner describes the startup summary shown in interactive mode.
type Banner struct {
	Provider string
	Model    string
	// Degraded lists capabilities that failed to come up, one line each.
	Degraded []string
}

// Print writes the banner to stdout.
func (b Banner) Print() {
	b.PrintTo(os.Stdout)
}

// PrintTo writes the banner to w.
func (b Banner) PrintTo(w io.Writer) {
	var body strings.Builder
	body.WriteString(titleStyle.Render("sysagent") + " " + dimStyle.Render("Linux troubleshooting assistant"))
	body.WriteString("\n")
	fmt.Fprintf(&body, "model: %s/%s\n", b.Provider, b.Model)
	for _, d := range b.Degraded {
		body.WriteString(dimStyle.Render("degraded: "+d) + "\n")
	}
	body.WriteString(dimStyle.Render("type a question, or exit/quit/q to leave"))

	fmt.Fprintln(w, bannerStyle.Render(body.String()))
}
