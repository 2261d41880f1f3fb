package cmd

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("99")).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))
)

const bullet = "│ "

/*
details renders a header followed by "label: value" lines, skipping empty
values.
*/
func details(title string, pairs ...string) string {
	var sb strings.Builder

	sb.WriteString(headerStyle.Render(title) + "\n")

	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			continue
		}

		sb.WriteString(bullet + labelStyle.Render(pairs[i]+": ") + valueStyle.Render(pairs[i+1]) + "\n")
	}

	return sb.String()
}
