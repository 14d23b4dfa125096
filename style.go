package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
)

var keywordStyle = lipgloss.NewStyle().
	Foreground(lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#ECFD65"})

// keyword renders a highlighted word for help text.
func keyword(s string) string {
	return keywordStyle.Render(s)
}

// paragraph formats help text: wrapped and lightly indented.
func paragraph(s string) string {
	return strings.TrimSpace(indent.String(wordwrap.String(s, 78), 2))
}
