// Package render formats a commit message for the terminal with glamour.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
)

// Style names accepted by Markdown. StyleAuto picks dark or light from the
// terminal background and falls back to notty when output is not a terminal.
const (
	StyleAuto  = "auto"
	StyleDark  = "dark"
	StyleLight = "light"
	StyleNoTTY = "notty"
	StyleASCII = "ascii"
)

const _defaultWidth = 80

// CommitMarkdown turns a commit message into markdown: the subject line as a
// heading, the body as-is.
func CommitMarkdown(message string) string {
	message = strings.TrimSpace(message)
	subject, body, _ := strings.Cut(message, "\n")
	var b strings.Builder
	b.WriteString("## ")
	b.WriteString(strings.TrimSpace(subject))
	b.WriteString("\n")
	if body = strings.TrimSpace(body); body != "" {
		b.WriteString("\n")
		b.WriteString(body)
		b.WriteString("\n")
	}
	return b.String()
}

// Markdown renders text with the named style, wrapping at width (0 means 80).
func Markdown(text, style string, width int) (string, error) {
	if width <= 0 {
		width = _defaultWidth
	}
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	switch style {
	case "", StyleAuto:
		opts = append(opts, glamour.WithAutoStyle())
	case StyleDark, StyleLight, StyleNoTTY, StyleASCII:
		opts = append(opts, glamour.WithStandardStyle(style))
	default:
		return "", fmt.Errorf("unknown style %q", style)
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", fmt.Errorf("render: %w", err)
	}
	out, err := r.Render(text)
	if err != nil {
		return "", fmt.Errorf("render: %w", err)
	}
	return out, nil
}
