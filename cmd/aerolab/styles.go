package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	accent  = lipgloss.Color("#8BC34A")
	danger  = lipgloss.Color("#E53935")
	warning = lipgloss.Color("#FFC107")
	muted   = lipgloss.Color("#8A94A6")

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(accent)
	successStyle = lipgloss.NewStyle().Foreground(accent)
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(danger)
	warnStyle    = lipgloss.NewStyle().Foreground(warning)
	keyStyle     = lipgloss.NewStyle().Foreground(muted).Width(14)
	roleStyle    = lipgloss.NewStyle().Bold(true).Foreground(muted)
	boxStyle     = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(muted).
			Padding(0, 1)
)

func printTitle(w io.Writer, s string) {
	fmt.Fprintln(w, titleStyle.Render(s))
}

func printSuccess(w io.Writer, s string) {
	fmt.Fprintln(w, successStyle.Render(s))
}

func printError(w io.Writer, s string) {
	fmt.Fprintln(w, errorStyle.Render(s))
}

func printWarn(w io.Writer, s string) {
	fmt.Fprintln(w, warnStyle.Render(s))
}

func printBox(w io.Writer, s string) {
	fmt.Fprintln(w, boxStyle.Render(strings.TrimRight(s, "\n")))
}

func printKV(w io.Writer, rows [][2]string) {
	for _, r := range rows {
		fmt.Fprintln(w, keyStyle.Render(r[0])+r[1])
	}
}
