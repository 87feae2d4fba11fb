package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/conneroisu/sitepack/internal/build"
	"github.com/conneroisu/sitepack/internal/errors"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)

	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Width(10)
	valueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	locStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

func row(label, value string) string {
	return labelStyle.Render(label) + valueStyle.Render(value)
}

// renderSummary formats a successful pass.
func renderSummary(r *build.Report) string {
	lines := []string{
		titleStyle.Render("sitepack "+string(r.Mode)) + " " +
			successStyle.Render(fmt.Sprintf("built in %s", r.Duration.Round(time.Millisecond))),
		row("output", r.OutputDir),
		row("pages", strings.Join(r.SortedPages(), " ")),
	}
	if r.Style != "" {
		lines = append(lines, row("style", r.Style))
	}
	if len(r.Scripts) > 0 {
		lines = append(lines, row("scripts", strings.Join(r.Scripts, " ")))
	}
	if len(r.Vendors) > 0 {
		lines = append(lines, row("vendors", strings.Join(r.Vendors, " ")))
	}
	if r.Icons > 0 {
		lines = append(lines, row("icons", fmt.Sprintf("%d", r.Icons)))
	}
	lines = append(lines, row("files", fmt.Sprintf("%d (%s)", r.Files, formatBytes(r.Bytes))))

	return boxStyle.Render(strings.Join(lines, "\n"))
}

// renderError formats a failed command, leading with file:line:col when the
// error carries a location.
func renderError(err error) string {
	var b strings.Builder
	b.WriteString(failedStyle.Render("error"))
	if file, line, col := errors.ExtractLocation(err); file != "" {
		loc := file
		if line > 0 {
			loc = fmt.Sprintf("%s:%d:%d", file, line, col)
		}
		b.WriteString(" " + locStyle.Render(loc))
	}
	b.WriteString("\n" + err.Error())
	return b.String()
}

func formatBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
