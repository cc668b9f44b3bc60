// Package ui renders run results for the terminal.
package ui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/eniac111/cephops/internal/executor"
	"github.com/eniac111/cephops/internal/orchestrator"
)

// Muted palette, dark-terminal friendly.
var (
	green  = lipgloss.Color("76")
	red    = lipgloss.Color("204")
	yellow = lipgloss.Color("214")
	dim    = lipgloss.Color("243")
)

var (
	SuccessStyle = lipgloss.NewStyle().Foreground(green)
	ErrorStyle   = lipgloss.NewStyle().Foreground(red)
	WarnStyle    = lipgloss.NewStyle().Foreground(yellow)
	MutedStyle   = lipgloss.NewStyle().Foreground(dim)
	BoldStyle    = lipgloss.NewStyle().Bold(true)
)

// StatusLabel renders a task status in its conventional color.
func StatusLabel(res executor.TaskResult) string {
	label := res.Status.String()
	if res.Ignored {
		label += " (ignored)"
	}
	switch res.Status {
	case executor.StatusOK:
		return SuccessStyle.Render(label)
	case executor.StatusChanged:
		return WarnStyle.Render(label)
	case executor.StatusSkipped:
		return MutedStyle.Render(label)
	case executor.StatusFailed, executor.StatusUnreachable:
		if res.Ignored {
			return WarnStyle.Render(label)
		}
		return ErrorStyle.Render(label)
	default:
		return label
	}
}

// RenderReport writes the per-host task results and a closing recap.
func RenderReport(w io.Writer, report *orchestrator.Report) {
	summary := report.Summary()

	for _, host := range report.Hosts() {
		fmt.Fprintln(w, BoldStyle.Render(host))
		for _, res := range report.HostResults(host) {
			line := fmt.Sprintf("  %s: %s", StatusLabel(res), res.Task)
			if res.Msg != "" {
				line += " " + MutedStyle.Render("("+res.Msg+")")
			}
			fmt.Fprintln(w, line)
		}

		c := summary[host]
		fmt.Fprintln(w, MutedStyle.Render(fmt.Sprintf(
			"  ok=%d changed=%d skipped=%d failed=%d unreachable=%d",
			c.OK, c.Changed, c.Skipped, c.Failed, c.Unreachable)))
	}

	if report.Failed() {
		fmt.Fprintln(w, ErrorStyle.Render("✗")+" run failed")
	} else {
		fmt.Fprintln(w, SuccessStyle.Render("✓")+" run succeeded")
	}
}
