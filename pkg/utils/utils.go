package utils

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Badge colors for each charmbracelet/log level prefix shown in the
// monitor's log pane. Order matters: the first prefix found in a line wins.
var logLevels = []struct {
	prefix string
	bg     lipgloss.Color
	fg     lipgloss.Color
}{
	{prefix: "DEBU", bg: lipgloss.Color("63"), fg: lipgloss.Color("0")},
	{prefix: "INFO", bg: lipgloss.Color("87"), fg: lipgloss.Color("16")},
	{prefix: "WARN", bg: lipgloss.Color("220"), fg: lipgloss.Color("16")},
	{prefix: "ERRO", bg: lipgloss.Color("204"), fg: lipgloss.Color("0")},
	{prefix: "FATA", bg: lipgloss.Color("134"), fg: lipgloss.Color("0")},
}

// ColorizeLogs styles the level badge of each captured log line for the TUI
// log pane. Lines that already carry ANSI codes are left untouched.
func ColorizeLogs(logs []string) []string {
	for i, line := range logs {
		if strings.Contains(line, "\x1b[") {
			continue
		}
		for _, level := range logLevels {
			if !strings.Contains(line, level.prefix) {
				continue
			}
			badge := lipgloss.NewStyle().
				Padding(0, 1, 0, 1).
				Bold(true).
				MaxWidth(80).
				Background(level.bg).
				Foreground(level.fg).
				Render(level.prefix)
			logs[i] = strings.Replace(line, level.prefix, badge, 1)
			break
		}
	}
	return logs
}
