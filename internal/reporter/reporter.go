// Package reporter renders a mission-end summary: per-agent counters, a
// failure-class histogram, the distinct set of files modified, and a tail
// of the audit timeline.
package reporter

import (
	"fmt"
	"sort"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/swarmforge/swarmkit/internal/audit"
	"github.com/swarmforge/swarmkit/internal/mission"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	dimStyle     = lipgloss.NewStyle().Faint(true)
)

// Render builds the full mission summary as a string ready to print.
func Render(m *mission.Mission, log *audit.Log) (string, error) {
	summary, err := log.GetSummary()
	if err != nil {
		return "", err
	}
	timeline, err := log.GetTimeline(10)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintln(&b, headingStyle.Render(fmt.Sprintf("Mission %s — %s", m.MissionID, m.Status)))
	fmt.Fprintf(&b, "%s\n\n", m.Description)

	fmt.Fprintln(&b, headingStyle.Render("Agents"))
	for _, a := range m.Agents {
		style := okStyle
		if a.Status != "completed" {
			style = failStyle
		}
		counters := summary.PerAgent[agentKey(a.Name, m.TeamName)]
		if counters == nil {
			counters = &audit.AgentCounters{}
		}
		fmt.Fprintf(&b, "  %s  writes=%d commands=%d sent=%d received=%d\n",
			style.Render(fmt.Sprintf("%-20s %s", a.Name, a.Status)),
			counters.Writes, counters.Commands, counters.Sent, counters.Received)
	}

	fmt.Fprintf(&b, "\n%s\n", headingStyle.Render("Errors"))
	if summary.Errors == 0 {
		fmt.Fprintln(&b, dimStyle.Render("  none"))
	} else {
		counts := make(map[string]int, len(summary.FailureClasses))
		classes := make([]string, 0, len(summary.FailureClasses))
		for class, n := range summary.FailureClasses {
			name := string(class)
			counts[name] = n
			classes = append(classes, name)
		}
		sort.Strings(classes)
		for _, c := range classes {
			fmt.Fprintf(&b, "  %-20s %d\n", c, counts[c])
		}
	}

	fmt.Fprintf(&b, "\n%s (%d)\n", headingStyle.Render("Files modified"), len(summary.FilesModified))
	files := make([]string, 0, len(summary.FilesModified))
	for f := range summary.FilesModified {
		files = append(files, f)
	}
	sort.Strings(files)
	for _, f := range files {
		fmt.Fprintf(&b, "  %s\n", f)
	}

	fmt.Fprintf(&b, "\n%s\n", headingStyle.Render("Timeline (last 10 events)"))
	for _, t := range timeline {
		fmt.Fprintf(&b, "  %s %-20s %-16s %s\n", dimStyle.Render(fmt.Sprintf("%.3f", t.Ts)), t.Agent, t.Event, t.Detail)
	}

	return b.String(), nil
}

func agentKey(name, team string) string {
	return strings.ToLower(name) + "@" + strings.ToLower(team)
}
