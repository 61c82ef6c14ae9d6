// Package export renders recorded workout sessions into downloadable
// text artifacts.
package export

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/repmeter/repmeter-agent/internal/history"
)

// GenerateSummary renders a plain-text summary of one session: header,
// per-exercise counts in a fixed-width table, and the total.
func GenerateSummary(s *history.Session, counts []*history.SessionCount) string {
	lines := []string{
		"REPMETER WORKOUT SUMMARY",
		fmt.Sprintf("SESSION: %s", s.ID),
		fmt.Sprintf("SOURCE:  %s", s.Source),
		fmt.Sprintf("STARTED: %s", s.StartedAt.UTC().Format(time.RFC3339)),
	}
	if s.EndedAt != nil {
		lines = append(lines,
			fmt.Sprintf("ENDED:   %s", s.EndedAt.UTC().Format(time.RFC3339)),
			fmt.Sprintf("LENGTH:  %s", formatDuration(s.EndedAt.Sub(s.StartedAt))),
		)
	}
	lines = append(lines, "")

	sorted := make([]*history.SessionCount, len(counts))
	copy(sorted, counts)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Count != sorted[j].Count {
			return sorted[i].Count > sorted[j].Count
		}
		return sorted[i].Exercise < sorted[j].Exercise
	})

	total := 0
	for _, c := range sorted {
		lines = append(lines, fmt.Sprintf("%-16s %5d", c.Exercise, c.Count))
		total += c.Count
	}

	lines = append(lines, "", fmt.Sprintf("%-16s %5d", "TOTAL", total), "")
	return strings.Join(lines, "\n")
}

// formatDuration renders h/m/s without sub-second noise.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}
