package audit

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const separator = "──────────────────────────────────────────────────────────────────"

// FormatTimeline renders a ReplayResult as a human-readable text timeline.
func FormatTimeline(result *ReplayResult) string {
	subject := result.DID
	if subject == "" {
		subject = "all identities"
	}
	if len(result.Entries) == 0 {
		return fmt.Sprintf("DID: %s | No entries found.\n", subject)
	}

	var b strings.Builder

	firstTime := formatDateRange(result.Summary.FirstTimestamp)
	lastTime := formatTimeOnly(result.Summary.LastTimestamp)
	fmt.Fprintf(&b, "DID: %s | %s–%s UTC\n", subject, firstTime, lastTime)
	b.WriteString(separator + "\n")

	for _, e := range result.Entries {
		b.WriteString(FormatEntry(e))
	}

	b.WriteString(separator + "\n")
	b.WriteString(formatSummary(result.Summary))

	return b.String()
}

// FormatEntry renders one entry as a timeline row.
func FormatEntry(e AuditEntry) string {
	weight := e.Weight
	if weight == "" {
		weight = "-"
	}
	tag := ""
	if e.Degraded {
		tag = "  [degraded]"
	}
	return fmt.Sprintf("%-10s T%-2d %-6s %-22s %-18s %-22s %20s%s\n",
		formatTimeOnly(e.Timestamp), e.Tier, strings.ToUpper(e.Decision),
		truncate(e.Intent, 22), truncate(e.Reason, 18), truncate(e.DID, 22), weight, tag)
}

// FormatJSON renders a ReplayResult as indented JSON.
func FormatJSON(result *ReplayResult) (string, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal replay result: %w", err)
	}
	return string(data), nil
}

func formatDateRange(ts string) string {
	t, err := time.Parse(TimestampFormat, ts)
	if err != nil {
		return ts
	}
	return t.Format("2006-01-02 15:04:05")
}

func formatTimeOnly(ts string) string {
	t, err := time.Parse(TimestampFormat, ts)
	if err != nil {
		return ts
	}
	return t.Format("15:04:05")
}

func formatSummary(s ReplaySummary) string {
	parts := []string{}
	if s.AllowCount > 0 {
		parts = append(parts, fmt.Sprintf("%d allow", s.AllowCount))
	}
	if s.DenyCount > 0 {
		parts = append(parts, fmt.Sprintf("%d deny", s.DenyCount))
	}
	if s.DegradedCount > 0 {
		parts = append(parts, fmt.Sprintf("%d degraded", s.DegradedCount))
	}

	out := fmt.Sprintf("Summary: %s | Highest privilege: T%d (%s)",
		strings.Join(parts, ", "), s.MinTier, tierLabelFor(s.MinTier))
	if s.MaxWeight != "" {
		out += " | Max weight: " + s.MaxWeight
	}
	return out + "\n"
}

func tierLabelFor(tier int) string {
	switch tier {
	case 0:
		return "overseer"
	case 1:
		return "admin"
	case 2:
		return "operator"
	case 3:
		return "auditor"
	case 4:
		return "observer"
	default:
		return "unknown"
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
