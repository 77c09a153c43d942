package policydiff

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FormatText renders the diff result as human-readable text.
func FormatText(r *DiffResult) string {
	if !r.HasChanges {
		return fmt.Sprintf("Config diff: %s → %s\n\nNo changes detected.\n", r.OldPath, r.NewPath)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Config diff: %s → %s\n", r.OldPath, r.NewPath)

	weights := filterChanges(r.Changes, "weight.")
	policyChanges := filterOut(r.Changes, "weight.")

	if len(policyChanges) > 0 {
		b.WriteString("\n  Policy:\n")
		writeChanges(&b, policyChanges, "")
	}

	if len(r.RuleChanges) > 0 {
		b.WriteString("\n  Rules:\n")
		writeRuleChanges(&b, r.RuleChanges)
	}

	if len(r.IdentityChanges) > 0 {
		b.WriteString("\n  Identities:\n")
		writeRuleChanges(&b, r.IdentityChanges)
	}

	if len(weights) > 0 {
		b.WriteString("\n  Weight:\n")
		writeChanges(&b, weights, "weight.")
	}

	return b.String()
}

// FormatJSON renders the diff result as JSON.
func FormatJSON(r *DiffResult) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal diff result: %w", err)
	}
	return string(data), nil
}

func writeChanges(b *strings.Builder, changes []Change, prefix string) {
	for _, c := range changes {
		name := strings.TrimPrefix(c.Field, prefix)
		switch {
		case c.Comment == "added" && c.Old == "":
			fmt.Fprintf(b, "    %-24s + %s\n", name+":", c.New)
		case c.Comment == "removed" && c.New == "":
			fmt.Fprintf(b, "    %-24s - %s\n", name+":", c.Old)
		default:
			fmt.Fprintf(b, "    %-24s %s → %s", name+":", c.Old, c.New)
			if c.Comment != "" {
				fmt.Fprintf(b, "  (%s)", c.Comment)
			}
			b.WriteString("\n")
		}
	}
}

func writeRuleChanges(b *strings.Builder, changes []RuleChange) {
	for _, rc := range changes {
		switch rc.Type {
		case "added":
			fmt.Fprintf(b, "    + %s\n", rc.Rule)
		case "removed":
			fmt.Fprintf(b, "    - %s\n", rc.Rule)
		case "changed":
			fmt.Fprintf(b, "    ~ %s\n", rc.Rule)
		}
	}
}

func filterChanges(changes []Change, prefix string) []Change {
	var out []Change
	for _, c := range changes {
		if strings.HasPrefix(c.Field, prefix) {
			out = append(out, c)
		}
	}
	return out
}

func filterOut(changes []Change, prefix string) []Change {
	var out []Change
	for _, c := range changes {
		if !strings.HasPrefix(c.Field, prefix) {
			out = append(out, c)
		}
	}
	return out
}
