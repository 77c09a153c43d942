package audit

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestFormatTimelineHeaderAndSummary(t *testing.T) {
	path := writeTestLog(t)
	result, err := Replay(path, ReplayFilter{DID: overseer})
	if err != nil {
		t.Fatal(err)
	}

	out := FormatTimeline(result)

	if !strings.Contains(out, "DID: "+overseer) {
		t.Error("expected header to contain DID")
	}
	if !strings.Contains(out, "4 allow") {
		t.Errorf("expected '4 allow' in summary, got:\n%s", out)
	}
	if !strings.Contains(out, "1 degraded") {
		t.Errorf("expected '1 degraded' in summary, got:\n%s", out)
	}
	if !strings.Contains(out, "Highest privilege: T0 (overseer)") {
		t.Errorf("expected tier in summary, got:\n%s", out)
	}
	if !strings.Contains(out, "Max weight: 9000184000") {
		t.Errorf("expected max weight in summary, got:\n%s", out)
	}
}

func TestFormatTimelineEntryColumns(t *testing.T) {
	path := writeTestLog(t)
	result, err := Replay(path, ReplayFilter{})
	if err != nil {
		t.Fatal(err)
	}

	out := FormatTimeline(result)

	for _, want := range []string{"DID: all identities", "T0", "T3", "DENY", "ALLOW", "GOLD_BAR_VOTE_II", "insufficient_tier", "[degraded]"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in timeline:\n%s", want, out)
		}
	}
}

func TestFormatEntryWithoutWeight(t *testing.T) {
	row := FormatEntry(AuditEntry{Timestamp: "2025-01-15T14:00:08.000Z", Tier: 3, Decision: "deny", Intent: "OVERRIDE"})
	if !strings.Contains(row, "14:00:08") || !strings.HasSuffix(strings.TrimSpace(row), "-") {
		t.Errorf("unexpected row %q", row)
	}
}

func TestFormatJSONValid(t *testing.T) {
	path := writeTestLog(t)
	result, err := Replay(path, ReplayFilter{DID: overseer})
	if err != nil {
		t.Fatal(err)
	}

	jsonStr, err := FormatJSON(result)
	if err != nil {
		t.Fatal(err)
	}

	var parsed ReplayResult
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
		t.Fatalf("JSON output not valid: %v", err)
	}
	if parsed.DID != overseer {
		t.Errorf("expected DID %s, got %s", overseer, parsed.DID)
	}
	if len(parsed.Entries) != 4 || parsed.Summary.Total != 4 {
		t.Errorf("expected 4 entries in JSON, got %d", len(parsed.Entries))
	}
}

func TestFormatTimelineEmptyEntries(t *testing.T) {
	out := FormatTimeline(&ReplayResult{DID: "did:t3:nobody"})
	if !strings.Contains(out, "No entries found") {
		t.Errorf("expected 'No entries found' message, got:\n%s", out)
	}
}
