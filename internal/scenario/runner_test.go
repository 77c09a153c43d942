package scenario

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/accord/internal/config"
)

func writeScenario(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func u64(v uint64) *uint64 { return &v }

func TestAllCasesPass(t *testing.T) {
	s := &Scenario{
		Name: "tier matrix",
		Cases: []Case{
			{DID: "did:t0:protocol-overseer", Intent: "OVERRIDE", Expect: "allow", Reason: "tier0_override"},
			{DID: "did:t1:rozel-rosel-admin", Intent: "ReadLedger", Expect: "allow", Reason: "tier1_read_access"},
			{DID: "did:t1:rozel-rosel-admin", Intent: "GOLD_BAR_VOTE_II", Expect: "deny", Reason: "insufficient_tier"},
			{Tier: "t3", Intent: "XAU_VAULT", Expect: "deny", Reason: "read_only_restriction"},
			{Tier: "t2", Intent: "XAU_VAULT", Expect: "deny", Reason: "default_deny"},
			{DID: "did:nobody", Intent: "Monitor", Expect: "deny", Reason: "unresolved_identity"},
		},
	}

	result := Run(s, config.Default())
	if result.Failed != 0 {
		t.Errorf("expected 0 failures, got %d: %+v", result.Failed, result.Cases)
	}
	if result.Passed != 6 {
		t.Errorf("expected 6 passed, got %d", result.Passed)
	}
}

func TestFailedAssertionDetected(t *testing.T) {
	s := &Scenario{
		Name: "wrong expectation",
		Cases: []Case{
			{Tier: "t3", Intent: "OVERRIDE", Expect: "allow"},
		},
	}

	result := Run(s, config.Default())
	if result.Failed != 1 || result.Passed != 0 {
		t.Errorf("expected 1 failure, got %+v", result)
	}
}

func TestReasonMismatchFails(t *testing.T) {
	s := &Scenario{Cases: []Case{{Tier: "t3", Intent: "OVERRIDE", Expect: "deny", Reason: "read_only_restriction"}}}

	result := Run(s, config.Default())
	if result.Failed != 1 {
		t.Fatalf("expected reason mismatch to fail")
	}
	if !strings.Contains(result.Cases[0].Failure, "insufficient_tier") {
		t.Errorf("failure = %q", result.Cases[0].Failure)
	}
}

func TestFailOpenOverride(t *testing.T) {
	open := true
	s := &Scenario{
		FailOpen: &open,
		Cases:    []Case{{Tier: "t2", Intent: "XAU_VAULT", Expect: "allow", Reason: "default_permit"}},
	}
	if result := Run(s, config.Default()); result.Failed != 0 {
		t.Errorf("fail_open scenario failed: %+v", result.Cases)
	}
}

func TestFeatureAssertions(t *testing.T) {
	s := &Scenario{
		Cases: []Case{
			{
				DID: "did:t0:protocol-overseer", Intent: "OVERRIDE", Expect: "allow",
				Feature: &FeatureCase{Values: []float32{600}, Index: 0, ExpectComponent: u64(120000)},
			},
			{
				DID: "did:t0:protocol-overseer", Intent: "OVERRIDE", Expect: "allow",
				Feature: &FeatureCase{Values: []float32{600}, Index: 4, ExpectComponent: u64(0), ExpectDegraded: true},
			},
			{
				DID: "did:t0:protocol-overseer", Intent: "OVERRIDE", Expect: "allow",
				Feature: &FeatureCase{Values: []float32{600}, ExpectComponent: u64(1)},
			},
		},
	}

	result := Run(s, config.Default())
	if !result.Cases[0].Passed || !result.Cases[1].Passed {
		t.Errorf("feature cases should pass: %+v", result.Cases)
	}
	if result.Cases[2].Passed {
		t.Error("wrong expected component should fail")
	}
}

func TestInvalidTierCaseFails(t *testing.T) {
	s := &Scenario{Cases: []Case{{Tier: "t9", Intent: "Monitor", Expect: "allow"}}}
	result := Run(s, config.Default())
	if result.Failed != 1 || result.Cases[0].Failure == "" {
		t.Errorf("expected failure for invalid tier: %+v", result.Cases)
	}
}

func TestLoadAndRunFromFile(t *testing.T) {
	dir := t.TempDir()
	path := writeScenario(t, dir, "test.yaml", `
name: "file test"
cases:
  - did: did:t0:protocol-overseer
    intent: OVERRIDE
    expect: allow
    feature: {values: [600.0], index: 0, expect_component: 120000}
  - tier: t3
    intent: Monitor
    expect: allow
`)

	result, err := LoadAndRun(path, config.Default())
	if err != nil {
		t.Fatal(err)
	}
	if result.Failed != 0 {
		t.Errorf("expected 0 failures, got %+v", result.Cases)
	}
	if result.File != path {
		t.Errorf("expected file path set, got %q", result.File)
	}
}

func TestInvalidScenarioYAML(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "bad.yaml", ":::not yaml\x00")

	if _, err := LoadAndRun(filepath.Join(dir, "bad.yaml"), config.Default()); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestEmptyCasesList(t *testing.T) {
	result := Run(&Scenario{Name: "empty"}, config.Default())
	if result.Total != 0 || result.Failed != 0 {
		t.Errorf("unexpected result %+v", result)
	}
}

func TestFormatText(t *testing.T) {
	pass := &RunResult{Name: "ok", Total: 1, Passed: 1}
	fail := &RunResult{Name: "bad", Total: 1, Failed: 1, Cases: []CaseResult{
		{Index: 1, Subject: "t3", Intent: "OVERRIDE", Expected: "allow", Actual: "deny", Reason: "insufficient_tier"},
	}}

	out := FormatText([]*RunResult{pass, fail})
	for _, want := range []string{"Checking 2 scenario files", "PASS  ok (1/1)", "FAIL  bad (0/1)", "expected allow, got deny (insufficient_tier)", "1 of 2 cases passed. 1 of 2 scenarios failed."} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestFormatJSON(t *testing.T) {
	out, err := FormatJSON([]*RunResult{{Name: "x", Total: 0}})
	if err != nil {
		t.Fatal(err)
	}
	var parsed []RunResult
	if err := json.Unmarshal([]byte(out), &parsed); err != nil || parsed[0].Name != "x" {
		t.Errorf("round trip failed: %v", err)
	}
}
