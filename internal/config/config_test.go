package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/accord/internal/model"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, hash, err := LoadWithHash(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Policy.FailOpen {
		t.Error("default policy must be fail-closed")
	}
	if cfg.Weight.CohesionFactor != 0.005 {
		t.Errorf("cohesion = %v", cfg.Weight.CohesionFactor)
	}
	if hash != Hash(nil) {
		t.Errorf("hash = %s, want hash of empty input", hash)
	}
	if cfg.Stream.Topic != "AEGIS_SOVEREIGNTY_LOG" {
		t.Errorf("topic = %s", cfg.Stream.Topic)
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
policy:
  fail_open: true
weight:
  cohesion_factor: 0.01
feature:
  debounce: 1s
identities:
  - {did: "did:t2:clerk", tier: t2}
stream:
  brokers: [localhost:9092]
`)
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatal(err)
	}

	cfg, hash, err := LoadWithHash(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Policy.FailOpen {
		t.Error("fail_open not applied")
	}
	if len(cfg.Policy.Rules) == 0 {
		t.Error("unspecified rules should keep defaults")
	}
	if cfg.Weight.CohesionFactor != 0.01 {
		t.Errorf("cohesion = %v", cfg.Weight.CohesionFactor)
	}
	if cfg.Weight.OverrideBonus != 9_000_000_000 {
		t.Errorf("override bonus default lost: %d", cfg.Weight.OverrideBonus)
	}
	if cfg.Feature.Debounce != time.Second {
		t.Errorf("debounce = %v", cfg.Feature.Debounce)
	}
	if hash != Hash(data) {
		t.Errorf("hash mismatch")
	}

	reg, err := cfg.Registry()
	if err != nil {
		t.Fatal(err)
	}
	id, err := reg.Resolve("did:t2:clerk")
	if err != nil || id.Tier != model.Tier2 {
		t.Errorf("Resolve = %+v, %v", id, err)
	}
	if reg.IsRegistered("did:t0:protocol-overseer") {
		t.Error("identities section replaces the default registry")
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad yaml", "policy: [unclosed"},
		{"zero cohesion", "weight: {cohesion_factor: 0}"},
		{"negative cohesion", "weight: {cohesion_factor: -1}"},
		{"unknown tier", "identities: [{did: x, tier: t9}]"},
		{"bad rule tier", "policy: {rules: [{tier: t7, intent: '*', decision: allow}]}"},
		{"empty topic", "stream: {topic: ''}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.yaml), 0600); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestDefaultYAMLParses(t *testing.T) {
	cfg, err := Parse([]byte(DefaultYAML()))
	if err != nil {
		t.Fatalf("DefaultYAML does not parse: %v", err)
	}
	if cfg.Policy.FailOpen {
		t.Error("shipped config must be fail-closed")
	}
	if len(cfg.Policy.Rules) != 7 {
		t.Errorf("rules = %d, want 7", len(cfg.Policy.Rules))
	}
	if strings.HasPrefix(cfg.Ledger.Path, "~") {
		t.Errorf("ledger path not expanded: %s", cfg.Ledger.Path)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := ExpandHome("~/x/y"); got != filepath.Join(home, "x", "y") {
		t.Errorf("ExpandHome = %s", got)
	}
	if got := ExpandHome("/abs"); got != "/abs" {
		t.Errorf("ExpandHome(/abs) = %s", got)
	}
}
