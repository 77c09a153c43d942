package policy

import (
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/accord/internal/model"
)

func FuzzPolicyYAML(f *testing.F) {
	f.Add([]byte(DefaultConfigYAML()))
	f.Add([]byte("policy:\n  fail_open: true\n"))
	f.Add([]byte{})
	f.Add([]byte(`{{{not yaml at all`))

	f.Fuzz(func(t *testing.T, data []byte) {
		// Must not panic on any input
		var doc struct {
			Policy Config `yaml:"policy"`
		}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return
		}
		doc.Policy.Validate()
		Evaluate(model.Identity{DID: "did:t2:x", Tier: model.Tier2}, "WriteLedger", &doc.Policy)
	})
}

func FuzzEvaluateIntent(f *testing.F) {
	f.Add("OVERRIDE", 0)
	f.Add("ReadLedger", 3)
	f.Add("", 9)

	f.Fuzz(func(t *testing.T, intent string, tier int) {
		d := Evaluate(model.Identity{DID: "did:fuzz", Tier: model.Tier(tier)}, model.Intent(intent), nil)
		// A critical intent is never granted below t0.
		if d.Allowed && model.Intent(intent).In(DefaultConfig().HighPrivilegeIntents) && model.Tier(tier) != model.Tier0 {
			t.Fatalf("critical intent %q granted to tier %d", intent, tier)
		}
	})
}
