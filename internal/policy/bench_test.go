package policy

import (
	"testing"

	"github.com/ppiankov/accord/internal/model"
)

func BenchmarkEvaluate_Tier0Override(b *testing.B) {
	cfg := DefaultConfig()
	id := model.Identity{DID: "did:t0:protocol-overseer", Tier: model.Tier0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Evaluate(id, model.IntentOverride, cfg)
	}
}

func BenchmarkEvaluate_RuleScan(b *testing.B) {
	cfg := DefaultConfig()
	id := model.Identity{DID: "did:t3:auditor", Tier: model.Tier3}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Evaluate(id, model.IntentMonitor, cfg)
	}
}
