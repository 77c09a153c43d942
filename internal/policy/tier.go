package policy

import "github.com/ppiankov/accord/internal/model"

// TierLabel returns a human-readable label for the tier.
func TierLabel(tier model.Tier) string {
	switch tier {
	case model.Tier0:
		return "override"
	case model.Tier1:
		return "admin"
	case model.Tier2:
		return "read-write"
	case model.Tier3:
		return "audit-only"
	case model.Tier4:
		return "default"
	default:
		return tier.String()
	}
}

// normalizeTier treats anything outside t0..t4 as the lowest privilege.
func normalizeTier(tier model.Tier) model.Tier {
	if !tier.Valid() {
		return model.MaxTier
	}
	return tier
}

// isReadOnlyTier reports whether tier is restricted to read-only intents.
func isReadOnlyTier(tier model.Tier) bool {
	return tier >= model.Tier3
}
