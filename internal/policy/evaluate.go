package policy

import (
	"fmt"

	"github.com/ppiankov/accord/internal/model"
)

// Evaluate decides whether id may perform intent. Pure and deterministic.
//
// Evaluation order (must not be changed):
//  1. t0 + high-privilege intent -> allow
//  2. t1 + ReadLedger -> allow
//  3. below t0 + high-privilege intent -> deny
//  4. t3 or lower + intent outside the read-only set -> deny
//  5. Configured tier rules (first match wins)
//  6. Default -> fail_open decides
func Evaluate(id model.Identity, intent model.Intent, cfg *Config) model.AccessDecision {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	tier := normalizeTier(id.Tier)
	highPrivilege := intent.In(cfg.HighPrivilegeIntents)

	decide := func(allowed bool, reason model.Reason, policyID, detail string) model.AccessDecision {
		return model.AccessDecision{
			Identity: id,
			Intent:   intent,
			Allowed:  allowed,
			Reason:   reason,
			PolicyID: policyID,
			Detail:   detail,
		}
	}

	// Step 1: Tier0 override
	if tier == model.Tier0 && highPrivilege {
		return decide(true, model.ReasonTier0Override, "tier0.override",
			fmt.Sprintf("t0 override: intent %q permitted", intent))
	}

	// Step 2: Tier1 ledger read
	if tier == model.Tier1 && intent.Is(model.IntentReadLedger) {
		return decide(true, model.ReasonTier1ReadAccess, "tier1.read_ledger",
			"t1 admin: ledger read permitted")
	}

	// Step 3: critical intent below Tier0
	if highPrivilege {
		return decide(false, model.ReasonInsufficientTier, "tier.insufficient",
			fmt.Sprintf("tier %s too low for critical intent %q", tier, intent))
	}

	// Step 4: read-only tiers
	if isReadOnlyTier(tier) && !intent.In(cfg.ReadOnlyIntents) {
		return decide(false, model.ReasonReadOnlyRestriction, "tier.read_only",
			fmt.Sprintf("tier %s (%s) restricted to read-only intents", tier, TierLabel(tier)))
	}

	// Step 5: configured rules
	for _, rule := range cfg.Rules {
		if !matchRule(rule, tier, intent) {
			continue
		}
		reason := rule.Reason
		if reason == "" {
			reason = fmt.Sprintf("tier %s intent %s: %s", rule.Tier, rule.Intent, rule.Decision)
		}
		return decide(parseDecision(rule.Decision), model.ReasonPolicyRule, rulePolicyID(rule), reason)
	}

	// Step 6: no rule matched
	if cfg.FailOpen {
		return decide(true, model.ReasonDefaultPermit, "default.permit",
			fmt.Sprintf("unhandled identity/intent (%s, %q): fail-open permit", tier, intent))
	}
	return decide(false, model.ReasonDefaultDeny, "default.deny",
		fmt.Sprintf("unhandled identity/intent (%s, %q): fail-closed deny", tier, intent))
}

// Unresolved returns the deny decision for a DID the registry cannot resolve.
func Unresolved(did string, intent model.Intent, cause error) model.AccessDecision {
	detail := fmt.Sprintf("DID %q is unresolved", did)
	if cause != nil {
		detail = cause.Error()
	}
	return model.AccessDecision{
		Identity: model.Identity{DID: did, Tier: model.MaxTier},
		Intent:   intent,
		Allowed:  false,
		Reason:   model.ReasonUnresolvedIdentity,
		PolicyID: "identity.unresolved",
		Detail:   detail,
	}
}
