package policy

import (
	"fmt"
	"strings"

	"github.com/ppiankov/accord/internal/identity"
	"github.com/ppiankov/accord/internal/model"
)

// Rule is a tier-bound policy rule evaluated in order (first match wins)
// after the built-in tier rules.
//
// Tier: "t2" matches exactly that tier, "t3+" matches t3 and every
// lower-privilege tier, "*" matches any tier.
// Intent: glob pattern (Read*, *VOTE*, exact).
type Rule struct {
	Tier     string `yaml:"tier"`
	Intent   string `yaml:"intent"`
	Decision string `yaml:"decision"`
	Reason   string `yaml:"reason,omitempty"`
}

// Config holds all configurable access policy parameters.
type Config struct {
	// FailOpen permits requests no rule matched. Off by default: a silent
	// default-allow lets unknown intents through.
	FailOpen             bool           `yaml:"fail_open"`
	HighPrivilegeIntents []model.Intent `yaml:"high_privilege_intents"`
	ReadOnlyIntents      []model.Intent `yaml:"read_only_intents"`
	Rules                []Rule         `yaml:"rules"`
}

// DefaultConfig returns the built-in access policy.
func DefaultConfig() *Config {
	return &Config{
		FailOpen:             false,
		HighPrivilegeIntents: []model.Intent{model.IntentOverride, model.IntentGoldBarVote},
		ReadOnlyIntents:      []model.Intent{model.IntentReadLedger, model.IntentMonitor},
		Rules: []Rule{
			{Tier: "t0", Intent: "*", Decision: "allow", Reason: "t0 may execute any intent"},
			{Tier: "t1", Intent: "*", Decision: "allow", Reason: "t1 administrative intent"},
			{Tier: "t2", Intent: "Read*", Decision: "allow", Reason: "t2 ledger read"},
			{Tier: "t2", Intent: "Write*", Decision: "allow", Reason: "t2 ledger write"},
			{Tier: "t2", Intent: "ACQUISITION*", Decision: "allow", Reason: "t2 acquisition"},
			{Tier: "t3+", Intent: "Read*", Decision: "allow", Reason: "read-only access"},
			{Tier: "t3+", Intent: "Monitor*", Decision: "allow", Reason: "read-only access"},
		},
	}
}

// Validate checks rule syntax. Unknown decisions are not an error here:
// they evaluate fail-closed to deny.
func (c *Config) Validate() error {
	for i, r := range c.Rules {
		if _, _, err := parseTierSelector(r.Tier); err != nil {
			return fmt.Errorf("policy rule %d: %w", i+1, err)
		}
		if strings.TrimSpace(r.Intent) == "" {
			return fmt.Errorf("policy rule %d: empty intent pattern", i+1)
		}
	}
	return nil
}

// matchRule checks if a rule applies to the given tier and intent.
func matchRule(rule Rule, tier model.Tier, intent model.Intent) bool {
	t, orLower, err := parseTierSelector(rule.Tier)
	if err != nil {
		return false
	}
	switch {
	case t < 0:
		// wildcard
	case orLower:
		if tier < t {
			return false
		}
	default:
		if tier != t {
			return false
		}
	}
	return identity.MatchPattern(rule.Intent, string(intent))
}

// parseTierSelector returns the tier, whether lower-privilege tiers are
// included, and -1 for the wildcard.
func parseTierSelector(s string) (model.Tier, bool, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "*" {
		return -1, false, nil
	}
	orLower := strings.HasSuffix(s, "+")
	t, err := model.ParseTier(strings.TrimSuffix(s, "+"))
	if err != nil {
		return 0, false, err
	}
	return t, orLower, nil
}

// parseDecision maps a rule decision string. Fail-closed: unknown → deny.
func parseDecision(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "allow", "permit":
		return true
	default:
		return false
	}
}

// rulePolicyID generates a policy ID from a rule.
func rulePolicyID(rule Rule) string {
	pattern := strings.Trim(rule.Intent, "*")
	if pattern == "" {
		pattern = "all"
	}
	tier := rule.Tier
	if tier == "" || tier == "*" {
		tier = "any"
	}
	return fmt.Sprintf("rule.%s.%s", strings.ToLower(tier), pattern)
}

// DefaultConfigYAML returns a commented YAML policy section for `accord init`.
func DefaultConfigYAML() string {
	return `policy:
  # Evaluation order (cannot be changed):
  #   1. t0 + high-privilege intent      -> allow (tier0_override)
  #   2. t1 + ReadLedger                 -> allow (tier1_read_access)
  #   3. below t0 + high-privilege       -> deny  (insufficient_tier)
  #   4. t3 or lower outside read-only   -> deny  (read_only_restriction)
  #   5. rules below, first match wins   -> rule decision (policy_rule)
  #   6. nothing matched                 -> fail_open ? default_permit : default_deny
  fail_open: false
  high_privilege_intents: [OVERRIDE, GOLD_BAR_VOTE_II]
  read_only_intents: [ReadLedger, Monitor]
  # tier: t2 (exact) | t3+ (t3 and lower) | * (any)
  # intent: glob (Read*, *VOTE*, exact)
  # decision: allow | deny (anything else denies)
  rules:
    - {tier: t0, intent: "*", decision: allow}
    - {tier: t1, intent: "*", decision: allow}
    - {tier: t2, intent: "Read*", decision: allow}
    - {tier: t2, intent: "Write*", decision: allow}
    - {tier: t2, intent: "ACQUISITION*", decision: allow}
    - {tier: t3+, intent: "Read*", decision: allow}
    - {tier: t3+, intent: "Monitor*", decision: allow}
`
}
