package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Tier is an ordered privilege level. Lower value = more privilege.
type Tier int

const (
	Tier0 Tier = iota // Protocol overseer, override capable
	Tier1             // Administrative
	Tier2             // Read/write on non-critical ledgers
	Tier3             // Audit only
	Tier4             // Default, read-only
)

// MaxTier is the lowest-privilege tier recognized.
const MaxTier = Tier4

// String returns the short label ("t0".."t4").
func (t Tier) String() string {
	if t < Tier0 || t > MaxTier {
		return fmt.Sprintf("unknown(%d)", int(t))
	}
	return "t" + strconv.Itoa(int(t))
}

// Valid reports whether t is within Tier0..Tier4.
func (t Tier) Valid() bool {
	return t >= Tier0 && t <= MaxTier
}

// ParseTier accepts "t0", "T0", "tier0", "tier-0" and bare "0".
func ParseTier(s string) (Tier, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.TrimPrefix(v, "tier")
	v = strings.TrimPrefix(v, "t")
	v = strings.TrimPrefix(v, "-")
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid tier %q", s)
	}
	t := Tier(n)
	if !t.Valid() {
		return 0, fmt.Errorf("tier %q out of range t0..t%d", s, int(MaxTier))
	}
	return t, nil
}

// MarshalText implements encoding.TextMarshaler.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Tier) UnmarshalText(b []byte) error {
	parsed, err := ParseTier(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Intent is a requested action. Besides the named intents, free-form
// financial-unit identifiers are accepted.
type Intent string

const (
	IntentOverride    Intent = "OVERRIDE"
	IntentGoldBarVote Intent = "GOLD_BAR_VOTE_II"
	IntentReadLedger  Intent = "ReadLedger"
	IntentMonitor     Intent = "Monitor"
)

// Is compares intents case-insensitively.
func (i Intent) Is(other Intent) bool {
	return strings.EqualFold(string(i), string(other))
}

// In reports whether i matches any intent in set.
func (i Intent) In(set []Intent) bool {
	for _, s := range set {
		if i.Is(s) {
			return true
		}
	}
	return false
}

// Identity is a DID tagged with its tier. Supplied by the identity registry.
type Identity struct {
	DID  string `json:"did"`
	Tier Tier   `json:"tier"`
	// Fingerprint is the credential fingerprint recorded for the DID, if any.
	Fingerprint string `json:"fingerprint,omitempty"`
}

// Reason is the enumerated cause behind an AccessDecision.
type Reason string

const (
	ReasonTier0Override       Reason = "tier0_override"
	ReasonTier1ReadAccess     Reason = "tier1_read_access"
	ReasonInsufficientTier    Reason = "insufficient_tier"
	ReasonReadOnlyRestriction Reason = "read_only_restriction"
	ReasonPolicyRule          Reason = "policy_rule"
	ReasonDefaultPermit       Reason = "default_permit"
	ReasonDefaultDeny         Reason = "default_deny"
	ReasonUnresolvedIdentity  Reason = "unresolved_identity"
)

// AccessDecision is the outcome of one access evaluation.
type AccessDecision struct {
	Identity Identity `json:"identity"`
	Intent   Intent   `json:"intent"`
	Allowed  bool     `json:"allowed"`
	Reason   Reason   `json:"reason"`
	PolicyID string   `json:"policy_id"`
	Detail   string   `json:"detail,omitempty"`
}

// Verdict returns "allow" or "deny".
func (d AccessDecision) Verdict() string {
	if d.Allowed {
		return "allow"
	}
	return "deny"
}

// Covers reports whether the decision was made for the given identity and intent.
func (d AccessDecision) Covers(id Identity, intent Intent) bool {
	return d.Identity.DID == id.DID && d.Identity.Tier == id.Tier && d.Intent.Is(intent)
}

// MaxEnergySignature bounds Submission.EnergySignature.
const MaxEnergySignature = 1024

// Submission is one SVT presented for weighting.
type Submission struct {
	Identity        Identity `json:"identity"`
	Intent          Intent   `json:"intent"`
	Message         string   `json:"message,omitempty"`
	Timestamp       int64    `json:"timestamp_epoch"`
	FeatureIndex    int      `json:"feature_index"`
	EnergySignature uint16   `json:"energy_signature"`
}

// WeightBreakdown is the final weight with its components.
type WeightBreakdown struct {
	HashComponent    uint64  `json:"hash_component"`
	AVXComponent     uint64  `json:"avx_component"`
	FeatureComponent uint64  `json:"feature_component"`
	IntentBonus      uint64  `json:"intent_bonus"`
	Total            uint64  `json:"total"`
	FeatureValue     float32 `json:"feature_value"`
	FeatureDegraded  bool    `json:"feature_degraded"`
	FeatureInvalid   bool    `json:"feature_invalid,omitempty"`
	DegradedReason   string  `json:"degraded_reason,omitempty"`
}
