package audit

import (
	"strconv"

	"github.com/ppiankov/accord/internal/model"
)

// Decision values recorded in the log.
const (
	DecisionAllow = "allow"
	DecisionDeny  = "deny"
)

// AuditEntry is one line in the hash-chained JSONL audit log. Fields are
// plain values so json.Marshal output, and therefore the chain hash, is
// reproducible.
type AuditEntry struct {
	Timestamp  string `json:"ts"`
	SvtID      string `json:"svt_id,omitempty"`
	DID        string `json:"did"`
	Tier       int    `json:"tier"`
	Intent     string `json:"intent"`
	Decision   string `json:"decision"`
	Reason     string `json:"reason"`
	PolicyID   string `json:"policy_id,omitempty"`
	Weight     string `json:"weight,omitempty"`
	Degraded   bool   `json:"feature_degraded,omitempty"`
	PolicyHash string `json:"policy_hash"`
	PrevHash   string `json:"prev_hash"`
}

// EntryFor builds an entry for an access decision. breakdown is nil when
// no weight was computed.
func EntryFor(svtID string, d model.AccessDecision, breakdown *model.WeightBreakdown, policyHash string) AuditEntry {
	e := AuditEntry{
		SvtID:      svtID,
		DID:        d.Identity.DID,
		Tier:       int(d.Identity.Tier),
		Intent:     string(d.Intent),
		Decision:   DecisionDeny,
		Reason:     string(d.Reason),
		PolicyID:   d.PolicyID,
		PolicyHash: policyHash,
	}
	if d.Allowed {
		e.Decision = DecisionAllow
	}
	if breakdown != nil {
		e.Weight = strconv.FormatUint(breakdown.Total, 10)
		e.Degraded = breakdown.FeatureDegraded
	}
	return e
}
