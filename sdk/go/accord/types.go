package accord

import (
	"fmt"

	"github.com/ppiankov/accord/internal/model"
	"github.com/ppiankov/accord/internal/svt"
)

// Decision is the access outcome.
type Decision string

const (
	Allow Decision = "allow"
	Deny  Decision = "deny"
)

// FeatureSource yields one feature value by index. Errors degrade the
// feature component to zero.
type FeatureSource interface {
	At(index int) (float32, error)
}

// Result is an access evaluation outcome.
type Result struct {
	Decision Decision
	Allowed  bool
	Tier     int
	Reason   string
	PolicyID string
	Detail   string
}

// Submission is an SVT to weigh.
type Submission struct {
	DID     string
	Intent  string
	Message string
	// Timestamp is epoch seconds; 0 means now.
	Timestamp       int64
	FeatureIndex    int
	EnergySignature int
}

// Weight is the consensus weight of a cleared submission.
type Weight struct {
	SvtID            string
	HashComponent    uint64
	AVXComponent     uint64
	FeatureComponent uint64
	IntentBonus      uint64
	Total            uint64
	FeatureDegraded  bool
}

// BlockedError is returned when access is denied.
type BlockedError struct {
	DID      string
	Intent   string
	Reason   string
	PolicyID string
	Detail   string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("accord blocked %s (%s): %s", e.DID, e.Intent, e.Reason)
}

// toResult maps an internal decision to an SDK Result.
func toResult(d model.AccessDecision) Result {
	return Result{
		Decision: Decision(d.Verdict()),
		Allowed:  d.Allowed,
		Tier:     int(d.Identity.Tier),
		Reason:   string(d.Reason),
		PolicyID: d.PolicyID,
		Detail:   d.Detail,
	}
}

func blocked(d model.AccessDecision) *BlockedError {
	return &BlockedError{
		DID:      d.Identity.DID,
		Intent:   string(d.Intent),
		Reason:   string(d.Reason),
		PolicyID: d.PolicyID,
		Detail:   d.Detail,
	}
}

func toRequest(s Submission) svt.Request {
	return svt.Request{
		DID:             s.DID,
		Intent:          model.Intent(s.Intent),
		Message:         s.Message,
		Timestamp:       s.Timestamp,
		FeatureIndex:    s.FeatureIndex,
		EnergySignature: s.EnergySignature,
	}
}

func toWeight(res svt.Result) Weight {
	b := res.Breakdown
	return Weight{
		SvtID:            res.ID,
		HashComponent:    b.HashComponent,
		AVXComponent:     b.AVXComponent,
		FeatureComponent: b.FeatureComponent,
		IntentBonus:      b.IntentBonus,
		Total:            b.Total,
		FeatureDegraded:  b.FeatureDegraded,
	}
}
