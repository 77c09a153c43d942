package accordv1

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ppiankov/accord/internal/model"
)

// EvalRequest asks for an access decision.
type EvalRequest struct {
	DID    string `json:"did"`
	Intent string `json:"intent"`
}

// EvalResponse carries the decision.
type EvalResponse struct {
	Decision model.AccessDecision `json:"decision"`
}

// SubmitRequest is an SVT submission. DryRun weights without sinks.
type SubmitRequest struct {
	DID             string `json:"did"`
	Intent          string `json:"intent"`
	Message         string `json:"message,omitempty"`
	Timestamp       int64  `json:"timestamp_epoch,omitempty"`
	FeatureIndex    int    `json:"feature_index"`
	EnergySignature int    `json:"energy_signature"`
	DryRun          bool   `json:"dry_run,omitempty"`
}

// Breakdown is WeightBreakdown with uint64 fields as decimal strings, since
// Struct numbers are float64.
type Breakdown struct {
	HashComponent    uint64  `json:"hash_component,string"`
	AVXComponent     uint64  `json:"avx_component,string"`
	FeatureComponent uint64  `json:"feature_component,string"`
	IntentBonus      uint64  `json:"intent_bonus,string"`
	Total            uint64  `json:"total,string"`
	FeatureValue     float32 `json:"feature_value"`
	FeatureDegraded  bool    `json:"feature_degraded"`
	FeatureInvalid   bool    `json:"feature_invalid,omitempty"`
	DegradedReason   string  `json:"degraded_reason,omitempty"`
}

// SubmitResponse is the outcome of a submission. Breakdown is nil when denied.
type SubmitResponse struct {
	SvtID     string               `json:"svt_id,omitempty"`
	Decision  model.AccessDecision `json:"decision"`
	Timestamp int64                `json:"timestamp_epoch"`
	Breakdown *Breakdown           `json:"breakdown,omitempty"`
	Inserted  bool                 `json:"ledger_inserted,omitempty"`
	Published bool                 `json:"published,omitempty"`
}

// FromModel converts a breakdown to its wire form.
func FromModel(b model.WeightBreakdown) *Breakdown {
	w := Breakdown(b)
	return &w
}

// Model converts the wire breakdown back.
func (b *Breakdown) Model() model.WeightBreakdown {
	return model.WeightBreakdown(*b)
}

// ToStruct encodes v through its JSON form.
func ToStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("accordv1: marshal: %w", err)
	}
	s := &structpb.Struct{}
	if err := s.UnmarshalJSON(data); err != nil {
		return nil, fmt.Errorf("accordv1: to struct: %w", err)
	}
	return s, nil
}

// FromStruct decodes s into v through its JSON form.
func FromStruct(s *structpb.Struct, v any) error {
	data, err := s.MarshalJSON()
	if err != nil {
		return fmt.Errorf("accordv1: from struct: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("accordv1: unmarshal: %w", err)
	}
	return nil
}
