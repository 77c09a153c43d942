package mcp

import (
	"context"
	"errors"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/accord/internal/model"
	"github.com/ppiankov/accord/internal/policy"
	"github.com/ppiankov/accord/internal/svt"
)

// --- Input/Output types ---

// EvaluateInput defines parameters for the evaluate_access tool.
type EvaluateInput struct {
	DID    string `json:"did" jsonschema:"decentralized identifier of the caller"`
	Intent string `json:"intent" jsonschema:"requested action (OVERRIDE, ReadLedger, ...)"`
}

// EvaluateOutput contains the access decision.
type EvaluateOutput struct {
	Allowed  bool   `json:"allowed"`
	Decision string `json:"decision"`
	Tier     string `json:"tier"`
	Reason   string `json:"reason"`
	PolicyID string `json:"policy_id"`
	Detail   string `json:"detail,omitempty"`
}

// SubmissionInput defines parameters for the weigh_svt tool.
type SubmissionInput struct {
	DID             string `json:"did" jsonschema:"decentralized identifier of the submitter"`
	Intent          string `json:"intent" jsonschema:"intent of the submission"`
	Message         string `json:"message,omitempty" jsonschema:"free-form payload"`
	Timestamp       int64  `json:"timestamp_epoch,omitempty" jsonschema:"epoch seconds, omit for now"`
	FeatureIndex    int    `json:"feature_index" jsonschema:"index into the feature source"`
	EnergySignature int    `json:"energy_signature" jsonschema:"energy signature, 0..1024"`
}

// WeightOutput contains the weight breakdown or denial details.
type WeightOutput struct {
	SvtID            string `json:"svt_id,omitempty"`
	Blocked          bool   `json:"blocked,omitempty"`
	Reason           string `json:"reason"`
	PolicyID         string `json:"policy_id"`
	HashComponent    uint64 `json:"hash_component"`
	AVXComponent     uint64 `json:"avx_component"`
	FeatureComponent uint64 `json:"feature_component"`
	IntentBonus      uint64 `json:"intent_bonus"`
	Total            uint64 `json:"total"`
	FeatureDegraded  bool   `json:"feature_degraded,omitempty"`
}

// --- Handlers ---

func (s *Server) handleEvaluate(ctx context.Context, req *mcpsdk.CallToolRequest, input EvaluateInput) (*mcpsdk.CallToolResult, EvaluateOutput, error) {
	if input.DID == "" || input.Intent == "" {
		return nil, EvaluateOutput{}, errors.New("did and intent are required")
	}
	d := s.proc.Resolve(input.DID, model.Intent(input.Intent))
	return nil, EvaluateOutput{
		Allowed:  d.Allowed,
		Decision: d.Verdict(),
		Tier:     d.Identity.Tier.String(),
		Reason:   string(d.Reason),
		PolicyID: d.PolicyID,
		Detail:   d.Detail,
	}, nil
}

func (s *Server) handleWeigh(ctx context.Context, req *mcpsdk.CallToolRequest, input SubmissionInput) (*mcpsdk.CallToolResult, WeightOutput, error) {
	res, err := s.proc.Weigh(toRequest(input))
	return weightResult(res, err)
}

func weightResult(res svt.Result, err error) (*mcpsdk.CallToolResult, WeightOutput, error) {
	out := WeightOutput{
		SvtID:    res.ID,
		Reason:   string(res.Decision.Reason),
		PolicyID: res.Decision.PolicyID,
	}
	if errors.Is(err, policy.ErrAccessDenied) {
		out.Blocked = true
		return &mcpsdk.CallToolResult{IsError: true}, out, nil
	}
	if err != nil {
		return nil, WeightOutput{}, err
	}
	if b := res.Breakdown; b != nil {
		out.HashComponent = b.HashComponent
		out.AVXComponent = b.AVXComponent
		out.FeatureComponent = b.FeatureComponent
		out.IntentBonus = b.IntentBonus
		out.Total = b.Total
		out.FeatureDegraded = b.FeatureDegraded
	}
	return nil, out, nil
}

func toRequest(input SubmissionInput) svt.Request {
	return svt.Request{
		DID:             input.DID,
		Intent:          model.Intent(input.Intent),
		Message:         input.Message,
		Timestamp:       input.Timestamp,
		FeatureIndex:    input.FeatureIndex,
		EnergySignature: input.EnergySignature,
	}
}
