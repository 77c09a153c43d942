package scenario

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/accord/internal/config"
	"github.com/ppiankov/accord/internal/feature"
	"github.com/ppiankov/accord/internal/identity"
	"github.com/ppiankov/accord/internal/model"
	"github.com/ppiankov/accord/internal/policy"
	"github.com/ppiankov/accord/internal/weight"
)

// Run evaluates every case of s against cfg. Cases are independent.
func Run(s *Scenario, cfg *config.Config) *RunResult {
	pol := cfg.Policy
	if s.FailOpen != nil {
		pol.FailOpen = *s.FailOpen
	}

	result := &RunResult{
		Name:  s.Name,
		Total: len(s.Cases),
	}

	reg, regErr := cfg.Registry()

	for i, c := range s.Cases {
		cr := runCase(c, &pol, reg, regErr, cfg.Weight)
		cr.Index = i + 1
		if cr.Passed {
			result.Passed++
		} else {
			result.Failed++
		}
		result.Cases = append(result.Cases, cr)
	}

	return result
}

func runCase(c Case, pol *policy.Config, reg *identity.Registry, regErr error, wcfg weight.Config) CaseResult {
	intent := model.Intent(c.Intent)
	cr := CaseResult{
		Intent:   c.Intent,
		Expected: strings.ToLower(c.Expect),
	}

	var decision model.AccessDecision
	switch {
	case c.DID != "":
		cr.Subject = c.DID
		if regErr != nil {
			cr.Failure = regErr.Error()
			return cr
		}
		id, err := reg.Resolve(c.DID)
		if err != nil {
			decision = policy.Unresolved(c.DID, intent, err)
		} else {
			decision = policy.Evaluate(id, intent, pol)
		}
	default:
		cr.Subject = c.Tier
		tier, err := model.ParseTier(c.Tier)
		if err != nil {
			cr.Failure = fmt.Sprintf("case needs did or a valid tier: %v", err)
			return cr
		}
		id := model.Identity{DID: "did:scenario:" + tier.String(), Tier: tier}
		decision = policy.Evaluate(id, intent, pol)
	}

	cr.Actual = decision.Verdict()
	cr.Reason = string(decision.Reason)

	if cr.Actual != cr.Expected {
		return cr
	}
	if c.Reason != "" && c.Reason != cr.Reason {
		cr.Failure = fmt.Sprintf("expected reason %s, got %s", c.Reason, cr.Reason)
		return cr
	}
	if c.Feature != nil {
		if msg := checkFeature(c.Feature, decision, wcfg); msg != "" {
			cr.Failure = msg
			return cr
		}
	}

	cr.Passed = true
	return cr
}

func checkFeature(fc *FeatureCase, decision model.AccessDecision, wcfg weight.Config) string {
	if !decision.Allowed {
		return "feature assertion on a denied case"
	}
	agg, err := weight.New(wcfg, feature.Vector(fc.Values))
	if err != nil {
		return err.Error()
	}
	sub := model.Submission{
		Identity:     decision.Identity,
		Intent:       decision.Intent,
		FeatureIndex: fc.Index,
	}
	b, err := agg.Compute(decision, sub)
	if err != nil {
		return err.Error()
	}
	if b.FeatureDegraded != fc.ExpectDegraded {
		return fmt.Sprintf("expected feature_degraded=%v, got %v", fc.ExpectDegraded, b.FeatureDegraded)
	}
	if fc.ExpectComponent != nil && b.FeatureComponent != *fc.ExpectComponent {
		return fmt.Sprintf("expected feature component %d, got %d", *fc.ExpectComponent, b.FeatureComponent)
	}
	return ""
}

// Load parses a scenario YAML file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}

	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if s.Name == "" {
		s.Name = path
	}
	return &s, nil
}

// LoadAndRun loads a scenario file and runs it against cfg.
func LoadAndRun(path string, cfg *config.Config) (*RunResult, error) {
	s, err := Load(path)
	if err != nil {
		return nil, err
	}
	result := Run(s, cfg)
	result.File = path
	return result, nil
}
